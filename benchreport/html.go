// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchreport

import (
	"io"
	"path/filepath"

	"github.com/google/safehtml/template"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Manifest}}</title>
<style>
body { font-family: sans-serif; }
.failed { color: #c0392b; }
.warning { color: #7f8c8d; }
img { max-width: 100%; }
</style>
</head>
<body>
<h1>{{.Manifest}}</h1>
<p>Run {{.RunID}}</p>
{{range .Phases}}
<h2>{{.Name}}</h2>
{{- if .Err}}
<p class="failed">{{.Err}}</p>
{{- else}}
<p>{{.Rows}} rows{{range .Files}} &middot; <a href="{{.}}">{{.}}</a>{{end}}</p>
{{- range .Charts}}
<h3>{{.Metric}}</h3>
{{- if .Err}}
<p class="failed">{{.Err}}</p>
{{- else}}
<p><a href="{{.Output}}"><img src="{{.Output}}" alt="{{.Metric}}"></a></p>
{{- end}}
{{- if .Warnings}}
<ul class="warning">
{{- range .Warnings}}
<li>{{.String}}</li>
{{- end}}
</ul>
{{- end}}
{{- end}}
{{- end}}
{{end}}
</body>
</html>
`))

// writeIndex writes an HTML page linking every artifact of r. Links
// are relative to the output directory.
func writeIndex(w io.Writer, r *Report) error {
	data := *r
	data.Manifest = filepath.Base(r.Manifest)
	return indexTemplate.Execute(w, &data)
}
