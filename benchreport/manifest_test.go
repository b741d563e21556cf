// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchreport

import (
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lldbench/benchreport/benchagg"
	"github.com/lldbench/benchreport/benchcsv"
	"github.com/lldbench/benchreport/benchpivot"
)

const baseSchema = `
schema:
  dims:
    - {name: count, kind: int, label: Number of concurrent clients}
    - {name: type, kind: string}
  metrics:
    - {name: granted_avg, label: "Avg response time [ms]"}
    - {name: timeout_count}
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(baseSchema+`
output: evaluate
comma: ";"
order: sorted
quantile: 0.9
phases:
  - name: phase1
    inputs: [{path: evaluate-phase1.csv}]
    group_by: [count, type]
    colors: ["#3498db", "#f1c40f"]
    charts:
      - {metric: granted_avg, series: type, stat: quantile, transform: {scale: 0.001, offset: 1}}
      - {metric: timeout_count, transform: ["invert:1"]}
`), "/work/bench.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/work", m.Dir())
	assert.Equal(t, "/work/evaluate", m.OutputDir())
	assert.Equal(t, ';', m.comma)
	assert.Equal(t, benchagg.Sorted, m.order)
	assert.Equal(t, "Number of concurrent clients", m.label("count"))
	assert.Equal(t, "type", m.label("type"))
	assert.Equal(t, "Avg response time [ms]", m.label("granted_avg"))

	require.Len(t, m.Phases, 1)
	p := m.Phases[0]
	assert.Equal(t, []string{"granted_avg", "timeout_count"}, p.Metrics, "metrics default to the schema's")
	assert.Equal(t, []color.Color{color.NRGBA{0x34, 0x98, 0xdb, 0xff}, color.NRGBA{0xf1, 0xc4, 0x0f, 0xff}}, p.colors)

	require.Len(t, p.Charts, 2)
	c0, c1 := p.Charts[0], p.Charts[1]
	assert.Equal(t, "phase1.png", c0.Output)
	assert.Equal(t, "phase1-timeout_count.png", c1.Output)
	assert.Equal(t, benchpivot.Quantile, c0.stat)
	assert.Equal(t, benchpivot.Mean, c1.stat)
	assert.Equal(t, Transforms{benchpivot.Scale(0.001), benchpivot.Offset(1)}, c0.Transform)
	assert.Equal(t, Transforms{benchpivot.Invert(1)}, c1.Transform)
	assert.Equal(t, filepath.Join("/work", "evaluate-phase1.csv"), m.resolve(p.Inputs[0].Path))
	assert.Equal(t, "/abs.csv", m.resolve("/abs.csv"))
}

func TestParseErrors(t *testing.T) {
	const phase = `
phases:
  - name: phase1
    inputs: [{path: a.csv}]
    group_by: [count, type]
`
	for _, test := range []struct {
		name     string
		manifest string
		wantErr  string
	}{
		{"empty", "", "bench.yaml: empty manifest"},
		{"unknownField", baseSchema + phase + "    colours: [red]\n", "field colours not found"},
		{"noPhases", baseSchema, "bench.yaml: no phases"},
		{"noDims", "schema: {metrics: [{name: x}]}\n" + phase, "schema has no dimensions"},
		{"badKind", "schema: {dims: [{name: count, kind: float}]}\n" + phase, `column "count"`},
		{"reservedName", "schema: {dims: [{name: .x}]}\n" + phase, "reserved"},
		{"badOrder", baseSchema + "order: random\n" + phase, "random"},
		{"badQuantile", baseSchema + "quantile: 90\n" + phase, "quantile 90 not in (0, 1]"},
		{"nanQuantile", baseSchema + "quantile: .nan\n" + phase, "quantile NaN not in (0, 1]"},
		{"badComma", baseSchema + "comma: ab\n" + phase, "not a single character"},
		{"duplicatePhase", baseSchema + phase + `
  - name: phase1
    inputs: [{path: b.csv}]
    group_by: [count]
`, "phase phase1: declared more than once"},
		{"badPhaseName", baseSchema + strings.Replace(phase, "phase1", "a/b", 1), `invalid phase name "a/b"`},
		{"noInputs", baseSchema + `
phases:
  - {name: p, group_by: [count]}
`, "phase p: no inputs"},
		{"unlabeledInputs", baseSchema + `
phases:
  - {name: p, inputs: [{path: a.csv, label: a}, {path: b.csv}], group_by: [count]}
`, "several inputs need a label each"},
		{"duplicateLabels", baseSchema + `
phases:
  - {name: p, inputs: [{path: a.csv, label: a}, {path: b.csv, label: a}], group_by: [count]}
`, `input label "a" used more than once`},
		{"phaseDimSingleInput", baseSchema + `
phases:
  - {name: p, inputs: [{path: a.csv}], group_by: [count, .phase]}
`, `column ".phase": phase p: only available in phases with several inputs`},
		{"noGroupBy", baseSchema + `
phases:
  - {name: p, inputs: [{path: a.csv}]}
`, "group_by is empty"},
		{"unknownDim", baseSchema + `
phases:
  - {name: p, inputs: [{path: a.csv}], group_by: [mode]}
`, `column "mode": phase p: not a declared dimension`},
		{"unknownMetric", baseSchema + phase + "    metrics: [latency]\n", `column "latency": phase phase1: not a declared metric`},
		{"badColor", baseSchema + phase + "    colors: [blue]\n", `color "blue"`},
		{"chartMetric", baseSchema + phase + "    metrics: [granted_avg]\n    charts: [{metric: timeout_count}]\n", "chart metric is not aggregated"},
		{"duplicateKey", baseSchema + phase + "    group_by: [count]\n", "group_by"},
		{"seriesNotGrouped", baseSchema + `
phases:
  - {name: p, inputs: [{path: a.csv}], group_by: [count], charts: [{metric: granted_avg, series: type}]}
`, "series dimension is not in group_by"},
		{"quantileStat", baseSchema + phase + "    charts: [{metric: granted_avg, stat: quantile}]\n", "no quantile configured"},
		{"badStat", baseSchema + phase + "    charts: [{metric: granted_avg, stat: median}]\n", `unknown statistic "median"`},
		{"badClip", baseSchema + phase + "    charts: [{metric: granted_avg, clip: 90}]\n", "clip 90 not in (0, 1]"},
		{"nanClip", baseSchema + phase + "    charts: [{metric: granted_avg, clip: .nan}]\n", "clip NaN not in (0, 1]"},
		{"badTransform", baseSchema + phase + "    charts: [{metric: granted_avg, transform: {log: 2}}]\n", "unknown op"},
		{"badOutput", baseSchema + phase + "    charts: [{metric: granted_avg, output: chart.gif}]\n", "unsupported image format"},
		{"duplicateOutput", baseSchema + phase + "    charts: [{metric: granted_avg, output: x.png}, {metric: timeout_count, output: x.png}]\n", "output x.png is also written by phase1/granted_avg"},
		{"duplicateDefaultOutput", baseSchema + phase + "    charts: [{metric: granted_avg}]\n" + `
  - name: phase2
    inputs: [{path: b.csv}]
    group_by: [count]
    charts: [{metric: granted_avg, output: phase1.png}]
`, "output phase1.png is also written by phase1/granted_avg"},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.manifest), "bench.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.wantErr)
			var cerr *benchcsv.ConfigError
			assert.True(t, errors.As(err, &cerr), "got %T, want *benchcsv.ConfigError", err)
			assert.True(t, strings.HasPrefix(err.Error(), "bench.yaml: "), "error %q does not name the manifest", err)
		})
	}
}
