// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchagg

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/aclements/go-gg/table"
)

// Fprint writes r to w as an aligned text table, one line per row
// preceded by a header line. The output depends only on r.
func (r *Result) Fprint(w io.Writer) error {
	if r.Len() == 0 {
		_, err := io.WriteString(w, "(no rows)\n")
		return err
	}
	formats := make([]string, 0, len(r.Columns()))
	for range r.Dims {
		formats = append(formats, "%v")
	}
	for range r.Metrics {
		formats = append(formats, "%.6g")
		if r.Quantile != 0 {
			formats = append(formats, "%.6g")
		}
		formats = append(formats, "%d")
	}
	return table.Fprint(w, r.tab, formats...)
}

// WriteCSV writes r to w as CSV with a header row. Absent statistics
// are written as empty cells.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cols := r.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}
	rec := make([]string, 0, len(cols))
	for _, row := range r.rows {
		rec = rec[:0]
		for _, k := range row.Key {
			rec = append(rec, fmt.Sprint(k))
		}
		for _, v := range row.Values {
			rec = append(rec, formatFloat(v.Mean))
			if r.Quantile != 0 {
				rec = append(rec, formatFloat(v.Quantile))
			}
			rec = append(rec, strconv.Itoa(v.N))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
