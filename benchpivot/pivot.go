// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchpivot reshapes aggregated benchmark rows into a
// two-dimensional matrix for comparison.
//
// One dimension of the aggregated rows (the series dimension) becomes
// the matrix columns, and the primary dimension becomes the matrix
// rows. Every primary value present in the input appears exactly
// once, and a (row, series) combination that was never observed is an
// explicit absent cell rather than a zero.
package benchpivot

import (
	"fmt"
	"io"
	"math"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
	"github.com/lldbench/benchreport/benchagg"
	"github.com/lldbench/benchreport/benchcsv"
)

// A Stat selects which aggregate statistic a Matrix holds.
type Stat int

const (
	Mean Stat = iota
	Quantile
)

// ParseStat parses a Stat name. The empty string is Mean.
func ParseStat(s string) (Stat, error) {
	switch s {
	case "", "mean":
		return Mean, nil
	case "quantile":
		return Quantile, nil
	}
	return 0, fmt.Errorf("unknown statistic %q (want mean or quantile)", s)
}

func (s Stat) String() string {
	switch s {
	case Mean:
		return "mean"
	case Quantile:
		return "quantile"
	}
	return fmt.Sprintf("Stat(%d)", int(s))
}

// A State is the presence state of a Cell.
type State int

const (
	// Present cells hold a value.
	Present State = iota
	// NoData cells correspond to a combination that was never
	// observed, or whose samples were all absent.
	NoData
	// Invalid cells had data, but a transform could not produce
	// a finite value from it.
	Invalid
)

func (s State) String() string {
	switch s {
	case Present:
		return "present"
	case NoData:
		return "no data"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// A Cell is one entry of a Matrix. Value is meaningful only if State
// is Present.
type Cell struct {
	Value float64
	State State
}

// A Matrix is a pivoted view of one statistic of one metric.
//
// A Matrix is immutable once constructed. Methods that derive a new
// Matrix return a copy.
type Matrix struct {
	// Metric is the metric the cells were taken from.
	Metric string
	Stat   Stat

	// RowDim is the primary dimension. Rows holds its distinct
	// values, in the order of the aggregated rows.
	RowDim string
	Rows   []interface{}

	// SeriesDim is the series dimension. Series holds its distinct
	// values, in the order of the aggregated rows. If SeriesDim is
	// "", there is a single series named after Metric.
	SeriesDim string
	Series    []interface{}

	// Cells is indexed by [row][series].
	Cells [][]Cell
}

// New pivots res on the series dimension, taking stat of metric as
// the cell values.
//
// The row dimension is the first dimension of res that is not the
// series dimension. Any further dimension must be constant across
// res, because otherwise distinct aggregated rows would fall into the
// same cell; New returns a *benchcsv.ConfigError in that case. If
// series is "", the matrix has a single series.
func New(res *benchagg.Result, metric string, stat Stat, series string) (*Matrix, error) {
	mi := res.MetricIndex(metric)
	if mi < 0 {
		return nil, &benchcsv.ConfigError{Column: metric, Msg: "metric was not aggregated"}
	}
	if stat == Quantile && res.Quantile == 0 {
		return nil, &benchcsv.ConfigError{Column: metric, Msg: "quantile chart requested, but no quantile was aggregated"}
	}
	si := -1
	if series != "" {
		if si = res.DimIndex(series); si < 0 {
			return nil, &benchcsv.ConfigError{Column: series, Msg: "series dimension is not a grouping dimension"}
		}
	}
	ri := -1
	for i := range res.Dims {
		if i != si {
			ri = i
			break
		}
	}
	if ri < 0 {
		return nil, &benchcsv.ConfigError{Column: series, Msg: "no primary dimension besides the series dimension"}
	}

	rows := res.Rows()
	for i, d := range res.Dims {
		if i == ri || i == si || len(rows) == 0 {
			continue
		}
		for _, row := range rows[1:] {
			if row.Key[i] != rows[0].Key[i] {
				return nil, &benchcsv.ConfigError{Column: d, Msg: fmt.Sprintf("varies (%v, %v) but is neither the primary nor the series dimension", rows[0].Key[i], row.Key[i])}
			}
		}
	}

	m := &Matrix{
		Metric:    metric,
		Stat:      stat,
		RowDim:    res.Dims[ri],
		SeriesDim: series,
	}
	rowIdx := make(map[interface{}]int)
	seriesIdx := make(map[interface{}]int)
	if si < 0 {
		m.Series = []interface{}{metric}
	}
	for _, row := range rows {
		rk := row.Key[ri]
		if _, ok := rowIdx[rk]; !ok {
			rowIdx[rk] = len(m.Rows)
			m.Rows = append(m.Rows, rk)
		}
		if si >= 0 {
			sk := row.Key[si]
			if _, ok := seriesIdx[sk]; !ok {
				seriesIdx[sk] = len(m.Series)
				m.Series = append(m.Series, sk)
			}
		}
	}

	m.Cells = make([][]Cell, len(m.Rows))
	for i := range m.Cells {
		m.Cells[i] = make([]Cell, len(m.Series))
		for j := range m.Cells[i] {
			m.Cells[i][j] = Cell{Value: math.NaN(), State: NoData}
		}
	}
	for _, row := range rows {
		v := row.Values[mi].Mean
		if stat == Quantile {
			v = row.Values[mi].Quantile
		}
		if math.IsNaN(v) {
			continue
		}
		j := 0
		if si >= 0 {
			j = seriesIdx[row.Key[si]]
		}
		m.Cells[rowIdx[row.Key[ri]]][j] = Cell{Value: v, State: Present}
	}
	return m, nil
}

// Cell returns the cell at row value r and series value s.
func (m *Matrix) Cell(r, s interface{}) (Cell, bool) {
	for i, rv := range m.Rows {
		if rv != r {
			continue
		}
		for j, sv := range m.Series {
			if sv == s {
				return m.Cells[i][j], true
			}
		}
	}
	return Cell{}, false
}

// RowNames returns the row values formatted as strings.
func (m *Matrix) RowNames() []string {
	return names(m.Rows)
}

// SeriesNames returns the series values formatted as strings.
func (m *Matrix) SeriesNames() []string {
	return names(m.Series)
}

func names(vs []interface{}) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = fmt.Sprint(v)
	}
	return out
}

// Present returns the values of all present cells, in row-major order.
func (m *Matrix) Present() []float64 {
	var xs []float64
	for _, row := range m.Cells {
		for _, c := range row {
			if c.State == Present {
				xs = append(xs, c.Value)
			}
		}
	}
	return xs
}

// Bound returns the q quantile of all present cells. It is used as a
// display bound for clipping and never changes m. If m has no
// present cells, Bound returns 0, false.
//
// Bound interpolates linearly between the closest ranks (method R7
// of Hyndman and Fan), unlike stats.Sample.Quantile, which uses R8
// and returns the maximum for small samples.
func (m *Matrix) Bound(q float64) (float64, bool) {
	xs := m.Present()
	if len(xs) == 0 {
		return 0, false
	}
	s := stats.Sample{Xs: xs}
	s.Sort()
	h := math.Max(0, q) * float64(len(xs)-1)
	k := int(h)
	if k >= len(xs)-1 {
		return xs[len(xs)-1], true
	}
	return xs[k] + (h-float64(k))*(xs[k+1]-xs[k]), true
}

// Max returns the largest present value of m, or 0, false if there
// are none.
func (m *Matrix) Max() (float64, bool) {
	xs := m.Present()
	if len(xs) == 0 {
		return 0, false
	}
	_, max := stats.Bounds(xs)
	return max, true
}

// A Warning reports an absent cell. It never stops processing.
type Warning struct {
	Metric    string
	RowDim    string
	Row       interface{}
	SeriesDim string
	Series    interface{}
	State     State
}

func (w *Warning) String() string {
	if w.SeriesDim == "" {
		return fmt.Sprintf("%s: %s at %s=%v", w.Metric, w.State, w.RowDim, w.Row)
	}
	return fmt.Sprintf("%s: %s for %s=%v at %s=%v", w.Metric, w.State, w.SeriesDim, w.Series, w.RowDim, w.Row)
}

// Warnings returns one Warning for each cell of m that is not
// Present, in row-major order.
func (m *Matrix) Warnings() []*Warning {
	var ws []*Warning
	for i, row := range m.Cells {
		for j, c := range row {
			if c.State == Present {
				continue
			}
			ws = append(ws, &Warning{
				Metric:    m.Metric,
				RowDim:    m.RowDim,
				Row:       m.Rows[i],
				SeriesDim: m.SeriesDim,
				Series:    m.Series[j],
				State:     c.State,
			})
		}
	}
	return ws
}

// Fprint writes m to w as an aligned text table with one line per
// row. NoData cells are written as "-" and Invalid cells as "?".
func (m *Matrix) Fprint(w io.Writer) error {
	var b table.Builder
	b.Add(m.RowDim, m.RowNames())
	for j, name := range m.SeriesNames() {
		col := make([]string, len(m.Rows))
		for i := range m.Rows {
			switch c := m.Cells[i][j]; c.State {
			case Present:
				col[i] = fmt.Sprintf("%.6g", c.Value)
			case NoData:
				col[i] = "-"
			default:
				col[i] = "?"
			}
		}
		b.Add(name, col)
	}
	return table.Fprint(w, b.Done())
}
