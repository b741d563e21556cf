// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchagg groups measurement samples by a tuple of
// dimension values and summarizes each group.
//
// Every distinct key tuple present in the input produces exactly one
// output row. For each metric, a row carries the arithmetic mean of
// the group's samples, the number of samples, and optionally a
// quantile computed independently over the same raw samples. Absent
// samples (NaN) are excluded from a metric's statistics without
// affecting other metrics of the same row.
package benchagg

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
	"github.com/lldbench/benchreport/benchcsv"
)

// An Order is the policy for ordering aggregated rows.
type Order int

const (
	// FirstSeen orders rows by the first occurrence of their key
	// tuple in the input.
	FirstSeen Order = iota
	// Sorted orders rows by key tuple. Integer dimensions sort
	// numerically and string dimensions lexically.
	Sorted
)

// ParseOrder parses an Order name. The empty string is FirstSeen.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "first-seen", "natural":
		return FirstSeen, nil
	case "sorted":
		return Sorted, nil
	}
	return 0, fmt.Errorf("unknown order %q (want first-seen or sorted)", s)
}

func (o Order) String() string {
	switch o {
	case FirstSeen:
		return "first-seen"
	case Sorted:
		return "sorted"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// Config specifies an aggregation.
type Config struct {
	// Dims are the grouping dimensions, in key tuple order. Each
	// must be an []int or []string column.
	Dims []string

	// Metrics are the []float64 columns to summarize. If empty,
	// every []float64 column that is not in Dims is summarized.
	Metrics []string

	Order Order

	// Quantile, if non-zero, requests a per-group quantile of
	// every metric in addition to the mean. It must be in (0, 1].
	Quantile float64
}

// A Result is the set of aggregated rows for one input table.
type Result struct {
	Dims     []string
	Metrics  []string
	Quantile float64

	rows []Row
	tab  *table.Table
}

// A Row is one aggregated group.
type Row struct {
	// Key holds the group's dimension values, in Dims order. Each
	// value is an int or a string.
	Key []interface{}
	// Values holds the summary of each metric, in Metrics order.
	Values []Value
}

// A Value summarizes one metric over one group.
type Value struct {
	// Mean is the arithmetic mean of the non-absent samples, or
	// NaN if there are none.
	Mean float64
	// Quantile is the requested quantile of the non-absent
	// samples, or NaN if there are none or no quantile was
	// requested.
	Quantile float64
	// N is the number of non-absent samples.
	N int
}

// keyCol is the synthetic column holding each row's key index.
const keyCol = ".key"

// Aggregate groups t by cfg.Dims and summarizes cfg.Metrics.
//
// All columns are checked before any computation starts. A dimension
// or metric that is not a column of t is a *benchcsv.ConfigError; a
// column of the wrong type is a *benchcsv.FormatError.
func Aggregate(t *table.Table, cfg Config) (*Result, error) {
	metrics, err := checkColumns(t, &cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Dims:     append([]string(nil), cfg.Dims...),
		Metrics:  metrics,
		Quantile: cfg.Quantile,
	}
	if t.Len() == 0 {
		res.rows = []Row{}
		res.tab = res.emptyTable(t)
		return res, nil
	}

	if cfg.Order == Sorted {
		t = table.Flatten(table.SortBy(t, cfg.Dims...))
	}
	t = table.NewBuilder(t).Add(keyCol, keyIndex(t, cfg.Dims)).Done()

	aggs := []ggstat.Aggregator{aggMean(metrics), aggCount(metrics)}
	if cfg.Quantile != 0 {
		aggs = append(aggs, aggQuantile(cfg.Quantile, metrics))
	}
	g := ggstat.Agg(keyCol)(aggs...).F(t)
	agg := table.Flatten(g)

	// Keep only the key and statistic columns, in a fixed order.
	var nt table.Builder
	for _, col := range res.Columns() {
		nt.Add(col, agg.MustColumn(col))
	}
	res.tab = nt.Done()
	res.rows = res.buildRows()
	return res, nil
}

func checkColumns(t *table.Table, cfg *Config) ([]string, error) {
	if len(cfg.Dims) == 0 {
		return nil, &benchcsv.ConfigError{Msg: "no grouping dimensions"}
	}
	if cfg.Quantile < 0 || cfg.Quantile > 1 || math.IsNaN(cfg.Quantile) {
		return nil, &benchcsv.ConfigError{Msg: fmt.Sprintf("quantile %v not in (0, 1]", cfg.Quantile)}
	}
	isDim := make(map[string]bool)
	for _, d := range cfg.Dims {
		if isDim[d] {
			return nil, &benchcsv.ConfigError{Column: d, Msg: "grouped by more than once"}
		}
		isDim[d] = true
		switch col := t.Column(d); col.(type) {
		case nil:
			return nil, &benchcsv.ConfigError{Column: d, Msg: "grouping dimension not in input"}
		case []int, []string:
		default:
			return nil, &benchcsv.FormatError{Column: d, Err: fmt.Errorf("dimension has non-scalar type %T", col)}
		}
	}

	metrics := cfg.Metrics
	if len(metrics) == 0 {
		for _, c := range t.Columns() {
			if _, ok := t.Column(c).([]float64); ok && !isDim[c] && !strings.HasPrefix(c, ".") {
				metrics = append(metrics, c)
			}
		}
	}
	for _, m := range metrics {
		if isDim[m] {
			return nil, &benchcsv.ConfigError{Column: m, Msg: "used as both dimension and metric"}
		}
		switch col := t.Column(m); col.(type) {
		case nil:
			return nil, &benchcsv.ConfigError{Column: m, Msg: "metric not in input"}
		case []float64:
		default:
			return nil, &benchcsv.FormatError{Column: m, Err: fmt.Errorf("metric has non-numeric type %T", col)}
		}
	}
	return append([]string(nil), metrics...), nil
}

// keyIndex numbers the distinct tuples of dims in t in order of
// first occurrence and returns each row's tuple number.
//
// Each value is length-prefixed in the map key, so no two distinct
// tuples share an encoding.
func keyIndex(t *table.Table, dims []string) []int {
	cols := make([]reflect.Value, len(dims))
	for i, d := range dims {
		cols[i] = reflect.ValueOf(t.MustColumn(d))
	}
	index := make(map[string]int)
	keys := make([]int, t.Len())
	var buf strings.Builder
	for row := range keys {
		buf.Reset()
		for _, col := range cols {
			var v string
			switch x := col.Index(row).Interface().(type) {
			case int:
				v = strconv.Itoa(x)
			case string:
				v = x
			}
			buf.WriteString(strconv.Itoa(len(v)))
			buf.WriteByte(':')
			buf.WriteString(v)
		}
		k, ok := index[buf.String()]
		if !ok {
			k = len(index)
			index[buf.String()] = k
		}
		keys[row] = k
	}
	return keys
}

// Columns returns the column names of r.Table(): the dimensions
// followed by, for each metric, its mean, its quantile if requested,
// and its sample count.
func (r *Result) Columns() []string {
	cols := append([]string(nil), r.Dims...)
	for _, m := range r.Metrics {
		cols = append(cols, MeanColumn(m))
		if r.Quantile != 0 {
			cols = append(cols, QuantileColumn(r.Quantile, m))
		}
		cols = append(cols, CountColumn(m))
	}
	return cols
}

// MeanColumn returns the name of the column holding metric's mean.
func MeanColumn(metric string) string { return "mean " + metric }

// CountColumn returns the name of the column holding metric's sample
// count.
func CountColumn(metric string) string { return "n " + metric }

// QuantileColumn returns the name of the column holding the q
// quantile of metric. For example, the 0.9 quantile of "x" is "p90 x".
func QuantileColumn(q float64, metric string) string {
	return QuantileName(q) + " " + metric
}

// QuantileName returns the percentile name of q, such as "p90".
func QuantileName(q float64) string {
	return "p" + strconv.FormatFloat(q*100, 'g', 4, 64)
}

// Table returns the aggregated rows as a table. Its columns are
// given by r.Columns.
func (r *Result) Table() *table.Table {
	return r.tab
}

// Rows returns the aggregated rows in order.
func (r *Result) Rows() []Row {
	return r.rows
}

// Len returns the number of aggregated rows.
func (r *Result) Len() int {
	return len(r.rows)
}

// DimIndex returns the index of dimension name in r.Dims, or -1.
func (r *Result) DimIndex(name string) int {
	for i, d := range r.Dims {
		if d == name {
			return i
		}
	}
	return -1
}

// MetricIndex returns the index of metric name in r.Metrics, or -1.
func (r *Result) MetricIndex(name string) int {
	for i, m := range r.Metrics {
		if m == name {
			return i
		}
	}
	return -1
}

func (r *Result) buildRows() []Row {
	rows := make([]Row, r.tab.Len())
	dims := make([]reflect.Value, len(r.Dims))
	for i, d := range r.Dims {
		dims[i] = reflect.ValueOf(r.tab.MustColumn(d))
	}
	for i := range rows {
		row := Row{Key: make([]interface{}, len(dims)), Values: make([]Value, len(r.Metrics))}
		for j, col := range dims {
			row.Key[j] = col.Index(i).Interface()
		}
		rows[i] = row
	}
	for j, m := range r.Metrics {
		means := r.tab.MustColumn(MeanColumn(m)).([]float64)
		ns := r.tab.MustColumn(CountColumn(m)).([]int)
		for i := range rows {
			rows[i].Values[j] = Value{Mean: means[i], Quantile: math.NaN(), N: ns[i]}
		}
		if r.Quantile != 0 {
			qs := r.tab.MustColumn(QuantileColumn(r.Quantile, m)).([]float64)
			for i := range rows {
				rows[i].Values[j].Quantile = qs[i]
			}
		}
	}
	return rows
}

// emptyTable returns a zero-row table with r's columns, typed like
// the corresponding columns of t.
func (r *Result) emptyTable(t *table.Table) *table.Table {
	var nt table.Builder
	for _, d := range r.Dims {
		nt.Add(d, reflect.MakeSlice(reflect.TypeOf(t.Column(d)), 0, 0).Interface())
	}
	for _, m := range r.Metrics {
		nt.Add(MeanColumn(m), []float64{})
		if r.Quantile != 0 {
			nt.Add(QuantileColumn(r.Quantile, m), []float64{})
		}
		nt.Add(CountColumn(m), []int{})
	}
	return nt.Done()
}
