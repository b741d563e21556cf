// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchagg

import (
	"math"

	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
)

// aggMean returns an aggregator that computes the mean of the
// non-NaN values of each of cols into a "mean <col>" column.
func aggMean(cols []string) ggstat.Aggregator {
	return aggNonNull(cols, MeanColumn, stats.Mean)
}

// aggQuantile is like aggMean, but computes the q quantile.
func aggQuantile(q float64, cols []string) ggstat.Aggregator {
	name := func(col string) string { return QuantileColumn(q, col) }
	return aggNonNull(cols, name, func(xs []float64) float64 {
		return stats.Sample{Xs: xs}.Quantile(q)
	})
}

// aggCount returns an aggregator that counts the non-NaN values of
// each of cols into an "n <col>" column.
func aggCount(cols []string) ggstat.Aggregator {
	return func(input table.Grouping, b *table.Builder) {
		for _, col := range cols {
			ns := make([]int, 0, len(input.Tables()))
			for _, gid := range input.Tables() {
				n := 0
				for _, x := range input.Table(gid).MustColumn(col).([]float64) {
					if !math.IsNaN(x) {
						n++
					}
				}
				ns = append(ns, n)
			}
			b.Add(CountColumn(col), ns)
		}
	}
}

func aggNonNull(cols []string, name func(string) string, f func([]float64) float64) ggstat.Aggregator {
	return func(input table.Grouping, b *table.Builder) {
		var xs []float64
		for _, col := range cols {
			out := make([]float64, 0, len(input.Tables()))
			for _, gid := range input.Tables() {
				xs = xs[:0]
				for _, x := range input.Table(gid).MustColumn(col).([]float64) {
					if !math.IsNaN(x) {
						xs = append(xs, x)
					}
				}
				// Both stats.Mean and Sample.Quantile are NaN
				// for an empty sample.
				out = append(out, f(xs))
			}
			b.Add(name(col), out)
		}
	}
}
