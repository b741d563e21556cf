// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchreport turns the measurement logs of a load-test harness into
// aggregated tables and bar charts.
//
// Usage:
//
//	benchreport [run] [flags] [manifest]
//	benchreport validate [flags] [manifest]
//	benchreport dump [flags] [manifest]
//
// The manifest (bench.yaml by default) describes the columns of the
// logs and the phases of the report. Each phase reads one or more
// delimited logs, groups their rows by the configured dimensions, and
// computes the mean (and optionally a quantile) of every metric per
// group. For each configured chart, one dimension of the result
// becomes the series of a grouped bar chart:
//
//	output: evaluate
//	schema:
//	  dims:
//	    - {name: count, kind: int, label: Number of concurrent clients}
//	    - {name: type, kind: string}
//	  metrics:
//	    - {name: granted_avg, label: "Avg response time [ms]", zero_is_missing: true}
//	phases:
//	  - name: phase1
//	    inputs: [{path: evaluate-phase1.csv}]
//	    group_by: [count, type]
//	    colors: ["#3498db", "#e67e22"]
//	    dump: true
//	    charts:
//	      - {metric: granted_avg, series: type, clip: 0.9}
//
// Phases are independent. A phase whose input is missing or malformed
// is reported and skipped, and the remaining phases still run.
//
// The run command (the default) writes every artifact to the output
// directory. The validate command runs every phase without writing
// anything and prints one line per phase. The dump command prints the
// aggregated table of every phase and the pivot of every chart.
//
// Every flag can also be set in the environment, as
// BENCHREPORT_<FLAG> with dashes replaced by underscores, or in a
// settings file named by -config.
//
// The exit status is 0 if every phase succeeded, 1 if any phase
// failed, and 2 if the manifest or the settings are invalid.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
