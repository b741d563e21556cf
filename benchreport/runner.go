// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchreport runs the phases of a benchmark report manifest.
//
// Each phase reads its measurement logs, aggregates them, and draws
// one chart per configured (metric, series) pair. Phases are
// independent: a phase that fails is recorded in the Report and the
// run moves on to the next one.
package benchreport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aclements/go-gg/table"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lldbench/benchreport/benchagg"
	"github.com/lldbench/benchreport/benchchart"
	"github.com/lldbench/benchreport/benchcsv"
	"github.com/lldbench/benchreport/benchpivot"
	"github.com/lldbench/benchreport/storage/db"
)

// Options controls a report run.
type Options struct {
	// Out overrides the output directory of the manifest.
	Out string

	// Logger receives per-phase progress, warnings, and errors.
	// If nil, logrus.StandardLogger() is used.
	Logger *logrus.Logger

	// Archive, if non-nil, receives the aggregated rows of every
	// phase that aggregates successfully.
	Archive *db.DB

	// HTML writes an index.html that links every artifact.
	HTML bool

	// DryRun runs every phase without writing any file.
	DryRun bool
}

// A Report is the outcome of a run.
type Report struct {
	// RunID identifies the run in the archive.
	RunID    string
	Manifest string
	Out      string
	Phases   []*PhaseReport
}

// Failed returns the phases that did not complete.
func (r *Report) Failed() []*PhaseReport {
	var failed []*PhaseReport
	for _, p := range r.Phases {
		if !p.OK() {
			failed = append(failed, p)
		}
	}
	return failed
}

// A PhaseReport is the outcome of one phase.
type PhaseReport struct {
	Name string
	// Rows is the number of aggregated rows.
	Rows int
	// Files are the dump files written, relative to the output
	// directory.
	Files  []string
	Charts []*ChartReport
	// Err is the error that stopped the phase before any chart was
	// drawn, if any.
	Err error
}

// OK reports whether the phase and all of its charts succeeded.
func (p *PhaseReport) OK() bool {
	if p.Err != nil {
		return false
	}
	for _, c := range p.Charts {
		if c.Err != nil {
			return false
		}
	}
	return true
}

// A ChartReport is the outcome of one chart.
type ChartReport struct {
	Metric string
	Output string
	// Warnings lists the absent cells of the chart. They do not
	// make the chart fail.
	Warnings []*benchpivot.Warning
	Err      error
}

// Run runs every phase of m in order.
//
// Errors confined to a phase, such as an unreadable input, are
// recorded in the phase's PhaseReport and do not stop the run. Run
// itself fails only if the run cannot start (for example, the output
// directory cannot be created) or ctx is canceled.
func Run(ctx context.Context, m *Manifest, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Report{
		RunID:    uuid.NewString(),
		Manifest: m.Path,
		Out:      opts.Out,
	}
	if r.Out == "" {
		r.Out = m.OutputDir()
	}
	if !opts.DryRun {
		if err := os.MkdirAll(r.Out, 0777); err != nil {
			return nil, err
		}
	}

	var run *db.Run
	if opts.Archive != nil && !opts.DryRun {
		var err error
		run, err = opts.Archive.NewRun(ctx, r.RunID, m.Path, time.Now())
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
	}

	rn := &runner{m: m, opts: opts, out: r.Out, run: run}
	for _, p := range m.Phases {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		plog := log.WithFields(logrus.Fields{"run": r.RunID, "phase": p.Name})
		pr := rn.phase(ctx, p, plog)
		r.Phases = append(r.Phases, pr)
		if pr.Err != nil {
			plog.WithError(pr.Err).Error("phase failed")
			continue
		}
		plog.WithField("rows", pr.Rows).Info("phase done")
	}

	if opts.HTML && !opts.DryRun {
		err := writeFile(filepath.Join(r.Out, "index.html"), func(w io.Writer) error {
			return writeIndex(w, r)
		})
		if err != nil {
			return r, fmt.Errorf("index: %w", err)
		}
	}
	return r, nil
}

type runner struct {
	m    *Manifest
	opts Options
	out  string
	run  *db.Run
}

func (rn *runner) phase(ctx context.Context, p *Phase, log *logrus.Entry) *PhaseReport {
	pr := &PhaseReport{Name: p.Name}
	res, err := Aggregate(rn.m, p)
	if err != nil {
		pr.Err = err
		return pr
	}
	pr.Rows = res.Len()

	if p.Dump {
		name := p.Name + "-grouped.txt"
		if err := rn.write(name, res.Fprint); err != nil {
			pr.Err = err
			return pr
		}
		pr.Files = append(pr.Files, name)
	}
	if p.CSV {
		name := p.Name + "-grouped.csv"
		if err := rn.write(name, res.WriteCSV); err != nil {
			pr.Err = err
			return pr
		}
		pr.Files = append(pr.Files, name)
	}
	if rn.run != nil {
		if err := rn.run.InsertPhase(ctx, p.Name, res); err != nil {
			pr.Err = fmt.Errorf("archive: %w", err)
			return pr
		}
	}

	for _, c := range p.Charts {
		clog := log.WithFields(logrus.Fields{"chart": c.Output, "metric": c.Metric})
		cr := rn.chart(p, c, res)
		for _, w := range cr.Warnings {
			clog.Warn(w.String())
		}
		if cr.Err != nil {
			clog.WithError(cr.Err).Error("chart failed")
		} else {
			clog.Debug("chart written")
		}
		pr.Charts = append(pr.Charts, cr)
	}
	return pr
}

func (rn *runner) chart(p *Phase, c *Chart, res *benchagg.Result) *ChartReport {
	cr := &ChartReport{Metric: c.Metric, Output: c.Output}
	mat, err := c.Matrix(res)
	if err != nil {
		cr.Err = err
		return cr
	}
	cr.Warnings = mat.Warnings()

	title := c.Title
	if title == "" {
		title = p.Name
	}
	opts := benchchart.Options{
		Title:  title,
		XLabel: rn.m.label(mat.RowDim),
		YLabel: rn.m.label(c.Metric),
		Colors: p.colors,
		Clip:   c.Clip,
	}
	format, err := benchchart.Format(c.Output)
	if err != nil {
		cr.Err = err
		return cr
	}
	img, err := benchchart.Render(mat, opts, format)
	if err != nil {
		cr.Err = err
		return cr
	}
	cr.Err = rn.write(c.Output, func(w io.Writer) error {
		_, err := img.WriteTo(w)
		return err
	})
	return cr
}

// Matrix pivots res as c configures and applies c's transforms.
func (c *Chart) Matrix(res *benchagg.Result) (*benchpivot.Matrix, error) {
	mat, err := benchpivot.New(res, c.Metric, c.stat, c.Series)
	if err != nil {
		return nil, err
	}
	return mat.Apply(c.Transform...), nil
}

// write writes the output file name using f, unless this is a dry
// run.
func (rn *runner) write(name string, f func(io.Writer) error) error {
	if rn.opts.DryRun {
		return f(io.Discard)
	}
	return writeFile(filepath.Join(rn.out, name), f)
}

// Aggregate reads the inputs of phase p and aggregates them as p
// configures.
//
// Inputs are read one at a time and each is closed before the next
// is opened. With several inputs, every row is tagged with its
// input's label in the PhaseDim dimension.
func Aggregate(m *Manifest, p *Phase) (*benchagg.Result, error) {
	s, err := m.schema.Project(p.dims(), p.Metrics)
	if err != nil {
		return nil, err
	}
	reader := &benchcsv.Reader{Comma: m.comma}

	var tabs []table.Grouping
	var t *table.Table
	for _, in := range p.Inputs {
		var err error
		t, err = reader.ReadFile(m.resolve(in.Path), s)
		if err != nil {
			return nil, err
		}
		if len(p.Inputs) > 1 {
			t = table.NewBuilder(t).AddConst(PhaseDim, in.Label).Done()
		}
		tabs = append(tabs, t)
	}
	if len(tabs) > 1 {
		t = table.Flatten(table.Concat(tabs...))
	}

	return benchagg.Aggregate(t, benchagg.Config{
		Dims:     p.GroupBy,
		Metrics:  p.Metrics,
		Order:    m.order,
		Quantile: m.Quantile,
	})
}

// writeFile writes path atomically: the content produced by f goes to
// a temporary file in the same directory, which replaces path only
// once f succeeds.
func writeFile(path string, f func(io.Writer) error) (err error) {
	var buf bytes.Buffer
	if err := f(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0666); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
