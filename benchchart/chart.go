// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchchart renders pivoted benchmark aggregates as grouped
// bar charts.
//
// The x axis holds the matrix rows (the primary dimension) and each
// series is drawn as one colored bar per row. Absent cells leave a
// gap; they are never drawn as zero-height bars.
package benchchart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"

	"github.com/lldbench/benchreport/benchcsv"
	"github.com/lldbench/benchreport/benchpivot"
)

// Options controls chart rendering.
type Options struct {
	Title  string
	XLabel string
	YLabel string

	// Colors are the series colors, in series order. If empty,
	// a default palette is used. Otherwise there must be at least
	// one color per series.
	Colors []color.Color

	// Clip, if non-zero, adds a second panel whose y axis is
	// capped at the Clip quantile of the present cells, so that
	// small values stay readable next to outliers.
	Clip float64

	// Width and Height are the size of the whole image. If zero,
	// they are derived from the size of the matrix.
	Width, Height vg.Length

	// DPI is the resolution of raster formats. If zero, 150.
	DPI int
}

const barWidth = vg.Length(12)

// Format returns the image format for an output file name, derived
// from its extension.
func Format(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "png", "svg", "pdf", "jpg", "jpeg", "tif", "tiff":
		return ext, nil
	case "":
		return "", fmt.Errorf("%s: no image extension", path)
	}
	return "", fmt.Errorf("%s: unsupported image format %q", path, ext)
}

// Render draws m as a grouped bar chart in the given format.
//
// Render returns a *benchcsv.ConfigError if fewer colors than series
// are configured.
func Render(m *benchpivot.Matrix, opts Options, format string) (io.WriterTo, error) {
	if len(m.Rows) == 0 {
		return nil, errors.New("nothing to chart: no rows")
	}
	if len(opts.Colors) > 0 && len(opts.Colors) < len(m.Series) {
		return nil, &benchcsv.ConfigError{Column: m.SeriesDim, Msg: fmt.Sprintf("%d colors for %d series", len(opts.Colors), len(m.Series))}
	}

	panels, err := newPanels(m, opts)
	if err != nil {
		return nil, err
	}

	w, h := opts.Width, opts.Height
	if w == 0 {
		groups := len(m.Rows) * (len(m.Series) + 1)
		w = vg.Length(math.Max(12, 1+0.5*float64(groups))) * vg.Centimeter * vg.Length(len(panels))
	}
	if h == 0 {
		h = 10 * vg.Centimeter
	}
	dpi := opts.DPI
	if dpi == 0 {
		dpi = 150
	}

	var c vg.CanvasWriterTo
	if format == "png" {
		c = vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))}
	} else {
		c, err = draw.NewFormattedCanvas(w, h, format)
		if err != nil {
			return nil, err
		}
	}
	dc := draw.New(c)

	if len(panels) == 1 {
		panels[0].Draw(dc)
		return c, nil
	}
	plots := make([]*plot.Plot, len(panels))
	for i, p := range panels {
		plots[i] = p.Plot
	}
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(panels),
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, dc)
	for i, p := range plots {
		p.Draw(canvases[0][i])
	}
	return c, nil
}

// Write renders m to w. See Render.
func Write(w io.Writer, m *benchpivot.Matrix, opts Options, format string) error {
	wt, err := Render(m, opts, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// A panel is one plot of a chart, along with the bars drawn for each
// series.
type panel struct {
	*plot.Plot
	series []seriesBars
}

// seriesBars are the bars of one series, one bar chart per run of
// present cells.
type seriesBars struct {
	name  string
	color color.Color
	bars  []*plotter.BarChart
}

// newPanels returns the panels of m: the full chart and, if
// opts.Clip is set, the clipped one.
func newPanels(m *benchpivot.Matrix, opts Options) ([]*panel, error) {
	p, err := newPanel(m, opts)
	if err != nil {
		return nil, err
	}
	p.Title.Text = opts.Title
	panels := []*panel{p}

	if opts.Clip != 0 {
		cp, err := newPanel(m, opts)
		if err != nil {
			return nil, err
		}
		if bound, ok := m.Bound(opts.Clip); ok && bound > cp.Y.Min {
			cp.Y.Max = bound
		}
		if opts.Title != "" {
			cp.Title.Text = fmt.Sprintf("%s (%s percentile)", opts.Title, ordinal(opts.Clip*100))
		} else {
			cp.Title.Text = fmt.Sprintf("%s percentile", ordinal(opts.Clip*100))
		}
		panels = append(panels, cp)
	}
	return panels, nil
}

func newPanel(m *benchpivot.Matrix, opts Options) (*panel, error) {
	p := &panel{Plot: plot.New()}
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid)

	n := len(m.Series)
	for j, name := range m.SeriesNames() {
		sb := seriesBars{name: name, color: seriesColor(opts.Colors, j)}
		offset := -vg.Length(n-1)*barWidth/2 + vg.Length(j)*barWidth

		for _, run := range presentRuns(m, j) {
			bars, err := plotter.NewBarChart(run.values, barWidth)
			if err != nil {
				return nil, err
			}
			bars.XMin = float64(run.start)
			bars.Offset = offset
			bars.Color = sb.color
			bars.LineStyle.Width = vg.Points(0.5)
			p.Add(bars)
			sb.bars = append(sb.bars, bars)
		}

		// The legend entry exists even for a series with no
		// present cells.
		thumb, err := plotter.NewBarChart(plotter.Values{0}, barWidth)
		if err != nil {
			return nil, err
		}
		thumb.Color = sb.color
		p.Legend.Add(name, thumb)
		p.series = append(p.series, sb)
	}
	p.Legend.Top = true
	p.NominalX(m.RowNames()...)

	p.X.Min = -0.5
	p.X.Max = float64(len(m.Rows)) - 0.5
	if len(m.Present()) == 0 {
		p.Y.Min, p.Y.Max = 0, 1
	}
	return p, nil
}

type run struct {
	start  int
	values plotter.Values
}

// presentRuns splits series j of m into runs of consecutive present
// cells.
func presentRuns(m *benchpivot.Matrix, j int) []run {
	var runs []run
	var cur *run
	for i := range m.Rows {
		c := m.Cells[i][j]
		if c.State != benchpivot.Present {
			cur = nil
			continue
		}
		if cur == nil {
			runs = append(runs, run{start: i})
			cur = &runs[len(runs)-1]
		}
		cur.values = append(cur.values, c.Value)
	}
	return runs
}

// ordinal formats a percentile such as 90 as "90th".
func ordinal(x float64) string {
	x = math.Round(x*1e6) / 1e6
	s := fmt.Sprintf("%.4g", x)
	if strings.ContainsAny(s, ".e") || math.Trunc(x) != x {
		return s + "th"
	}
	n := int(x)
	switch {
	case n%100 >= 11 && n%100 <= 13:
		return s + "th"
	case n%10 == 1:
		return s + "st"
	case n%10 == 2:
		return s + "nd"
	case n%10 == 3:
		return s + "rd"
	}
	return s + "th"
}
