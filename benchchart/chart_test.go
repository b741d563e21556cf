// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchchart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/lldbench/benchreport/benchcsv"
	"github.com/lldbench/benchreport/benchpivot"
)

func scenario() *benchpivot.Matrix {
	nan := math.NaN()
	return &benchpivot.Matrix{
		Metric:    "granted_avg",
		RowDim:    "count",
		Rows:      []interface{}{10, 20, 30},
		SeriesDim: "type",
		Series:    []interface{}{"granted", "rejected"},
		Cells: [][]benchpivot.Cell{
			{{Value: 5, State: benchpivot.Present}, {Value: 20, State: benchpivot.Present}},
			{{Value: 8, State: benchpivot.Present}, {Value: nan, State: benchpivot.NoData}},
			{{Value: nan, State: benchpivot.Invalid}, {Value: 400, State: benchpivot.Present}},
		},
	}
}

func render(t *testing.T, m *benchpivot.Matrix, opts Options, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, m, opts, format); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRenderPNG(t *testing.T) {
	opts := Options{
		Title:  "phase1",
		XLabel: "Number of concurrent clients",
		YLabel: "Avg response time [ms]",
		Colors: []color.Color{color.NRGBA{0x34, 0x98, 0xdb, 0xff}, color.NRGBA{0xf1, 0xc4, 0x0f, 0xff}},
		Width:  10 * vg.Centimeter,
		Height: 5 * vg.Centimeter,
		DPI:    96,
	}
	a := render(t, scenario(), opts, "png")
	b := render(t, scenario(), opts, "png")
	if !bytes.Equal(a, b) {
		t.Errorf("rendering the same matrix twice produced different images")
	}
	img, err := png.Decode(bytes.NewReader(a))
	if err != nil {
		t.Fatal(err)
	}
	// 10cm at 96 DPI.
	if got := img.Bounds().Dx(); got < 375 || got > 380 {
		t.Errorf("image width: got %d pixels, want about 378", got)
	}
}

func TestRenderClip(t *testing.T) {
	opts := Options{Clip: 0.9}
	img, err := png.Decode(bytes.NewReader(render(t, scenario(), opts, "png")))
	if err != nil {
		t.Fatal(err)
	}
	single, err := png.Decode(bytes.NewReader(render(t, scenario(), Options{}, "png")))
	if err != nil {
		t.Fatal(err)
	}
	if d := img.Bounds().Dx() - 2*single.Bounds().Dx(); d < -1 || d > 1 {
		t.Errorf("clipped chart width %d, want twice the single panel width %d", img.Bounds().Dx(), single.Bounds().Dx())
	}
}

func TestPanels(t *testing.T) {
	m := scenario()
	colors := []color.Color{color.NRGBA{0x34, 0x98, 0xdb, 0xff}, color.NRGBA{0xe6, 0x7e, 0x22, 0xff}}
	panels, err := newPanels(m, Options{Title: "phase1", Colors: colors, Clip: 0.9})
	if err != nil {
		t.Fatal(err)
	}
	if len(panels) != 2 {
		t.Fatalf("got %d panels, want 2", len(panels))
	}

	for k, p := range panels {
		var names, bars []string
		for j, s := range p.series {
			names = append(names, s.name)
			if s.color != colors[j] {
				t.Errorf("panel %d: series %s has color %v, want %v", k, s.name, s.color, colors[j])
			}
			for _, b := range s.bars {
				if b.Color != colors[j] {
					t.Errorf("panel %d: bar of series %s has color %v, want %v", k, s.name, b.Color, colors[j])
				}
				for i, v := range b.Values {
					bars = append(bars, fmt.Sprintf("%s@%d=%v", s.name, int(b.XMin)+i, v))
				}
			}
		}
		if want := m.SeriesNames(); !cmp.Equal(names, want) {
			t.Errorf("panel %d: legend %v, want %v", k, names, want)
		}
		// Absent cells (20, rejected) and (30, granted) have no bar.
		if want := []string{"granted@0=5", "granted@1=8", "rejected@0=20", "rejected@2=400"}; !cmp.Equal(bars, want) {
			t.Errorf("panel %d: bars %v, want %v", k, bars, want)
		}
	}

	full, clipped := panels[0], panels[1]
	if full.Y.Max != 400 {
		t.Errorf("full panel Y.Max = %v, want 400", full.Y.Max)
	}
	bound, _ := m.Bound(0.9)
	if bound >= 400 {
		t.Fatalf("Bound(0.9) = %v, want below the maximum", bound)
	}
	if clipped.Y.Max != bound {
		t.Errorf("clipped panel Y.Max = %v, want Bound(0.9) = %v", clipped.Y.Max, bound)
	}
	if full.Title.Text != "phase1" || clipped.Title.Text != "phase1 (90th percentile)" {
		t.Errorf("titles %q, %q", full.Title.Text, clipped.Title.Text)
	}
}

func TestPanelsDefaultPalette(t *testing.T) {
	panels, err := newPanels(scenario(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(panels) != 1 {
		t.Fatalf("got %d panels, want 1", len(panels))
	}
	for j, s := range panels[0].series {
		if want := plotutil.Color(j); s.color != want {
			t.Errorf("series %s has color %v, want %v", s.name, s.color, want)
		}
	}
}

func TestRenderSVG(t *testing.T) {
	out := string(render(t, scenario(), Options{Title: "phase1"}, "svg"))
	if !strings.HasPrefix(out, "<?xml") || !strings.Contains(out, "<svg") {
		t.Errorf("SVG output does not look like SVG: %.40q", out)
	}
	for _, label := range []string{"granted", "rejected", "10", "20", "30"} {
		if !strings.Contains(out, label) {
			t.Errorf("SVG output is missing label %q", label)
		}
	}
}

func TestRenderAllAbsent(t *testing.T) {
	m := &benchpivot.Matrix{
		RowDim: "count",
		Rows:   []interface{}{1},
		Series: []interface{}{"a"},
		Cells:  [][]benchpivot.Cell{{{Value: math.NaN(), State: benchpivot.NoData}}},
	}
	render(t, m, Options{Clip: 0.9}, "png")
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(scenario(), Options{Colors: []color.Color{color.Black}}, "png")
	var cerr *benchcsv.ConfigError
	if !errors.As(err, &cerr) {
		t.Errorf("too few colors: got %v, want *benchcsv.ConfigError", err)
	}
	if _, err := Render(scenario(), Options{}, "bmp"); err == nil {
		t.Errorf("unsupported format: got nil error")
	}
	if _, err := Render(&benchpivot.Matrix{}, Options{}, "png"); err == nil {
		t.Errorf("empty matrix: got nil error")
	}
}

func TestPresentRuns(t *testing.T) {
	m := scenario()
	var got [][]float64
	var starts []int
	for j := range m.Series {
		for _, r := range presentRuns(m, j) {
			starts = append(starts, r.start)
			got = append(got, r.values)
		}
	}
	if want := []int{0, 0, 2}; !cmp.Equal(starts, want) {
		t.Errorf("run starts: got %v, want %v", starts, want)
	}
	if want := [][]float64{{5, 8}, {20}, {400}}; !cmp.Equal(got, want) {
		t.Errorf("run values: got %v, want %v", got, want)
	}
}

func TestFormat(t *testing.T) {
	for in, want := range map[string]string{"out/phase1.png": "png", "a.SVG": "svg", "x.pdf": "pdf"} {
		if got, err := Format(in); err != nil || got != want {
			t.Errorf("Format(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{"phase1", "phase1.gif"} {
		if _, err := Format(in); err == nil {
			t.Errorf("Format(%q): got nil error", in)
		}
	}
}

func TestParseColor(t *testing.T) {
	for _, test := range []struct {
		in   string
		want color.NRGBA
	}{
		{"#3498db", color.NRGBA{0x34, 0x98, 0xdb, 0xff}},
		{"#E67E22", color.NRGBA{0xe6, 0x7e, 0x22, 0xff}},
		{"#20669480", color.NRGBA{0x20, 0x66, 0x94, 0x80}},
		{"#fff", color.NRGBA{0xff, 0xff, 0xff, 0xff}},
	} {
		got, err := ParseColor(test.in)
		if err != nil || got != test.want {
			t.Errorf("ParseColor(%q) = %v, %v; want %v", test.in, got, err, test.want)
		}
	}
	for _, in := range []string{"3498db", "#3498d", "#zzzzzz", "#", "blue"} {
		if _, err := ParseColor(in); err == nil {
			t.Errorf("ParseColor(%q): got nil error", in)
		}
	}
}

func TestOrdinal(t *testing.T) {
	for in, want := range map[float64]string{90: "90th", 0.91 * 100: "91st", 92: "92nd", 93: "93rd", 11: "11th", 99.5: "99.5th"} {
		if got := ordinal(in); got != want {
			t.Errorf("ordinal(%v) = %q, want %q", in, got, want)
		}
	}
}
