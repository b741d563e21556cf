// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchreport

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/lldbench/benchreport/benchagg"
	"github.com/lldbench/benchreport/benchchart"
	"github.com/lldbench/benchreport/benchcsv"
	"github.com/lldbench/benchreport/benchpivot"
)

// PhaseDim is the synthetic dimension that holds the input label of
// each row in a phase with several inputs.
const PhaseDim = ".phase"

// A Manifest describes every phase of a report run. It is decoded
// once by Load and is not modified afterwards.
type Manifest struct {
	// Path is the file the manifest was loaded from. Relative
	// input and output paths are resolved against its directory.
	Path string `yaml:"-"`

	Output   string       `yaml:"output"`
	Comma    string       `yaml:"comma"`
	Schema   SchemaConfig `yaml:"schema"`
	Order    string       `yaml:"order"`
	Quantile float64      `yaml:"quantile"`
	Phases   []*Phase     `yaml:"phases"`

	schema *benchcsv.Schema
	order  benchagg.Order
	comma  rune
}

type SchemaConfig struct {
	Dims    []DimConfig    `yaml:"dims"`
	Metrics []MetricConfig `yaml:"metrics"`
}

type DimConfig struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Label string `yaml:"label"`
}

type MetricConfig struct {
	Name          string `yaml:"name"`
	Label         string `yaml:"label"`
	ZeroIsMissing bool   `yaml:"zero_is_missing"`
}

// A Phase is one independent unit of work: a set of inputs that are
// aggregated together and the charts drawn from the result.
type Phase struct {
	Name    string   `yaml:"name"`
	Inputs  []Input  `yaml:"inputs"`
	GroupBy []string `yaml:"group_by"`
	// Metrics are the metrics to aggregate. If empty, every
	// metric of the schema is aggregated.
	Metrics []string `yaml:"metrics"`
	Colors  []string `yaml:"colors"`
	// Dump writes the aggregated table as text to
	// <name>-grouped.txt.
	Dump bool `yaml:"dump"`
	// CSV writes the aggregated table to <name>-grouped.csv.
	CSV    bool     `yaml:"csv"`
	Charts []*Chart `yaml:"charts"`

	colors []color.Color
}

type Input struct {
	Path string `yaml:"path"`
	// Label identifies the input in the PhaseDim dimension. It is
	// required when a phase has more than one input.
	Label string `yaml:"label"`
}

// A Chart is one bar chart of a phase.
type Chart struct {
	Metric    string     `yaml:"metric"`
	Series    string     `yaml:"series"`
	Stat      string     `yaml:"stat"`
	Transform Transforms `yaml:"transform"`
	Clip      float64    `yaml:"clip"`
	Output    string     `yaml:"output"`
	Title     string     `yaml:"title"`

	stat benchpivot.Stat
}

// Transforms is a list of per-cell transforms. In YAML it is either
// a mapping such as {scale: 0.001}, applied in key order, or a
// sequence of "op:arg" strings.
type Transforms []benchpivot.Transform

func (ts *Transforms) UnmarshalYAML(n *yaml.Node) error {
	var specs []string
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			specs = append(specs, n.Content[i].Value+":"+n.Content[i+1].Value)
		}
	case yaml.SequenceNode:
		if err := n.Decode(&specs); err != nil {
			return err
		}
	case yaml.ScalarNode:
		if n.Value != "" {
			specs = []string{n.Value}
		}
	default:
		return fmt.Errorf("line %d: transform must be a mapping or a list", n.Line)
	}
	*ts = nil
	for _, s := range specs {
		t, err := benchpivot.ParseTransform(s)
		if err != nil {
			return fmt.Errorf("line %d: %v", n.Line, err)
		}
		*ts = append(*ts, t)
	}
	return nil
}

// Load reads and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse decodes and validates a manifest. path is the file the data
// was read from. Unknown fields are an error.
//
// Every error Parse returns is a *benchcsv.ConfigError: a manifest
// that is wrong anywhere is rejected before any phase runs.
func Parse(data []byte, path string) (*Manifest, error) {
	m := new(Manifest)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &benchcsv.ConfigError{FileName: path, Msg: "empty manifest"}
		}
		return nil, &benchcsv.ConfigError{FileName: path, Msg: err.Error()}
	}
	m.Path = path
	if err := m.validate(); err != nil {
		var cerr *benchcsv.ConfigError
		if errors.As(err, &cerr) && cerr.FileName == "" {
			cerr.FileName = path
		}
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	s := new(benchcsv.Schema)
	for _, d := range m.Schema.Dims {
		kind, err := benchcsv.ParseKind(d.Kind)
		if err != nil {
			return &benchcsv.ConfigError{Column: d.Name, Msg: err.Error()}
		}
		s.Dims = append(s.Dims, benchcsv.Dim{Name: d.Name, Kind: kind, Label: d.Label})
	}
	for _, mc := range m.Schema.Metrics {
		s.Metrics = append(s.Metrics, benchcsv.Metric{Name: mc.Name, Label: mc.Label, ZeroIsMissing: mc.ZeroIsMissing})
	}
	if err := s.Validate(); err != nil {
		return err
	}
	for _, col := range s.Columns() {
		if strings.HasPrefix(col, ".") {
			return &benchcsv.ConfigError{Column: col, Msg: "column names starting with '.' are reserved"}
		}
	}
	m.schema = s

	var err error
	if m.order, err = benchagg.ParseOrder(m.Order); err != nil {
		return &benchcsv.ConfigError{Msg: err.Error()}
	}
	if m.Quantile < 0 || m.Quantile > 1 || math.IsNaN(m.Quantile) {
		return &benchcsv.ConfigError{Msg: fmt.Sprintf("quantile %v not in (0, 1]", m.Quantile)}
	}
	switch utf8.RuneCountInString(m.Comma) {
	case 0:
		m.comma = ','
	case 1:
		m.comma, _ = utf8.DecodeRuneInString(m.Comma)
		if m.comma == '"' || m.comma == '\n' || m.comma == '\r' || m.comma == utf8.RuneError {
			return &benchcsv.ConfigError{Msg: fmt.Sprintf("invalid delimiter %q", m.Comma)}
		}
	default:
		return &benchcsv.ConfigError{Msg: fmt.Sprintf("delimiter %q is not a single character", m.Comma)}
	}

	if len(m.Phases) == 0 {
		return &benchcsv.ConfigError{Msg: "no phases"}
	}
	phases := make(map[string]bool)
	outputs := make(map[string]string)
	for _, p := range m.Phases {
		if p == nil {
			return &benchcsv.ConfigError{Msg: "empty phase"}
		}
		if p.Name == "" || strings.ContainsAny(p.Name, `/\`) || p.Name == "." || p.Name == ".." {
			return &benchcsv.ConfigError{Msg: fmt.Sprintf("invalid phase name %q", p.Name)}
		}
		if phases[p.Name] {
			return &benchcsv.ConfigError{Msg: fmt.Sprintf("phase %s: declared more than once", p.Name)}
		}
		phases[p.Name] = true
		if err := m.validatePhase(p, outputs); err != nil {
			var cerr *benchcsv.ConfigError
			if errors.As(err, &cerr) {
				cerr.Msg = "phase " + p.Name + ": " + cerr.Msg
			}
			return err
		}
	}
	return nil
}

func (m *Manifest) validatePhase(p *Phase, outputs map[string]string) error {
	if len(p.Inputs) == 0 {
		return &benchcsv.ConfigError{Msg: "no inputs"}
	}
	labels := make(map[string]bool)
	for _, in := range p.Inputs {
		if in.Path == "" {
			return &benchcsv.ConfigError{Msg: "input has no path"}
		}
		if len(p.Inputs) == 1 {
			continue
		}
		if in.Label == "" {
			return &benchcsv.ConfigError{Msg: fmt.Sprintf("input %s: several inputs need a label each", in.Path)}
		}
		if labels[in.Label] {
			return &benchcsv.ConfigError{Msg: fmt.Sprintf("input label %q used more than once", in.Label)}
		}
		labels[in.Label] = true
	}

	if len(p.GroupBy) == 0 {
		return &benchcsv.ConfigError{Msg: "group_by is empty"}
	}
	seen := make(map[string]bool)
	for _, d := range p.GroupBy {
		if seen[d] {
			return &benchcsv.ConfigError{Column: d, Msg: "grouped by more than once"}
		}
		seen[d] = true
		if d == PhaseDim {
			if len(p.Inputs) < 2 {
				return &benchcsv.ConfigError{Column: d, Msg: "only available in phases with several inputs"}
			}
			continue
		}
		if _, ok := m.schema.Dim(d); !ok {
			return &benchcsv.ConfigError{Column: d, Msg: "not a declared dimension"}
		}
	}
	if len(p.Metrics) == 0 {
		for _, mc := range m.schema.Metrics {
			p.Metrics = append(p.Metrics, mc.Name)
		}
	}
	if len(p.Metrics) == 0 {
		return &benchcsv.ConfigError{Msg: "no metrics"}
	}
	if _, err := m.schema.Project(p.dims(), p.Metrics); err != nil {
		return err
	}

	var err error
	if p.colors, err = benchchart.ParseColors(p.Colors); err != nil {
		return &benchcsv.ConfigError{Msg: err.Error()}
	}

	for i, c := range p.Charts {
		if c == nil {
			return &benchcsv.ConfigError{Msg: fmt.Sprintf("chart %d is empty", i)}
		}
		if !contains(p.Metrics, c.Metric) {
			return &benchcsv.ConfigError{Column: c.Metric, Msg: "chart metric is not aggregated"}
		}
		if c.Series != "" && !seen[c.Series] {
			return &benchcsv.ConfigError{Column: c.Series, Msg: "series dimension is not in group_by"}
		}
		if c.stat, err = benchpivot.ParseStat(c.Stat); err != nil {
			return &benchcsv.ConfigError{Column: c.Metric, Msg: err.Error()}
		}
		if c.stat == benchpivot.Quantile && m.Quantile == 0 {
			return &benchcsv.ConfigError{Column: c.Metric, Msg: "quantile chart, but no quantile configured"}
		}
		if c.Clip < 0 || c.Clip > 1 || math.IsNaN(c.Clip) {
			return &benchcsv.ConfigError{Column: c.Metric, Msg: fmt.Sprintf("clip %v not in (0, 1]", c.Clip)}
		}
		if c.Output == "" {
			c.Output = p.Name + ".png"
			if i > 0 {
				c.Output = p.Name + "-" + c.Metric + ".png"
			}
		}
		if _, err := benchchart.Format(c.Output); err != nil {
			return &benchcsv.ConfigError{Msg: err.Error()}
		}
		key := filepath.Clean(c.Output)
		if prev, ok := outputs[key]; ok {
			return &benchcsv.ConfigError{Msg: fmt.Sprintf("output %s is also written by %s", c.Output, prev)}
		}
		outputs[key] = p.Name + "/" + c.Metric
	}
	for _, name := range p.dumpFiles() {
		if prev, ok := outputs[name]; ok {
			return &benchcsv.ConfigError{Msg: fmt.Sprintf("output %s is also written by %s", name, prev)}
		}
		outputs[name] = p.Name
	}
	return nil
}

// dims returns the schema dimensions p groups by, without PhaseDim.
func (p *Phase) dims() []string {
	var dims []string
	for _, d := range p.GroupBy {
		if d != PhaseDim {
			dims = append(dims, d)
		}
	}
	return dims
}

func (p *Phase) dumpFiles() []string {
	var names []string
	if p.Dump {
		names = append(names, p.Name+"-grouped.txt")
	}
	if p.CSV {
		names = append(names, p.Name+"-grouped.csv")
	}
	return names
}

// Dir returns the directory relative paths in m are resolved against.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

func (m *Manifest) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir(), path)
}

// OutputDir returns the resolved output directory of m.
func (m *Manifest) OutputDir() string {
	return m.resolve(m.Output)
}

// label returns the display label of dimension or metric col.
func (m *Manifest) label(col string) string {
	if col == PhaseDim {
		return "phase"
	}
	if d, ok := m.schema.Dim(col); ok {
		return d.DisplayName()
	}
	if mt, ok := m.schema.Metric(col); ok {
		return mt.DisplayName()
	}
	return col
}

func contains(xs []string, x string) bool {
	for _, y := range xs {
		if x == y {
			return true
		}
	}
	return false
}
