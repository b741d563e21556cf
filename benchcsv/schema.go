// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchcsv reads the per-run measurement logs written by the
// load-testing harness.
//
// A log is a delimited text table with a header row. Each row is one
// observed sample: a few categorical dimension columns that identify
// the experiment configuration (for example, the number of concurrent
// clients and the request outcome type) and numeric columns holding
// measured quantities.
//
// Column access is driven by a Schema, which maps every column the
// caller cares about to its role and type. A Schema is validated once
// against the input header, so a missing column is reported before a
// single row is parsed.
package benchcsv

import (
	"fmt"
	"strings"
)

// A Kind is the value type of a dimension column.
type Kind int

const (
	// KindString dimensions hold arbitrary non-empty labels.
	KindString Kind = iota
	// KindInt dimensions hold base-10 integers, such as a
	// concurrency level. They sort numerically.
	KindInt
)

// ParseKind parses the name of a Kind, as used in manifests.
// The empty string is KindString.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "string", "str":
		return KindString, nil
	case "int", "integer":
		return KindInt, nil
	}
	return 0, fmt.Errorf("unknown dimension kind %q (want string or int)", s)
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// A Dim is a categorical column used to group samples.
type Dim struct {
	// Name is the column name in the header row.
	Name string
	// Kind is the type values in this column are parsed as.
	Kind Kind
	// Label is a human-readable description, used for chart
	// axes. If empty, Name is used.
	Label string
}

// A Metric is a numeric column aggregated by arithmetic mean.
type Metric struct {
	// Name is the column name in the header row.
	Name string
	// Label is a human-readable description, used for chart
	// axes. If empty, Name is used.
	Label string
	// ZeroIsMissing treats an exact zero as an absent sample.
	// The harness writes 0 for averages over zero requests.
	ZeroIsMissing bool
}

// DisplayName returns d.Label, or d.Name if there is no label.
func (d Dim) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

// DisplayName returns m.Label, or m.Name if there is no label.
func (m Metric) DisplayName() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Name
}

// A Schema describes the columns of a measurement log that a
// consumer reads. Columns in the input that are not named by the
// Schema are ignored.
type Schema struct {
	Dims    []Dim
	Metrics []Metric
}

// Validate checks that s names at least one dimension, that every
// column has a name, and that no column is named twice.
func (s *Schema) Validate() error {
	if len(s.Dims) == 0 {
		return &ConfigError{Msg: "schema has no dimensions"}
	}
	seen := make(map[string]bool)
	check := func(name string) error {
		if strings.TrimSpace(name) == "" {
			return &ConfigError{Msg: "schema column has an empty name"}
		}
		if seen[name] {
			return &ConfigError{Column: name, Msg: "declared more than once"}
		}
		seen[name] = true
		return nil
	}
	for _, d := range s.Dims {
		if err := check(d.Name); err != nil {
			return err
		}
	}
	for _, m := range s.Metrics {
		if err := check(m.Name); err != nil {
			return err
		}
	}
	return nil
}

// Dim returns the dimension named name.
func (s *Schema) Dim(name string) (Dim, bool) {
	for _, d := range s.Dims {
		if d.Name == name {
			return d, true
		}
	}
	return Dim{}, false
}

// Metric returns the metric named name.
func (s *Schema) Metric(name string) (Metric, bool) {
	for _, m := range s.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Project returns a Schema consisting of the named dimensions and
// metrics of s, in the given order. It returns a *ConfigError if any
// name is not declared in s.
func (s *Schema) Project(dims, metrics []string) (*Schema, error) {
	out := new(Schema)
	for _, name := range dims {
		d, ok := s.Dim(name)
		if !ok {
			return nil, &ConfigError{Column: name, Msg: "not a declared dimension"}
		}
		out.Dims = append(out.Dims, d)
	}
	for _, name := range metrics {
		m, ok := s.Metric(name)
		if !ok {
			return nil, &ConfigError{Column: name, Msg: "not a declared metric"}
		}
		out.Metrics = append(out.Metrics, m)
	}
	return out, nil
}

// Columns returns the names of all columns in s, dimensions first.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.Dims)+len(s.Metrics))
	for _, d := range s.Dims {
		cols = append(cols, d.Name)
	}
	for _, m := range s.Metrics {
		cols = append(cols, m.Name)
	}
	return cols
}
