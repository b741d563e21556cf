// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchpivot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// An Op is a per-cell arithmetic operation.
type Op int

const (
	// OpScale multiplies by Arg.
	OpScale Op = iota
	// OpInvert computes Arg divided by the value, for example to
	// derive throughput from latency.
	OpInvert
	// OpOffset adds Arg.
	OpOffset
)

var opNames = []string{"scale", "invert", "offset"}

// A Transform is a pure function applied to each present cell.
// Because it depends only on the cell value, applying it to the
// aggregated values before pivoting gives the same matrix as applying
// it to the matrix.
type Transform struct {
	Op  Op
	Arg float64
}

func Scale(f float64) Transform  { return Transform{OpScale, f} }
func Invert(f float64) Transform { return Transform{OpInvert, f} }
func Offset(f float64) Transform { return Transform{OpOffset, f} }

// ParseTransform parses a transform of the form "op:arg", such as
// "scale:0.001" or "invert:1000".
func ParseTransform(s string) (Transform, error) {
	op, arg, ok := strings.Cut(s, ":")
	if !ok {
		return Transform{}, fmt.Errorf("transform %q: want op:arg", s)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Transform{}, fmt.Errorf("transform %q: bad argument %q", s, arg)
	}
	for i, name := range opNames {
		if strings.TrimSpace(op) == name {
			return Transform{Op(i), f}, nil
		}
	}
	return Transform{}, fmt.Errorf("transform %q: unknown op %q (want scale, invert, or offset)", s, op)
}

func (t Transform) String() string {
	name := fmt.Sprintf("Op(%d)", int(t.Op))
	if int(t.Op) < len(opNames) {
		name = opNames[t.Op]
	}
	return name + ":" + strconv.FormatFloat(t.Arg, 'g', -1, 64)
}

// Apply applies t to v. It returns false if the result is not a
// finite number.
func (t Transform) Apply(v float64) (float64, bool) {
	switch t.Op {
	case OpScale:
		v *= t.Arg
	case OpInvert:
		if v == 0 {
			return math.NaN(), false
		}
		v = t.Arg / v
	case OpOffset:
		v += t.Arg
	default:
		return math.NaN(), false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), false
	}
	return v, true
}

// ApplyAll applies ts to v in order. It stops and returns false at
// the first transform that fails.
func ApplyAll(v float64, ts ...Transform) (float64, bool) {
	for _, t := range ts {
		var ok bool
		if v, ok = t.Apply(v); !ok {
			return v, false
		}
	}
	return v, true
}

// Apply returns a copy of m with ts applied in order to every Present
// cell. A cell whose transformed value is not finite becomes Invalid.
// NoData and Invalid cells are unchanged.
func (m *Matrix) Apply(ts ...Transform) *Matrix {
	nm := *m
	nm.Cells = make([][]Cell, len(m.Cells))
	for i, row := range m.Cells {
		nm.Cells[i] = make([]Cell, len(row))
		for j, c := range row {
			if c.State == Present {
				if v, ok := ApplyAll(c.Value, ts...); ok {
					c.Value = v
				} else {
					c = Cell{Value: math.NaN(), State: Invalid}
				}
			}
			nm.Cells[i][j] = c
		}
	}
	return &nm
}
