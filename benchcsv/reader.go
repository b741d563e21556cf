// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/aclements/go-gg/table"
	"github.com/klauspost/compress/zstd"
)

// A Reader parses a measurement log into a table.Table.
//
// The returned table has one column per Schema column, in Schema
// order. KindString dimensions become []string columns, KindInt
// dimensions []int columns and metrics []float64 columns. Empty
// metric cells (and cells that read "NaN") are absent samples and
// are stored as NaN.
type Reader struct {
	// Comma is the field delimiter. If zero, ',' is used.
	Comma rune
}

// ReadFile reads the log at path. If path ends in ".zst", it is
// decompressed on the fly. Failure to open or decode the file is
// reported as a *FormatError.
func (r *Reader) ReadFile(path string, s *Schema) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{FileName: path, Err: err}
	}
	defer f.Close()

	var in io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, &FormatError{FileName: path, Err: err}
		}
		defer dec.Close()
		in = dec
	}
	return r.Read(in, path, s)
}

// Read reads a log from in. fileName is used in error messages; it
// is purely diagnostic.
//
// Before parsing any record, Read checks that every Schema column
// appears in the header and returns a *ConfigError naming the
// missing columns otherwise. Any malformed value aborts the read
// with a *FormatError: a benchmark report that silently drops
// samples is worse than one that fails.
func (r *Reader) Read(in io.Reader, fileName string, s *Schema) (*table.Table, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(in)
	if r.Comma != 0 {
		cr.Comma = r.Comma
	}
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &FormatError{FileName: fileName, Line: 1, Err: errors.New("missing header row")}
	} else if err != nil {
		return nil, csvError(fileName, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range s.Columns() {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	switch len(missing) {
	case 0:
	case 1:
		return nil, &ConfigError{FileName: fileName, Column: missing[0], Msg: "not present in input header"}
	default:
		return nil, &ConfigError{FileName: fileName, Msg: fmt.Sprintf("columns %q not present in input header", missing)}
	}

	cols := make([]column, 0, len(s.Dims)+len(s.Metrics))
	for _, d := range s.Dims {
		cols = append(cols, newDimColumn(d, index[d.Name]))
	}
	for _, m := range s.Metrics {
		cols = append(cols, &metricColumn{m: m, idx: index[m.Name]})
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, csvError(fileName, err)
		}
		for _, c := range cols {
			if err := c.parse(rec[c.index()]); err != nil {
				line, _ := cr.FieldPos(c.index())
				return nil, &FormatError{FileName: fileName, Line: line, Column: c.name(), Err: err}
			}
		}
	}

	var b table.Builder
	for _, c := range cols {
		b.Add(c.name(), c.data())
	}
	return b.Done(), nil
}

func csvError(fileName string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &FormatError{FileName: fileName, Line: perr.Line, Err: perr.Err}
	}
	return &FormatError{FileName: fileName, Err: err}
}

// A column accumulates the parsed values of one input column.
type column interface {
	name() string
	index() int
	parse(field string) error
	data() table.Slice
}

func newDimColumn(d Dim, idx int) column {
	if d.Kind == KindInt {
		return &intColumn{d: d, idx: idx, vals: []int{}}
	}
	return &stringColumn{d: d, idx: idx, vals: []string{}}
}

type stringColumn struct {
	d    Dim
	idx  int
	vals []string
}

func (c *stringColumn) name() string      { return c.d.Name }
func (c *stringColumn) index() int        { return c.idx }
func (c *stringColumn) data() table.Slice { return c.vals }

func (c *stringColumn) parse(field string) error {
	field = strings.TrimSpace(field)
	if field == "" {
		return errors.New("empty dimension value")
	}
	c.vals = append(c.vals, field)
	return nil
}

type intColumn struct {
	d    Dim
	idx  int
	vals []int
}

func (c *intColumn) name() string      { return c.d.Name }
func (c *intColumn) index() int        { return c.idx }
func (c *intColumn) data() table.Slice { return c.vals }

func (c *intColumn) parse(field string) error {
	field = strings.TrimSpace(field)
	if field == "" {
		return errors.New("empty dimension value")
	}
	v, err := strconv.Atoi(field)
	if err != nil {
		return fmt.Errorf("%q is not an integer", field)
	}
	c.vals = append(c.vals, v)
	return nil
}

type metricColumn struct {
	m    Metric
	idx  int
	vals []float64
}

func (c *metricColumn) name() string { return c.m.Name }
func (c *metricColumn) index() int   { return c.idx }

func (c *metricColumn) data() table.Slice {
	if c.vals == nil {
		return []float64{}
	}
	return c.vals
}

func (c *metricColumn) parse(field string) error {
	v, err := ParseValue(field)
	if err != nil {
		return err
	}
	if c.m.ZeroIsMissing && v == 0 {
		v = math.NaN()
	}
	c.vals = append(c.vals, v)
	return nil
}

// ParseValue parses a metric cell. An empty cell or "NaN" is an
// absent sample and yields NaN. Infinities are rejected.
func ParseValue(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", field)
	}
	if math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", field)
	}
	return v, nil
}
