// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchcsv

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/klauspost/compress/zstd"
)

var testSchema = &Schema{
	Dims: []Dim{
		{Name: "count", Kind: KindInt},
		{Name: "type", Kind: KindString},
	},
	Metrics: []Metric{
		{Name: "granted_avg"},
		{Name: "timeout_count"},
	},
}

const testLog = `type,count,granted_avg,rejected_avg,timeout_count
naive,2,5.5,1,0
batching,2,,2,1
naive,4,7,3,NaN
`

func TestRead(t *testing.T) {
	tab, err := new(Reader).Read(strings.NewReader(testLog), "log.csv", testSchema)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"count", "type", "granted_avg", "timeout_count"}; !cmp.Equal(tab.Columns(), want) {
		t.Errorf("columns: got %q, want %q", tab.Columns(), want)
	}
	if got, want := tab.Column("count"), []int{2, 2, 4}; !cmp.Equal(got, want) {
		t.Errorf("count: got %v, want %v", got, want)
	}
	if got, want := tab.Column("type"), []string{"naive", "batching", "naive"}; !cmp.Equal(got, want) {
		t.Errorf("type: got %v, want %v", got, want)
	}
	nan := math.NaN()
	if got, want := tab.Column("granted_avg"), []float64{5.5, nan, 7}; !cmp.Equal(got, want, cmpopts.EquateNaNs()) {
		t.Errorf("granted_avg: got %v, want %v", got, want)
	}
	if got, want := tab.Column("timeout_count"), []float64{0, 1, nan}; !cmp.Equal(got, want, cmpopts.EquateNaNs()) {
		t.Errorf("timeout_count: got %v, want %v", got, want)
	}
}

func TestReadZeroIsMissing(t *testing.T) {
	s := &Schema{
		Dims:    []Dim{{Name: "count", Kind: KindInt}},
		Metrics: []Metric{{Name: "timeout_count", ZeroIsMissing: true}},
	}
	tab, err := new(Reader).Read(strings.NewReader(testLog), "log.csv", s)
	if err != nil {
		t.Fatal(err)
	}
	got := tab.Column("timeout_count").([]float64)
	if !math.IsNaN(got[0]) || got[1] != 1 {
		t.Errorf("timeout_count: got %v, want [NaN 1 NaN]", got)
	}
}

func TestReadHeaderOnly(t *testing.T) {
	tab, err := new(Reader).Read(strings.NewReader("type,count,granted_avg,timeout_count\n"), "empty.csv", testSchema)
	if err != nil {
		t.Fatal(err)
	}
	if tab.Len() != 0 {
		t.Errorf("got %d rows, want 0", tab.Len())
	}
	if len(tab.Columns()) != 4 {
		t.Errorf("got columns %q, want 4 columns", tab.Columns())
	}
}

func TestReadComma(t *testing.T) {
	r := &Reader{Comma: ';'}
	tab, err := r.Read(strings.NewReader("count;type;granted_avg;timeout_count\n8;naive;1.5;0\n"), "log.csv", testSchema)
	if err != nil {
		t.Fatal(err)
	}
	if got := tab.Column("granted_avg").([]float64); got[0] != 1.5 {
		t.Errorf("granted_avg: got %v, want [1.5]", got)
	}
}

func TestReadErrors(t *testing.T) {
	for _, test := range []struct {
		name    string
		input   string
		config  bool
		wantErr string
	}{
		{"empty", "", false, "log.csv:1: missing header row"},
		{"missingColumn", "type,count,granted_avg\n", true, `log.csv: column "timeout_count": not present in input header`},
		{"missingColumns", "type,granted_avg\n", true, `log.csv: columns ["count" "timeout_count"] not present in input header`},
		{"badNumber", "type,count,granted_avg,timeout_count\nnaive,2,fast,0\n", false, `log.csv:2: column "granted_avg": "fast" is not a number`},
		{"infinity", "type,count,granted_avg,timeout_count\nnaive,2,+Inf,0\n", false, `log.csv:2: column "granted_avg": "+Inf" is not a finite number`},
		{"badInt", "type,count,granted_avg,timeout_count\nnaive,2,1,0\nnaive,two,1,0\n", false, `log.csv:3: column "count": "two" is not an integer`},
		{"emptyDim", "type,count,granted_avg,timeout_count\n,2,1,0\n", false, `log.csv:2: column "type": empty dimension value`},
		{"ragged", "type,count,granted_avg,timeout_count\nnaive,2,1\n", false, "log.csv:2: wrong number of fields"},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := new(Reader).Read(strings.NewReader(test.input), "log.csv", testSchema)
			if err == nil {
				t.Fatalf("got nil error, want %q", test.wantErr)
			}
			if err.Error() != test.wantErr {
				t.Errorf("got error %q, want %q", err, test.wantErr)
			}
			var cerr *ConfigError
			var ferr *FormatError
			if test.config && !errors.As(err, &cerr) {
				t.Errorf("got %T, want *ConfigError", err)
			}
			if !test.config && !errors.As(err, &ferr) {
				t.Errorf("got %T, want *FormatError", err)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "log.csv")
	if err := os.WriteFile(plain, []byte(testLog), 0666); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte(testLog)); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	compressed := filepath.Join(dir, "log.csv.zst")
	if err := os.WriteFile(compressed, buf.Bytes(), 0666); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, compressed} {
		tab, err := new(Reader).ReadFile(path, testSchema)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if tab.Len() != 3 {
			t.Errorf("%s: got %d rows, want 3", path, tab.Len())
		}
	}

	_, err = new(Reader).ReadFile(filepath.Join(dir, "missing.csv"), testSchema)
	var ferr *FormatError
	if !errors.As(err, &ferr) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v, want *FormatError wrapping os.ErrNotExist", err)
	}
}

func TestSchemaValidate(t *testing.T) {
	for _, test := range []struct {
		name    string
		schema  Schema
		wantErr string
	}{
		{"ok", *testSchema, ""},
		{"noDims", Schema{Metrics: []Metric{{Name: "x"}}}, "schema has no dimensions"},
		{"emptyName", Schema{Dims: []Dim{{Name: " "}}}, "schema column has an empty name"},
		{"duplicate", Schema{Dims: []Dim{{Name: "count"}}, Metrics: []Metric{{Name: "count"}}}, `column "count": declared more than once`},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := test.schema.Validate()
			var got string
			if err != nil {
				got = err.Error()
			}
			if got != test.wantErr {
				t.Errorf("got %q, want %q", got, test.wantErr)
			}
		})
	}
}

func TestSchemaProject(t *testing.T) {
	s, err := testSchema.Project([]string{"type"}, []string{"timeout_count"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := s.Columns(), []string{"type", "timeout_count"}; !cmp.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if _, err := testSchema.Project([]string{"mode"}, nil); err == nil {
		t.Errorf("projecting unknown dimension: got nil error")
	}
	if _, err := testSchema.Project(nil, []string{"count"}); err == nil {
		t.Errorf("projecting dimension as metric: got nil error")
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindString, "string": KindString, "int": KindInt, "Integer": KindInt} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("float"); err == nil {
		t.Errorf("ParseKind(float): got nil error")
	}
}
