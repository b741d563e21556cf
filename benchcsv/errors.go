// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchcsv

import "fmt"

// A ConfigError reports a mismatch between what a consumer asked
// for and what a schema or input declares: for example, a grouping
// dimension that is not a column of the input. It is detected before
// any computation starts.
type ConfigError struct {
	// FileName is the input the error was found in, if any.
	FileName string
	// Column is the offending column, if any.
	Column string
	Msg    string
}

func (e *ConfigError) Error() string {
	var prefix string
	if e.FileName != "" {
		prefix = e.FileName + ": "
	}
	if e.Column != "" {
		return fmt.Sprintf("%scolumn %q: %s", prefix, e.Column, e.Msg)
	}
	return prefix + e.Msg
}

// A FormatError reports an input that is missing, unreadable, or
// contains a value that cannot be parsed.
type FormatError struct {
	FileName string
	// Line is the 1-based line of the offending record, or 0 if
	// the error is not tied to a line.
	Line   int
	Column string
	Err    error
}

func (e *FormatError) Error() string {
	pos := e.FileName
	if pos == "" {
		pos = "<input>"
	}
	if e.Line > 0 {
		pos = fmt.Sprintf("%s:%d", pos, e.Line)
	}
	if e.Column != "" {
		return fmt.Sprintf("%s: column %q: %v", pos, e.Column, e.Err)
	}
	return fmt.Sprintf("%s: %v", pos, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
