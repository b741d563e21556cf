// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dbtest

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/lldbench/benchreport/storage/db"
	_ "github.com/lldbench/benchreport/storage/db/sqlite3"
)

var mysqlDSN = flag.String("mysql", "", "connect to this MySQL database instead of a temporary SQLite file")

// NewDB makes a connection to a testing database, either a temporary
// sqlite3 file or MySQL depending on the -mysql flag. cleanup must be
// called when done with the testing database, instead of calling
// db.Close()
func NewDB(t *testing.T) (*db.DB, func()) {
	driverName, dataSourceName := "sqlite3", filepath.Join(t.TempDir(), "archive.db")
	if *mysqlDSN != "" {
		driverName, dataSourceName = "mysql", *mysqlDSN
	}
	d, err := db.OpenSQL(driverName, dataSourceName)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	cleanup := func() {
		d.Close()
	}
	// Make sure the database really is empty.
	runs, err := d.CountRuns(context.Background())
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	if runs != 0 {
		cleanup()
		t.Fatalf("found %d row(s) in Runs, want 0", runs)
	}
	return d, cleanup
}
