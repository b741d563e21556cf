// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db archives aggregated benchmark results in a SQL database.
//
// Each invocation of the reporter is a run, identified by a UUID.
// A run holds the aggregated rows of every phase that succeeded.
package db

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/lldbench/benchreport/benchagg"
)

// DB is a high-level interface to an archive database. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertRun       *sql.Stmt
	insertAggregate *sql.Stmt
	insertKey       *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Runs (
	RunID VARCHAR(36) PRIMARY KEY,
	Created BIGINT,
	Manifest VARCHAR(1024)
);
CREATE TABLE IF NOT EXISTS Aggregates (
	RunID VARCHAR(36),
	Phase VARCHAR(255),
	RowID BIGINT UNSIGNED,
	Metric VARCHAR(255),
	Mean DOUBLE,
	Quantile DOUBLE,
	N BIGINT UNSIGNED,
	PRIMARY KEY (RunID, Phase, RowID, Metric),
	FOREIGN KEY (RunID) REFERENCES Runs(RunID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS AggregateKeys (
	RunID VARCHAR(36),
	Phase VARCHAR(255),
	RowID BIGINT UNSIGNED,
	Position INT,
	Name VARCHAR(255),
	Value VARCHAR(1024),
	PRIMARY KEY (RunID, Phase, RowID, Position),
{{if not .sqlite3}}
	Index (Name(100), Value(100)),
{{end}}
	FOREIGN KEY (RunID) REFERENCES Runs(RunID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS AggregateKeysNameValue ON AggregateKeys(Name, Value);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.insertRun, err = db.sql.Prepare("INSERT INTO Runs(RunID, Created, Manifest) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertAggregate, err = db.sql.Prepare("INSERT INTO Aggregates(RunID, Phase, RowID, Metric, Mean, Quantile, N) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	db.insertKey, err = db.sql.Prepare("INSERT INTO AggregateKeys(RunID, Phase, RowID, Position, Name, Value) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	return nil
}

// A Run is one archived reporter invocation.
type Run struct {
	// ID is the run's UUID.
	ID string
	// Created is when the run started, truncated to seconds.
	Created time.Time

	db *DB
}

// NewRun records a new run. id must be unique; manifest is the path
// of the manifest that drove the run and is purely informational.
func (db *DB) NewRun(ctx context.Context, id, manifest string, created time.Time) (*Run, error) {
	created = created.Truncate(time.Second)
	if _, err := db.insertRun.ExecContext(ctx, id, created.Unix(), manifest); err != nil {
		return nil, err
	}
	return &Run{ID: id, Created: created, db: db}, nil
}

// InsertPhase archives the aggregated rows of one phase in a single
// transaction. Absent statistics are stored as NULL.
func (r *Run) InsertPhase(ctx context.Context, phase string, res *benchagg.Result) (err error) {
	tx, err := r.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	insertAggregate := tx.StmtContext(ctx, r.db.insertAggregate)
	insertKey := tx.StmtContext(ctx, r.db.insertKey)
	for i, row := range res.Rows() {
		for pos, k := range row.Key {
			if _, err := insertKey.ExecContext(ctx, r.ID, phase, i, pos, res.Dims[pos], fmt.Sprint(k)); err != nil {
				return err
			}
		}
		for j, v := range row.Values {
			if _, err := insertAggregate.ExecContext(ctx, r.ID, phase, i, res.Metrics[j], nullFloat(v.Mean), nullFloat(v.Quantile), v.N); err != nil {
				return err
			}
		}
	}
	return nil
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// CountRuns returns the number of archived runs.
func (db *DB) CountRuns(ctx context.Context) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM Runs").Scan(&n)
	return n, err
}

// DeleteRun removes a run and everything archived under it.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	_, err := db.sql.ExecContext(ctx, "DELETE FROM Runs WHERE RunID = ?", id)
	return err
}

// An Aggregate is one archived (row, metric) statistic.
type Aggregate struct {
	RowID  int
	Key    []string // dimension values, in grouping order
	Metric string
	// Mean and Quantile are invalid if the statistic was absent.
	Mean     sql.NullFloat64
	Quantile sql.NullFloat64
	N        int
}

// Aggregates returns the archived statistics of a phase of run id,
// ordered by row and metric.
func (db *DB) Aggregates(ctx context.Context, id, phase string) ([]*Aggregate, error) {
	keys := make(map[int][]string)
	rows, err := db.sql.QueryContext(ctx, "SELECT RowID, Value FROM AggregateKeys WHERE RunID = ? AND Phase = ? ORDER BY RowID, Position", id, phase)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var row int
		var value string
		if err := rows.Scan(&row, &value); err != nil {
			return nil, err
		}
		keys[row] = append(keys[row], value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.sql.QueryContext(ctx, "SELECT RowID, Metric, Mean, Quantile, N FROM Aggregates WHERE RunID = ? AND Phase = ? ORDER BY RowID, Metric", id, phase)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Aggregate
	for rows.Next() {
		a := new(Aggregate)
		if err := rows.Scan(&a.RowID, &a.Metric, &a.Mean, &a.Quantile, &a.N); err != nil {
			return nil, err
		}
		a.Key = keys[a.RowID]
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertRun, db.insertAggregate, db.insertKey} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
