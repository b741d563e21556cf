// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lldbench/benchreport/benchreport"
	"github.com/lldbench/benchreport/storage/db"
	_ "github.com/lldbench/benchreport/storage/db/sqlite3"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitSetup  = 2
)

// An app is one invocation of the command line.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	log    *logrus.Logger

	// failed is set if any phase failed.
	failed bool
}

// run executes the command line args and returns the exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{v: viper.New(), stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "benchreport: %v\n", err)
		return exitSetup
	}
	if a.failed {
		return exitFailed
	}
	return exitOK
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "benchreport [manifest]",
		Short: "Aggregate load-test logs into tables and bar charts",
		Long: `benchreport reads the measurement logs named by a manifest, aggregates
them per phase, and draws one bar chart per configured chart.
Without a subcommand it behaves like "benchreport run".`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE:              a.runReport,
	}

	f := root.PersistentFlags()
	f.StringP("manifest", "m", "bench.yaml", "report `manifest`")
	f.String("config", "", "settings `file` (YAML, JSON, or TOML)")
	f.String("log-level", "info", "log `level` (debug, info, warn, error)")
	f.String("log-format", "text", "log `format` (text or json)")
	f.StringP("out", "o", "", "output `directory`, overriding the manifest")
	f.String("archive-driver", "", "archive results in a SQL database using `driver` (sqlite3 or mysql)")
	f.String("archive-dsn", "", "data source `name` of the archive database")
	f.Bool("html", false, "write an index.html linking every artifact")
	if err := a.v.BindPFlags(f); err != nil {
		panic(err)
	}
	a.v.SetEnvPrefix("BENCHREPORT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		&cobra.Command{
			Use:   "run [manifest]",
			Short: "Write every artifact of the manifest",
			Long:  "run aggregates every phase of the manifest and writes its dumps and charts.",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.runReport,
		},
		&cobra.Command{
			Use:   "validate [manifest]",
			Short: "Check the manifest and its inputs without writing anything",
			Long:  "validate runs every phase of the manifest in memory and prints one line per phase.",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.validate,
		},
		&cobra.Command{
			Use:   "dump [manifest]",
			Short: "Print the aggregated tables and pivots",
			Long:  "dump prints the aggregated table of every phase, followed by the pivot of each of its charts.",
			Args:  cobra.MaximumNArgs(1),
			RunE:  a.dump,
		},
	)
	return root
}

// setup reads the settings file and configures logging.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cfg := a.v.GetString("config"); cfg != "" {
		a.v.SetConfigFile(cfg)
		if err := a.v.ReadInConfig(); err != nil {
			return err
		}
	}

	a.log = logrus.New()
	a.log.SetOutput(a.stderr)
	level, err := logrus.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.log.SetLevel(level)
	switch format := a.v.GetString("log-format"); format {
	case "text":
		a.log.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	case "json":
		a.log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", format)
	}
	return nil
}

func (a *app) manifest(args []string) (*benchreport.Manifest, error) {
	path := a.v.GetString("manifest")
	if len(args) > 0 {
		path = args[0]
	}
	return benchreport.Load(path)
}

// openArchive opens the archive database, if one is configured.
func (a *app) openArchive() (*db.DB, error) {
	driver, dsn := a.v.GetString("archive-driver"), a.v.GetString("archive-dsn")
	if driver == "" {
		if dsn != "" {
			return nil, errors.New("archive-dsn set without archive-driver")
		}
		return nil, nil
	}
	switch driver {
	case "mysql":
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return nil, fmt.Errorf("archive: %v", err)
		}
	case "sqlite3":
		if dsn == "" {
			return nil, errors.New("archive: sqlite3 needs archive-dsn")
		}
	default:
		return nil, fmt.Errorf("archive: unsupported driver %q (want sqlite3 or mysql)", driver)
	}
	return db.OpenSQL(driver, dsn)
}

func (a *app) runReport(cmd *cobra.Command, args []string) error {
	m, err := a.manifest(args)
	if err != nil {
		return err
	}
	archive, err := a.openArchive()
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	r, err := benchreport.Run(cmd.Context(), m, benchreport.Options{
		Out:     a.v.GetString("out"),
		Logger:  a.log,
		Archive: archive,
		HTML:    a.v.GetBool("html"),
	})
	if err != nil {
		return err
	}
	if failed := r.Failed(); len(failed) > 0 {
		a.failed = true
		a.log.WithField("run", r.RunID).Errorf("%d of %d phases failed", len(failed), len(r.Phases))
	}
	return nil
}

func (a *app) validate(cmd *cobra.Command, args []string) error {
	m, err := a.manifest(args)
	if err != nil {
		return err
	}
	r, err := benchreport.Run(cmd.Context(), m, benchreport.Options{Logger: a.log, DryRun: true})
	if err != nil {
		return err
	}
	for _, p := range r.Phases {
		if p.Err != nil {
			a.failed = true
			fmt.Fprintf(a.stdout, "%s: FAIL: %v\n", p.Name, p.Err)
			continue
		}
		var warnings int
		for _, c := range p.Charts {
			warnings += len(c.Warnings)
			if c.Err != nil {
				a.failed = true
				fmt.Fprintf(a.stdout, "%s: %s: FAIL: %v\n", p.Name, c.Output, c.Err)
			}
		}
		fmt.Fprintf(a.stdout, "%s: rows=%d charts=%d absent=%d\n", p.Name, p.Rows, len(p.Charts), warnings)
	}
	return nil
}

func (a *app) dump(cmd *cobra.Command, args []string) error {
	m, err := a.manifest(args)
	if err != nil {
		return err
	}
	for i, p := range m.Phases {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(a.stdout)
		}
		fmt.Fprintf(a.stdout, "# %s\n", p.Name)
		res, err := benchreport.Aggregate(m, p)
		if err != nil {
			a.failed = true
			a.log.WithField("phase", p.Name).WithError(err).Error("phase failed")
			fmt.Fprintf(a.stdout, "FAIL: %v\n", err)
			continue
		}
		if err := res.Fprint(a.stdout); err != nil {
			return err
		}
		for _, c := range p.Charts {
			fmt.Fprintf(a.stdout, "\n## %s\n", c.Output)
			mat, err := c.Matrix(res)
			if err != nil {
				a.failed = true
				fmt.Fprintf(a.stdout, "FAIL: %v\n", err)
				continue
			}
			if err := mat.Fprint(a.stdout); err != nil {
				return err
			}
		}
	}
	return nil
}
