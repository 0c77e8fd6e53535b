// Package testutil builds synthetic kismet log files for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/schema"
)

// Log is a kismet log under construction in a test's temp dir.
type Log struct {
	t    testing.TB
	Path string
	db   *sqlx.DB
}

// NewLog creates a log with a KISMET row for version and every
// registered table laid out the way that version stores it. Columns are
// untyped.
func NewLog(t testing.TB, version int) *Log {
	t.Helper()
	return newLog(t, version, false)
}

// NewTypedLog is NewLog with the column types kismet declares, so values
// come back from the driver as INTEGER, REAL, TEXT or BLOB.
func NewTypedLog(t testing.TB, version int) *Log {
	t.Helper()
	return newLog(t, version, true)
}

func newLog(t testing.TB, version int, typed bool) *Log {
	t.Helper()
	l := Empty(t)
	l.CreateTable(schema.TableKismet, "kismet_version", "db_version", "db_module")
	l.Insert(schema.TableKismet, map[string]any{
		"kismet_version": "2019.05.R2",
		"db_version":     version,
		"db_module":      "kismetlog",
	})
	for _, name := range schema.Tables() {
		if name == schema.TableKismet {
			continue
		}
		d, _ := schema.Lookup(name)
		cols, ok := d.Versions[version]
		if !ok {
			t.Fatalf("no %s layout for version %d", name, version)
		}
		if typed {
			cols = declare(d, version, cols)
		}
		l.CreateTable(name, cols...)
	}
	return l
}

var (
	intColumns = []string{
		"ts_sec", "ts_usec", "first_time", "last_time", "strongest_signal",
		"bytes_data", "packet_len", "signal", "dlt", "error",
	}
	realColumns = []string{
		"frequency", "lat", "lon", "alt", "speed", "heading",
		"min_lat", "min_lon", "max_lat", "max_lon", "avg_lat", "avg_lon",
	}
	blobColumns = []string{"device", "packet", "json"}
)

// declare appends kismet's declared type to each column. Coordinates
// stored in fixed point are INT.
func declare(d *schema.Descriptor, version int, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		typ := "TEXT"
		switch {
		case d.Converters[version][c] == convert.LatLon:
			typ = "INT"
		case slices.Contains(intColumns, c):
			typ = "INT"
		case slices.Contains(realColumns, c):
			typ = "REAL"
		case slices.Contains(blobColumns, c):
			typ = "BLOB"
		}
		out[i] = c + " " + typ
	}
	return out
}

// Empty creates a SQLite file with no tables.
func Empty(t testing.TB) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.kismet")
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		t.Fatalf("create log: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Log{t: t, Path: path, db: db}
}

// NotADatabase writes a file that is not SQLite and returns its path.
func NotADatabase(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "garbage.kismet")
	data := []byte(strings.Repeat("this is not a sqlite database\n", 64))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return path
}

// CreateTable creates (or replaces) a table. Each column is a name,
// optionally followed by its declared type.
func (l *Log) CreateTable(name string, cols ...string) {
	l.t.Helper()
	l.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", name))
	l.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(cols, ", ")))
}

// Insert adds one row. Columns missing from values are stored as NULL.
func (l *Log) Insert(table string, values map[string]any) {
	l.t.Helper()
	cols := make([]string, 0, len(values))
	refs := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
		refs = append(refs, ":"+c)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(refs, ", "))
	if _, err := l.db.NamedExec(stmt, values); err != nil {
		l.t.Fatalf("insert into %s: %v", table, err)
	}
}

// Exec runs a statement against the log.
func (l *Log) Exec(stmt string, args ...any) {
	l.t.Helper()
	if _, err := l.db.Exec(stmt, args...); err != nil {
		l.t.Fatalf("exec %q: %v", stmt, err)
	}
}
