// Package sqlite provides the SQLite implementation of store.Reader.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/store"
)

// Config holds configuration for the SQLite store.
type Config struct {
	// Path to the kismet log file.
	Path string

	// Immutable tells SQLite the file cannot change while it is open,
	// which skips locking. Use it for logs on read-only media.
	Immutable bool

	// Logger receives debug output. Nil means no logging.
	Logger *zap.Logger
}

// Store is a kismet log on disk. It holds no open connection; every
// query connects and disconnects on its own.
type Store struct {
	path string
	dsn  string
	cfg  Config
	log  *zap.Logger
}

var _ store.Reader = (*Store)(nil)

// Open checks that cfg.Path is a kismet log and returns a Store for it.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	info, err := os.Stat(cfg.Path)
	if err != nil || info.IsDir() {
		return nil, &model.NotFoundError{Path: cfg.Path}
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		path: cfg.Path,
		dsn:  buildDSN(cfg),
		cfg:  cfg,
		log:  log.With(zap.String("path", cfg.Path)),
	}

	ok, err := s.hasTable(ctx, "KISMET")
	if err != nil {
		if isNotDatabase(err) {
			return nil, &model.InvalidContainerError{Path: cfg.Path, Err: err}
		}
		return nil, &model.StorageError{Op: "inspect log", Err: err}
	}
	if !ok {
		return nil, &model.InvalidFormatError{Path: cfg.Path}
	}

	s.log.Debug("opened kismet log")
	return s, nil
}

// Path returns the log file path.
func (s *Store) Path() string {
	return s.path
}

// ────────────────────────────────────────────────────────────────────────────────
// Connections
// ────────────────────────────────────────────────────────────────────────────────

// Connect opens a read-only connection to the log.
func (s *Store) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", s.dsn)
	if err != nil {
		return nil, err
	}
	// one reader per query
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

func buildDSN(cfg Config) string {
	escape := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")
	dsn := "file:" + escape.Replace(cfg.Path) + "?mode=ro"
	if cfg.Immutable {
		dsn += "&immutable=1"
	}
	return dsn
}

// isNotDatabase reports whether err means the file is not SQLite at all.
func isNotDatabase(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrNotADB || serr.Code == sqlite3.ErrCorrupt
	}
	return false
}

// ────────────────────────────────────────────────────────────────────────────────
// Introspection
// ────────────────────────────────────────────────────────────────────────────────

// Version returns db_version from the KISMET control table.
func (s *Store) Version(ctx context.Context) (int, error) {
	db, err := s.Connect(ctx)
	if err != nil {
		return 0, &model.StorageError{Op: "connect", Err: err}
	}
	defer db.Close()

	var version int
	err = db.GetContext(ctx, &version, "SELECT db_version FROM KISMET LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &model.InvalidFormatError{Path: s.path}
	}
	if err != nil {
		return 0, &model.StorageError{Op: "read db_version", Err: err}
	}
	s.log.Debug("detected schema version", zap.Int("version", version))
	return version, nil
}

// Columns returns the column names of table in storage order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	ok, err := s.hasTable(ctx, table)
	if err != nil {
		return nil, &model.StorageError{Op: "inspect log", Err: err}
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", table, store.ErrNoTable)
	}

	db, err := s.Connect(ctx)
	if err != nil {
		return nil, &model.StorageError{Op: "connect", Err: err}
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 1", quote(table)))
	if err != nil {
		return nil, &model.StorageError{Op: "read columns of " + table, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &model.StorageError{Op: "read columns of " + table, Err: err}
	}
	return cols, nil
}

// Tables lists the tables in the log, sorted by name.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	db, err := s.Connect(ctx)
	if err != nil {
		return nil, &model.StorageError{Op: "connect", Err: err}
	}
	defer db.Close()

	var names []string
	err = db.SelectContext(ctx, &names,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, &model.StorageError{Op: "list tables", Err: err}
	}
	return names, nil
}

// Count returns the number of rows stored in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	ok, err := s.hasTable(ctx, table)
	if err != nil {
		return 0, &model.StorageError{Op: "inspect log", Err: err}
	}
	if !ok {
		return 0, fmt.Errorf("%s: %w", table, store.ErrNoTable)
	}

	db, err := s.Connect(ctx)
	if err != nil {
		return 0, &model.StorageError{Op: "connect", Err: err}
	}
	defer db.Close()

	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+quote(table)); err != nil {
		return 0, &model.StorageError{Op: "count " + table, Err: err}
	}
	return n, nil
}

func (s *Store) hasTable(ctx context.Context, table string) (bool, error) {
	db, err := s.Connect(ctx)
	if err != nil {
		return false, err
	}
	defer db.Close()

	var n int
	err = db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// quote returns table as a quoted SQL identifier.
func quote(table string) string {
	return `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
}
