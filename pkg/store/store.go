// Package store defines the read-side storage interface over kismet log
// files and the schema detection that runs once when a log is opened.
package store

import (
	"context"
	"errors"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/schema"
)

// ErrNoTable is returned by Reader.Columns when the log has no table of
// the requested name.
var ErrNoTable = errors.New("no such table")

// Reader is a read-only kismet log.
type Reader interface {
	// Path returns the log file path.
	Path() string

	// Version returns the schema version recorded in the KISMET table.
	Version(ctx context.Context) (int, error)

	// Columns returns a table's column names in storage order.
	Columns(ctx context.Context, table string) ([]string, error)

	// Tables lists the tables present in the log.
	Tables(ctx context.Context) ([]string, error)

	// Connect opens a short-lived read-only connection. The caller closes
	// it when the query is done.
	Connect(ctx context.Context) (*sqlx.DB, error)
}

// Detect reads the log's schema version, resolves d for it, and checks
// that the stored table has exactly the registered columns in the same
// order.
func Detect(ctx context.Context, r Reader, d *schema.Descriptor) (*schema.Resolved, error) {
	version, err := r.Version(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := d.Resolve(version)
	if err != nil {
		return nil, err
	}

	got, err := r.Columns(ctx, d.Name)
	if errors.Is(err, ErrNoTable) {
		got = []string{}
	} else if err != nil {
		return nil, err
	}
	if !slices.Equal(got, resolved.Columns) {
		return nil, &model.SchemaMismatchError{
			Table:    d.Name,
			Path:     r.Path(),
			Expected: resolved.FullColumns(),
			Got:      got,
		}
	}
	return resolved, nil
}
