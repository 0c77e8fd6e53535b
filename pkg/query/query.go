// Package query is the read path over kismet logs. A Handle is opened
// once per (log, table); its schema configuration is resolved at open
// and frozen. Every query on it opens and closes its own connection.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Zerofisher/kismetdb/pkg/column"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/predicate"
	"github.com/Zerofisher/kismetdb/pkg/schema"
	"github.com/Zerofisher/kismetdb/pkg/store"
	"github.com/Zerofisher/kismetdb/pkg/store/sqlite"
)

// ErrUnknownTable is returned by Open for a table name the registry does
// not know.
var ErrUnknownTable = errors.New("unknown table")

// Handle is an open, validated view of one table in one kismet log.
type Handle struct {
	reader   store.Reader
	cfg      *schema.Resolved
	full     []string
	meta     []string
	inverted bool
	log      *zap.Logger
}

// Option configures a Handle.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	immutable bool
	inverted  bool
}

// WithLogger sets the logger queries report to at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithImmutable opens the log with SQLite's immutable flag, for files on
// read-only media.
func WithImmutable() Option {
	return func(o *options) { o.immutable = true }
}

// WithInvertedTimestamps makes the virtual ts column compare _gt with
// "<" and _lt with ">", the way early kismetdb releases did.
func WithInvertedTimestamps() Option {
	return func(o *options) { o.inverted = true }
}

// Open validates the log at path and returns a handle on table.
func Open(ctx context.Context, path, table string, opts ...Option) (*Handle, error) {
	o := buildOptions(opts)
	if _, ok := schema.Lookup(table); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	s, err := sqlite.Open(ctx, sqlite.Config{
		Path:      path,
		Immutable: o.immutable,
		Logger:    o.logger,
	})
	if err != nil {
		return nil, err
	}
	return open(ctx, s, table, o)
}

// OpenReader returns a handle on table backed by an already opened
// reader.
func OpenReader(ctx context.Context, r store.Reader, table string, opts ...Option) (*Handle, error) {
	return open(ctx, r, table, buildOptions(opts))
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

func open(ctx context.Context, r store.Reader, table string, o options) (*Handle, error) {
	d, ok := schema.Lookup(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	cfg, err := store.Detect(ctx, r, d)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		reader:   r,
		cfg:      cfg,
		full:     cfg.FullColumns(),
		meta:     cfg.MetaColumns(),
		inverted: o.inverted,
		log: o.logger.With(
			zap.String("table", table),
			zap.Int("version", cfg.Version),
		),
	}
	h.log.Debug("opened table", zap.String("path", r.Path()))
	return h, nil
}

// Path returns the log file path.
func (h *Handle) Path() string { return h.reader.Path() }

// Table returns the logical table name.
func (h *Handle) Table() string { return h.cfg.Table }

// Version returns the detected schema version.
func (h *Handle) Version() int { return h.cfg.Version }

// Bulk returns the table's bulk field, or "" if it has none.
func (h *Handle) Bulk() string { return h.cfg.Bulk }

// Columns returns the keys rows carry in mode, in order.
func (h *Handle) Columns(mode model.Mode) []string {
	base := h.full
	if mode == model.ModeMeta {
		base = h.meta
	}
	out := make([]string, 0, len(base)+len(h.cfg.Defaults))
	out = append(out, base...)
	for _, f := range h.cfg.Defaults {
		out = append(out, f.Name)
	}
	return out
}

// FilterNames lists the filter arguments this handle understands.
func (h *Handle) FilterNames() []string {
	return h.cfg.FilterNames()
}

// ────────────────────────────────────────────────────────────────────────────────
// Statement construction
// ────────────────────────────────────────────────────────────────────────────────

// Statement is a built query: SQL with named parameters, the values to
// bind, and the logical columns the first len(Columns) select items
// carry.
type Statement struct {
	SQL     string
	Params  map[string]any
	Columns []string
}

// Statement builds the query for mode and filters without running it.
// Filters the table does not declare are ignored.
func (h *Handle) Statement(mode model.Mode, filters model.Filters) (*Statement, error) {
	cols := h.full
	if mode == model.ModeMeta {
		cols = h.meta
	}
	selects := append([]string(nil), cols...)
	var where []string
	params := make(map[string]any)

	names := make([]string, 0, len(filters))
	aliases := make(map[string]int)
	for name := range filters {
		names = append(names, name)
		if _, ok := h.cfg.Predicate(name); !ok {
			if _, ok := h.cfg.VirtualFor(name); ok {
				aliases[column.Alias(name)]++
			}
		}
	}
	sort.Strings(names)

	for _, name := range names {
		value := filters[name]

		if spec, ok := h.cfg.Predicate(name); ok {
			frag, err := predicate.Build(spec, name, value)
			if err != nil {
				return nil, err
			}
			where = append(where, frag.SQL)
			for k, v := range frag.Params {
				params[k] = v
			}
			continue
		}

		if v, ok := h.cfg.VirtualFor(name); ok {
			v = h.orient(v)
			sel := v.SelectExpression(name)
			if !slices.Contains(selects, sel) {
				selects = append(selects, sel)
			}
			param := column.Alias(name)
			if aliases[param] > 1 {
				param = name
			}
			cond, err := v.Where(name, param)
			if err != nil {
				return nil, err
			}
			bound, err := v.Bind(name, value)
			if err != nil {
				return nil, err
			}
			where = append(where, cond)
			params[param] = bound
			continue
		}

		h.log.Debug("ignoring unknown filter", zap.String("filter", name))
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), h.cfg.Table)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	return &Statement{
		SQL:     sql,
		Params:  params,
		Columns: append([]string(nil), cols...),
	}, nil
}

func (h *Handle) orient(v column.Virtual) column.Virtual {
	if ts, ok := v.(column.ComplexTimestamp); ok && h.inverted {
		ts.Inverted = true
		return ts
	}
	return v
}
