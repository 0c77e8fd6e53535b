// Package app provides application-level orchestration for kismetdb.
package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Zerofisher/kismetdb/filter"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/query"
)

// SourceConfig selects the rows of one table of a log.
type SourceConfig struct {
	Path               string
	Table              string
	Filters            model.Filters
	Where              string // row expression evaluated after the query
	Immutable          bool
	InvertedTimestamps bool
	Logger             *zap.Logger
}

// Options returns the query options for the config.
func (c SourceConfig) Options() []query.Option {
	var opts []query.Option
	if c.Logger != nil {
		opts = append(opts, query.WithLogger(c.Logger))
	}
	if c.Immutable {
		opts = append(opts, query.WithImmutable())
	}
	if c.InvertedTimestamps {
		opts = append(opts, query.WithInvertedTimestamps())
	}
	return opts
}

// OpenSource opens the configured table.
func OpenSource(ctx context.Context, cfg SourceConfig) (*query.Handle, error) {
	h, err := query.Open(ctx, cfg.Path, cfg.Table, cfg.Options()...)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// CompileRowFilter compiles a row expression over the handle's columns.
// Returns nil if where is empty.
func CompileRowFilter(h *query.Handle, mode model.Mode, where string) (filter.Match, error) {
	if strings.TrimSpace(where) == "" {
		return nil, nil
	}
	match, err := filter.Compile(where, h.Columns(mode))
	if err != nil {
		return nil, fmt.Errorf("error compiling row filter: %w", err)
	}
	return match, nil
}

// ParseFilters parses name=value arguments. A name given more than once
// collects its values into a list.
func ParseFilters(args []string) (model.Filters, error) {
	filters := model.Filters{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid filter %q (want name=value)", arg)
		}
		switch prev := filters[name].(type) {
		case nil:
			filters[name] = value
		case string:
			filters[name] = []string{prev, value}
		case []string:
			filters[name] = append(prev, value)
		}
	}
	return filters, nil
}

// eachRow runs the query and calls fn for every row passing match.
// Iteration stops when fn returns false.
func eachRow(ctx context.Context, h *query.Handle, mode model.Mode, filters model.Filters, match filter.Match, fn func(*model.Row) (bool, error)) error {
	for row, err := range h.Iterate(ctx, mode, filters) {
		if err != nil {
			return err
		}
		if match != nil && !match(row) {
			continue
		}
		more, err := fn(row)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
