package query

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"go.uber.org/zap"

	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/model"
)

// Fetch runs the query and returns every decoded row.
func (h *Handle) Fetch(ctx context.Context, mode model.Mode, filters model.Filters) ([]*model.Row, error) {
	var out []*model.Row
	err := h.run(ctx, mode, filters, func(r *model.Row) bool {
		out = append(out, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// All returns every matching row with all columns.
func (h *Handle) All(ctx context.Context, filters model.Filters) ([]*model.Row, error) {
	return h.Fetch(ctx, model.ModeFull, filters)
}

// Meta returns every matching row without the bulk field.
func (h *Handle) Meta(ctx context.Context, filters model.Filters) ([]*model.Row, error) {
	return h.Fetch(ctx, model.ModeMeta, filters)
}

// Iterate runs the query lazily. Rows are decoded as the caller consumes
// them; breaking out of the loop closes the cursor and the connection.
// A failure is delivered as the final (nil, err) pair.
func (h *Handle) Iterate(ctx context.Context, mode model.Mode, filters model.Filters) iter.Seq2[*model.Row, error] {
	return func(yield func(*model.Row, error) bool) {
		err := h.run(ctx, mode, filters, func(r *model.Row) bool {
			return yield(r, nil)
		})
		if err != nil {
			yield(nil, err)
		}
	}
}

// YieldAll lazily returns every matching row with all columns.
func (h *Handle) YieldAll(ctx context.Context, filters model.Filters) iter.Seq2[*model.Row, error] {
	return h.Iterate(ctx, model.ModeFull, filters)
}

// YieldMeta lazily returns every matching row without the bulk field.
func (h *Handle) YieldMeta(ctx context.Context, filters model.Filters) iter.Seq2[*model.Row, error] {
	return h.Iterate(ctx, model.ModeMeta, filters)
}

// Count returns the number of rows filters match.
func (h *Handle) Count(ctx context.Context, filters model.Filters) (int, error) {
	stmt, err := h.Statement(model.ModeMeta, filters)
	if err != nil {
		return 0, err
	}

	db, err := h.reader.Connect(ctx)
	if err != nil {
		return 0, &model.StorageError{Op: "connect", Err: err}
	}
	defer db.Close()

	rows, err := db.NamedQueryContext(ctx, "SELECT COUNT(*) FROM ("+stmt.SQL+")", stmt.Params)
	if err != nil {
		return 0, &model.StorageError{Op: "count " + h.cfg.Table, Err: err}
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, &model.StorageError{Op: "count " + h.cfg.Table, Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return 0, &model.StorageError{Op: "count " + h.cfg.Table, Err: err}
	}
	return n, nil
}

// ────────────────────────────────────────────────────────────────────────────────
// Execution
// ────────────────────────────────────────────────────────────────────────────────

// run executes the statement for mode and filters and hands each decoded
// row to fn until fn returns false or the rows run out. The connection is
// closed before run returns on every path.
func (h *Handle) run(ctx context.Context, mode model.Mode, filters model.Filters, fn func(*model.Row) bool) error {
	stmt, err := h.Statement(mode, filters)
	if err != nil {
		return err
	}
	h.log.Debug("query",
		zap.Stringer("mode", mode),
		zap.String("sql", stmt.SQL),
		zap.Strings("params", paramNames(stmt.Params)),
	)

	db, err := h.reader.Connect(ctx)
	if err != nil {
		return &model.StorageError{Op: "connect", Err: err}
	}
	defer db.Close()

	rows, err := db.NamedQueryContext(ctx, stmt.SQL, stmt.Params)
	if err != nil {
		return &model.StorageError{Op: "query " + h.cfg.Table, Err: err}
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return &model.StorageError{Op: "scan " + h.cfg.Table, Err: err}
		}
		row, err := h.decode(stmt.Columns, vals)
		if err != nil {
			return err
		}
		n++
		if !fn(row) {
			h.log.Debug("query stopped early", zap.Int("rows", n))
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return &model.StorageError{Op: "read " + h.cfg.Table, Err: err}
	}
	h.log.Debug("query done", zap.Int("rows", n))
	return nil
}

// decode builds a row from the raw values of one result: converters for
// the stored columns first, then the version defaults for columns the
// row does not already carry. Values past len(cols) belong to virtual
// columns and are dropped.
func (h *Handle) decode(cols []string, vals []any) (*model.Row, error) {
	row := model.NewRow(len(cols) + len(h.cfg.Defaults))
	for i, name := range cols {
		v := vals[i]
		if kind, ok := h.cfg.Converters[name]; ok {
			conv, err := convert.Apply(kind, v)
			if err != nil {
				return nil, &model.StorageError{
					Op:  fmt.Sprintf("decode %s.%s", h.cfg.Table, name),
					Err: err,
				}
			}
			v = conv
		}
		row.Set(name, v)
	}
	for _, f := range h.cfg.Defaults {
		if !row.Has(f.Name) {
			row.Set(f.Name, f.Value)
		}
	}
	return row, nil
}

func paramNames(params map[string]any) []string {
	out := make([]string, 0, len(params))
	for k := range params {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
