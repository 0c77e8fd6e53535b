// Package report provides summary report generation for kismet logs.
package report

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/query"
	"github.com/Zerofisher/kismetdb/pkg/schema"
	"github.com/Zerofisher/kismetdb/pkg/serverinfo"
	"github.com/Zerofisher/kismetdb/pkg/store/sqlite"
)

// Config selects the log to summarize.
type Config struct {
	Path      string
	Immutable bool
	Top       int // entries in each ranking, default 10
	Logger    *zap.Logger
}

// Data holds all data for report generation.
type Data struct {
	// Meta
	GeneratedAt time.Time
	LogPath     string
	LogSize     int64

	Control *serverinfo.Control
	Server  *serverinfo.Info // nil when the log has no SYSTEM snapshot

	Tables      []*TableSummary
	Datasources []*DatasourceSummary

	// Rankings
	Phys         []*Count
	DeviceTypes  []*Count
	AlertHeaders []*Count
	TopDevices   []*DeviceSummary
}

// TableSummary is the row count and time span of one table.
type TableSummary struct {
	Name  string
	Rows  int
	First string
	Last  string
}

// DatasourceSummary is one capture source.
type DatasourceSummary struct {
	UUID      string
	Name      string
	Interface string
	Type      string
}

// Count is a ranked value.
type Count struct {
	Name  string
	Count int
}

// DeviceSummary is a device for display.
type DeviceSummary struct {
	MAC       string
	Phy       string
	Type      string
	Signal    int64
	Bytes     int64
	BytesStr  string
	FirstSeen string
	LastSeen  string
}

// Generate creates a report from a log.
func Generate(ctx context.Context, cfg Config) (*Data, error) {
	if cfg.Top <= 0 {
		cfg.Top = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	st, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Path, Immutable: cfg.Immutable, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}

	report := &Data{
		GeneratedAt: time.Now(),
		LogPath:     cfg.Path,
	}
	if fi, err := os.Stat(cfg.Path); err == nil {
		report.LogSize = fi.Size()
	}

	opts := []query.Option{query.WithLogger(cfg.Logger)}
	if cfg.Immutable {
		opts = append(opts, query.WithImmutable())
	}

	// Control row and server
	report.Control, err = serverinfo.LoadControl(ctx, cfg.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("get control row: %w", err)
	}
	report.Server, err = serverinfo.Load(ctx, cfg.Path, opts...)
	if errors.Is(err, serverinfo.ErrNoSystemSnapshot) {
		report.Server = nil
	} else if err != nil {
		return nil, fmt.Errorf("get server info: %w", err)
	}

	// Table sizes
	report.Tables, err = tableSummaries(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("get table summaries: %w", err)
	}

	// Datasources
	report.Datasources, err = datasources(ctx, cfg.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("get datasources: %w", err)
	}

	// Devices
	if err := summarizeDevices(ctx, cfg.Path, opts, cfg.Top, report); err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}

	// Alerts
	report.AlertHeaders, err = rank(ctx, cfg.Path, schema.TableAlerts, "header", cfg.Top, opts)
	if err != nil {
		return nil, fmt.Errorf("get alerts: %w", err)
	}

	return report, nil
}

func tableSummaries(ctx context.Context, st *sqlite.Store) ([]*TableSummary, error) {
	db, err := st.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var out []*TableSummary
	for _, name := range schema.Tables() {
		if name == schema.TableKismet {
			continue
		}
		n, err := st.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		ts := &TableSummary{Name: name, Rows: n}

		col := "ts_sec"
		if name == schema.TableDevices {
			col = "first_time"
		}
		if name != schema.TableDatasources && n > 0 {
			var span struct {
				First sql.NullInt64 `db:"first"`
				Last  sql.NullInt64 `db:"last"`
			}
			q := fmt.Sprintf("SELECT MIN(%s) AS first, MAX(%s) AS last FROM %s", col, col, name)
			if err := db.GetContext(ctx, &span, q); err != nil {
				return nil, err
			}
			if span.First.Valid {
				ts.First = convert.TimestampToISO(span.First.Int64)
			}
			if span.Last.Valid {
				ts.Last = convert.TimestampToISO(span.Last.Int64)
			}
		}
		out = append(out, ts)
	}
	return out, nil
}

func datasources(ctx context.Context, path string, opts []query.Option) ([]*DatasourceSummary, error) {
	h, err := query.Open(ctx, path, schema.TableDatasources, opts...)
	if err != nil {
		return nil, err
	}
	rows, err := h.Meta(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*DatasourceSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, &DatasourceSummary{
			UUID:      r.String("uuid"),
			Name:      r.String("name"),
			Interface: r.String("interface"),
			Type:      r.String("typestring"),
		})
	}
	return out, nil
}

func summarizeDevices(ctx context.Context, path string, opts []query.Option, top int, report *Data) error {
	h, err := query.Open(ctx, path, schema.TableDevices, opts...)
	if err != nil {
		return err
	}

	phys := map[string]int{}
	types := map[string]int{}
	var devices []*DeviceSummary
	for row, err := range h.YieldMeta(ctx, nil) {
		if err != nil {
			return err
		}
		phys[row.String("phyname")]++
		types[row.String("type")]++

		d := &DeviceSummary{
			MAC:  row.String("devmac"),
			Phy:  row.String("phyname"),
			Type: row.String("type"),
		}
		d.Signal, _ = row.Int64("strongest_signal")
		d.Bytes, _ = row.Int64("bytes_data")
		d.BytesStr = FormatBytes(d.Bytes)
		if first, err := row.Int64("first_time"); err == nil {
			d.FirstSeen = convert.TimestampToISO(first)
		}
		if last, err := row.Int64("last_time"); err == nil {
			d.LastSeen = convert.TimestampToISO(last)
		}
		devices = append(devices, d)
	}

	slices.SortStableFunc(devices, func(a, b *DeviceSummary) int {
		if c := cmp.Compare(b.Bytes, a.Bytes); c != 0 {
			return c
		}
		return cmp.Compare(a.MAC, b.MAC)
	})
	if len(devices) > top {
		devices = devices[:top]
	}

	report.TopDevices = devices
	report.Phys = topCounts(phys, top)
	report.DeviceTypes = topCounts(types, top)
	return nil
}

// rank counts the values of column across a table's metadata rows.
func rank(ctx context.Context, path, table, column string, top int, opts []query.Option) ([]*Count, error) {
	h, err := query.Open(ctx, path, table, opts...)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	err = forEach(h.YieldMeta(ctx, nil), func(row *model.Row) {
		counts[row.String(column)]++
	})
	if err != nil {
		return nil, err
	}
	return topCounts(counts, top), nil
}

func forEach(seq iter.Seq2[*model.Row, error], fn func(*model.Row)) error {
	for row, err := range seq {
		if err != nil {
			return err
		}
		fn(row)
	}
	return nil
}

func topCounts(m map[string]int, top int) []*Count {
	out := make([]*Count, 0, len(m))
	for name, n := range m {
		out = append(out, &Count{Name: name, Count: n})
	}
	slices.SortFunc(out, func(a, b *Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > top {
		out = out[:top]
	}
	return out
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
