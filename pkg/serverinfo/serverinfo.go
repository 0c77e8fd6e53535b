// Package serverinfo reads the description of the Kismet server that
// wrote a log: the SYSTEM snapshot and the KISMET control row.
package serverinfo

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/query"
	"github.com/Zerofisher/kismetdb/pkg/schema"
)

// ErrNoSystemSnapshot is returned when a log has no SYSTEM snapshot.
var ErrNoSystemSnapshot = errors.New("log has no SYSTEM snapshot")

// Info describes the server that wrote a log.
type Info struct {
	Version     string `json:"kismet.system.version"`
	Git         string `json:"kismet.system.git"`
	UUID        string `json:"kismet.system.server_uuid"`
	Name        string `json:"kismet.system.server_name"`
	Location    string `json:"kismet.system.server_location"`
	Description string `json:"kismet.system.server_description"`
	User        string `json:"kismet.system.user"`

	// Timestamp of the snapshot the fields were read from.
	Timestamp model.Timestamp `json:"-"`
}

// Control is the KISMET control table row.
type Control struct {
	KismetVersion string `json:"kismet_version"`
	DBVersion     int    `json:"db_version"`
	DBModule      string `json:"db_module"`
}

// Load returns the server description from the first SYSTEM snapshot.
func Load(ctx context.Context, path string, opts ...query.Option) (*Info, error) {
	h, err := query.Open(ctx, path, schema.TableSnapshots, opts...)
	if err != nil {
		return nil, err
	}

	var first *model.Row
	for row, err := range h.YieldAll(ctx, model.Filters{"snaptype": "SYSTEM"}) {
		if err != nil {
			return nil, err
		}
		first = row
		break
	}
	if first == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSystemSnapshot)
	}

	info := &Info{}
	if err := json.Unmarshal(first.Bytes("json"), info); err != nil {
		return nil, fmt.Errorf("decode SYSTEM snapshot: %w", err)
	}
	info.Timestamp.Sec, _ = first.Int64("ts_sec")
	info.Timestamp.Usec, _ = first.Int64("ts_usec")
	return info, nil
}

// LoadControl returns the KISMET control row.
func LoadControl(ctx context.Context, path string, opts ...query.Option) (*Control, error) {
	h, err := query.Open(ctx, path, schema.TableKismet, opts...)
	if err != nil {
		return nil, err
	}
	rows, err := h.All(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &model.InvalidFormatError{Path: path}
	}
	version, err := rows[0].Int64("db_version")
	if err != nil {
		return nil, fmt.Errorf("read db_version: %w", err)
	}
	return &Control{
		KismetVersion: rows[0].String("kismet_version"),
		DBVersion:     int(version),
		DBModule:      rows[0].String("db_module"),
	}, nil
}
