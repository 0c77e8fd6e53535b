package app

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/Zerofisher/kismetdb/export"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/schema"
)

// RunCSV writes the table's fixed projection as tab-separated text and
// returns the number of rows written.
func RunCSV(ctx context.Context, out io.Writer, cfg SourceConfig) (int, error) {
	h, err := OpenSource(ctx, cfg)
	if err != nil {
		return 0, err
	}
	match, err := CompileRowFilter(h, model.ModeMeta, cfg.Where)
	if err != nil {
		return 0, err
	}

	w := export.NewCSVWriter(out, export.CSVColumns(h.Table(), h.Columns(model.ModeMeta)))
	err = eachRow(ctx, h, model.ModeMeta, cfg.Filters, match, func(row *model.Row) (bool, error) {
		return true, w.WriteRow(row)
	})
	if err != nil {
		return w.Count(), err
	}
	return w.Count(), w.Flush()
}

// DeviceConfig selects devices for KML and JSON output.
type DeviceConfig struct {
	SourceConfig
	SSID string // regular expression matched at the start of advertised SSIDs
}

func (c DeviceConfig) ssid() (*regexp.Regexp, error) {
	if c.SSID == "" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + c.SSID + ")")
	if err != nil {
		return nil, fmt.Errorf("invalid ssid pattern: %w", err)
	}
	return re, nil
}

// deviceRows iterates full devices rows.
func deviceRows(ctx context.Context, cfg DeviceConfig, fn func(*model.Row) error) error {
	cfg.Table = schema.TableDevices
	h, err := OpenSource(ctx, cfg.SourceConfig)
	if err != nil {
		return err
	}
	match, err := CompileRowFilter(h, model.ModeFull, cfg.Where)
	if err != nil {
		return err
	}
	return eachRow(ctx, h, model.ModeFull, cfg.Filters, match, func(row *model.Row) (bool, error) {
		return true, fn(row)
	})
}

// KMLConfig holds KML export configuration.
type KMLConfig struct {
	DeviceConfig
	Title          string
	StrongestPoint bool
}

// RunKML plots devices with a known location and returns the number
// plotted.
func RunKML(ctx context.Context, out io.Writer, cfg KMLConfig) (int, error) {
	re, err := cfg.ssid()
	if err != nil {
		return 0, err
	}
	w := export.NewKMLWriter(out, cfg.Title)
	w.SetStrongestPoint(cfg.StrongestPoint)
	w.SetSSID(re)

	err = deviceRows(ctx, cfg.DeviceConfig, func(row *model.Row) error {
		_, err := w.WriteRow(row)
		return err
	})
	if err != nil {
		return w.Count(), err
	}
	return w.Count(), w.Close()
}

// JSONConfig holds device JSON export configuration.
type JSONConfig struct {
	DeviceConfig
	Lines bool // one stripped record per line instead of an array
}

// RunDeviceJSON writes device records and returns the number written.
func RunDeviceJSON(ctx context.Context, out io.Writer, cfg JSONConfig) (int, error) {
	re, err := cfg.ssid()
	if err != nil {
		return 0, err
	}
	w := export.NewDeviceWriter(out, cfg.Lines)
	w.SetSSID(re)

	err = deviceRows(ctx, cfg.DeviceConfig, func(row *model.Row) error {
		_, err := w.WriteRow(row)
		return err
	})
	if err != nil {
		return w.Count(), err
	}
	return w.Count(), w.Close()
}

// PcapConfig holds pcap export configuration.
type PcapConfig struct {
	SourceConfig
	Title string // output file, or file name prefix when Limit is set
	Limit int    // packets per file; zero writes a single file
}

// PcapResult describes the files written by RunPcap.
type PcapResult struct {
	Packets int
	Files   []string
}

// RunPcap writes packets that carry a link type to pcap files.
func RunPcap(ctx context.Context, cfg PcapConfig) (*PcapResult, error) {
	if cfg.Title == "" {
		return nil, fmt.Errorf("an output file is required")
	}
	cfg.Table = schema.TablePackets
	filters := model.Filters{"dlt_gt": 0}
	for k, v := range cfg.Filters {
		filters[k] = v
	}

	h, err := OpenSource(ctx, cfg.SourceConfig)
	if err != nil {
		return nil, err
	}
	match, err := CompileRowFilter(h, model.ModeFull, cfg.Where)
	if err != nil {
		return nil, err
	}

	s := export.NewPcapSplitter(cfg.Title, cfg.Limit)
	err = eachRow(ctx, h, model.ModeFull, filters, match, func(row *model.Row) (bool, error) {
		return true, s.WriteRow(row)
	})
	closeErr := s.Close()
	res := &PcapResult{Packets: s.Count(), Files: s.Files()}
	if err != nil {
		return res, err
	}
	return res, closeErr
}
