package app

import (
	"context"
	"fmt"
	"io"

	"github.com/Zerofisher/kismetdb/export"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/schema"
)

// ExportConfig holds export configuration.
type ExportConfig struct {
	SourceConfig
	Meta       bool
	Format     export.OutputFormat
	MaxCount   int
	ShowDetail bool
	ShowHex    bool
	Fields     []string
}

// RunExport executes the export flow: open -> query -> filter -> export.
func RunExport(ctx context.Context, out io.Writer, cfg ExportConfig) error {
	// 1. Open the table
	h, err := OpenSource(ctx, cfg.SourceConfig)
	if err != nil {
		return err
	}

	mode := model.ModeFull
	if cfg.Meta {
		mode = model.ModeMeta
	}

	// 2. Compile row filter
	match, err := CompileRowFilter(h, mode, cfg.Where)
	if err != nil {
		return err
	}

	// 3. Create exporter
	exporter := export.NewExporter(out, cfg.Format)
	exporter.SetMaxCount(cfg.MaxCount)

	if cfg.Format == export.FormatText {
		dlt := ""
		if h.Table() == schema.TablePackets {
			dlt = "dlt"
		}
		exporter.SetBulk(h.Bulk(), dlt)
		exporter.SetShowDetail(cfg.ShowDetail)
		exporter.SetShowHex(cfg.ShowHex && mode == model.ModeFull)
	}
	if cfg.Format == export.FormatFields {
		exporter.SetFields(cfg.Fields)
	}

	if err := exporter.Start(); err != nil {
		return fmt.Errorf("error starting export: %w", err)
	}

	// 4. Process rows
	err = eachRow(ctx, h, mode, cfg.Filters, match, func(row *model.Row) (bool, error) {
		if err := exporter.ExportRow(row); err != nil {
			return false, fmt.Errorf("error exporting row: %w", err)
		}
		return !exporter.ShouldStop(), nil
	})
	if err != nil {
		return err
	}

	return exporter.Finish()
}

// ValidateFields checks if required fields are provided for fields export.
func ValidateFields(fields []string) error {
	if len(fields) == 0 {
		return fmt.Errorf("at least one field must be specified with -e")
	}
	return nil
}
