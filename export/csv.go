package export

import (
	"encoding/csv"
	"io"

	"github.com/Zerofisher/kismetdb/pkg/model"
)

// csvColumns are the fixed projections kismet's own CSV tooling writes.
var csvColumns = map[string][]string{
	"devices": {
		"first_time", "last_time", "devkey", "phyname", "devmac",
		"strongest_signal", "min_lat", "min_lon", "max_lat", "max_lon",
		"avg_lat", "avg_lon", "bytes_data", "type",
	},
	"packets": {
		"ts_sec", "ts_usec", "phyname", "sourcemac", "destmac", "transmac",
		"frequency", "devkey", "lat", "lon", "packet_len", "signal",
		"datasource", "dlt", "error",
	},
	"datasources": {"uuid", "typestring", "definition", "name", "interface"},
	"alerts":      {"ts_sec", "ts_usec", "phyname", "devmac", "lat", "lon", "header"},
}

// CSVColumns returns the projection written for table, falling back to
// the given columns for tables without a fixed one.
func CSVColumns(table string, fallback []string) []string {
	if cols, ok := csvColumns[table]; ok {
		return append([]string(nil), cols...)
	}
	return append([]string(nil), fallback...)
}

// CSVWriter writes rows as tab-delimited text with a header line.
// Columns a row lacks are written empty.
type CSVWriter struct {
	w       *csv.Writer
	columns []string
	header  bool
	count   int
}

// NewCSVWriter creates a writer for the given columns.
func NewCSVWriter(w io.Writer, columns []string) *CSVWriter {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return &CSVWriter{w: cw, columns: columns}
}

// WriteRow writes one row, preceded by the header on first use.
func (c *CSVWriter) WriteRow(row *model.Row) error {
	if !c.header {
		if err := c.w.Write(c.columns); err != nil {
			return err
		}
		c.header = true
	}
	record := make([]string, len(c.columns))
	for i, col := range c.columns {
		record[i] = row.String(col)
	}
	if err := c.w.Write(record); err != nil {
		return err
	}
	c.count++
	return nil
}

// Flush writes the header if nothing was written yet and flushes.
func (c *CSVWriter) Flush() error {
	if !c.header {
		if err := c.w.Write(c.columns); err != nil {
			return err
		}
		c.header = true
	}
	c.w.Flush()
	return c.w.Error()
}

// Count returns the number of rows written.
func (c *CSVWriter) Count() int {
	return c.count
}
