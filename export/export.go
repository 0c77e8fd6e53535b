// Package export writes decoded kismet log rows in various formats
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/model"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatText   OutputFormat = "text"
	FormatJSON   OutputFormat = "json"
	FormatJSONL  OutputFormat = "jsonl"
	FormatFields OutputFormat = "fields"
)

// ParseFormat returns the OutputFormat named s.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatJSONL, FormatFields:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json, jsonl or fields)", s)
	}
}

// Exporter handles row export
type Exporter struct {
	format     OutputFormat
	writer     io.Writer
	fields     []string // for -e field extraction
	bulk       string   // bulk column, hex dumped with -x
	dlt        string   // column holding the link type of bulk bytes
	showDetail bool     // -V verbose
	showHex    bool     // -x hex dump
	count      int      // rows exported
	maxCount   int      // -c limit (0 = unlimited)
	firstRow   bool     // track first row for JSON array
}

// NewExporter creates a new exporter
func NewExporter(w io.Writer, format OutputFormat) *Exporter {
	return &Exporter{
		format:   format,
		writer:   w,
		firstRow: true,
	}
}

// SetFields sets the columns to extract (for -T fields -e)
func (e *Exporter) SetFields(names []string) {
	e.fields = names
}

// SetBulk names the bulk column. With a non-empty dlt column the bulk
// bytes are treated as a captured frame of that link type.
func (e *Exporter) SetBulk(bulk, dlt string) {
	e.bulk = bulk
	e.dlt = dlt
}

// SetMaxCount sets the maximum row count
func (e *Exporter) SetMaxCount(n int) {
	e.maxCount = n
}

// SetShowDetail enables verbose output
func (e *Exporter) SetShowDetail(v bool) {
	e.showDetail = v
}

// SetShowHex enables hex dump output
func (e *Exporter) SetShowHex(v bool) {
	e.showHex = v
}

// Count returns the number of rows exported so far.
func (e *Exporter) Count() int {
	return e.count
}

// ShouldStop returns true if we've reached the row limit
func (e *Exporter) ShouldStop() bool {
	return e.maxCount > 0 && e.count >= e.maxCount
}

// ExportRow exports a single row
func (e *Exporter) ExportRow(row *model.Row) error {
	if e.ShouldStop() {
		return nil
	}

	var err error
	switch e.format {
	case FormatJSON:
		err = e.exportJSON(row)
	case FormatJSONL:
		err = e.exportJSONL(row)
	case FormatFields:
		err = e.exportFields(row)
	default:
		err = e.exportText(row)
	}

	if err == nil {
		e.count++
	}
	return err
}

// Start writes any header needed for the format
func (e *Exporter) Start() error {
	if e.format == FormatJSON {
		_, err := fmt.Fprintln(e.writer, "[")
		return err
	}
	return nil
}

// Finish writes any footer needed for the format
func (e *Exporter) Finish() error {
	if e.format == FormatJSON {
		if !e.firstRow {
			fmt.Fprintln(e.writer)
		}
		_, err := fmt.Fprintln(e.writer, "]")
		return err
	}
	return nil
}

// exportText exports a row as one tab separated line
func (e *Exporter) exportText(row *model.Row) error {
	keys := row.Keys()
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == e.bulk {
			values = append(values, fmt.Sprintf("<%d bytes>", len(row.Bytes(k))))
			continue
		}
		values = append(values, row.String(k))
	}

	if _, err := fmt.Fprintf(e.writer, "%d\t%s\n", e.count+1, strings.Join(values, "\t")); err != nil {
		return err
	}

	if e.showDetail {
		if err := e.exportDetail(row); err != nil {
			return err
		}
	}

	if e.showHex && e.bulk != "" {
		if err := e.exportHexDump(row.Bytes(e.bulk)); err != nil {
			return err
		}
	}

	return nil
}

// exportJSON exports a row as an element of a JSON array
func (e *Exporter) exportJSON(row *model.Row) error {
	data, err := e.marshal(row)
	if err != nil {
		return err
	}

	if e.firstRow {
		e.firstRow = false
		_, err = fmt.Fprintf(e.writer, "  %s", data)
	} else {
		_, err = fmt.Fprintf(e.writer, ",\n  %s", data)
	}
	return err
}

// exportJSONL exports a row as one JSON object per line
func (e *Exporter) exportJSONL(row *model.Row) error {
	data, err := e.marshal(row)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.writer, "%s\n", data)
	return err
}

// marshal encodes a row with JSON text columns embedded as objects.
func (e *Exporter) marshal(row *model.Row) ([]byte, error) {
	out := model.NewRow(row.Len())
	for _, k := range row.Keys() {
		v, _ := row.Get(k)
		if s, ok := v.(string); ok && looksLikeJSON(s) && json.Valid([]byte(s)) {
			v = json.RawMessage(s)
		}
		out.Set(k, v)
	}
	return json.Marshal(out)
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// exportFields exports specific columns (for -T fields -e)
func (e *Exporter) exportFields(row *model.Row) error {
	values := make([]string, len(e.fields))
	for i, name := range e.fields {
		values[i] = row.String(name)
	}

	_, err := fmt.Fprintln(e.writer, strings.Join(values, "\t"))
	return err
}

// exportDetail exports row detail (for -V)
func (e *Exporter) exportDetail(row *model.Row) error {
	fmt.Fprintf(e.writer, "\nRow %d: %d columns\n", e.count+1, row.Len())

	if ts, err := row.Int64("ts_sec"); err == nil {
		fmt.Fprintf(e.writer, "    Time: %s\n", convert.TimestampToISO(ts))
	}
	for _, k := range row.Keys() {
		if k == e.bulk {
			continue
		}
		fmt.Fprintf(e.writer, "    %s: %s\n", k, row.String(k))
	}

	if e.bulk != "" && e.dlt != "" {
		if dlt, err := row.Int64(e.dlt); err == nil {
			for _, layer := range Layers(int(dlt), row.Bytes(e.bulk)) {
				fmt.Fprintf(e.writer, "    %s\n", layer)
			}
		}
	}

	fmt.Fprintln(e.writer)
	return nil
}

// exportHexDump exports hex dump (for -x)
func (e *Exporter) exportHexDump(data []byte) error {
	fmt.Fprintf(e.writer, "\nHex dump of row %d (%d bytes):\n", e.count+1, len(data))

	bytesPerLine := 16
	for i := 0; i < len(data); i += bytesPerLine {
		// Offset
		fmt.Fprintf(e.writer, "%08x  ", i)

		// Hex bytes
		for j := 0; j < bytesPerLine; j++ {
			if i+j < len(data) {
				fmt.Fprintf(e.writer, "%02x ", data[i+j])
			} else {
				fmt.Fprint(e.writer, "   ")
			}
			if j == 7 {
				fmt.Fprint(e.writer, " ")
			}
		}

		// ASCII
		fmt.Fprint(e.writer, " |")
		for j := 0; j < bytesPerLine && i+j < len(data); j++ {
			b := data[i+j]
			if b >= 32 && b <= 126 {
				fmt.Fprintf(e.writer, "%c", b)
			} else {
				fmt.Fprint(e.writer, ".")
			}
		}
		fmt.Fprintln(e.writer, "|")
	}

	fmt.Fprintln(e.writer)
	return nil
}
