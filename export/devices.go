package export

import (
	"fmt"
	"io"
	"regexp"

	"github.com/goccy/go-json"

	"github.com/Zerofisher/kismetdb/pkg/model"
)

// emptyTrees are device record keys older kismet versions wrote as 0
// when the subtree was empty.
var emptyTrees = map[string]bool{
	"kismet.device.base.location":         true,
	"kismet.device.base.datasize.rrd":     true,
	"kismet.device.base.location_cloud":   true,
	"kismet.device.base.packet.bin.250":   true,
	"kismet.device.base.packet.bin.500":   true,
	"kismet.device.base.packet.bin.1000":  true,
	"kismet.device.base.packet.bin.1500":  true,
	"kismet.device.base.packet.bin.jumbo": true,
	"kismet.common.signal.signal_rrd":     true,
	"kismet.common.signal.peak_loc":       true,
	"dot11.client.location":               true,
	"client.location":                     true,
	"dot11.client.ipdata":                 true,
	"dot11.advertisedssid.location":       true,
	"dot11.probedssid.location":           true,
	"kismet.common.seenby.signal":         true,
}

// DecodeDevice parses the device column of a devices row.
func DecodeDevice(row *model.Row) (map[string]any, error) {
	raw := row.Bytes("device")
	if raw == nil {
		return nil, fmt.Errorf("row has no device record")
	}
	var dev map[string]any
	if err := json.Unmarshal(raw, &dev); err != nil {
		return nil, fmt.Errorf("decode device record: %w", err)
	}
	return dev, nil
}

// StripEmptyTrees removes the known empty subtrees recorded as 0,
// recursively.
func StripEmptyTrees(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if emptyTrees[k] && isZero(child) {
				delete(t, k)
				continue
			}
			t[k] = StripEmptyTrees(child)
		}
		return t
	case []any:
		for i := range t {
			t[i] = StripEmptyTrees(t[i])
		}
		return t
	default:
		return v
	}
}

func isZero(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == 0
	case json.Number:
		return n == "0"
	default:
		return false
	}
}

// DeviceWriter writes device records as JSON: one compact object per
// line (for log shippers), or a single indented array.
type DeviceWriter struct {
	w      io.Writer
	lines  bool
	strip  bool
	ssid   *regexp.Regexp
	buffer []map[string]any
	count  int
}

// NewDeviceWriter creates a device writer. With lines set every record
// is written as it arrives and StripEmptyTrees is applied; otherwise
// records are collected and written as one array by Close. Keys are
// written sorted.
func NewDeviceWriter(w io.Writer, lines bool) *DeviceWriter {
	return &DeviceWriter{w: w, lines: lines, strip: lines}
}

// SetSSID restricts output to devices advertising an SSID matching re.
func (d *DeviceWriter) SetSSID(re *regexp.Regexp) {
	d.ssid = re
}

// WriteRow writes the device record of one devices row. It reports
// whether the device was written.
func (d *DeviceWriter) WriteRow(row *model.Row) (bool, error) {
	dev, err := DecodeDevice(row)
	if err != nil {
		return false, err
	}
	if d.ssid != nil && !MatchSSID(dev, d.ssid) {
		return false, nil
	}
	if d.strip {
		StripEmptyTrees(dev)
	}
	d.count++
	if !d.lines {
		d.buffer = append(d.buffer, dev)
		return true, nil
	}
	data, err := json.Marshal(dev)
	if err != nil {
		return false, err
	}
	_, err = fmt.Fprintf(d.w, "%s\n", data)
	return err == nil, err
}

// Close writes buffered records.
func (d *DeviceWriter) Close() error {
	if d.lines {
		return nil
	}
	if d.buffer == nil {
		d.buffer = []map[string]any{}
	}
	data, err := json.MarshalIndent(d.buffer, "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(d.w, "%s\n", data)
	return err
}

// Count returns the number of devices written.
func (d *DeviceWriter) Count() int {
	return d.count
}

// MatchSSID reports whether any SSID the device advertised matches re.
func MatchSSID(dev map[string]any, re *regexp.Regexp) bool {
	dot11, ok := dev["dot11.device"].(map[string]any)
	if !ok {
		return false
	}
	ssids, ok := dot11["dot11.device.advertised_ssid_map"]
	if !ok {
		return false
	}
	var entries []any
	switch m := ssids.(type) {
	case map[string]any:
		for _, v := range m {
			entries = append(entries, v)
		}
	case []any:
		entries = m
	}
	for _, e := range entries {
		rec, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := rec["dot11.advertisedssid.ssid"].(string); ok && re.MatchString(s) {
			return true
		}
	}
	return false
}
