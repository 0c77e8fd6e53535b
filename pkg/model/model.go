// Package model defines the data types shared by the kismet log reader:
// decoded rows, filter dictionaries, query modes, structured timestamps,
// and the error taxonomy.
package model

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Mode selects which columns a query returns.
type Mode int

const (
	// ModeFull returns every column, including the table's bulk field.
	ModeFull Mode = iota
	// ModeMeta omits the bulk field.
	ModeMeta
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeMeta:
		return "meta"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Filters is the filter argument dictionary passed to queries. Keys are
// filter argument names (e.g. "ts_sec_gt", "devmac"); values are scalars,
// slices, time.Time, or Timestamp depending on the filter.
//
// Names that the queried table does not declare are ignored.
type Filters map[string]any

// Timestamp is the (seconds, microseconds) pair Kismet stores in its
// ts_sec/ts_usec columns.
type Timestamp struct {
	Sec  int64 `json:"sec"`
	Usec int64 `json:"usec"`
}

// Time converts the pair to a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Sec, t.Usec*1000).UTC()
}

// Float returns seconds with the microseconds as the fractional part.
func (t Timestamp) Float() float64 {
	return float64(t.Sec) + float64(t.Usec)/1e6
}

// Row is one decoded result row: an ordered mapping from logical column
// name to decoded value. Rows are produced fresh per query and never
// shared.
type Row struct {
	keys []string
	vals map[string]any
}

// NewRow creates an empty row with room for n columns.
func NewRow(n int) *Row {
	return &Row{
		keys: make([]string, 0, n),
		vals: make(map[string]any, n),
	}
}

// Set stores a value. New keys are appended; existing keys keep their
// position.
func (r *Row) Set(key string, val any) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = val
}

// Get returns the value for key.
func (r *Row) Get(key string) (any, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Row) Has(key string) bool {
	_, ok := r.vals[key]
	return ok
}

// Keys returns the column names in order.
func (r *Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns.
func (r *Row) Len() int {
	return len(r.keys)
}

// Map returns a copy of the row as an unordered map.
func (r *Row) Map() map[string]any {
	out := make(map[string]any, len(r.vals))
	for k, v := range r.vals {
		out[k] = v
	}
	return out
}

// String returns the value for key rendered as text. Missing keys and
// NULLs render as the empty string.
func (r *Row) String(key string) string {
	switch v := r.vals[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the value for key as an integer.
func (r *Row) Int64(key string) (int64, error) {
	switch v := r.vals[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case nil:
		return 0, fmt.Errorf("column %q is null or missing", key)
	default:
		return 0, fmt.Errorf("column %q: cannot convert %T to int", key, v)
	}
}

// Float64 returns the value for key as a float.
func (r *Row) Float64(key string) (float64, error) {
	switch v := r.vals[key].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case nil:
		return 0, fmt.Errorf("column %q is null or missing", key)
	default:
		return 0, fmt.Errorf("column %q: cannot convert %T to float", key, v)
	}
}

// Bytes returns the value for key as raw bytes.
func (r *Row) Bytes(key string) []byte {
	switch v := r.vals[key].(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// MarshalJSON encodes the row as a JSON object preserving column order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.vals[k])
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
