// Package convert holds the value converters applied to raw values read
// from a kismet log, and the timestamp parsing used by filters.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Kind is the closed set of column converters the schema registry can
// name.
type Kind int

const (
	// Identity returns the stored value unchanged.
	Identity Kind = iota
	// LatLon decodes a fixed-point integer coordinate into degrees.
	LatLon
	// JSON validates and compacts stored JSON text.
	JSON
)

// String returns the converter name.
func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case LatLon:
		return "latlon"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// LatLonScale is the fixed-point factor older logs store coordinates
// with: degrees * 100000.
const LatLonScale = 100000

// Apply runs the converter for kind over v. NULL values pass through
// every converter untouched.
func Apply(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case Identity:
		return v, nil
	case LatLon:
		return DecodeLatLon(v)
	case JSON:
		return NormalizeJSON(v)
	default:
		return nil, fmt.Errorf("unknown converter %s", kind)
	}
}

// DecodeLatLon converts a fixed-point coordinate to float degrees.
func DecodeLatLon(v any) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n) / LatLonScale, nil
	case int:
		return float64(n) / LatLonScale, nil
	case int32:
		return float64(n) / LatLonScale, nil
	case float64:
		return n / LatLonScale, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("decode coordinate %q: %w", n, err)
		}
		return float64(i) / LatLonScale, nil
	case []byte:
		return DecodeLatLon(string(n))
	default:
		return 0, fmt.Errorf("decode coordinate: unsupported type %T", v)
	}
}

// EncodeLatLon converts float degrees to the fixed-point form. It rounds
// to the nearest unit so that EncodeLatLon(DecodeLatLon(v)) == v.
func EncodeLatLon(f float64) int64 {
	return int64(math.Round(f * LatLonScale))
}

var errEmptyJSON = errors.New("empty json text")

// NormalizeJSON checks that v holds valid JSON text and returns it in
// compact form. Key order and number literals are preserved.
func NormalizeJSON(v any) (string, error) {
	var raw []byte
	switch s := v.(type) {
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	default:
		return "", fmt.Errorf("normalize json: unsupported type %T", v)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", errEmptyJSON
	}
	if !json.Valid(raw) {
		return "", fmt.Errorf("normalize json: invalid json text")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("normalize json: %w", err)
	}
	return buf.String(), nil
}
