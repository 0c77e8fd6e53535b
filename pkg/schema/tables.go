package schema

import (
	"sort"

	"github.com/Zerofisher/kismetdb/pkg/column"
	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/predicate"
)

// MinVersion and MaxVersion bound the schema versions kismet has shipped
// log files with.
const (
	MinVersion = 4
	MaxVersion = 8
)

// Logical table names.
const (
	TableKismet      = "KISMET"
	TableDevices     = "devices"
	TablePackets     = "packets"
	TableData        = "data"
	TableDatasources = "datasources"
	TableAlerts      = "alerts"
	TableMessages    = "messages"
	TableSnapshots   = "snapshots"
)

// ────────────────────────────────────────────────────────────────────────────────
// Column lists
// ────────────────────────────────────────────────────────────────────────────────

var (
	kismetColumns = []string{"kismet_version", "db_version", "db_module"}

	deviceColumns = []string{
		"first_time", "last_time", "devkey", "phyname", "devmac",
		"strongest_signal", "min_lat", "min_lon", "max_lat", "max_lon",
		"avg_lat", "avg_lon", "bytes_data", "type", "device",
	}

	packetColumnsV4 = []string{
		"ts_sec", "ts_usec", "phyname", "sourcemac", "destmac", "transmac",
		"frequency", "devkey", "lat", "lon", "packet_len", "signal",
		"datasource", "dlt", "packet", "error",
	}
	packetColumnsV5 = []string{
		"ts_sec", "ts_usec", "phyname", "sourcemac", "destmac", "transmac",
		"frequency", "devkey", "lat", "lon", "alt", "speed", "heading",
		"packet_len", "signal", "datasource", "dlt", "packet", "error",
	}
	packetColumnsV6 = append(packetColumnsV5[:len(packetColumnsV5):len(packetColumnsV5)], "tags")

	dataColumnsV4 = []string{
		"ts_sec", "ts_usec", "phyname", "devmac", "lat", "lon",
		"datasource", "type", "json",
	}
	dataColumnsV5 = []string{
		"ts_sec", "ts_usec", "phyname", "devmac", "lat", "lon",
		"alt", "speed", "heading", "datasource", "type", "json",
	}

	datasourceColumns = []string{"uuid", "typestring", "definition", "name", "interface", "json"}

	alertColumns = []string{"ts_sec", "ts_usec", "phyname", "devmac", "lat", "lon", "header", "json"}

	messageColumns = []string{"ts_sec", "lat", "lon", "msgtype", "message"}

	snapshotColumnsV4 = []string{"ts_sec", "ts_usec", "snaptype", "json"}
	snapshotColumnsV5 = []string{"ts_sec", "ts_usec", "lat", "lon", "snaptype", "json"}
)

// ────────────────────────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────────────────────────

// perVersion builds a version map holding v for every version in
// [from, MaxVersion].
func perVersion[T any](from int, v T) map[int]T {
	m := make(map[int]T, MaxVersion-from+1)
	for ver := from; ver <= MaxVersion; ver++ {
		m[ver] = v
	}
	return m
}

// merge overlays the entries of b onto a copy of a.
func merge[T any](a, b map[int]T) map[int]T {
	out := make(map[int]T, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func kinds(kind convert.Kind, cols ...string) map[string]convert.Kind {
	m := make(map[string]convert.Kind, len(cols))
	for _, c := range cols {
		m[c] = kind
	}
	return m
}

func with(base map[string]convert.Kind, extra map[string]convert.Kind) map[string]convert.Kind {
	out := make(map[string]convert.Kind, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

var (
	noDefaults   []Field
	noConverters = map[string]convert.Kind{}

	locationDefaults = []Field{
		{Name: "alt", Value: float64(0)},
		{Name: "speed", Value: float64(0)},
		{Name: "heading", Value: float64(0)},
	}

	latlon = kinds(convert.LatLon, "lat", "lon")

	tsFilters = map[string]predicate.Spec{
		"ts_sec_gt": {Kind: predicate.TimestampGT},
		"ts_sec_lt": {Kind: predicate.TimestampLT},
	}
	boundsFilters = map[string]predicate.Spec{
		"lat_gt": {Kind: predicate.FloatGT},
		"lat_lt": {Kind: predicate.FloatLT},
		"lon_gt": {Kind: predicate.FloatGT},
		"lon_lt": {Kind: predicate.FloatLT},
	}
)

func eq(cols ...string) map[string]predicate.Spec {
	m := make(map[string]predicate.Spec, len(cols))
	for _, c := range cols {
		m[c] = predicate.Spec{Kind: predicate.StringEq}
	}
	return m
}

func filters(sets ...map[string]predicate.Spec) map[string]predicate.Spec {
	out := make(map[string]predicate.Spec)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

func timestampColumn() map[string]column.Virtual {
	return map[string]column.Virtual{
		"ts": column.ComplexTimestamp{Seconds: "ts_sec", Micros: "ts_usec"},
	}
}

// ────────────────────────────────────────────────────────────────────────────────
// Registry
// ────────────────────────────────────────────────────────────────────────────────

var registry = map[string]*Descriptor{
	TableKismet: {
		Name:       TableKismet,
		Versions:   perVersion(MinVersion, kismetColumns),
		Defaults:   perVersion(MinVersion, noDefaults),
		Converters: perVersion(MinVersion, noConverters),
		Filters:    map[string]predicate.Spec{},
	},

	TableDevices: {
		Name:     TableDevices,
		Bulk:     "device",
		Versions: perVersion(MinVersion, deviceColumns),
		Defaults: perVersion(MinVersion, noDefaults),
		Converters: merge(
			perVersion(MinVersion, kinds(convert.JSON, "device")),
			map[int]map[string]convert.Kind{
				4: with(kinds(convert.JSON, "device"),
					kinds(convert.LatLon, "min_lat", "min_lon", "max_lat", "max_lon", "avg_lat", "avg_lon")),
			},
		),
		Filters: filters(
			map[string]predicate.Spec{
				"first_time_gt":       {Kind: predicate.TimestampGT},
				"first_time_lt":       {Kind: predicate.TimestampLT},
				"last_time_gt":        {Kind: predicate.TimestampGT},
				"last_time_lt":        {Kind: predicate.TimestampLT},
				"strongest_signal_gt": {Kind: predicate.IntGT},
				"strongest_signal_lt": {Kind: predicate.IntLT},
				"bytes_data_gt":       {Kind: predicate.IntGT},
				"bytes_data_lt":       {Kind: predicate.IntLT},
			},
			eq("devkey", "phyname", "devmac", "type"),
		),
	},

	TablePackets: {
		Name: TablePackets,
		Bulk: "packet",
		Versions: merge(
			perVersion(6, packetColumnsV6),
			map[int][]string{4: packetColumnsV4, 5: packetColumnsV5},
		),
		Defaults: merge(
			perVersion(6, noDefaults),
			map[int][]Field{
				4: append(locationDefaults[:len(locationDefaults):len(locationDefaults)], Field{Name: "tags", Value: ""}),
				5: {{Name: "tags", Value: ""}},
			},
		),
		Converters: merge(
			perVersion(5, noConverters),
			map[int]map[string]convert.Kind{4: latlon},
		),
		Filters: filters(
			tsFilters,
			eq("devkey", "phyname", "sourcemac", "destmac", "transmac", "datasource"),
			map[string]predicate.Spec{
				"min_signal": {Kind: predicate.IntGT, Column: "signal"},
				"dlt_gt":     {Kind: predicate.IntGT},
				"tags":       {Kind: predicate.StringContains},
			},
		),
		Virtual: timestampColumn(),
	},

	TableData: {
		Name: TableData,
		Bulk: "json",
		Versions: merge(
			perVersion(5, dataColumnsV5),
			map[int][]string{4: dataColumnsV4},
		),
		Defaults: merge(
			perVersion(5, noDefaults),
			map[int][]Field{4: locationDefaults},
		),
		Converters: merge(
			perVersion(5, kinds(convert.JSON, "json")),
			map[int]map[string]convert.Kind{4: with(kinds(convert.JSON, "json"), latlon)},
		),
		Filters: filters(tsFilters, eq("phyname", "devmac", "datasource", "type")),
		Virtual: timestampColumn(),
	},

	TableDatasources: {
		Name:       TableDatasources,
		Bulk:       "json",
		Versions:   perVersion(MinVersion, datasourceColumns),
		Defaults:   perVersion(MinVersion, noDefaults),
		Converters: perVersion(MinVersion, kinds(convert.JSON, "json")),
		Filters:    eq("uuid", "typestring", "definition", "name", "interface"),
	},

	TableAlerts: {
		Name:     TableAlerts,
		Bulk:     "json",
		Versions: perVersion(MinVersion, alertColumns),
		Defaults: perVersion(MinVersion, noDefaults),
		Converters: merge(
			perVersion(5, kinds(convert.JSON, "json")),
			map[int]map[string]convert.Kind{4: with(kinds(convert.JSON, "json"), latlon)},
		),
		Filters: filters(tsFilters, eq("devmac", "header", "phyname")),
		Virtual: timestampColumn(),
	},

	TableMessages: {
		Name:     TableMessages,
		Versions: perVersion(MinVersion, messageColumns),
		Defaults: perVersion(MinVersion, noDefaults),
		Converters: merge(
			perVersion(5, noConverters),
			map[int]map[string]convert.Kind{4: latlon},
		),
		Filters: filters(tsFilters, boundsFilters, eq("msgtype")),
	},

	TableSnapshots: {
		Name: TableSnapshots,
		Bulk: "json",
		Versions: merge(
			perVersion(5, snapshotColumnsV5),
			map[int][]string{4: snapshotColumnsV4},
		),
		Defaults: merge(
			perVersion(5, noDefaults),
			map[int][]Field{4: {{Name: "lat", Value: float64(0)}, {Name: "lon", Value: float64(0)}}},
		),
		Converters: perVersion(MinVersion, kinds(convert.JSON, "json")),
		Filters:    filters(tsFilters, boundsFilters, eq("snaptype")),
		Virtual:    timestampColumn(),
	},
}

// Lookup returns the descriptor for a logical table.
func Lookup(name string) (*Descriptor, bool) {
	d, ok := registry[name]
	return d, ok
}

// Tables lists the registered tables, sorted.
func Tables() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
