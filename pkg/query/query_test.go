package query

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Zerofisher/kismetdb/internal/testutil"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/store"
	"github.com/Zerofisher/kismetdb/pkg/store/sqlite"
)

const jan1 = int64(1514764800) // 2018-01-01T00:00:00Z

func openTable(t *testing.T, log *testutil.Log, table string, opts ...Option) *Handle {
	t.Helper()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	h, err := Open(context.Background(), log.Path, table, opts...)
	require.NoError(t, err)
	return h
}

func alertsV4(t *testing.T) *testutil.Log {
	t.Helper()
	log := testutil.NewLog(t, 4)
	rows := []struct {
		sec    int64
		phy    string
		mac    string
		header string
	}{
		{jan1 - 3600, "IEEE802.11", "AA:AA:AA:AA:AA:01", "DEAUTHFLOOD"},
		{jan1 + 60, "IEEE802.11", "AA:AA:AA:AA:AA:02", "DEAUTHFLOOD"},
		{jan1 + 120, "Bluetooth", "BB:BB:BB:BB:BB:01", "BTSCAN"},
		{jan1 + 180, "UHF", "CC:CC:CC:CC:CC:01", "UHFALERT"},
		{jan1 + 240, "IEEE802.11", "AA:AA:AA:AA:AA:03", "BEACONRATE"},
	}
	for i, r := range rows {
		log.Insert("alerts", map[string]any{
			"ts_sec":  r.sec,
			"ts_usec": int64(i * 1000),
			"phyname": r.phy,
			"devmac":  r.mac,
			"lat":     int64(4071234 + i),
			"lon":     int64(-7400567 - i),
			"header":  r.header,
			"json":    `{"kismet.alert.header": "` + r.header + `", "kismet.alert.count": 1}`,
		})
	}
	return log
}

func devicesV5(t *testing.T) *testutil.Log {
	t.Helper()
	log := testutil.NewLog(t, 5)
	devs := []struct {
		mac    string
		phy    string
		signal int64
		bytes  int64
		typ    string
	}{
		{"00:11:22:33:44:55", "IEEE802.11", -40, 120000, "Wi-Fi AP"},
		{"00:11:22:33:44:66", "IEEE802.11", -85, 300, "Wi-Fi Client"},
		{"DE:AD:BE:EF:00:01", "Bluetooth", -60, 0, "BTLE"},
	}
	for i, d := range devs {
		log.Insert("devices", map[string]any{
			"first_time":       jan1 + int64(i),
			"last_time":        jan1 + 3600 + int64(i),
			"devkey":           "4202770D00000000_" + d.mac,
			"phyname":          d.phy,
			"devmac":           d.mac,
			"strongest_signal": d.signal,
			"min_lat":          40.7,
			"min_lon":          -74.0,
			"max_lat":          40.8,
			"max_lon":          -73.9,
			"avg_lat":          40.75,
			"avg_lon":          -73.95,
			"bytes_data":       d.bytes,
			"type":             d.typ,
			"device":           `{ "kismet.device.base.macaddr": "` + d.mac + `", "kismet.device.base.channel": "6" }`,
		})
	}
	return log
}

func macs(rows []*model.Row, key string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.String(key))
	}
	sort.Strings(out)
	return out
}

func TestOpenNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.kismet")
	_, err := Open(context.Background(), path, "devices")

	var nf *model.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Contains(t, err.Error(), path)
	assert.Contains(t, err.Error(), "could not find")
}

func TestOpenUnknownTable(t *testing.T) {
	log := testutil.NewLog(t, 5)
	_, err := Open(context.Background(), log.Path, "beacons")
	assert.True(t, errors.Is(err, ErrUnknownTable))
}

func TestOpenSchemaMismatch(t *testing.T) {
	log := testutil.NewLog(t, 5)
	log.CreateTable("devices", "first_time", "last_time", "devmac")
	_, err := Open(context.Background(), log.Path, "devices")

	var mm *model.SchemaMismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, []string{"first_time", "last_time", "devmac"}, mm.Got)
}

func TestHandleAccessors(t *testing.T) {
	log := alertsV4(t)
	h := openTable(t, log, "alerts")

	assert.Equal(t, log.Path, h.Path())
	assert.Equal(t, "alerts", h.Table())
	assert.Equal(t, 4, h.Version())
	assert.Equal(t, "json", h.Bulk())
	assert.Equal(t, []string{"ts_sec", "ts_usec", "phyname", "devmac", "lat", "lon", "header"}, h.Columns(model.ModeMeta))
	assert.Contains(t, h.FilterNames(), "ts_gt")
}

func TestStatementNoFilters(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")

	stmt, err := h.Statement(model.ModeFull, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT ts_sec, ts_usec, phyname, devmac, lat, lon, header, json FROM alerts", stmt.SQL)
	assert.Empty(t, stmt.Params)

	stmt, err = h.Statement(model.ModeMeta, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT ts_sec, ts_usec, phyname, devmac, lat, lon, header FROM alerts", stmt.SQL)
}

func TestStatementBindsEveryValueByName(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")

	evil := "x' OR '1'='1"
	stmt, err := h.Statement(model.ModeMeta, model.Filters{
		"devmac":    []string{evil, "AA"},
		"header":    evil,
		"ts_sec_gt": "2018-01-01",
	})
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, evil)
	assert.Equal(t,
		"SELECT ts_sec, ts_usec, phyname, devmac, lat, lon, header FROM alerts WHERE "+
			"(devmac = :devmac1 OR devmac = :devmac2) AND header = :header AND ts_sec > :ts_sec_gt",
		stmt.SQL)
	assert.Equal(t, map[string]any{
		"devmac1":   evil,
		"devmac2":   "AA",
		"header":    evil,
		"ts_sec_gt": jan1,
	}, stmt.Params)
}

func TestStatementVirtualTimestamp(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")

	stmt, err := h.Statement(model.ModeMeta, model.Filters{"ts_gt": model.Timestamp{Sec: jan1, Usec: 500000}})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT ts_sec, ts_usec, phyname, devmac, lat, lon, header, (ts_sec + (ts_usec / 1000000.0)) AS ts "+
			"FROM alerts WHERE ts > :ts",
		stmt.SQL)
	assert.Equal(t, float64(jan1)+0.5, stmt.Params["ts"])

	// Two bounds on the same virtual column get distinct parameters.
	stmt, err = h.Statement(model.ModeMeta, model.Filters{"ts_gt": jan1, "ts_lt": jan1 + 200})
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE ts > :ts_gt AND ts < :ts_lt")
	assert.Equal(t, 1, countOf(stmt.SQL, " AS ts"))
}

func countOf(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}

func TestStatementErrors(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")

	_, err := h.Statement(model.ModeFull, model.Filters{"ts_ge": jan1})
	var cerr *model.InvalidComparatorError
	assert.True(t, errors.As(err, &cerr))

	_, err = h.Statement(model.ModeFull, model.Filters{"ts_sec_gt": "not a date at all"})
	var perr *model.TimestampParseError
	assert.True(t, errors.As(err, &perr))

	_, err = h.Statement(model.ModeFull, model.Filters{"phyname": []string{}})
	var ferr *model.InvalidFilterValueError
	assert.True(t, errors.As(err, &ferr))
}

func TestAlertsV4DateAndPhyFilter(t *testing.T) {
	log := alertsV4(t)
	// A row exactly on the bound. ts_sec_gt is strict, so it is excluded.
	log.Insert("alerts", map[string]any{
		"ts_sec": jan1, "ts_usec": int64(0), "phyname": "IEEE802.11",
		"devmac": "AA:AA:AA:AA:AA:00", "lat": int64(4071234), "lon": int64(-7400567),
		"header": "DEAUTHFLOOD", "json": `{}`,
	})
	h := openTable(t, log, "alerts")

	rows, err := h.All(context.Background(), model.Filters{
		"ts_sec_gt": "2018-01-01",
		"phyname":   []string{"Bluetooth", "IEEE802.11"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		sec, err := r.Int64("ts_sec")
		require.NoError(t, err)
		assert.Greater(t, sec, jan1)
		assert.Contains(t, []string{"Bluetooth", "IEEE802.11"}, r.String("phyname"))

		lat, _ := r.Get("lat")
		lon, _ := r.Get("lon")
		assert.IsType(t, float64(0), lat)
		assert.IsType(t, float64(0), lon)
		assert.InDelta(t, 40.71, lat, 0.01)
		assert.InDelta(t, -74.00, lon, 0.01)
		assert.True(t, r.Has("json"))
	}
}

func TestDevicesV5MetaAndFull(t *testing.T) {
	log := devicesV5(t)
	h := openTable(t, log, "devices")
	ctx := context.Background()

	meta, err := h.Meta(ctx, nil)
	require.NoError(t, err)
	require.Len(t, meta, 3)
	for _, r := range meta {
		assert.False(t, r.Has("device"))
	}

	full, err := h.All(ctx, nil)
	require.NoError(t, err)
	require.Len(t, full, 3)
	for _, r := range full {
		raw, ok := r.Get("device")
		require.True(t, ok)
		text, ok := raw.(string)
		require.True(t, ok, "device is %T", raw)
		require.True(t, json.Valid([]byte(text)))

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(text), &got))
		assert.Equal(t, r.String("devmac"), got["kismet.device.base.macaddr"])
		assert.Equal(t, "6", got["kismet.device.base.channel"])

		lat, _ := r.Get("avg_lat")
		assert.Equal(t, 40.75, lat)
	}
}

func TestDevicesNumericFilters(t *testing.T) {
	h := openTable(t, devicesV5(t), "devices")
	ctx := context.Background()

	rows, err := h.Meta(ctx, model.Filters{"strongest_signal_gt": -70})
	require.NoError(t, err)
	assert.Equal(t, []string{"00:11:22:33:44:55", "DE:AD:BE:EF:00:01"}, macs(rows, "devmac"))

	rows, err = h.Meta(ctx, model.Filters{"bytes_data_gt": "100", "bytes_data_lt": 200000})
	require.NoError(t, err)
	assert.Equal(t, []string{"00:11:22:33:44:55", "00:11:22:33:44:66"}, macs(rows, "devmac"))

	_, err = h.Meta(ctx, model.Filters{"bytes_data_gt": "lots"})
	var ferr *model.InvalidFilterValueError
	assert.True(t, errors.As(err, &ferr))

	rows, err = h.Meta(ctx, model.Filters{"last_time_gt": jan1 + 3600})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestMultiValueEqualsUnion(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")
	ctx := context.Background()

	a, err := h.Meta(ctx, model.Filters{"phyname": "Bluetooth"})
	require.NoError(t, err)
	b, err := h.Meta(ctx, model.Filters{"phyname": "UHF"})
	require.NoError(t, err)
	both, err := h.Meta(ctx, model.Filters{"phyname": []string{"Bluetooth", "UHF"}})
	require.NoError(t, err)

	assert.Equal(t, macs(append(a, b...), "devmac"), macs(both, "devmac"))
	assert.Len(t, both, 2)
}

func TestMetaModeNeverHasBulkField(t *testing.T) {
	for v := 4; v <= 8; v++ {
		log := testutil.NewLog(t, v)
		log.Insert("datasources", map[string]any{
			"uuid": "5FE308BD-0000-0000-0000-00C0CAAF0B60", "typestring": "linuxwifi",
			"definition": "wlan0", "name": "wlan0", "interface": "wlan0",
			"json": `{"kismet.datasource.name":"wlan0"}`,
		})
		h := openTable(t, log, "datasources")

		meta, err := h.Meta(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, meta, 1)
		assert.False(t, meta[0].Has("json"), "v%d", v)

		full, err := h.All(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, full[0].Has("json"), "v%d", v)
	}
}

func TestMetaOnTableWithoutBulk(t *testing.T) {
	log := testutil.NewLog(t, 5)
	log.Insert("messages", map[string]any{"ts_sec": jan1, "lat": 40.1, "lon": -74.2, "msgtype": "INFO", "message": "hello"})
	h := openTable(t, log, "messages")

	meta, err := h.Meta(context.Background(), nil)
	require.NoError(t, err)
	full, err := h.All(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, full[0].Map(), meta[0].Map())
}

func TestUnknownFiltersAreIgnored(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")
	ctx := context.Background()

	base, err := h.All(ctx, model.Filters{"phyname": "IEEE802.11"})
	require.NoError(t, err)
	extra, err := h.All(ctx, model.Filters{
		"phyname":        "IEEE802.11",
		"no_such_filter": 12,
		"ts_usec_gt":     "whatever",
		"bytes_data_gt":  "not for alerts",
	})
	require.NoError(t, err)
	require.Len(t, extra, len(base))
	for i := range base {
		assert.Equal(t, base[i].Map(), extra[i].Map())
	}
}

func TestLazyMatchesEager(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")
	ctx := context.Background()
	filters := model.Filters{"ts_sec_gt": jan1}

	for _, mode := range []model.Mode{model.ModeFull, model.ModeMeta} {
		eager, err := h.Fetch(ctx, mode, filters)
		require.NoError(t, err)

		var lazy []*model.Row
		for row, err := range h.Iterate(ctx, mode, filters) {
			require.NoError(t, err)
			lazy = append(lazy, row)
		}
		require.Len(t, lazy, len(eager))
		for i := range eager {
			assert.Equal(t, eager[i].Keys(), lazy[i].Keys())
			assert.Equal(t, eager[i].Map(), lazy[i].Map())
		}
	}
}

func TestLazyEarlyStop(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")
	ctx := context.Background()

	n := 0
	for _, err := range h.YieldAll(ctx, nil) {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	// The handle stays usable after an abandoned iteration.
	rows, err := h.All(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

// connRecorder keeps every connection handed out by the wrapped reader.
type connRecorder struct {
	store.Reader
	conns []*sqlx.DB
}

func (c *connRecorder) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := c.Reader.Connect(ctx)
	if err == nil {
		c.conns = append(c.conns, db)
	}
	return db, err
}

func TestLazyEarlyStopReleasesConnection(t *testing.T) {
	log := alertsV4(t)
	ctx := context.Background()
	s, err := sqlite.Open(ctx, sqlite.Config{Path: log.Path})
	require.NoError(t, err)
	rec := &connRecorder{Reader: s}
	h, err := OpenReader(ctx, rec, "alerts")
	require.NoError(t, err)

	for _, err := range h.YieldMeta(ctx, nil) {
		require.NoError(t, err)
		break
	}
	require.Len(t, rec.conns, 1)
	assert.EqualError(t, rec.conns[0].Ping(), "sql: database is closed")

	_, err = h.All(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rec.conns, 2)
	assert.EqualError(t, rec.conns[1].Ping(), "sql: database is closed")
}

func TestLazyReportsErrors(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")

	var got error
	for row, err := range h.YieldMeta(context.Background(), model.Filters{"ts_xx": 1}) {
		assert.Nil(t, row)
		got = err
	}
	var cerr *model.InvalidComparatorError
	assert.True(t, errors.As(got, &cerr))
}

func TestQueryErrorLeavesHandleUsable(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")
	ctx := context.Background()

	_, err := h.All(ctx, model.Filters{"ts_sec_gt": "nevermind"})
	require.Error(t, err)

	rows, err := h.All(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestVirtualTimestampQuery(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")
	ctx := context.Background()

	rows, err := h.Meta(ctx, model.Filters{"ts_gt": model.Timestamp{Sec: jan1 + 120, Usec: 1000}})
	require.NoError(t, err)
	// jan1+120 carries usec 2000, so it is after the bound.
	assert.Len(t, rows, 3)
	for _, r := range rows {
		assert.False(t, r.Has("ts"))
	}

	rows, err = h.Meta(ctx, model.Filters{"ts_gt": jan1, "ts_lt": jan1 + 200})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestInvertedVirtualTimestamp(t *testing.T) {
	log := alertsV4(t)
	h := openTable(t, log, "alerts", WithInvertedTimestamps())
	ctx := context.Background()

	// Inverted, ts_gt selects rows before the bound.
	rows, err := h.Meta(ctx, model.Filters{"ts_gt": jan1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	sec, _ := rows[0].Int64("ts_sec")
	assert.Equal(t, jan1-3600, sec)
}

func TestDefaultsForOlderVersions(t *testing.T) {
	log := testutil.NewLog(t, 4)
	log.Insert("packets", map[string]any{
		"ts_sec": jan1, "ts_usec": 0, "phyname": "IEEE802.11",
		"sourcemac": "AA", "destmac": "BB", "transmac": "CC", "frequency": 2437000,
		"devkey": "k", "lat": int64(4000000), "lon": int64(-7000000),
		"packet_len": 3, "signal": -50, "datasource": "uuid", "dlt": 127,
		"packet": []byte{1, 2, 3}, "error": 0,
	})
	h := openTable(t, log, "packets")

	rows, err := h.All(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, float64(0), mustGet(t, r, "alt"))
	assert.Equal(t, float64(0), mustGet(t, r, "speed"))
	assert.Equal(t, float64(0), mustGet(t, r, "heading"))
	assert.Equal(t, "", mustGet(t, r, "tags"))
	assert.Equal(t, 40.0, mustGet(t, r, "lat"))
	assert.Equal(t, []byte{1, 2, 3}, r.Bytes("packet"))
	assert.Equal(t, h.Columns(model.ModeFull), r.Keys())
}

func mustGet(t *testing.T, r *model.Row, key string) any {
	t.Helper()
	v, ok := r.Get(key)
	require.True(t, ok, key)
	return v
}

func TestPacketFilters(t *testing.T) {
	log := testutil.NewLog(t, 6)
	for i, p := range []struct {
		signal int64
		dlt    int64
		src    string
		tags   string
	}{
		{-40, 127, "AA", "wps"},
		{-80, 127, "BB", ""},
		{-60, 0, "CC", "retry wps"},
	} {
		log.Insert("packets", map[string]any{
			"ts_sec": jan1 + int64(i), "ts_usec": 0, "phyname": "IEEE802.11",
			"sourcemac": p.src, "destmac": "FF", "transmac": "00", "frequency": 2412000,
			"devkey": "k", "lat": 0.0, "lon": 0.0, "alt": 0.0, "speed": 0.0, "heading": 0.0,
			"packet_len": 1, "signal": p.signal, "datasource": "uuid", "dlt": p.dlt,
			"packet": []byte{0}, "error": 0, "tags": p.tags,
		})
	}
	h := openTable(t, log, "packets")
	ctx := context.Background()

	rows, err := h.Meta(ctx, model.Filters{"min_signal": -70})
	require.NoError(t, err)
	assert.Equal(t, []string{"AA", "CC"}, macs(rows, "sourcemac"))

	rows, err = h.Meta(ctx, model.Filters{"dlt_gt": 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"AA", "BB"}, macs(rows, "sourcemac"))

	rows, err = h.Meta(ctx, model.Filters{"tags": "wps"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AA", "CC"}, macs(rows, "sourcemac"))

	n, err := h.Count(ctx, model.Filters{"dlt_gt": 0, "min_signal": -70})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestFixedPointBoundsOnMessagesV4(t *testing.T) {
	log := testutil.NewLog(t, 4)
	log.Insert("messages", map[string]any{"ts_sec": jan1, "lat": int64(4050000), "lon": int64(-7400000), "msgtype": "INFO", "message": "in"})
	log.Insert("messages", map[string]any{"ts_sec": jan1, "lat": int64(5150000), "lon": int64(-1000), "msgtype": "ERROR", "message": "out"})
	h := openTable(t, log, "messages")

	rows, err := h.All(context.Background(), model.Filters{"lat_gt": 40.0, "lat_lt": 41.0})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "in", rows[0].String("message"))
	assert.Equal(t, 40.5, mustGet(t, rows[0], "lat"))
}

func TestCount(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")
	ctx := context.Background()

	n, err := h.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = h.Count(ctx, model.Filters{"ts_gt": jan1})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCancelledContext(t *testing.T) {
	h := openTable(t, alertsV4(t), "alerts")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.All(ctx, nil)
	var serr *model.StorageError
	assert.True(t, errors.As(err, &serr))
}

func TestTypedColumnsDecode(t *testing.T) {
	ctx := context.Background()

	log := testutil.NewTypedLog(t, 6)
	log.Insert("devices", map[string]any{
		"first_time": jan1, "last_time": jan1 + 60, "devkey": "k", "phyname": "IEEE802.11",
		"devmac": "00:11:22:33:44:55", "strongest_signal": -40,
		"min_lat": 40.7, "min_lon": -74.0, "max_lat": 40.8, "max_lon": -73.9, "avg_lat": 40.75, "avg_lon": -73.95,
		"bytes_data": 1500, "type": "Wi-Fi AP",
		"device": []byte(`{ "kismet.device.base.macaddr": "00:11:22:33:44:55" }`),
	})
	log.Insert("packets", map[string]any{
		"ts_sec": jan1, "ts_usec": 250000, "phyname": "IEEE802.11",
		"sourcemac": "AA", "destmac": "BB", "transmac": "CC", "frequency": 2437000,
		"devkey": "k", "lat": 40.5, "lon": -74.5, "alt": 10, "speed": 0, "heading": 0,
		"packet_len": 3, "signal": -50, "datasource": "uuid", "dlt": 127,
		"packet": []byte{0x80, 0x00, 0x01}, "error": 0, "tags": "",
	})

	rows, err := openTable(t, log, "devices").All(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	dev := rows[0]
	assert.Equal(t, `{"kismet.device.base.macaddr":"00:11:22:33:44:55"}`, mustGet(t, dev, "device"))
	assert.Equal(t, int64(-40), mustGet(t, dev, "strongest_signal"))
	assert.Equal(t, 40.75, mustGet(t, dev, "avg_lat"))
	assert.Equal(t, "Wi-Fi AP", mustGet(t, dev, "type"))

	rows, err = openTable(t, log, "packets").All(ctx, model.Filters{"ts_gt": jan1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	pkt := rows[0]
	assert.Equal(t, []byte{0x80, 0x00, 0x01}, mustGet(t, pkt, "packet"))
	assert.Equal(t, float64(2437000), mustGet(t, pkt, "frequency"))
	assert.Equal(t, float64(10), mustGet(t, pkt, "alt"))
	assert.Equal(t, int64(127), mustGet(t, pkt, "dlt"))
	assert.Equal(t, 40.5, mustGet(t, pkt, "lat"))

	v4 := testutil.NewTypedLog(t, 4)
	v4.Insert("devices", map[string]any{
		"first_time": jan1, "last_time": jan1, "devkey": "k", "phyname": "IEEE802.11",
		"devmac": "00:11:22:33:44:66", "strongest_signal": -70,
		"min_lat": int64(4070000), "min_lon": int64(-7400000), "max_lat": int64(4080000),
		"max_lon": int64(-7390000), "avg_lat": int64(4075000), "avg_lon": int64(-7395000),
		"bytes_data": 0, "type": "Wi-Fi Client", "device": []byte(`{}`),
	})
	rows, err = openTable(t, v4, "devices").All(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 40.75, mustGet(t, rows[0], "avg_lat"))
	assert.Equal(t, -73.95, mustGet(t, rows[0], "avg_lon"))
	assert.Equal(t, "{}", mustGet(t, rows[0], "device"))
}
