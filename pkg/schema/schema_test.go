package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/kismetdb/pkg/column"
	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/predicate"
)

func TestRegistryIsTotal(t *testing.T) {
	for _, name := range Tables() {
		d, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, d.Name)
		for v := MinVersion; v <= MaxVersion; v++ {
			r, err := d.Resolve(v)
			require.NoError(t, err, "%s v%d", name, v)
			assert.NotEmpty(t, r.Columns, "%s v%d", name, v)
			if d.Bulk != "" {
				assert.Contains(t, r.Columns, d.Bulk, "%s v%d", name, v)
			}
			for col := range r.Converters {
				assert.Contains(t, r.Columns, col, "%s v%d converter", name, v)
			}
			for _, f := range r.Defaults {
				assert.NotContains(t, r.Columns, f.Name, "%s v%d default", name, v)
			}
		}
		assert.Equal(t, []int{4, 5, 6, 7, 8}, d.SupportedVersions(), name)
	}
}

func TestTables(t *testing.T) {
	assert.Equal(t, []string{
		"KISMET", "alerts", "data", "datasources", "devices", "messages", "packets", "snapshots",
	}, Tables())

	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestResolveUnsupportedVersion(t *testing.T) {
	d, _ := Lookup(TableAlerts)
	for _, v := range []int{0, 3, 9} {
		_, err := d.Resolve(v)
		var verr *model.UnsupportedVersionError
		require.True(t, errors.As(err, &verr), "v%d", v)
		assert.Equal(t, TableAlerts, verr.Table)
		assert.Equal(t, v, verr.Version)
	}
}

func TestResolveRequiresAllThreeMaps(t *testing.T) {
	d := &Descriptor{
		Name:       "partial",
		Versions:   map[int][]string{4: {"a"}, 5: {"a"}},
		Defaults:   map[int][]Field{4: nil},
		Converters: map[int]map[string]convert.Kind{4: {}, 5: {}},
	}
	_, err := d.Resolve(4)
	require.NoError(t, err)

	_, err = d.Resolve(5)
	var verr *model.UnsupportedVersionError
	assert.True(t, errors.As(err, &verr))
}

func TestPacketsColumnsByVersion(t *testing.T) {
	d, _ := Lookup(TablePackets)

	r4, err := d.Resolve(4)
	require.NoError(t, err)
	assert.Len(t, r4.Columns, 16)
	assert.NotContains(t, r4.Columns, "alt")
	assert.Equal(t, []Field{
		{Name: "alt", Value: float64(0)},
		{Name: "speed", Value: float64(0)},
		{Name: "heading", Value: float64(0)},
		{Name: "tags", Value: ""},
	}, r4.Defaults)
	assert.Equal(t, convert.LatLon, r4.Converters["lat"])

	r5, err := d.Resolve(5)
	require.NoError(t, err)
	assert.Equal(t, []string{"lat", "lon", "alt", "speed", "heading"}, r5.Columns[8:13])
	assert.Empty(t, r5.Converters)

	r8, err := d.Resolve(8)
	require.NoError(t, err)
	assert.Equal(t, "tags", r8.Columns[len(r8.Columns)-1])
	assert.Empty(t, r8.Defaults)
}

func TestResolveDropsFiltersForMissingColumns(t *testing.T) {
	packets, _ := Lookup(TablePackets)
	r4, _ := packets.Resolve(4)
	_, ok := r4.Predicate("tags")
	assert.False(t, ok)
	r6, _ := packets.Resolve(6)
	_, ok = r6.Predicate("tags")
	assert.True(t, ok)

	snaps, _ := Lookup(TableSnapshots)
	s4, _ := snaps.Resolve(4)
	_, ok = s4.Predicate("lat_gt")
	assert.False(t, ok)
	s5, _ := snaps.Resolve(5)
	_, ok = s5.Predicate("lat_gt")
	assert.True(t, ok)
}

func TestResolveFixedPointCoordinates(t *testing.T) {
	d, _ := Lookup(TableMessages)

	r4, _ := d.Resolve(4)
	spec, ok := r4.Predicate("lat_gt")
	require.True(t, ok)
	assert.Equal(t, predicate.Spec{Kind: predicate.FixedGT, Column: "lat"}, spec)
	spec, _ = r4.Predicate("lon_lt")
	assert.Equal(t, predicate.FixedLT, spec.Kind)

	r5, _ := d.Resolve(5)
	spec, _ = r5.Predicate("lat_gt")
	assert.Equal(t, predicate.Spec{Kind: predicate.FloatGT, Column: "lat"}, spec)
}

func TestMinSignalUsesSignalColumn(t *testing.T) {
	d, _ := Lookup(TablePackets)
	r, _ := d.Resolve(5)
	spec, ok := r.Predicate("min_signal")
	require.True(t, ok)
	assert.Equal(t, "signal", spec.Column)
	assert.Equal(t, predicate.IntGT, spec.Kind)
}

func TestMetaColumns(t *testing.T) {
	devices, _ := Lookup(TableDevices)
	r, _ := devices.Resolve(5)
	assert.Contains(t, r.FullColumns(), "device")
	assert.NotContains(t, r.MetaColumns(), "device")
	assert.Len(t, r.MetaColumns(), len(r.FullColumns())-1)

	messages, _ := Lookup(TableMessages)
	m, _ := messages.Resolve(5)
	assert.Equal(t, m.FullColumns(), m.MetaColumns())
}

func TestResolvedIsIsolated(t *testing.T) {
	d, _ := Lookup(TableAlerts)
	r, _ := d.Resolve(5)
	r.Columns[0] = "mutated"
	r.Filters["x"] = predicate.Spec{}

	again, _ := d.Resolve(5)
	assert.Equal(t, "ts_sec", again.Columns[0])
	_, ok := again.Predicate("x")
	assert.False(t, ok)
}

func TestVirtualFor(t *testing.T) {
	d, _ := Lookup(TableAlerts)
	r, _ := d.Resolve(4)

	for _, arg := range []string{"ts", "ts_gt", "ts_lt", "ts_eq", "ts_ge"} {
		v, ok := r.VirtualFor(arg)
		require.True(t, ok, arg)
		assert.Equal(t, column.ComplexTimestamp{Seconds: "ts_sec", Micros: "ts_usec"}, v)
	}
	for _, arg := range []string{"ts_usec_gt", "ts_", "tsx_gt", "header"} {
		_, ok := r.VirtualFor(arg)
		assert.False(t, ok, arg)
	}

	m, _ := Lookup(TableMessages)
	mr, _ := m.Resolve(4)
	_, ok := mr.VirtualFor("ts_gt")
	assert.False(t, ok)
}

func TestFilterNames(t *testing.T) {
	d, _ := Lookup(TableAlerts)
	r, _ := d.Resolve(5)
	assert.Equal(t, []string{
		"devmac", "header", "phyname", "ts", "ts_eq", "ts_gt", "ts_lt", "ts_sec_gt", "ts_sec_lt",
	}, r.FilterNames())
}
