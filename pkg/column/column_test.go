package column

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zerofisher/kismetdb/pkg/model"
)

func TestComplexTimestampSelect(t *testing.T) {
	c := ComplexTimestamp{Seconds: "seconds", Micros: "useconds"}
	assert.Equal(t, "(seconds + (useconds / 1000000.0)) AS fieldname", c.SelectExpression("fieldname"))
	assert.Equal(t, "(seconds + (useconds / 1000000.0)) AS ts", c.SelectExpression("ts_gt"))
}

func TestComplexTimestampWhere(t *testing.T) {
	c := ComplexTimestamp{Seconds: "ts_sec", Micros: "ts_usec"}
	cases := map[string]string{
		"ts":    "ts = :ts",
		"ts_eq": "ts = :ts",
		"ts_gt": "ts > :ts",
		"ts_lt": "ts < :ts",
	}
	for arg, want := range cases {
		got, err := c.WhereExpression(arg)
		require.NoError(t, err, arg)
		assert.Equal(t, want, got, arg)
	}
}

// The first generation of tooling swapped the comparators; Inverted
// keeps that behavior available.
func TestComplexTimestampInverted(t *testing.T) {
	c := ComplexTimestamp{Seconds: "ts_sec", Micros: "ts_usec", Inverted: true}
	got, err := c.WhereExpression("fieldname_gt")
	require.NoError(t, err)
	assert.Equal(t, "fieldname < :fieldname", got)

	got, err = c.WhereExpression("fieldname_lt")
	require.NoError(t, err)
	assert.Equal(t, "fieldname > :fieldname", got)

	got, err = c.WhereExpression("fieldname_eq")
	require.NoError(t, err)
	assert.Equal(t, "fieldname = :fieldname", got)
}

func TestComplexTimestampBadComparator(t *testing.T) {
	c := ComplexTimestamp{Seconds: "ts_sec", Micros: "ts_usec"}
	for _, arg := range []string{"ts_ge", "ts_like", "ts_sec_gt"} {
		_, err := c.WhereExpression(arg)
		var cerr *model.InvalidComparatorError
		require.True(t, errors.As(err, &cerr), arg)
		assert.Equal(t, arg, cerr.Filter)
	}
}

func TestComplexTimestampBind(t *testing.T) {
	c := ComplexTimestamp{Seconds: "ts_sec", Micros: "ts_usec"}
	v, err := c.Bind("ts_gt", model.Timestamp{Sec: 14, Usec: 120000})
	require.NoError(t, err)
	assert.InDelta(t, 14.12, v, 1e-9)

	v, err = c.Bind("ts_gt", "2018-01-01")
	require.NoError(t, err)
	assert.Equal(t, 1514764800.0, v)

	_, err = c.Bind("ts_gt", "nonsense")
	var perr *model.TimestampParseError
	assert.True(t, errors.As(err, &perr))

	_, err = c.Bind("ts_gt", true)
	var ferr *model.InvalidFilterValueError
	assert.True(t, errors.As(err, &ferr))
}

func TestComplexTimestampWhereNamedParam(t *testing.T) {
	c := ComplexTimestamp{Seconds: "ts_sec", Micros: "ts_usec"}
	got, err := c.Where("ts_gt", "ts_gt")
	require.NoError(t, err)
	assert.Equal(t, "ts > :ts_gt", got)

	_, err = c.Where("ts_xx", "ts_xx")
	var cerr *model.InvalidComparatorError
	assert.True(t, errors.As(err, &cerr))
}

func TestAliasAndComparator(t *testing.T) {
	assert.Equal(t, "ts", Alias("ts_gt"))
	assert.Equal(t, "ts", Alias("ts"))
	assert.Equal(t, "gt", Comparator("ts_gt"))
	assert.Equal(t, "", Comparator("ts"))
}
