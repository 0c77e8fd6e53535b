// Package column implements virtual columns: values computed at query
// time from stored columns and filterable like real ones.
package column

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/model"
)

// Virtual is a computed column addressed by filter arguments of the
// form <alias>, <alias>_lt, <alias>_gt or <alias>_eq.
type Virtual interface {
	// SelectExpression returns the SELECT item computing the column,
	// aliased as the argument's prefix.
	SelectExpression(arg string) string
	// WhereExpression returns the condition for arg, bound to a single
	// parameter named after the alias.
	WhereExpression(arg string) (string, error)
	// Where is WhereExpression with an explicit parameter name, for
	// queries that constrain the same alias more than once.
	Where(arg, param string) (string, error)
	// Bind converts a filter value into the parameter value.
	Bind(arg string, value any) (any, error)
}

// Alias returns the logical column name an argument refers to: the text
// before the first underscore.
func Alias(arg string) string {
	alias, _, _ := strings.Cut(arg, "_")
	return alias
}

// Comparator returns the comparator suffix of arg ("" when absent).
func Comparator(arg string) string {
	_, cmp, _ := strings.Cut(arg, "_")
	return cmp
}

// ComplexTimestamp is a fractional-second timestamp built from separate
// seconds and microseconds columns.
type ComplexTimestamp struct {
	Seconds string
	Micros  string
	// Inverted maps _gt to "<" and _lt to ">", matching logs queried by
	// the first generation of kismetdb tooling.
	Inverted bool
}

// SelectExpression implements Virtual.
func (c ComplexTimestamp) SelectExpression(arg string) string {
	return fmt.Sprintf("(%s + (%s / 1000000.0)) AS %s", c.Seconds, c.Micros, Alias(arg))
}

// WhereExpression implements Virtual.
func (c ComplexTimestamp) WhereExpression(arg string) (string, error) {
	return c.Where(arg, Alias(arg))
}

// Where implements Virtual.
func (c ComplexTimestamp) Where(arg, param string) (string, error) {
	op, err := c.operator(arg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s :%s", Alias(arg), op, param), nil
}

// Bind implements Virtual. The value keeps microsecond precision.
func (c ComplexTimestamp) Bind(arg string, value any) (any, error) {
	ts, err := convert.ParseTimestamp(value)
	if err != nil {
		var perr *model.TimestampParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &model.InvalidFilterValueError{Filter: arg, Value: value, Err: err}
	}
	return ts.Float(), nil
}

func (c ComplexTimestamp) operator(arg string) (string, error) {
	gt, lt := ">", "<"
	if c.Inverted {
		gt, lt = "<", ">"
	}
	switch Comparator(arg) {
	case "", "eq":
		return "=", nil
	case "gt":
		return gt, nil
	case "lt":
		return lt, nil
	default:
		return "", &model.InvalidComparatorError{Filter: arg}
	}
}
