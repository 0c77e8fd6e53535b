// Package predicate builds parameterized SQL conditions from filter
// arguments. Every user value ends up in Fragment.Params and is bound by
// name; only column names, which come from the schema registry, appear
// in Fragment.SQL.
package predicate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/model"
)

// Kind identifies a predicate builder.
type Kind int

const (
	// StringEq matches a column against one value or any of a list.
	StringEq Kind = iota
	// StringContains matches a substring, one value or any of a list.
	StringContains
	IntGT
	IntLT
	FloatGT
	FloatLT
	// FixedGT and FixedLT compare float degrees against a fixed-point
	// coordinate column.
	FixedGT
	FixedLT
	TimestampGT
	TimestampLT
	TimestampEQ
)

var kindNames = map[Kind]string{
	StringEq:       "string_eq",
	StringContains: "string_contains",
	IntGT:          "int_gt",
	IntLT:          "int_lt",
	FloatGT:        "float_gt",
	FloatLT:        "float_lt",
	FixedGT:        "fixed_gt",
	FixedLT:        "fixed_lt",
	TimestampGT:    "timestamp_gt",
	TimestampLT:    "timestamp_lt",
	TimestampEQ:    "timestamp_eq",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fragment is one WHERE condition and the named parameters it uses.
type Fragment struct {
	SQL    string
	Params map[string]any
}

// Spec is a registry entry: which builder handles a filter argument and
// which column it applies to. An empty Column means the argument name
// with its comparator suffix removed.
type Spec struct {
	Kind   Kind
	Column string
}

// ColumnFor returns the column a filter argument refers to: name minus a
// trailing _gt, _lt or _eq.
func ColumnFor(name string) string {
	for _, suffix := range []string{"_gt", "_lt", "_eq"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// Build runs the builder for spec against the filter argument name and
// value.
func Build(spec Spec, name string, value any) (Fragment, error) {
	column := spec.Column
	if column == "" {
		column = ColumnFor(name)
	}
	switch spec.Kind {
	case StringEq:
		return StringMatch(column, name, value, "=")
	case StringContains:
		return StringMatch(column, name, value, "LIKE")
	case IntGT:
		return Int(column, name, value, ">")
	case IntLT:
		return Int(column, name, value, "<")
	case FloatGT:
		return Float(column, name, value, ">")
	case FloatLT:
		return Float(column, name, value, "<")
	case FixedGT:
		return Fixed(column, name, value, ">")
	case FixedLT:
		return Fixed(column, name, value, "<")
	case TimestampGT:
		return Timestamp(column, name, value, ">")
	case TimestampLT:
		return Timestamp(column, name, value, "<")
	case TimestampEQ:
		return Timestamp(column, name, value, "=")
	default:
		return Fragment{}, fmt.Errorf("unknown predicate %s for %s", spec.Kind, name)
	}
}

// StringMatch builds an equality (op "=") or substring (op "LIKE")
// condition. A list value becomes a parenthesised OR chain whose
// parameters are named param1, param2, ...
func StringMatch(column, param string, value any, op string) (Fragment, error) {
	values, isList, err := listValues(value)
	if err != nil {
		return Fragment{}, &model.InvalidFilterValueError{Filter: param, Value: value, Err: err}
	}
	if !isList {
		return Fragment{
			SQL:    fmt.Sprintf("%s %s :%s", column, op, param),
			Params: map[string]any{param: matchValue(values[0], op)},
		}, nil
	}
	if len(values) == 0 {
		return Fragment{}, &model.InvalidFilterValueError{Filter: param, Value: value, Err: errors.New("empty list")}
	}

	parts := make([]string, 0, len(values))
	params := make(map[string]any, len(values))
	for i, v := range values {
		ref := param + strconv.Itoa(i+1)
		parts = append(parts, fmt.Sprintf("%s %s :%s", column, op, ref))
		params[ref] = matchValue(v, op)
	}
	return Fragment{
		SQL:    "(" + strings.Join(parts, " OR ") + ")",
		Params: params,
	}, nil
}

// Int builds a strict integer comparison.
func Int(column, param string, value any, op string) (Fragment, error) {
	n, err := ToInt(value)
	if err != nil {
		return Fragment{}, &model.InvalidFilterValueError{Filter: param, Value: value, Err: err}
	}
	return compare(column, param, op, n), nil
}

// Float builds a strict float comparison.
func Float(column, param string, value any, op string) (Fragment, error) {
	f, err := ToFloat(value)
	if err != nil {
		return Fragment{}, &model.InvalidFilterValueError{Filter: param, Value: value, Err: err}
	}
	return compare(column, param, op, f), nil
}

// Fixed builds a comparison of float degrees against a column holding
// fixed-point coordinates.
func Fixed(column, param string, value any, op string) (Fragment, error) {
	f, err := ToFloat(value)
	if err != nil {
		return Fragment{}, &model.InvalidFilterValueError{Filter: param, Value: value, Err: err}
	}
	return compare(column, param, op, convert.EncodeLatLon(f)), nil
}

// Timestamp normalizes value to epoch seconds and compares it against
// column. Microseconds do not take part in the comparison.
func Timestamp(column, param string, value any, op string) (Fragment, error) {
	ts, err := convert.ParseTimestamp(value)
	if err != nil {
		var perr *model.TimestampParseError
		if errors.As(err, &perr) {
			return Fragment{}, err
		}
		return Fragment{}, &model.InvalidFilterValueError{Filter: param, Value: value, Err: err}
	}
	return compare(column, param, op, ts.Sec), nil
}

func compare(column, param, op string, v any) Fragment {
	return Fragment{
		SQL:    fmt.Sprintf("%s %s :%s", column, op, param),
		Params: map[string]any{param: v},
	}
}

func matchValue(v any, op string) string {
	s := stringify(v)
	if op == "LIKE" {
		return "%" + s + "%"
	}
	return s
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(v)
	}
}

// listValues flattens value into its elements. Scalars come back as a
// single-element slice with isList false. []byte counts as a scalar.
func listValues(value any) (vals []any, isList bool, err error) {
	if value == nil {
		return nil, false, errors.New("value is nil")
	}
	switch v := value.(type) {
	case []byte:
		return []any{v}, false, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true, nil
	case []any:
		return v, true, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, true, nil
	}
	return []any{value}, false, nil
}

// ToInt coerces a filter value to an integer.
func ToInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > 1<<63-1 {
			return 0, fmt.Errorf("%d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	default:
		return 0, fmt.Errorf("cannot use %T as an integer", value)
	}
}

// ToFloat coerces a filter value to a float.
func ToFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	default:
		n, err := ToInt(value)
		if err != nil {
			return 0, fmt.Errorf("cannot use %T as a number", value)
		}
		return float64(n), nil
	}
}
