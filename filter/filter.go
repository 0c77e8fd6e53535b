// Package filter provides row filter functionality using expr-lang/expr
package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/model"
)

// Match reports whether a row passes a compiled filter.
type Match func(*model.Row) bool

// Compile compiles a row filter expression over the given columns.
// Column names are variables; "time" is the row's fractional timestamp
// when it has ts_sec. An empty expression matches every row.
//
//	signal > -60 && phyname == "IEEE802.11"
//	sourcemac in {"AA:BB:CC:DD:EE:FF", "11:22:33:44:55:66"}
//	ts_sec > epoch("2018-01-01") and fromJSON(json)["kismet.alert.class"] == "DEAUTHFLOOD"
func Compile(filterStr string, columns []string) (Match, error) {
	if strings.TrimSpace(filterStr) == "" {
		return func(*model.Row) bool { return true }, nil
	}

	processed := preprocessFilter(filterStr)

	// Columns are left undeclared so they type-check as dynamic values.
	// Declaring them as nil would type them as nil.
	env := map[string]any{}
	if !slices.Contains(columns, "time") {
		env["time"] = 0.0
	}

	program, err := expr.Compile(processed,
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
		expr.Function("epoch", epoch, new(func(any) float64)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter '%s': %w", filterStr, err)
	}

	return func(row *model.Row) bool {
		return run(program, row)
	}, nil
}

func run(program *vm.Program, row *model.Row) bool {
	result, err := expr.Run(program, rowToEnv(row))
	if err != nil {
		return false
	}
	b, ok := result.(bool)
	return ok && b
}

// epoch converts a timestamp argument into fractional epoch seconds.
func epoch(params ...any) (any, error) {
	ts, err := convert.ParseTimestamp(params[0])
	if err != nil {
		return nil, err
	}
	return ts.Float(), nil
}

// preprocessFilter converts set literals to expr arrays
func preprocessFilter(filter string) string {
	var b strings.Builder
	inString := byte(0)
	for i := 0; i < len(filter); i++ {
		ch := filter[i]
		switch {
		case inString != 0:
			if ch == '\\' && i+1 < len(filter) {
				b.WriteByte(ch)
				i++
				ch = filter[i]
			} else if ch == inString {
				inString = 0
			}
		case ch == '"' || ch == '\'' || ch == '`':
			inString = ch
		case ch == '{':
			ch = '['
		case ch == '}':
			ch = ']'
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// rowToEnv converts a row to the variable set of an expression
func rowToEnv(row *model.Row) map[string]any {
	env := row.Map()
	for k, v := range env {
		if b, ok := v.([]byte); ok {
			env[k] = string(b)
		}
	}
	if row.Has("time") {
		return env
	}
	if sec, err := row.Int64("ts_sec"); err == nil {
		usec, _ := row.Int64("ts_usec")
		env["time"] = model.Timestamp{Sec: sec, Usec: usec}.Float()
	}
	return env
}
