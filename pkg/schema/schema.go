// Package schema is the compiled-in registry of kismet log tables: for
// every logical table and schema version, the ordered column list, the
// defaults for columns older logs lack, and the converter applied to
// each stored column.
package schema

import (
	"slices"
	"sort"
	"strings"

	"github.com/Zerofisher/kismetdb/pkg/column"
	"github.com/Zerofisher/kismetdb/pkg/convert"
	"github.com/Zerofisher/kismetdb/pkg/model"
	"github.com/Zerofisher/kismetdb/pkg/predicate"
)

// Field is a column name and the value older schema versions report for
// it.
type Field struct {
	Name  string
	Value any
}

// Descriptor describes one logical table across every schema version.
type Descriptor struct {
	Name string
	// Bulk is the column holding the large payload. Empty when the table
	// has none.
	Bulk       string
	Versions   map[int][]string
	Defaults   map[int][]Field
	Converters map[int]map[string]convert.Kind
	Filters    map[string]predicate.Spec
	// Virtual maps an argument prefix to its computed column.
	Virtual map[string]column.Virtual
}

// Resolved is a descriptor frozen for one schema version. Handles build
// one at open time and never change it.
type Resolved struct {
	Table      string
	Version    int
	Bulk       string
	Columns    []string
	Defaults   []Field
	Converters map[string]convert.Kind
	Filters    map[string]predicate.Spec
	Virtual    map[string]column.Virtual
}

// Resolve freezes the descriptor for version. Filters whose column does
// not exist at that version are dropped, and float comparisons against
// columns stored in fixed point become fixed-point comparisons.
func (d *Descriptor) Resolve(version int) (*Resolved, error) {
	cols, ok := d.Versions[version]
	if !ok {
		return nil, &model.UnsupportedVersionError{Table: d.Name, Version: version}
	}
	defaults, ok := d.Defaults[version]
	if !ok {
		return nil, &model.UnsupportedVersionError{Table: d.Name, Version: version}
	}
	converters, ok := d.Converters[version]
	if !ok {
		return nil, &model.UnsupportedVersionError{Table: d.Name, Version: version}
	}

	r := &Resolved{
		Table:      d.Name,
		Version:    version,
		Bulk:       d.Bulk,
		Columns:    slices.Clone(cols),
		Defaults:   slices.Clone(defaults),
		Converters: make(map[string]convert.Kind, len(converters)),
		Filters:    make(map[string]predicate.Spec, len(d.Filters)),
		Virtual:    make(map[string]column.Virtual, len(d.Virtual)),
	}
	for c, k := range converters {
		r.Converters[c] = k
	}
	for name, spec := range d.Filters {
		col := spec.Column
		if col == "" {
			col = predicate.ColumnFor(name)
		}
		if !slices.Contains(cols, col) {
			continue
		}
		spec.Column = col
		if converters[col] == convert.LatLon {
			switch spec.Kind {
			case predicate.FloatGT:
				spec.Kind = predicate.FixedGT
			case predicate.FloatLT:
				spec.Kind = predicate.FixedLT
			}
		}
		r.Filters[name] = spec
	}
	for prefix, v := range d.Virtual {
		r.Virtual[prefix] = v
	}
	return r, nil
}

// SupportedVersions lists the versions the descriptor knows, ascending.
func (d *Descriptor) SupportedVersions() []int {
	out := make([]int, 0, len(d.Versions))
	for v := range d.Versions {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// FullColumns returns the select list for full queries.
func (r *Resolved) FullColumns() []string {
	return slices.Clone(r.Columns)
}

// MetaColumns returns the select list for metadata queries: every
// column except the bulk field.
func (r *Resolved) MetaColumns() []string {
	out := make([]string, 0, len(r.Columns))
	for _, c := range r.Columns {
		if r.Bulk != "" && c == r.Bulk {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Predicate returns the builder registered for a filter argument.
func (r *Resolved) Predicate(arg string) (predicate.Spec, bool) {
	spec, ok := r.Filters[arg]
	return spec, ok
}

// VirtualFor returns the virtual column an argument addresses. The
// argument must be the prefix itself or the prefix plus one comparator
// suffix.
func (r *Resolved) VirtualFor(arg string) (column.Virtual, bool) {
	prefix, cmp, hasCmp := strings.Cut(arg, "_")
	v, ok := r.Virtual[prefix]
	if !ok {
		return nil, false
	}
	if hasCmp && (cmp == "" || strings.Contains(cmp, "_")) {
		return nil, false
	}
	return v, true
}

// FilterNames lists the filter arguments usable at this version,
// including virtual column forms, sorted.
func (r *Resolved) FilterNames() []string {
	out := make([]string, 0, len(r.Filters)+4*len(r.Virtual))
	for name := range r.Filters {
		out = append(out, name)
	}
	for prefix := range r.Virtual {
		out = append(out, prefix, prefix+"_gt", prefix+"_lt", prefix+"_eq")
	}
	sort.Strings(out)
	return out
}
