package model

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when the log file does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find input file %q", e.Path)
}

// InvalidContainerError is returned when the file is not a SQLite
// database at all.
type InvalidContainerError struct {
	Path string
	Err  error
}

func (e *InvalidContainerError) Error() string {
	return fmt.Sprintf("not a valid database file: %s: %v", e.Path, e.Err)
}

func (e *InvalidContainerError) Unwrap() error { return e.Err }

// InvalidFormatError is returned when the file is a SQLite database but
// lacks the KISMET control table.
type InvalidFormatError struct {
	Path string
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("valid sqlite3 file, but not a kismet log file: %s", e.Path)
}

// SchemaMismatchError is returned when a table's columns differ from the
// registry's list for the detected version.
type SchemaMismatchError struct {
	Table    string
	Path     string
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s table, in file %s: expected [%s], got [%s]",
		e.Table, e.Path, strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}

// UnsupportedVersionError is returned when a table has no registry entry
// for a schema version.
type UnsupportedVersionError struct {
	Table   string
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("table %s: unsupported schema version %d", e.Table, e.Version)
}

// InvalidFilterValueError is returned when a filter value cannot be
// coerced to the type its predicate needs.
type InvalidFilterValueError struct {
	Filter string
	Value  any
	Err    error
}

func (e *InvalidFilterValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %v for filter %s: %v", e.Value, e.Filter, e.Err)
	}
	return fmt.Sprintf("invalid value %v for filter %s", e.Value, e.Filter)
}

func (e *InvalidFilterValueError) Unwrap() error { return e.Err }

// InvalidComparatorError is returned for a virtual column argument with
// an unknown comparator suffix.
type InvalidComparatorError struct {
	Filter string
}

func (e *InvalidComparatorError) Error() string {
	return fmt.Sprintf("invalid comparator in %s", e.Filter)
}

// TimestampParseError is returned when a timestamp string cannot be
// parsed.
type TimestampParseError struct {
	Input string
	Err   error
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("could not extract a date/time from %q: %v", e.Input, e.Err)
}

func (e *TimestampParseError) Unwrap() error { return e.Err }

// StorageError wraps failures reported by the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
