// =============================================================================
// CSV to QIF Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - expr       (field values seen by rule expressions)
//   - converter  (rows in, records out)
//   - qifwriter  (records and catalog entries to serialize)
//
// =============================================================================

package types

// =============================================================================
// INPUT ROWS
// =============================================================================

// Row is one source record as delivered by a row source.
type Row struct {
	// Line is the 1-based line number of the record in the source file.
	// Every row-scoped error reports it.
	Line int

	// Cells holds the raw column values, indexed by zero-based column.
	Cells []string
}

// Cell returns the raw value of column idx, or "" when the row is shorter.
func (r Row) Cell(idx int) string {
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return r.Cells[idx]
}

// =============================================================================
// TARGET RECORDS
// =============================================================================

// Record is the fully transformed field set for one row, keyed by
// target-vocabulary field name. It only lives between transformation and
// emission.
type Record struct {
	// Line is the source line the record was built from.
	Line int

	// Fields holds the current value of each target field.
	// Absent and empty fields are both represented by Null.
	Fields map[string]Value
}

// NewRecord creates an empty record for the given source line.
func NewRecord(line int) *Record {
	return &Record{Line: line, Fields: make(map[string]Value)}
}

// Get returns the value of a field, Null when it is not set.
func (r *Record) Get(name string) Value {
	if v, ok := r.Fields[name]; ok {
		return v
	}
	return Null
}

// Set stores a field value.
func (r *Record) Set(name string, v Value) {
	r.Fields[name] = v
}

// Lookup implements the expression environment over the record's fields.
func (r *Record) Lookup(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// =============================================================================
// SECURITY CATALOG
// =============================================================================

// SecurityEntry is one distinct instrument referenced by an investment
// account. Entries are keyed by Symbol.
type SecurityEntry struct {
	Symbol string
	Name   string
	Type   string
	Goal   string
}
