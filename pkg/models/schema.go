package models

import "strconv"

// Column describes one result column. Kind is a hint derived from the
// backend type and is KindNull when the backend type is not known up front.
type Column struct {
	Name         string
	DatabaseType string
	Kind         Kind
	Nullable     bool
}

// Schema is the ordered column list of a result set. Names need not be
// unique.
type Schema struct {
	Columns []Column
}

// NewSchema creates a schema from columns.
func NewSchema(columns ...Column) *Schema {
	return &Schema{Columns: columns}
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Columns)
}

// Names returns the column names in order.
func (s *Schema) Names() []string {
	names := make([]string, s.Len())
	for i := range names {
		names[i] = s.Columns[i].Name
	}
	return names
}

// UniqueNames returns the column names with repeats suffixed _2, _3 and so
// on, skipping any suffix that collides with an existing name.
func (s *Schema) UniqueNames() []string {
	names := s.Names()
	taken := make(map[string]bool, len(names))
	for _, n := range names {
		taken[n] = true
	}
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		seen[n]++
		if seen[n] == 1 {
			out[i] = n
			continue
		}
		suffix := seen[n]
		candidate := n + "_" + strconv.Itoa(suffix)
		for taken[candidate] {
			suffix++
			candidate = n + "_" + strconv.Itoa(suffix)
		}
		seen[n] = suffix
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

// Row is one result row. Values are positional and follow Schema.Columns.
type Row struct {
	Schema *Schema
	Values []Value
}

// Len returns the number of values in the row.
func (r Row) Len() int { return len(r.Values) }

// Name returns the column name at index i.
func (r Row) Name(i int) string { return r.Schema.Columns[i].Name }

// Value returns the value at index i.
func (r Row) Value(i int) Value { return r.Values[i] }
