// Package diffql implements an in-memory analytical query engine that executes
// an extended SQL dialect containing two custom operators, DIFF and SPLIT, used
// to find attribute combinations that discriminate between an "outlier"
// population and an "inlier" population of rows.
package diffql

import "fmt"

// ScalarType is the scalar type of a Column. Only two scalar types are
// supported: Double and String.
type ScalarType int

const (
	Double ScalarType = iota
	String
)

func (t ScalarType) String() string {
	switch t {
	case Double:
		return "double"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Column is a single named, typed, dense column. Exactly one of Doubles or
// Strings is populated, matching Type. Length equals the owning table's row
// count.
type Column struct {
	Name    string
	Type    ScalarType
	Doubles []float64
	Strings []string
}

// Len returns the column's length.
func (c *Column) Len() int {
	if c.Type == Double {
		return len(c.Doubles)
	}
	return len(c.Strings)
}

// SchemaField is one (name, type) pair in a Schema.
type SchemaField struct {
	Name string
	Type ScalarType
}

// Schema is the ordered list of (name, type) pairs of a ColumnTable. It is
// derived from a ColumnTable and is immutable.
type Schema struct {
	fields  []SchemaField
	indexOf map[string]int
}

// NewSchema builds a Schema from an ordered field list.
func NewSchema(fields []SchemaField) *Schema {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	return &Schema{fields: append([]SchemaField(nil), fields...), indexOf: idx}
}

// Fields returns the ordered (name, type) pairs.
func (s *Schema) Fields() []SchemaField {
	return s.fields
}

// IndexOf returns the column index for name, or -1 if absent.
func (s *Schema) IndexOf(name string) int {
	if s == nil {
		return -1
	}
	if i, ok := s.indexOf[name]; ok {
		return i
	}
	return -1
}

// TypeOf returns the type of name and whether it exists.
func (s *Schema) TypeOf(name string) (ScalarType, bool) {
	i := s.IndexOf(name)
	if i < 0 {
		return Double, false
	}
	return s.fields[i].Type, true
}

// Names returns every field name, in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// NamesOfType returns the field names whose type equals t, in schema order.
func (s *Schema) NamesOfType(t ScalarType) []string {
	var out []string
	for _, f := range s.fields {
		if f.Type == t {
			out = append(out, f.Name)
		}
	}
	return out
}

// ColumnTable is the row-set data structure the engine operates on: an
// ordered list of named, typed, equal-length columns. Instances are
// conceptually immutable and shared by reference; Copy returns a shallow
// copy (column slice shared, column-list header copied) so that addColumn /
// renameColumn on the copy never mutate a cached original.
type ColumnTable struct {
	columns []*Column
}

// NewColumnTable builds a table from columns. All columns must share the
// same length; NewColumnTable panics otherwise, since this represents a
// construction-time programmer error, not a query-time user error.
func NewColumnTable(columns []*Column) *ColumnTable {
	if len(columns) > 0 {
		n := columns[0].Len()
		for _, c := range columns[1:] {
			if c.Len() != n {
				panic(fmt.Sprintf("diffql: column %q has length %d, want %d", c.Name, c.Len(), n))
			}
		}
	}
	return &ColumnTable{columns: append([]*Column(nil), columns...)}
}

// NumRows returns the table's row count.
func (t *ColumnTable) NumRows() int {
	if len(t.columns) == 0 {
		return 0
	}
	return t.columns[0].Len()
}

// Schema derives the table's Schema.
func (t *ColumnTable) Schema() *Schema {
	fields := make([]SchemaField, len(t.columns))
	for i, c := range t.columns {
		fields[i] = SchemaField{Name: c.Name, Type: c.Type}
	}
	return NewSchema(fields)
}

// Columns returns the underlying column handles, in schema order. Callers
// must not mutate the returned slice's elements in place; use Copy + addColumn
// to produce a new table.
func (t *ColumnTable) Columns() []*Column {
	return t.columns
}

// ColumnByName returns the named column, or nil if absent.
func (t *ColumnTable) ColumnByName(name string) *Column {
	for _, c := range t.columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// DoubleColumn returns the named Double column's values, erroring on a
// missing column or a type mismatch.
func (t *ColumnTable) DoubleColumn(name string) ([]float64, error) {
	c := t.ColumnByName(name)
	if c == nil {
		return nil, NewQueryError(ColumnNotFound, fmt.Sprintf("column %q not found", name)).WithIdentifier(name)
	}
	if c.Type != Double {
		return nil, NewQueryError(TypeMismatch, fmt.Sprintf("column %q is not a double column", name)).WithIdentifier(name)
	}
	return c.Doubles, nil
}

// StringColumn returns the named String column's values, erroring on a
// missing column or a type mismatch.
func (t *ColumnTable) StringColumn(name string) ([]string, error) {
	c := t.ColumnByName(name)
	if c == nil {
		return nil, NewQueryError(ColumnNotFound, fmt.Sprintf("column %q not found", name)).WithIdentifier(name)
	}
	if c.Type != String {
		return nil, NewQueryError(TypeMismatch, fmt.Sprintf("column %q is not a string column", name)).WithIdentifier(name)
	}
	return c.Strings, nil
}

// StringColumnsByName returns the requested String columns' values in
// request order, erroring on the first missing or mistyped column.
func (t *ColumnTable) StringColumnsByName(names []string) ([][]string, error) {
	out := make([][]string, len(names))
	for i, name := range names {
		vals, err := t.StringColumn(name)
		if err != nil {
			return nil, err
		}
		out[i] = vals
	}
	return out, nil
}

// Copy returns a shallow copy: the column-handle slice is duplicated but the
// Column pointers (and their backing arrays) are shared with the original.
func (t *ColumnTable) Copy() *ColumnTable {
	return &ColumnTable{columns: append([]*Column(nil), t.columns...)}
}

// AddColumn returns a new table with col appended. col's length must equal
// the table's row count; AddColumn panics otherwise, since the only legal
// caller is internal query-execution code that has already computed a
// correctly sized column.
func (t *ColumnTable) AddColumn(col *Column) *ColumnTable {
	if len(t.columns) > 0 && col.Len() != t.NumRows() {
		panic(fmt.Sprintf("diffql: addColumn %q has length %d, want %d", col.Name, col.Len(), t.NumRows()))
	}
	next := t.Copy()
	next.columns = append(next.columns, col)
	return next
}

// RenameColumn returns a new table with the named column renamed. It is a
// no-op (on the copy) if from does not exist.
func (t *ColumnTable) RenameColumn(from, to string) *ColumnTable {
	next := t.Copy()
	for i, c := range next.columns {
		if c.Name == from {
			renamed := *c
			renamed.Name = to
			next.columns[i] = &renamed
			break
		}
	}
	return next
}

// Project returns a new table containing only the named columns, in the
// requested order. A requested name that does not exist in the schema
// yields ColumnNotFound.
func (t *ColumnTable) Project(names []string) (*ColumnTable, error) {
	cols := make([]*Column, len(names))
	for i, name := range names {
		c := t.ColumnByName(name)
		if c == nil {
			return nil, NewQueryError(ColumnNotFound, fmt.Sprintf("column %q not found", name)).WithIdentifier(name)
		}
		cols[i] = c
	}
	return NewColumnTable(cols), nil
}

// Filter returns a new table keeping only the rows where mask is set. mask's
// length must equal the table's row count.
func (t *ColumnTable) Filter(mask *Bitset) *ColumnTable {
	n := t.NumRows()
	kept := mask.Count()
	out := make([]*Column, len(t.columns))
	for ci, c := range t.columns {
		switch c.Type {
		case Double:
			vals := make([]float64, 0, kept)
			for i := 0; i < n; i++ {
				if mask.Get(i) {
					vals = append(vals, c.Doubles[i])
				}
			}
			out[ci] = &Column{Name: c.Name, Type: Double, Doubles: vals}
		case String:
			vals := make([]string, 0, kept)
			for i := 0; i < n; i++ {
				if mask.Get(i) {
					vals = append(vals, c.Strings[i])
				}
			}
			out[ci] = &Column{Name: c.Name, Type: String, Strings: vals}
		}
	}
	return NewColumnTable(out)
}

// OrderBy returns a new table with rows sorted by the named column. Only a
// single sort column is supported (spec.md §9 note 5): multi-column sort is
// not implemented.
func (t *ColumnTable) OrderBy(name string, ascending bool) (*ColumnTable, error) {
	c := t.ColumnByName(name)
	if c == nil {
		return nil, NewQueryError(ColumnNotFound, fmt.Sprintf("column %q not found", name)).WithIdentifier(name)
	}
	n := t.NumRows()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	less := func(i, j int) bool {
		var lt bool
		switch c.Type {
		case Double:
			lt = c.Doubles[order[i]] < c.Doubles[order[j]]
		case String:
			lt = c.Strings[order[i]] < c.Strings[order[j]]
		}
		if ascending {
			return lt
		}
		var gt bool
		switch c.Type {
		case Double:
			gt = c.Doubles[order[i]] > c.Doubles[order[j]]
		case String:
			gt = c.Strings[order[i]] > c.Strings[order[j]]
		}
		return gt
	}
	sortInts(order, less)

	out := make([]*Column, len(t.columns))
	for ci, col := range t.columns {
		switch col.Type {
		case Double:
			vals := make([]float64, n)
			for i, src := range order {
				vals[i] = col.Doubles[src]
			}
			out[ci] = &Column{Name: col.Name, Type: Double, Doubles: vals}
		case String:
			vals := make([]string, n)
			for i, src := range order {
				vals[i] = col.Strings[src]
			}
			out[ci] = &Column{Name: col.Name, Type: String, Strings: vals}
		}
	}
	return NewColumnTable(out), nil
}

// sortInts sorts a permutation slice in place by an index-pair comparator.
func sortInts(order []int, less func(i, j int) bool) {
	// insertion sort: quadratic in the number of rows, and stable, so rows
	// with equal keys keep their input order.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

// Limit returns a new table containing at most n leading rows.
func (t *ColumnTable) Limit(n int) *ColumnTable {
	rows := t.NumRows()
	if n < 0 || n > rows {
		n = rows
	}
	out := make([]*Column, len(t.columns))
	for ci, c := range t.columns {
		switch c.Type {
		case Double:
			out[ci] = &Column{Name: c.Name, Type: Double, Doubles: append([]float64(nil), c.Doubles[:n]...)}
		case String:
			out[ci] = &Column{Name: c.Name, Type: String, Strings: append([]string(nil), c.Strings[:n]...)}
		}
	}
	return NewColumnTable(out)
}

// UnionAll vertically concatenates tables sharing an identical schema
// (name, type, order). Mismatched schemas yield TypeMismatch.
func UnionAll(tables []*ColumnTable) (*ColumnTable, error) {
	if len(tables) == 0 {
		return NewColumnTable(nil), nil
	}
	base := tables[0].Schema()
	for _, tbl := range tables[1:] {
		s := tbl.Schema()
		if len(s.Fields()) != len(base.Fields()) {
			return nil, NewQueryError(TypeMismatch, "unionAll: schema field count mismatch")
		}
		for i, f := range base.Fields() {
			if s.Fields()[i] != f {
				return nil, NewQueryError(TypeMismatch, fmt.Sprintf("unionAll: schema mismatch at field %d (%q vs %q)", i, f.Name, s.Fields()[i].Name))
			}
		}
	}
	cols := make([]*Column, len(base.Fields()))
	for ci, f := range base.Fields() {
		switch f.Type {
		case Double:
			var vals []float64
			for _, tbl := range tables {
				vals = append(vals, tbl.columns[ci].Doubles...)
			}
			cols[ci] = &Column{Name: f.Name, Type: Double, Doubles: vals}
		case String:
			var vals []string
			for _, tbl := range tables {
				vals = append(vals, tbl.columns[ci].Strings...)
			}
			cols[ci] = &Column{Name: f.Name, Type: String, Strings: vals}
		}
	}
	return NewColumnTable(cols), nil
}

// RowIterator yields each row index of t in order, calling visit(i) once per
// row. It exists so evaluators can iterate without allocating a snapshot.
func (t *ColumnTable) RowIterator(visit func(row int)) {
	n := t.NumRows()
	for i := 0; i < n; i++ {
		visit(i)
	}
}
