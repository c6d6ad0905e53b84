package engine

import (
	"fmt"

	"github.com/outlierql/diffql"
)

// InnerJoin executes a non-fused equijoin on a single key column (spec.md
// §4.3). leftName/rightName are only used to qualify conflicting output
// column names; only INNER joins are supported, enforced by the caller
// (dispatcher.go) before this function is reached.
func InnerJoin(leftName string, left *diffql.ColumnTable, rightName string, right *diffql.ColumnTable, crit diffql.JoinCriteria) (*diffql.ColumnTable, error) {
	joinCol, err := resolveJoinColumn(left, right, crit)
	if err != nil {
		return nil, err
	}

	leftType, leftOK := left.Schema().TypeOf(joinCol)
	rightType, rightOK := right.Schema().TypeOf(joinCol)
	if !leftOK {
		return nil, diffql.NewQueryError(diffql.ColumnNotFound, fmt.Sprintf("join column %q not found in %q", joinCol, leftName)).WithIdentifier(joinCol)
	}
	if !rightOK {
		return nil, diffql.NewQueryError(diffql.ColumnNotFound, fmt.Sprintf("join column %q not found in %q", joinCol, rightName)).WithIdentifier(joinCol)
	}
	if leftType != rightType {
		// spec.md §9 note 3 flags the source's three-times-repeated column
		// name bug in this message; this reimplementation names both
		// differing types instead.
		return nil, diffql.NewQueryError(diffql.TypeMismatch,
			fmt.Sprintf("join column %q has type %s in %q but type %s in %q", joinCol, leftType, leftName, rightType, rightName)).WithIdentifier(joinCol)
	}

	// Iterate the bigger table in the outer loop, the smaller in the inner
	// loop (spec.md §4.3); this also fixes which side's name is used to
	// qualify conflicting columns.
	sName, sTable, bName, bTable := leftName, left, rightName, right
	if left.NumRows() > right.NumRows() {
		sName, sTable, bName, bTable = rightName, right, leftName, left
	}

	bNonJoin := nonJoinColumns(bTable, joinCol)
	sNonJoin := nonJoinColumns(sTable, joinCol)
	sNames := make(map[string]bool, len(sNonJoin))
	for _, c := range sNonJoin {
		sNames[c.Name] = true
	}
	bNames := make(map[string]bool, len(bNonJoin))
	for _, c := range bNonJoin {
		bNames[c.Name] = true
	}

	outCols := []*diffql.Column{joinColumnHeader(bTable, joinCol)}
	for _, c := range bNonJoin {
		name := c.Name
		if sNames[name] {
			name = bName + "." + name
		}
		outCols = append(outCols, emptyColumnLike(c, name))
	}
	for _, c := range sNonJoin {
		name := c.Name
		if bNames[name] {
			name = sName + "." + name
		}
		outCols = append(outCols, emptyColumnLike(c, name))
	}

	bJoin := bTable.ColumnByName(joinCol)
	sJoin := sTable.ColumnByName(joinCol)

	for bi := 0; bi < bTable.NumRows(); bi++ {
		for si := 0; si < sTable.NumRows(); si++ {
			if !joinValuesEqual(bJoin, bi, sJoin, si) {
				continue
			}
			col := 0
			appendValue(outCols[col], bJoin, bi)
			col++
			for _, c := range bNonJoin {
				appendValue(outCols[col], c, bi)
				col++
			}
			for _, c := range sNonJoin {
				appendValue(outCols[col], c, si)
				col++
			}
		}
	}

	return diffql.NewColumnTable(outCols), nil
}

// resolveJoinColumn resolves the single join key column name from the join
// criteria (spec.md §4.3): ON requires a bare identifier; USING requires
// exactly one column; NATURAL requires exactly one name shared between the
// two schemas.
func resolveJoinColumn(left, right *diffql.ColumnTable, crit diffql.JoinCriteria) (string, error) {
	switch c := crit.(type) {
	case *diffql.OnCriteria:
		id, ok := c.Expr.(*diffql.Identifier)
		if !ok {
			return "", diffql.NewQueryError(diffql.InvalidJoin, "ON criteria must be a bare identifier")
		}
		return id.Name, nil
	case *diffql.UsingCriteria:
		if len(c.Columns) != 1 {
			return "", diffql.NewQueryError(diffql.InvalidJoin, "USING must name exactly one column")
		}
		return c.Columns[0], nil
	case *diffql.NaturalCriteria:
		shared := sharedColumnNames(left.Schema(), right.Schema())
		if len(shared) != 1 {
			return "", diffql.NewQueryError(diffql.InvalidJoin, fmt.Sprintf("NATURAL join requires exactly one shared column, found %d", len(shared)))
		}
		return shared[0], nil
	default:
		return "", diffql.NewQueryError(diffql.InvalidJoin, "missing join criteria")
	}
}

func sharedColumnNames(left, right *diffql.Schema) []string {
	rightNames := make(map[string]bool)
	for _, f := range right.Fields() {
		rightNames[f.Name] = true
	}
	var shared []string
	for _, f := range left.Fields() {
		if rightNames[f.Name] {
			shared = append(shared, f.Name)
		}
	}
	return shared
}

func nonJoinColumns(t *diffql.ColumnTable, joinCol string) []*diffql.Column {
	var out []*diffql.Column
	for _, c := range t.Columns() {
		if c.Name != joinCol {
			out = append(out, c)
		}
	}
	return out
}

func joinColumnHeader(t *diffql.ColumnTable, joinCol string) *diffql.Column {
	c := t.ColumnByName(joinCol)
	return emptyColumnLike(c, joinCol)
}

func emptyColumnLike(c *diffql.Column, name string) *diffql.Column {
	switch c.Type {
	case diffql.Double:
		return &diffql.Column{Name: name, Type: diffql.Double, Doubles: []float64{}}
	default:
		return &diffql.Column{Name: name, Type: diffql.String, Strings: []string{}}
	}
}

func appendValue(dst *diffql.Column, src *diffql.Column, row int) {
	switch src.Type {
	case diffql.Double:
		dst.Doubles = append(dst.Doubles, src.Doubles[row])
	default:
		dst.Strings = append(dst.Strings, src.Strings[row])
	}
}

func joinValuesEqual(a *diffql.Column, ai int, b *diffql.Column, bi int) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case diffql.Double:
		return a.Doubles[ai] == b.Doubles[bi]
	default:
		return a.Strings[ai] == b.Strings[bi]
	}
}
