package diffql

// This file defines the query AST the engine consumes. spec.md §9 calls out
// a "deep polymorphic AST hierarchy" as a source-language pattern to avoid;
// here every node family is a small sealed interface (a marker method) with
// concrete struct variants, and dispatch sites use a type switch instead of
// a visitor hierarchy.
//
// The engine never constructs these nodes itself — spec.md §1 explicitly
// keeps the SQL grammar/parser out of scope — it only inspects the public
// shape of whatever tree a caller (or, in this repo, a test) builds.

// QueryBody is the top-level query shape: a QuerySpec or a DiffQuerySpec.
type QueryBody interface{ isQueryBody() }

// QuerySpec is a standard SELECT ... FROM ... [WHERE ...] [ORDER BY ...] [LIMIT ...].
type QuerySpec struct {
	From    Relation
	Where   Expression // nil if absent
	Select  []SelectItem
	OrderBy *OrderByClause // nil if absent; only a single column is supported
	Limit   *int           // nil if absent
}

func (*QuerySpec) isQueryBody() {}

// SplitClause is the SPLIT ... WHERE ... shape (spec.md §4.1 Shape B).
type SplitClause struct {
	From  Relation
	Where Expression
}

// DiffQuerySpec is DIFF over either two subqueries (Shape A) or one SPLIT
// clause (Shape B); exactly one of {Left and Right} or {Split} is set.
type DiffQuerySpec struct {
	Left  *QuerySpec // Shape A, outlier side
	Right *QuerySpec // Shape A, inlier side
	Split *SplitClause

	// ON clause: either an explicit attribute list, or Wildcard for `ON *`.
	Attributes []string
	Wildcard   bool

	RatioMetric string
	MaxOrder    int
	MinSupport  float64
	MinRatio    float64

	Select  []SelectItem
	OrderBy *OrderByClause
	Limit   *int
}

func (*DiffQuerySpec) isQueryBody() {}

// Relation is a FROM-clause operand: a table reference, a join, an alias,
// or a subquery.
type Relation interface{ isRelation() }

// TableRef names a table in the Table Store.
type TableRef struct {
	Name string
}

func (*TableRef) isRelation() {}

// JoinType enumerates SQL join kinds. Only Inner is supported (spec.md §4.3,
// §4.6); all others fail with UnsupportedOperator at dispatch time.
type JoinType string

const (
	InnerJoin      JoinType = "inner"
	LeftOuterJoin  JoinType = "left_outer"
	RightOuterJoin JoinType = "right_outer"
	FullOuterJoin  JoinType = "full_outer"
	CrossJoin      JoinType = "cross"
)

// Join is a two-relation join with a resolved criteria.
type Join struct {
	Left     Relation
	Right    Relation
	Type     JoinType
	Criteria JoinCriteria
}

func (*Join) isRelation() {}

// AliasedRelation wraps a relation under an alias name.
type AliasedRelation struct {
	Relation Relation
	Alias    string
}

func (*AliasedRelation) isRelation() {}

// Subquery wraps a nested QuerySpec used as a FROM operand.
type Subquery struct {
	Query *QuerySpec
	Alias string
}

func (*Subquery) isRelation() {}

// JoinCriteria is an ON / USING / NATURAL join condition.
type JoinCriteria interface{ isJoinCriteria() }

// OnCriteria is `ON <expr>`; the join evaluator only accepts a bare
// Identifier here (spec.md §4.3), anything else is InvalidJoin.
type OnCriteria struct {
	Expr Expression
}

func (*OnCriteria) isJoinCriteria() {}

// UsingCriteria is `USING (col, ...)`; exactly one column is accepted.
type UsingCriteria struct {
	Columns []string
}

func (*UsingCriteria) isJoinCriteria() {}

// NaturalCriteria is a NATURAL join; exactly one shared column name between
// the two schemas is accepted.
type NaturalCriteria struct{}

func (*NaturalCriteria) isJoinCriteria() {}

// SelectItem is a single projected item: every column, or one expression.
type SelectItem interface {
	isSelectItem()
	// Text returns the item's textual form, used as the output column name
	// for items without an explicit alias (spec.md §4.7).
	Text() string
}

// AllColumns is the `*` select item.
type AllColumns struct{}

func (AllColumns) isSelectItem() {}
func (AllColumns) Text() string  { return "*" }

// SingleColumn is one expression, optionally aliased.
type SingleColumn struct {
	Expr  Expression
	Alias string
}

func (SingleColumn) isSelectItem() {}
func (s SingleColumn) Text() string {
	if s.Alias != "" {
		return s.Alias
	}
	return ExprText(s.Expr)
}

// OrderByClause is a single-column ORDER BY (spec.md §9 note 5: multi-column
// sort is declared TODO in the source and is not implemented here either).
type OrderByClause struct {
	Expr      Expression
	Ascending bool
}

// Expression is a scalar expression node.
type Expression interface{ isExpression() }

// Identifier references a column by name.
type Identifier struct {
	Name string
}

func (*Identifier) isExpression() {}

// Dereference references a qualified column, `table.column`.
type Dereference struct {
	Qualifier string
	Name      string
}

func (*Dereference) isExpression() {}

// StringLiteral is a string constant.
type StringLiteral struct {
	Value string
}

func (*StringLiteral) isExpression() {}

// DoubleLiteral is a floating-point constant.
type DoubleLiteral struct {
	Value float64
}

func (*DoubleLiteral) isExpression() {}

// NullLiteral is the SQL NULL constant.
type NullLiteral struct{}

func (*NullLiteral) isExpression() {}

// FunctionCall is a scalar UDF reference: a name and a single string
// argument interpreted as a column reference (spec.md §4.7).
type FunctionCall struct {
	Name string
	Arg  string
}

func (*FunctionCall) isExpression() {}

// ComparisonOp enumerates the accepted comparison operators (spec.md §4.2).
type ComparisonOp string

const (
	OpEq             ComparisonOp = "="
	OpNeq            ComparisonOp = "!="
	OpLt             ComparisonOp = "<"
	OpLte            ComparisonOp = "<="
	OpGt             ComparisonOp = ">"
	OpGte            ComparisonOp = ">="
	OpIsDistinctFrom ComparisonOp = "is_distinct_from"
)

// Comparison is a binary comparison; one side is an Identifier or
// FunctionCall and the other a Literal, in either order, or both sides are
// literals (spec.md §4.2).
type Comparison struct {
	Left  Expression
	Op    ComparisonOp
	Right Expression
}

func (*Comparison) isExpression() {}

// LogicalOp enumerates the accepted boolean connectors.
type LogicalOp string

const (
	LogicAnd LogicalOp = "AND"
	LogicOr  LogicalOp = "OR"
)

// LogicalBinary is `e1 AND e2` or `e1 OR e2`.
type LogicalBinary struct {
	Left  Expression
	Op    LogicalOp
	Right Expression
}

func (*LogicalBinary) isExpression() {}

// Not is `NOT e`.
type Not struct {
	Expr Expression
}

func (*Not) isExpression() {}

// ExprText renders an expression's textual form, used as the default output
// column name for a SingleColumn select item without an alias (spec.md §4.7:
// "UDFs are materialized into named columns whose output name is the
// textual form of the SelectItem").
func ExprText(e Expression) string {
	switch v := e.(type) {
	case *Identifier:
		return v.Name
	case *Dereference:
		return v.Qualifier + "." + v.Name
	case *StringLiteral:
		return "'" + v.Value + "'"
	case *DoubleLiteral:
		return formatFloat(v.Value)
	case *NullLiteral:
		return "NULL"
	case *FunctionCall:
		return v.Name + "(" + v.Arg + ")"
	case *Comparison:
		return ExprText(v.Left) + " " + string(v.Op) + " " + ExprText(v.Right)
	case *LogicalBinary:
		return ExprText(v.Left) + " " + string(v.Op) + " " + ExprText(v.Right)
	case *Not:
		return "NOT " + ExprText(v.Expr)
	default:
		return ""
	}
}
