package diffql

import "fmt"

// QueryErrorKind categorizes a query-execution failure (spec.md §7). All
// errors from leaf operators surface as a *QueryError; callers distinguish
// by Kind.
type QueryErrorKind string

const (
	// ParseOrShapeError: the query AST uses an unsupported node shape
	// (unsupported FROM relation, SELECT item or ORDER BY expression, ...).
	ParseOrShapeError QueryErrorKind = "parse_or_shape_error"
	// TableNotFound: FROM references an unregistered table name.
	TableNotFound QueryErrorKind = "table_not_found"
	// ColumnNotFound: an identifier references a missing column, or an ON
	// attribute list names a column absent from the tagged table.
	ColumnNotFound QueryErrorKind = "column_not_found"
	// TypeMismatch: a literal's type is incompatible with its column's
	// type, or two join columns have mismatched types.
	TypeMismatch QueryErrorKind = "type_mismatch"
	// InvalidJoin: NATURAL resolved zero or multiple shared columns, or
	// ON/USING named multiple columns, or join criteria were missing.
	InvalidJoin QueryErrorKind = "invalid_join"
	// UnsupportedOperator: a comparison operator or join type is not in
	// the accepted set.
	UnsupportedOperator QueryErrorKind = "unsupported_operator"
	// ImportError: the CSV loader failed.
	ImportError QueryErrorKind = "import_error"
	// ExplainEngineError: the explanation engine failed. spec.md §9 note 2
	// flags the source behavior of catching and logging this as a bug; this
	// reimplementation instead propagates it as a query failure.
	ExplainEngineError QueryErrorKind = "explain_engine_error"
)

// QueryError is the single error type returned by every engine operation.
// Modeled on the teacher's FormaError: a flat Kind enum plus builder methods
// for attaching context.
type QueryError struct {
	Kind       QueryErrorKind
	Message    string
	Identifier string // offending table/column/operator name, where applicable
	Cause      error
}

// NewQueryError constructs a QueryError of the given kind.
func NewQueryError(kind QueryErrorKind, message string) *QueryError {
	return &QueryError{Kind: kind, Message: message}
}

func (e *QueryError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("[%s] %s (identifier: %q)", e.Kind, e.Message, e.Identifier)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// WithIdentifier attaches the offending identifier and returns e for chaining.
func (e *QueryError) WithIdentifier(id string) *QueryError {
	e.Identifier = id
	return e
}

// WithCause attaches a wrapped cause and returns e for chaining.
func (e *QueryError) WithCause(cause error) *QueryError {
	e.Cause = cause
	return e
}
