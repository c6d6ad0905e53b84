package diffql

import (
	"fmt"
	"math"
	"strings"
)

// UDF is a scalar user-defined function: given the table it is evaluated
// against, it returns one double per row (spec.md §4.7).
type UDF func(t *ColumnTable) ([]float64, error)

// UDFRegistry resolves a FunctionCall's name to a UDF (spec.md §6:
// `getFunction(name, argText)` -> UDF).
type UDFRegistry interface {
	GetFunction(name, argText string) (UDF, error)
}

// builtinUDFRegistry is the default, out-of-scope-per-spec.md-§1 UDF
// catalog: just enough scalar functions (abs, log10, length) to exercise
// §4.7 materialization and §4.2 FunctionCall comparisons end to end.
type builtinUDFRegistry struct{}

// NewBuiltinUDFRegistry returns the engine's default UDF catalog.
func NewBuiltinUDFRegistry() UDFRegistry {
	return builtinUDFRegistry{}
}

func (builtinUDFRegistry) GetFunction(name, argText string) (UDF, error) {
	// name's trailing segment (after any qualifier) identifies the function,
	// per spec.md §4.7.
	leaf := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		leaf = name[i+1:]
	}
	switch leaf {
	case "abs":
		return func(t *ColumnTable) ([]float64, error) {
			vals, err := t.DoubleColumn(argText)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(vals))
			for i, v := range vals {
				out[i] = math.Abs(v)
			}
			return out, nil
		}, nil
	case "log10":
		return func(t *ColumnTable) ([]float64, error) {
			vals, err := t.DoubleColumn(argText)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(vals))
			for i, v := range vals {
				if v <= 0 {
					return nil, NewQueryError(UnsupportedOperator, fmt.Sprintf("log10(%s): value %v out of domain at row %d", argText, v, i)).WithIdentifier(name)
				}
				out[i] = math.Log10(v)
			}
			return out, nil
		}, nil
	case "length":
		return func(t *ColumnTable) ([]float64, error) {
			vals, err := t.StringColumn(argText)
			if err != nil {
				return nil, err
			}
			out := make([]float64, len(vals))
			for i, v := range vals {
				out[i] = float64(len([]rune(v)))
			}
			return out, nil
		}, nil
	default:
		return nil, NewQueryError(UnsupportedOperator, fmt.Sprintf("unknown UDF %q", name)).WithIdentifier(name)
	}
}
