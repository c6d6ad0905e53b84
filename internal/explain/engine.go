// Package explain implements the reference explanation engine: the default
// collaborator that enumerates attribute combinations over a tagged table and
// scores each by support and ratio metric (spec.md §6, §4.10 expansion).
// spec.md treats this component as an external black box; original_source/
// retained no buildable files for it (its _INDEX.md lists none), so this
// implementation is grounded directly on the GLOSSARY's definitions of
// ratio/support rather than on a ported algorithm.
package explain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/outlierql/diffql"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const attributeValueSeparator = "\x1f"

// Engine is the reference diffql.ExplanationEngine implementation.
type Engine struct {
	ratioMetric    string
	maxOrder       int
	minSupport     float64
	minRatioMetric float64
	outlierColumn  string
	attributes     []string
	threadCount    int
	logger         *zap.SugaredLogger

	results *diffql.ColumnTable
}

// NewEngine constructs an Engine. A nil logger falls back to a no-op logger.
func NewEngine(logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{logger: logger}
}

func (e *Engine) SetRatioMetric(name string)    { e.ratioMetric = name }
func (e *Engine) SetMaxOrder(n int)             { e.maxOrder = n }
func (e *Engine) SetMinSupport(v float64)       { e.minSupport = v }
func (e *Engine) SetMinRatioMetric(v float64)   { e.minRatioMetric = v }
func (e *Engine) SetOutlierColumn(name string)  { e.outlierColumn = name }
func (e *Engine) SetAttributes(names []string)  { e.attributes = names }
func (e *Engine) SetThreadCount(n int)          { e.threadCount = n }

// Results returns the table produced by the most recent successful Process.
func (e *Engine) Results() *diffql.ColumnTable {
	return e.results
}

// groupAccum holds one combination-value-tuple's running totals.
type groupAccum struct {
	values   []string // one value per attribute in e.attributes, "" where the attribute did not participate in this combination
	outliers float64
	count    float64
}

// Process enumerates every k-combination of the configured attributes for k
// from 1 to MaxOrder, groups T's rows by each combination's value tuple, and
// keeps groups whose support and ratio clear the configured thresholds
// (spec.md §4.10/GLOSSARY). Each order is processed concurrently, bounded by
// ThreadCount; a per-order failure does not abort sibling orders, and every
// failure observed is aggregated with multierr and returned as one error
// (spec.md §9 note 2: the caller must treat this as fatal, not log-and-continue).
func (e *Engine) Process(ctx context.Context, t *diffql.ColumnTable) error {
	if e.ratioMetric != "global_ratio" {
		return diffql.NewQueryError(diffql.UnsupportedOperator, fmt.Sprintf("unsupported ratio metric %q", e.ratioMetric)).WithIdentifier(e.ratioMetric)
	}
	if e.maxOrder < 1 {
		return diffql.NewQueryError(diffql.ParseOrShapeError, "maxOrder must be >= 1")
	}
	if len(e.attributes) == 0 {
		return diffql.NewQueryError(diffql.ParseOrShapeError, "no attribute columns configured")
	}
	if e.maxOrder > len(e.attributes) {
		return diffql.NewQueryError(diffql.ParseOrShapeError, "maxOrder exceeds the number of configured attributes")
	}

	outlierVals, err := t.DoubleColumn(e.outlierColumn)
	if err != nil {
		return err
	}
	attrVals, err := t.StringColumnsByName(e.attributes)
	if err != nil {
		return err
	}

	totalRows := float64(t.NumRows())
	var totalOutlierRows float64
	for _, v := range outlierVals {
		totalOutlierRows += v
	}

	e.logger.Debugw("explanation engine starting", "attributes", e.attributes, "maxOrder", e.maxOrder, "rows", t.NumRows())

	var mu sync.Mutex
	var errs []error
	var orderTables []*diffql.ColumnTable

	g, gctx := errgroup.WithContext(ctx)
	if e.threadCount > 0 {
		g.SetLimit(e.threadCount)
	}

	for k := 1; k <= e.maxOrder; k++ {
		k := k
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			tbl, perr := e.processOrder(k, attrVals, outlierVals, totalRows, totalOutlierRows)
			mu.Lock()
			defer mu.Unlock()
			if perr != nil {
				e.logger.Warnw("explanation engine order failed", "order", k, "error", perr)
				errs = append(errs, perr)
				return nil
			}
			orderTables = append(orderTables, tbl)
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return diffql.NewQueryError(diffql.ExplainEngineError, "explanation engine failed for one or more attribute orders").WithCause(multierr.Combine(errs...))
	}

	union, err := diffql.UnionAll(orderTables)
	if err != nil {
		return diffql.NewQueryError(diffql.ExplainEngineError, "failed to merge per-order results").WithCause(err)
	}
	e.results = union
	return nil
}

func (e *Engine) processOrder(k int, attrVals [][]string, outlierVals []float64, totalRows, totalOutlierRows float64) (*diffql.ColumnTable, error) {
	groups := make(map[string]*groupAccum)

	for _, combo := range combinations(len(e.attributes), k) {
		for row := range outlierVals {
			key, values := groupKey(combo, attrVals, e.attributes, row)
			g, ok := groups[key]
			if !ok {
				g = &groupAccum{values: values}
				groups[key] = g
			}
			g.outliers += outlierVals[row]
			g.count++
		}
	}

	attrCols := make([]*diffql.Column, len(e.attributes))
	for i, name := range e.attributes {
		attrCols[i] = &diffql.Column{Name: name, Type: diffql.String, Strings: []string{}}
	}
	outliersCol := &diffql.Column{Name: "outliers", Type: diffql.Double, Doubles: []float64{}}
	countCol := &diffql.Column{Name: "count", Type: diffql.Double, Doubles: []float64{}}

	for _, g := range groups {
		support := g.outliers / totalOutlierRows
		ratio := (g.outliers / g.count) / (totalOutlierRows / totalRows)
		if support < e.minSupport || ratio < e.minRatioMetric {
			continue
		}
		for i, v := range g.values {
			attrCols[i].Strings = append(attrCols[i].Strings, v)
		}
		outliersCol.Doubles = append(outliersCol.Doubles, g.outliers)
		countCol.Doubles = append(countCol.Doubles, g.count)
	}

	cols := append(append([]*diffql.Column{}, attrCols...), outliersCol, countCol)
	return diffql.NewColumnTable(cols), nil
}

// groupKey builds the grouping key and the full attrCols-aligned value tuple
// for one combination of attribute indices at one row: participating
// attributes take their row value, non-participating attributes take the
// empty string (the engine's established NULL/wildcard sentinel).
func groupKey(combo []int, attrVals [][]string, attributes []string, row int) (string, []string) {
	values := make([]string, len(attributes))
	parts := make([]string, 0, len(combo))
	comboSet := make(map[int]bool, len(combo))
	for _, idx := range combo {
		comboSet[idx] = true
		// Prefix each value with its attribute index so that equal values of
		// different attributes never share a group.
		parts = append(parts, fmt.Sprintf("%d=%s", idx, attrVals[idx][row]))
	}
	for i := range attributes {
		if comboSet[i] {
			values[i] = attrVals[i][row]
		}
	}
	return strings.Join(parts, attributeValueSeparator), values
}

// combinations returns every k-element subset of {0, ..., n-1}, as sorted
// index slices.
func combinations(n, k int) [][]int {
	var out [][]int
	combo := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			out = append(out, append([]int(nil), combo...))
			return
		}
		for i := start; i < n; i++ {
			combo[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
	return out
}
