package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/outlierql/diffql"
)

const outlierColumnName = "outlier_col"

// executeDiffQuerySpec implements the DIFF Evaluator (spec.md §4.5). It
// builds a tagged "table to explain" T* by one of two shapes, hands it to the
// explanation engine, and post-processes the result.
func (disp *Dispatcher) executeDiffQuerySpec(ctx context.Context, d *diffql.DiffQuerySpec) (*diffql.ColumnTable, error) {
	if fused, leftJoin, rightJoin := disp.tryFusedShape(d); fused {
		result, err := disp.evaluateDiffJoin(ctx, leftJoin, rightJoin, d)
		if err == nil {
			return result, nil
		}
		if !isFusedAssumptionViolation(err) {
			return nil, err
		}
		// Assumption check inside the fused evaluator failed after the shape
		// check passed (e.g. non-String key, multiple explain columns):
		// fall back to the general path rather than failing the query.
	}

	tStar, err := disp.buildTaggedTable(ctx, d)
	if err != nil {
		return nil, err
	}

	attrs, err := disp.resolveAttributes(tStar, d)
	if err != nil {
		return nil, err
	}

	disp.Explain.SetRatioMetric(d.RatioMetric)
	disp.Explain.SetMaxOrder(d.MaxOrder)
	disp.Explain.SetMinSupport(d.MinSupport)
	disp.Explain.SetMinRatioMetric(d.MinRatio)
	disp.Explain.SetOutlierColumn(outlierColumnName)
	disp.Explain.SetAttributes(attrs)
	disp.Explain.SetThreadCount(disp.Config.Diff.ThreadCount)

	// spec.md §9 note 2 flags the source's catch-log-and-continue behavior as
	// a bug; this reimplementation propagates the failure instead.
	if err := disp.Explain.Process(ctx, tStar); err != nil {
		return nil, diffql.NewQueryError(diffql.ExplainEngineError, "explanation engine failed").WithCause(err)
	}

	result := disp.Explain.Results()
	result = result.RenameColumn("outliers", "outlier_count")
	result = result.RenameColumn("count", "total_count")

	result, err = materializeUDFs(result, d.Select, disp.UDFs)
	if err != nil {
		return nil, err
	}
	result, err = applySelect(result, d.Select)
	if err != nil {
		return nil, err
	}
	return applyOrderAndLimit(result, d.OrderBy, d.Limit)
}

// buildTaggedTable produces T* with its binary outlier_col column, per
// Shape A (two subqueries, unioned) or Shape B (SPLIT ... WHERE).
func (disp *Dispatcher) buildTaggedTable(ctx context.Context, d *diffql.DiffQuerySpec) (*diffql.ColumnTable, error) {
	if d.Split != nil {
		base, _, err := disp.resolveRelation(ctx, d.Split.From)
		if err != nil {
			return nil, err
		}
		mask, err := EvaluatePredicateMask(base, d.Split.Where, disp.UDFs)
		if err != nil {
			return nil, err
		}
		tag := make([]float64, base.NumRows())
		for i := 0; i < base.NumRows(); i++ {
			if mask.Get(i) {
				tag[i] = 1.0
			}
		}
		return base.AddColumn(&diffql.Column{Name: outlierColumnName, Type: diffql.Double, Doubles: tag}), nil
	}

	outlierSide, err := disp.executeQuerySpec(ctx, d.Left)
	if err != nil {
		return nil, err
	}
	inlierSide, err := disp.executeQuerySpec(ctx, d.Right)
	if err != nil {
		return nil, err
	}
	outlierSide = outlierSide.AddColumn(constantColumn(outlierColumnName, 1.0, outlierSide.NumRows()))
	inlierSide = inlierSide.AddColumn(constantColumn(outlierColumnName, 0.0, inlierSide.NumRows()))
	return diffql.UnionAll([]*diffql.ColumnTable{outlierSide, inlierSide})
}

func constantColumn(name string, value float64, n int) *diffql.Column {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = value
	}
	return &diffql.Column{Name: name, Type: diffql.Double, Doubles: vals}
}

// resolveAttributes honors an explicit ON attribute list, or auto-selects
// categorical columns for `ON *` (spec.md §4.5 step 1).
func (disp *Dispatcher) resolveAttributes(t *diffql.ColumnTable, d *diffql.DiffQuerySpec) ([]string, error) {
	if !d.Wildcard {
		for _, name := range d.Attributes {
			if _, ok := t.Schema().TypeOf(name); !ok {
				return nil, diffql.NewQueryError(diffql.ColumnNotFound, fmt.Sprintf("ON attribute %q not found", name)).WithIdentifier(name)
			}
		}
		return d.Attributes, nil
	}

	sampleSize := disp.Config.AutoSelect.SampleSize
	if sampleSize <= 0 {
		sampleSize = 1000
	}
	if sampleSize > t.NumRows() {
		sampleSize = t.NumRows()
	}
	maxDistinctRatio := disp.Config.AutoSelect.MaxDistinctRatio
	if maxDistinctRatio <= 0 {
		maxDistinctRatio = 0.25
	}
	threshold := float64(sampleSize) * maxDistinctRatio

	var chosen []string
	for _, name := range t.Schema().NamesOfType(diffql.String) {
		col := t.ColumnByName(name)
		distinct := make(map[string]struct{})
		for i := 0; i < sampleSize; i++ {
			distinct[col.Strings[i]] = struct{}{}
		}
		if float64(len(distinct)) < threshold {
			chosen = append(chosen, name)
		}
	}
	sort.Strings(chosen)
	disp.Logger.Infow("auto-selected explain attribute columns", "columns", chosen, "sampleSize", sampleSize)
	return chosen, nil
}
