package engine

import (
	"context"
	"fmt"

	"github.com/outlierql/diffql"
	"go.uber.org/zap"
)

// Dispatcher executes a query body against a TableStore (spec.md §4.1). It is
// the sole entry point analogous to the teacher's queryoptimizer dispatch:
// normalize the incoming node, switch on its concrete kind, delegate to the
// matching evaluator.
type Dispatcher struct {
	Store   *TableStore
	UDFs    diffql.UDFRegistry
	Explain diffql.ExplanationEngine
	Config  diffql.EngineConfig
	Logger  *zap.SugaredLogger
}

// NewDispatcher constructs a Dispatcher. A nil logger falls back to a no-op
// logger; the UDF registry is always the built-in catalog.
func NewDispatcher(store *TableStore, explain diffql.ExplanationEngine, cfg diffql.EngineConfig, logger *zap.SugaredLogger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		Store:   store,
		UDFs:    diffql.NewBuiltinUDFRegistry(),
		Explain: explain,
		Config:  cfg,
		Logger:  logger,
	}
}

// Execute dispatches body to the standard or DIFF execution path (spec.md §4.1).
func (disp *Dispatcher) Execute(ctx context.Context, body diffql.QueryBody) (*diffql.ColumnTable, error) {
	disp.Logger.Debugw("dispatching query", "kind", fmt.Sprintf("%T", body))
	switch v := body.(type) {
	case *diffql.QuerySpec:
		return disp.executeQuerySpec(ctx, v)
	case *diffql.DiffQuerySpec:
		return disp.executeDiffQuerySpec(ctx, v)
	default:
		return nil, diffql.NewQueryError(diffql.ParseOrShapeError, fmt.Sprintf("unsupported query body %T", body))
	}
}

// executeQuerySpec runs the standard-clause pipeline: UDF materialization ->
// WHERE -> SELECT -> ORDER BY -> LIMIT (spec.md §4.1).
func (disp *Dispatcher) executeQuerySpec(ctx context.Context, spec *diffql.QuerySpec) (*diffql.ColumnTable, error) {
	d, _, err := disp.resolveRelation(ctx, spec.From)
	if err != nil {
		return nil, err
	}

	d, err = materializeUDFs(d, spec.Select, disp.UDFs)
	if err != nil {
		return nil, err
	}

	if spec.Where != nil {
		mask, err := EvaluatePredicateMask(d, spec.Where, disp.UDFs)
		if err != nil {
			return nil, err
		}
		d = d.Filter(mask)
	}

	d, err = applySelect(d, spec.Select)
	if err != nil {
		return nil, err
	}

	return applyOrderAndLimit(d, spec.OrderBy, spec.Limit)
}

// resolveRelation materializes a FROM-clause relation into a ColumnTable,
// returning an identity name used only for join-column qualification
// (spec.md §4.3); joins themselves have no single identity and return "".
func (disp *Dispatcher) resolveRelation(ctx context.Context, rel diffql.Relation) (*diffql.ColumnTable, string, error) {
	switch r := rel.(type) {
	case *diffql.TableRef:
		t, err := disp.Store.Get(r.Name)
		if err != nil {
			return nil, "", err
		}
		return t, r.Name, nil
	case *diffql.AliasedRelation:
		t, _, err := disp.resolveRelation(ctx, r.Relation)
		if err != nil {
			return nil, "", err
		}
		return t, r.Alias, nil
	case *diffql.Subquery:
		t, err := disp.executeQuerySpec(ctx, r.Query)
		if err != nil {
			return nil, "", err
		}
		return t, r.Alias, nil
	case *diffql.Join:
		if r.Type != diffql.InnerJoin {
			return nil, "", diffql.NewQueryError(diffql.UnsupportedOperator, fmt.Sprintf("unsupported join type %q", r.Type))
		}
		leftTable, leftName, err := disp.resolveRelation(ctx, r.Left)
		if err != nil {
			return nil, "", err
		}
		rightTable, rightName, err := disp.resolveRelation(ctx, r.Right)
		if err != nil {
			return nil, "", err
		}
		joined, err := InnerJoin(leftName, leftTable, rightName, rightTable, r.Criteria)
		if err != nil {
			return nil, "", err
		}
		return joined, "", nil
	default:
		return nil, "", diffql.NewQueryError(diffql.ParseOrShapeError, fmt.Sprintf("unsupported FROM relation %T", rel))
	}
}

// applySelect projects d onto the requested SELECT items. An empty item list
// or a sole AllColumns is a no-op (the table already carries every
// materialized column); a SingleColumn must resolve to an Identifier,
// Dereference, or a already-materialized FunctionCall, else ParseOrShapeError
// (spec.md §4.1: "any SELECT item not an AllColumns or SingleColumn" fails the
// same way).
func applySelect(d *diffql.ColumnTable, items []diffql.SelectItem) (*diffql.ColumnTable, error) {
	if len(items) == 0 {
		return d, nil
	}
	if len(items) == 1 {
		if _, ok := items[0].(diffql.AllColumns); ok {
			return d, nil
		}
	}

	sourceNames := make([]string, len(items))
	outputNames := make([]string, len(items))
	for i, item := range items {
		sc, ok := item.(diffql.SingleColumn)
		if !ok {
			return nil, diffql.NewQueryError(diffql.ParseOrShapeError, fmt.Sprintf("unsupported SELECT item %T", item))
		}
		name, err := selectSourceName(sc)
		if err != nil {
			return nil, err
		}
		sourceNames[i] = name
		outputNames[i] = sc.Text()
	}

	projected, err := d.Project(sourceNames)
	if err != nil {
		return nil, err
	}
	for i := range outputNames {
		if outputNames[i] != sourceNames[i] {
			projected = projected.RenameColumn(sourceNames[i], outputNames[i])
		}
	}
	return projected, nil
}

func selectSourceName(sc diffql.SingleColumn) (string, error) {
	switch v := sc.Expr.(type) {
	case *diffql.Identifier:
		return v.Name, nil
	case *diffql.Dereference:
		return v.Qualifier + "." + v.Name, nil
	case *diffql.FunctionCall:
		// Materialized by materializeUDFs under its textual (alias-aware) name.
		return sc.Text(), nil
	default:
		return "", diffql.NewQueryError(diffql.ParseOrShapeError, fmt.Sprintf("unsupported SELECT expression %T", sc.Expr))
	}
}

// applyOrderAndLimit applies ORDER BY (single column only, spec.md §9 note 5)
// and LIMIT, in that order.
func applyOrderAndLimit(d *diffql.ColumnTable, orderBy *diffql.OrderByClause, limit *int) (*diffql.ColumnTable, error) {
	if orderBy != nil {
		name, err := orderByColumnName(orderBy.Expr)
		if err != nil {
			return nil, err
		}
		d, err = d.OrderBy(name, orderBy.Ascending)
		if err != nil {
			return nil, err
		}
	}
	if limit != nil {
		d = d.Limit(*limit)
	}
	return d, nil
}

func orderByColumnName(e diffql.Expression) (string, error) {
	switch v := e.(type) {
	case *diffql.Identifier:
		return v.Name, nil
	case *diffql.Dereference:
		return v.Qualifier + "." + v.Name, nil
	default:
		return "", diffql.NewQueryError(diffql.ParseOrShapeError, fmt.Sprintf("unsupported ORDER BY expression %T", e))
	}
}
