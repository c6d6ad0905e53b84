package engine

import "github.com/outlierql/diffql"

// materializeUDFs evaluates every FunctionCall SELECT item and appends its
// result as a named Double column, before WHERE runs (spec.md §4.7, §4.1:
// "UDFs must be materialized before WHERE so filters can reference
// UDF-produced columns"). The materialized column's name is the SelectItem's
// textual form (alias if present, else the rendered FunctionCall), matching
// §4.7 exactly, so a later WHERE/ORDER BY clause can reference it by
// identifier.
func materializeUDFs(d *diffql.ColumnTable, items []diffql.SelectItem, udfs diffql.UDFRegistry) (*diffql.ColumnTable, error) {
	for _, item := range items {
		sc, ok := item.(diffql.SingleColumn)
		if !ok {
			continue
		}
		fn, ok := sc.Expr.(*diffql.FunctionCall)
		if !ok {
			continue
		}
		if udfs == nil {
			return nil, diffql.NewQueryError(diffql.UnsupportedOperator, "no UDF registry configured").WithIdentifier(fn.Name)
		}
		udf, err := udfs.GetFunction(fn.Name, fn.Arg)
		if err != nil {
			return nil, err
		}
		vals, err := udf(d)
		if err != nil {
			return nil, err
		}
		d = d.AddColumn(&diffql.Column{Name: sc.Text(), Type: diffql.Double, Doubles: vals})
	}
	return d, nil
}
