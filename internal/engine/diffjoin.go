package engine

import (
	"context"
	"errors"

	"github.com/outlierql/diffql"
)

// fusedFallbackError signals that a DiffQuerySpec matched the DIFF-JOIN
// shape structurally but violates one of §4.6's runtime assumptions (key
// type, single explain column, ratio metric); the caller falls back to the
// general DIFF path rather than failing the query (spec.md §4.6: "out-of-
// assumption shapes fall back to the general path").
type fusedFallbackError struct{ reason string }

func (e *fusedFallbackError) Error() string { return "diff-join fallback: " + e.reason }

func isFusedAssumptionViolation(err error) bool {
	var f *fusedFallbackError
	return errors.As(err, &f)
}

// tryFusedShape detects spec.md §4.6's Shape A eligibility: both DIFF
// subqueries are unfiltered natural inner joins sharing the same right-hand
// (dimension) relation with distinct left-hand relations.
func (disp *Dispatcher) tryFusedShape(d *diffql.DiffQuerySpec) (bool, *diffql.Join, *diffql.Join) {
	if d.Left == nil || d.Right == nil {
		return false, nil, nil
	}
	leftJoin, ok := asNaturalInnerJoin(d.Left)
	if !ok {
		return false, nil, nil
	}
	rightJoin, ok := asNaturalInnerJoin(d.Right)
	if !ok {
		return false, nil, nil
	}

	tName, ok1 := relationIdentity(leftJoin.Right)
	sharedName, ok2 := relationIdentity(rightJoin.Right)
	if !ok1 || !ok2 || tName != sharedName {
		return false, nil, nil
	}
	rName, _ := relationIdentity(leftJoin.Left)
	sName, _ := relationIdentity(rightJoin.Left)
	if rName != "" && rName == sName {
		return false, nil, nil
	}
	return true, leftJoin, rightJoin
}

func asNaturalInnerJoin(spec *diffql.QuerySpec) (*diffql.Join, bool) {
	if spec.Where != nil {
		return nil, false
	}
	j, ok := spec.From.(*diffql.Join)
	if !ok || j.Type != diffql.InnerJoin {
		return nil, false
	}
	if _, ok := j.Criteria.(*diffql.NaturalCriteria); !ok {
		return nil, false
	}
	return j, true
}

func relationIdentity(rel diffql.Relation) (string, bool) {
	switch r := rel.(type) {
	case *diffql.TableRef:
		return r.Name, true
	case *diffql.AliasedRelation:
		return r.Alias, true
	default:
		return "", false
	}
}

// evaluateDiffJoin implements the DIFF-JOIN Fused Evaluator (spec.md §4.6):
// encode-and-diff on the shared join key, semi-join the dimension table
// against the ratio-qualifying candidate keys, then merge and prune value
// counts.
func (disp *Dispatcher) evaluateDiffJoin(ctx context.Context, leftJoin, rightJoin *diffql.Join, d *diffql.DiffQuerySpec) (*diffql.ColumnTable, error) {
	if d.RatioMetric != "global_ratio" {
		return nil, &fusedFallbackError{"ratio metric is not global_ratio"}
	}
	if d.Wildcard || len(d.Attributes) != 1 {
		return nil, &fusedFallbackError{"fused path requires exactly one explain column"}
	}

	rTable, _, err := disp.resolveRelation(ctx, leftJoin.Left)
	if err != nil {
		return nil, err
	}
	sTable, _, err := disp.resolveRelation(ctx, rightJoin.Left)
	if err != nil {
		return nil, err
	}
	tTable, _, err := disp.resolveRelation(ctx, leftJoin.Right)
	if err != nil {
		return nil, err
	}

	keyCol, err := resolveJoinColumn(rTable, tTable, &diffql.NaturalCriteria{})
	if err != nil {
		return nil, &fusedFallbackError{"no single shared natural-join key between R and T"}
	}
	if otherKey, err := resolveJoinColumn(sTable, tTable, &diffql.NaturalCriteria{}); err != nil || otherKey != keyCol {
		return nil, &fusedFallbackError{"R/T and S/T natural joins do not share the same key column"}
	}

	keyType, ok := rTable.Schema().TypeOf(keyCol)
	if !ok || keyType != diffql.String {
		return nil, &fusedFallbackError{"join key is not a String column"}
	}

	explainCol := d.Attributes[0]
	if t, ok := tTable.Schema().TypeOf(explainCol); !ok || t != diffql.String {
		return nil, &fusedFallbackError{"explain column is not a String column on the dimension table"}
	}

	kR, err := rTable.StringColumn(keyCol)
	if err != nil {
		return nil, err
	}
	kS, err := sTable.StringColumn(keyCol)
	if err != nil {
		return nil, err
	}
	kT, err := tTable.StringColumn(keyCol)
	if err != nil {
		return nil, err
	}
	vT, err := tTable.StringColumn(explainCol)
	if err != nil {
		return nil, err
	}

	nR, nS := len(kR), len(kS)

	enc := NewAttributeEncoder()
	encoded := enc.EncodeKeyValueAttributes([][]string{kR, kS, kT}, [][]string{vT})
	kRCodes, kSCodes, kTCodes, vTCodes := encoded[0], encoded[1], encoded[2], encoded[3]

	globalRatioDenom := float64(nR) / float64(nR+nS)
	minRatioThreshold := d.MinRatio * globalRatioDenom
	minSupportThreshold := int(d.MinSupport * float64(nR)) // corrected form, see spec.md §9 note 1.

	// Phase 1: encode-and-diff on the join key.
	M := CountPairMap{}
	for _, code := range kRCodes {
		M.AddA(code)
	}
	for _, code := range kSCodes {
		M.AddB(code)
	}
	K := NewSet[int32]()
	for code, pair := range M {
		if pair.Ratio() > minRatioThreshold {
			K.Add(code)
		}
	}

	// Phase 2: semi-join T against K, merge value counts.
	V := CountPairMap{}
	for i, k := range kTCodes {
		if K.Contains(k) {
			V.Accumulate(vTCodes[i], M.GetOrZero(k))
		}
	}
	for i, k := range kTCodes {
		v := vTCodes[i]
		if _, ok := V[v]; ok && !K.Contains(k) {
			V.Accumulate(v, M.GetOrZero(k))
		}
	}
	for v, pair := range V {
		if int(pair.A) < minSupportThreshold || pair.Ratio() < minRatioThreshold {
			delete(V, v)
		}
	}

	// Phase 3: materialize results.
	xCol := &diffql.Column{Name: explainCol, Type: diffql.String, Strings: []string{}}
	supportCol := &diffql.Column{Name: "support", Type: diffql.Double, Doubles: []float64{}}
	ratioCol := &diffql.Column{Name: "global_ratio", Type: diffql.Double, Doubles: []float64{}}
	outlierCountCol := &diffql.Column{Name: "outlier_count", Type: diffql.Double, Doubles: []float64{}}
	totalCountCol := &diffql.Column{Name: "total_count", Type: diffql.Double, Doubles: []float64{}}

	for v, pair := range V {
		decoded, err := enc.DecodeValue(v)
		if err != nil {
			return nil, err
		}
		a, b := float64(pair.A), float64(pair.B)
		xCol.Strings = append(xCol.Strings, decoded)
		supportCol.Doubles = append(supportCol.Doubles, a/float64(nR))
		ratioCol.Doubles = append(ratioCol.Doubles, (a/(a+b))/globalRatioDenom)
		outlierCountCol.Doubles = append(outlierCountCol.Doubles, a)
		totalCountCol.Doubles = append(totalCountCol.Doubles, a+b)
	}

	result := diffql.NewColumnTable([]*diffql.Column{xCol, supportCol, ratioCol, outlierCountCol, totalCountCol})

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
