package engine

import (
	"context"
	"testing"

	"github.com/outlierql/diffql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func naturalJoinSpec(left diffql.Relation, right diffql.Relation) *diffql.QuerySpec {
	return &diffql.QuerySpec{
		From: &diffql.Join{
			Left:     left,
			Right:    right,
			Type:     diffql.InnerJoin,
			Criteria: &diffql.NaturalCriteria{},
		},
		Select: []diffql.SelectItem{diffql.AllColumns{}},
	}
}

func TestTryFusedShapeDetectsSharedDimension(t *testing.T) {
	disp := newDispatcher()
	d := &diffql.DiffQuerySpec{
		Left:  naturalJoinSpec(&diffql.TableRef{Name: "r"}, &diffql.TableRef{Name: "t"}),
		Right: naturalJoinSpec(&diffql.TableRef{Name: "s"}, &diffql.TableRef{Name: "t"}),
	}

	fused, leftJoin, rightJoin := disp.tryFusedShape(d)
	require.True(t, fused)
	assert.NotNil(t, leftJoin)
	assert.NotNil(t, rightJoin)
}

func TestTryFusedShapeRejectsDifferentDimensionTables(t *testing.T) {
	disp := newDispatcher()
	d := &diffql.DiffQuerySpec{
		Left:  naturalJoinSpec(&diffql.TableRef{Name: "r"}, &diffql.TableRef{Name: "t1"}),
		Right: naturalJoinSpec(&diffql.TableRef{Name: "s"}, &diffql.TableRef{Name: "t2"}),
	}

	fused, _, _ := disp.tryFusedShape(d)
	assert.False(t, fused)
}

func TestTryFusedShapeRejectsFilteredSubquery(t *testing.T) {
	disp := newDispatcher()
	filtered := naturalJoinSpec(&diffql.TableRef{Name: "r"}, &diffql.TableRef{Name: "t"})
	filtered.Where = &diffql.Comparison{Left: &diffql.Identifier{Name: "x"}, Op: diffql.OpGt, Right: &diffql.DoubleLiteral{Value: 1}}

	d := &diffql.DiffQuerySpec{
		Left:  filtered,
		Right: naturalJoinSpec(&diffql.TableRef{Name: "s"}, &diffql.TableRef{Name: "t"}),
	}

	fused, _, _ := disp.tryFusedShape(d)
	assert.False(t, fused, "a WHERE-filtered subquery is not an eligible Shape A join")
}

func TestTryFusedShapeRejectsSameLeftRelation(t *testing.T) {
	disp := newDispatcher()
	d := &diffql.DiffQuerySpec{
		Left:  naturalJoinSpec(&diffql.TableRef{Name: "r"}, &diffql.TableRef{Name: "t"}),
		Right: naturalJoinSpec(&diffql.TableRef{Name: "r"}, &diffql.TableRef{Name: "t"}),
	}

	fused, _, _ := disp.tryFusedShape(d)
	assert.False(t, fused, "R and S must be distinct relations")
}

// TestDiffJoinInvariantSupportAndRatioThresholds covers spec.md §8 invariant
// 3: every surviving output row clears both thresholds.
func TestDiffJoinInvariantSupportAndRatioThresholds(t *testing.T) {
	disp := newDispatcher()
	disp.Store.Import("r", diffql.NewColumnTable([]*diffql.Column{
		{Name: "A", Type: diffql.String, Strings: []string{"a", "a", "a", "b"}},
	}))
	disp.Store.Import("s", diffql.NewColumnTable([]*diffql.Column{
		{Name: "A", Type: diffql.String, Strings: []string{"c", "d", "e", "e", "e"}},
	}))
	disp.Store.Import("t", diffql.NewColumnTable([]*diffql.Column{
		{Name: "A", Type: diffql.String, Strings: []string{"a", "b", "c", "d", "e"}},
		{Name: "state", Type: diffql.String, Strings: []string{"CA", "CA", "TX", "TX", "FL"}},
	}))

	body := &diffql.DiffQuerySpec{
		Left:        naturalJoinSpec(&diffql.TableRef{Name: "r"}, &diffql.TableRef{Name: "t"}),
		Right:       naturalJoinSpec(&diffql.TableRef{Name: "s"}, &diffql.TableRef{Name: "t"}),
		Attributes:  []string{"state"},
		RatioMetric: "global_ratio",
		MaxOrder:    1,
		MinSupport:  0.1,
		MinRatio:    1.1,
		Select:      []diffql.SelectItem{diffql.AllColumns{}},
	}

	nR := 4
	nS := 5
	minRatioThreshold := body.MinRatio * (float64(nR) / float64(nR+nS))
	minSupportThreshold := int(body.MinSupport * float64(nR))

	result, err := disp.Execute(context.Background(), body)
	require.NoError(t, err)

	outlierCounts := result.ColumnByName("outlier_count").Doubles
	totalCounts := result.ColumnByName("total_count").Doubles
	ratios := result.ColumnByName("global_ratio").Doubles
	globalRatioDenom := float64(nR) / float64(nR+nS)

	for i := range outlierCounts {
		a, total := outlierCounts[i], totalCounts[i]
		assert.GreaterOrEqual(t, int(a), minSupportThreshold)
		assert.GreaterOrEqual(t, a/total, minRatioThreshold)
		assert.InDelta(t, (a/total)/globalRatioDenom, ratios[i], 1e-9)
	}
}
