package symreg

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfunctions/evogp/pkg/gp"
)

var (
	addF = gp.Func2(func(a, b float64) float64 { return a + b })
	mulF = gp.Func2(func(a, b float64) float64 { return a * b })
	divF = gp.Func2(func(a, b float64) float64 { return a / b })
	xF   = gp.Arg[float64](0)
	oneF = gp.Constant(1.0)
)

func node(t *testing.T, f gp.Factory, children ...*gp.Tree) *gp.Tree {
	t.Helper()
	n, err := f.CreateNode(nil, children)
	require.NoError(t, err)
	return n
}

func sampleTarget(t *testing.T, name string, n int) *Dataset {
	t.Helper()
	target := Get(name)
	require.NotNil(t, target)
	ds, err := Sample(rand.New(rand.NewSource(1)), target, n)
	require.NoError(t, err)
	return ds
}

func TestTargets(t *testing.T) {
	assert.Contains(t, Names(), "poly3")
	assert.Nil(t, Get("missing"))
	for _, name := range Names() {
		target := Get(name)
		require.NotNil(t, target, name)
		assert.Equal(t, name, target.Name)
		assert.Positive(t, target.Arity)
		assert.Less(t, target.Lo, target.Hi)
	}
	assert.Equal(t, 0.0, Get("poly3").Fn([]float64{99}))
	assert.Equal(t, 4.0, Get("quartic").Fn([]float64{1}))
}

func TestSample(t *testing.T) {
	target := Get("plane")
	ds, err := Sample(rand.New(rand.NewSource(3)), target, 50)
	require.NoError(t, err)
	require.Equal(t, 50, ds.Len())
	for i, x := range ds.Inputs {
		require.Len(t, x, 2)
		for _, v := range x {
			assert.GreaterOrEqual(t, v, target.Lo)
			assert.Less(t, v, target.Hi)
		}
		assert.Equal(t, target.Fn(x), ds.Outputs[i])
	}

	again, err := Sample(rand.New(rand.NewSource(3)), target, 50)
	require.NoError(t, err)
	assert.Equal(t, ds, again)

	_, err = Sample(rand.New(rand.NewSource(3)), target, 0)
	assert.Error(t, err)
}

func TestEvaluateExactTree(t *testing.T) {
	ds := sampleTarget(t, "poly3", 40)
	x := node(t, xF)
	// x * (x + 1) * (x - 99), with x - 99 spelled as x + (-99)
	minus99 := gp.Constant(-99.0)
	tree := node(t, mulF,
		node(t, mulF, x, node(t, addF, x, node(t, oneF))),
		node(t, addF, x, node(t, minus99)),
	)

	fit := Evaluate(context.Background(), tree, ds, DefaultWeights())
	assert.InDelta(t, 0, fit.MSE, 1e-6)
	assert.Equal(t, 40, fit.Hits)
	assert.Equal(t, tree.Size(), fit.Size)
	assert.InDelta(t, -DefaultWeights().Complexity*float64(tree.Size()), fit.Combined, 1e-6)
}

func TestEvaluateRanksCloserTreesHigher(t *testing.T) {
	ds := sampleTarget(t, "quartic", 30)
	x := node(t, xF)
	// x + x^2 is closer to the quartic than the constant 1
	near := node(t, addF, x, node(t, mulF, x, x))
	far := node(t, oneF)

	fc := Evaluate(context.Background(), near, ds, DefaultWeights())
	ff := Evaluate(context.Background(), far, ds, DefaultWeights())
	assert.Less(t, fc.MSE, ff.MSE)
	assert.True(t, Better(fc, ff))
	assert.False(t, Better(ff, fc))
}

func TestEvaluateNonFinite(t *testing.T) {
	ds := sampleTarget(t, "quartic", 10)
	zero := gp.Constant(0.0)
	// 1/0 folds to +Inf
	tree := node(t, divF, node(t, oneF), node(t, zero))

	fit := Evaluate(context.Background(), tree, ds, DefaultWeights())
	assert.True(t, fit.IsWorst())
	assert.Equal(t, math.MaxFloat64, fit.MSE)
}

func TestEvaluateWrongArity(t *testing.T) {
	ds := sampleTarget(t, "quartic", 10)
	tree := node(t, gp.Arg[float64](1))

	fit := Evaluate(context.Background(), tree, ds, DefaultWeights())
	assert.True(t, fit.IsWorst())
}

func TestEvaluateCancelled(t *testing.T) {
	ds := sampleTarget(t, "quartic", 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fit := Evaluate(ctx, node(t, xF), ds, DefaultWeights())
	assert.True(t, fit.IsWorst())
}

func TestBetterTieBreaksOnSize(t *testing.T) {
	a := Fitness{Combined: -1, Size: 3}
	b := Fitness{Combined: -1, Size: 5}
	assert.True(t, Better(a, b))
	assert.False(t, Better(b, a))
	assert.True(t, Better(b, WorstFitness()))
}

func TestComputeFitness(t *testing.T) {
	w := FitnessWeights{Accuracy: 1, Complexity: 0.5}
	f := ComputeFitness(18, 0, 2, 4, w)
	assert.Equal(t, 9.0, f.MSE)
	assert.InDelta(t, -1-2, f.Combined, 1e-12)

	assert.True(t, ComputeFitness(math.NaN(), 0, 2, 1, w).IsWorst())
	assert.True(t, ComputeFitness(math.Inf(1), 0, 2, 1, w).IsWorst())
}
