package pool

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfunctions/evogp/pkg/gp"
)

// evaluatesCleanly generates trees from the named pool and reports the share
// whose value is finite at a handful of inputs.
func evaluatesCleanly(t *testing.T, name string) float64 {
	t.Helper()
	p, err := Get(name)
	require.NoError(t, err)
	pset, err := p.Build(1)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	successes, total := 0, 1000
	for range total {
		tree, err := gp.GenHalfAndHalf(rng, pset, 1, 4, Float)
		require.NoError(t, err)
		ok := true
		for _, x := range []float64{-3, 0.5, 2, 7} {
			v, err := tree.Evaluate(x)
			require.NoError(t, err)
			f := v.(float64)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				ok = false
			}
		}
		if ok {
			successes++
		}
	}
	t.Logf("%s pool: %d/%d trees evaluated cleanly", name, successes, total)
	return float64(successes) / float64(total)
}

func TestConservativePool(t *testing.T) {
	assert.Equal(t, 1.0, evaluatesCleanly(t, "conservative"))
}

func TestModeratePool(t *testing.T) {
	assert.GreaterOrEqual(t, evaluatesCleanly(t, "moderate"), 0.95)
}

func TestKitchenSinkPool(t *testing.T) {
	assert.GreaterOrEqual(t, evaluatesCleanly(t, "kitchensink"), 0.9)

	p, err := Get("kitchensink")
	require.NoError(t, err)
	pset, err := p.Build(2)
	require.NoError(t, err)
	assert.Contains(t, pset.PrimitivesAssignableTo(gp.TypeOf[bool]()), "lt")
	assert.Contains(t, pset.TerminalsAssignableTo(gp.TypeOf[bool]()), "true")
	assert.Subset(t, pset.Terminals(), []string{"x0", "x1"})
}

func TestPoolRegistry(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{"conservative", "kitchensink", "moderate"}, names)

	for _, name := range names {
		p, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())

		pset, err := p.Build(3)
		require.NoError(t, err)
		assert.Equal(t, Float, pset.ReturnType())
		for i := range 3 {
			_, ok := pset.Lookup(ArgName(i, 3))
			assert.True(t, ok)
		}
	}
}

func TestBuildIsFresh(t *testing.T) {
	p, err := Get("conservative")
	require.NoError(t, err)
	a, err := p.Build(1)
	require.NoError(t, err)
	b, err := p.Build(1)
	require.NoError(t, err)
	fa, _ := a.Lookup("add")
	fb, _ := b.Lookup("add")
	assert.NotSame(t, fa, fb)
}

func TestBuildErrors(t *testing.T) {
	_, err := Get("nonexistent")
	assert.Error(t, err)

	p, err := Get("moderate")
	require.NoError(t, err)
	_, err = p.Build(0)
	assert.Error(t, err)
}

func TestProtectedOps(t *testing.T) {
	assert.Equal(t, 1.0, div(5, 0))
	assert.Equal(t, 2.5, div(5, 2))
	assert.Equal(t, 0.0, ln(0))
	assert.InDelta(t, math.Log(2), ln(-2), 1e-12)
	assert.Equal(t, 3.0, sqrt(-9))
	rng := rand.New(rand.NewSource(42))
	for range 100 {
		v := powerOf2or3(rng)
		assert.Contains(t, []float64{2, 4, 8, 16, 3, 9, 27}, v)
	}
}
