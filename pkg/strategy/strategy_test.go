package strategy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildfunctions/evogp/pkg/ea"
	"github.com/wildfunctions/evogp/pkg/gp"
	"github.com/wildfunctions/evogp/pkg/pool"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

func buildPSet(t *testing.T, name string, numArgs int) *gp.PSet {
	t.Helper()
	p, err := pool.Get(name)
	require.NoError(t, err)
	pset, err := p.Build(numArgs)
	require.NoError(t, err)
	return pset
}

func testToolbox(t *testing.T, ops *Operators, target string) ea.FuncToolbox[*gp.Tree, symreg.Fitness] {
	t.Helper()
	ds, err := symreg.Sample(rand.New(rand.NewSource(7)), symreg.Get(target), 20)
	require.NoError(t, err)
	eval := func(ctx context.Context, tree *gp.Tree) (symreg.Fitness, error) {
		return symreg.Evaluate(ctx, tree, ds, symreg.DefaultWeights()), nil
	}
	return ops.Bind(ea.NewToolbox(eval, symreg.Better)).WithMapper(ea.SerialMapper)
}

func bestOf(pop []Individual) symreg.Fitness {
	best := symreg.WorstFitness()
	for _, ind := range pop {
		if ind.Valid() && symreg.Better(*ind.Fitness, best) {
			best = *ind.Fitness
		}
	}
	return best
}

func TestStrategyRegistry(t *testing.T) {
	assert.Equal(t, []string{"hillclimb", "mucommalambda", "mupluslambda", "simple"}, Names())
	for _, name := range Names() {
		s, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := Get("nonexistent")
	assert.Error(t, err)
}

func TestInitialize(t *testing.T) {
	pset := buildPSet(t, "kitchensink", 2)
	rng := rand.New(rand.NewSource(42))

	pop, err := Initialize(rng, pset, 60, 2, 5)
	require.NoError(t, err)
	require.Len(t, pop, 60)
	for _, ind := range pop {
		assert.False(t, ind.Valid())
		assert.True(t, ind.Value.ReturnType().AssignableTo(pool.Float))
		assert.GreaterOrEqual(t, ind.Value.Height(), 2)
		assert.LessOrEqual(t, ind.Value.Height(), 4)
	}

	_, err = Initialize(rng, pset, 10, 3, 3)
	assert.ErrorIs(t, err, gp.ErrInvalidDepth)
}

func TestMutationsStayWellTyped(t *testing.T) {
	pset := buildPSet(t, "kitchensink", 2)
	ops := &Operators{PSet: pset, Limits: DefaultLimits()}
	rng := rand.New(rand.NewSource(42))

	for mut := range numMutations {
		for range 50 {
			tree, err := gp.GenHalfAndHalf(rng, pset, 2, 5, pool.Float)
			require.NoError(t, err)
			m, err := ops.Apply(mut, rng, tree)
			require.NoError(t, err, mut.String())
			assert.True(t, m.ReturnType().AssignableTo(pool.Float), mut.String())
			_, err = m.Evaluate(1.5, -2.0)
			assert.NoError(t, err, mut.String())
		}
	}

	_, err := ops.Apply(numMutations, rng, nil)
	assert.Error(t, err)
	assert.Equal(t, "hoist", MutHoist.String())
}

func TestMateStaysWithinLimits(t *testing.T) {
	pset := buildPSet(t, "moderate", 1)
	ops := &Operators{PSet: pset, Limits: Limits{MaxHeight: 5, MaxSize: 15}}
	tb := testToolbox(t, ops, "quartic")
	rng := rand.New(rand.NewSource(42))

	for range 100 {
		a, err := gp.GenFull(rng, pset, 3, 4, pool.Float)
		require.NoError(t, err)
		b, err := gp.GenFull(rng, pset, 3, 4, pool.Float)
		require.NoError(t, err)
		ca, cb, err := tb.Mate(rng, a, b)
		require.NoError(t, err)
		assert.True(t, ops.Keep(ca))
		assert.True(t, ops.Keep(cb))

		m, err := tb.Mutate(rng, a)
		require.NoError(t, err)
		assert.True(t, ops.Keep(m))
	}
}

func TestStrategiesRun(t *testing.T) {
	pset := buildPSet(t, "conservative", 1)
	ops := &Operators{PSet: pset, Limits: DefaultLimits()}
	tb := testToolbox(t, ops, "quartic")
	params := Params{Mu: 30, Lambda: 60, CxPb: 0.5, MutPb: 0.3, Generations: 5}

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := Get(name)
			require.NoError(t, err)
			rng := rand.New(rand.NewSource(42))
			pop, err := Initialize(rng, pset, 30, 1, 4)
			require.NoError(t, err)

			gens := 0
			final, err := s.Run(context.Background(), rng, tb.WithOnGeneration(func(int, []Individual) error {
				gens++
				return nil
			}), pop, params)
			require.NoError(t, err)
			assert.Equal(t, params.Generations+1, gens)
			assert.Len(t, final, 30)
			for _, ind := range final {
				assert.True(t, ind.Valid())
			}
			t.Logf("%s best after %d gens: %.4f", name, params.Generations, bestOf(final).Combined)
		})
	}
}

func TestHillClimbNeverLosesBest(t *testing.T) {
	pset := buildPSet(t, "conservative", 1)
	ops := &Operators{PSet: pset, Limits: DefaultLimits()}
	s, err := Get("hillclimb")
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))
	pop, err := Initialize(rng, pset, 20, 1, 4)
	require.NoError(t, err)

	var history []symreg.Fitness
	tb := testToolbox(t, ops, "poly3").WithOnGeneration(func(_ int, pop []Individual) error {
		history = append(history, bestOf(pop))
		return nil
	})
	_, err = s.Run(context.Background(), rng, tb, pop, Params{Generations: 10})
	require.NoError(t, err)
	require.Len(t, history, 11)
	for i := 1; i < len(history); i++ {
		assert.False(t, symreg.Better(history[i-1], history[i]), "generation %d got worse", i)
	}
}
