package ea

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Individuals are integers; fitness is the distance to 42, lower is better.
func distance(_ context.Context, v int) (int, error) {
	d := v - 42
	if d < 0 {
		d = -d
	}
	return d, nil
}

func lower(a, b int) bool { return a < b }

func intToolbox() FuncToolbox[int, int] {
	return NewToolbox(EvaluateFunc[int, int](distance), lower).
		WithMate(func(_ *rand.Rand, a, b int) (int, int, error) {
			return (a + b) / 2, (a + b + 1) / 2, nil
		}).
		WithMutate(func(rng *rand.Rand, v int) (int, error) {
			return v + rng.Intn(11) - 5, nil
		})
}

func randomInts(rng *rand.Rand, n int) []Individual[int, int] {
	vals := make([]int, n)
	for i := range vals {
		vals[i] = rng.Intn(1000) - 500
	}
	return New[int, int](vals...)
}

func best(pop []Individual[int, int]) int {
	return *SelBest(pop, 1, lower)[0].Fitness
}

func TestEvaluateInvalid(t *testing.T) {
	var calls atomic.Int32
	tb := intToolbox().WithEvaluate(func(ctx context.Context, v int) (int, error) {
		calls.Add(1)
		return distance(ctx, v)
	})
	pop := New[int, int](40, 50, 42)
	kept := 7
	pop[1].Fitness = &kept

	n, err := EvaluateInvalid(context.Background(), tb, pop)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, *pop[0].Fitness)
	assert.Equal(t, 7, *pop[1].Fitness)
	assert.Equal(t, 0, *pop[2].Fitness)
}

func TestEvaluateInvalidError(t *testing.T) {
	boom := errors.New("boom")
	tb := intToolbox().WithEvaluate(func(context.Context, int) (int, error) { return 0, boom })
	_, err := EvaluateInvalid(context.Background(), tb, New[int, int](1, 2, 3))
	assert.ErrorIs(t, err, boom)
}

func TestMappersPreserveOrder(t *testing.T) {
	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}
	square := func(_ context.Context, v int) (int, error) { return v * v, nil }

	for name, m := range map[string]Mapper{"serial": SerialMapper, "parallel": ParallelMapper(8)} {
		t.Run(name, func(t *testing.T) {
			out, err := Map(context.Background(), m, items, square)
			require.NoError(t, err)
			for i, v := range out {
				assert.Equal(t, i*i, v)
			}
		})
	}
}

func TestParallelMapperStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), ParallelMapper(2), []int{1, 2, 3, 4}, func(_ context.Context, v int) (int, error) {
		if v == 3 {
			return 0, boom
		}
		return v, nil
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = SerialMapper(ctx, 3, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVarAndKeepsFitnessOfUnchanged(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tb := intToolbox()
	pop := New[int, int](10, 20, 30, 40)
	_, err := EvaluateInvalid(context.Background(), tb, pop)
	require.NoError(t, err)

	off, err := VarAnd(rng, tb, pop, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, pop, off)

	off, err = VarAnd(rng, tb, pop, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{15, 15, 35, 35}, []int{off[0].Value, off[1].Value, off[2].Value, off[3].Value})
	for _, ind := range off {
		assert.False(t, ind.Valid())
	}
	for _, ind := range pop {
		assert.True(t, ind.Valid(), "input keeps its fitness")
	}
}

func TestVarOr(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tb := intToolbox()
	pop := New[int, int](10, 20, 30)

	_, err := VarOr(rng, tb, pop, 5, 0.7, 0.4)
	assert.ErrorIs(t, err, ErrProbabilities)

	off, err := VarOr(rng, tb, pop, 7, 0.3, 0.3)
	require.NoError(t, err)
	assert.Len(t, off, 7)

	off, err = VarOr(rng, tb, pop, 4, 0, 0)
	require.NoError(t, err)
	for _, ind := range off {
		assert.Contains(t, []int{10, 20, 30}, ind.Value)
	}

	_, err = VarOr(rng, tb, nil, 4, 0.5, 0.5)
	assert.ErrorIs(t, err, ErrEmptyPopulation)
}

func TestAlgorithmsConverge(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(rng *rand.Rand, tb Toolbox[int, int], pop []Individual[int, int]) ([]Individual[int, int], error)
		size int
	}{
		{"simple", func(rng *rand.Rand, tb Toolbox[int, int], pop []Individual[int, int]) ([]Individual[int, int], error) {
			return Simple(ctx, rng, tb, pop, 0.5, 0.3, 40)
		}, 100},
		{"mu+lambda", func(rng *rand.Rand, tb Toolbox[int, int], pop []Individual[int, int]) ([]Individual[int, int], error) {
			return MuPlusLambda(ctx, rng, tb, pop, 50, 100, 0.5, 0.3, 40)
		}, 50},
		{"mu,lambda", func(rng *rand.Rand, tb Toolbox[int, int], pop []Individual[int, int]) ([]Individual[int, int], error) {
			return MuCommaLambda(ctx, rng, tb, pop, 50, 100, 0.5, 0.3, 40)
		}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			var gens []int
			tb := intToolbox().WithOnGeneration(func(gen int, pop []Individual[int, int]) error {
				gens = append(gens, gen)
				for _, ind := range pop {
					require.True(t, ind.Valid())
				}
				return nil
			})
			initial := randomInts(rng, 100)

			out, err := tt.run(rng, tb, initial)
			require.NoError(t, err)
			assert.Len(t, out, tt.size)
			assert.Len(t, gens, 41)
			assert.Equal(t, 0, gens[0])
			assert.Equal(t, 40, gens[40])
			assert.LessOrEqual(t, best(out), 5)
			for _, ind := range initial {
				assert.False(t, ind.Valid(), "initial population untouched")
			}
		})
	}
}

func TestMuCommaLambdaValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := MuCommaLambda(context.Background(), rng, intToolbox(), New[int, int](1, 2), 10, 5, 0.5, 0.2, 3)
	assert.ErrorIs(t, err, ErrLambdaTooSmall)

	_, err = MuPlusLambda(context.Background(), rng, intToolbox(), New[int, int](1, 2), 2, 5, 0.9, 0.2, 3)
	assert.ErrorIs(t, err, ErrProbabilities)

	_, err = Simple(context.Background(), rng, intToolbox(), nil, 0.5, 0.2, 3)
	assert.ErrorIs(t, err, ErrEmptyPopulation)
}

func TestCancelledRunReturnsPopulation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tb := intToolbox().WithOnGeneration(func(gen int, _ []Individual[int, int]) error {
		if gen == 2 {
			cancel()
		}
		return nil
	})
	pop, err := Simple(ctx, rand.New(rand.NewSource(3)), tb, randomInts(rand.New(rand.NewSource(3)), 20), 0.5, 0.2, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, pop, 20)
}

func TestOnGenerationErrorStops(t *testing.T) {
	stop := errors.New("stop")
	tb := intToolbox().WithOnGeneration(func(gen int, _ []Individual[int, int]) error {
		if gen == 1 {
			return stop
		}
		return nil
	})
	_, err := MuPlusLambda(context.Background(), rand.New(rand.NewSource(3)), tb, randomInts(rand.New(rand.NewSource(3)), 20), 10, 20, 0.5, 0.2, 10)
	assert.ErrorIs(t, err, stop)
}

func TestSelection(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	f := func(v int) *int { return &v }
	pop := []Individual[int, int]{
		{Value: 1, Fitness: f(5)},
		{Value: 2, Fitness: f(1)},
		{Value: 3},
		{Value: 4, Fitness: f(3)},
	}

	top := SelBest(pop, 2, lower)
	assert.Equal(t, 2, top[0].Value)
	assert.Equal(t, 4, top[1].Value)
	assert.Len(t, SelBest(pop, 10, lower), 4)
	assert.Equal(t, 3, SelBest(pop, 4, lower)[3].Value)

	sel := SelTournament(rng, pop, 50, len(pop)*4, lower)
	assert.Len(t, sel, 50)
	counts := map[int]int{}
	for _, ind := range sel {
		counts[ind.Value]++
	}
	assert.Greater(t, counts[2], 40)
	assert.Zero(t, counts[3])
	assert.Nil(t, SelTournament(rng, []Individual[int, int]{}, 3, 2, lower))
}

func TestCutoffs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	small := func(v int) bool { return v < 100 }

	mate := MateCutoff(func(_ *rand.Rand, a, b int) (int, int, error) { return a * 10, b * 10, nil }, small)
	a, b, err := mate(rng, 5, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, a)
	assert.Equal(t, 50, b)

	mutate := MutateCutoff(func(_ *rand.Rand, v int) (int, error) { return v * 10, nil }, small)
	m, err := mutate(rng, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, m)
	m, err = mutate(rng, 2)
	require.NoError(t, err)
	assert.Equal(t, 20, m)
}

func TestHallOfFame(t *testing.T) {
	f := func(v int) *int { return &v }
	hof := NewHallOfFame[int, int](2, lower, nil)
	_, ok := hof.Best()
	assert.False(t, ok)

	hof.Update([]Individual[int, int]{{Value: 1, Fitness: f(9)}, {Value: 2}, {Value: 3, Fitness: f(4)}})
	hof.Update([]Individual[int, int]{{Value: 3, Fitness: f(4)}, {Value: 5, Fitness: f(1)}, {Value: 6, Fitness: f(7)}})

	require.Equal(t, 2, hof.Len())
	members := hof.Members()
	assert.Equal(t, 5, members[0].Value)
	assert.Equal(t, 3, members[1].Value)
	b, ok := hof.Best()
	require.True(t, ok)
	assert.Equal(t, 1, *b.Fitness)
}
