// Package ea drives generational evolution over any individual
// representation: evaluation of invalid individuals, variation by crossover
// and mutation, and selection of the next generation.
package ea

import (
	"context"
	"math/rand"
	"runtime"
)

// Individual pairs a value with its fitness. A nil Fitness marks the
// individual as not evaluated yet.
type Individual[I comparable, F any] struct {
	Value   I
	Fitness *F
}

// New wraps values as unevaluated individuals.
func New[I comparable, F any](values ...I) []Individual[I, F] {
	out := make([]Individual[I, F], len(values))
	for i, v := range values {
		out[i] = Individual[I, F]{Value: v}
	}
	return out
}

// Valid reports whether the individual has been evaluated.
func (ind Individual[I, F]) Valid() bool { return ind.Fitness != nil }

// derive returns an individual for v. Fitness carries over only when v is
// the parent's value itself.
func (ind Individual[I, F]) derive(v I) Individual[I, F] {
	if v == ind.Value {
		return ind
	}
	return Individual[I, F]{Value: v}
}

// Better reports whether fitness a is strictly preferable to b.
type Better[F any] func(a, b F) bool

// Toolbox bundles the problem-specific operators the algorithms call.
type Toolbox[I comparable, F any] interface {
	Evaluate(ctx context.Context, ind I) (F, error)
	Select(rng *rand.Rand, pop []Individual[I, F], k int) []Individual[I, F]
	Mate(rng *rand.Rand, a, b I) (I, I, error)
	Mutate(rng *rand.Rand, ind I) (I, error)
	// OnGeneration is called with every new population, generation 0 being
	// the evaluated initial one. An error stops the run.
	OnGeneration(gen int, pop []Individual[I, F]) error
	Mapper() Mapper
}

type (
	EvaluateFunc[I comparable, F any]     func(ctx context.Context, ind I) (F, error)
	SelectFunc[I comparable, F any]       func(rng *rand.Rand, pop []Individual[I, F], k int) []Individual[I, F]
	MateFunc[I comparable]                func(rng *rand.Rand, a, b I) (I, I, error)
	MutateFunc[I comparable]              func(rng *rand.Rand, ind I) (I, error)
	OnGenerationFunc[I comparable, F any] func(gen int, pop []Individual[I, F]) error
)

// FuncToolbox is a Toolbox assembled from functions. The With methods return
// modified copies, so a base toolbox can be shared and specialized.
type FuncToolbox[I comparable, F any] struct {
	evaluate     EvaluateFunc[I, F]
	sel          SelectFunc[I, F]
	mate         MateFunc[I]
	mutate       MutateFunc[I]
	onGeneration OnGenerationFunc[I, F]
	mapper       Mapper
}

// NewToolbox returns a toolbox with the given evaluation, tournament
// selection of size 3 under better, identity variation and a parallel
// mapper with one worker per CPU.
func NewToolbox[I comparable, F any](evaluate EvaluateFunc[I, F], better Better[F]) FuncToolbox[I, F] {
	return FuncToolbox[I, F]{
		evaluate: evaluate,
		sel: func(rng *rand.Rand, pop []Individual[I, F], k int) []Individual[I, F] {
			return SelTournament(rng, pop, k, 3, better)
		},
		mate:         func(_ *rand.Rand, a, b I) (I, I, error) { return a, b, nil },
		mutate:       func(_ *rand.Rand, ind I) (I, error) { return ind, nil },
		onGeneration: func(int, []Individual[I, F]) error { return nil },
		mapper:       ParallelMapper(runtime.NumCPU()),
	}
}

func (t FuncToolbox[I, F]) WithEvaluate(fn EvaluateFunc[I, F]) FuncToolbox[I, F] {
	t.evaluate = fn
	return t
}

func (t FuncToolbox[I, F]) WithSelect(fn SelectFunc[I, F]) FuncToolbox[I, F] {
	t.sel = fn
	return t
}

func (t FuncToolbox[I, F]) WithMate(fn MateFunc[I]) FuncToolbox[I, F] {
	t.mate = fn
	return t
}

func (t FuncToolbox[I, F]) WithMutate(fn MutateFunc[I]) FuncToolbox[I, F] {
	t.mutate = fn
	return t
}

func (t FuncToolbox[I, F]) WithOnGeneration(fn OnGenerationFunc[I, F]) FuncToolbox[I, F] {
	t.onGeneration = fn
	return t
}

func (t FuncToolbox[I, F]) WithMapper(m Mapper) FuncToolbox[I, F] {
	t.mapper = m
	return t
}

func (t FuncToolbox[I, F]) Evaluate(ctx context.Context, ind I) (F, error) {
	return t.evaluate(ctx, ind)
}

func (t FuncToolbox[I, F]) Select(rng *rand.Rand, pop []Individual[I, F], k int) []Individual[I, F] {
	return t.sel(rng, pop, k)
}

func (t FuncToolbox[I, F]) Mate(rng *rand.Rand, a, b I) (I, I, error) { return t.mate(rng, a, b) }

func (t FuncToolbox[I, F]) Mutate(rng *rand.Rand, ind I) (I, error) { return t.mutate(rng, ind) }

func (t FuncToolbox[I, F]) OnGeneration(gen int, pop []Individual[I, F]) error {
	return t.onGeneration(gen, pop)
}

func (t FuncToolbox[I, F]) Mapper() Mapper { return t.mapper }

// MateCutoff wraps mate so that a child rejected by keep is replaced by the
// corresponding parent.
func MateCutoff[I comparable](mate MateFunc[I], keep func(I) bool) MateFunc[I] {
	return func(rng *rand.Rand, a, b I) (I, I, error) {
		ca, cb, err := mate(rng, a, b)
		if err != nil {
			return a, b, err
		}
		if !keep(ca) {
			ca = a
		}
		if !keep(cb) {
			cb = b
		}
		return ca, cb, nil
	}
}

// MutateCutoff wraps mutate so that a mutant rejected by keep is replaced by
// the original.
func MutateCutoff[I comparable](mutate MutateFunc[I], keep func(I) bool) MutateFunc[I] {
	return func(rng *rand.Rand, ind I) (I, error) {
		m, err := mutate(rng, ind)
		if err != nil {
			return ind, err
		}
		if !keep(m) {
			return ind, nil
		}
		return m, nil
	}
}
