package ea

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
)

var (
	// ErrProbabilities indicates crossover and mutation probabilities that
	// sum to more than 1 in VarOr.
	ErrProbabilities = errors.New("ea: cxpb + mutpb must not exceed 1")
	// ErrLambdaTooSmall indicates fewer offspring than survivors in
	// MuCommaLambda.
	ErrLambdaTooSmall = errors.New("ea: lambda must be at least mu")
	// ErrEmptyPopulation indicates an algorithm was started without
	// individuals.
	ErrEmptyPopulation = errors.New("ea: empty population")
)

// EvaluateInvalid evaluates, through the toolbox mapper, every individual
// without fitness and stores the result in place. It returns the number of
// evaluations.
func EvaluateInvalid[I comparable, F any](ctx context.Context, tb Toolbox[I, F], pop []Individual[I, F]) (int, error) {
	var invalid []int
	for i, ind := range pop {
		if !ind.Valid() {
			invalid = append(invalid, i)
		}
	}
	fits := make([]F, len(invalid))
	err := tb.Mapper()(ctx, len(invalid), func(ctx context.Context, j int) error {
		f, err := tb.Evaluate(ctx, pop[invalid[j]].Value)
		if err != nil {
			return err
		}
		fits[j] = f
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("evaluate: %w", err)
	}
	for j, i := range invalid {
		pop[i].Fitness = &fits[j]
	}
	return len(invalid), nil
}

// VarAnd mates consecutive pairs with probability cxpb, then mutates every
// individual with probability mutpb. The input is not modified; changed
// individuals lose their fitness.
func VarAnd[I comparable, F any](rng *rand.Rand, tb Toolbox[I, F], pop []Individual[I, F], cxpb, mutpb float64) ([]Individual[I, F], error) {
	off := slices.Clone(pop)
	for i := 1; i < len(off); i += 2 {
		if rng.Float64() < cxpb {
			a, b, err := tb.Mate(rng, off[i-1].Value, off[i].Value)
			if err != nil {
				return nil, fmt.Errorf("mate: %w", err)
			}
			off[i-1], off[i] = off[i-1].derive(a), off[i].derive(b)
		}
	}
	for i := range off {
		if rng.Float64() < mutpb {
			m, err := tb.Mutate(rng, off[i].Value)
			if err != nil {
				return nil, fmt.Errorf("mutate: %w", err)
			}
			off[i] = off[i].derive(m)
		}
	}
	return off, nil
}

// VarOr produces lambda offspring, each by exactly one of crossover (first
// child of two random parents), mutation or reproduction.
func VarOr[I comparable, F any](rng *rand.Rand, tb Toolbox[I, F], pop []Individual[I, F], lambda int, cxpb, mutpb float64) ([]Individual[I, F], error) {
	if cxpb+mutpb > 1 {
		return nil, fmt.Errorf("%w: %v + %v", ErrProbabilities, cxpb, mutpb)
	}
	if len(pop) == 0 {
		return nil, ErrEmptyPopulation
	}
	off := make([]Individual[I, F], 0, lambda)
	for range lambda {
		op := rng.Float64()
		switch {
		case op < cxpb:
			p1, p2 := pop[rng.Intn(len(pop))], pop[rng.Intn(len(pop))]
			a, _, err := tb.Mate(rng, p1.Value, p2.Value)
			if err != nil {
				return nil, fmt.Errorf("mate: %w", err)
			}
			off = append(off, p1.derive(a))
		case op < cxpb+mutpb:
			p := pop[rng.Intn(len(pop))]
			m, err := tb.Mutate(rng, p.Value)
			if err != nil {
				return nil, fmt.Errorf("mutate: %w", err)
			}
			off = append(off, p.derive(m))
		default:
			off = append(off, pop[rng.Intn(len(pop))])
		}
	}
	return off, nil
}

// start evaluates the initial population and reports it as generation 0.
func start[I comparable, F any](ctx context.Context, tb Toolbox[I, F], pop []Individual[I, F]) ([]Individual[I, F], error) {
	if len(pop) == 0 {
		return nil, ErrEmptyPopulation
	}
	pop = slices.Clone(pop)
	if _, err := EvaluateInvalid(ctx, tb, pop); err != nil {
		return nil, err
	}
	if err := tb.OnGeneration(0, pop); err != nil {
		return nil, err
	}
	return pop, nil
}

// Simple runs ngen generations of: select len(pop) parents, VarAnd,
// evaluate, replace the population with the offspring.
func Simple[I comparable, F any](ctx context.Context, rng *rand.Rand, tb Toolbox[I, F], pop []Individual[I, F], cxpb, mutpb float64, ngen int) ([]Individual[I, F], error) {
	pop, err := start(ctx, tb, pop)
	if err != nil {
		return nil, err
	}
	for gen := 1; gen <= ngen; gen++ {
		if err := ctx.Err(); err != nil {
			return pop, err
		}
		off, err := VarAnd(rng, tb, tb.Select(rng, pop, len(pop)), cxpb, mutpb)
		if err != nil {
			return pop, err
		}
		if _, err := EvaluateInvalid(ctx, tb, off); err != nil {
			return pop, err
		}
		pop = off
		if err := tb.OnGeneration(gen, pop); err != nil {
			return pop, err
		}
	}
	return pop, nil
}

// MuPlusLambda runs ngen generations of: VarOr lambda offspring, evaluate,
// select mu survivors from parents and offspring together.
func MuPlusLambda[I comparable, F any](ctx context.Context, rng *rand.Rand, tb Toolbox[I, F], pop []Individual[I, F], mu, lambda int, cxpb, mutpb float64, ngen int) ([]Individual[I, F], error) {
	return muLambda(ctx, rng, tb, pop, mu, lambda, cxpb, mutpb, ngen, true)
}

// MuCommaLambda is MuPlusLambda with survivors chosen from the offspring
// only. lambda must be at least mu.
func MuCommaLambda[I comparable, F any](ctx context.Context, rng *rand.Rand, tb Toolbox[I, F], pop []Individual[I, F], mu, lambda int, cxpb, mutpb float64, ngen int) ([]Individual[I, F], error) {
	if lambda < mu {
		return nil, fmt.Errorf("%w: lambda %d, mu %d", ErrLambdaTooSmall, lambda, mu)
	}
	return muLambda(ctx, rng, tb, pop, mu, lambda, cxpb, mutpb, ngen, false)
}

func muLambda[I comparable, F any](ctx context.Context, rng *rand.Rand, tb Toolbox[I, F], pop []Individual[I, F], mu, lambda int, cxpb, mutpb float64, ngen int, plus bool) ([]Individual[I, F], error) {
	if cxpb+mutpb > 1 {
		return nil, fmt.Errorf("%w: %v + %v", ErrProbabilities, cxpb, mutpb)
	}
	pop, err := start(ctx, tb, pop)
	if err != nil {
		return nil, err
	}
	for gen := 1; gen <= ngen; gen++ {
		if err := ctx.Err(); err != nil {
			return pop, err
		}
		off, err := VarOr(rng, tb, pop, lambda, cxpb, mutpb)
		if err != nil {
			return pop, err
		}
		if _, err := EvaluateInvalid(ctx, tb, off); err != nil {
			return pop, err
		}
		pool := off
		if plus {
			pool = slices.Concat(pop, off)
		}
		pop = tb.Select(rng, pool, mu)
		if err := tb.OnGeneration(gen, pop); err != nil {
			return pop, err
		}
	}
	return pop, nil
}
