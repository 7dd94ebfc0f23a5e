package strategy

import (
	"context"
	"math/rand"

	"github.com/wildfunctions/evogp/pkg/ea"
)

func init() {
	Register("simple", func() Strategy { return &SimpleStrategy{} })
}

// SimpleStrategy is the generational loop: select a full population of
// parents, cross and mutate them, replace the population with the offspring.
type SimpleStrategy struct{}

func (s *SimpleStrategy) Name() string { return "simple" }

func (s *SimpleStrategy) Run(ctx context.Context, rng *rand.Rand, tb Toolbox, pop []Individual, p Params) ([]Individual, error) {
	return ea.Simple(ctx, rng, tb, pop, p.CxPb, p.MutPb, p.Generations)
}
