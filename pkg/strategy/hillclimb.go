package strategy

import (
	"context"
	"math/rand"

	"github.com/wildfunctions/evogp/pkg/ea"
	"github.com/wildfunctions/evogp/pkg/gp"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

func init() {
	Register("hillclimb", func() Strategy { return &HillClimbStrategy{} })
}

// HillClimbStrategy produces as many mutants as there are members, each from
// a parent drawn uniformly with replacement, and keeps the best of parents
// and mutants. Crossover is never used and the toolbox's own selection is
// bypassed.
type HillClimbStrategy struct{}

func (s *HillClimbStrategy) Name() string { return "hillclimb" }

func (s *HillClimbStrategy) Run(ctx context.Context, rng *rand.Rand, tb Toolbox, pop []Individual, p Params) ([]Individual, error) {
	n := len(pop)
	return ea.MuPlusLambda[*gp.Tree, symreg.Fitness](ctx, rng, truncation{tb}, pop, n, n, 0, 1, p.Generations)
}

// truncation keeps the k best.
type truncation struct{ Toolbox }

func (truncation) Select(_ *rand.Rand, pop []Individual, k int) []Individual {
	return ea.SelBest(pop, k, symreg.Better)
}
