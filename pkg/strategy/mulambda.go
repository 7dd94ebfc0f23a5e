package strategy

import (
	"context"
	"math/rand"

	"github.com/wildfunctions/evogp/pkg/ea"
)

func init() {
	Register("mupluslambda", func() Strategy { return &MuLambdaStrategy{plus: true} })
	Register("mucommalambda", func() Strategy { return &MuLambdaStrategy{} })
}

// MuLambdaStrategy breeds Lambda offspring per generation and keeps Mu
// survivors, drawn from parents and offspring (plus) or offspring only
// (comma).
type MuLambdaStrategy struct {
	plus bool
}

func (s *MuLambdaStrategy) Name() string {
	if s.plus {
		return "mupluslambda"
	}
	return "mucommalambda"
}

func (s *MuLambdaStrategy) Run(ctx context.Context, rng *rand.Rand, tb Toolbox, pop []Individual, p Params) ([]Individual, error) {
	if s.plus {
		return ea.MuPlusLambda(ctx, rng, tb, pop, p.Mu, p.Lambda, p.CxPb, p.MutPb, p.Generations)
	}
	return ea.MuCommaLambda(ctx, rng, tb, pop, p.Mu, p.Lambda, p.CxPb, p.MutPb, p.Generations)
}
