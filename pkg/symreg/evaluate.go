package symreg

import (
	"context"
	"math"
	"time"

	"github.com/wildfunctions/evogp/pkg/gp"
)

// EvalTimeout is the maximum time allowed for evaluating a single candidate.
const EvalTimeout = 100 * time.Millisecond

// HitTolerance is the absolute error under which a point counts as a hit.
const HitTolerance = 0.01

// Evaluate scores tree on ds. The tree is constant-folded first; evaluation
// errors, non-float results, non-finite errors and timeouts all yield
// WorstFitness. Size is measured on the unfolded tree.
func Evaluate(ctx context.Context, tree *gp.Tree, ds *Dataset, weights FitnessWeights) Fitness {
	ctx, cancel := context.WithTimeout(ctx, EvalTimeout)
	defer cancel()

	opt, err := gp.OptimizeForEvaluation(tree)
	if err != nil {
		return WorstFitness()
	}
	var sqErr float64
	hits := 0
	for i := range ds.Len() {
		if i%64 == 0 && ctx.Err() != nil {
			return WorstFitness()
		}
		v, err := opt.Evaluate(ds.args(i)...)
		if err != nil {
			return WorstFitness()
		}
		y, ok := v.(float64)
		if !ok || math.IsNaN(y) || math.IsInf(y, 0) {
			return WorstFitness()
		}
		d := y - ds.Outputs[i]
		sqErr += d * d
		if math.Abs(d) <= HitTolerance {
			hits++
		}
	}
	return ComputeFitness(sqErr, hits, ds.Len(), tree.Size(), weights)
}
