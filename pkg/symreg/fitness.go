package symreg

import "math"

// FitnessWeights controls the relative importance of fitness components.
type FitnessWeights struct {
	Accuracy   float64 `json:"accuracy" yaml:"accuracy"`
	Complexity float64 `json:"complexity" yaml:"complexity"` // penalty per node (subtracted)
}

// DefaultWeights returns the default fitness weights.
func DefaultWeights() FitnessWeights {
	return FitnessWeights{
		Accuracy:   10.0,
		Complexity: 0.05,
	}
}

// Fitness holds the score of one expression. Higher Combined is better.
type Fitness struct {
	Combined float64 `json:"combined"`
	MSE      float64 `json:"mse"`
	Hits     int     `json:"hits"`
	Size     int     `json:"size"`
}

// worstCombined is the score of invalid or failed candidates.
const worstCombined = -1e9

// WorstFitness returns a fitness score for invalid/failed candidates. Its
// fields stay finite so reports can be encoded as JSON.
func WorstFitness() Fitness {
	return Fitness{Combined: worstCombined, MSE: math.MaxFloat64}
}

// IsWorst reports whether f marks a failed candidate.
func (f Fitness) IsWorst() bool { return f.Combined <= worstCombined }

// Better orders fitnesses by Combined, breaking ties by smaller size.
func Better(a, b Fitness) bool {
	if a.Combined != b.Combined {
		return a.Combined > b.Combined
	}
	return a.Size < b.Size
}

// ComputeFitness scores an error sum over n points.
func ComputeFitness(sqErr float64, hits, n, size int, weights FitnessWeights) Fitness {
	mse := sqErr / float64(n)
	if math.IsNaN(mse) || math.IsInf(mse, 0) {
		return WorstFitness()
	}
	// log scale keeps huge early errors from drowning the size penalty
	combined := -weights.Accuracy*math.Log10(1+mse) - weights.Complexity*float64(size)
	return Fitness{Combined: combined, MSE: mse, Hits: hits, Size: size}
}
