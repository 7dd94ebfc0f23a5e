package ea

import (
	"math/rand"
	"slices"
)

// SelTournament picks k individuals, each the best of tournSize drawn
// uniformly with replacement. Individuals without fitness never win against
// evaluated ones.
func SelTournament[I comparable, F any](rng *rand.Rand, pop []Individual[I, F], k, tournSize int, better Better[F]) []Individual[I, F] {
	if len(pop) == 0 {
		return nil
	}
	tournSize = max(tournSize, 1)
	out := make([]Individual[I, F], k)
	for i := range out {
		best := pop[rng.Intn(len(pop))]
		for range tournSize - 1 {
			if c := pop[rng.Intn(len(pop))]; beats(c, best, better) {
				best = c
			}
		}
		out[i] = best
	}
	return out
}

// SelBest returns the k best individuals, best first. Ties keep population
// order.
func SelBest[I comparable, F any](pop []Individual[I, F], k int, better Better[F]) []Individual[I, F] {
	sorted := slices.Clone(pop)
	slices.SortStableFunc(sorted, func(a, b Individual[I, F]) int {
		switch {
		case beats(a, b, better):
			return -1
		case beats(b, a, better):
			return 1
		default:
			return 0
		}
	})
	return sorted[:min(k, len(sorted))]
}

func beats[I comparable, F any](a, b Individual[I, F], better Better[F]) bool {
	switch {
	case a.Fitness == nil:
		return false
	case b.Fitness == nil:
		return true
	default:
		return better(*a.Fitness, *b.Fitness)
	}
}
