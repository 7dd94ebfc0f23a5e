// Package strategy names the evolutionary loops the engine can run and binds
// the tree variation operators to a primitive set.
package strategy

import (
	"context"
	"fmt"
	"maps"
	"math/rand"
	"slices"

	"github.com/wildfunctions/evogp/pkg/ea"
	"github.com/wildfunctions/evogp/pkg/gp"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

type (
	Individual = ea.Individual[*gp.Tree, symreg.Fitness]
	Toolbox    = ea.Toolbox[*gp.Tree, symreg.Fitness]
)

// Params are the knobs shared by every strategy. Strategies ignore the ones
// they have no use for.
type Params struct {
	Mu          int
	Lambda      int
	CxPb        float64
	MutPb       float64
	Generations int
}

// Strategy runs a whole evolution from an unevaluated population and
// returns the final one.
type Strategy interface {
	Name() string
	Run(ctx context.Context, rng *rand.Rand, tb Toolbox, pop []Individual, p Params) ([]Individual, error)
}

var registry = map[string]func() Strategy{}

// Register adds a strategy constructor to the registry.
func Register(name string, constructor func() Strategy) {
	registry[name] = constructor
}

// Get returns a strategy by name.
func Get(name string) (Strategy, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
	return ctor(), nil
}

// Names returns all registered strategy names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// Initialize grows size trees with ramped half-and-half between minDepth
// and maxDepth (exclusive).
func Initialize(rng *rand.Rand, pset *gp.PSet, size, minDepth, maxDepth int) ([]Individual, error) {
	trees := make([]*gp.Tree, size)
	for i := range trees {
		t, err := gp.GenHalfAndHalf(rng, pset, minDepth, maxDepth, pset.ReturnType())
		if err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
		trees[i] = t
	}
	return ea.New[*gp.Tree, symreg.Fitness](trees...), nil
}
