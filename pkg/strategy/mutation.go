package strategy

import (
	"fmt"
	"math/rand"

	"github.com/wildfunctions/evogp/pkg/ea"
	"github.com/wildfunctions/evogp/pkg/gp"
	"github.com/wildfunctions/evogp/pkg/symreg"
)

// MutationType identifies a kind of mutation.
type MutationType int

const (
	MutSubtree         MutationType = iota // replace a random subtree with a new random tree
	MutPoint                               // swap a node's operation for one with the same signature
	MutConstPerturb                        // redraw the value of an ephemeral constant
	MutGrow                                // wrap a node in a new operation
	MutShrink                              // replace a node with one of its children
	MutHoist                               // replace tree with one of its subtrees
	numMutations
)

var mutationNames = [...]string{"subtree", "point", "const", "grow", "shrink", "hoist"}

func (m MutationType) String() string {
	if m < 0 || m >= numMutations {
		return fmt.Sprintf("MutationType(%d)", int(m))
	}
	return mutationNames[m]
}

const maxMutationDepth = 4

// Limits bound the trees variation may produce. Offspring over a limit are
// replaced by their parent.
type Limits struct {
	MaxHeight int `json:"max_height" yaml:"max_height"`
	MaxSize   int `json:"max_size" yaml:"max_size"`
}

// DefaultLimits returns the default tree limits.
func DefaultLimits() Limits {
	return Limits{MaxHeight: 10, MaxSize: 40}
}

// Operators binds crossover and mutation to a primitive set.
type Operators struct {
	PSet   *gp.PSet
	Limits Limits
}

// Keep reports whether t is within the limits.
func (o *Operators) Keep(t *gp.Tree) bool {
	return gp.HeightLimit(o.Limits.MaxHeight)(t) && gp.SizeLimit(o.Limits.MaxSize)(t)
}

// Mutate applies one mutation drawn uniformly from all kinds.
func (o *Operators) Mutate(rng *rand.Rand, t *gp.Tree) (*gp.Tree, error) {
	return o.Apply(MutationType(rng.Intn(int(numMutations))), rng, t)
}

// Apply runs the given mutation on t.
func (o *Operators) Apply(mut MutationType, rng *rand.Rand, t *gp.Tree) (*gp.Tree, error) {
	switch mut {
	case MutSubtree:
		return gp.MutateUniform(rng, t, gp.Subtrees(rng, o.PSet, 1, maxMutationDepth, gp.GenGrow))
	case MutPoint:
		return gp.MutateNodeReplacement(rng, o.PSet, t)
	case MutConstPerturb:
		return gp.MutateRecreateState(rng, t)
	case MutGrow:
		return gp.MutateGrow(rng, o.PSet, t)
	case MutShrink:
		return gp.MutateShrink(rng, t)
	case MutHoist:
		return gp.MutateHoist(rng, t)
	default:
		return nil, fmt.Errorf("unknown mutation %s", mut)
	}
}

// Mate swaps one pair of same-typed subtrees between a and b.
func (o *Operators) Mate(rng *rand.Rand, a, b *gp.Tree) (*gp.Tree, *gp.Tree, error) {
	return gp.CrossoverOnePoint(rng, a, b)
}

// Bind returns tb with crossover and mutation set to the limited operators.
func (o *Operators) Bind(tb ea.FuncToolbox[*gp.Tree, symreg.Fitness]) ea.FuncToolbox[*gp.Tree, symreg.Fitness] {
	return tb.
		WithMate(ea.MateCutoff(o.Mate, o.Keep)).
		WithMutate(ea.MutateCutoff(o.Mutate, o.Keep))
}
