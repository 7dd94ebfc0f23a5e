package gp

import (
	"fmt"
	"math/rand"
)

// Condition reports whether generation must place a terminal at depth,
// given the target height drawn for the tree. The root is at depth 1.
type Condition func(rng *rand.Rand, height, depth int) bool

// GenMethod is the signature shared by GenFull, GenGrow and GenHalfAndHalf.
type GenMethod func(rng *rand.Rand, pset *PSet, minDepth, maxDepth int, t NodeType) (*Tree, error)

// Generate builds a random tree returning t. A target height is drawn
// uniformly from [minDepth, maxDepth); at every position cond decides between
// a terminal and a primitive, each drawn from pset among the factories whose
// return type fits the slot.
func Generate(rng *rand.Rand, pset *PSet, minDepth, maxDepth int, cond Condition, t NodeType) (*Tree, error) {
	if minDepth < 1 || maxDepth <= minDepth {
		return nil, fmt.Errorf("%w: min %d, max %d", ErrInvalidDepth, minDepth, maxDepth)
	}
	height := minDepth + rng.Intn(maxDepth-minDepth)
	return generate(rng, pset, height, 1, cond, t)
}

func generate(rng *rand.Rand, pset *PSet, height, depth int, cond Condition, t NodeType) (*Tree, error) {
	if cond(rng, height, depth) {
		f := pset.SelectTerminalAssignableTo(rng, t)
		if f == nil {
			return nil, fmt.Errorf("%w: type %s at depth %d", ErrNoTerminalAvailable, t, depth)
		}
		return f.CreateNode(rng, nil)
	}
	f := pset.SelectPrimitiveAssignableTo(rng, t)
	if f == nil {
		return nil, fmt.Errorf("%w: type %s at depth %d", ErrNoPrimitiveAvailable, t, depth)
	}
	argTypes := f.ArgTypes()
	children := make([]*Tree, len(argTypes))
	for i, at := range argTypes {
		c, err := generate(rng, pset, height, depth+1, cond, at)
		if err != nil {
			return nil, err
		}
		children[i] = c
	}
	return f.CreateNode(rng, children)
}

// GenFull builds a tree whose leaves all sit at the drawn target height.
func GenFull(rng *rand.Rand, pset *PSet, minDepth, maxDepth int, t NodeType) (*Tree, error) {
	return Generate(rng, pset, minDepth, maxDepth, func(_ *rand.Rand, height, depth int) bool {
		return depth == height
	}, t)
}

// GenGrow builds a tree whose leaves may stop anywhere from minDepth down to
// the target height, with early stops drawn at the set's terminal ratio.
func GenGrow(rng *rand.Rand, pset *PSet, minDepth, maxDepth int, t NodeType) (*Tree, error) {
	ratio := pset.TerminalRatio()
	return Generate(rng, pset, minDepth, maxDepth, func(rng *rand.Rand, height, depth int) bool {
		return depth == height || (depth >= minDepth && rng.Float64() < ratio)
	}, t)
}

// GenHalfAndHalf flips a coin between GenGrow and GenFull.
func GenHalfAndHalf(rng *rand.Rand, pset *PSet, minDepth, maxDepth int, t NodeType) (*Tree, error) {
	if rng.Intn(2) == 0 {
		return GenGrow(rng, pset, minDepth, maxDepth, t)
	}
	return GenFull(rng, pset, minDepth, maxDepth, t)
}

// SubtreeGenerator produces a replacement subtree for a slot of type t.
type SubtreeGenerator func(t NodeType) (*Tree, error)

// Subtrees binds a GenMethod to a set and depth range for use with
// MutateUniform.
func Subtrees(rng *rand.Rand, pset *PSet, minDepth, maxDepth int, method GenMethod) SubtreeGenerator {
	return func(t NodeType) (*Tree, error) {
		return method(rng, pset, minDepth, maxDepth, t)
	}
}
