// Package gp implements strongly-typed tree-based genetic programming:
// immutable expression trees, the primitive set used to generate and
// persist them, random tree generators and the structural crossover and
// mutation operators.
package gp

import (
	"fmt"
	"reflect"
	"slices"
)

// Tree is an immutable typed expression tree. Every node is produced by a
// Factory which fixes its return type, its argument slots and how it is
// evaluated. A *Tree is never modified after construction; edits return a
// new tree that shares every untouched subtree with the original.
//
// Node identity is pointer identity. Two distinct nodes may still be
// effectively the same (see IsSubtreeEffectivelySame).
type Tree struct {
	factory  Factory
	children []*Tree
	state    any
	size     int
	height   int
}

// Env carries the inputs of one evaluation. Argument terminals read Args.
type Env struct {
	Args []any
}

func newTree(f Factory, children []*Tree, state any) *Tree {
	t := &Tree{factory: f, children: children, state: state, size: 1}
	maxHeight := 0
	for _, c := range children {
		t.size += c.size
		maxHeight = max(maxHeight, c.height)
	}
	t.height = maxHeight + 1
	return t
}

// checkChildren validates children against the factory's argument slots.
func checkChildren(f Factory, children []*Tree) error {
	args := f.ArgTypes()
	if len(children) != len(args) {
		return fmt.Errorf("%w: want %d children, got %d", ErrArityMismatch, len(args), len(children))
	}
	for i, c := range children {
		if c == nil {
			return fmt.Errorf("%w: child %d is nil", ErrTypeMismatch, i)
		}
		if !c.ReturnType().AssignableTo(args[i]) {
			return fmt.Errorf("%w: child %d returns %s, slot requires %s",
				ErrTypeMismatch, i, c.ReturnType(), args[i])
		}
	}
	return nil
}

// Factory returns the factory that produced this node.
func (t *Tree) Factory() Factory { return t.factory }

// ReturnType returns the type of the value this node evaluates to.
func (t *Tree) ReturnType() NodeType { return t.factory.ReturnType() }

// Children returns a copy of the node's children.
func (t *Tree) Children() []*Tree { return slices.Clone(t.children) }

// Child returns the i-th child. It panics if i is out of range.
func (t *Tree) Child(i int) *Tree { return t.children[i] }

// Arity returns the number of children.
func (t *Tree) Arity() int { return len(t.children) }

// State returns the node-local state, nil for stateless nodes.
func (t *Tree) State() any { return t.state }

// Size returns the number of nodes in the subtree, including t.
func (t *Tree) Size() int { return t.size }

// Height returns the number of levels in the subtree; a leaf has height 1.
func (t *Tree) Height() int { return t.height }

// IsLeaf reports whether the node has no children.
func (t *Tree) IsLeaf() bool { return len(t.children) == 0 }

// Evaluate computes the tree's value. args are exposed to argument
// terminals (see Arg). All children are evaluated before the node's own
// function; the first error aborts evaluation and is returned unchanged.
func (t *Tree) Evaluate(args ...any) (any, error) {
	return t.EvaluateEnv(&Env{Args: args})
}

// EvaluateEnv is Evaluate with an explicit environment.
func (t *Tree) EvaluateEnv(env *Env) (any, error) {
	vals := make([]any, len(t.children))
	for i, c := range t.children {
		v, err := c.EvaluateEnv(env)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return t.factory.Apply(env, t.state, vals)
}

// ReplaceChildren returns a copy of the node with exactly newChildren.
func (t *Tree) ReplaceChildren(newChildren []*Tree) (*Tree, error) {
	if len(newChildren) != len(t.children) {
		return nil, fmt.Errorf("%w: node has %d children, got %d",
			ErrArityMismatch, len(t.children), len(newChildren))
	}
	if err := checkChildren(t.factory, newChildren); err != nil {
		return nil, err
	}
	return newTree(t.factory, slices.Clone(newChildren), t.state), nil
}

// ReplaceChildAt returns a copy of the node with child index swapped for c.
func (t *Tree) ReplaceChildAt(index int, c *Tree) (*Tree, error) {
	if index < 0 || index >= len(t.children) {
		return nil, fmt.Errorf("%w: index %d, arity %d", ErrIndexOutOfRange, index, len(t.children))
	}
	children := slices.Clone(t.children)
	children[index] = c
	return t.ReplaceChildren(children)
}

// ReplaceDescendant returns a tree in which the first node (pre-order) that
// is target, by identity, is replaced with replacement. Only the path from
// the root to that node is rebuilt. If t is target, replacement is returned
// as is. If target does not occur, t itself is returned.
func (t *Tree) ReplaceDescendant(target, replacement *Tree) (*Tree, error) {
	if t == target {
		return replacement, nil
	}
	for i, c := range t.children {
		nc, err := c.ReplaceDescendant(target, replacement)
		if err != nil {
			return nil, err
		}
		if nc != c {
			return t.ReplaceChildAt(i, nc)
		}
	}
	return t, nil
}

// IsNodeEffectivelySame reports whether other was produced by the same
// factory and carries equal local state. Children are ignored.
func (t *Tree) IsNodeEffectivelySame(other *Tree) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	return t.factory == other.factory && reflect.DeepEqual(t.state, other.state)
}

// IsSubtreeEffectivelySame reports deep structural equality, independent of
// node identity.
func (t *Tree) IsSubtreeEffectivelySame(other *Tree) bool {
	if !t.IsNodeEffectivelySame(other) {
		return false
	}
	if t == other {
		return true
	}
	if len(t.children) != len(other.children) {
		return false
	}
	for i, c := range t.children {
		if !c.IsSubtreeEffectivelySame(other.children[i]) {
			return false
		}
	}
	return true
}

// IterateAll returns every node of the subtree in post-order, t last.
// It fails with ErrCycleDetected if a node is met again while it is still on
// the current descent path.
func (t *Tree) IterateAll() ([]*Tree, error) {
	out := make([]*Tree, 0, t.size)
	onPath := make(map[*Tree]struct{})
	if err := t.collect(onPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tree) collect(onPath map[*Tree]struct{}, out *[]*Tree) error {
	if _, ok := onPath[t]; ok {
		return fmt.Errorf("%w: node returning %s revisited", ErrCycleDetected, t.ReturnType())
	}
	onPath[t] = struct{}{}
	for _, c := range t.children {
		if err := c.collect(onPath, out); err != nil {
			return err
		}
	}
	delete(onPath, t)
	*out = append(*out, t)
	return nil
}

// descendants returns every node except the root, in post-order.
func (t *Tree) descendants() ([]*Tree, error) {
	all, err := t.IterateAll()
	if err != nil {
		return nil, err
	}
	return all[:len(all)-1], nil
}
