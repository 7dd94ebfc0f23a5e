package gp

import (
	"fmt"
	"math/rand"
	"slices"
)

// MutateUniform replaces one node, drawn uniformly from the whole tree, with
// a subtree from gen for that node's return type. The replacement must have
// exactly that type, so the tree's own return type never changes.
func MutateUniform(rng *rand.Rand, t *Tree, gen SubtreeGenerator) (*Tree, error) {
	nodes, err := t.IterateAll()
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return t, nil
	}
	node := nodes[rng.Intn(len(nodes))]
	want := node.ReturnType()
	repl, err := gen(want)
	if err != nil {
		return nil, fmt.Errorf("mutate uniform: %w", err)
	}
	if repl.ReturnType() != want {
		return nil, fmt.Errorf("mutate uniform: %w: generated %s for slot %s", ErrTypeMismatch, repl.ReturnType(), want)
	}
	return t.ReplaceDescendant(node, repl)
}

// MutateRecreateState redraws the local state of one stateful node, keeping
// its children. Trees without stateful nodes are returned as is.
func MutateRecreateState(rng *rand.Rand, t *Tree) (*Tree, error) {
	stateful, err := t.filter(func(n *Tree) bool { return n.factory.Stateful() })
	if err != nil {
		return nil, err
	}
	if len(stateful) == 0 {
		return t, nil
	}
	node := stateful[rng.Intn(len(stateful))]
	repl, err := node.factory.CreateNode(rng, node.children)
	if err != nil {
		return nil, fmt.Errorf("mutate state: %w", err)
	}
	return t.ReplaceDescendant(node, repl)
}

// MutateNodeReplacement swaps one node's factory for another registered
// factory with the same signature, keeping its children. Nodes without an
// alternative are never drawn; if no node has one, t is returned as is.
func MutateNodeReplacement(rng *rand.Rand, pset *PSet, t *Tree) (*Tree, error) {
	type candidate struct {
		node *Tree
		alts []Factory
	}
	nodes, err := t.IterateAll()
	if err != nil {
		return nil, err
	}
	var cands []candidate
	for _, n := range nodes {
		if alts := pset.alternatives(n.factory); len(alts) > 0 {
			cands = append(cands, candidate{node: n, alts: alts})
		}
	}
	if len(cands) == 0 {
		return t, nil
	}
	c := cands[rng.Intn(len(cands))]
	f := c.alts[rng.Intn(len(c.alts))]
	repl, err := f.CreateNode(rng, c.node.children)
	if err != nil {
		return nil, fmt.Errorf("mutate node: %w", err)
	}
	return t.ReplaceDescendant(c.node, repl)
}

// alternatives lists the registered factories other than f whose return
// type and argument slots equal f's.
func (p *PSet) alternatives(f Factory) []Factory {
	entries := p.terminals
	args := f.ArgTypes()
	if len(args) > 0 {
		entries = p.primitives
	}
	var out []Factory
	for _, e := range entries {
		if e.factory == f || e.factory.ReturnType() != f.ReturnType() {
			continue
		}
		if slices.Equal(e.factory.ArgTypes(), args) {
			out = append(out, e.factory)
		}
	}
	return out
}

// MutateShrink replaces one primitive with one of its own children whose
// return type fits the primitive's. Trees without such a pair are returned
// as is.
func MutateShrink(rng *rand.Rand, t *Tree) (*Tree, error) {
	shrinkable, err := t.filter(func(n *Tree) bool { return len(n.fittingChildren()) > 0 })
	if err != nil {
		return nil, err
	}
	if len(shrinkable) == 0 {
		return t, nil
	}
	node := shrinkable[rng.Intn(len(shrinkable))]
	kids := node.fittingChildren()
	return t.ReplaceDescendant(node, kids[rng.Intn(len(kids))])
}

func (t *Tree) fittingChildren() []*Tree {
	var out []*Tree
	for _, c := range t.children {
		if c.ReturnType().AssignableTo(t.ReturnType()) {
			out = append(out, c)
		}
	}
	return out
}

// MutateHoist promotes a proper descendant whose type fits the root to be
// the new root.
func MutateHoist(rng *rand.Rand, t *Tree) (*Tree, error) {
	nodes, err := t.descendants()
	if err != nil {
		return nil, err
	}
	var fits []*Tree
	for _, n := range nodes {
		if n.ReturnType().AssignableTo(t.ReturnType()) {
			fits = append(fits, n)
		}
	}
	if len(fits) == 0 {
		return t, nil
	}
	return fits[rng.Intn(len(fits))], nil
}

// MutateGrow wraps one node in a new primitive of the same return type. The
// node takes a slot that accepts it; the remaining slots get fresh
// terminals. If no primitive can wrap any node, t is returned as is.
func MutateGrow(rng *rand.Rand, pset *PSet, t *Tree) (*Tree, error) {
	nodes, err := t.IterateAll()
	if err != nil {
		return nil, err
	}
	node := nodes[rng.Intn(len(nodes))]
	var wrappers []Factory
	for _, e := range pset.primitives {
		if e.factory.ReturnType() == node.ReturnType() && slotFor(e.factory, node) >= 0 {
			wrappers = append(wrappers, e.factory)
		}
	}
	if len(wrappers) == 0 {
		return t, nil
	}
	f := wrappers[rng.Intn(len(wrappers))]
	slot := slotFor(f, node)
	args := f.ArgTypes()
	children := make([]*Tree, len(args))
	for i, at := range args {
		if i == slot {
			children[i] = node
			continue
		}
		leaf := pset.SelectTerminalAssignableTo(rng, at)
		if leaf == nil {
			return nil, fmt.Errorf("mutate grow: %w: type %s", ErrNoTerminalAvailable, at)
		}
		if children[i], err = leaf.CreateNode(rng, nil); err != nil {
			return nil, err
		}
	}
	repl, err := f.CreateNode(rng, children)
	if err != nil {
		return nil, fmt.Errorf("mutate grow: %w", err)
	}
	return t.ReplaceDescendant(node, repl)
}

func slotFor(f Factory, n *Tree) int {
	for i, at := range f.ArgTypes() {
		if n.ReturnType().AssignableTo(at) {
			return i
		}
	}
	return -1
}

// SizeLimit accepts trees of at most n nodes.
func SizeLimit(n int) func(*Tree) bool {
	return func(t *Tree) bool { return t.Size() <= n }
}

// HeightLimit accepts trees of at most n levels.
func HeightLimit(n int) func(*Tree) bool {
	return func(t *Tree) bool { return t.Height() <= n }
}

func (t *Tree) filter(keep func(*Tree) bool) ([]*Tree, error) {
	nodes, err := t.IterateAll()
	if err != nil {
		return nil, err
	}
	out := nodes[:0]
	for _, n := range nodes {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out, nil
}
