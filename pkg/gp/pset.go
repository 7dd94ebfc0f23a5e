package gp

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// DefaultWeight is the selection weight used by Register.
const DefaultWeight = 1.0

type entry struct {
	name    string
	factory Factory
	weight  float64
}

// PSet is a typed registry of named factories, split into terminals
// (no arguments) and primitives. It drives random generation and is the
// naming authority for serialization. Registration order is kept, so
// selection is reproducible for a given seed.
//
// A PSet is safe for concurrent reads once registration is complete.
type PSet struct {
	returnType NodeType
	terminals  []entry
	primitives []entry
	byName     map[string]entry
	names      map[Factory]string
	symbols    map[string]string
}

// NewPSet returns an empty set whose trees evaluate to returnType.
func NewPSet(returnType NodeType) *PSet {
	return &PSet{
		returnType: returnType,
		byName:     make(map[string]entry),
		names:      make(map[Factory]string),
		symbols:    make(map[string]string),
	}
}

// ReturnType returns the root type of trees built for this set.
func (p *PSet) ReturnType() NodeType { return p.returnType }

// Register adds f under name with the default weight.
func (p *PSet) Register(name string, f Factory) error {
	return p.RegisterWeighted(name, f, DefaultWeight)
}

// RegisterWeighted adds f under name. Factories without argument slots are
// terminals, all others primitives.
func (p *PSet) RegisterWeighted(name string, f Factory, weight float64) error {
	if _, ok := p.byName[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if !(weight > 0) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: %q has weight %v", ErrInvalidWeight, name, weight)
	}
	if other, ok := p.names[f]; ok {
		return fmt.Errorf("%w: factory already registered as %q", ErrDuplicateName, other)
	}
	e := entry{name: name, factory: f, weight: weight}
	if len(f.ArgTypes()) == 0 {
		p.terminals = append(p.terminals, e)
	} else {
		p.primitives = append(p.primitives, e)
	}
	p.byName[name] = e
	p.names[f] = name
	return nil
}

// MustRegister is like Register but panics on error. Intended for presets
// assembled at init time.
func (p *PSet) MustRegister(name string, f Factory) {
	if err := p.Register(name, f); err != nil {
		panic(err)
	}
}

// SetSymbol makes Format render the named primitive as an operator.
func (p *PSet) SetSymbol(name, symbol string) {
	p.symbols[name] = symbol
}

// Lookup returns the factory registered under name.
func (p *PSet) Lookup(name string) (Factory, bool) {
	e, ok := p.byName[name]
	return e.factory, ok
}

// NameOf returns the name f was registered under.
func (p *PSet) NameOf(f Factory) (string, bool) {
	name, ok := p.names[f]
	return name, ok
}

// Weight returns the selection weight of the named factory.
func (p *PSet) Weight(name string) (float64, bool) {
	e, ok := p.byName[name]
	return e.weight, ok
}

// Terminals returns the names of all terminals in registration order.
func (p *PSet) Terminals() []string { return entryNames(p.terminals, nil) }

// Primitives returns the names of all primitives in registration order.
func (p *PSet) Primitives() []string { return entryNames(p.primitives, nil) }

// TerminalsAssignableTo returns the terminals whose return type fits t.
func (p *PSet) TerminalsAssignableTo(t NodeType) []string { return entryNames(p.terminals, t) }

// PrimitivesAssignableTo returns the primitives whose return type fits t.
func (p *PSet) PrimitivesAssignableTo(t NodeType) []string { return entryNames(p.primitives, t) }

func entryNames(entries []entry, t NodeType) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if t == nil || e.factory.ReturnType().AssignableTo(t) {
			out = append(out, e.name)
		}
	}
	return out
}

// TerminalRatio is the share of terminals among all registered factories,
// counted per factory and not per weight.
func (p *PSet) TerminalRatio() float64 {
	total := len(p.terminals) + len(p.primitives)
	if total == 0 {
		return 0
	}
	return float64(len(p.terminals)) / float64(total)
}

// SelectTerminalAssignableTo draws a terminal whose return type fits t,
// weighted over the matching terminals only. It returns nil if none match.
func (p *PSet) SelectTerminalAssignableTo(rng *rand.Rand, t NodeType) Factory {
	return selectWeighted(rng, p.terminals, t)
}

// SelectPrimitiveAssignableTo is SelectTerminalAssignableTo for primitives.
func (p *PSet) SelectPrimitiveAssignableTo(rng *rand.Rand, t NodeType) Factory {
	return selectWeighted(rng, p.primitives, t)
}

// selectWeighted spins a roulette wheel over the entries assignable to t.
func selectWeighted(rng *rand.Rand, entries []entry, t NodeType) Factory {
	total := 0.0
	for _, e := range entries {
		if e.factory.ReturnType().AssignableTo(t) {
			total += e.weight
		}
	}
	if total == 0 {
		return nil
	}
	spin := rng.Float64() * total
	var last Factory
	for _, e := range entries {
		if !e.factory.ReturnType().AssignableTo(t) {
			continue
		}
		last = e.factory
		spin -= e.weight
		if spin < 0 {
			return e.factory
		}
	}
	return last
}

// Document is the persisted form of a tree. Node holds the factory's local
// state and is omitted for stateless nodes; Children is omitted for leaves.
type Document struct {
	Factory  string          `json:"factory"`
	Node     json.RawMessage `json:"node,omitempty"`
	Children []*Document     `json:"children,omitempty"`
}

// Serialize converts t into a Document. Every node must come from a factory
// registered in p.
func (p *PSet) Serialize(t *Tree) (*Document, error) {
	return p.serialize(t, make(map[*Tree]struct{}))
}

func (p *PSet) serialize(t *Tree, onPath map[*Tree]struct{}) (*Document, error) {
	if _, ok := onPath[t]; ok {
		return nil, fmt.Errorf("serialize: %w", ErrCycleDetected)
	}
	name, ok := p.names[t.factory]
	if !ok {
		return nil, fmt.Errorf("serialize %s node: %w", t.ReturnType(), ErrUnknownFactory)
	}
	state, err := t.factory.SerializeState(t)
	if err != nil {
		return nil, fmt.Errorf("serialize %q: %w", name, err)
	}
	doc := &Document{Factory: name, Node: state}
	if len(t.children) > 0 {
		onPath[t] = struct{}{}
		doc.Children = make([]*Document, len(t.children))
		for i, c := range t.children {
			if doc.Children[i], err = p.serialize(c, onPath); err != nil {
				return nil, err
			}
		}
		delete(onPath, t)
	}
	return doc, nil
}

// Deserialize rebuilds a tree from doc. The result is effectively the same
// as the serialized tree but shares no nodes with it.
func (p *PSet) Deserialize(doc *Document) (*Tree, error) {
	if doc == nil {
		return nil, fmt.Errorf("deserialize: %w: nil document", ErrInvalidState)
	}
	e, ok := p.byName[doc.Factory]
	if !ok {
		return nil, fmt.Errorf("deserialize %q: %w", doc.Factory, ErrUnknownFactory)
	}
	children := make([]*Tree, len(doc.Children))
	for i, c := range doc.Children {
		child, err := p.Deserialize(c)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	t, err := e.factory.Deserialize(doc.Node, children)
	if err != nil {
		return nil, fmt.Errorf("deserialize %q: %w", doc.Factory, err)
	}
	return t, nil
}

// Marshal encodes t as JSON.
func (p *PSet) Marshal(t *Tree) ([]byte, error) {
	doc, err := p.Serialize(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Unmarshal decodes a tree produced by Marshal.
func (p *PSet) Unmarshal(data []byte) (*Tree, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal tree: %w", err)
	}
	return p.Deserialize(&doc)
}
