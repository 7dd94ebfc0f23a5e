package gp

import "reflect"

// NodeType tags the value a tree node produces. The generator and the
// structural operators use it to decide which subtree may fill which slot.
//
// Implementations must be comparable: node types are used as map keys when
// grouping candidate subtrees.
type NodeType interface {
	// AssignableTo reports whether a value of this type may fill a slot
	// requiring other. It must be reflexive.
	AssignableTo(other NodeType) bool
	String() string
}

// GoType is a NodeType backed by a Go static type.
type GoType struct {
	t reflect.Type
}

// TypeOf returns the NodeType for the Go type T.
func TypeOf[T any]() NodeType {
	return GoType{t: reflect.TypeFor[T]()}
}

func (g GoType) AssignableTo(other NodeType) bool {
	o, ok := other.(GoType)
	if !ok || g.t == nil || o.t == nil {
		return false
	}
	return g.t.AssignableTo(o.t)
}

func (g GoType) String() string {
	if g.t == nil {
		return "<nil>"
	}
	return g.t.String()
}

// Tag is a NodeType identified by name alone. Two tags are compatible only
// when they are equal, which is useful when several slots share a Go type
// but must not be mixed (e.g. "angle" and "distance" both as float64).
type Tag string

func (t Tag) AssignableTo(other NodeType) bool {
	o, ok := other.(Tag)
	return ok && o == t
}

func (t Tag) String() string { return string(t) }
