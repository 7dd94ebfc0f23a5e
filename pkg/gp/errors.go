package gp

import "errors"

// Sentinel errors for tree construction, traversal, generation and
// serialization. They are always returned wrapped with context; match them
// with errors.Is. None of them is transient: retrying the same call with the
// same inputs fails the same way.
var (
	// ErrArityMismatch indicates a child list whose length differs from the
	// factory's declared argument count.
	ErrArityMismatch = errors.New("gp: arity mismatch")

	// ErrTypeMismatch indicates a child (or replacement subtree) whose return
	// type is not assignable to the slot it was placed in.
	ErrTypeMismatch = errors.New("gp: type mismatch")

	// ErrIndexOutOfRange indicates a child index outside [0, arity).
	ErrIndexOutOfRange = errors.New("gp: child index out of range")

	// ErrCycleDetected indicates a node was revisited while still on the
	// traversal path. Trees are acyclic by construction, so this is a broken
	// invariant rather than a recoverable condition.
	ErrCycleDetected = errors.New("gp: cycle detected")

	// ErrNoTerminalAvailable indicates the primitive set has no terminal
	// whose return type fits the requested type.
	ErrNoTerminalAvailable = errors.New("gp: no terminal available")

	// ErrNoPrimitiveAvailable indicates the primitive set has no primitive
	// whose return type fits the requested type.
	ErrNoPrimitiveAvailable = errors.New("gp: no primitive available")

	// ErrUnknownFactory indicates a tree built from a factory that is not
	// registered, or a document naming a factory that is not registered.
	ErrUnknownFactory = errors.New("gp: unknown factory")

	// ErrDuplicateName indicates a second registration under an existing name.
	ErrDuplicateName = errors.New("gp: duplicate factory name")

	// ErrInvalidWeight indicates a non-positive selection weight.
	ErrInvalidWeight = errors.New("gp: weight must be positive")

	// ErrInvalidDepth indicates unusable generation bounds.
	ErrInvalidDepth = errors.New("gp: invalid depth bounds")

	// ErrInvalidState indicates a serialized node state that cannot be decoded.
	ErrInvalidState = errors.New("gp: invalid node state")
)
