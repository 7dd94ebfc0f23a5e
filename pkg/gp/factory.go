package gp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"slices"
)

// Factory is the blueprint for one kind of node. It declares the node's
// return type and argument slots, builds nodes, evaluates them and
// translates their local state to and from JSON.
//
// Factories are compared by ==, so implementations must be comparable;
// pointer types are the usual choice. A registered factory is shared by every
// node it produces and must not change after registration.
type Factory interface {
	ReturnType() NodeType
	// ArgTypes returns the argument slots. Empty means terminal.
	ArgTypes() []NodeType

	// CreateNode builds a node over children with fresh local state. rng is
	// used only by stateful factories.
	CreateNode(rng *rand.Rand, children []*Tree) (*Tree, error)

	// SerializeState returns the local state of t, or nil when the factory
	// is stateless.
	SerializeState(t *Tree) (json.RawMessage, error)

	// Deserialize rebuilds a node from a state blob produced by
	// SerializeState without drawing any random values.
	Deserialize(state json.RawMessage, children []*Tree) (*Tree, error)

	// Apply computes a node's value from its state and evaluated children.
	Apply(env *Env, state any, args []any) (any, error)

	// Stateful reports whether nodes carry generated local state that
	// CreateNode would draw afresh.
	Stateful() bool

	// Pure reports whether the output depends only on state and children.
	Pure() bool
}

// FuncFactory wraps a plain function. It is stateless.
type FuncFactory struct {
	ret  NodeType
	args []NodeType
	fn   func(env *Env, args []any) (any, error)
	pure bool
}

// FuncOption configures a FuncFactory.
type FuncOption func(*FuncFactory)

// Impure marks the function as reading something other than its arguments,
// which keeps it out of constant folding.
func Impure() FuncOption {
	return func(f *FuncFactory) { f.pure = false }
}

// NewFuncFactory builds a factory from an untyped function. Prefer Func1,
// Func2, Func3, Constant and Arg where the signature is static.
func NewFuncFactory(ret NodeType, args []NodeType, fn func(env *Env, args []any) (any, error), opts ...FuncOption) *FuncFactory {
	f := &FuncFactory{ret: ret, args: slices.Clone(args), fn: fn, pure: true}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FuncFactory) ReturnType() NodeType { return f.ret }
func (f *FuncFactory) ArgTypes() []NodeType { return slices.Clone(f.args) }
func (f *FuncFactory) Stateful() bool { return false }
func (f *FuncFactory) Pure() bool { return f.pure }

func (f *FuncFactory) CreateNode(_ *rand.Rand, children []*Tree) (*Tree, error) {
	if err := checkChildren(f, children); err != nil {
		return nil, err
	}
	return newTree(f, slices.Clone(children), nil), nil
}

func (f *FuncFactory) SerializeState(*Tree) (json.RawMessage, error) { return nil, nil }

func (f *FuncFactory) Deserialize(_ json.RawMessage, children []*Tree) (*Tree, error) {
	return f.CreateNode(nil, children)
}

func (f *FuncFactory) Apply(env *Env, _ any, args []any) (any, error) {
	return f.fn(env, args)
}

func argAs[T any](args []any, i int) (T, error) {
	v, ok := args[i].(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: argument %d is %T, want %s", ErrTypeMismatch, i, args[i], reflect.TypeFor[T]())
	}
	return v, nil
}

// Func1 wraps a unary function.
func Func1[A, R any](fn func(A) R, opts ...FuncOption) *FuncFactory {
	return NewFuncFactory(TypeOf[R](), []NodeType{TypeOf[A]()}, func(_ *Env, args []any) (any, error) {
		a, err := argAs[A](args, 0)
		if err != nil {
			return nil, err
		}
		return fn(a), nil
	}, opts...)
}

// Func2 wraps a binary function.
func Func2[A, B, R any](fn func(A, B) R, opts ...FuncOption) *FuncFactory {
	return NewFuncFactory(TypeOf[R](), []NodeType{TypeOf[A](), TypeOf[B]()}, func(_ *Env, args []any) (any, error) {
		a, err := argAs[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAs[B](args, 1)
		if err != nil {
			return nil, err
		}
		return fn(a, b), nil
	}, opts...)
}

// Func3 wraps a ternary function.
func Func3[A, B, C, R any](fn func(A, B, C) R, opts ...FuncOption) *FuncFactory {
	return NewFuncFactory(TypeOf[R](), []NodeType{TypeOf[A](), TypeOf[B](), TypeOf[C]()}, func(_ *Env, args []any) (any, error) {
		a, err := argAs[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAs[B](args, 1)
		if err != nil {
			return nil, err
		}
		c, err := argAs[C](args, 2)
		if err != nil {
			return nil, err
		}
		return fn(a, b, c), nil
	}, opts...)
}

// Constant is a terminal that always yields v.
func Constant[T any](v T) *FuncFactory {
	return NewFuncFactory(TypeOf[T](), nil, func(*Env, []any) (any, error) {
		return v, nil
	})
}

// Arg is a terminal yielding the i-th evaluation argument.
func Arg[T any](i int) *FuncFactory {
	return NewFuncFactory(TypeOf[T](), nil, func(env *Env, _ []any) (any, error) {
		if env == nil || i < 0 || i >= len(env.Args) {
			return nil, fmt.Errorf("%w: argument %d not supplied", ErrIndexOutOfRange, i)
		}
		return argAs[T](env.Args, i)
	}, Impure())
}

// GeneratorFactory is a terminal that draws one value when a node is created
// and keeps it as the node's state (an ephemeral random constant).
type GeneratorFactory[T any] struct {
	gen func(rng *rand.Rand) T
}

type generatedState[T any] struct {
	Constant *T `json:"constant"`
}

// Ephemeral returns a GeneratorFactory around gen.
func Ephemeral[T any](gen func(rng *rand.Rand) T) *GeneratorFactory[T] {
	return &GeneratorFactory[T]{gen: gen}
}

func (g *GeneratorFactory[T]) ReturnType() NodeType { return TypeOf[T]() }
func (g *GeneratorFactory[T]) ArgTypes() []NodeType { return nil }
func (g *GeneratorFactory[T]) Stateful() bool { return true }
func (g *GeneratorFactory[T]) Pure() bool { return true }

func (g *GeneratorFactory[T]) CreateNode(rng *rand.Rand, children []*Tree) (*Tree, error) {
	if err := checkChildren(g, children); err != nil {
		return nil, err
	}
	v := g.gen(rng)
	if !finite(v) {
		return nil, fmt.Errorf("%w: generated %v", ErrInvalidState, v)
	}
	return g.NewNode(v), nil
}

// finite reports false for NaN and infinite floats, which cannot be
// serialized or compared as state.
func finite(v any) bool {
	switch x := v.(type) {
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
	}
	return true
}

// NewNode builds a node holding v without calling the generator. Float
// values must be finite.
func (g *GeneratorFactory[T]) NewNode(v T) *Tree {
	return newTree(g, nil, v)
}

func (g *GeneratorFactory[T]) SerializeState(t *Tree) (json.RawMessage, error) {
	v, ok := t.state.(T)
	if !ok {
		return nil, fmt.Errorf("%w: state is %T, want %s", ErrInvalidState, t.state, reflect.TypeFor[T]())
	}
	return json.Marshal(generatedState[T]{Constant: &v})
}

func (g *GeneratorFactory[T]) Deserialize(state json.RawMessage, children []*Tree) (*Tree, error) {
	if err := checkChildren(g, children); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(state)) == 0 {
		return nil, fmt.Errorf("%w: missing constant", ErrInvalidState)
	}
	var s generatedState[T]
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if s.Constant == nil {
		return nil, fmt.Errorf("%w: missing constant", ErrInvalidState)
	}
	return g.NewNode(*s.Constant), nil
}

func (g *GeneratorFactory[T]) Apply(_ *Env, state any, _ []any) (any, error) {
	return state, nil
}

// constantFactory backs the leaves produced by constant folding. It is never
// registered, so folded trees cannot be serialized.
type constantFactory struct {
	ret NodeType
}

func constantNode(ret NodeType, v any) *Tree {
	return newTree(constantFactory{ret: ret}, nil, v)
}

func (c constantFactory) ReturnType() NodeType { return c.ret }
func (c constantFactory) ArgTypes() []NodeType { return nil }
func (c constantFactory) Stateful() bool { return false }
func (c constantFactory) Pure() bool { return true }

func (c constantFactory) CreateNode(*rand.Rand, []*Tree) (*Tree, error) {
	return nil, fmt.Errorf("%w: folded constant has no value to create from", ErrInvalidState)
}

func (c constantFactory) SerializeState(*Tree) (json.RawMessage, error) {
	return nil, fmt.Errorf("%w: folded constant", ErrUnknownFactory)
}

func (c constantFactory) Deserialize(json.RawMessage, []*Tree) (*Tree, error) {
	return nil, fmt.Errorf("%w: folded constant", ErrUnknownFactory)
}

func (c constantFactory) Apply(_ *Env, state any, _ []any) (any, error) {
	return state, nil
}
