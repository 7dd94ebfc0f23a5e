package pool

import (
	"math"

	"github.com/wildfunctions/evogp/pkg/gp"
)

func init() {
	Register("kitchensink", func() Pool { return &KitchenSinkPool{} })
}

// KitchenSinkPool extends moderate with trig, ln and abs, plus a boolean
// comparison feeding a conditional so trees mix two value types.
type KitchenSinkPool struct{}

func (p *KitchenSinkPool) Name() string { return "kitchensink" }

func (p *KitchenSinkPool) Build(numArgs int) (*gp.PSet, error) {
	b := newBuilder(numArgs)
	moderate(b)
	b.add("sin", gp.Func1(math.Sin), 1)
	b.add("cos", gp.Func1(math.Cos), 1)
	b.add("ln", gp.Func1(ln), 1)
	b.add("abs", gp.Func1(math.Abs), 1)

	b.op("lt", "<", gp.Func2(func(a, b float64) bool { return a < b }))
	b.add("and", gp.Func2(func(a, b bool) bool { return a && b }), 0.5)
	b.add("not", gp.Func1(func(a bool) bool { return !a }), 0.5)
	b.add("true", gp.Constant(true), 0.5)
	b.add("false", gp.Constant(false), 0.5)
	b.add("if", gp.Func3(ifThenElse), 1)
	return b.build()
}

func ifThenElse(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
