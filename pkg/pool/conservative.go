package pool

import "github.com/wildfunctions/evogp/pkg/gp"

func init() {
	Register("conservative", func() Pool { return &ConservativePool{} })
}

// ConservativePool provides basic building blocks: the inputs, the constant
// 1, integers 1-10, negation and ring arithmetic.
type ConservativePool struct{}

func (p *ConservativePool) Name() string { return "conservative" }

func (p *ConservativePool) Build(numArgs int) (*gp.PSet, error) {
	b := newBuilder(numArgs)
	conservative(b)
	return b.build()
}

func conservative(b *builder) {
	b.add("one", gp.Constant(1.0), 1)
	b.add("int", gp.Ephemeral(smallInt), 1)
	b.op("add", "+", gp.Func2(add))
	b.op("sub", "-", gp.Func2(sub))
	b.op("mul", "*", gp.Func2(mul))
	b.op("neg", "-", gp.Func1(neg))
}
