package pool

import (
	"math/rand"

	"github.com/wildfunctions/evogp/pkg/gp"
)

func init() {
	Register("moderate", func() Pool { return &ModeratePool{} })
}

// ModeratePool extends conservative with powers of 2/3 as constants,
// protected division, square and square root.
type ModeratePool struct{}

func (p *ModeratePool) Name() string { return "moderate" }

func (p *ModeratePool) Build(numArgs int) (*gp.PSet, error) {
	b := newBuilder(numArgs)
	moderate(b)
	return b.build()
}

func moderate(b *builder) {
	conservative(b)
	b.add("pow", gp.Ephemeral(powerOf2or3), 0.5)
	b.op("div", "/", gp.Func2(div))
	b.add("square", gp.Func1(square), 1)
	b.add("sqrt", gp.Func1(sqrt), 1)
}

var powersOf3 = []float64{3, 9, 27}

// powerOf2or3 draws 2, 4, 8, 16 or 3, 9, 27.
func powerOf2or3(rng *rand.Rand) float64 {
	if rng.Float64() < 0.5 {
		return float64(int(1) << (rng.Intn(4) + 1))
	}
	return powersOf3[rng.Intn(len(powersOf3))]
}
