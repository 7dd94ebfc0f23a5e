package pool

import (
	"fmt"
	"maps"
	"math"
	"math/rand"
	"slices"
	"strconv"

	"github.com/wildfunctions/evogp/pkg/gp"
)

// Float is the node type of every numeric value in the presets.
var Float = gp.TypeOf[float64]()

// Pool builds the primitive set used to grow candidate expressions.
type Pool interface {
	Name() string
	// Build returns a fresh set with one argument terminal per input
	// variable.
	Build(numArgs int) (*gp.PSet, error)
}

var registry = map[string]func() Pool{}

// Register adds a pool constructor to the registry.
func Register(name string, constructor func() Pool) {
	registry[name] = constructor
}

// Get returns a pool by name.
func Get(name string) (Pool, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown pool: %s", name)
	}
	return ctor(), nil
}

// Names returns all registered pool names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(registry))
}

// ArgName is the terminal name of input variable i out of n.
func ArgName(i, n int) string {
	if n == 1 {
		return "x"
	}
	return "x" + strconv.Itoa(i)
}

type builder struct {
	pset *gp.PSet
	err  error
}

func newBuilder(numArgs int) *builder {
	b := &builder{pset: gp.NewPSet(Float)}
	if numArgs < 1 {
		b.err = fmt.Errorf("pool needs at least one input variable, got %d", numArgs)
		return b
	}
	for i := range numArgs {
		b.add(ArgName(i, numArgs), gp.Arg[float64](i), 1)
	}
	return b
}

func (b *builder) add(name string, f gp.Factory, weight float64) {
	if b.err != nil {
		return
	}
	b.err = b.pset.RegisterWeighted(name, f, weight)
}

func (b *builder) op(name, symbol string, f gp.Factory) {
	b.add(name, f, 1)
	b.pset.SetSymbol(name, symbol)
}

func (b *builder) build() (*gp.PSet, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.pset, nil
}

// Arithmetic shared by the presets. Partial functions are protected so that
// every tree evaluates to a number.

func add(a, b float64) float64 { return a + b }
func sub(a, b float64) float64 { return a - b }
func mul(a, b float64) float64 { return a * b }
func neg(a float64) float64 { return -a }

// div returns 1 when the divisor is (nearly) zero.
func div(a, b float64) float64 {
	if math.Abs(b) < 1e-12 {
		return 1
	}
	return a / b
}

func sqrt(a float64) float64 { return math.Sqrt(math.Abs(a)) }

// ln returns 0 at zero and works on the magnitude otherwise.
func ln(a float64) float64 {
	if a == 0 {
		return 0
	}
	return math.Log(math.Abs(a))
}

func square(a float64) float64 { return a * a }

// smallInt draws the integers 1..10 used as ephemeral constants.
func smallInt(rng *rand.Rand) float64 {
	return float64(rng.Intn(10) + 1)
}
