// Package symreg scores expression trees against a known target function
// sampled on a fixed set of points (symbolic regression).
package symreg

import (
	"maps"
	"math"
	"slices"
)

// Target is a function the search tries to rediscover.
// Every input is sampled from [Lo, Hi).
type Target struct {
	Name    string
	Formula string
	Arity   int
	Lo      float64
	Hi      float64
	Fn      func(x []float64) float64
}

var targets = map[string]*Target{}

func register(t *Target) { targets[t.Name] = t }

// Get returns the named target, or nil.
func Get(name string) *Target { return targets[name] }

// Names returns all target names, sorted.
func Names() []string { return slices.Sorted(maps.Keys(targets)) }

func init() {
	register(&Target{
		Name: "linear", Formula: "2*x+1", Arity: 1, Lo: -10, Hi: 10,
		Fn: func(x []float64) float64 { return 2*x[0] + 1 },
	})
	register(&Target{
		Name: "poly3", Formula: "x*(x+1)*(x-99)", Arity: 1, Lo: -100, Hi: 100,
		Fn: func(x []float64) float64 { return x[0] * (x[0] + 1) * (x[0] - 99) },
	})
	register(&Target{
		Name: "quartic", Formula: "x^4+x^3+x^2+x", Arity: 1, Lo: -1, Hi: 1,
		Fn: func(x []float64) float64 {
			v := x[0]
			return v*v*v*v + v*v*v + v*v + v
		},
	})
	register(&Target{
		Name: "nguyen5", Formula: "sin(x^2)*cos(x)-1", Arity: 1, Lo: -1, Hi: 1,
		Fn: func(x []float64) float64 { return math.Sin(x[0]*x[0])*math.Cos(x[0]) - 1 },
	})
	register(&Target{
		Name: "nguyen7", Formula: "ln(x+1)+ln(x^2+1)", Arity: 1, Lo: 0, Hi: 2,
		Fn: func(x []float64) float64 { return math.Log(x[0]+1) + math.Log(x[0]*x[0]+1) },
	})
	register(&Target{
		Name: "plane", Formula: "x0*x1+x0-x1", Arity: 2, Lo: -5, Hi: 5,
		Fn: func(x []float64) float64 { return x[0]*x[1] + x[0] - x[1] },
	})
	register(&Target{
		Name: "ramp", Formula: "x0 < x1 ? x0 : x1*x1", Arity: 2, Lo: -3, Hi: 3,
		Fn: func(x []float64) float64 {
			if x[0] < x[1] {
				return x[0]
			}
			return x[1] * x[1]
		},
	})
}
