package symreg

import (
	"fmt"
	"math/rand"
)

// Dataset is a fixed sample of a target: Outputs[i] = target(Inputs[i]).
type Dataset struct {
	Inputs  [][]float64
	Outputs []float64
}

// Sample draws n points uniformly from the target's input box.
func Sample(rng *rand.Rand, t *Target, n int) (*Dataset, error) {
	if n < 1 {
		return nil, fmt.Errorf("sample size must be positive, got %d", n)
	}
	ds := &Dataset{
		Inputs:  make([][]float64, n),
		Outputs: make([]float64, n),
	}
	for i := range n {
		x := make([]float64, t.Arity)
		for j := range x {
			x[j] = t.Lo + rng.Float64()*(t.Hi-t.Lo)
		}
		ds.Inputs[i] = x
		ds.Outputs[i] = t.Fn(x)
	}
	return ds, nil
}

// Len returns the number of points.
func (d *Dataset) Len() int { return len(d.Outputs) }

// args converts point i to evaluation arguments.
func (d *Dataset) args(i int) []any {
	x := d.Inputs[i]
	out := make([]any, len(x))
	for j, v := range x {
		out[j] = v
	}
	return out
}
