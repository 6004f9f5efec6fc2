package pomdp

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Tolerance on the total probability mass of a distribution
const MassTolerance = 1e-9

// Outcome is anything a finite discrete distribution ranges over.
// State, Action and Observation all satisfy it.
type Outcome interface {
	Index() int
	Hash() string
}

// Distribution is a finite discrete probability distribution with a
// fixed outcome order. Immutable after construction.
type Distribution[O Outcome] struct {
	outcomes []O
	probs    []float64
}

// NewDistribution builds a distribution over the given outcomes. It
// fails fast with a DistributionError on negative mass or a total off
// one by more than MassTolerance, to surface model-definition bugs at
// the point they are introduced.
func NewDistribution[O Outcome](outcomes []O, probs []float64) (*Distribution[O], error) {
	if len(outcomes) != len(probs) {
		return nil, &DistributionError{
			Context: "construction",
			Reason:  fmt.Sprintf("%d outcomes against %d probabilities", len(outcomes), len(probs)),
		}
	}
	if len(outcomes) == 0 {
		return nil, &DistributionError{Context: "construction", Reason: "empty support"}
	}
	sum := 0.0
	for i, p := range probs {
		if p < 0 {
			return nil, &DistributionError{
				Context: "construction",
				Reason:  fmt.Sprintf("negative mass %v on %q", p, outcomes[i].Hash()),
			}
		}
		sum += p
	}
	if !unitMass(sum) {
		return nil, &DistributionError{
			Context: "construction",
			Reason:  fmt.Sprintf("mass sums to %v", sum),
		}
	}
	d := &Distribution[O]{
		outcomes: make([]O, len(outcomes)),
		probs:    make([]float64, len(probs)),
	}
	copy(d.outcomes, outcomes)
	copy(d.probs, probs)
	return d, nil
}

// MustDistribution is NewDistribution for distributions built from
// already-validated parameters. Panics on invalid mass.
func MustDistribution[O Outcome](outcomes []O, probs []float64) *Distribution[O] {
	d, err := NewDistribution(outcomes, probs)
	if err != nil {
		panic(err)
	}
	return d
}

// Deterministic puts all mass on a single outcome.
func Deterministic[O Outcome](o O) *Distribution[O] {
	return &Distribution[O]{outcomes: []O{o}, probs: []float64{1}}
}

// Outcomes returns the support in its declared order.
// Callers must not modify the returned slice.
func (d *Distribution[O]) Outcomes() []O {
	return d.outcomes
}

// Probability of an outcome, zero for outcomes outside the support.
func (d *Distribution[O]) Probability(o O) float64 {
	for i, out := range d.outcomes {
		if out.Index() == o.Index() {
			return d.probs[i]
		}
	}
	return 0
}

// Sample draws one outcome using a single variate from src. For a
// fixed source stream the draw sequence is reproducible.
func (d *Distribution[O]) Sample(src rand.Source) O {
	weights := make([]float64, len(d.probs))
	copy(weights, d.probs)
	i, ok := sampleuv.NewWeighted(weights, src).Take()
	if !ok {
		// only reachable when rounding ate all the residual mass,
		// fall back to the mode
		i = maxIndex(d.probs)
	}
	return d.outcomes[i]
}

func (d *Distribution[O]) mass() float64 {
	sum := 0.0
	for _, p := range d.probs {
		sum += p
	}
	return sum
}

func unitMass(sum float64) bool {
	return math.Abs(sum-1) <= MassTolerance
}

func maxIndex(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}
