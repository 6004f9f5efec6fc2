package pomdp

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Belief is the agent's probability distribution over states, stored
// as a dense vector in state-index order. A Belief is owned by a
// single run and replaced wholesale on every update, it is never
// mutated in place.
//
// Belief and Distribution play different roles: a Distribution is part
// of the immutable model, a Belief is run-local agent state.
type Belief struct {
	states []State
	probs  []float64
}

// NewBelief builds a belief from probabilities in state-index order.
func NewBelief(states []State, probs []float64) (*Belief, error) {
	if len(states) != len(probs) {
		return nil, &DistributionError{
			Context: "belief",
			Reason:  fmt.Sprintf("%d states against %d probabilities", len(states), len(probs)),
		}
	}
	sum := 0.0
	for i, p := range probs {
		if p < 0 {
			return nil, &DistributionError{
				Context: "belief",
				Reason:  fmt.Sprintf("negative mass %v on %q", p, states[i].Hash()),
			}
		}
		sum += p
	}
	if !unitMass(sum) {
		return nil, &DistributionError{Context: "belief", Reason: fmt.Sprintf("mass sums to %v", sum)}
	}
	b := &Belief{states: states, probs: make([]float64, len(probs))}
	copy(b.probs, probs)
	return b, nil
}

// UniformBelief spreads mass equally over the model's states.
func UniformBelief(m Model) *Belief {
	states := m.States()
	probs := make([]float64, len(states))
	for i := range probs {
		probs[i] = 1 / float64(len(states))
	}
	return &Belief{states: states, probs: probs}
}

// InitialBelief is the model's initial state distribution as a belief.
func InitialBelief(m Model) *Belief {
	states := m.States()
	init := m.InitialState()
	probs := make([]float64, len(states))
	for i, s := range states {
		probs[i] = init.Probability(s)
	}
	return &Belief{states: states, probs: probs}
}

// Probability of the agent being in s under this belief.
func (b *Belief) Probability(s State) float64 {
	i := s.Index()
	if i < 0 || i >= len(b.probs) {
		return 0
	}
	return b.probs[i]
}

// Vector returns the probabilities in state-index order.
// Callers must not modify the returned slice.
func (b *Belief) Vector() []float64 {
	return b.probs
}

// Sample draws a state from the belief.
func (b *Belief) Sample(src rand.Source) State {
	weights := make([]float64, len(b.probs))
	copy(weights, b.probs)
	i, ok := sampleuv.NewWeighted(weights, src).Take()
	if !ok {
		i = maxIndex(b.probs)
	}
	return b.states[i]
}

// MostLikely returns the mode of the belief, ties break to the lowest
// state index.
func (b *Belief) MostLikely() State {
	return b.states[maxIndex(b.probs)]
}

// Updater computes posterior beliefs via the discrete Bayes filter,
// using the transition and observation laws of the model it was built
// with.
type Updater struct {
	model Model
}

func NewUpdater(m Model) *Updater {
	return &Updater{model: m}
}

// Update returns the posterior belief after taking action a and
// receiving observation o:
//
//	posterior(s') ∝ Σ_s b(s) · T(s'|s,a) · O(o|s,a,s')
//
// When the posterior mass is zero the observation is inconsistent with
// every reachable state and an ImpossibleObservationError is returned,
// the updater never renormalizes a degenerate posterior. The prior
// belief is left untouched.
func (u *Updater) Update(b *Belief, a Action, o Observation) (*Belief, error) {
	states := u.model.States()
	posterior := make([]float64, len(states))
	total := 0.0
	for j, next := range states {
		acc := 0.0
		for i, s := range states {
			prior := b.probs[i]
			if prior == 0 {
				continue
			}
			tp := u.model.Transition(s, a).Probability(next)
			if tp == 0 {
				continue
			}
			acc += prior * tp * u.model.Observation(s, a, next).Probability(o)
		}
		posterior[j] = acc
		total += acc
	}
	if total <= 0 {
		return nil, &ImpossibleObservationError{Action: a, Observation: o}
	}
	floats.Scale(1/total, posterior)
	return &Belief{states: states, probs: posterior}, nil
}
