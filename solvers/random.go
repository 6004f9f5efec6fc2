package solvers

import (
	"golang.org/x/exp/rand"

	"github.com/nkats/pomdp-plan/pomdp"
)

// RandomPolicy picks uniformly among the model's actions, ignoring the
// belief. Baseline for experiment comparisons.
//
// The policy owns a seeded source and is therefore not safe for
// concurrent use, give each parallel run its own instance.
type RandomPolicy struct {
	actions []pomdp.Action
	rng     *rand.Rand
}

func NewRandomPolicy(m pomdp.Model, seed uint64) *RandomPolicy {
	return &RandomPolicy{
		actions: m.Actions(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

var _ Policy = &RandomPolicy{}

func (r *RandomPolicy) Action(b *pomdp.Belief) (pomdp.Action, error) {
	return r.actions[r.rng.Intn(len(r.actions))], nil
}
