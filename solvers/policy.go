package solvers

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/nkats/pomdp-plan/pomdp"
	"github.com/nkats/pomdp-plan/util"
)

// Policy maps a belief to an action. Implementations must be pure so a
// single policy can serve any number of concurrent simulation runs.
type Policy interface {
	Action(b *pomdp.Belief) (pomdp.Action, error)
}

// AlphaVector holds one value per state for a single action, in
// state-index order.
type AlphaVector struct {
	Action pomdp.Action
	Values []float64
}

// AlphaVectorPolicy selects the action whose alpha vector has the
// largest expected value under the belief. Immutable after
// construction and safe to share read-only.
type AlphaVectorPolicy struct {
	alphas []AlphaVector
}

// NewAlphaVectorPolicy expects one alpha vector per action in
// action-index order, all of the same length.
func NewAlphaVectorPolicy(alphas []AlphaVector) (*AlphaVectorPolicy, error) {
	if len(alphas) == 0 {
		return nil, &pomdp.ConfigurationError{Param: "alphas", Reason: "no alpha vectors"}
	}
	width := len(alphas[0].Values)
	for j, alpha := range alphas {
		if alpha.Action.Index() != j {
			return nil, &pomdp.ConfigurationError{
				Param:  "alphas",
				Reason: fmt.Sprintf("vector at %d belongs to action %q with index %d", j, alpha.Action.Hash(), alpha.Action.Index()),
			}
		}
		if len(alpha.Values) != width {
			return nil, &pomdp.ConfigurationError{
				Param:  "alphas",
				Reason: fmt.Sprintf("vector for %q has %d entries, expected %d", alpha.Action.Hash(), len(alpha.Values), width),
			}
		}
	}
	return &AlphaVectorPolicy{alphas: alphas}, nil
}

var _ Policy = &AlphaVectorPolicy{}

// Action returns the expected-value maximizing action under b. Ties
// break to the lowest action index.
func (p *AlphaVectorPolicy) Action(b *pomdp.Belief) (pomdp.Action, error) {
	vec := b.Vector()
	if len(vec) != len(p.alphas[0].Values) {
		return nil, fmt.Errorf("belief over %d states against alpha vectors over %d", len(vec), len(p.alphas[0].Values))
	}
	best := 0
	bestValue := floats.Dot(vec, p.alphas[0].Values)
	for j := 1; j < len(p.alphas); j++ {
		if value := floats.Dot(vec, p.alphas[j].Values); value > bestValue {
			bestValue = value
			best = j
		}
	}
	return p.alphas[best].Action, nil
}

// Value is the expected value of the best action under b.
func (p *AlphaVectorPolicy) Value(b *pomdp.Belief) float64 {
	vec := b.Vector()
	best := floats.Dot(vec, p.alphas[0].Values)
	for j := 1; j < len(p.alphas); j++ {
		if value := floats.Dot(vec, p.alphas[j].Values); value > best {
			best = value
		}
	}
	return best
}

// AlphaVectors returns the vectors in action-index order.
// Callers must not modify them.
func (p *AlphaVectorPolicy) AlphaVectors() []AlphaVector {
	return p.alphas
}

type alphaRecord struct {
	Action string    `json:"action"`
	Values []float64 `json:"values"`
}

func (p *AlphaVectorPolicy) MarshalJSON() ([]byte, error) {
	records := make([]alphaRecord, len(p.alphas))
	for j, alpha := range p.alphas {
		records[j] = alphaRecord{Action: alpha.Action.Hash(), Values: alpha.Values}
	}
	return json.Marshal(records)
}

// Record writes the alpha vectors to a JSON file.
func (p *AlphaVectorPolicy) Record(path string) error {
	return util.WriteJSON(path, p)
}
