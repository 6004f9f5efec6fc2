package tiger

import (
	"fmt"

	"github.com/nkats/pomdp-plan/pomdp"
)

// The tiger problem: a tiger hides behind one of two doors. The agent
// can listen for it (noisy, it hears the correct side with probability
// ListenAccuracy at cost ListenReward) or open a door. Opening the
// tiger's door costs WrongDoorReward, the other door pays
// RightDoorReward, and either way the tiger is redrawn uniformly.

// TigerState is the door hiding the tiger.
type TigerState int

const (
	TigerLeft TigerState = iota
	TigerRight
)

var _ pomdp.State = TigerLeft

func (s TigerState) Index() int {
	return int(s)
}

func (s TigerState) Hash() string {
	if s == TigerLeft {
		return "tiger-left"
	}
	return "tiger-right"
}

type TigerAction int

const (
	Listen TigerAction = iota
	OpenLeft
	OpenRight
)

var _ pomdp.Action = Listen

func (a TigerAction) Index() int {
	return int(a)
}

func (a TigerAction) Hash() string {
	switch a {
	case Listen:
		return "listen"
	case OpenLeft:
		return "open-left"
	}
	return "open-right"
}

// TigerObservation is the side the agent heard the tiger on.
type TigerObservation int

const (
	HearLeft TigerObservation = iota
	HearRight
)

var _ pomdp.Observation = HearLeft

func (o TigerObservation) Index() int {
	return int(o)
}

func (o TigerObservation) Hash() string {
	if o == HearLeft {
		return "hear-left"
	}
	return "hear-right"
}

// Config holds the scalar parameters of the problem.
type Config struct {
	// Probability that listening reports the correct side
	ListenAccuracy float64
	// Reward for listening, a cost
	ListenReward float64
	// Reward for opening the tiger's door
	WrongDoorReward float64
	// Reward for opening the other door
	RightDoorReward float64
	Discount        float64
}

// DefaultConfig is the standard parameterization of the problem.
func DefaultConfig() *Config {
	return &Config{
		ListenAccuracy:  0.85,
		ListenReward:    -1,
		WrongDoorReward: -100,
		RightDoorReward: 10,
		Discount:        0.95,
	}
}

// TigerPOMDP is the problem as a pomdp.Model. Distributions are
// precomputed at construction, queries allocate nothing.
type TigerPOMDP struct {
	config *Config

	states       []pomdp.State
	actions      []pomdp.Action
	observations []pomdp.Observation

	uniform    *pomdp.Distribution[pomdp.State]
	stay       []*pomdp.Distribution[pomdp.State]
	listenObs  []*pomdp.Distribution[pomdp.Observation]
	uniformObs *pomdp.Distribution[pomdp.Observation]
}

var _ pomdp.Model = &TigerPOMDP{}

// New fails with a ConfigurationError when the discount or a
// probability parameter leaves [0,1].
func New(config *Config) (*TigerPOMDP, error) {
	if config.ListenAccuracy < 0 || config.ListenAccuracy > 1 {
		return nil, &pomdp.ConfigurationError{
			Param:  "ListenAccuracy",
			Reason: fmt.Sprintf("must lie in [0,1], got %v", config.ListenAccuracy),
		}
	}
	if config.Discount < 0 || config.Discount > 1 {
		return nil, &pomdp.ConfigurationError{
			Param:  "Discount",
			Reason: fmt.Sprintf("must lie in [0,1], got %v", config.Discount),
		}
	}

	states := []pomdp.State{TigerLeft, TigerRight}
	observations := []pomdp.Observation{HearLeft, HearRight}
	acc := config.ListenAccuracy

	t := &TigerPOMDP{
		config:       config,
		states:       states,
		actions:      []pomdp.Action{Listen, OpenLeft, OpenRight},
		observations: observations,

		uniform: pomdp.MustDistribution(states, []float64{0.5, 0.5}),
		stay: []*pomdp.Distribution[pomdp.State]{
			pomdp.Deterministic(states[TigerLeft]),
			pomdp.Deterministic(states[TigerRight]),
		},
		// hearing is right with probability acc given where the tiger is
		listenObs: []*pomdp.Distribution[pomdp.Observation]{
			pomdp.MustDistribution(observations, []float64{acc, 1 - acc}),
			pomdp.MustDistribution(observations, []float64{1 - acc, acc}),
		},
		uniformObs: pomdp.MustDistribution(observations, []float64{0.5, 0.5}),
	}
	return t, nil
}

func (t *TigerPOMDP) States() []pomdp.State {
	return t.states
}

func (t *TigerPOMDP) Actions() []pomdp.Action {
	return t.actions
}

func (t *TigerPOMDP) Observations() []pomdp.Observation {
	return t.observations
}

// Transition keeps the tiger in place while listening and redraws it
// uniformly when a door opens.
func (t *TigerPOMDP) Transition(s pomdp.State, a pomdp.Action) *pomdp.Distribution[pomdp.State] {
	if a.(TigerAction) == Listen {
		return t.stay[s.Index()]
	}
	return t.uniform
}

// Observation conditions on the action and the resulting state only,
// the originating state is ignored. That is a property of this problem
// family, not of the Model interface.
func (t *TigerPOMDP) Observation(s pomdp.State, a pomdp.Action, next pomdp.State) *pomdp.Distribution[pomdp.Observation] {
	if a.(TigerAction) == Listen {
		return t.listenObs[next.Index()]
	}
	// opening a door reveals nothing about the redrawn tiger
	return t.uniformObs
}

func (t *TigerPOMDP) Reward(s pomdp.State, a pomdp.Action) float64 {
	switch a.(TigerAction) {
	case Listen:
		return t.config.ListenReward
	case OpenLeft:
		if s.(TigerState) == TigerLeft {
			return t.config.WrongDoorReward
		}
		return t.config.RightDoorReward
	default:
		if s.(TigerState) == TigerRight {
			return t.config.WrongDoorReward
		}
		return t.config.RightDoorReward
	}
}

func (t *TigerPOMDP) InitialState() *pomdp.Distribution[pomdp.State] {
	return t.uniform
}

func (t *TigerPOMDP) Discount() float64 {
	return t.config.Discount
}
