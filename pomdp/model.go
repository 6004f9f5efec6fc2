package pomdp

import "fmt"

// State of the world as the model enumerates it.
// Values are immutable and finite in number.
type State interface {
	// Position in the model's state enumeration.
	// Should be stable and bijective
	Index() int
	// Printable identity, used for trace recording
	Hash() string
}

// An Action the agent can take
type Action interface {
	Index() int
	Hash() string
}

// An Observation the agent perceives after acting
type Observation interface {
	Index() int
	Hash() string
}

// Model is the problem definition: finite state, action and observation
// sets plus the probabilistic transition, observation and reward laws.
// All query methods are pure and total over the enumerated sets, so a
// Model is safe to share read-only between a solver and any number of
// simulation runs.
type Model interface {
	// Enumerations are fixed and order-stable.
	// Element i must report Index() == i
	States() []State
	Actions() []Action
	Observations() []Observation

	// Distribution over next states after taking a in s
	Transition(s State, a Action) *Distribution[State]
	// Distribution over observations after taking a in s and landing
	// in next. Models are free to ignore s, the interface accepts it
	// for problems where the originating state matters
	Observation(s State, a Action, next State) *Distribution[Observation]
	// Immediate reward for taking a in s
	Reward(s State, a Action) float64

	// Distribution the true state is drawn from at the start of a run
	InitialState() *Distribution[State]
	// Discount factor in [0,1]
	Discount() float64
}

// TransitionRewarder is implemented by models whose reward depends on
// the resulting state as well.
type TransitionRewarder interface {
	RewardNext(s State, a Action, next State) float64
}

// RewardNext queries the three-argument reward when the model declares
// one and falls back to Reward(s, a) otherwise.
func RewardNext(m Model, s State, a Action, next State) float64 {
	if tr, ok := m.(TransitionRewarder); ok {
		return tr.RewardNext(s, a, next)
	}
	return m.Reward(s, a)
}

// Terminator is implemented by models with absorbing states.
type Terminator interface {
	Terminal(s State) bool
}

// IsTerminal reports whether s is absorbing. Models that do not declare
// terminal states never terminate before the step budget.
func IsTerminal(m Model, s State) bool {
	if t, ok := m.(Terminator); ok {
		return t.Terminal(s)
	}
	return false
}

// Validate checks the structural invariants of a model: discount range,
// index bijectivity and unit mass of every declared distribution.
// Violations are model-definition bugs and surface as errors here
// instead of corrupting a solve or a simulation later.
func Validate(m Model) error {
	if gamma := m.Discount(); gamma < 0 || gamma > 1 {
		return &ConfigurationError{Param: "discount", Reason: fmt.Sprintf("must lie in [0,1], got %v", gamma)}
	}

	states := m.States()
	actions := m.Actions()
	observations := m.Observations()
	if len(states) == 0 {
		return &ConfigurationError{Param: "states", Reason: "enumeration is empty"}
	}
	if len(actions) == 0 {
		return &ConfigurationError{Param: "actions", Reason: "enumeration is empty"}
	}
	if len(observations) == 0 {
		return &ConfigurationError{Param: "observations", Reason: "enumeration is empty"}
	}
	for i, s := range states {
		if s.Index() != i {
			return &ConfigurationError{Param: "states", Reason: fmt.Sprintf("%q enumerated at %d but reports index %d", s.Hash(), i, s.Index())}
		}
	}
	for i, a := range actions {
		if a.Index() != i {
			return &ConfigurationError{Param: "actions", Reason: fmt.Sprintf("%q enumerated at %d but reports index %d", a.Hash(), i, a.Index())}
		}
	}
	for i, o := range observations {
		if o.Index() != i {
			return &ConfigurationError{Param: "observations", Reason: fmt.Sprintf("%q enumerated at %d but reports index %d", o.Hash(), i, o.Index())}
		}
	}

	if err := checkMass(m.InitialState(), "initial state"); err != nil {
		return err
	}
	for _, s := range states {
		for _, a := range actions {
			if err := checkMass(m.Transition(s, a), fmt.Sprintf("transition(%s, %s)", s.Hash(), a.Hash())); err != nil {
				return err
			}
			for _, next := range states {
				if err := checkMass(m.Observation(s, a, next), fmt.Sprintf("observation(%s, %s, %s)", s.Hash(), a.Hash(), next.Hash())); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkMass[O Outcome](d *Distribution[O], context string) error {
	if d == nil {
		return &DistributionError{Context: context, Reason: "no distribution declared"}
	}
	if sum := d.mass(); !unitMass(sum) {
		return &DistributionError{Context: context, Reason: fmt.Sprintf("mass sums to %v", sum)}
	}
	return nil
}
