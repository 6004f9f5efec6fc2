package sim

import (
	"errors"
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/nkats/pomdp-plan/pomdp"
	"github.com/nkats/pomdp-plan/solvers"
)

// AgentConfig configures a closed-loop agent over a model and a policy.
type AgentConfig struct {
	Model   pomdp.Model
	Policy  solvers.Policy
	Updater *pomdp.Updater
	// Belief at the start of every episode. Defaults to the model's
	// initial state distribution
	InitialBelief *pomdp.Belief
	// Step budget per episode
	MaxSteps int
	// Seed for the agent's random source
	Seed uint64
	// Reset the belief to uniform instead of aborting the run when an
	// observation is impossible under the updater's model
	ResetOnImpossibleObs bool
}

// Agent drives the closed loop: the model produces true state
// transitions and observations, the updater maintains the belief, the
// policy chooses actions from the belief. The agent owns all run-scoped
// mutable state, the model and policy are borrowed read-only.
type Agent struct {
	config *AgentConfig
	rng    rand.Source
}

func NewAgent(config *AgentConfig) (*Agent, error) {
	if config.Model == nil {
		return nil, &pomdp.ConfigurationError{Param: "Model", Reason: "missing"}
	}
	if config.Policy == nil {
		return nil, &pomdp.ConfigurationError{Param: "Policy", Reason: "missing"}
	}
	if config.MaxSteps <= 0 {
		return nil, &pomdp.ConfigurationError{Param: "MaxSteps", Reason: fmt.Sprintf("must be positive, got %d", config.MaxSteps)}
	}
	if config.Updater == nil {
		config.Updater = pomdp.NewUpdater(config.Model)
	}
	return &Agent{
		config: config,
		rng:    rand.NewSource(config.Seed),
	}, nil
}

// RunEpisode runs one episode and returns its total discounted reward
// and trace. Consecutive episodes continue the same source stream, so
// a fixed seed reproduces the whole sequence of episodes exactly.
func (a *Agent) RunEpisode() (float64, *pomdp.Trace, error) {
	belief := a.config.InitialBelief
	if belief == nil {
		belief = pomdp.InitialBelief(a.config.Model)
	}
	return simulate(a.config.Model, a.config.Policy, a.config.Updater, belief,
		a.rng, a.config.MaxSteps, a.config.ResetOnImpossibleObs)
}

// Simulate drives a single run of maxSteps steps (fewer if the model
// declares the reached state terminal) and returns the total discounted
// reward and the recorded trace. Impossible observations abort the run
// with the trace so far.
func Simulate(m pomdp.Model, p solvers.Policy, u *pomdp.Updater, initial *pomdp.Belief, src rand.Source, maxSteps int) (float64, *pomdp.Trace, error) {
	return simulate(m, p, u, initial, src, maxSteps, false)
}

func simulate(m pomdp.Model, p solvers.Policy, u *pomdp.Updater, belief *pomdp.Belief, src rand.Source, maxSteps int, resetOnImpossible bool) (float64, *pomdp.Trace, error) {
	if maxSteps <= 0 {
		return 0, nil, &pomdp.ConfigurationError{Param: "maxSteps", Reason: fmt.Sprintf("must be positive, got %d", maxSteps)}
	}

	trace := pomdp.NewTrace()
	state := m.InitialState().Sample(src)
	gamma := m.Discount()
	total := 0.0
	discount := 1.0

	for t := 0; t < maxSteps; t++ {
		if pomdp.IsTerminal(m, state) {
			break
		}
		action, err := p.Action(belief)
		if err != nil {
			return total, trace, err
		}
		next := m.Transition(state, action).Sample(src)
		obs := m.Observation(state, action, next).Sample(src)
		reward := pomdp.RewardNext(m, state, action, next)

		nextBelief, err := u.Update(belief, action, obs)
		if err != nil {
			var impossible *pomdp.ImpossibleObservationError
			if !errors.As(err, &impossible) || !resetOnImpossible {
				return total, trace, err
			}
			nextBelief = pomdp.UniformBelief(m)
		}

		trace.Append(pomdp.Step{
			State:       state,
			Action:      action,
			Observation: obs,
			Reward:      reward,
			Belief:      belief,
		})
		total += discount * reward
		discount *= gamma
		state = next
		belief = nextBelief
	}
	return total, trace, nil
}
