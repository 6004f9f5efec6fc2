package pomdp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two-state chain: stay keeps the state, swap flips it. Staying in
// chainB pays 1, everything else pays 0. Observations lean towards the
// occupied state, obsNever has zero probability everywhere.

type chainState int

const (
	chainA chainState = iota
	chainB
)

func (s chainState) Index() int {
	return int(s)
}

func (s chainState) Hash() string {
	if s == chainA {
		return "a"
	}
	return "b"
}

type chainAction int

const (
	chainStay chainAction = iota
	chainSwap
)

func (a chainAction) Index() int {
	return int(a)
}

func (a chainAction) Hash() string {
	if a == chainStay {
		return "stay"
	}
	return "swap"
}

type chainObs int

const (
	obsLow chainObs = iota
	obsHigh
	obsNever
)

func (o chainObs) Index() int {
	return int(o)
}

func (o chainObs) Hash() string {
	switch o {
	case obsLow:
		return "low"
	case obsHigh:
		return "high"
	}
	return "never"
}

type chainModel struct {
	gamma float64
}

var _ Model = &chainModel{}

func newChainModel() *chainModel {
	return &chainModel{gamma: 0.9}
}

func (c *chainModel) States() []State {
	return []State{chainA, chainB}
}

func (c *chainModel) Actions() []Action {
	return []Action{chainStay, chainSwap}
}

func (c *chainModel) Observations() []Observation {
	return []Observation{obsLow, obsHigh, obsNever}
}

func (c *chainModel) Transition(s State, a Action) *Distribution[State] {
	if a.(chainAction) == chainStay {
		return Deterministic(s)
	}
	if s.(chainState) == chainA {
		return Deterministic[State](chainB)
	}
	return Deterministic[State](chainA)
}

func (c *chainModel) Observation(s State, a Action, next State) *Distribution[Observation] {
	obs := []Observation{obsLow, obsHigh, obsNever}
	if next.(chainState) == chainA {
		return MustDistribution(obs, []float64{0.9, 0.1, 0})
	}
	return MustDistribution(obs, []float64{0.2, 0.8, 0})
}

func (c *chainModel) Reward(s State, a Action) float64 {
	if s.(chainState) == chainB && a.(chainAction) == chainStay {
		return 1
	}
	return 0
}

func (c *chainModel) InitialState() *Distribution[State] {
	return MustDistribution([]State{chainA, chainB}, []float64{0.5, 0.5})
}

func (c *chainModel) Discount() float64 {
	return c.gamma
}

type badDiscountModel struct {
	*chainModel
}

func (b *badDiscountModel) Discount() float64 {
	return 1.5
}

type badTransitionModel struct {
	*chainModel
}

func (b *badTransitionModel) Transition(s State, a Action) *Distribution[State] {
	return &Distribution[State]{outcomes: []State{chainA}, probs: []float64{0.5}}
}

type badIndexModel struct {
	*chainModel
}

func (b *badIndexModel) States() []State {
	return []State{chainB, chainA}
}

func TestValidateAcceptsChainModel(t *testing.T) {
	require.NoError(t, Validate(newChainModel()))
}

func TestValidateRejectsBadDiscount(t *testing.T) {
	err := Validate(&badDiscountModel{newChainModel()})
	require.Error(t, err)
	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "discount", confErr.Param)
}

func TestValidateRejectsNonUnitTransition(t *testing.T) {
	err := Validate(&badTransitionModel{newChainModel()})
	require.Error(t, err)
	var distErr *DistributionError
	require.True(t, errors.As(err, &distErr))
}

func TestValidateRejectsMisindexedEnumeration(t *testing.T) {
	err := Validate(&badIndexModel{newChainModel()})
	require.Error(t, err)
	var confErr *ConfigurationError
	require.True(t, errors.As(err, &confErr))
	assert.Equal(t, "states", confErr.Param)
}

func TestTransitionMassSums(t *testing.T) {
	m := newChainModel()
	for _, s := range m.States() {
		for _, a := range m.Actions() {
			d := m.Transition(s, a)
			sum := 0.0
			for _, next := range m.States() {
				sum += d.Probability(next)
			}
			assert.InDelta(t, 1, sum, MassTolerance)
		}
	}
}

func TestRewardNextFallsBack(t *testing.T) {
	m := newChainModel()
	assert.Equal(t, m.Reward(chainB, chainStay), RewardNext(m, chainB, chainStay, chainA))
}

func TestIsTerminalDefaultsFalse(t *testing.T) {
	assert.False(t, IsTerminal(newChainModel(), chainA))
}
