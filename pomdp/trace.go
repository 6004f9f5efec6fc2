package pomdp

import "encoding/json"

// Step is one record of a simulated trajectory. The belief is the one
// the action was chosen from, before the post-observation update.
type Step struct {
	State       State
	Action      Action
	Observation Observation
	Reward      float64
	Belief      *Belief
}

// Trace of an episode as an append-only sequence of steps.
// Owned by a single run, never shared across concurrent runs.
type Trace struct {
	steps []Step
}

func NewTrace() *Trace {
	return &Trace{steps: make([]Step, 0)}
}

func (t *Trace) Append(step Step) {
	t.steps = append(t.steps, step)
}

func (t *Trace) Len() int {
	return len(t.steps)
}

func (t *Trace) Get(i int) (Step, bool) {
	if i < 0 || i >= len(t.steps) {
		return Step{}, false
	}
	return t.steps[i], true
}

func (t *Trace) Last() (Step, bool) {
	if len(t.steps) == 0 {
		return Step{}, false
	}
	return t.steps[len(t.steps)-1], true
}

func (t *Trace) GetPrefix(i int) (*Trace, bool) {
	if i > len(t.steps) {
		return nil, false
	}
	return &Trace{steps: t.steps[0:i]}, true
}

func (t *Trace) Slice(from, to int) *Trace {
	sliced := NewTrace()
	for i := from; i < to; i++ {
		sliced.Append(t.steps[i])
	}
	return sliced
}

// DiscountedReturn is the total reward of the trace discounted by
// gamma per step.
func (t *Trace) DiscountedReturn(gamma float64) float64 {
	total := 0.0
	discount := 1.0
	for _, step := range t.steps {
		total += discount * step.Reward
		discount *= gamma
	}
	return total
}

type stepRecord struct {
	State       string    `json:"state"`
	Action      string    `json:"action"`
	Observation string    `json:"observation"`
	Reward      float64   `json:"reward"`
	Belief      []float64 `json:"belief"`
}

func (t *Trace) MarshalJSON() ([]byte, error) {
	records := make([]stepRecord, len(t.steps))
	for i, step := range t.steps {
		records[i] = stepRecord{
			State:       step.State.Hash(),
			Action:      step.Action.Hash(),
			Observation: step.Observation.Hash(),
			Reward:      step.Reward,
			Belief:      step.Belief.Vector(),
		}
	}
	return json.Marshal(records)
}
