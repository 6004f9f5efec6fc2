package pomdp

import "fmt"

// ConfigurationError reports invalid construction parameters, such as
// a discount outside [0,1] or a non-positive solver budget. Fatal,
// never retried.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Param, e.Reason)
}

// DistributionError reports a probability invariant violation: a
// declared distribution whose mass does not sum to one. These are
// programming errors in the model definition and fail fast rather than
// being silently normalized.
type DistributionError struct {
	Context string
	Reason  string
}

func (e *DistributionError) Error() string {
	return fmt.Sprintf("invalid distribution (%s): %s", e.Context, e.Reason)
}

// ImpossibleObservationError reports a belief update whose posterior
// collapsed to zero mass: the received observation is inconsistent
// with every reachable state. Recoverable, callers decide whether to
// reset to a uniform belief or abort the run.
type ImpossibleObservationError struct {
	Action      Action
	Observation Observation
}

func (e *ImpossibleObservationError) Error() string {
	return fmt.Sprintf("observation %q is impossible after action %q", e.Observation.Hash(), e.Action.Hash())
}
