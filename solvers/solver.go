package solvers

import (
	"context"
	"fmt"

	"github.com/nkats/pomdp-plan/pomdp"
)

// Config holds the iteration budget of a solver.
type Config struct {
	// Maximum number of value iteration sweeps
	MaxIterations int
	// Bellman residual below which iteration stops
	Tolerance float64
}

// Validate rejects non-positive budgets before any iteration runs.
func (c *Config) Validate() error {
	if c.MaxIterations <= 0 {
		return &pomdp.ConfigurationError{
			Param:  "MaxIterations",
			Reason: fmt.Sprintf("must be positive, got %d", c.MaxIterations),
		}
	}
	if c.Tolerance <= 0 {
		return &pomdp.ConfigurationError{
			Param:  "Tolerance",
			Reason: fmt.Sprintf("must be positive, got %v", c.Tolerance),
		}
	}
	return nil
}

// Result carries solve diagnostics. It is not part of the policy's
// semantics.
type Result struct {
	Iterations int
	// Bellman residual of the last iteration, measured as the span of
	// the update
	Residual float64
	// Residual of every iteration in order
	Residuals []float64
	Converged bool
}

// Solver turns a model into a policy. The interface is the
// substitution boundary for external backends: a point-based solver
// can be plugged in behind it as long as it returns the same policy
// shape, one alpha vector per action indexed by the model's
// enumeration.
//
// Implementations check ctx between iterations so long-running solves
// can be cancelled cooperatively.
type Solver interface {
	Solve(ctx context.Context, m pomdp.Model) (Policy, *Result, error)
}

// NonConvergenceError reports an exhausted iteration budget. It is
// non-fatal: Solve returns it alongside the best policy found, with
// the achieved residual for diagnostics.
type NonConvergenceError struct {
	Iterations int
	Residual   float64
	Tolerance  float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("no convergence after %d iterations: residual %v above tolerance %v",
		e.Iterations, e.Residual, e.Tolerance)
}
