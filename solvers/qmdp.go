package solvers

import (
	"context"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nkats/pomdp-plan/pomdp"
)

// QMDP computes one alpha vector per action by value iteration on the
// fully observable relaxation of the model. The relaxation assumes the
// state becomes fully observable one step ahead, so QMDP systematically
// undervalues information-gathering actions. That is the approximation,
// not a bug: for problems where information gathering is cheap relative
// to acting blindly it still produces good policies.
//
// Solving is deterministic: a fixed model and config always produce the
// same alpha vectors.
type QMDP struct {
	config *Config
	logger *slog.Logger
}

type QMDPOption func(*QMDP)

// WithLogger sets the logger used for solve diagnostics.
func WithLogger(logger *slog.Logger) QMDPOption {
	return func(q *QMDP) {
		q.logger = logger
	}
}

// NewQMDP fails fast on a non-positive iteration budget or tolerance.
func NewQMDP(config *Config, opts ...QMDPOption) (*QMDP, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	q := &QMDP{
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

var _ Solver = &QMDP{}

// Solve runs value iteration until the Bellman residual drops below
// the configured tolerance or the iteration budget runs out. The
// residual is the span of the update (max minus min over all state,
// action pairs), which bounds the policy loss and contracts with the
// mixing rate of the transitions rather than the bare discount. At
// termination the values are offset by the uniform shift the remaining
// updates would apply, so the alpha values approximate Q*.
//
// On an exhausted budget the best policy so far is returned together
// with a *NonConvergenceError. Cancelling ctx between iterations
// aborts the solve.
func (q *QMDP) Solve(ctx context.Context, m pomdp.Model) (Policy, *Result, error) {
	if err := pomdp.Validate(m); err != nil {
		return nil, nil, err
	}

	states := m.States()
	actions := m.Actions()
	gamma := m.Discount()

	// dense transition rows and rewards, queried once
	trans := make([][][]float64, len(states))
	rewards := make([][]float64, len(states))
	for i, s := range states {
		trans[i] = make([][]float64, len(actions))
		rewards[i] = make([]float64, len(actions))
		for j, a := range actions {
			d := m.Transition(s, a)
			row := make([]float64, len(states))
			for k, next := range states {
				row[k] = d.Probability(next)
			}
			trans[i][j] = row
			rewards[i][j] = m.Reward(s, a)
		}
	}

	qv := make([][]float64, len(states))
	qNew := make([][]float64, len(states))
	for i := range states {
		qv[i] = make([]float64, len(actions))
		qNew[i] = make([]float64, len(actions))
	}
	v := make([]float64, len(states))

	result := &Result{Residuals: make([]float64, 0)}
	upper, lower := 0.0, 0.0
	for it := 1; it <= q.config.MaxIterations; it++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		for i := range states {
			v[i] = floats.Max(qv[i])
		}
		upper, lower = math.Inf(-1), math.Inf(1)
		for i := range states {
			for j := range actions {
				backed := rewards[i][j] + gamma*floats.Dot(trans[i][j], v)
				diff := backed - qv[i][j]
				if diff > upper {
					upper = diff
				}
				if diff < lower {
					lower = diff
				}
				qNew[i][j] = backed
			}
		}
		qv, qNew = qNew, qv

		result.Iterations = it
		result.Residual = upper - lower
		result.Residuals = append(result.Residuals, result.Residual)
		if result.Residual < q.config.Tolerance {
			result.Converged = true
			break
		}
	}

	// offset the values by the asymptotic uniform shift of the update,
	// so the alpha values approximate Q* and not just its ordering
	if gamma < 1 {
		shift := gamma / (1 - gamma) * (upper + lower) / 2
		for i := range states {
			for j := range actions {
				qv[i][j] += shift
			}
		}
	}

	alphas := make([]AlphaVector, len(actions))
	for j, a := range actions {
		values := make([]float64, len(states))
		for i := range states {
			values[i] = qv[i][j]
		}
		alphas[j] = AlphaVector{Action: a, Values: values}
	}
	policy, err := NewAlphaVectorPolicy(alphas)
	if err != nil {
		return nil, nil, err
	}

	q.logger.Info("qmdp solve finished",
		slog.Int("iterations", result.Iterations),
		slog.Float64("residual", result.Residual),
		slog.Bool("converged", result.Converged))

	if !result.Converged {
		return policy, result, &NonConvergenceError{
			Iterations: result.Iterations,
			Residual:   result.Residual,
			Tolerance:  q.config.Tolerance,
		}
	}
	return policy, result, nil
}
