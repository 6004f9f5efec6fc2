package solvers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkats/pomdp-plan/pomdp"
	"github.com/nkats/pomdp-plan/tiger"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tigerModel(t *testing.T) *tiger.TigerPOMDP {
	t.Helper()
	m, err := tiger.New(tiger.DefaultConfig())
	require.NoError(t, err)
	return m
}

func solveTiger(t *testing.T, config *Config) (*AlphaVectorPolicy, *Result) {
	t.Helper()
	q, err := NewQMDP(config, WithLogger(quietLogger()))
	require.NoError(t, err)
	policy, result, err := q.Solve(context.Background(), tigerModel(t))
	require.NoError(t, err)
	return policy.(*AlphaVectorPolicy), result
}

func TestQMDPConvergesOnTiger(t *testing.T) {
	_, result := solveTiger(t, &Config{MaxIterations: 50, Tolerance: 1e-3})
	assert.True(t, result.Converged)
	assert.Less(t, result.Residual, 1e-3)
	assert.LessOrEqual(t, result.Iterations, 50)
}

func TestQMDPTigerAlphaValues(t *testing.T) {
	policy, _ := solveTiger(t, &Config{MaxIterations: 200, Tolerance: 1e-6})

	// with discount 0.95 the observed-state value is 200, so listening
	// is worth -1 + 0.95*200 from either state and opening a door is
	// worth 10 + 0.95*200 or -100 + 0.95*200
	alphas := policy.AlphaVectors()
	require.Len(t, alphas, 3)

	assert.Equal(t, tiger.Listen.Hash(), alphas[0].Action.Hash())
	assert.InDelta(t, 189, alphas[0].Values[0], 0.1)
	assert.InDelta(t, 189, alphas[0].Values[1], 0.1)

	assert.Equal(t, tiger.OpenLeft.Hash(), alphas[1].Action.Hash())
	assert.InDelta(t, 90, alphas[1].Values[0], 0.1)
	assert.InDelta(t, 200, alphas[1].Values[1], 0.1)

	assert.Equal(t, tiger.OpenRight.Hash(), alphas[2].Action.Hash())
	assert.InDelta(t, 200, alphas[2].Values[0], 0.1)
	assert.InDelta(t, 90, alphas[2].Values[1], 0.1)
}

func TestQMDPListensUnderUniformBelief(t *testing.T) {
	policy, _ := solveTiger(t, &Config{MaxIterations: 50, Tolerance: 1e-3})
	action, err := policy.Action(pomdp.UniformBelief(tigerModel(t)))
	require.NoError(t, err)
	assert.Equal(t, tiger.Listen.Hash(), action.Hash())
}

func TestQMDPIsDeterministic(t *testing.T) {
	first, _ := solveTiger(t, &Config{MaxIterations: 50, Tolerance: 1e-3})
	second, _ := solveTiger(t, &Config{MaxIterations: 50, Tolerance: 1e-3})
	assert.Equal(t, first.AlphaVectors(), second.AlphaVectors())
}

func TestQMDPResidualsDoNotIncrease(t *testing.T) {
	_, result := solveTiger(t, &Config{MaxIterations: 50, Tolerance: 1e-3})
	require.NotEmpty(t, result.Residuals)
	for i := 1; i < len(result.Residuals); i++ {
		assert.LessOrEqual(t, result.Residuals[i], result.Residuals[i-1])
	}
}

func TestQMDPExhaustedBudget(t *testing.T) {
	q, err := NewQMDP(&Config{MaxIterations: 1, Tolerance: 1e-12}, WithLogger(quietLogger()))
	require.NoError(t, err)

	policy, result, err := q.Solve(context.Background(), tigerModel(t))
	require.Error(t, err)
	var nonConv *NonConvergenceError
	require.True(t, errors.As(err, &nonConv))
	assert.Equal(t, 1, nonConv.Iterations)

	// the best policy so far is still usable
	require.NotNil(t, policy)
	assert.False(t, result.Converged)
}

func TestNewQMDPRejectsBadConfig(t *testing.T) {
	_, err := NewQMDP(&Config{MaxIterations: 0, Tolerance: 1e-3})
	require.Error(t, err)
	var confErr *pomdp.ConfigurationError
	require.True(t, errors.As(err, &confErr))

	_, err = NewQMDP(&Config{MaxIterations: 10, Tolerance: -1})
	require.Error(t, err)
}

func TestQMDPCancelledContext(t *testing.T) {
	q, err := NewQMDP(&Config{MaxIterations: 50, Tolerance: 1e-3}, WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy, _, err := q.Solve(ctx, tigerModel(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, policy)
}
