package sim

import (
	"context"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkats/pomdp-plan/solvers"
	"github.com/nkats/pomdp-plan/tiger"
)

func TestComparisonRunsAllExperiments(t *testing.T) {
	dir := t.TempDir()
	m, err := tiger.New(tiger.DefaultConfig())
	require.NoError(t, err)

	c := NewComparison(&RunConfig{
		Runs:         2,
		Episodes:     5,
		MaxSteps:     10,
		Seed:         1,
		Parallelism:  1,
		RecordTraces: true,
		SavePath:     dir,
	})
	c.AddExperiment(NewExperiment("qmdp", m, solvedTigerPolicy(t)))
	c.AddExperiment(NewExperiment("random", m, solvers.NewRandomPolicy(m, 2)))

	got := make(map[string]int)
	c.AddAnalysis("reward", func() Analyzer { return NewRewardAnalyzer() },
		func(run int, names []string, datasets []DataSet) {
			for i, name := range names {
				got[name] += len(datasets[i].([]float64))
			}
		})

	require.NoError(t, c.Run(context.Background()))

	// five episodes per experiment per run, two runs
	assert.Equal(t, 10, got["qmdp"])
	assert.Equal(t, 10, got["random"])

	_, err = os.Stat(path.Join(dir, "comparison_config.json"))
	assert.NoError(t, err)
	_, err = os.Stat(path.Join(dir, "traces", "qmdp_0.jsonl"))
	assert.NoError(t, err)
	_, err = os.Stat(path.Join(dir, "traces", "random_1.jsonl"))
	assert.NoError(t, err)
}

func TestComparisonRecordsPolicies(t *testing.T) {
	dir := t.TempDir()
	m, err := tiger.New(tiger.DefaultConfig())
	require.NoError(t, err)

	c := NewComparison(&RunConfig{
		Runs:           1,
		Episodes:       2,
		MaxSteps:       5,
		Seed:           1,
		Parallelism:    1,
		RecordPolicies: true,
		SavePath:       dir,
	})
	c.AddExperiment(NewExperiment("qmdp", m, solvedTigerPolicy(t)))
	// random policies have no recordable representation and are skipped
	c.AddExperiment(NewExperiment("random", m, solvers.NewRandomPolicy(m, 2)))

	require.NoError(t, c.Run(context.Background()))

	_, err = os.Stat(path.Join(dir, "policies", "qmdp_0.json"))
	assert.NoError(t, err)
	_, err = os.Stat(path.Join(dir, "policies", "random_0.json"))
	assert.Error(t, err)
}

func TestComparisonRunsInParallel(t *testing.T) {
	m, err := tiger.New(tiger.DefaultConfig())
	require.NoError(t, err)

	c := NewComparison(&RunConfig{
		Runs:        1,
		Episodes:    20,
		MaxSteps:    10,
		Seed:        7,
		Parallelism: 2,
	})
	policy := solvedTigerPolicy(t)
	c.AddExperiment(NewExperiment("first", m, policy))
	c.AddExperiment(NewExperiment("second", m, policy))

	episodes := make(map[string]int)
	c.AddAnalysis("count", func() Analyzer { return NewRewardAnalyzer() },
		func(run int, names []string, datasets []DataSet) {
			for i, name := range names {
				episodes[name] = len(datasets[i].([]float64))
			}
		})

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 20, episodes["first"])
	assert.Equal(t, 20, episodes["second"])
}

func TestComparisonStopsOnCancelledContext(t *testing.T) {
	m, err := tiger.New(tiger.DefaultConfig())
	require.NoError(t, err)

	c := NewComparison(&RunConfig{
		Runs:        1,
		Episodes:    5,
		MaxSteps:    5,
		Seed:        1,
		Parallelism: 1,
	})
	c.AddExperiment(NewExperiment("random", m, solvers.NewRandomPolicy(m, 2)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestSeedsDifferAcrossExperiments(t *testing.T) {
	m, err := tiger.New(tiger.DefaultConfig())
	require.NoError(t, err)

	c := NewComparison(&RunConfig{Runs: 2, Episodes: 1, MaxSteps: 1, Seed: 1})
	c.AddExperiment(NewExperiment("a", m, solvers.NewRandomPolicy(m, 1)))
	c.AddExperiment(NewExperiment("b", m, solvers.NewRandomPolicy(m, 2)))

	seen := make(map[uint64]bool)
	for run := 0; run < 2; run++ {
		for i := range c.Experiments {
			seed := c.seedFor(run, i)
			assert.False(t, seen[seed])
			seen[seed] = true
		}
	}
}
