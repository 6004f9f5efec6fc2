package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/nkats/pomdp-plan/pomdp"
	"github.com/nkats/pomdp-plan/solvers"
	"github.com/nkats/pomdp-plan/util"
)

// RunConfig configures a comparison: how many runs and episodes, the
// per-episode step budget, seeding, parallelism and what to record.
type RunConfig struct {
	Runs     int // number of runs
	Episodes int // episodes per experiment per run
	MaxSteps int // step budget per episode
	Seed     uint64

	// number of experiments executed concurrently, 1 means sequential
	Parallelism int

	RecordTraces   bool
	RecordPolicies bool
	SavePath       string
}

// Experiment pairs a named policy with a model. The same model is
// typically shared read-only by several experiments of a comparison.
type Experiment struct {
	Name    string
	model   pomdp.Model
	policy  solvers.Policy
	updater *pomdp.Updater

	resetOnImpossibleObs bool
}

func NewExperiment(name string, m pomdp.Model, p solvers.Policy) *Experiment {
	return &Experiment{
		Name:    name,
		model:   m,
		policy:  p,
		updater: pomdp.NewUpdater(m),
	}
}

// SetUpdater replaces the belief updater, for runs where the agent
// filters with a different model than the one generating the data.
func (e *Experiment) SetUpdater(u *pomdp.Updater) {
	e.updater = u
}

// ResetOnImpossibleObs makes episodes fall back to a uniform belief
// instead of aborting when the updater rejects an observation.
func (e *Experiment) ResetOnImpossibleObs() {
	e.resetOnImpossibleObs = true
}

// runContext carries the run-scoped execution state of one experiment:
// its analyzers, seed and where progress lines go.
type runContext struct {
	ctx          context.Context
	run          int
	episodes     int
	maxSteps     int
	seed         uint64
	recordTraces bool
	savePath     string
	analyzers    map[string]Analyzer
	status       func(string)
}

func (e *Experiment) run(rc *runContext) error {
	agent, err := NewAgent(&AgentConfig{
		Model:                e.model,
		Policy:               e.policy,
		Updater:              e.updater,
		MaxSteps:             rc.maxSteps,
		Seed:                 rc.seed,
		ResetOnImpossibleObs: e.resetOnImpossibleObs,
	})
	if err != nil {
		return err
	}

	for ep := 0; ep < rc.episodes; ep++ {
		select {
		case <-rc.ctx.Done():
			return rc.ctx.Err()
		default:
		}

		reward, trace, err := agent.RunEpisode()
		if err != nil {
			return fmt.Errorf("experiment %s, episode %d: %w", e.Name, ep+1, err)
		}
		for _, a := range rc.analyzers {
			a.Analyze(rc.run, ep, e.Name, trace, reward)
		}
		if rc.recordTraces {
			bs, err := json.Marshal(trace)
			if err != nil {
				return err
			}
			tracesFile := path.Join(rc.savePath, "traces", e.Name+"_"+strconv.Itoa(rc.run)+".jsonl")
			if err := util.AppendToFile(tracesFile, string(bs)); err != nil {
				return err
			}
		}
		if rc.status != nil && ((ep+1)%10 == 0 || ep == rc.episodes-1) {
			rc.status(fmt.Sprintf("Exp:%s, Episode:%d/%d", e.Name, ep+1, rc.episodes))
		}
	}
	return nil
}

// Comparison runs several experiments over the same episode budget,
// feeds every trace through the registered analyzers and hands the
// per-run datasets to the comparators.
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]AnalyzerFactory
	comparators map[string]Comparator
	config      *RunConfig
}

// NewComparison prepares the save directories and returns an empty
// comparison.
func NewComparison(config *RunConfig) *Comparison {
	if config.SavePath != "" {
		os.MkdirAll(config.SavePath, 0777)
		if config.RecordTraces {
			os.MkdirAll(path.Join(config.SavePath, "traces"), 0777)
		}
		if config.RecordPolicies {
			os.MkdirAll(path.Join(config.SavePath, "policies"), 0777)
		}
	}
	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]AnalyzerFactory),
		comparators: make(map[string]Comparator),
		config:      config,
	}
}

// AddAnalysis registers an analyzer factory and the comparator fed
// with its datasets.
func (c *Comparison) AddAnalysis(name string, factory AnalyzerFactory, comparator Comparator) {
	c.analyzers[name] = factory
	c.comparators[name] = comparator
}

func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() {
	if c.config.SavePath == "" {
		return
	}
	out := make(map[string]interface{})
	out["runs"] = c.config.Runs
	out["episodes"] = c.config.Episodes
	out["max_steps"] = c.config.MaxSteps
	out["seed"] = c.config.Seed
	out["parallelism"] = c.config.Parallelism
	out["record_traces"] = c.config.RecordTraces
	out["record_policies"] = c.config.RecordPolicies

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0)
	for name := range c.analyzers {
		analyzers = append(analyzers, name)
	}
	out["analyzers"] = analyzers

	util.WriteJSON(path.Join(c.config.SavePath, "comparison_config.json"), out)
}

// Run executes the comparison: for every run, every experiment runs
// its episodes with its own analyzer instances and seed stream, then
// the comparators see the datasets of all experiments side by side.
func (c *Comparison) Run(ctx context.Context) error {
	c.recordConfig()

	for run := 0; run < c.config.Runs; run++ {
		fmt.Printf("Run %d\n", run+1)

		jobs := make([]*expJob, len(c.Experiments))
		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			analyzers := make(map[string]Analyzer, len(c.analyzers))
			for name, factory := range c.analyzers {
				analyzers[name] = factory()
			}
			jobs[i] = &expJob{
				exp: e,
				rc: &runContext{
					ctx:          ctx,
					run:          run,
					episodes:     c.config.Episodes,
					maxSteps:     c.config.MaxSteps,
					seed:         c.seedFor(run, i),
					recordTraces: c.config.RecordTraces,
					savePath:     c.config.SavePath,
					analyzers:    analyzers,
				},
			}
			names[i] = e.Name
		}

		if err := runAll(ctx, jobs, c.config.Parallelism); err != nil {
			return err
		}

		if c.config.RecordPolicies {
			for _, e := range c.Experiments {
				rec, ok := e.policy.(interface{ Record(string) error })
				if !ok {
					continue
				}
				policyFile := path.Join(c.config.SavePath, "policies", e.Name+"_"+strconv.Itoa(run)+".json")
				if err := rec.Record(policyFile); err != nil {
					return err
				}
			}
		}

		for name, comp := range c.comparators {
			datasets := make([]DataSet, len(jobs))
			for i, job := range jobs {
				datasets[i] = job.rc.analyzers[name].DataSet()
			}
			comp(run, names, datasets)
		}
	}
	return nil
}

// seedFor derives a distinct source stream per run and experiment so
// parallel experiments never share randomness.
func (c *Comparison) seedFor(run, experiment int) uint64 {
	return c.config.Seed + uint64(run*len(c.Experiments)+experiment)*1000003
}
