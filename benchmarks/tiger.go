package benchmarks

import (
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"github.com/nkats/pomdp-plan/pomdp"
	"github.com/nkats/pomdp-plan/sim"
	"github.com/nkats/pomdp-plan/solvers"
	"github.com/nkats/pomdp-plan/tiger"
)

var (
	maxIterations int
	tolerance     float64
)

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 50, "Iteration budget of the QMDP solver")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-3, "Bellman residual stopping threshold")
}

func solveTiger(cmd *cobra.Command) (*tiger.TigerPOMDP, solvers.Policy, *solvers.Result, error) {
	model, err := tiger.New(tiger.DefaultConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	solver, err := solvers.NewQMDP(&solvers.Config{
		MaxIterations: maxIterations,
		Tolerance:     tolerance,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	policy, result, err := solver.Solve(cmd.Context(), model)
	if err != nil {
		var nonConvergence *solvers.NonConvergenceError
		if !errors.As(err, &nonConvergence) {
			return nil, nil, nil, err
		}
		// keep the best policy found, the residual tells how far off it is
		fmt.Printf("Warning: %v\n", nonConvergence)
	}
	return model, policy, result, nil
}

func TigerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiger",
		Short: "Compare a QMDP policy against a random baseline on the tiger problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, policy, result, err := solveTiger(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("QMDP solved in %d iterations, residual %g\n", result.Iterations, result.Residual)

			c := sim.NewComparison(&sim.RunConfig{
				Runs:           runs,
				Episodes:       episodes,
				MaxSteps:       horizon,
				Seed:           seed,
				Parallelism:    parallelism,
				RecordTraces:   true,
				RecordPolicies: true,
				SavePath:       saveFile,
			})
			c.AddExperiment(sim.NewExperiment("qmdp", model, policy))
			c.AddExperiment(sim.NewExperiment("random", model, solvers.NewRandomPolicy(model, seed)))
			c.AddAnalysis("returns",
				func() sim.Analyzer { return sim.NewRewardAnalyzer() },
				sim.RewardPlotter(path.Join(saveFile, "plots")))
			c.AddAnalysis("belief-accuracy",
				func() sim.Analyzer { return sim.NewBeliefAccuracyAnalyzer() },
				sim.JSONComparator(saveFile, "belief_accuracy"))
			return c.Run(cmd.Context())
		},
	}
	addSolverFlags(cmd)
	return cmd
}

func TigerSolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiger-solve",
		Short: "Solve the tiger problem with QMDP and record the alpha vectors",
		RunE: func(cmd *cobra.Command, args []string) error {
			model, policy, result, err := solveTiger(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("Iterations: %d, residual: %g, converged: %v\n",
				result.Iterations, result.Residual, result.Converged)

			avPolicy := policy.(*solvers.AlphaVectorPolicy)
			for _, alpha := range avPolicy.AlphaVectors() {
				fmt.Printf("%-12s", alpha.Action.Hash())
				for i, s := range model.States() {
					fmt.Printf("  %s=%.3f", s.Hash(), alpha.Values[i])
				}
				fmt.Println("")
			}

			uniform := pomdp.UniformBelief(model)
			action, err := avPolicy.Action(uniform)
			if err != nil {
				return err
			}
			fmt.Printf("Action at the uniform belief: %s (value %.3f)\n",
				action.Hash(), avPolicy.Value(uniform))

			if err := os.MkdirAll(saveFile, 0777); err != nil {
				return err
			}
			return avPolicy.Record(path.Join(saveFile, "tiger_policy.json"))
		},
	}
	addSolverFlags(cmd)
	return cmd
}
