package benchmarks

import "github.com/spf13/cobra"

var (
	episodes    int
	horizon     int
	saveFile    string
	runs        int
	seed        uint64
	parallelism int
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:   "pomdp-plan",
		Short: "Solve POMDP benchmark problems and compare policies in simulation",
	}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 500, "Number of episodes per experiment")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", 50, "Step budget of each episode")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().Uint64Var(&seed, "seed", 1, "Base seed for the per-run random sources")
	rootCommand.PersistentFlags().IntVar(&parallelism, "parallel", 1, "Number of experiments to run in parallel")
	// adding the subcommands here
	rootCommand.AddCommand(TigerCommand())
	rootCommand.AddCommand(TigerSolveCommand())
	return rootCommand
}
