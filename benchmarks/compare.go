package benchmarks

import (
	"context"
	"fmt"
	"path"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zeu5/grid-driving-vi/agent"
	"github.com/zeu5/grid-driving-vi/driving"
	"github.com/zeu5/grid-driving-vi/types"
)

// Compare runs the optimal policy and a random one on the test case's road
// and plots how often each of them reaches the finish.
func Compare(ctx context.Context, tc TestCase, episodes, horizon, runs int, saveDir string, recordTraces bool) error {
	c, err := types.NewComparison(&types.ComparisonConfig{
		Runs:         runs,
		Episodes:     episodes,
		Horizon:      horizon,
		RecordPath:   saveDir,
		RecordTraces: recordTraces,
	})
	if err != nil {
		return err
	}
	plots := path.Join(saveDir, "plots")
	c.AddAnalysis("SuccessRate", types.NewRewardAnalyzer(), types.SuccessRateComparator(plots))
	c.AddAnalysis("EpisodeLength", types.NewEpisodeLengthAnalyzer(), types.EpisodeLengthComparator(plots))

	// one road per experiment, both seeded alike
	viEnv, err := driving.NewEnvironment(tc.Config)
	if err != nil {
		return err
	}
	policy, err := agent.PlanFor(ctx, viEnv, tc.Gamma, agent.WithWorkers(workers), agent.WithLogger(logger))
	if err != nil {
		return err
	}
	randomEnv, err := driving.NewEnvironment(tc.Config)
	if err != nil {
		return err
	}

	c.AddExperiment(types.NewExperiment("ValueIteration", policy, driving.NewAgentEnvironment(viEnv)))
	c.AddExperiment(types.NewExperiment("Random", types.NewSeededRandomPolicy(tc.Seed), driving.NewAgentEnvironment(randomEnv)))
	return c.Run(ctx)
}

func CompareCommand() *cobra.Command {
	var traces bool
	cmd := &cobra.Command{
		Use:   "compare <n>",
		Short: "Compare the optimal policy against random driving on a sample road",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("test case number: %w", err)
			}
			tc, err := LoadTestCase(n)
			if err != nil {
				return err
			}
			return Compare(cmd.Context(), tc, episodes, horizon, runs, path.Join(saveFile, tc.Name), traces)
		},
	}
	cmd.Flags().BoolVar(&traces, "traces", false, "Record every episode as jsonl")
	return cmd
}
