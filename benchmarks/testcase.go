package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zeu5/grid-driving-vi/agent"
	"github.com/zeu5/grid-driving-vi/driving"
)

// Drive plans the test case's road, then follows the policy for one episode
// rendering every step to out. It returns the collected reward.
func Drive(ctx context.Context, tc TestCase, out io.Writer) (float64, error) {
	env, err := driving.NewEnvironment(tc.Config)
	if err != nil {
		return 0, err
	}
	env.SetColors(!noColors)

	policy, err := agent.PlanFor(ctx, env, tc.Gamma, agent.WithWorkers(workers), agent.WithLogger(logger))
	if err != nil {
		return 0, err
	}

	state := env.Reset()
	if err := env.Render(out); err != nil {
		return 0, err
	}
	total := 0.0
	for step := 0; step < horizon && state.Alive(); step++ {
		action, err := agent.ChooseAction(policy.Table(), state)
		if err != nil {
			return total, err
		}
		fmt.Fprintln(out, action)

		var reward float64
		state, reward, _, err = env.Step(action)
		if err != nil {
			return total, err
		}
		total += reward
		if err := env.Render(out); err != nil {
			return total, err
		}
		logger.Debug("step", slog.Int("step", step), slog.String("action", action.Name), slog.String("state", state.Hash()))
	}
	logger.Info("episode finished",
		slog.String("testcase", tc.Name),
		slog.String("outcome", state.AgentState.String()),
		slog.Float64("reward", total),
	)
	return total, nil
}

func TestCaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "testcase <n>",
		Short: "Drive one of the sample roads with the optimal policy",
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
			_, err = Drive(cmd.Context(), tc, cmd.OutOrStdout())
			return err
		},
	}
	return cmd
}
