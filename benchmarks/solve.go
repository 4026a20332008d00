package benchmarks

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/grid-driving-vi/agent"
	"github.com/zeu5/grid-driving-vi/driving"
	"github.com/zeu5/grid-driving-vi/util"
)

// Solve plans the test case's road and writes the value heat map, the
// convergence plots and the metrics of the run into saveDir.
func Solve(ctx context.Context, tc TestCase, saveDir string) (*agent.PolicyTable, error) {
	if err := util.EnsureDir(saveDir); err != nil {
		return nil, err
	}
	env, err := driving.NewEnvironment(tc.Config)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	table, err := agent.BuildAndSolve(ctx, env.Description(), tc.Gamma, agent.WithWorkers(workers), agent.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	took := time.Since(start)

	values, err := valueGrid(table, env.Reset(), tc.Width, len(tc.Lanes))
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s: values with the cars at their start", tc.Name)
	if err := plotValues(path.Join(saveDir, tc.Name+"_values.png"), title, values); err != nil {
		return nil, fmt.Errorf("plotting values: %w", err)
	}
	if err := plotConvergence(path.Join(saveDir, tc.Name+"_convergence.png"), table.Result.Deltas); err != nil {
		return nil, fmt.Errorf("plotting convergence: %w", err)
	}
	if err := chartConvergence(path.Join(saveDir, tc.Name+"_convergence.html"), tc.Name, table.Result.Deltas); err != nil {
		return nil, fmt.Errorf("charting convergence: %w", err)
	}
	if err := writeMetrics(path.Join(saveDir, tc.Name+".prom"), tc.Name, table, took); err != nil {
		return nil, err
	}

	logger.Info("solved",
		slog.String("testcase", tc.Name),
		slog.Int("sweeps", table.Result.Sweeps),
		slog.Duration("took", took),
		slog.String("saved", saveDir),
	)
	return table, nil
}

func SolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <n>",
		Short: "Solve a sample road and plot its value function and convergence",
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
			_, err = Solve(cmd.Context(), tc, saveFile)
			return err
		},
	}
	return cmd
}
