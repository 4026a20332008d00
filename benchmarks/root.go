package benchmarks

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	episodes int
	horizon  int
	saveFile string
	runs     int
	workers  int
	logLevel string
	noColors bool

	logger        = slog.Default()
	stopProfiling = func() error { return nil }
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "grid-driving",
		Short:         "Plan and drive across a multi-lane road with value iteration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogger(cmd); err != nil {
				return err
			}
			stop, err := startProfiling()
			if err != nil {
				return err
			}
			stopProfiling = stop
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return stopProfiling()
		},
	}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 100, "Number of episodes to run")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", 100, "Horizon of each episode")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().IntVar(&workers, "workers", 1, "Goroutines per value iteration sweep")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "One of debug, info, warn, error")
	rootCommand.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile to this file in the save folder")
	rootCommand.PersistentFlags().StringVar(&memprofile, "memprofile", "", "Write a heap profile to this file in the save folder")
	rootCommand.PersistentFlags().BoolVar(&noColors, "no-color", false, "Render the road without ANSI colours")
	// adding the subcommands here
	rootCommand.AddCommand(TestCaseCommand())
	rootCommand.AddCommand(SolveCommand())
	rootCommand.AddCommand(CompareCommand())
	return rootCommand
}

// setupLogger installs a text logger on stderr tagged with a fresh run id.
func setupLogger(cmd *cobra.Command) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(logLevel))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler).With(slog.String("run", uuid.NewString()), slog.String("cmd", cmd.Name()))
	slog.SetDefault(logger)
	return nil
}
