package types

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"

	"github.com/zeu5/grid-driving-vi/util"
)

type experimentRunConfig struct {
	// execution configuration
	CurrentRun int
	Episodes   int
	Horizon    int
	Analyzers  map[string]Analyzer
	Context    context.Context

	// record flags
	RecordTraces   bool
	ReportSavePath string

	//misc
	LongestExpNameLen int
}

// Experiment encapsulates the different parameters to configure an agent and analyze the traces
type Experiment struct {
	Name        string
	policy      Policy
	environment Environment
}

// NewExperiment creates a new experiment instance
func NewExperiment(name string, policy Policy, environment Environment) *Experiment {
	return &Experiment{
		Name:        name,
		policy:      policy,
		environment: environment,
	}
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, trace *Trace) error {
	tracesFile := path.Join(rConfig.ReportSavePath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	return util.AppendToFile(tracesFile, string(bs))
}

// Run the experiment for the specified number of episodes, feeding every
// trace to the analyzers
func (e *Experiment) Run(rConfig *experimentRunConfig) error {
	agent := NewAgent(&AgentConfig{
		Episodes:    rConfig.Episodes,
		Horizon:     rConfig.Horizon,
		Policy:      e.policy,
		Environment: e.environment,
	})

	EPPadding := len(strconv.Itoa(rConfig.Episodes))
	NamePadding := rConfig.LongestExpNameLen
	rewarded := 0

	for episode := 0; episode < rConfig.Episodes; episode++ {
		select {
		case <-rConfig.Context.Done():
			fmt.Println()
			return rConfig.Context.Err()
		default:
		}

		trace, err := agent.RunEpisode(episode)
		if err != nil {
			fmt.Println()
			return fmt.Errorf("experiment %s: %w", e.Name, err)
		}
		if trace.TotalReward() > 0 {
			rewarded++
		}

		if rConfig.RecordTraces {
			if err := e.recordTrace(rConfig, trace); err != nil {
				return err
			}
		}
		for _, name := range sortedKeys(rConfig.Analyzers) {
			rConfig.Analyzers[name].Analyze(rConfig.CurrentRun, episode, e.Name, trace)
		}

		// terminal execution display
		fmt.Printf("\rExp:%*s, Eps:%*d/%d, Rewarded:%*d [%5.1f%%]",
			NamePadding, e.Name, EPPadding, episode+1, rConfig.Episodes,
			EPPadding, rewarded, float32(rewarded)/float32(episode+1)*100)
	}
	fmt.Println()
	return nil
}

// Reset clears whatever the policy learned during the run
func (e *Experiment) Reset() {
	e.policy.Reset()
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the information in the traces to a DataSet
type Analyzer interface {
	// Run, episode, experiment, trace
	Analyze(int, int, string, *Trace)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// Comparator differentiates between different datasets with associated names
// run, total episodes, experiment names, datasets
type Comparator func(int, int, []string, []DataSet) error

func NoopComparator() Comparator {
	return func(_, _ int, _ []string, _ []DataSet) error { return nil }
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int // number of runs
	Episodes int // number of episodes
	Horizon  int // number of steps

	RecordPath   string // path to store the results
	RecordTraces bool
}

// Comparison contains the different experiments to compare
// The traces obtained from the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
}

// NewComparison creates a comparison instance and its record folders
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	folders := []string{config.RecordPath}
	if config.RecordTraces {
		folders = append(folders, path.Join(config.RecordPath, "traces"))
	}
	for _, f := range folders {
		if err := util.EnsureDir(f); err != nil {
			return nil, err
		}
	}

	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
	}, nil
}

// AddAnalysis registers an analyzer and the comparator of its datasets
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["episodes"] = cfg.Episodes
	out["horizon"] = cfg.Horizon
	out["record_traces"] = cfg.RecordTraces

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments
	out["analyzers"] = sortedKeys(c.analyzers)

	bs, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return util.WriteToFile(path.Join(cfg.RecordPath, "comparison_config.json"), string(bs))
}

// Run every experiment for the configured number of runs, comparing the
// analyzed datasets at the end of each run
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return err
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		longestNameLen = max(longestNameLen, len(e.Name))
	}

	for run := 0; run < c.cConfig.Runs; run++ {
		fmt.Printf("Run %d\n", run+1)
		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			if err := e.Run(&experimentRunConfig{
				CurrentRun:        run,
				Episodes:          c.cConfig.Episodes,
				Horizon:           c.cConfig.Horizon,
				Analyzers:         c.analyzers,
				Context:           ctx,
				RecordTraces:      c.cConfig.RecordTraces,
				ReportSavePath:    c.cConfig.RecordPath,
				LongestExpNameLen: longestNameLen,
			}); err != nil {
				return err
			}
			for name, a := range c.analyzers {
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
			e.Reset()
		}
		for _, name := range sortedKeys(c.comparators) {
			if err := c.comparators[name](run, c.cConfig.Episodes, names, datasets[name]); err != nil {
				return fmt.Errorf("comparator %s: %w", name, err)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
