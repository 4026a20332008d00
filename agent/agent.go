// Package agent plans a driving policy with value iteration and follows it
// in the simulator.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zeu5/grid-driving-vi/driving"
	"github.com/zeu5/grid-driving-vi/mdp"
	"github.com/zeu5/grid-driving-vi/types"
	"github.com/zeu5/grid-driving-vi/vi"
)

type settings struct {
	logger    *slog.Logger
	workers   int
	threshold float64
	maxStates int
}

type Option func(*settings)

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithWorkers splits every value iteration sweep across n goroutines.
func WithWorkers(n int) Option {
	return func(s *settings) {
		s.workers = n
	}
}

func WithThreshold(threshold float64) Option {
	return func(s *settings) {
		s.threshold = threshold
	}
}

// WithMaxStates overrides mdp.DefaultMaxStates.
func WithMaxStates(n int) Option {
	return func(s *settings) {
		s.maxStates = n
	}
}

// PolicyTable is the solved MDP: the greedy action and the value of every
// enumerated state.
type PolicyTable struct {
	MDP     *mdp.MDP
	Result  *vi.Result
	Actions []driving.Action
}

// BuildAndSolve enumerates the MDP of the described road and solves it.
func BuildAndSolve(ctx context.Context, desc driving.Description, gamma float64, opts ...Option) (*PolicyTable, error) {
	s := &settings{logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}

	solverOpts := vi.Options{
		Gamma:     gamma,
		Threshold: s.threshold,
		Workers:   s.workers,
		Logger:    s.logger,
	}
	if err := solverOpts.Validate(); err != nil {
		return nil, err
	}

	lanes := make([]mdp.Lane, len(desc.Lanes))
	for i, l := range desc.Lanes {
		lanes[i] = mdp.Lane{Cars: l.Cars, MinSpeed: l.SpeedRange[0], MaxSpeed: l.SpeedRange[1]}
	}
	cfg, err := mdp.FromLanes(desc.Width, lanes, desc.AgentSpeedRange, desc.Stochasticity, desc.FinishPosition)
	if err != nil {
		return nil, err
	}
	cfg.MaxStates = s.maxStates

	m, err := mdp.Build(cfg, mdp.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("building MDP: %w", err)
	}
	result, err := vi.Solve(ctx, m.Transitions, m.Rewards, solverOpts)
	if err != nil {
		return nil, fmt.Errorf("solving MDP: %w", err)
	}
	return &PolicyTable{
		MDP:     m,
		Result:  result,
		Actions: driving.Actions(desc.AgentSpeedRange),
	}, nil
}

// Lookup returns the index of the greedy action in the given state.
func (p *PolicyTable) Lookup(key mdp.StateKey) (int, error) {
	i, err := p.MDP.Space.Index(key)
	if err != nil {
		return 0, err
	}
	return p.Result.Policy[i], nil
}

// Value is the optimal expected discounted reward from the given state.
func (p *PolicyTable) Value(key mdp.StateKey) (float64, error) {
	i, err := p.MDP.Space.Index(key)
	if err != nil {
		return 0, err
	}
	return p.Result.Values[i], nil
}

// StateToIndex converts a simulator state to the planner's state tuple: the
// agent, then the cars in order, then 1 if the agent is no longer alive.
func StateToIndex(state *driving.State) mdp.StateKey {
	key := make(mdp.StateKey, 0, 2*(1+len(state.Cars))+1)
	key = append(key, state.Agent.Position.X, state.Agent.Position.Y)
	for _, c := range state.Cars {
		key = append(key, c.Position.X, c.Position.Y)
	}
	done := 0
	if !state.Alive() {
		done = 1
	}
	return append(key, done)
}

// ChooseAction returns the policy's action in the given state.
func ChooseAction(table *PolicyTable, state *driving.State) (driving.Action, error) {
	a, err := table.Lookup(StateToIndex(state))
	if err != nil {
		return driving.Action{}, err
	}
	return table.Actions[a], nil
}

// VIPolicy follows a solved policy table. It learns nothing from the
// episodes it runs.
type VIPolicy struct {
	table *PolicyTable
}

var _ types.Policy = &VIPolicy{}

func NewVIPolicy(table *PolicyTable) *VIPolicy {
	return &VIPolicy{table: table}
}

// PlanFor builds and solves the MDP of env's road.
func PlanFor(ctx context.Context, env *driving.Environment, gamma float64, opts ...Option) (*VIPolicy, error) {
	table, err := BuildAndSolve(ctx, env.Description(), gamma, opts...)
	if err != nil {
		return nil, err
	}
	return NewVIPolicy(table), nil
}

func (v *VIPolicy) Table() *PolicyTable {
	return v.table
}

func (v *VIPolicy) NextAction(_ int, state types.State, _ []types.Action) (types.Action, bool) {
	s, ok := state.(*driving.State)
	if !ok {
		return nil, false
	}
	action, err := ChooseAction(v.table, s)
	if err != nil {
		return nil, false
	}
	return action, true
}

func (v *VIPolicy) Reset() {}

func (v *VIPolicy) UpdateIteration(_ int, _ *types.Trace) {}

func (v *VIPolicy) Update(_ int, _ types.State, _ types.Action, _ types.State) {}
