package vi

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/grid-driving-vi/grid"
	"github.com/zeu5/grid-driving-vi/mdp"
)

// chain is a hand written MDP: from state 0 action 0 reaches the rewarded
// absorbing state 1, action 1 stays put.
type chain struct{}

func (chain) NumStates() int  { return 2 }
func (chain) NumActions() int { return 2 }

func (chain) Row(s, a int) ([]int, []float64) {
	if s == 1 || a == 1 {
		return []int{s}, []float64{1}
	}
	return []int{0, 1}, []float64{0.25, 0.75}
}

type chainRewards struct{}

func (chainRewards) At(s, next int) float64 {
	if s == 0 && next == 1 {
		return 1
	}
	return 0
}

func singleLane(t *testing.T, noise float64) *mdp.MDP {
	m, err := mdp.Build(mdp.Config{
		Width:      4,
		NumLanes:   1,
		Obstacles:  []mdp.Obstacle{{Lane: 0, MinSpeed: -1, MaxSpeed: -1}},
		AgentSpeed: [2]int{-3, -1},
		Noise:      noise,
		Goal:       grid.Point{X: 0, Y: 0},
	})
	require.NoError(t, err)
	return m
}

func threeLanes(t *testing.T) *mdp.MDP {
	cfg, err := mdp.FromLanes(4, []mdp.Lane{
		{Cars: 1, MinSpeed: -3, MaxSpeed: -1},
		{Cars: 1, MinSpeed: -3, MaxSpeed: -1},
		{Cars: 0, MinSpeed: 0, MaxSpeed: 0},
	}, [2]int{-3, -1}, 0.5, grid.Point{X: 0, Y: 0})
	require.NoError(t, err)
	m, err := mdp.Build(cfg)
	require.NoError(t, err)
	return m
}

func TestSolveChain(t *testing.T) {
	res, err := Solve(context.Background(), chain{}, chainRewards{}, Options{Gamma: 0.5})
	require.NoError(t, err)
	// V0 = 0.75 + 0.5 * 0.25 * V0  =>  V0 = 0.75 / 0.875
	assert.InDelta(t, 0.75/0.875, res.Values[0], 0.001)
	assert.Equal(t, 0.0, res.Values[1])
	assert.Equal(t, []int{0, 0}, res.Policy)
}

func TestScenarioReachesGoal(t *testing.T) {
	m := singleLane(t, 0.5)
	res, err := Solve(context.Background(), m.Transitions, m.Rewards, Options{Gamma: 0.9})
	require.NoError(t, err)

	for carX := 0; carX < 3; carX++ {
		s, err := m.Space.Index(mdp.StateKey{3, 0, carX, 0, 0})
		require.NoError(t, err)

		steps, reward := 0, 0.0
		for !m.Space.Terminal(s) {
			require.Less(t, steps, m.Config.Width, "car at %d", carX)
			next, prob := m.Transitions.Row(s, res.Policy[s])
			require.Len(t, next, 1)
			require.Equal(t, 1.0, prob[0])
			if carX == 0 {
				assert.False(t, mdp.Collides(m.Config.Width, m.Space.Key(s), m.Space.Key(next[0])))
			}
			reward = m.Rewards.At(s, next[0])
			s = next[0]
			steps++
		}
		assert.Equal(t, 1.0, reward, "car at %d", carX)
		assert.Equal(t, grid.Point{X: 0, Y: 0}, m.Space.AgentAt(s))
	}

	// with the car out of the way the agent goes straight for the goal
	start, _ := m.Space.Index(mdp.StateKey{3, 0, 0, 0, 0})
	assert.Equal(t, "forward[-3]", m.Moves[res.Policy[start]].Name)
	assert.InDelta(t, 1.0, res.Values[start], 1e-9)
}

func TestTerminalValuesAreZero(t *testing.T) {
	m := threeLanes(t)
	res, err := Solve(context.Background(), m.Transitions, m.Rewards, Options{Gamma: 0.9})
	require.NoError(t, err)
	for s := 0; s < m.Space.Size(); s++ {
		if m.Space.Terminal(s) {
			require.Equal(t, 0.0, res.Values[s])
		}
		require.GreaterOrEqual(t, res.Values[s], 0.0)
		require.LessOrEqual(t, res.Values[s], 1.0)
	}
}

func TestPolicyIsDeterministic(t *testing.T) {
	m := threeLanes(t)
	ctx := context.Background()

	first, err := Solve(ctx, m.Transitions, m.Rewards, Options{Gamma: 0.9})
	require.NoError(t, err)
	second, err := Solve(ctx, m.Transitions, m.Rewards, Options{Gamma: 0.9})
	require.NoError(t, err)
	parallel, err := Solve(ctx, m.Transitions, m.Rewards, Options{Gamma: 0.9, Workers: 4})
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first.Policy, second.Policy))
	assert.Empty(t, cmp.Diff(first.Values, second.Values))
	assert.Empty(t, cmp.Diff(first.Policy, parallel.Policy))
	assert.Empty(t, cmp.Diff(first.Values, parallel.Values))
	assert.Equal(t, first.Sweeps, parallel.Sweeps)
}

func TestExtraSweepsStayConverged(t *testing.T) {
	m := threeLanes(t)
	solver, err := NewSolver(m.Transitions, m.Rewards, Options{Gamma: 0.9})
	require.NoError(t, err)
	res, err := solver.Solve(context.Background())
	require.NoError(t, err)

	prev := res.Values
	next := make([]float64, len(prev))
	policy := make([]int, len(prev))
	last := res.Deltas[len(res.Deltas)-1]
	for i := 0; i < 20; i++ {
		delta, err := solver.Sweep(context.Background(), prev, next, policy)
		require.NoError(t, err)
		assert.Less(t, delta, DefaultThreshold)
		assert.LessOrEqual(t, delta, last+1e-12)
		last = delta
		prev, next = next, prev
	}
}

func TestDeltasShrink(t *testing.T) {
	m := threeLanes(t)
	gamma := 0.9
	res, err := Solve(context.Background(), m.Transitions, m.Rewards, Options{Gamma: gamma})
	require.NoError(t, err)
	require.Len(t, res.Deltas, res.Sweeps)
	// the agent needs three moves from the bottom lane to the goal
	require.GreaterOrEqual(t, res.Sweeps, 3)
	assert.InDelta(t, 1.0, res.Deltas[0], 1e-9)
	assert.Less(t, res.Deltas[len(res.Deltas)-1], DefaultThreshold)
	for i := 1; i < len(res.Deltas); i++ {
		// every sweep is a gamma contraction of the previous change
		assert.LessOrEqual(t, res.Deltas[i], gamma*res.Deltas[i-1]+1e-12, "sweep %d", i+1)
		assert.Less(t, res.Deltas[i], res.Deltas[0])
	}
}

func TestQValuesMatchPolicy(t *testing.T) {
	m := singleLane(t, 0)
	solver, err := NewSolver(m.Transitions, m.Rewards, Options{Gamma: 0.9})
	require.NoError(t, err)
	res, err := solver.Solve(context.Background())
	require.NoError(t, err)

	s, _ := m.Space.Index(mdp.StateKey{3, 0, 1, 0, 0})
	q := solver.QValues(res.Values, s)
	require.Len(t, q, len(m.Moves))
	best, _ := argmax(q)
	assert.Equal(t, best, q[res.Policy[s]])
}

func TestNonConvergence(t *testing.T) {
	m := threeLanes(t)
	_, err := Solve(context.Background(), m.Transitions, m.Rewards, Options{Gamma: 0.99, MaxSweeps: 1})
	var nonConv *NonConvergenceError
	require.True(t, errors.As(err, &nonConv))
	assert.Equal(t, 1, nonConv.Sweeps)
	// agents one cell from the goal collect the reward on the first sweep
	assert.InDelta(t, 1.0, nonConv.Delta, 1e-9)
}

func TestInvalidOptions(t *testing.T) {
	for _, opts := range []Options{
		{Gamma: 1},
		{Gamma: -0.1},
		{Gamma: 0.9, Threshold: -1},
		{Gamma: 0.9, Workers: -2},
	} {
		var cfgErr *mdp.ConfigurationError
		assert.True(t, errors.As(opts.Validate(), &cfgErr), "options %+v", opts)
		_, err := NewSolver(chain{}, chainRewards{}, opts)
		assert.True(t, errors.As(err, &cfgErr), "options %+v", opts)
	}
	assert.NoError(t, Options{Gamma: 0}.Validate())
	assert.NoError(t, Options{Gamma: 0.999}.Validate())
}

func TestCancelledSolve(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Solve(ctx, chain{}, chainRewards{}, Options{Gamma: 0.5, Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}
