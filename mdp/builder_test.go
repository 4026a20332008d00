package mdp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/grid-driving-vi/grid"
)

func twoCarConfig(t *testing.T) Config {
	cfg, err := FromLanes(4, []Lane{
		{Cars: 1, MinSpeed: -3, MaxSpeed: -1},
		{Cars: 1, MinSpeed: -3, MaxSpeed: -1},
		{Cars: 0, MinSpeed: 0, MaxSpeed: 0},
	}, [2]int{-3, -1}, 0.5, grid.Point{X: 0, Y: 0})
	require.NoError(t, err)
	return cfg
}

func oneCarConfig(width int, speed [2]int, noise float64) Config {
	return Config{
		Width:      width,
		NumLanes:   1,
		Obstacles:  []Obstacle{{Lane: 0, MinSpeed: speed[0], MaxSpeed: speed[1]}},
		AgentSpeed: [2]int{-3, -1},
		Noise:      noise,
		Goal:       grid.Point{X: 0, Y: 0},
	}
}

func TestRowsAreStochastic(t *testing.T) {
	m, err := Build(twoCarConfig(t))
	require.NoError(t, err)
	require.Equal(t, 2*12*12*12, m.Space.Size())
	require.Equal(t, 5, m.Transitions.NumActions())

	for s := 0; s < m.Space.Size(); s++ {
		for a := 0; a < m.Transitions.NumActions(); a++ {
			assert.InDelta(t, 1.0, m.Transitions.RowSum(s, a), 1e-9, "state %s action %d", m.Space.Key(s), a)
		}
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	m, err := Build(twoCarConfig(t))
	require.NoError(t, err)

	for s := 0; s < m.Space.Size(); s++ {
		if !m.Space.Terminal(s) {
			continue
		}
		for a := 0; a < m.Transitions.NumActions(); a++ {
			next, prob := m.Transitions.Row(s, a)
			require.Equal(t, []int{s}, next)
			require.Equal(t, []float64{1}, prob)
			assert.Equal(t, 0.0, m.Transitions.At(s, a, (s+2)%m.Space.Size()))
		}
	}
}

func TestRewardOnlyOnEnteringGoal(t *testing.T) {
	cfg := oneCarConfig(3, [2]int{-1, -1}, 0)
	cfg.NumLanes = 2
	cfg.Goal = grid.Point{X: 0, Y: 1}
	m, err := Build(cfg)
	require.NoError(t, err)

	n := m.Space.Size()
	nonZero := 0
	for s := 0; s < n; s++ {
		for next := 0; next < n; next++ {
			r := m.Rewards.At(s, next)
			if r == 0 {
				continue
			}
			nonZero++
			assert.Equal(t, 1.0, r)
			assert.False(t, m.Space.Terminal(s))
			assert.True(t, m.Space.Terminal(next))
			assert.Equal(t, cfg.Goal, m.Space.AgentAt(next))
		}
	}
	assert.Equal(t, m.Rewards.NonZero(), nonZero)
	// 36 non-terminal states, each into 6 terminal states with the agent on the goal
	assert.Equal(t, 36*6, nonZero)
}

func TestAgentClampsAndCarsWrap(t *testing.T) {
	m, err := Build(oneCarConfig(4, [2]int{-1, -1}, 0.3))
	require.NoError(t, err)

	s, err := m.Space.Index(StateKey{1, 0, 0, 0, 0})
	require.NoError(t, err)

	// forward[-3] from x=1 stops at x=0, the car wraps from 0 to 3
	next, prob := m.Transitions.Row(s, 2)
	require.Len(t, next, 1)
	assert.Equal(t, StateKey{0, 0, 3, 0, 1}, m.Space.Key(next[0]))
	assert.InDelta(t, 1.0, prob[0], 1e-12)
}

func TestStationaryCarIsDeterministic(t *testing.T) {
	for _, noise := range []float64{0, 0.5, 1} {
		m, err := Build(oneCarConfig(4, [2]int{0, 0}, noise))
		require.NoError(t, err)
		for s := 0; s < m.Space.Size(); s++ {
			if m.Space.Terminal(s) {
				continue
			}
			car := m.Space.Key(s).Entity(1)
			for a := 0; a < m.Transitions.NumActions(); a++ {
				next, prob := m.Transitions.Row(s, a)
				require.Len(t, next, 1)
				assert.Equal(t, 1.0, prob[0])
				assert.Equal(t, car, m.Space.Key(next[0]).Entity(1))
			}
		}
	}
}

func TestParkedCarBlocksItsLane(t *testing.T) {
	m, err := Build(oneCarConfig(4, [2]int{0, 0}, 0))
	require.NoError(t, err)

	// forward[-1] from 2 to 1 never reaches the car at 3, yet its lane is blocked
	s, err := m.Space.Index(StateKey{2, 0, 3, 0, 0})
	require.NoError(t, err)
	next, prob := m.Transitions.Row(s, 4)
	require.Len(t, next, 1)
	assert.Equal(t, 1.0, prob[0])
	assert.Equal(t, StateKey{1, 0, 3, 0, 1}, m.Space.Key(next[0]))
	assert.True(t, Collides(4, StateKey{2, 0, 3, 0, 0}, StateKey{1, 0, 3, 0, 0}))
}

func TestNoisyCarDistribution(t *testing.T) {
	m, err := Build(oneCarConfig(9, [2]int{-3, -1}, 0.6))
	require.NoError(t, err)

	s, err := m.Space.Index(StateKey{8, 0, 5, 0, 0})
	require.NoError(t, err)
	// forward[-1]: agent to 7, car to 2, 3 or 4 without touching the agent
	next, prob := m.Transitions.Row(s, 4)
	require.Len(t, next, 3)
	byCar := map[int]float64{}
	for i, n := range next {
		k := m.Space.Key(n)
		assert.False(t, k.Done())
		assert.Equal(t, grid.Point{X: 7, Y: 0}, k.Agent())
		byCar[k.Entity(1).X] = prob[i]
	}
	assert.InDelta(t, 0.2, byCar[2], 1e-12)
	assert.InDelta(t, 0.4+0.2, byCar[3], 1e-12)
	assert.InDelta(t, 0.2, byCar[4], 1e-12)
}

func TestSpeedRangeWiderThanRoad(t *testing.T) {
	m, err := Build(oneCarConfig(2, [2]int{-3, -1}, 1))
	require.NoError(t, err)
	for s := 0; s < m.Space.Size(); s++ {
		for a := 0; a < m.Transitions.NumActions(); a++ {
			require.InDelta(t, 1.0, m.Transitions.RowSum(s, a), 1e-9)
		}
	}
}

func TestCollisionTerminates(t *testing.T) {
	m, err := Build(oneCarConfig(4, [2]int{-1, -1}, 0))
	require.NoError(t, err)

	// agent at 3, car at 1: forward[-2] sweeps 1 and 2, car sweeps 0
	s, err := m.Space.Index(StateKey{3, 0, 1, 0, 0})
	require.NoError(t, err)
	next, _ := m.Transitions.Row(s, 3)
	require.Len(t, next, 1)
	assert.Equal(t, StateKey{1, 0, 0, 0, 0}, m.Space.Key(next[0]))

	// agent at 3, car at 2: forward[-2] ends where the car passed
	s, err = m.Space.Index(StateKey{3, 0, 2, 0, 0})
	require.NoError(t, err)
	next, _ = m.Transitions.Row(s, 3)
	require.Len(t, next, 1)
	assert.Equal(t, StateKey{1, 0, 1, 0, 1}, m.Space.Key(next[0]))
}

func TestUnreachableRowIsReported(t *testing.T) {
	cfg := oneCarConfig(4, [2]int{-2, -1}, 0.5)
	b := &builder{
		cfg:   cfg,
		space: NewStateSpace(cfg.Width, cfg.NumLanes, 2),
		moves: cfg.Moves(),
	}
	b.prepare()
	b.weights[0] = []float64{0, 0}
	b.space.Decode(0, b.cur)
	b.populate(2)

	err := b.checkRow(2)
	var unreachable *UnreachableStateError
	require.True(t, errors.As(err, &unreachable))
	assert.Equal(t, 2, unreachable.Action)
	assert.Equal(t, StateKey{0, 0, 0, 0, 0}, unreachable.State)
}

func TestBuildRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"zero width":      func(c *Config) { c.Width = 0 },
		"no lanes":        func(c *Config) { c.NumLanes = 0 },
		"noise above one": func(c *Config) { c.Noise = 1.5 },
		"negative noise":  func(c *Config) { c.Noise = -0.1 },
		"inverted range":  func(c *Config) { c.Obstacles[0].MinSpeed = 2 },
		"goal off grid":   func(c *Config) { c.Goal = grid.Point{X: 4, Y: 0} },
		"car off grid":    func(c *Config) { c.Obstacles[0].Lane = 1 },
		"agent speed":     func(c *Config) { c.AgentSpeed = [2]int{1, -1} },
		"too many states": func(c *Config) { c.MaxStates = 10 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := oneCarConfig(4, [2]int{-1, -1}, 0.5)
			mutate(&cfg)
			_, err := Build(cfg)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestFromLanes(t *testing.T) {
	cfg, err := FromLanes(4, []Lane{
		{Cars: 2, MinSpeed: -3, MaxSpeed: -1},
		{Cars: 0, MinSpeed: 0, MaxSpeed: 0},
		{Cars: 1, MinSpeed: -2, MaxSpeed: -1},
	}, [2]int{-3, -1}, 0.5, grid.Point{})
	require.NoError(t, err)
	assert.Equal(t, []Obstacle{
		{Lane: 0, MinSpeed: -3, MaxSpeed: -1},
		{Lane: 0, MinSpeed: -3, MaxSpeed: -1},
		{Lane: 2, MinSpeed: -2, MaxSpeed: -1},
	}, cfg.Obstacles)
	assert.Equal(t, 3, cfg.NumLanes)

	_, err = FromLanes(4, nil, [2]int{-3, -1}, 0.5, grid.Point{})
	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = FromLanes(4, []Lane{{Cars: 1, MinSpeed: 0, MaxSpeed: -1}}, [2]int{-3, -1}, 0.5, grid.Point{})
	assert.True(t, errors.As(err, &cfgErr))
}

func TestExpectedSpeed(t *testing.T) {
	assert.Equal(t, -2, Obstacle{MinSpeed: -3, MaxSpeed: -1}.ExpectedSpeed())
	assert.Equal(t, -2, Obstacle{MinSpeed: -2, MaxSpeed: -1}.ExpectedSpeed())
	assert.Equal(t, 0, Obstacle{MinSpeed: -1, MaxSpeed: 0}.ExpectedSpeed())
	assert.Equal(t, 0, Obstacle{MinSpeed: 0, MaxSpeed: 0}.ExpectedSpeed())
}

func TestCollidesLaneChange(t *testing.T) {
	// agent moves up from the right edge (3,1) to (2,0): sweeps (2,1) and (2,0)
	s := StateKey{3, 1, 3, 0, 0}
	assert.True(t, Collides(4, s, StateKey{2, 0, 2, 0, 0}))
	// a car parked in the target lane blocks all of it
	assert.True(t, Collides(4, s, StateKey{2, 0, 3, 0, 0}))
	// a car wrapping from 0 to 3 only sweeps column 3
	s = StateKey{3, 1, 0, 0, 0}
	assert.False(t, Collides(4, s, StateKey{2, 0, 3, 0, 0}))
	// a car wrapping from 1 to 2 sweeps 0, 2 and 3
	s = StateKey{3, 1, 1, 0, 0}
	assert.True(t, Collides(4, s, StateKey{2, 0, 2, 0, 0}))
	// car in the starting lane passing column 2
	s = StateKey{3, 1, 3, 1, 0}
	assert.True(t, Collides(4, s, StateKey{2, 0, 1, 1, 0}))
	// at the left edge the lane change column clamps to 0
	s = StateKey{0, 1, 1, 0, 0}
	assert.True(t, Collides(4, s, StateKey{0, 0, 0, 0, 0}))
}
