package mdp

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/zeu5/grid-driving-vi/grid"
)

// rowTolerance is how far a row's probability mass may stray from 1.
const rowTolerance = 1e-9

// MDP is the fully enumerated driving problem.
type MDP struct {
	Config      Config
	Space       *StateSpace
	Transitions *TransitionTensor
	Rewards     *RewardTensor
	Moves       []grid.Move
}

func (m *MDP) Summary() []any {
	return []any{
		slog.Int("states", m.Space.Size()),
		slog.Int("actions", len(m.Moves)),
		slog.Int("cars", len(m.Config.Obstacles)),
		slog.Int("nnz", m.Transitions.NNZ()),
		slog.Int("rewarded_pairs", m.Rewards.NonZero()),
	}
}

type Option func(*builder)

func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

type builder struct {
	cfg    Config
	space  *StateSpace
	moves  []grid.Move
	logger *slog.Logger

	// per car displacement tables
	speeds  [][]int
	weights [][]float64

	// scratch for one row
	cur      StateKey
	nextKey  StateKey
	rowNext  []int
	rowProb  []float64
	counters []int
}

// Build validates cfg and enumerates the transition and reward tensors.
func Build(cfg Config, opts ...Option) (*MDP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &builder{
		cfg:    cfg,
		space:  NewStateSpace(cfg.Width, cfg.NumLanes, 1+len(cfg.Obstacles)),
		moves:  cfg.Moves(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b.build()
}

func (b *builder) build() (*MDP, error) {
	start := time.Now()
	b.prepare()

	n := b.space.Size()
	transitions := newTransitionTensor(n, len(b.moves))
	for s := 0; s < n; s++ {
		b.space.Decode(s, b.cur)
		for a := range b.moves {
			if b.cur.Done() {
				transitions.appendRow([]int{s}, []float64{1})
				continue
			}
			b.populate(a)
			if err := b.checkRow(a); err != nil {
				return nil, err
			}
			transitions.appendRow(b.rowNext, b.rowProb)
		}
	}

	m := &MDP{
		Config:      b.cfg,
		Space:       b.space,
		Transitions: transitions,
		Rewards:     newRewardTensor(b.space, b.cfg.Goal),
		Moves:       b.moves,
	}
	b.logger.Info("built driving MDP", append(m.Summary(), slog.Duration("took", time.Since(start)))...)
	return m, nil
}

// prepare computes each car's displacements and their probabilities. A car
// keeps its expected speed with probability 1-p and otherwise draws
// uniformly from its range, so the expected displacement carries
// (1-p) + p/n and every other one p/n.
func (b *builder) prepare() {
	p := b.cfg.Noise
	b.speeds = make([][]int, len(b.cfg.Obstacles))
	b.weights = make([][]float64, len(b.cfg.Obstacles))
	for i, o := range b.cfg.Obstacles {
		n := o.Speeds()
		expected := o.ExpectedSpeed()
		for d := o.MinSpeed; d <= o.MaxSpeed; d++ {
			w := p / float64(n)
			if d == expected {
				w += 1 - p
			}
			b.speeds[i] = append(b.speeds[i], d)
			b.weights[i] = append(b.weights[i], w)
		}
	}
	k := b.space.KeyLen()
	b.cur = make(StateKey, k)
	b.nextKey = make(StateKey, k)
	b.counters = make([]int, len(b.cfg.Obstacles))
}

// populate fills the scratch row for the current state and action a by
// walking every combination of car displacements.
func (b *builder) populate(a int) {
	b.rowNext = b.rowNext[:0]
	b.rowProb = b.rowProb[:0]

	agentNext := b.moves[a].Apply(b.cur.Agent(), b.cfg.Width, b.cfg.NumLanes)
	b.nextKey[0], b.nextKey[1] = agentNext.X, agentNext.Y
	for i := range b.counters {
		b.counters[i] = 0
	}

	for {
		prob := 1.0
		for i, c := range b.counters {
			car := b.cur.Entity(i + 1)
			b.nextKey[2*(i+1)] = grid.Wrap(car.X+b.speeds[i][c], b.cfg.Width)
			b.nextKey[2*(i+1)+1] = car.Y
			prob *= b.weights[i][c]
		}
		if prob > 0 {
			b.nextKey[len(b.nextKey)-1] = 0
			if Terminates(b.cfg, b.cur, b.nextKey) {
				b.nextKey[len(b.nextKey)-1] = 1
			}
			b.accumulate(b.space.index(b.nextKey), prob)
		}
		if !b.advance() {
			return
		}
	}
}

// advance steps the displacement odometer, returning false once every
// combination has been visited.
func (b *builder) advance() bool {
	for i := len(b.counters) - 1; i >= 0; i-- {
		b.counters[i]++
		if b.counters[i] < len(b.speeds[i]) {
			return true
		}
		b.counters[i] = 0
	}
	return false
}

// accumulate adds mass to next. Displacements that land on the same cell
// (a speed range wider than the road) share one entry.
func (b *builder) accumulate(next int, prob float64) {
	for i, n := range b.rowNext {
		if n == next {
			b.rowProb[i] += prob
			return
		}
	}
	b.rowNext = append(b.rowNext, next)
	b.rowProb = append(b.rowProb, prob)
}

func (b *builder) checkRow(a int) error {
	mass := 0.0
	for _, p := range b.rowProb {
		mass += p
	}
	if len(b.rowNext) == 0 || math.Abs(mass-1) > rowTolerance {
		key := make(StateKey, len(b.cur))
		copy(key, b.cur)
		return fmt.Errorf("building transitions: %w", &UnreachableStateError{State: key, Action: a, Mass: mass})
	}
	return nil
}

// Terminates reports whether moving from s to next ends the episode: a
// collision, reaching the goal, or reaching the left edge of the road.
func Terminates(cfg Config, s, next StateKey) bool {
	agent := next.Agent()
	return agent.Eq(cfg.Goal) || agent.X == 0 || Collides(cfg.Width, s, next)
}

// Collides reports whether the agent's trail from s to next crosses the
// trail of any car in that car's lane.
func Collides(width int, s, next StateKey) bool {
	agent := grid.AgentTrail(s.Agent(), next.Agent())
	if len(agent) == 0 {
		return false
	}
	for i := 1; i < s.Entities(); i++ {
		car, carNext := s.Entity(i), next.Entity(i)
		if grid.Crossed(agent, car.Y, grid.ObstacleTrail(car.X, carNext.X, width)) {
			return true
		}
	}
	return false
}
