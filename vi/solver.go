package vi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zeu5/grid-driving-vi/mdp"
	"gonum.org/v1/gonum/floats"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultThreshold = 0.001
	DefaultMaxSweeps = 100000
)

// Transitions is the read-only view of P(s'|s,a) the solver needs.
type Transitions interface {
	NumStates() int
	NumActions() int
	Row(s, a int) ([]int, []float64)
}

// Rewards is the read-only view of R(s, s').
type Rewards interface {
	At(s, next int) float64
}

type Options struct {
	Gamma float64 `validate:"gte=0,lt=1"`
	// Threshold on the largest value change of a sweep.
	Threshold float64 `validate:"gt=0"`
	// MaxSweeps bounds the number of sweeps before giving up.
	MaxSweeps int `validate:"gt=0"`
	// Workers splits every sweep across this many goroutines.
	Workers int          `validate:"gt=0"`
	Logger  *slog.Logger `validate:"-"`
}

func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxSweeps == 0 {
		o.MaxSweeps = DefaultMaxSweeps
	}
	if o.Workers == 0 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Validate checks the options, with defaults filled in, and reports the
// first problem as a *mdp.ConfigurationError.
func (o Options) Validate() error {
	return mdp.ValidateStruct(o.withDefaults())
}

// Result of value iteration. Values and Policy are indexed by flat state.
type Result struct {
	Values []float64
	Policy []int
	Sweeps int
	Deltas []float64
}

type chunk struct {
	lo, hi int
}

// workspace holds the scratch buffers of one goroutine.
type workspace struct {
	q       []float64
	rewards []float64
	values  []float64
}

// Solver runs synchronous value iteration: every sweep computes all new
// values from the previous value array only.
type Solver struct {
	transitions Transitions
	rewards     Rewards
	opts        Options
	logger      *slog.Logger

	chunks []chunk
	spaces []*workspace
}

func NewSolver(t Transitions, r Rewards, opts Options) (*Solver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if t.NumStates() == 0 || t.NumActions() == 0 {
		return nil, &mdp.ConfigurationError{
			Field:  "Transitions",
			Value:  fmt.Sprintf("%dx%d", t.NumStates(), t.NumActions()),
			Reason: "empty state or action space",
		}
	}

	widest := 0
	for s := 0; s < t.NumStates(); s++ {
		for a := 0; a < t.NumActions(); a++ {
			next, _ := t.Row(s, a)
			widest = max(widest, len(next))
		}
	}

	solver := &Solver{
		transitions: t,
		rewards:     r,
		opts:        opts,
		logger:      opts.Logger,
	}
	n := t.NumStates()
	workers := min(opts.Workers, n)
	size := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += size {
		solver.chunks = append(solver.chunks, chunk{lo: lo, hi: min(lo+size, n)})
		solver.spaces = append(solver.spaces, &workspace{
			q:       make([]float64, t.NumActions()),
			rewards: make([]float64, widest),
			values:  make([]float64, widest),
		})
	}
	return solver, nil
}

// Solve is NewSolver followed by Solver.Solve.
func Solve(ctx context.Context, t Transitions, r Rewards, opts Options) (*Result, error) {
	solver, err := NewSolver(t, r, opts)
	if err != nil {
		return nil, err
	}
	return solver.Solve(ctx)
}

// Solve iterates from all-zero values until the largest change in a sweep
// drops below the threshold.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	n := s.transitions.NumStates()
	prev := make([]float64, n)
	next := make([]float64, n)
	result := &Result{
		Policy: make([]int, n),
		Deltas: make([]float64, 0),
	}

	for {
		delta, err := s.Sweep(ctx, prev, next, result.Policy)
		if err != nil {
			return nil, err
		}
		result.Sweeps++
		result.Deltas = append(result.Deltas, delta)
		s.logger.Debug("value iteration sweep", slog.Int("sweep", result.Sweeps), slog.Float64("delta", delta))

		if delta < s.opts.Threshold {
			result.Values = next
			break
		}
		if result.Sweeps >= s.opts.MaxSweeps {
			return nil, &NonConvergenceError{Sweeps: result.Sweeps, Delta: delta}
		}
		prev, next = next, prev
	}

	s.logger.Info("value iteration converged",
		slog.Int("states", n),
		slog.Int("sweeps", result.Sweeps),
		slog.Float64("delta", result.Deltas[len(result.Deltas)-1]),
		slog.Float64("gamma", s.opts.Gamma),
	)
	return result, nil
}

// Sweep applies one Bellman backup to every state, reading prev and writing
// next and policy, and returns the largest absolute change.
func (s *Solver) Sweep(ctx context.Context, prev, next []float64, policy []int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(s.chunks) == 1 {
		s.sweepRange(s.spaces[0], s.chunks[0], prev, next, policy)
		return maxDelta(next, prev), nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, c := range s.chunks {
		i, c := i, c
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			s.sweepRange(s.spaces[i], c, prev, next, policy)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return maxDelta(next, prev), nil
}

func (s *Solver) sweepRange(ws *workspace, c chunk, prev, next []float64, policy []int) {
	for state := c.lo; state < c.hi; state++ {
		next[state], policy[state] = argmax(s.qValues(ws, state, prev))
	}
}

// QValues returns the action values of state under the given value array.
// It shares scratch space with Sweep and must not run alongside it.
func (s *Solver) QValues(values []float64, state int) []float64 {
	ws := s.spaces[0]
	q := s.qValues(ws, state, values)
	out := make([]float64, len(q))
	copy(out, q)
	return out
}

// qValues computes Q(s,a) = sum P(s'|s,a) R(s,s') + gamma sum P(s'|s,a) V(s')
// for every action into ws.q.
func (s *Solver) qValues(ws *workspace, state int, values []float64) []float64 {
	for a := range ws.q {
		next, prob := s.transitions.Row(state, a)
		rewards := ws.rewards[:len(next)]
		for i, n := range next {
			rewards[i] = s.rewards.At(state, n)
		}
		ws.q[a] = floats.Dot(prob, rewards) + s.opts.Gamma*gatherDot(ws.values, prob, next, values)
	}
	return ws.q
}
