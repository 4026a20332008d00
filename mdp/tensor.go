package mdp

import (
	"github.com/zeu5/grid-driving-vi/grid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// TransitionTensor stores P(s'|s,a). Rows are kept sparse, one per
// (state, action) pair, in state-major order. Entries that were never
// written are zero.
type TransitionTensor struct {
	states  int
	actions int
	offsets []int
	next    []int
	prob    []float64
}

func newTransitionTensor(states, actions int) *TransitionTensor {
	offsets := make([]int, 1, states*actions+1)
	return &TransitionTensor{
		states:  states,
		actions: actions,
		offsets: offsets,
		next:    make([]int, 0, states*actions),
		prob:    make([]float64, 0, states*actions),
	}
}

// appendRow adds the next row. Rows must be appended for s = 0..N-1 and,
// within a state, a = 0..A-1.
func (t *TransitionTensor) appendRow(next []int, prob []float64) {
	t.next = append(t.next, next...)
	t.prob = append(t.prob, prob...)
	t.offsets = append(t.offsets, len(t.next))
}

func (t *TransitionTensor) NumStates() int {
	return t.states
}

func (t *TransitionTensor) NumActions() int {
	return t.actions
}

// NNZ is the number of stored non-zero entries.
func (t *TransitionTensor) NNZ() int {
	return len(t.next)
}

// Row returns the reachable next states of (s, a) and their probabilities.
// The slices alias the tensor and must not be modified.
func (t *TransitionTensor) Row(s, a int) ([]int, []float64) {
	r := s*t.actions + a
	lo, hi := t.offsets[r], t.offsets[r+1]
	return t.next[lo:hi], t.prob[lo:hi]
}

// At returns P(next|s,a).
func (t *TransitionTensor) At(s, a, next int) float64 {
	ns, ps := t.Row(s, a)
	for i, n := range ns {
		if n == next {
			return ps[i]
		}
	}
	return 0
}

// RowSum is the total probability mass of row (s, a).
func (t *TransitionTensor) RowSum(s, a int) float64 {
	_, ps := t.Row(s, a)
	return floats.Sum(ps)
}

// RewardTensor stores R(s, s'). The reward is 1 exactly when a non-terminal
// state moves into a terminal state with the agent on the goal, so the
// tensor is the outer product of two indicator vectors.
type RewardTensor struct {
	source   *mat.VecDense
	entering *mat.VecDense
}

func (r *RewardTensor) At(s, next int) float64 {
	return r.source.AtVec(s) * r.entering.AtVec(next)
}

// Sources marks the states a reward can be collected from.
func (r *RewardTensor) Sources() mat.Vector {
	return r.source
}

// Entering marks the states whose entry is rewarded.
func (r *RewardTensor) Entering() mat.Vector {
	return r.entering
}

// NonZero counts the (s, s') pairs with a non-zero reward.
func (r *RewardTensor) NonZero() int {
	return int(mat.Sum(r.source)) * int(mat.Sum(r.entering))
}

func newRewardTensor(space *StateSpace, goal grid.Point) *RewardTensor {
	n := space.Size()
	source := mat.NewVecDense(n, nil)
	entering := mat.NewVecDense(n, nil)
	for s := 0; s < n; s++ {
		if !space.Terminal(s) {
			source.SetVec(s, 1)
			continue
		}
		if space.AgentAt(s).Eq(goal) {
			entering.SetVec(s, 1)
		}
	}
	return &RewardTensor{source: source, entering: entering}
}
