package types

import "encoding/json"

// Trace of an episode as quadruples (state, action, nextState, reward)
type Trace struct {
	states     []State
	actions    []Action
	nextStates []State
	rewards    []float64
}

func NewTrace() *Trace {
	return &Trace{
		states:     make([]State, 0),
		actions:    make([]Action, 0),
		nextStates: make([]State, 0),
		rewards:    make([]float64, 0),
	}
}

func (t *Trace) Slice(from, to int) *Trace {
	slicedTrace := NewTrace()
	for i := from; i < to; i++ {
		slicedTrace.Append(i-from, t.states[i], t.actions[i], t.nextStates[i], t.rewards[i])
	}
	return slicedTrace
}

func (t *Trace) Append(step int, state State, action Action, nextState State, reward float64) {
	t.states = append(t.states, state)
	t.actions = append(t.actions, action)
	t.nextStates = append(t.nextStates, nextState)
	t.rewards = append(t.rewards, reward)
}

func (t *Trace) Len() int {
	return len(t.states)
}

func (t *Trace) Get(i int) (State, Action, State, bool) {
	if i >= len(t.states) {
		return nil, nil, nil, false
	}
	return t.states[i], t.actions[i], t.nextStates[i], true
}

// Reward collected at step i
func (t *Trace) Reward(i int) float64 {
	if i >= len(t.rewards) {
		return 0
	}
	return t.rewards[i]
}

// TotalReward is the undiscounted sum of the rewards in the trace
func (t *Trace) TotalReward() float64 {
	total := 0.0
	for _, r := range t.rewards {
		total += r
	}
	return total
}

func (t *Trace) Last() (State, Action, State, bool) {
	if len(t.states) < 1 {
		return nil, nil, nil, false
	}
	lastIndex := len(t.states) - 1
	return t.states[lastIndex], t.actions[lastIndex], t.nextStates[lastIndex], true
}

func (t *Trace) GetPrefix(i int) (*Trace, bool) {
	if i > len(t.states) {
		return nil, false
	}
	return &Trace{
		states:     t.states[0:i],
		actions:    t.actions[0:i],
		nextStates: t.nextStates[0:i],
		rewards:    t.rewards[0:i],
	}, true
}

type traceStep struct {
	Step      int     `json:"step"`
	State     string  `json:"state"`
	Action    string  `json:"action"`
	NextState string  `json:"next_state"`
	Reward    float64 `json:"reward"`
}

// MarshalJSON records the trace by hashes, one object per step
func (t *Trace) MarshalJSON() ([]byte, error) {
	steps := make([]traceStep, t.Len())
	for i := range steps {
		steps[i] = traceStep{
			Step:      i,
			State:     t.states[i].Hash(),
			Action:    t.actions[i].Hash(),
			NextState: t.nextStates[i].Hash(),
			Reward:    t.rewards[i],
		}
	}
	return json.Marshal(steps)
}
