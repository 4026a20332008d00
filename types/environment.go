package types

// Environment an agent interacts with, one episode at a time
type Environment interface {
	// Reset called at the start of each episode
	Reset() (State, error)
	// Step applies the action and returns the next state along with the
	// reward collected by the transition
	Step(Action) (State, float64, error)
}

// State of the system that RL policies observe
type State interface {
	// Indexed by the Hash
	// Should be deterministic
	Hash() string
	// Actions possible from the state, empty once the episode is over
	Actions() []Action
}

// And Action that RL policy can take
type Action interface {
	// Index of the action
	// Should be deterministic
	Hash() string
}
