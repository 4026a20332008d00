package mdp

import "fmt"

// ConfigurationError reports an invalid grid, lane or solver setting. It is
// always returned before any tensor is allocated.
type ConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// UnreachableStateError is returned when a non-terminal (state, action) row
// of the transition tensor does not carry a full unit of probability.
type UnreachableStateError struct {
	State  StateKey
	Action int
	Mass   float64
}

func (e *UnreachableStateError) Error() string {
	return fmt.Sprintf("state %s action %d: successor probability mass %g, expected 1", e.State, e.Action, e.Mass)
}
