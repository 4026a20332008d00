package vi

import "fmt"

// NonConvergenceError is returned when value iteration hits the sweep bound
// before the largest update falls under the threshold.
type NonConvergenceError struct {
	Sweeps int
	Delta  float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("value iteration did not converge after %d sweeps (max delta %g)", e.Sweeps, e.Delta)
}
