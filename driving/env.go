package driving

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/zeu5/grid-driving-vi/grid"
	"github.com/zeu5/grid-driving-vi/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

var ErrNotStarted = errors.New("environment has not been reset")

// Environment simulates the road: cars wrap around it while the agent
// drives towards the finish.
type Environment struct {
	config  Config
	actions []Action
	rand    *rand.Rand
	// displacement weights per lane
	weights [][]float64

	state  *State
	steps  int
	colors aurora.Aurora
}

func NewEnvironment(config Config) (*Environment, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	weights := make([][]float64, len(config.Lanes))
	for i, l := range config.Lanes {
		weights[i] = speedWeights(l.SpeedRange, config.Stochasticity)
	}
	return &Environment{
		config:  config,
		actions: Actions(config.AgentSpeedRange),
		rand:    rand.New(rand.NewSource(config.Seed)),
		weights: weights,
		colors:  aurora.NewAurora(true),
	}, nil
}

func (e *Environment) Width() int {
	return e.config.Width
}

func (e *Environment) Lanes() []LaneSpec {
	return e.config.Lanes
}

func (e *Environment) Description() Description {
	return e.config.Description
}

// ActionSet lists the agent's actions in index order.
func (e *Environment) ActionSet() []Action {
	return e.actions
}

// State is the current snapshot, nil before the first Reset.
func (e *Environment) State() *State {
	return e.state
}

// SetColors toggles ANSI colours in Render.
func (e *Environment) SetColors(on bool) {
	e.colors = aurora.NewAurora(on)
}

// Reset puts the agent on its start cell and scatters every lane's cars over
// distinct cells of that lane, never on the agent.
func (e *Environment) Reset() *State {
	state := &State{
		Agent:          Car{Position: e.config.AgentStart, SpeedRange: e.config.AgentSpeedRange},
		Cars:           make([]Car, 0),
		FinishPosition: e.config.FinishPosition,
		AgentState:     Alive,
		actions:        e.actions,
	}
	for lane, spec := range e.config.Lanes {
		free := make([]int, 0, e.config.Width)
		for x := 0; x < e.config.Width; x++ {
			if lane == e.config.AgentStart.Y && x == e.config.AgentStart.X {
				continue
			}
			free = append(free, x)
		}
		for _, i := range e.rand.Perm(len(free))[:spec.Cars] {
			state.Cars = append(state.Cars, Car{
				Position:   grid.Point{X: free[i], Y: lane},
				SpeedRange: spec.SpeedRange,
			})
		}
	}
	e.state = state
	e.steps = 0
	return state.clone()
}

// Step moves the agent and then every car, and reports the reward: 1 when the
// agent reaches the finish, 0 otherwise. Stepping a finished episode returns
// the final state again with no reward.
func (e *Environment) Step(action Action) (*State, float64, bool, error) {
	if e.state == nil {
		return nil, 0, false, ErrNotStarted
	}
	if !e.state.Alive() {
		return e.state.clone(), 0, true, nil
	}
	if !e.knows(action) {
		return nil, 0, false, fmt.Errorf("unknown action %q", action.Name)
	}

	prev := e.state
	next := prev.clone()
	next.Agent.Position = action.Apply(prev.Agent.Position, e.config.Width, len(e.config.Lanes))
	for i, car := range prev.Cars {
		next.Cars[i].Position.X = grid.Wrap(car.Position.X+e.sampleSpeed(car), e.config.Width)
	}
	e.steps++

	reward := 0.0
	agent := next.Agent.Position
	switch {
	case agent.Eq(e.config.FinishPosition):
		next.AgentState = Finished
		reward = 1
	case e.crashed(prev, next):
		next.AgentState = Crashed
	case agent.X == 0:
		// the road ends outside the finish
		next.AgentState = OutOfTime
	case e.config.Horizon > 0 && e.steps >= e.config.Horizon:
		next.AgentState = OutOfTime
	}

	e.state = next
	return next.clone(), reward, !next.Alive(), nil
}

func (e *Environment) knows(action Action) bool {
	for _, a := range e.actions {
		if a == action {
			return true
		}
	}
	return false
}

func (e *Environment) sampleSpeed(car Car) int {
	i, ok := sampleuv.NewWeighted(e.weights[car.Position.Y], e.rand).Take()
	if !ok {
		return expectedSpeed(car.SpeedRange)
	}
	return car.SpeedRange[0] + i
}

// crashed reports whether the agent's trail crossed a car's trail.
func (e *Environment) crashed(prev, next *State) bool {
	trail := grid.AgentTrail(prev.Agent.Position, next.Agent.Position)
	for i, car := range prev.Cars {
		obstacle := grid.ObstacleTrail(car.Position.X, next.Cars[i].Position.X, e.config.Width)
		if grid.Crossed(trail, car.Position.Y, obstacle) {
			return true
		}
	}
	return false
}

// Render draws the road one lane per line: A is the agent, C a car, F the
// finish and X a car on the agent's cell.
func (e *Environment) Render(w io.Writer) error {
	if e.state == nil {
		return ErrNotStarted
	}
	border := strings.Repeat("=", e.config.Width+2)
	b := strings.Builder{}
	b.WriteString(border + "\n")
	for lane := range e.config.Lanes {
		b.WriteString("|")
		for x := 0; x < e.config.Width; x++ {
			b.WriteString(e.cell(grid.Point{X: x, Y: lane}))
		}
		b.WriteString("|\n")
	}
	b.WriteString(border + "\n")
	b.WriteString(fmt.Sprintf("step %d: %s\n", e.steps, e.state.AgentState))
	_, err := io.WriteString(w, b.String())
	return err
}

func (e *Environment) cell(p grid.Point) string {
	car := false
	for _, c := range e.state.Cars {
		if c.Position.Eq(p) {
			car = true
			break
		}
	}
	agent := e.state.Agent.Position.Eq(p)
	switch {
	case agent && car:
		return e.colors.Red("X").String()
	case agent:
		return e.colors.Green("A").String()
	case car:
		return e.colors.Blue("C").String()
	case p.Eq(e.config.FinishPosition):
		return e.colors.Yellow("F").String()
	}
	return "-"
}

// AgentEnvironment exposes an Environment to the episode loop of types.Agent.
type AgentEnvironment struct {
	env *Environment
}

var _ types.Environment = &AgentEnvironment{}

func NewAgentEnvironment(env *Environment) *AgentEnvironment {
	return &AgentEnvironment{env: env}
}

func (a *AgentEnvironment) Reset() (types.State, error) {
	return a.env.Reset(), nil
}

func (a *AgentEnvironment) Step(action types.Action) (types.State, float64, error) {
	act, ok := action.(Action)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected action type %T", action)
	}
	next, reward, _, err := a.env.Step(act)
	if err != nil {
		return nil, 0, err
	}
	return next, reward, nil
}
