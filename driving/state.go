package driving

import (
	"fmt"
	"strings"

	"github.com/zeu5/grid-driving-vi/grid"
	"github.com/zeu5/grid-driving-vi/types"
)

// AgentState tells whether the episode is still running and, if not, how it
// ended.
type AgentState int

const (
	Alive AgentState = iota
	Crashed
	Finished
	OutOfTime
)

func (s AgentState) String() string {
	switch s {
	case Alive:
		return "alive"
	case Crashed:
		return "crashed"
	case Finished:
		return "finished"
	case OutOfTime:
		return "out_of_time"
	}
	return fmt.Sprintf("AgentState(%d)", int(s))
}

// Action is one of the agent's moves.
type Action struct {
	grid.Move
}

var _ types.Action = Action{}

func (a Action) Hash() string {
	return a.Name
}

// Actions lists the agent's actions for the given speed range, in the order
// the planner indexes them.
func Actions(speedRange [2]int) []Action {
	moves := grid.Moves(speedRange[0], speedRange[1])
	actions := make([]Action, len(moves))
	for i, m := range moves {
		actions[i] = Action{Move: m}
	}
	return actions
}

// Car is a vehicle on the road. The agent is a car as well.
type Car struct {
	Position   grid.Point
	SpeedRange [2]int
}

// State is a snapshot of the road.
type State struct {
	Agent          Car
	Cars           []Car
	FinishPosition grid.Point
	AgentState     AgentState

	actions []Action
}

var _ types.State = &State{}

func (s *State) Alive() bool {
	return s.AgentState == Alive
}

func (s *State) Hash() string {
	b := strings.Builder{}
	b.WriteString("agent=")
	b.WriteString(s.Agent.Position.String())
	b.WriteString(" cars=[")
	for i, c := range s.Cars {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(c.Position.String())
	}
	b.WriteString("] ")
	b.WriteString(s.AgentState.String())
	return b.String()
}

// Actions are empty once the agent is no longer alive.
func (s *State) Actions() []types.Action {
	if !s.Alive() {
		return nil
	}
	out := make([]types.Action, len(s.actions))
	for i, a := range s.actions {
		out[i] = a
	}
	return out
}

func (s *State) clone() *State {
	cars := make([]Car, len(s.Cars))
	copy(cars, s.Cars)
	return &State{
		Agent:          s.Agent,
		Cars:           cars,
		FinishPosition: s.FinishPosition,
		AgentState:     s.AgentState,
		actions:        s.actions,
	}
}
