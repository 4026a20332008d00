package mdp

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/zeu5/grid-driving-vi/grid"
)

// DefaultMaxStates bounds the enumerated state space. Sizes grow as
// (width*lanes)^(1+cars), so anything past this is refused up front.
const DefaultMaxStates = 1 << 22

var validate = validator.New()

// Lane describes the cars driving on one lane: how many, and the closed
// integer interval of per-step displacements each of them may take.
type Lane struct {
	Cars     int `yaml:"cars" validate:"gte=0"`
	MinSpeed int `yaml:"min_speed" validate:"ltefield=MaxSpeed"`
	MaxSpeed int `yaml:"max_speed"`
}

// Obstacle is a single car. Its lane never changes.
type Obstacle struct {
	Lane     int `validate:"gte=0"`
	MinSpeed int `validate:"ltefield=MaxSpeed"`
	MaxSpeed int
}

// Speeds is the number of displacements the car can take in one step.
func (o Obstacle) Speeds() int {
	return o.MaxSpeed - o.MinSpeed + 1
}

// ExpectedSpeed is the rounded mean of the speed range, rounding halves to
// the even neighbour.
func (o Obstacle) ExpectedSpeed() int {
	return int(math.RoundToEven(float64(o.MinSpeed+o.MaxSpeed) / 2))
}

// Config is everything the builder needs to enumerate the MDP.
type Config struct {
	Width      int        `validate:"min=1"`
	NumLanes   int        `validate:"min=1"`
	Obstacles  []Obstacle `validate:"dive"`
	AgentSpeed [2]int
	// Noise is the probability that a car ignores its expected speed and
	// picks uniformly from its range instead.
	Noise     float64 `validate:"gte=0,lte=1"`
	Goal      grid.Point
	MaxStates int `validate:"gte=0"`
}

// FromLanes derives the obstacle list from per-lane specs, keeping lane
// order and the order of cars within a lane.
func FromLanes(width int, lanes []Lane, agentSpeed [2]int, noise float64, goal grid.Point) (Config, error) {
	if len(lanes) == 0 {
		return Config{}, &ConfigurationError{Field: "Lanes", Value: 0, Reason: "at least one lane is required"}
	}
	obstacles := make([]Obstacle, 0)
	for i, l := range lanes {
		if err := validate.Struct(l); err != nil {
			return Config{}, configError(fmt.Sprintf("Lanes[%d]", i), err)
		}
		for c := 0; c < l.Cars; c++ {
			obstacles = append(obstacles, Obstacle{Lane: i, MinSpeed: l.MinSpeed, MaxSpeed: l.MaxSpeed})
		}
	}
	return Config{
		Width:      width,
		NumLanes:   len(lanes),
		Obstacles:  obstacles,
		AgentSpeed: agentSpeed,
		Noise:      noise,
		Goal:       goal,
	}, nil
}

// Validate checks the configuration and the size of the resulting state
// space without allocating any of it.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return configError("Config", err)
	}
	if c.AgentSpeed[0] > c.AgentSpeed[1] {
		return &ConfigurationError{Field: "AgentSpeed", Value: c.AgentSpeed, Reason: "min speed above max speed"}
	}
	if c.Goal.X < 0 || c.Goal.X >= c.Width || c.Goal.Y < 0 || c.Goal.Y >= c.NumLanes {
		return &ConfigurationError{Field: "Goal", Value: c.Goal, Reason: "outside the grid"}
	}
	for i, o := range c.Obstacles {
		if o.Lane >= c.NumLanes {
			return &ConfigurationError{Field: fmt.Sprintf("Obstacles[%d].Lane", i), Value: o.Lane, Reason: "no such lane"}
		}
	}
	limit := c.MaxStates
	if limit == 0 {
		limit = DefaultMaxStates
	}
	if _, ok := stateCount(c.Width, c.NumLanes, 1+len(c.Obstacles), limit); !ok {
		return &ConfigurationError{
			Field:  "Obstacles",
			Value:  len(c.Obstacles),
			Reason: fmt.Sprintf("state space exceeds %d states", limit),
		}
	}
	return nil
}

// NumActions is the size of the agent's action set.
func (c Config) NumActions() int {
	return len(c.Moves())
}

func (c Config) Moves() []grid.Move {
	return grid.Moves(c.AgentSpeed[0], c.AgentSpeed[1])
}

// stateCount returns 2*(width*lanes)^entities, or false once it passes limit.
func stateCount(width, lanes, entities, limit int) (int, bool) {
	cells := width * lanes
	size := 2
	for i := 0; i < entities; i++ {
		if size > limit/cells {
			return 0, false
		}
		size *= cells
	}
	return size, size <= limit
}

// ValidateStruct runs the struct tag validation on v and reports the first
// failure as a *ConfigurationError.
func ValidateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return configError("", err)
	}
	return nil
}

func configError(scope string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason = fmt.Sprintf("%s=%s", fe.Tag(), fe.Param())
		}
		return &ConfigurationError{Field: fe.Namespace(), Value: fe.Value(), Reason: "failed " + reason}
	}
	return &ConfigurationError{Field: scope, Reason: err.Error()}
}
