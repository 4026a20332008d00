package driving

import (
	"fmt"

	"github.com/zeu5/grid-driving-vi/grid"
	"github.com/zeu5/grid-driving-vi/mdp"
)

// DefaultAgentSpeedRange gives the agent the forward moves -3, -2 and -1.
var DefaultAgentSpeedRange = [2]int{-3, -1}

// LaneSpec puts Cars cars on a lane, each moving by a displacement drawn from
// the closed interval SpeedRange every step. Negative speeds move left.
type LaneSpec struct {
	Cars       int    `yaml:"cars" json:"cars" validate:"gte=0"`
	SpeedRange [2]int `yaml:"speed_range" json:"speed_range"`
}

// Description is what a planner needs to know about the road.
type Description struct {
	Lanes           []LaneSpec `yaml:"lanes" validate:"min=1,dive"`
	Width           int        `yaml:"width" validate:"min=1"`
	AgentSpeedRange [2]int     `yaml:"agent_speed_range"`
	FinishPosition  grid.Point `yaml:"finish_position"`
	// Stochasticity is the probability that a car ignores its expected
	// speed and draws uniformly from its range.
	Stochasticity float64 `yaml:"stochasticity" validate:"gte=0,lte=1"`
}

// Config of a simulated road.
type Config struct {
	Description `yaml:",inline"`
	AgentStart  grid.Point `yaml:"agent_start"`
	Seed        uint64     `yaml:"seed"`
	// Horizon ends an episode after that many steps. Zero means no limit.
	Horizon int `yaml:"horizon" validate:"gte=0"`
}

// Validate reports the first problem with the config as a
// *mdp.ConfigurationError.
func (c Config) Validate() error {
	if err := mdp.ValidateStruct(c); err != nil {
		return err
	}
	if c.AgentSpeedRange[0] > c.AgentSpeedRange[1] {
		return &mdp.ConfigurationError{Field: "AgentSpeedRange", Value: c.AgentSpeedRange, Reason: "min speed above max speed"}
	}
	for _, p := range []struct {
		name  string
		point grid.Point
	}{{"FinishPosition", c.FinishPosition}, {"AgentStart", c.AgentStart}} {
		if !c.onRoad(p.point) {
			return &mdp.ConfigurationError{Field: p.name, Value: p.point, Reason: "outside the road"}
		}
	}
	for i, l := range c.Lanes {
		if l.SpeedRange[0] > l.SpeedRange[1] {
			return &mdp.ConfigurationError{Field: fmt.Sprintf("Lanes[%d].SpeedRange", i), Value: l.SpeedRange, Reason: "min speed above max speed"}
		}
		free := c.Width
		if c.AgentStart.Y == i {
			free--
		}
		if l.Cars > free {
			return &mdp.ConfigurationError{Field: fmt.Sprintf("Lanes[%d].Cars", i), Value: l.Cars, Reason: "more cars than free cells"}
		}
	}
	return nil
}

func (c Config) onRoad(p grid.Point) bool {
	return p.X >= 0 && p.X < c.Width && p.Y >= 0 && p.Y < len(c.Lanes)
}

// expectedSpeed rounds the mean of the range, halves to even.
func expectedSpeed(speedRange [2]int) int {
	return mdp.Obstacle{MinSpeed: speedRange[0], MaxSpeed: speedRange[1]}.ExpectedSpeed()
}

// speedWeights are the probabilities of the displacements in speedRange.
func speedWeights(speedRange [2]int, p float64) []float64 {
	n := speedRange[1] - speedRange[0] + 1
	expected := expectedSpeed(speedRange)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = p / float64(n)
		if speedRange[0]+i == expected {
			weights[i] += 1 - p
		}
	}
	return weights
}
