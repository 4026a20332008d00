package grid

import "fmt"

// Point is a cell on the road, X along the lane and Y the lane index.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

func (p Point) Eq(other Point) bool {
	return p.X == other.X && p.Y == other.Y
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Wrap returns x modulo width in [0, width).
func Wrap(x, width int) int {
	m := x % width
	if m < 0 {
		m += width
	}
	return m
}

// ObstacleTrail lists the x cells a car sweeps moving from oldX to newX.
// Cars only move left, so newX < oldX covers [newX, oldX). Otherwise the car
// wrapped around the road and the trail is the complement of [oldX, newX):
// a car that ends where it started blocks the whole lane.
func ObstacleTrail(oldX, newX, width int) []int {
	if newX < oldX {
		trail := make([]int, 0, oldX-newX)
		for x := newX; x < oldX; x++ {
			trail = append(trail, x)
		}
		return trail
	}
	trail := make([]int, 0, width-(newX-oldX))
	for x := 0; x < width; x++ {
		if x < oldX || x >= newX {
			trail = append(trail, x)
		}
	}
	return trail
}

// AgentTrail lists the cells the agent sweeps moving from one cell to another.
// Within a lane it covers [to.X, from.X); a lane change covers the column
// left of the start cell in both the old and the new lane.
func AgentTrail(from, to Point) []Point {
	if from.Y == to.Y {
		trail := make([]Point, 0)
		for x := to.X; x < from.X; x++ {
			trail = append(trail, Point{X: x, Y: from.Y})
		}
		return trail
	}
	col := max(from.X-1, 0)
	return []Point{{X: col, Y: from.Y}, {X: col, Y: to.Y}}
}

// Crossed reports whether the agent trail shares a cell with the trail of a
// car in the given lane.
func Crossed(agent []Point, lane int, obstacle []int) bool {
	for _, c := range agent {
		if c.Y != lane {
			continue
		}
		for _, x := range obstacle {
			if c.X == x {
				return true
			}
		}
	}
	return false
}
