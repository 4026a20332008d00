package grid

import "fmt"

// Move is an agent action expressed as a displacement on the road.
type Move struct {
	Name string
	Dx   int
	Dy   int
}

func (m Move) String() string {
	return m.Name
}

// Apply moves from p and clamps the result to a width x lanes road.
func (m Move) Apply(p Point, width, lanes int) Point {
	return Point{
		X: Clamp(p.X+m.Dx, 0, width-1),
		Y: Clamp(p.Y+m.Dy, 0, lanes-1),
	}
}

// Moves lists the agent actions in their fixed order: up, down and then one
// forward move per speed in [minSpeed, maxSpeed]. A lane change also costs
// one cell of forward progress.
func Moves(minSpeed, maxSpeed int) []Move {
	moves := []Move{
		{Name: "up", Dx: -1, Dy: -1},
		{Name: "down", Dx: -1, Dy: 1},
	}
	for s := minSpeed; s <= maxSpeed; s++ {
		moves = append(moves, Move{Name: fmt.Sprintf("forward[%d]", s), Dx: s})
	}
	return moves
}
