package grid

import (
	"math"

	"gonum.org/v1/plot/plotter"
)

// ValueGrid holds one value per road cell, used to plot value functions
// over agent positions as a heat map.
type ValueGrid struct {
	Values [][]float64 // indexed [lane][x]
	Width  int
	Lanes  int
}

var _ plotter.GridXYZ = &ValueGrid{}

func NewValueGrid(width, lanes int) *ValueGrid {
	values := make([][]float64, lanes)
	for i := range values {
		values[i] = make([]float64, width)
	}
	return &ValueGrid{
		Values: values,
		Width:  width,
		Lanes:  lanes,
	}
}

func (g *ValueGrid) Set(p Point, v float64) {
	g.Values[p.Y][p.X] = v
}

func (g *ValueGrid) Dims() (int, int) {
	return g.Width, g.Lanes
}

// Row 0 is the last lane so that lane 0 is drawn at the top, like the
// rendered road.
func (g *ValueGrid) Z(c, r int) float64 {
	return g.Values[g.Lanes-1-r][c]
}

func (g *ValueGrid) X(c int) float64 {
	return float64(c)
}

func (g *ValueGrid) Y(r int) float64 {
	return float64(r)
}

func (g *ValueGrid) Min() float64 {
	min := math.Inf(1)
	for _, row := range g.Values {
		for _, v := range row {
			min = math.Min(min, v)
		}
	}
	return min
}

func (g *ValueGrid) Max() float64 {
	max := math.Inf(-1)
	for _, row := range g.Values {
		for _, v := range row {
			max = math.Max(max, v)
		}
	}
	return max
}
