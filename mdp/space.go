package mdp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zeu5/grid-driving-vi/grid"
)

// StateKey is the tuple (x0, y0, x1, y1, ..., done) of the agent followed by
// every car, then the terminal flag.
type StateKey []int

func (k StateKey) Entities() int {
	return (len(k) - 1) / 2
}

// Entity returns the position of entity i, the agent being entity 0.
func (k StateKey) Entity(i int) grid.Point {
	return grid.Point{X: k[2*i], Y: k[2*i+1]}
}

func (k StateKey) Agent() grid.Point {
	return k.Entity(0)
}

func (k StateKey) Done() bool {
	return k[len(k)-1] == 1
}

func (k StateKey) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// StateSpace maps state tuples to dense integer indices and back. The first
// coordinate is the most significant digit, so the index order matches a
// row-major layout of the tuple axes.
type StateSpace struct {
	width    int
	lanes    int
	entities int
	radix    []int
	stride   []int
	size     int
}

func NewStateSpace(width, lanes, entities int) *StateSpace {
	n := 2*entities + 1
	radix := make([]int, n)
	for i := 0; i < entities; i++ {
		radix[2*i] = width
		radix[2*i+1] = lanes
	}
	radix[n-1] = 2

	stride := make([]int, n)
	size := 1
	for i := n - 1; i >= 0; i-- {
		stride[i] = size
		size *= radix[i]
	}
	return &StateSpace{
		width:    width,
		lanes:    lanes,
		entities: entities,
		radix:    radix,
		stride:   stride,
		size:     size,
	}
}

func (s *StateSpace) Size() int {
	return s.size
}

func (s *StateSpace) Entities() int {
	return s.entities
}

func (s *StateSpace) KeyLen() int {
	return len(s.radix)
}

// Index returns the flat index of k, or an error when k does not belong to
// this space.
func (s *StateSpace) Index(k StateKey) (int, error) {
	if len(k) != len(s.radix) {
		return 0, fmt.Errorf("state %s: expected %d coordinates, got %d", k, len(s.radix), len(k))
	}
	for i, v := range k {
		if v < 0 || v >= s.radix[i] {
			return 0, fmt.Errorf("state %s: coordinate %d out of range [0, %d)", k, i, s.radix[i])
		}
	}
	return s.index(k), nil
}

func (s *StateSpace) index(k StateKey) int {
	idx := 0
	for i, v := range k {
		idx += v * s.stride[i]
	}
	return idx
}

// Key allocates the tuple for index i.
func (s *StateSpace) Key(i int) StateKey {
	k := make(StateKey, len(s.radix))
	s.Decode(i, k)
	return k
}

// Decode writes the tuple for index i into dst.
func (s *StateSpace) Decode(i int, dst StateKey) {
	for d := range s.radix {
		dst[d] = (i / s.stride[d]) % s.radix[d]
	}
}

// Terminal reports whether the flag of state i is set. The flag is the last,
// least significant digit.
func (s *StateSpace) Terminal(i int) bool {
	return i%2 == 1
}

// AgentAt returns the agent's position in state i.
func (s *StateSpace) AgentAt(i int) grid.Point {
	return grid.Point{
		X: (i / s.stride[0]) % s.radix[0],
		Y: (i / s.stride[1]) % s.radix[1],
	}
}
