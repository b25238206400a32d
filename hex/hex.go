// Package hex is a small library for hex grid coordinates. Everything here
// follows Amit Patel's guide at https://www.redblobgames.com/grids/hexagons/
//
// The board is laid out in rows, with every even row shifted relative to the
// odd rows ("even-r" offset coordinates). Converting to cube coordinates makes
// the six neighbor directions simple unit vectors, and two cells lie on a
// common line exactly when they share one cube axis.
package hex

import "fmt"

// EvenR is an offset coordinate.
type EvenR struct {
	Col int
	Row int
}

// Cube is a cube coordinate; X+Y+Z is always 0.
type Cube struct {
	X, Y, Z int
}

// Direction is one of the six hex directions.
type Direction uint8

const (
	East Direction = iota
	NorthEast
	NorthWest
	West
	SouthWest
	SouthEast
	NumDirections
)

var directionNames = [NumDirections]string{"E", "NE", "NW", "W", "SW", "SE"}

func (d Direction) String() string {
	if d < NumDirections {
		return directionNames[d]
	}
	return "none"
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return (d + 3) % NumDirections
}

var unitVectors = [NumDirections]Cube{
	{X: 1, Y: -1, Z: 0},
	{X: 1, Y: 0, Z: -1},
	{X: 0, Y: 1, Z: -1},
	{X: -1, Y: 1, Z: 0},
	{X: -1, Y: 0, Z: 1},
	{X: 0, Y: -1, Z: 1},
}

// Unit returns the cube vector of length one pointing in direction d.
func (d Direction) Unit() Cube {
	return unitVectors[d]
}

func (e EvenR) String() string {
	return fmt.Sprintf("(%d,%d)", e.Col, e.Row)
}

// ToCube converts an offset coordinate to cube coordinates.
func (e EvenR) ToCube() Cube {
	x := e.Col - (e.Row+(e.Row&1))/2
	z := e.Row
	return Cube{X: x, Y: -(x + z), Z: z}
}

// ToEvenR converts a cube coordinate to offset coordinates.
func (c Cube) ToEvenR() EvenR {
	return EvenR{
		Col: c.X + (c.Z+(c.Z&1))/2,
		Row: c.Z,
	}
}

func (c Cube) Add(o Cube) Cube {
	return Cube{X: c.X + o.X, Y: c.Y + o.Y, Z: c.Z + o.Z}
}

func (c Cube) Sub(o Cube) Cube {
	return Cube{X: c.X - o.X, Y: c.Y - o.Y, Z: c.Z - o.Z}
}

// Scale multiplies every component by k.
func (c Cube) Scale(k int) Cube {
	return Cube{X: c.X * k, Y: c.Y * k, Z: c.Z * k}
}

// InLine reports whether c and o share an axis.
func (c Cube) InLine(o Cube) bool {
	return c.X == o.X || c.Y == o.Y || c.Z == o.Z
}

// Neighbor returns the adjacent cell in direction d.
func (c Cube) Neighbor(d Direction) Cube {
	return c.Add(unitVectors[d])
}

// Neighbors returns the six adjacent cells in direction order.
func (e EvenR) Neighbors() [NumDirections]EvenR {
	var out [NumDirections]EvenR
	c := e.ToCube()
	for d := Direction(0); d < NumDirections; d++ {
		out[d] = c.Neighbor(d).ToEvenR()
	}
	return out
}

// InLine reports whether two offset coordinates lie on a common hex line.
func (e EvenR) InLine(o EvenR) bool {
	return e.ToCube().InLine(o.ToCube())
}

// Distance returns the hex distance between two cube coordinates.
func Distance(a, b Cube) int {
	d := a.Sub(b)
	return max(abs(d.X), abs(d.Y), abs(d.Z))
}

// DirectionTo returns the direction and distance of the straight line from a
// to b. ok is false when the cells coincide or are not in line.
func DirectionTo(a, b Cube) (d Direction, dist int, ok bool) {
	if a == b || !a.InLine(b) {
		return 0, 0, false
	}
	dist = Distance(a, b)
	delta := b.Sub(a)
	unit := Cube{X: delta.X / dist, Y: delta.Y / dist, Z: delta.Z / dist}
	for d := Direction(0); d < NumDirections; d++ {
		if unitVectors[d] == unit {
			return d, dist, true
		}
	}
	return 0, 0, false
}

// Line returns the cells strictly after src on the ray from src through dst,
// up to and including dst. It panics if the cells are equal or not in line;
// callers are expected to check InLine first.
func Line(src, dst EvenR) []EvenR {
	a, b := src.ToCube(), dst.ToCube()
	d, dist, ok := DirectionTo(a, b)
	if !ok {
		panic(fmt.Sprintf("no hex line from %v to %v", src, dst))
	}
	out := make([]EvenR, 0, dist)
	cur := a
	for i := 0; i < dist; i++ {
		cur = cur.Neighbor(d)
		out = append(out, cur.ToEvenR())
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
