// Package cellset implements a fixed-capacity set of board cells packed into
// a single 64-bit word. Every board query in the engine is built on top of it,
// so all operations are branch-light bit arithmetic.
package cellset

import (
	"math/bits"
	"strconv"
	"strings"
)

// NumCells is the number of cells on a standard board. Bits at or above
// NumCells are always clear.
const NumCells = 60

// CellSet is a set of cell indices in [0, NumCells).
type CellSet uint64

const fullMask = CellSet(1)<<NumCells - 1

// New returns the empty set.
func New() CellSet {
	return 0
}

// Full returns the set of every valid cell.
func Full() CellSet {
	return fullMask
}

// FromCells builds a set from a list of cell indices.
func FromCells(cells ...uint8) CellSet {
	var s CellSet
	for _, c := range cells {
		s = s.Insert(c)
	}
	return s
}

func (s CellSet) Insert(c uint8) CellSet {
	return s | 1<<c
}

func (s CellSet) Remove(c uint8) CellSet {
	return s &^ (1 << c)
}

func (s CellSet) Contains(c uint8) bool {
	return s&(1<<c) != 0
}

func (s CellSet) Union(o CellSet) CellSet {
	return s | o
}

func (s CellSet) Intersect(o CellSet) CellSet {
	return s & o
}

// Exclude returns the set difference s \ o.
func (s CellSet) Exclude(o CellSet) CellSet {
	return s &^ o
}

func (s CellSet) IsEmpty() bool {
	return s == 0
}

func (s CellSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Lowest returns the smallest member. ok is false for the empty set.
func (s CellSet) Lowest() (c uint8, ok bool) {
	if s == 0 {
		return 0, false
	}
	return uint8(bits.TrailingZeros64(uint64(s))), true
}

// ForEach calls fn for every member in ascending order. Iteration stops
// early if fn returns false.
func (s CellSet) ForEach(fn func(c uint8) bool) {
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		if !fn(uint8(bits.TrailingZeros64(rest))) {
			return
		}
	}
}

// Cells returns the members in ascending order. Each call starts over from
// cell 0.
func (s CellSet) Cells() []uint8 {
	out := make([]uint8, 0, s.Len())
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		out = append(out, uint8(bits.TrailingZeros64(rest)))
	}
	return out
}

// Iter returns a restartable iterator over the members in ascending order.
func (s CellSet) Iter() *Iterator {
	return &Iterator{rest: uint64(s)}
}

// Iterator walks a CellSet using count-trailing-zeros to skip empty runs.
type Iterator struct {
	rest uint64
}

// Next returns the next member, or ok == false once exhausted.
func (it *Iterator) Next() (c uint8, ok bool) {
	if it.rest == 0 {
		return 0, false
	}
	c = uint8(bits.TrailingZeros64(it.rest))
	it.rest &= it.rest - 1
	return c, true
}

func (s CellSet) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	s.ForEach(func(c uint8) bool {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		sb.WriteString(strconv.Itoa(int(c)))
		return true
	})
	sb.WriteByte('}')
	return sb.String()
}
