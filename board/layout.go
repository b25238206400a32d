package board

import (
	"math/bits"

	"github.com/domino14/htmf/cellset"
	"github.com/domino14/htmf/hex"
)

const (
	EvenRowLen = 7
	OddRowLen  = 8
	NumRows    = 8
	NumCells   = cellset.NumCells

	NumOneFish   = 30
	NumTwoFish   = 20
	NumThreeFish = 10
	NumFishTiers = 3

	// MaxPlayers is the largest supported table.
	MaxPlayers = 4

	offBoard = 0xff
)

// Precomputed geometry. All of these are filled in once by init and are
// read-only afterwards.
var (
	cellCoords [NumCells]hex.EvenR
	cellCubes  [NumCells]hex.Cube

	// neighborList holds each cell's in-bounds neighbors in direction order.
	neighborList [NumCells][]uint8
	neighborMask [NumCells]cellset.CellSet

	// neighborRing[c][d] is the neighbor of c in direction d, or offBoard.
	neighborRing [NumCells][hex.NumDirections]uint8

	// rays[c][d] is every cell on the ray leaving c in direction d, stopping
	// at the edge of the board.
	rays [NumCells][hex.NumDirections]cellset.CellSet

	// rayAscending[d] is true when cell indices grow along direction d.
	rayAscending [hex.NumDirections]bool
)

func init() {
	for idx := 0; idx < NumCells; idx++ {
		cellCoords[idx] = IndexToEvenR(uint8(idx))
		cellCubes[idx] = cellCoords[idx].ToCube()
	}
	for idx := 0; idx < NumCells; idx++ {
		cube := cellCubes[idx]
		for d := hex.Direction(0); d < hex.NumDirections; d++ {
			n := cube.Neighbor(d).ToEvenR()
			neighborRing[idx][d] = offBoard
			if InBounds(n) {
				ni := EvenRToIndex(n)
				neighborRing[idx][d] = ni
				neighborList[idx] = append(neighborList[idx], ni)
				neighborMask[idx] = neighborMask[idx].Insert(ni)
			}
			var ray cellset.CellSet
			for cur := cube.Neighbor(d); InBounds(cur.ToEvenR()); cur = cur.Neighbor(d) {
				ray = ray.Insert(EvenRToIndex(cur.ToEvenR()))
			}
			rays[idx][d] = ray
		}
	}
	// Moving down a row or right along a row increases the index; everything
	// else decreases it.
	rayAscending[hex.East] = true
	rayAscending[hex.SouthWest] = true
	rayAscending[hex.SouthEast] = true
}

func rowLen(row int) int {
	if row&1 == 0 {
		return EvenRowLen
	}
	return OddRowLen
}

// InBounds reports whether an offset coordinate is on the board.
func InBounds(c hex.EvenR) bool {
	return c.Row >= 0 && c.Row < NumRows && c.Col >= 0 && c.Col < rowLen(c.Row)
}

// EvenRToIndex converts an in-bounds offset coordinate to a cell index.
func EvenRToIndex(c hex.EvenR) uint8 {
	paired := (EvenRowLen + OddRowLen) * (c.Row / 2)
	unpaired := 0
	if c.Row%2 == 1 {
		unpaired = EvenRowLen
	}
	return uint8(paired + unpaired + c.Col)
}

// IndexToEvenR converts a cell index to its offset coordinate.
func IndexToEvenR(idx uint8) hex.EvenR {
	rest := int(idx)
	row := 0
	for rest >= rowLen(row) {
		rest -= rowLen(row)
		row++
	}
	return hex.EvenR{Col: rest, Row: row}
}

// CellCube returns the cube coordinate of a cell.
func CellCube(idx uint8) hex.Cube {
	return cellCubes[idx]
}

// Neighbors returns the in-bounds neighbors of a cell in direction order.
// The returned slice must not be modified.
func Neighbors(idx uint8) []uint8 {
	return neighborList[idx]
}

// NeighborMask returns the in-bounds neighbors of a cell as a set.
func NeighborMask(idx uint8) cellset.CellSet {
	return neighborMask[idx]
}

// Ray returns the precomputed ray mask leaving idx in direction d.
func Ray(idx uint8, d hex.Direction) cellset.CellSet {
	return rays[idx][d]
}

// reachable trims a ray to the cells strictly before its first blocker.
func reachable(ray, blocked cellset.CellSet, ascending bool) cellset.CellSet {
	blockers := uint64(ray & blocked)
	if blockers == 0 {
		return ray
	}
	if ascending {
		first := bits.TrailingZeros64(blockers)
		return ray & cellset.CellSet(uint64(1)<<first-1)
	}
	first := 63 - bits.LeadingZeros64(blockers)
	return ray & cellset.CellSet(^uint64(0)<<(first+1))
}

// movesFrom is the ray-mask move generator shared by the board and the
// fill search.
func movesFrom(idx uint8, blocked cellset.CellSet) cellset.CellSet {
	var out cellset.CellSet
	for d := hex.Direction(0); d < hex.NumDirections; d++ {
		out |= reachable(rays[idx][d], blocked, rayAscending[d])
	}
	return out
}

// forEachMoveNearestFirst walks the reachable cells direction by direction,
// nearest cell first within each direction.
func forEachMoveNearestFirst(idx uint8, blocked cellset.CellSet, fn func(dst uint8) bool) {
	for d := hex.Direction(0); d < hex.NumDirections; d++ {
		r := uint64(reachable(rays[idx][d], blocked, rayAscending[d]))
		for r != 0 {
			var c int
			if rayAscending[d] {
				c = bits.TrailingZeros64(r)
			} else {
				c = 63 - bits.LeadingZeros64(r)
			}
			r &^= 1 << c
			if !fn(uint8(c)) {
				return
			}
		}
	}
}
