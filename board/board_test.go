package board

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/htmf/cellset"
	"github.com/domino14/htmf/hex"
)

func testBoard(seed uint64) Board {
	return New(rand.New(rand.NewPCG(seed, 0)))
}

// naiveMoves walks each direction one cell at a time.
func naiveMoves(b *Board, idx uint8) cellset.CellSet {
	var out cellset.CellSet
	claimed := b.AllClaimed()
	start := IndexToEvenR(idx).ToCube()
	for d := hex.Direction(0); d < hex.NumDirections; d++ {
		for cur := start.Neighbor(d); InBounds(cur.ToEvenR()); cur = cur.Neighbor(d) {
			c := EvenRToIndex(cur.ToEvenR())
			if claimed.Contains(c) {
				break
			}
			out = out.Insert(c)
		}
	}
	return out
}

func TestIndexEvenRTranslation(t *testing.T) {
	is := is.New(t)
	for idx := uint8(0); idx < NumCells; idx++ {
		e := IndexToEvenR(idx)
		is.True(InBounds(e))
		is.Equal(EvenRToIndex(e), idx)
	}
	is.Equal(IndexToEvenR(7), hex.EvenR{Col: 0, Row: 1})
	is.Equal(IndexToEvenR(59), hex.EvenR{Col: 7, Row: 7})
}

func TestNewBoardFishCounts(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	is.Equal(b.Fish[0].Len(), NumOneFish)
	is.Equal(b.Fish[1].Len(), NumTwoFish)
	is.Equal(b.Fish[2].Len(), NumThreeFish)
	is.NoErr(b.Validate())

	b2, err := NewFromFish(b.FishLayout())
	is.NoErr(err)
	is.Equal(b2, b)

	var bad [NumCells]int
	_, err = NewFromFish(bad)
	is.True(err != nil)
}

func TestClaimCell(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	is.True(!b.IsClaimed(32))
	is.NoErr(b.ClaimCell(1, 32))
	is.True(b.IsClaimed(32))
	is.True(b.Penguins[1].Contains(32))
	owner, ok := b.Owner(32)
	is.True(ok)
	is.Equal(owner, 1)

	before := b
	err := b.ClaimCell(0, 32)
	var ime *IllegalMoveError
	is.True(errors.As(err, &ime))
	is.Equal(ime.Player, 0)
	is.Equal(b, before)
}

func TestClaimedCellBreaksPath(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	src := EvenRToIndex(hex.EvenR{Col: 1, Row: 2})
	dst := EvenRToIndex(hex.EvenR{Col: 3, Row: 5})
	is.NoErr(b.ClaimCell(0, src))
	is.True(b.IsLegalMove(0, src, dst))
	is.True(!b.IsLegalMove(1, src, dst))

	blocked := b
	is.NoErr(blocked.ClaimCell(1, EvenRToIndex(hex.EvenR{Col: 2, Row: 3})))
	is.True(!blocked.IsLegalMove(0, src, dst))

	// claiming the destination also blocks
	atDst := b
	is.NoErr(atDst.ClaimCell(1, dst))
	is.True(!atDst.IsLegalMove(0, src, dst))
}

func TestMovePenguin(t *testing.T) {
	is := is.New(t)
	b := testBoard(3)
	is.NoErr(b.ClaimCell(0, 0))
	is.NoErr(b.MovePenguin(0, 0, 6))
	is.Equal(b.Penguins[0], cellset.FromCells(6))
	is.Equal(b.Claimed[0], cellset.FromCells(0, 6))
	is.Equal(b.Score(0), b.NumFish(0)+b.NumFish(6))

	before := b
	// not in line
	is.True(b.MovePenguin(0, 6, 15) != nil)
	// back onto a claimed cell
	is.True(b.MovePenguin(0, 6, 0) != nil)
	// not this player's penguin
	is.True(b.MovePenguin(1, 6, 5) != nil)
	is.Equal(b, before)
}

func TestMovesMatchLineScan(t *testing.T) {
	is := is.New(t)
	rng := rand.New(rand.NewPCG(42, 7))
	for trial := 0; trial < 500; trial++ {
		var b Board
		mask := cellset.CellSet(rng.Uint64()) & cellset.Full()
		// thin out the mask on some trials so long rays get tested
		if trial%2 == 0 {
			mask &= cellset.CellSet(rng.Uint64())
		}
		b.Claimed[trial%MaxPlayers] = mask
		for idx := uint8(0); idx < NumCells; idx++ {
			is.Equal(b.Moves(idx), naiveMoves(&b, idx))
		}
	}
}

func TestEmptyAndNonemptyMoves(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	c := EvenRToIndex(hex.EvenR{Col: 1, Row: 2})
	is.True(!b.Moves(c).IsEmpty())
	for _, n := range Neighbors(c) {
		is.NoErr(b.ClaimCell(1, n))
	}
	is.True(b.Moves(c).IsEmpty())
}

func TestCutCell(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	c := EvenRToIndex(hex.EvenR{Col: 3, Row: 3})
	is.True(!b.IsCutCell(c))

	center := hex.EvenR{Col: 3, Row: 3}.ToCube()
	sw := EvenRToIndex(center.Neighbor(hex.SouthWest).ToEvenR())
	nw := EvenRToIndex(center.Neighbor(hex.NorthWest).ToEvenR())
	// one claimed neighbor leaves a single open run
	is.NoErr(b.ClaimCell(0, sw))
	is.True(!b.IsCutCell(c))
	// a second one splits the open neighbors in two
	is.NoErr(b.ClaimCell(0, nw))
	is.True(b.IsCutCell(c))
}

// wallRow claims every cell of row 3 except the one in column gap. Row 3
// spans the board, so the gap is the only link between the top three rows
// and the bottom four.
func wallRow(t *testing.T, b *Board, gap int) uint8 {
	t.Helper()
	for col := 0; col < OddRowLen; col++ {
		if col == gap {
			continue
		}
		if err := b.ClaimCell(1, EvenRToIndex(hex.EvenR{Col: col, Row: 3})); err != nil {
			t.Fatal(err)
		}
	}
	return EvenRToIndex(hex.EvenR{Col: gap, Row: 3})
}

func TestCutCellSplitsBoard(t *testing.T) {
	for _, gap := range []int{0, 3, OddRowLen - 1} {
		is := is.New(t)
		b := testBoard(0)
		c := wallRow(t, &b, gap)
		is.Equal(len(b.ConnectedComponents()), 1)
		is.True(b.IsCutCell(c))

		is.NoErr(b.ClaimCell(0, c))
		components := b.ConnectedComponents()
		is.Equal(len(components), 2)
		is.Equal(components[0].Len(), 2*EvenRowLen+OddRowLen)
		is.Equal(components[1].Len(), 2*EvenRowLen+2*OddRowLen)
	}
}

func TestCornerIsNotCutCell(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	// the corner's two open neighbors touch each other
	is.True(!b.IsCutCell(0))
	is.NoErr(b.ClaimCell(0, 1))
	is.True(!b.IsCutCell(0))
}

func TestStranded(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	is.NoErr(b.ClaimCell(0, 30))
	is.NoErr(b.ClaimCell(1, 0))
	is.True(b.Stranded().IsEmpty())
	for _, n := range Neighbors(0) {
		is.NoErr(b.ClaimCell(0, n))
	}
	is.Equal(b.Stranded(), cellset.FromCells(0))
	b.Reap()
	is.True(b.Stranded().IsEmpty())
	is.True(b.Penguins[1].IsEmpty())
	is.True(b.Claimed[1].Contains(0))
}

func TestOneConnectedComponentAtStart(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	components := b.ConnectedComponents()
	is.Equal(len(components), 1)
	is.Equal(components[0], cellset.Full())
}

func TestTwoConnectedComponents(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	// carve out the upper left corner
	for _, c := range []uint8{1, 7, 8} {
		is.NoErr(b.ClaimCell(0, c))
	}
	components := b.ConnectedComponents()
	is.Equal(len(components), 2)
	is.Equal(components[0], cellset.FromCells(0))
	is.Equal(components[1].Len(), NumCells-4)
}

func TestComponentsPartitionUnclaimed(t *testing.T) {
	is := is.New(t)
	for seed := uint64(0); seed < 100; seed++ {
		b := testBoard(seed)
		rng := rand.New(rand.NewPCG(seed, 1))
		cells := rng.Perm(NumCells)
		for _, c := range cells[:30] {
			is.NoErr(b.ClaimCell(int(seed%2), uint8(c)))
		}
		components := b.ConnectedComponents()
		var union cellset.CellSet
		total := 0
		for _, comp := range components {
			is.True(!comp.IsEmpty())
			is.Equal(union&comp, cellset.CellSet(0)) // pairwise disjoint
			union |= comp
			total += comp.Len()
		}
		is.Equal(union&b.AllClaimed(), cellset.CellSet(0))
		is.Equal(b.AllClaimed().Len()+total, NumCells)
	}
}

func TestOnePenguinPrunesTheWholeBoard(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	is.NoErr(b.ClaimCell(0, 0))
	is.True(b.Prune())
	is.Equal(b.AllClaimed(), cellset.Full())
	is.Equal(b.Claimed[0], cellset.Full())
	total := 0
	for k, tier := range b.Fish {
		total += (k + 1) * tier.Len()
	}
	is.Equal(b.Score(0), total)
}

func TestTwoPlayersNoPruning(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	is.NoErr(b.ClaimCell(0, 0))
	is.NoErr(b.ClaimCell(1, 1))
	is.True(!b.Prune())
	is.Equal(b.AllClaimed().Len(), 2)
}

func TestPruneFillsIsolatedPocket(t *testing.T) {
	is := is.New(t)
	b := testBoard(5)
	// wall off cells 0 and 1 with cells player 1 claimed earlier; player 0
	// sits on 0
	is.NoErr(b.ClaimCell(0, 0))
	b.Claimed[1] = cellset.FromCells(2, 7, 8, 9)
	is.True(b.Prune())
	is.True(b.Claimed[0].Contains(1))
	is.Equal(b.Penguins[0], cellset.FromCells(1))

	b.Reap()
	is.True(b.Penguins[0].IsEmpty())
	// reaped penguins keep their claims
	is.True(b.Claimed[0].Contains(1))
}

func TestReapKeepsMobilePenguins(t *testing.T) {
	is := is.New(t)
	b := testBoard(0)
	is.NoErr(b.ClaimCell(0, 30))
	is.NoErr(b.ClaimCell(1, 0))
	for _, n := range Neighbors(0) {
		is.NoErr(b.ClaimCell(1, n))
	}
	b.Reap()
	is.True(b.Penguins[0].Contains(30))
	is.True(!b.Penguins[1].Contains(0))
}

func BenchmarkMoves(b *testing.B) {
	board := testBoard(0)
	rng := rand.New(rand.NewPCG(0, 0))
	for _, c := range rng.Perm(NumCells)[:20] {
		_ = board.ClaimCell(0, uint8(c))
	}
	var src uint8
	for i := uint8(0); i < NumCells; i++ {
		if !board.Moves(i).IsEmpty() {
			src = i
			break
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = board.Moves(src)
	}
}

func BenchmarkPruneWholeBoard(b *testing.B) {
	for i := 0; i < b.N; i++ {
		board := testBoard(uint64(i))
		_ = board.ClaimCell(0, 0)
		board.Prune()
	}
}
