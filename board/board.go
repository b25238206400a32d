// Package board implements the rules engine: fish layout, penguin placement
// and movement, iceberg analysis and the automatic endgame fill.
//
// A Board is a plain comparable value. Copying it is a clone.
package board

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/domino14/htmf/cellset"
	"github.com/domino14/htmf/hex"
)

// Board holds every per-cell fact the game needs as bit sets.
type Board struct {
	// Fish[k] is the set of cells carrying k+1 fish.
	Fish     [NumFishTiers]cellset.CellSet
	Penguins [MaxPlayers]cellset.CellSet
	Claimed  [MaxPlayers]cellset.CellSet
}

// New shuffles a standard fish layout using rng.
func New(rng *rand.Rand) Board {
	var layout [NumCells]int
	for i := range layout {
		switch {
		case i < NumOneFish:
			layout[i] = 1
		case i < NumOneFish+NumTwoFish:
			layout[i] = 2
		default:
			layout[i] = 3
		}
	}
	rng.Shuffle(len(layout), func(i, j int) {
		layout[i], layout[j] = layout[j], layout[i]
	})
	b, err := NewFromFish(layout)
	if err != nil {
		// The layout above is always valid.
		panic(err)
	}
	return b
}

// NewFromFish builds a board with the given number of fish on each cell.
// Any tier counts are accepted; every value must be 1, 2 or 3. Whether the
// board leaves enough one-fish cells to draft on is checked by the game.
func NewFromFish(layout [NumCells]int) (Board, error) {
	var b Board
	for i, f := range layout {
		if f < 1 || f > NumFishTiers {
			return Board{}, fmt.Errorf("cell %d: invalid fish count %d", i, f)
		}
		b.Fish[f-1] = b.Fish[f-1].Insert(uint8(i))
	}
	return b, nil
}

// FishLayout returns the number of fish on each cell.
func (b *Board) FishLayout() [NumCells]int {
	var out [NumCells]int
	for i := uint8(0); i < NumCells; i++ {
		out[i] = b.NumFish(i)
	}
	return out
}

// NumFish returns how many fish are on cell idx.
func (b *Board) NumFish(idx uint8) int {
	for k := range b.Fish {
		if b.Fish[k].Contains(idx) {
			return k + 1
		}
	}
	return 0
}

// AllClaimed is the union of every player's claimed cells.
func (b *Board) AllClaimed() cellset.CellSet {
	return b.Claimed[0] | b.Claimed[1] | b.Claimed[2] | b.Claimed[3]
}

// AllPenguins is the union of every player's active penguins.
func (b *Board) AllPenguins() cellset.CellSet {
	return b.Penguins[0] | b.Penguins[1] | b.Penguins[2] | b.Penguins[3]
}

func (b *Board) IsClaimed(idx uint8) bool {
	return b.AllClaimed().Contains(idx)
}

// Owner returns the player that claimed idx.
func (b *Board) Owner(idx uint8) (int, bool) {
	for p, c := range b.Claimed {
		if c.Contains(idx) {
			return p, true
		}
	}
	return 0, false
}

// fishIn sums the fish over a set of cells.
func (b *Board) fishIn(cells cellset.CellSet) int {
	total := 0
	for k, tier := range b.Fish {
		total += (k + 1) * (tier & cells).Len()
	}
	return total
}

// Score is the number of fish on the cells claimed by player.
func (b *Board) Score(player int) int {
	return b.fishIn(b.Claimed[player])
}

// ClaimCell places a new penguin for player on idx.
func (b *Board) ClaimCell(player int, idx uint8) error {
	if idx >= NumCells {
		return &IllegalMoveError{Player: player, Message: fmt.Sprintf("cell %d is off the board", idx)}
	}
	if b.IsClaimed(idx) {
		return &IllegalMoveError{Player: player, Message: fmt.Sprintf("cell %d already claimed", idx)}
	}
	b.Claimed[player] = b.Claimed[player].Insert(idx)
	b.Penguins[player] = b.Penguins[player].Insert(idx)
	return nil
}

// Moves returns every cell a penguin standing on idx could move to.
func (b *Board) Moves(idx uint8) cellset.CellSet {
	return movesFrom(idx, b.AllClaimed())
}

// IsLegalMove reports whether player may move the penguin on src to dst.
func (b *Board) IsLegalMove(player int, src, dst uint8) bool {
	if src >= NumCells || dst >= NumCells {
		return false
	}
	return b.Penguins[player].Contains(src) && b.Moves(src).Contains(dst)
}

// MovePenguin moves player's penguin from src to dst and claims dst.
func (b *Board) MovePenguin(player int, src, dst uint8) error {
	if !b.IsLegalMove(player, src, dst) {
		return &IllegalMoveError{
			Player:  player,
			Message: fmt.Sprintf("player %d cannot move penguin from %d to %d", player, src, dst),
		}
	}
	b.Claimed[player] = b.Claimed[player].Insert(dst)
	b.Penguins[player] = b.Penguins[player].Remove(src).Insert(dst)
	return nil
}

// IsCutCell is a cheap necessary condition for claiming idx to split an
// iceberg. Going once around the cell, it counts the runs of open neighbors
// separated by claimed cells or the edge of the board. Open neighbors in a
// single run stay connected to each other through the ring, so only two or
// more runs can end up in different icebergs.
func (b *Board) IsCutCell(idx uint8) bool {
	claimed := b.AllClaimed()
	var open [hex.NumDirections]bool
	for d, n := range neighborRing[idx] {
		open[d] = n != offBoard && !claimed.Contains(n)
	}
	runs := 0
	for d := range open {
		if open[d] && !open[(d+len(open)-1)%len(open)] {
			runs++
		}
	}
	return runs >= 2
}

// Stranded returns the cells of penguins that have no legal moves.
func (b *Board) Stranded() cellset.CellSet {
	claimed := b.AllClaimed()
	var out cellset.CellSet
	b.AllPenguins().ForEach(func(c uint8) bool {
		if movesFrom(c, claimed).IsEmpty() {
			out = out.Insert(c)
		}
		return true
	})
	return out
}

// Reap removes penguins that have no legal moves. Their cells stay claimed.
func (b *Board) Reap() {
	stranded := b.Stranded()
	if stranded.IsEmpty() {
		return
	}
	for p := range b.Penguins {
		b.Penguins[p] = b.Penguins[p].Exclude(stranded)
	}
}

// Validate checks that a board built from outside input is consistent:
// fish tiers partition the cells and every penguin stands on a claimed cell.
func (b *Board) Validate() error {
	var seen cellset.CellSet
	for k, tier := range b.Fish {
		if seen&tier != 0 {
			return fmt.Errorf("fish tier %d overlaps another tier", k+1)
		}
		seen |= tier
	}
	if seen != cellset.Full() {
		return errors.New("fish tiers do not cover the board")
	}
	seen = 0
	for p, c := range b.Claimed {
		if seen&c != 0 {
			return fmt.Errorf("player %d claims a cell claimed by another player", p)
		}
		seen |= c
		if b.Penguins[p]&^c != 0 {
			return fmt.Errorf("player %d has a penguin on an unclaimed cell", p)
		}
	}
	return nil
}
