package board

import (
	"fmt"

	"github.com/domino14/htmf/cellset"
)

// MaxFillExpansions caps the number of positions the fill search may expand
// before giving up. Giving up only means the game continues by hand.
const MaxFillExpansions = 1 << 21

// floodFill returns the connected region of open cells containing start.
func floodFill(start uint8, open cellset.CellSet) cellset.CellSet {
	component := cellset.New().Insert(start)
	frontier := component
	for !frontier.IsEmpty() {
		var next cellset.CellSet
		frontier.ForEach(func(c uint8) bool {
			next |= neighborMask[c]
			return true
		})
		next = next & open &^ component
		component |= next
		frontier = next
	}
	return component
}

// ConnectedComponents partitions the unclaimed cells into icebergs, ordered
// by their lowest cell.
func (b *Board) ConnectedComponents() []cellset.CellSet {
	open := cellset.Full() &^ b.AllClaimed()
	var components []cellset.CellSet
	for !open.IsEmpty() {
		start, _ := open.Lowest()
		c := floodFill(start, open)
		components = append(components, c)
		open &^= c
	}
	return components
}

// bestAdjacentScore is an upper bound on what a penguin on src could still
// collect with no competition: the fish in the richest iceberg it touches.
func (b *Board) bestAdjacentScore(src uint8, blocked cellset.CellSet) int {
	open := cellset.Full() &^ blocked
	candidates := neighborMask[src] & open
	best := 0
	for !candidates.IsEmpty() {
		start, _ := candidates.Lowest()
		c := floodFill(start, open)
		best = max(best, b.fishIn(c))
		candidates &^= c
	}
	return best
}

// lonePenguin returns the single penguin bordering iceberg. ok is false when
// no penguin or more than one penguin borders it.
func (b *Board) lonePenguin(iceberg cellset.CellSet) (player int, penguin uint8, ok bool) {
	found := 0
	for p := range b.Penguins {
		b.Penguins[p].ForEach(func(c uint8) bool {
			if neighborMask[c]&iceberg == 0 {
				return true
			}
			found++
			player, penguin = p, c
			return found < 2
		})
		if found > 1 {
			return 0, 0, false
		}
	}
	return player, penguin, found == 1
}

// Prune looks for icebergs that a single penguin has to itself and, where
// that penguin can take every fish on the iceberg, walks it there. It
// reports whether anything on the board changed.
func (b *Board) Prune() bool {
	changed := false
	for _, iceberg := range b.ConnectedComponents() {
		player, penguin, ok := b.lonePenguin(iceberg)
		if !ok {
			continue
		}
		// A penguin touching another iceberg may still leave this one.
		if neighborMask[penguin]&^iceberg&^b.AllClaimed() != 0 {
			continue
		}
		if b.fill(player, penguin) {
			changed = true
		}
	}
	return changed
}

type filler struct {
	b          *Board
	target     int
	expansions int
	path       []uint8
}

// search is a depth-first search for a path that collects target fish. Moves
// are tried direction by direction, nearest first. A branch is abandoned as
// soon as its score plus the richest reachable iceberg falls short.
func (f *filler) search(blocked cellset.CellSet, src uint8, score int) bool {
	if movesFrom(src, blocked).IsEmpty() {
		return score >= f.target
	}
	f.expansions++
	if f.expansions > MaxFillExpansions {
		return false
	}
	if score+f.b.bestAdjacentScore(src, blocked) < f.target {
		return false
	}
	found := false
	forEachMoveNearestFirst(src, blocked, func(dst uint8) bool {
		f.path = append(f.path, dst)
		if f.search(blocked.Insert(dst), dst, score+f.b.NumFish(dst)) {
			found = true
			return false
		}
		f.path = f.path[:len(f.path)-1]
		return true
	})
	return found
}

// fill walks penguin along a path that claims every fish it can reach, if
// such a path exists.
func (b *Board) fill(player int, penguin uint8) bool {
	claimed := b.AllClaimed()
	f := &filler{b: b, target: b.bestAdjacentScore(penguin, claimed)}
	if !f.search(claimed, penguin, 0) || len(f.path) == 0 {
		return false
	}
	src := penguin
	for _, dst := range f.path {
		if err := b.MovePenguin(player, src, dst); err != nil {
			panic(fmt.Sprintf("fill produced an illegal path: %v", err))
		}
		src = dst
	}
	return true
}
