// Package zobrist hashes game positions for transposition tables.
// https://en.wikipedia.org/wiki/Zobrist_hashing
package zobrist

import (
	"lukechampine.com/frand"

	"github.com/domino14/htmf/board"
	"github.com/domino14/htmf/cellset"
	"github.com/domino14/htmf/game"
)

const bignum = 1<<63 - 2

// noPlayer is the side-to-move slot used once the game is over.
const noPlayer = board.MaxPlayers

type Zobrist struct {
	fishTable    [board.NumFishTiers][board.NumCells]uint64
	penguinTable [board.MaxPlayers][board.NumCells]uint64
	claimTable   [board.MaxPlayers][board.NumCells]uint64
	toMove       [board.MaxPlayers + 1]uint64
	drafting     uint64
}

func randomKey() uint64 {
	return frand.Uint64n(bignum) + 1
}

// New returns a Zobrist with freshly drawn keys. Hashes from different
// Zobrists are not comparable.
func New() *Zobrist {
	z := &Zobrist{}
	for t := range z.fishTable {
		for c := range z.fishTable[t] {
			z.fishTable[t][c] = randomKey()
		}
	}
	for p := 0; p < board.MaxPlayers; p++ {
		for c := 0; c < board.NumCells; c++ {
			z.penguinTable[p][c] = randomKey()
			z.claimTable[p][c] = randomKey()
		}
	}
	for i := range z.toMove {
		z.toMove[i] = randomKey()
	}
	z.drafting = randomKey()
	return z
}

func xorCells(key uint64, table *[board.NumCells]uint64, cells cellset.CellSet) uint64 {
	cells.ForEach(func(c uint8) bool {
		key ^= table[c]
		return true
	})
	return key
}

func (z *Zobrist) sideKey(s *game.State) uint64 {
	key := z.toMove[noPlayer]
	if p, ok := s.ActivePlayer(); ok {
		key = z.toMove[p]
	}
	if !s.FinishedDrafting() {
		key ^= z.drafting
	}
	return key
}

// Hash computes the key of a position from scratch.
func (z *Zobrist) Hash(s *game.State) uint64 {
	b := &s.Board
	key := z.sideKey(s)
	for t := range b.Fish {
		key = xorCells(key, &z.fishTable[t], b.Fish[t])
	}
	for p := 0; p < s.NPlayers; p++ {
		key = xorCells(key, &z.penguinTable[p], b.Penguins[p])
		key = xorCells(key, &z.claimTable[p], b.Claimed[p])
	}
	return key
}

// Update turns the key of before into the key of after by toggling only the
// cells that changed. Pruning can claim many cells in one move, so the
// difference is taken over whole sets rather than derived from the move.
func (z *Zobrist) Update(key uint64, before, after *game.State) uint64 {
	key ^= z.sideKey(before) ^ z.sideKey(after)
	bb, ab := &before.Board, &after.Board
	for t := range bb.Fish {
		key = xorCells(key, &z.fishTable[t], bb.Fish[t]^ab.Fish[t])
	}
	for p := 0; p < board.MaxPlayers; p++ {
		key = xorCells(key, &z.penguinTable[p], bb.Penguins[p]^ab.Penguins[p])
		key = xorCells(key, &z.claimTable[p], bb.Claimed[p]^ab.Claimed[p])
	}
	return key
}
