package bot

import (
	"math/rand/v2"

	"github.com/domino14/htmf/game"
)

// RandomBot drafts a random one-fish cell, then moves a random penguin to a
// random destination.
type RandomBot struct {
	me    int
	state *game.State
	rng   *rand.Rand
}

// NewRandom creates a RandomBot. rng may be nil.
func NewRandom(state *game.State, me int, rng *rand.Rand) *RandomBot {
	if rng == nil {
		rng = NewRand()
	}
	return &RandomBot{me: me, state: state.Clone(), rng: rng}
}

func (b *RandomBot) Me() int { return b.me }

func (b *RandomBot) Update(state *game.State) {
	b.state = state.Clone()
}

func (b *RandomBot) TakeAction() game.Move {
	mustBeMyTurn(b.state, b.me, "random")
	if !b.state.FinishedDrafting() {
		cells := b.state.DraftableCells().Cells()
		return game.Place(cells[b.rng.IntN(len(cells))])
	}
	// every penguin still on the board has a move, or it would have been
	// reaped
	penguins := b.state.Board.Penguins[b.me].Cells()
	src := penguins[b.rng.IntN(len(penguins))]
	dsts := b.state.Board.Moves(src).Cells()
	return game.Movement(src, dsts[b.rng.IntN(len(dsts))])
}

func (b *RandomBot) Close() {}
