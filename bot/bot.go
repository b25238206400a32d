// Package bot contains computer players.
package bot

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/htmf/game"
)

// Player is a computer player. A Player is told about every new position
// through Update and asked for a move only when it is its turn.
type Player interface {
	// Me is the seat the player plays from.
	Me() int
	// TakeAction returns a legal move for the position last given to Update.
	// It panics if it is not the player's turn.
	TakeAction() game.Move
	Update(state *game.State)
	// Close releases background work. The player must not be used after.
	Close()
}

// Ponderer is implemented by players that can think while others move.
type Ponderer interface {
	Ponder()
	FinishPondering()
}

// NewRand returns a generator seeded from the system's entropy.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(frand.Uint64n(math.MaxUint64), frand.Uint64n(math.MaxUint64)))
}

// childRand derives an independent generator from rng.
func childRand(rng *rand.Rand) *rand.Rand {
	return rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
}

func mustBeMyTurn(s *game.State, me int, kind string) {
	if p, ok := s.ActivePlayer(); !ok || p != me {
		log.Error().Str("bot", kind).Int("me", me).Int("turn", s.Turn).
			Bool("game-over", s.GameOver()).Msg("asked-to-move-out-of-turn")
		panic(fmt.Sprintf("%s bot for player %d was asked to move, but it is not its turn", kind, me))
	}
}
