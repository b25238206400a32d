package bot

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/htmf/game"
	"github.com/domino14/htmf/zobrist"
)

// DefaultMinimaxDepth is the search depth, in moves, used when none is given.
const DefaultMinimaxDepth = 2

// MinimaxBot drafts at random and then searches a fixed number of moves
// ahead. Every player is assumed to maximize its lead over the best of the
// others, and positions are compared by the scores reached at the horizon.
type MinimaxBot struct {
	me    int
	state *game.State
	depth int
	rng   *rand.Rand
	z     *zobrist.Zobrist
}

// NewMinimax creates a MinimaxBot. rng may be nil.
func NewMinimax(state *game.State, me, depth int, rng *rand.Rand) *MinimaxBot {
	if depth < 1 {
		depth = DefaultMinimaxDepth
	}
	if rng == nil {
		rng = NewRand()
	}
	return &MinimaxBot{me: me, state: state.Clone(), depth: depth, rng: rng, z: zobrist.New()}
}

func (b *MinimaxBot) Me() int { return b.me }

func (b *MinimaxBot) Update(state *game.State) {
	b.state = state.Clone()
}

func (b *MinimaxBot) Close() {}

// margin is a player's score minus the best score among the others.
func margin(scores []int, player int) int {
	best := 0
	for p, s := range scores {
		if p != player {
			best = max(best, s)
		}
	}
	return scores[player] - best
}

type ttKey struct {
	hash  uint64
	depth int
}

// searcher owns one transposition table and is used by one goroutine.
type searcher struct {
	z     *zobrist.Zobrist
	table map[ttKey][]int
	nodes int
}

func apply(g *game.State, m game.Move) *game.State {
	next := g.Clone()
	if err := next.ApplyAction(m); err != nil {
		panic(fmt.Sprintf("generated move %v is illegal: %v", m, err))
	}
	return next
}

// scores returns the scores reached after depth more moves of best play.
func (s *searcher) scores(g *game.State, key uint64, depth int) []int {
	p, ok := g.ActivePlayer()
	if depth <= 0 || !ok {
		return g.Scores()
	}
	tk := ttKey{key, depth}
	if cached, ok := s.table[tk]; ok {
		return cached
	}
	s.nodes++
	var best []int
	bestMargin := math.MinInt
	for _, m := range g.LegalMoves() {
		next := apply(g, m)
		sc := s.scores(next, s.z.Update(key, g, next), depth-1)
		if mg := margin(sc, p); mg > bestMargin {
			best, bestMargin = sc, mg
		}
	}
	s.table[tk] = best
	return best
}

func (b *MinimaxBot) TakeAction() game.Move {
	mustBeMyTurn(b.state, b.me, "minimax")
	if !b.state.FinishedDrafting() {
		cells := b.state.DraftableCells().Cells()
		return game.Place(cells[b.rng.IntN(len(cells))])
	}
	return b.bestMove()
}

func (b *MinimaxBot) bestMove() game.Move {
	moves := b.state.LegalMoves()
	margins := make([]int, len(moves))
	nodes := make([]int, len(moves))
	rootKey := b.z.Hash(b.state)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range moves {
		g.Go(func() error {
			s := &searcher{z: b.z, table: map[ttKey][]int{}}
			next := apply(b.state, m)
			sc := s.scores(next, b.z.Update(rootKey, b.state, next), b.depth-1)
			margins[i] = margin(sc, b.me)
			nodes[i] = s.nodes
			return nil
		})
	}
	_ = g.Wait()

	// ties go to a uniformly random move
	best, ties, total := 0, 0, 0
	for i := range moves {
		total += nodes[i]
		switch {
		case margins[i] > margins[best]:
			best, ties = i, 1
		case margins[i] == margins[best]:
			ties++
			if b.rng.IntN(ties) == 0 {
				best = i
			}
		}
	}
	log.Debug().Int("player", b.me).Stringer("move", moves[best]).Int("margin", margins[best]).
		Int("nodes", total).Int("depth", b.depth).Msg("minimax-move")
	return moves[best]
}
