package bot

import (
	"context"
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/domino14/htmf/game"
	"github.com/domino14/htmf/mcts"
)

// playoutsPerMove scales the default search effort with the branching
// factor.
const playoutsPerMove = 10

// MCTSBot picks moves with a Monte-Carlo search tree that it keeps between
// turns.
type MCTSBot struct {
	me       int
	tree     *mcts.Tree
	rng      *rand.Rand
	ponderer *mcts.Ponderer

	playouts         int
	temperature      float64
	temperatureTurns int
	ctx              context.Context
}

// MCTSOption configures an MCTSBot.
type MCTSOption func(*MCTSBot)

// WithPlayouts fixes the number of playouts run by TakeAction. Zero or less
// means ten per legal move.
func WithPlayouts(n int) MCTSOption {
	return func(b *MCTSBot) { b.playouts = n }
}

// WithRand sets the generator the bot draws from.
func WithRand(rng *rand.Rand) MCTSOption {
	return func(b *MCTSBot) { b.rng = rng }
}

// WithTemperature makes TakeAction sample moves at temperature t for the
// first turns turns of the game.
func WithTemperature(t float64, turns int) MCTSOption {
	return func(b *MCTSBot) {
		b.temperature = t
		b.temperatureTurns = turns
	}
}

// WithContext sets the context pondering runs under. Its logger is used
// for ponder events.
func WithContext(ctx context.Context) MCTSOption {
	return func(b *MCTSBot) { b.ctx = ctx }
}

// New creates a bot that searches with UCB1 and random rollouts.
func New(state *game.State, me int, params mcts.Params, opts ...MCTSOption) *MCTSBot {
	return newMCTSBot(state, me, nil, params, opts)
}

// WithNeuralNet creates a bot whose search is guided by oracle.
func WithNeuralNet(state *game.State, me int, oracle mcts.Oracle, params mcts.Params,
	opts ...MCTSOption) *MCTSBot {
	return newMCTSBot(state, me, oracle, params, opts)
}

func newMCTSBot(state *game.State, me int, oracle mcts.Oracle, params mcts.Params,
	opts []MCTSOption) *MCTSBot {
	b := &MCTSBot{me: me, ctx: context.Background()}
	for _, o := range opts {
		o(b)
	}
	if b.rng == nil {
		b.rng = NewRand()
	}
	b.tree = mcts.NewTree(state, oracle, params)
	return b
}

func (b *MCTSBot) Me() int { return b.me }

// Playout runs one playout from the current position on the calling
// goroutine.
func (b *MCTSBot) Playout() {
	b.tree.Playout(b.rng)
}

func (b *MCTSBot) numPlayouts(s *game.State) int {
	if b.playouts > 0 {
		return b.playouts
	}
	return playoutsPerMove * len(s.LegalMoves())
}

func (b *MCTSBot) search() *game.State {
	b.FinishPondering()
	s := b.tree.State()
	mustBeMyTurn(s, b.me, "mcts")
	n := b.numPlayouts(s)
	for i := 0; i < n; i++ {
		b.tree.Playout(b.rng)
	}
	return s
}

// TakeAction searches and returns the most visited move, or a sampled move
// while the temperature schedule is active.
func (b *MCTSBot) TakeAction() game.Move {
	if b.temperatureTurns > 0 && b.tree.State().Turn < b.temperatureTurns {
		return b.TakeActionWithTemperature(b.temperature)
	}
	s := b.search()
	m, ok := b.tree.BestMove()
	if !ok {
		panic("search produced no moves for a position with a player to move")
	}
	b.logChoice(s, m)
	return m
}

// TakeActionWithTemperature searches and samples a move with probability
// proportional to visits^(1/t).
func (b *MCTSBot) TakeActionWithTemperature(t float64) game.Move {
	s := b.search()
	m, ok := b.tree.SampleMove(t, b.rng)
	if !ok {
		panic("search produced no moves for a position with a player to move")
	}
	b.logChoice(s, m)
	return m
}

func (b *MCTSBot) logChoice(s *game.State, m game.Move) {
	if e := log.Debug(); e.Enabled() {
		stats := b.tree.ChildStats()
		e.Int("player", b.me).Int("turn", s.Turn).Stringer("move", m).
			Uint32("root-visits", b.tree.RootVisits()).Int64("tree-size", b.tree.Size()).
			Float64("top-mean-reward", stats[0].MeanReward()).Msg("mcts-move")
	}
}

// Update moves the root to state, keeping the explored subtree if state
// follows from the current root by one move.
func (b *MCTSBot) Update(state *game.State) {
	b.FinishPondering()
	b.tree.Update(state)
}

// Ponder starts searching the current position in the background. Any
// pondering already in progress is finished first.
func (b *MCTSBot) Ponder() {
	b.FinishPondering()
	if b.tree.State().GameOver() {
		return
	}
	b.ponderer = mcts.StartPonderer(b.ctx, b.tree, childRand(b.rng))
}

// FinishPondering stops background search, if any. Everything it found is
// already in the tree.
func (b *MCTSBot) FinishPondering() {
	if b.ponderer == nil {
		return
	}
	b.ponderer.Finish(b.ctx)
	b.ponderer = nil
}

func (b *MCTSBot) TreeSize() int64 {
	return b.tree.Size()
}

// Tree exposes the search tree for diagnostics.
func (b *MCTSBot) Tree() *mcts.Tree {
	return b.tree
}

func (b *MCTSBot) Close() {
	b.FinishPondering()
}
