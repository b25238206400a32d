// Package mcts implements a Monte-Carlo search tree over game states. The
// tree can be searched from several goroutines at once: node statistics are
// packed atomic words and child lists are published exactly once.
//
// Without an Oracle, selection uses UCB1 and leaves are valued by random
// rollouts. With an Oracle, selection uses PUCT and leaves are valued by the
// oracle's prediction.
package mcts

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/htmf/game"
)

// oracleSampler keeps a persistently failing oracle from flooding the log.
var oracleSampler = &zerolog.BasicSampler{N: 1000}

// Tree is a search tree rooted at one game position.
//
// Playout may be called concurrently, each caller with its own rng. Update
// and the move pickers must not run concurrently with Playout.
type Tree struct {
	params Params
	oracle Oracle

	state game.State
	root  *Node
	size  atomic.Int64
}

// NewTree creates a tree with a single root node over state. oracle may be
// nil.
func NewTree(state *game.State, oracle Oracle, params Params) *Tree {
	t := &Tree{params: params, oracle: oracle}
	t.reset(state)
	return t
}

func (t *Tree) reset(state *game.State) {
	t.state = *state
	t.root = newNode(0)
	t.size.Store(1)
}

// State returns a copy of the root position.
func (t *Tree) State() *game.State {
	return t.state.Clone()
}

func (t *Tree) Root() *Node {
	return t.root
}

// Size is the number of nodes in the tree.
func (t *Tree) Size() int64 {
	return t.size.Load()
}

func (t *Tree) RootVisits() uint32 {
	return t.root.Visits()
}

// step records a node on the playout path and the player who moved into it.
type step struct {
	node  *Node
	mover int
}

func mustApply(g *game.State, m game.Move) int {
	p, ok := g.ActivePlayer()
	if !ok {
		panic(fmt.Sprintf("tree edge %v leaves a finished game", m))
	}
	if err := g.ApplyAction(m); err != nil {
		panic(fmt.Sprintf("tree edge %v is illegal: %v", m, err))
	}
	return p
}

// Playout runs one select, expand, evaluate and backpropagate pass.
func (t *Tree) Playout(rng *rand.Rand) {
	g := t.state
	node := t.root
	node.addVisit()
	path := make([]step, 0, 32)

	var rewards []float32
	for rewards == nil {
		if g.GameOver() {
			rewards = TerminalRewards(g.Scores())
			break
		}
		edges := node.Children()
		if edges == nil {
			edges, rewards = t.expand(node, &g)
			if rewards != nil {
				break
			}
			if edges == nil {
				// out of node budget
				rewards = rollout(&g, rng)
				break
			}
			i := t.selectChild(node, edges, rng)
			mover := mustApply(&g, edges[i].Move)
			edges[i].Node.addVisit()
			path = append(path, step{edges[i].Node, mover})
			rewards = rollout(&g, rng)
			break
		}
		i := t.selectChild(node, edges, rng)
		mover := mustApply(&g, edges[i].Move)
		node = edges[i].Node
		node.addVisit()
		path = append(path, step{node, mover})
	}

	for _, s := range path {
		s.node.addReward(rewards[s.mover])
	}
}

// expand materializes the children of a leaf. Under PUCT it also returns the
// oracle's valuation of the leaf, one reward per player. It returns nil
// edges when the node budget is spent or there is no move to expand.
func (t *Tree) expand(node *Node, g *game.State) ([]Edge, []float32) {
	if t.size.Load() >= t.params.MaxNodes {
		return nil, nil
	}
	moves := g.LegalMoves()
	if len(moves) == 0 {
		return nil, nil
	}
	priors, rewards := t.evaluate(g, moves)
	edges := make([]Edge, len(moves))
	for i, m := range moves {
		edges[i] = Edge{Move: m, Node: newNode(priors[i])}
	}
	edges, won := node.publishChildren(edges)
	if won {
		t.size.Add(int64(len(edges)))
	}
	return edges, rewards
}

// evaluate asks the oracle about a leaf. Without an oracle, or when the
// oracle fails, priors are uniform and rewards are nil so that the caller
// rolls out instead.
func (t *Tree) evaluate(g *game.State, moves []game.Move) ([]float32, []float32) {
	if t.oracle == nil {
		return uniformPriors(len(moves)), nil
	}
	player, _ := g.ActivePlayer()
	pred, err := t.oracle.Predict(g, player)
	var priors []float32
	if err == nil {
		priors, err = movePriors(g, moves, pred)
	}
	if err != nil {
		sampled := log.Logger.Sample(oracleSampler)
		sampled.Warn().Err(err).Int("turn", g.Turn).
			Msg("oracle-failed-using-uniform-priors")
		return uniformPriors(len(moves)), nil
	}
	rewards := make([]float32, g.NPlayers)
	for p := range rewards {
		if p == player {
			rewards[p] = pred.Value
		} else {
			rewards[p] = 1 - pred.Value
		}
	}
	return priors, rewards
}

// rollout finishes the game with uniformly random legal moves.
func rollout(g *game.State, rng *rand.Rand) []float32 {
	moves := make([]game.Move, 0, 64)
	for !g.GameOver() {
		moves = g.AppendLegalMoves(moves[:0])
		if len(moves) == 0 {
			break
		}
		mustApply(g, moves[rng.IntN(len(moves))])
	}
	return TerminalRewards(g.Scores())
}

// Update re-roots the tree at state. If state is one move away from the
// current root and that move has been explored, its subtree is kept and
// every sibling is discarded. Otherwise the tree starts over.
func (t *Tree) Update(state *game.State) {
	if *state == t.state {
		return
	}
	edges := t.root.Children()
	for _, e := range edges {
		g := t.state
		if err := g.ApplyAction(e.Move); err != nil || g != *state {
			continue
		}
		discarded := int64(1)
		for _, other := range edges {
			if other.Node != e.Node {
				discarded += countNodes(other.Node)
			}
		}
		t.root = e.Node
		t.state = g
		t.size.Add(-discarded)
		log.Debug().Stringer("move", e.Move).Uint32("kept-visits", e.Node.Visits()).
			Int64("discarded", discarded).Msg("tree-reused")
		return
	}
	log.Debug().Int("turn", state.Turn).Msg("tree-reset")
	t.reset(state)
}

// BestMove returns the most visited root move.
func (t *Tree) BestMove() (game.Move, bool) {
	edges := t.root.Children()
	if len(edges) == 0 {
		return game.Move{}, false
	}
	best := 0
	for i, e := range edges {
		if e.Node.Visits() > edges[best].Node.Visits() {
			best = i
		}
	}
	return edges[best].Move, true
}

// SampleMove picks a root move with probability proportional to
// visits^(1/temperature). A temperature of zero or less means BestMove. If no
// child has been visited the pick is uniform.
func (t *Tree) SampleMove(temperature float64, rng *rand.Rand) (game.Move, bool) {
	edges := t.root.Children()
	if len(edges) == 0 {
		return game.Move{}, false
	}
	if temperature <= 0 {
		return t.BestMove()
	}
	var maxVisits uint32
	for _, e := range edges {
		maxVisits = max(maxVisits, e.Node.Visits())
	}
	if maxVisits == 0 {
		return edges[rng.IntN(len(edges))].Move, true
	}
	// (v/max)^(1/T) keeps the weights in [0, 1] for any temperature.
	weights := make([]float64, len(edges))
	var sum float64
	logMax := math.Log(float64(maxVisits))
	for i, e := range edges {
		if v := e.Node.Visits(); v > 0 {
			weights[i] = math.Exp((math.Log(float64(v)) - logMax) / temperature)
			sum += weights[i]
		}
	}
	if sum == 0 || math.IsNaN(sum) {
		return edges[rng.IntN(len(edges))].Move, true
	}
	r := rng.Float64() * sum
	for i, w := range weights {
		r -= w
		if r < 0 {
			return edges[i].Move, true
		}
	}
	// rounding left r at or just above zero
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return edges[i].Move, true
		}
	}
	return edges[len(edges)-1].Move, true
}

// ChildStat summarizes one root move.
type ChildStat struct {
	Move    game.Move
	Visits  uint32
	Rewards float32
	Prior   float32
}

// MeanReward is the average reward of the move for the player making it.
func (c ChildStat) MeanReward() float64 {
	if c.Visits == 0 {
		return 0
	}
	return float64(c.Rewards) / float64(c.Visits)
}

// ChildStats lists the root moves, most visited first.
func (t *Tree) ChildStats() []ChildStat {
	edges := t.root.Children()
	out := make([]ChildStat, len(edges))
	for i, e := range edges {
		v, r := e.Node.Stats()
		out[i] = ChildStat{Move: e.Move, Visits: v, Rewards: r, Prior: e.Node.prior}
	}
	slices.SortStableFunc(out, func(a, b ChildStat) int {
		return int(b.Visits) - int(a.Visits)
	})
	return out
}
