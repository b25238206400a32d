package mcts

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/htmf/board"
	"github.com/domino14/htmf/cellset"
	"github.com/domino14/htmf/game"
)

var testParams = Params{CPuct: 1.5, MaxNodes: 1 << 20}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0xfeed))
}

func newGame(seed uint64) *game.State {
	return game.NewTwoPlayer(newRNG(seed))
}

// singleMoveGame is a position whose only legal move is the last drafting
// placement.
func singleMoveGame(t *testing.T) *game.State {
	t.Helper()
	var layout [board.NumCells]int
	for i := range layout {
		switch {
		case i < 8:
			layout[i] = 1
		case i < 28:
			layout[i] = 2
		default:
			layout[i] = 3
		}
	}
	b, err := board.NewFromFish(layout)
	if err != nil {
		t.Fatal(err)
	}
	g, err := game.NewFromBoard(2, b)
	if err != nil {
		t.Fatal(err)
	}
	for c := uint8(0); c < 7; c++ {
		if err := g.PlacePenguin(c); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(g.LegalMoves()); n != 1 {
		t.Fatalf("expected one legal move, got %d", n)
	}
	return g
}

type fakeOracle struct {
	calls atomic.Int64
	err   error
}

func (f *fakeOracle) Predict(g *game.State, player int) (*Prediction, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	logits := make([]float32, g.PolicySize())
	for i := range logits {
		logits[i] = float32(i) / 10
	}
	return &Prediction{PolicyLogits: logits, Value: 0.75}, nil
}

func TestTerminalRewards(t *testing.T) {
	is := is.New(t)
	is.Equal(TerminalRewards([]int{5, 5, 3}), []float32{0.5, 0.5, 0})
	is.Equal(TerminalRewards([]int{7, 3}), []float32{1, 0})
	is.Equal(TerminalRewards([]int{2, 9, 4, 1}), []float32{0, 1, 0, 0})
}

func TestNodeStatsConcurrentUpdates(t *testing.T) {
	is := is.New(t)
	n := newNode(0)
	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 1000; i++ {
				n.addVisit()
				n.addReward(0.5)
			}
			return nil
		})
	}
	is.NoErr(g.Wait())
	v, r := n.Stats()
	is.Equal(v, uint32(8000))
	is.Equal(r, float32(4000))
}

func TestSingleMoveGetsEveryVisit(t *testing.T) {
	is := is.New(t)
	g := singleMoveGame(t)
	tree := NewTree(g, nil, testParams)
	rng := newRNG(1)
	const n = 200
	for i := 0; i < n; i++ {
		tree.Playout(rng)
	}
	is.Equal(tree.RootVisits(), uint32(n))
	children := tree.Root().Children()
	is.Equal(len(children), 1)
	is.Equal(children[0].Node.Visits(), uint32(n))
	is.Equal(tree.Size(), countNodes(tree.Root()))
	best, ok := tree.BestMove()
	is.True(ok)
	is.Equal(best, game.Place(7))
}

func TestChildVisitsSumToRootVisits(t *testing.T) {
	is := is.New(t)
	tree := NewTree(newGame(2), nil, testParams)
	rng := newRNG(2)
	for i := 0; i < 500; i++ {
		tree.Playout(rng)
	}
	var sum uint32
	for _, e := range tree.Root().Children() {
		v, r := e.Node.Stats()
		sum += v
		is.True(r <= float32(v))
		is.True(r >= 0)
	}
	is.Equal(sum, tree.RootVisits())
}

func TestConcurrentPlayouts(t *testing.T) {
	is := is.New(t)
	tree := NewTree(newGame(3), nil, testParams)
	var g errgroup.Group
	for w := 0; w < 4; w++ {
		rng := newRNG(uint64(100 + w))
		g.Go(func() error {
			for i := 0; i < 300; i++ {
				tree.Playout(rng)
			}
			return nil
		})
	}
	is.NoErr(g.Wait())
	is.Equal(tree.RootVisits(), uint32(1200))
	is.Equal(tree.Size(), countNodes(tree.Root()))
}

func TestUpdateReusesExploredChild(t *testing.T) {
	is := is.New(t)
	g := newGame(4)
	tree := NewTree(g, nil, testParams)
	rng := newRNG(4)
	for i := 0; i < 2000; i++ {
		tree.Playout(rng)
	}
	best, ok := tree.BestMove()
	is.True(ok)
	var kept *Node
	for _, e := range tree.Root().Children() {
		if e.Move == best {
			kept = e.Node
		}
	}
	is.True(kept != nil)
	keptVisits := kept.Visits()
	keptSize := countNodes(kept)

	next := g.Clone()
	is.NoErr(next.ApplyAction(best))
	tree.Update(next)
	is.True(tree.Root() == kept)
	is.Equal(tree.RootVisits(), keptVisits)
	is.Equal(tree.Size(), keptSize)
	is.Equal(*tree.State(), *next)

	// updating to the same position again changes nothing
	tree.Update(next)
	is.True(tree.Root() == kept)
}

func TestUpdateUnreachableResets(t *testing.T) {
	is := is.New(t)
	tree := NewTree(newGame(5), nil, testParams)
	rng := newRNG(5)
	for i := 0; i < 300; i++ {
		tree.Playout(rng)
	}
	is.True(tree.Size() > 1)
	other := newGame(6)
	tree.Update(other)
	is.Equal(tree.Size(), int64(1))
	is.Equal(tree.RootVisits(), uint32(0))
	is.Equal(*tree.State(), *other)
}

func TestSampleMove(t *testing.T) {
	is := is.New(t)
	tree := NewTree(newGame(7), nil, testParams)
	rng := newRNG(7)
	tree.Playout(rng)
	edges := tree.Root().Children()
	is.True(len(edges) > 2)
	for i, e := range edges {
		e.Node.update(uint32(i*10), 0)
	}
	best, ok := tree.BestMove()
	is.True(ok)
	is.Equal(best, edges[len(edges)-1].Move)

	m, ok := tree.SampleMove(0, rng)
	is.True(ok)
	is.Equal(m, best)

	hits := 0
	for i := 0; i < 1000; i++ {
		m, _ := tree.SampleMove(0.01, rng)
		if m == best {
			hits++
		}
	}
	is.True(hits > 900)

	// a hot temperature spreads the picks out
	seen := map[game.Move]bool{}
	for i := 0; i < 3000; i++ {
		m, _ := tree.SampleMove(100, rng)
		seen[m] = true
	}
	is.True(len(seen) >= 20)
}

func TestSampleMoveWithoutVisits(t *testing.T) {
	is := is.New(t)
	tree := NewTree(newGame(8), nil, testParams)
	_, ok := tree.SampleMove(1, newRNG(8))
	is.True(!ok) // nothing expanded yet

	edges, _ := tree.expand(tree.Root(), &tree.state)
	is.True(len(edges) > 0)
	m, ok := tree.SampleMove(1, newRNG(8))
	is.True(ok)
	is.True(tree.State().IsLegal(m))
}

func TestPUCTUsesOraclePriorsAndValue(t *testing.T) {
	is := is.New(t)
	oracle := &fakeOracle{}
	g := newGame(9)
	tree := NewTree(g, oracle, testParams)
	rng := newRNG(9)

	tree.Playout(rng)
	edges := tree.Root().Children()
	is.Equal(len(edges), board.NumOneFish)
	var sum float64
	for i, e := range edges {
		sum += float64(e.Node.Prior())
		if i > 0 {
			// logits grow with the cell index
			is.True(e.Node.Prior() > edges[i-1].Node.Prior())
		}
	}
	is.True(math.Abs(sum-1) < 1e-5)
	// the leaf was valued by the oracle, not a rollout
	is.Equal(tree.RootVisits(), uint32(1))

	tree.Playout(rng)
	top := tree.ChildStats()[0]
	is.Equal(top.Move, edges[len(edges)-1].Move)
	is.Equal(top.Visits, uint32(1))
	// the oracle gave the opponent 0.75 at the leaf, so the mover gets 0.25
	is.Equal(top.Rewards, float32(0.25))
	is.Equal(oracle.calls.Load(), int64(2))
}

func TestOracleFailureFallsBackToRollouts(t *testing.T) {
	is := is.New(t)
	oracle := &fakeOracle{err: errors.New("model unavailable")}
	tree := NewTree(newGame(10), oracle, testParams)
	rng := newRNG(10)
	for i := 0; i < 100; i++ {
		tree.Playout(rng)
	}
	is.Equal(tree.RootVisits(), uint32(100))
	for _, e := range tree.Root().Children() {
		is.Equal(e.Node.Prior(), float32(1)/float32(board.NumOneFish))
	}
	var sum uint32
	for _, e := range tree.Root().Children() {
		sum += e.Node.Visits()
	}
	is.Equal(sum, uint32(100))
}

func TestNodeBudget(t *testing.T) {
	is := is.New(t)
	params := Params{CPuct: 1.5, MaxNodes: 50}
	tree := NewTree(newGame(11), nil, params)
	rng := newRNG(11)
	for i := 0; i < 500; i++ {
		tree.Playout(rng)
	}
	is.Equal(tree.RootVisits(), uint32(500))
	// one expansion may overshoot by at most a full child list
	is.True(tree.Size() <= 50+board.NumOneFish)
	is.Equal(tree.Size(), countNodes(tree.Root()))
}

func TestPlayoutOnFinishedGame(t *testing.T) {
	is := is.New(t)
	g := newGame(12)
	rng := newRNG(12)
	rollout(g, rng)
	is.True(g.GameOver())
	tree := NewTree(g, nil, testParams)
	tree.Playout(rng)
	is.Equal(tree.RootVisits(), uint32(1))
	is.Equal(tree.Size(), int64(1))
	_, ok := tree.BestMove()
	is.True(!ok)
}

// A stranded penguin that was never reaped leaves a player to move with
// nothing to play. Search scores such a position as it stands.
func TestPlayoutOnStuckPosition(t *testing.T) {
	is := is.New(t)
	g := newGame(13)
	g.Turn = g.DraftingTurns()
	g.Board.Claimed[0] = cellset.FromCells(1, 7, 8)
	g.Board.Claimed[1] = cellset.FromCells(0)
	g.Board.Penguins[1] = cellset.FromCells(0)
	p, ok := g.ActivePlayer()
	is.True(ok)
	is.Equal(p, 1)
	is.Equal(len(g.LegalMoves()), 0)

	tree := NewTree(g, nil, testParams)
	rng := newRNG(13)
	for i := 0; i < 3; i++ {
		tree.Playout(rng)
	}
	is.Equal(tree.RootVisits(), uint32(3))
	is.Equal(tree.Size(), int64(1))
	_, ok = tree.BestMove()
	is.True(!ok)
	is.Equal(len(rollout(g.Clone(), rng)), 2)
}

func TestPondererGrowsTreeAndStops(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	tree := NewTree(newGame(13), nil, testParams)
	p := StartPonderer(ctx, tree, newRNG(13))
	deadline := time.Now().Add(20 * time.Second)
	for p.Playouts() < 200 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	n := p.Finish(ctx)
	is.True(n >= 200)
	is.Equal(uint64(tree.RootVisits()), n)
	time.Sleep(5 * time.Millisecond)
	is.Equal(p.Playouts(), n)
	is.Equal(p.Finish(ctx), n)
}

func TestPondererStopsOnCancel(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	tree := NewTree(newGame(14), nil, testParams)
	p := StartPonderer(ctx, tree, newRNG(14))
	cancel()
	n := p.Finish(context.Background())
	is.Equal(uint64(tree.RootVisits()), n)
}
