package mcts

import (
	"context"
	"math/rand/v2"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Ponderer grows a tree in the background until told to stop. It writes
// straight into the tree it was given, so finishing it never has anything
// to merge.
type Ponderer struct {
	tree     *Tree
	stop     atomic.Bool
	cancel   context.CancelFunc
	g        errgroup.Group
	playouts atomic.Uint64
	finished bool
}

// StartPonderer launches the worker. rng must not be shared with any other
// goroutine.
func StartPonderer(ctx context.Context, tree *Tree, rng *rand.Rand) *Ponderer {
	ctx, cancel := context.WithCancel(ctx)
	p := &Ponderer{tree: tree, cancel: cancel}
	logger := zerolog.Ctx(ctx)
	p.g.Go(func() error {
		logger.Debug().Int64("tree-size", tree.Size()).Msg("ponder-started")
		if tree.state.GameOver() {
			return nil
		}
		for !p.stop.Load() {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			tree.Playout(rng)
			p.playouts.Add(1)
		}
		return nil
	})
	return p
}

// Playouts is the number of playouts completed so far.
func (p *Ponderer) Playouts() uint64 {
	return p.playouts.Load()
}

// Finish asks the worker to stop and waits for it. It returns the number of
// playouts the worker ran. Calling it more than once is harmless.
func (p *Ponderer) Finish(ctx context.Context) uint64 {
	if p.finished {
		return p.playouts.Load()
	}
	p.stop.Store(true)
	p.cancel()
	_ = p.g.Wait()
	p.finished = true
	n := p.playouts.Load()
	zerolog.Ctx(ctx).Debug().Uint64("playouts", n).Int64("tree-size", p.tree.Size()).
		Msg("ponder-finished")
	return n
}
