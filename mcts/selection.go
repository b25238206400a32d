package mcts

import (
	"math"
	"math/rand/v2"
)

// ucb1 uses a Laplace-smoothed mean as the exploitation term so that a
// child with a single lucky win does not look perfect.
func ucb1(parentVisits, visits uint32, rewards float32) float64 {
	if visits == 0 {
		return math.Inf(1)
	}
	n := float64(visits)
	explore := math.Sqrt(2 * math.Log(float64(parentVisits)) / n)
	exploit := (float64(rewards) + 1) / (n + 2)
	return explore + exploit
}

func puct(cPuct float64, parentVisits, visits uint32, rewards, prior float32) float64 {
	q := 0.5
	if visits > 0 {
		q = float64(rewards) / float64(visits)
	}
	u := cPuct * float64(prior) * math.Sqrt(float64(parentVisits)) / (1 + float64(visits))
	return q + u
}

// selectByScore returns the index of the best scoring edge. Ties are broken
// uniformly at random in one pass: the k-th equally good candidate replaces
// the current pick with probability 1/k.
func selectByScore(edges []Edge, rng *rand.Rand, score func(e Edge) float64) int {
	best := -1
	bestScore := math.Inf(-1)
	ties := 0
	for i, e := range edges {
		s := score(e)
		switch {
		case best == -1 || s > bestScore:
			best, bestScore, ties = i, s, 1
		case s == bestScore:
			ties++
			if rng.IntN(ties) == 0 {
				best = i
			}
		}
	}
	return best
}

func (t *Tree) selectChild(parent *Node, edges []Edge, rng *rand.Rand) int {
	parentVisits := parent.Visits()
	if t.oracle == nil {
		return selectByScore(edges, rng, func(e Edge) float64 {
			v, r := e.Node.Stats()
			return ucb1(parentVisits, v, r)
		})
	}
	return selectByScore(edges, rng, func(e Edge) float64 {
		v, r := e.Node.Stats()
		return puct(t.params.CPuct, parentVisits, v, r, e.Node.prior)
	})
}
