package mcts

import "github.com/samber/lo"

// TerminalRewards scores a finished game for every player: 1 for the unique
// top score, 0.5 for a share of the top score and 0 otherwise.
func TerminalRewards(scores []int) []float32 {
	best := lo.Max(scores)
	nbest := lo.Count(scores, best)
	return lo.Map(scores, func(s int, _ int) float32 {
		switch {
		case s < best:
			return 0
		case nbest > 1:
			return 0.5
		default:
			return 1
		}
	})
}
