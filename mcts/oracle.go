package mcts

import (
	"errors"
	"fmt"
	"math"

	"github.com/domino14/htmf/game"
)

// Prediction is a policy/value estimate for one position.
type Prediction struct {
	// PolicyLogits has one entry per policy slot of the position's phase,
	// indexed by game.State.PolicyIndex.
	PolicyLogits []float32
	// Value is the win probability for the player asked about, in [0, 1].
	Value float32
}

// Oracle supplies priors and leaf values for PUCT search. Implementations
// must be safe for concurrent use; a pondering tree calls Predict from a
// background goroutine.
type Oracle interface {
	Predict(g *game.State, player int) (*Prediction, error)
}

var errShortPolicy = errors.New("policy logits do not cover every legal move")

// movePriors softmaxes the logits of the legal moves.
func movePriors(g *game.State, moves []game.Move, pred *Prediction) ([]float32, error) {
	if pred == nil {
		return nil, errors.New("nil prediction")
	}
	if v := pred.Value; math.IsNaN(float64(v)) || v < 0 || v > 1 {
		return nil, fmt.Errorf("value %v outside [0, 1]", v)
	}
	logits := make([]float64, len(moves))
	maxLogit := math.Inf(-1)
	for i, m := range moves {
		idx, ok := g.PolicyIndex(m)
		if !ok || idx >= len(pred.PolicyLogits) {
			return nil, fmt.Errorf("%w: %v", errShortPolicy, m)
		}
		logits[i] = float64(pred.PolicyLogits[idx])
		maxLogit = math.Max(maxLogit, logits[i])
	}
	priors := make([]float32, len(moves))
	var sum float64
	for i, l := range logits {
		logits[i] = math.Exp(l - maxLogit)
		sum += logits[i]
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, errors.New("logits do not normalize")
	}
	for i := range logits {
		priors[i] = float32(logits[i] / sum)
	}
	return priors, nil
}

func uniformPriors(n int) []float32 {
	priors := make([]float32, n)
	for i := range priors {
		priors[i] = 1 / float32(n)
	}
	return priors
}
