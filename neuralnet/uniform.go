package neuralnet

import (
	"github.com/domino14/htmf/game"
	"github.com/domino14/htmf/mcts"
)

// UniformOracle knows nothing: every move gets the same logit and every
// position is a coin flip. It is a baseline for guided search.
type UniformOracle struct{}

var _ mcts.Oracle = UniformOracle{}

func (UniformOracle) Predict(g *game.State, player int) (*mcts.Prediction, error) {
	return &mcts.Prediction{
		PolicyLogits: make([]float32, g.PolicySize()),
		Value:        0.5,
	}, nil
}
