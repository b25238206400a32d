// Package automatic plays computer-vs-computer games and collects
// statistics about them.
package automatic

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/domino14/htmf/bot"
	"github.com/domino14/htmf/config"
	"github.com/domino14/htmf/game"
	"github.com/domino14/htmf/mcts"
	"github.com/domino14/htmf/neuralnet"
)

// Entrant kinds.
const (
	MCTSPlayer    = "mcts"
	PUCTPlayer    = "puct"
	NeuralPlayer  = "nn"
	MinimaxPlayer = "minimax"
	RandomPlayer  = "random"
)

var playerKinds = []string{MCTSPlayer, PUCTPlayer, NeuralPlayer, MinimaxPlayer, RandomPlayer}

// NumEntrants is the number of competing bot configurations in an arena.
const NumEntrants = 2

// GameResult is the record of one arena game.
type GameResult struct {
	GameID  string `yaml:"game_id"`
	GameNum int    `yaml:"game_num"`
	Seed    string `yaml:"seed"`
	// Seats names the entrant in each seat; Entrants holds the same as
	// entrant indices.
	Seats      []string  `yaml:"seats"`
	Entrants   []int     `yaml:"entrants"`
	Scores     []int     `yaml:"scores"`
	Rewards    []float32 `yaml:"rewards"`
	Turns      int       `yaml:"turns"`
	DurationMS int64     `yaml:"duration_ms"`
}

// GameRunner builds bots from configuration and plays games between them.
type GameRunner struct {
	cfg      *config.Config
	kinds    [NumEntrants]string
	names    [NumEntrants]string
	nplayers int
	params   mcts.Params
	oracle   mcts.Oracle
}

// NewGameRunner validates the entrants in cfg and loads any model they need.
func NewGameRunner(cfg *config.Config) (*GameRunner, error) {
	r := &GameRunner{
		cfg:      cfg,
		kinds:    [NumEntrants]string{cfg.GetString(config.ConfigPlayer1), cfg.GetString(config.ConfigPlayer2)},
		nplayers: cfg.GetInt(config.ConfigNumPlayers),
	}
	for i, k := range r.kinds {
		if !slices.Contains(playerKinds, k) {
			return nil, fmt.Errorf("unknown player kind %q; expected one of %v", k, playerKinds)
		}
		// two entrants of the same kind still need different names
		r.names[i] = fmt.Sprintf("%s-%d", k, i+1)
		if k == NeuralPlayer && r.oracle == nil {
			oracle, err := neuralnet.LoadONNXOracle(cfg)
			if err != nil {
				return nil, err
			}
			r.oracle = oracle
		}
	}
	// every concurrent game holds up to one tree per seat
	trees := max(1, cfg.GetInt(config.ConfigThreads)*r.nplayers)
	r.params = mcts.Params{
		CPuct:    cfg.GetFloat64(config.ConfigCPuct),
		MaxNodes: mcts.DefaultMaxNodes(cfg.GetFloat64(config.ConfigMaxMemoryFraction) / float64(trees)),
	}
	return r, nil
}

// Names returns the entrant names in entrant order.
func (r *GameRunner) Names() []string {
	return r.names[:]
}

func (r *GameRunner) newPlayer(ctx context.Context, kind string, g *game.State, seat int,
	rng *rand.Rand) bot.Player {

	opts := []bot.MCTSOption{
		bot.WithRand(rng),
		bot.WithContext(ctx),
		bot.WithPlayouts(r.cfg.GetInt(config.ConfigPlayoutsPerMove)),
		bot.WithTemperature(r.cfg.GetFloat64(config.ConfigTemperature),
			r.cfg.GetInt(config.ConfigTemperatureTurns)),
	}
	switch kind {
	case MCTSPlayer:
		return bot.New(g, seat, r.params, opts...)
	case PUCTPlayer:
		return bot.WithNeuralNet(g, seat, neuralnet.UniformOracle{}, r.params, opts...)
	case NeuralPlayer:
		return bot.WithNeuralNet(g, seat, r.oracle, r.params, opts...)
	case MinimaxPlayer:
		return bot.NewMinimax(g, seat, r.cfg.GetInt(config.ConfigMinimaxDepth), rng)
	default:
		return bot.NewRandom(g, seat, rng)
	}
}

// seatEntrant rotates entrants through the seats so that neither always
// moves first.
func seatEntrant(gameNum, seat int) int {
	return (seat + gameNum) % NumEntrants
}

// PlayGame plays one full game. The board and every bot generator derive
// from seed.
func (r *GameRunner) PlayGame(ctx context.Context, gameNum int, seed Seed) (*GameResult, error) {
	return r.WatchGame(ctx, gameNum, seed, nil)
}

// WatchGame is PlayGame with a callback run after every move.
func (r *GameRunner) WatchGame(ctx context.Context, gameNum int, seed Seed,
	onMove func(g *game.State, m game.Move)) (*GameResult, error) {

	start := time.Now()
	rng := rand.New(rand.NewChaCha8(seed))
	g, err := game.New(r.nplayers, rng)
	if err != nil {
		return nil, err
	}
	res := &GameResult{
		GameID:   uuid.NewString(),
		GameNum:  gameNum,
		Seed:     seed.String(),
		Seats:    make([]string, r.nplayers),
		Entrants: make([]int, r.nplayers),
	}
	logger := zerolog.Ctx(ctx).With().Str("game-id", res.GameID).Logger()

	players := make([]bot.Player, r.nplayers)
	for s := range players {
		e := seatEntrant(gameNum, s)
		res.Seats[s] = r.names[e]
		res.Entrants[s] = e
		players[s] = r.newPlayer(logger.WithContext(ctx), r.kinds[e], g, s,
			rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	}
	defer func() {
		for _, p := range players {
			p.Close()
		}
	}()

	ponder := r.cfg.GetBool(config.ConfigPonder)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, ok := g.ActivePlayer()
		if !ok {
			break
		}
		m := players[p].TakeAction()
		if err := g.ApplyAction(m); err != nil {
			return nil, fmt.Errorf("%s in seat %d: %w", res.Seats[p], p, err)
		}
		if onMove != nil {
			onMove(g, m)
		}
		for _, pl := range players {
			pl.Update(g)
		}
		if !ponder {
			continue
		}
		next, _ := g.ActivePlayer()
		for s, pl := range players {
			if pd, ok := pl.(bot.Ponderer); ok && s != next {
				pd.Ponder()
			}
		}
	}

	res.Scores = g.Scores()
	res.Rewards = mcts.TerminalRewards(res.Scores)
	res.Turns = g.Turn
	res.DurationMS = time.Since(start).Milliseconds()
	logger.Debug().Ints("scores", res.Scores).Strs("seats", res.Seats).
		Int64("duration-ms", res.DurationMS).Msg("game-over")
	return res, nil
}
