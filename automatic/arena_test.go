package automatic

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"

	"github.com/domino14/htmf/config"
	"github.com/domino14/htmf/stats"
)

func testConfig(player1, player2 string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigPlayer1, player1)
	cfg.Set(config.ConfigPlayer2, player2)
	cfg.Set(config.ConfigThreads, 2)
	cfg.Set(config.ConfigMinimaxDepth, 1)
	cfg.Set(config.ConfigPlayoutsPerMove, 20)
	return cfg
}

func TestPlayGameIsDeterministic(t *testing.T) {
	is := is.New(t)
	r, err := NewGameRunner(testConfig(RandomPlayer, MinimaxPlayer))
	is.NoErr(err)
	seed := GenerateSeeds(1)[0]
	a, err := r.PlayGame(context.Background(), 3, seed)
	is.NoErr(err)
	b, err := r.PlayGame(context.Background(), 3, seed)
	is.NoErr(err)
	is.Equal(a.Scores, b.Scores)
	is.Equal(a.Turns, b.Turns)
	is.True(a.GameID != b.GameID)
	is.Equal(a.Seed, seed.String())
}

func TestSeatsRotate(t *testing.T) {
	is := is.New(t)
	r, err := NewGameRunner(testConfig(RandomPlayer, RandomPlayer))
	is.NoErr(err)
	seeds := GenerateSeeds(2)
	even, err := r.PlayGame(context.Background(), 0, seeds[0])
	is.NoErr(err)
	odd, err := r.PlayGame(context.Background(), 1, seeds[1])
	is.NoErr(err)
	is.Equal(even.Seats, []string{"random-1", "random-2"})
	is.Equal(odd.Seats, []string{"random-2", "random-1"})
	is.Equal(odd.Entrants, []int{1, 0})
}

func TestPlayGameFourPlayers(t *testing.T) {
	is := is.New(t)
	cfg := testConfig(MCTSPlayer, RandomPlayer)
	cfg.Set(config.ConfigNumPlayers, 4)
	cfg.Set(config.ConfigPonder, true)
	r, err := NewGameRunner(cfg)
	is.NoErr(err)
	res, err := r.PlayGame(context.Background(), 0, GenerateSeeds(1)[0])
	is.NoErr(err)
	is.Equal(len(res.Scores), 4)
	is.Equal(res.Entrants, []int{0, 1, 0, 1})
	var total float32
	for _, rw := range res.Rewards {
		total += rw
	}
	is.True(total >= 1)
}

func TestBadEntrants(t *testing.T) {
	is := is.New(t)
	_, err := NewGameRunner(testConfig("alphazero", RandomPlayer))
	is.True(err != nil)
	// no model paths configured
	_, err = NewGameRunner(testConfig(NeuralPlayer, RandomPlayer))
	is.True(err != nil)
}

func TestRunArena(t *testing.T) {
	is := is.New(t)
	cfg := testConfig(MinimaxPlayer, RandomPlayer)
	cfg.Set(config.ConfigNumGames, 6)
	logPath := filepath.Join(t.TempDir(), "results.yaml")
	cfg.Set(config.ConfigResultLogPath, logPath)

	summary, err := RunArena(context.Background(), cfg)
	is.NoErr(err)
	is.Equal(summary.Games, 6)
	is.Equal(len(summary.Entrants), 2)
	var wins float64
	for _, e := range summary.Entrants {
		is.Equal(e.Seats, 6)
		is.True(e.RewardCI[0] <= e.MeanReward && e.MeanReward <= e.RewardCI[1])
		wins += e.Wins
	}
	// every game hands out exactly one win
	is.True(stats.FuzzyEqual(wins, 6))

	replayed, err := AnalyzeLogFile(logPath, 95)
	is.NoErr(err)
	is.Equal(replayed.Games, summary.Games)
	assert.Equal(t, []string{"minimax-1", "random-2"},
		[]string{replayed.Entrants[0].Name, replayed.Entrants[1].Name})
	for i := range summary.Entrants {
		is.True(stats.FuzzyEqual(replayed.Entrants[i].Wins, summary.Entrants[i].Wins))
		is.True(stats.FuzzyEqual(replayed.Entrants[i].MeanScore, summary.Entrants[i].MeanScore))
	}
	is.True(summary.String() != "")
}

func TestRunArenaWithSeedFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "seeds.txt")
	seeds := GenerateSeeds(4)
	is.NoErr(SaveSeeds(seeds, path))
	loaded, err := LoadSeeds(path)
	is.NoErr(err)
	is.Equal(loaded, seeds)

	cfg := testConfig(RandomPlayer, RandomPlayer)
	cfg.Set(config.ConfigSeedFile, path)
	cfg.Set(config.ConfigNumGames, 4)
	first, err := RunArena(context.Background(), cfg)
	is.NoErr(err)
	second, err := RunArena(context.Background(), cfg)
	is.NoErr(err)
	// games finish in any order, so compare loosely
	is.True(stats.FuzzyEqual(first.Entrants[0].Wins, second.Entrants[0].Wins))
	is.True(stats.FuzzyEqual(first.Entrants[0].MeanScore, second.Entrants[0].MeanScore))

	cfg.Set(config.ConfigNumGames, 5)
	_, err = RunArena(context.Background(), cfg)
	is.True(err != nil) // not enough seeds
}

func TestRunArenaCancelled(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := RunArena(ctx, testConfig(RandomPlayer, RandomPlayer))
	is.True(errors.Is(err, context.Canceled))
	is.Equal(summary.Games, 0)
}

func TestSummaryDrawsScoreHistograms(t *testing.T) {
	is := is.New(t)
	s := newSummary([]string{"mcts-1", "random-2"}, 95)
	for i, scores := range [][]int{{40, 30}, {52, 30}, {47, 30}, {61, 30}} {
		s.add(&GameResult{
			GameNum:  i,
			Seats:    []string{"mcts-1", "random-2"},
			Entrants: []int{0, 1},
			Scores:   scores,
			Rewards:  []float32{1, 0},
		})
	}
	s.finish()
	out := s.String()
	is.True(strings.Contains(out, "mcts-1 score distribution:"))
	// every random-2 score is the same, so there is nothing to draw
	is.True(!strings.Contains(out, "random-2 score distribution:"))
	is.True(strings.Contains(out, "First seat wins: 4.0"))
}
