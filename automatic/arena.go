package automatic

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/domino14/htmf/config"
	"github.com/domino14/htmf/stats"
)

var (
	ArenaGamesPlayed = expvar.NewInt("arenaGamesPlayed")
	ArenaIsPlaying   = expvar.NewInt("arenaIsPlaying")

	running atomic.Bool
)

// EntrantSummary aggregates one entrant's results over every seat it sat in.
type EntrantSummary struct {
	Name  string `yaml:"name"`
	Seats int    `yaml:"seats"`
	// Wins counts a shared first place as half a win.
	Wins        float64    `yaml:"wins"`
	MeanReward  float64    `yaml:"mean_reward"`
	RewardCI    [2]float64 `yaml:"reward_ci"`
	MeanScore   float64    `yaml:"mean_score"`
	ScoreStdev  float64    `yaml:"score_stdev"`
	rewardStats stats.Statistic
	scoreStats  stats.Statistic
	scores      []float64
}

const (
	histogramBins  = 10
	histogramWidth = 40
)

// writeScoreHistogram draws the distribution of scores. Fewer than two
// distinct values have no useful buckets and draw nothing.
func writeScoreHistogram(w io.Writer, name string, scores []float64) error {
	if len(scores) < 2 || slices.Min(scores) == slices.Max(scores) {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%v score distribution:\n", name); err != nil {
		return err
	}
	return histogram.Fprint(w, histogram.Hist(histogramBins, scores), histogram.Linear(histogramWidth))
}

// Summary is the outcome of an arena.
type Summary struct {
	Games      int              `yaml:"games"`
	Confidence float64          `yaml:"confidence"`
	Entrants   []EntrantSummary `yaml:"entrants"`
	// FirstSeatWins is the number of games won from seat 0, ties halved.
	FirstSeatWins float64 `yaml:"first_seat_wins"`
}

func newSummary(names []string, confidence float64) *Summary {
	s := &Summary{Confidence: confidence, Entrants: make([]EntrantSummary, len(names))}
	for i, n := range names {
		s.Entrants[i].Name = n
	}
	return s
}

func (s *Summary) add(r *GameResult) {
	s.Games++
	s.FirstSeatWins += float64(r.Rewards[0])
	for seat, e := range r.Entrants {
		es := &s.Entrants[e]
		es.Seats++
		es.Wins += float64(r.Rewards[seat])
		es.rewardStats.Push(float64(r.Rewards[seat]))
		es.scoreStats.Push(float64(r.Scores[seat]))
		es.scores = append(es.scores, float64(r.Scores[seat]))
	}
}

func (s *Summary) finish() {
	for i := range s.Entrants {
		es := &s.Entrants[i]
		es.MeanReward = es.rewardStats.Mean()
		lo, hi := es.rewardStats.ConfidenceInterval(s.Confidence)
		es.RewardCI = [2]float64{lo, hi}
		es.MeanScore = es.scoreStats.Mean()
		es.ScoreStdev = es.scoreStats.Stdev()
	}
}

func (s *Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Games played: %d\n", s.Games)
	for _, e := range s.Entrants {
		pct := 0.0
		if e.Seats > 0 {
			pct = 100 * e.Wins / float64(e.Seats)
		}
		fmt.Fprintf(&sb, "%v wins: %.1f of %d seats (%.3f%%)\n", e.Name, e.Wins, e.Seats, pct)
		fmt.Fprintf(&sb, "%v mean reward: %.4f (%.0f%% CI %.4f to %.4f)\n",
			e.Name, e.MeanReward, s.Confidence, e.RewardCI[0], e.RewardCI[1])
		fmt.Fprintf(&sb, "%v mean score: %.3f  stdev: %.3f\n", e.Name, e.MeanScore, e.ScoreStdev)
		if err := writeScoreHistogram(&sb, e.Name, e.scores); err != nil {
			fmt.Fprintf(&sb, "%v score distribution unavailable: %v\n", e.Name, err)
		}
	}
	if s.Games > 0 {
		fmt.Fprintf(&sb, "First seat wins: %.1f (%.3f%%)\n",
			s.FirstSeatWins, 100*s.FirstSeatWins/float64(s.Games))
	}
	return sb.String()
}

func arenaSeeds(cfg *config.Config, n int) ([]Seed, error) {
	path := cfg.GetString(config.ConfigSeedFile)
	if path == "" {
		return GenerateSeeds(n), nil
	}
	seeds, err := LoadSeeds(path)
	if err != nil {
		return nil, err
	}
	if len(seeds) < n {
		return nil, fmt.Errorf("seed file %s has %d seeds, need %d", path, len(seeds), n)
	}
	return seeds[:n], nil
}

// RunArena plays the configured number of games, several at a time, and
// summarizes them. Each game result is appended to the YAML result log if
// one is configured. If ctx is cancelled the summary covers the games that
// finished, and the context's error is returned with it.
func RunArena(ctx context.Context, cfg *config.Config) (*Summary, error) {
	if !running.CompareAndSwap(false, true) {
		return nil, errors.New("an arena is already running, please wait till it completes")
	}
	defer running.Store(false)
	ArenaIsPlaying.Set(1)
	defer ArenaIsPlaying.Set(0)

	logger := zerolog.Ctx(ctx)
	runner, err := NewGameRunner(cfg)
	if err != nil {
		return nil, err
	}
	numGames := cfg.GetInt(config.ConfigNumGames)
	threads := cfg.GetInt(config.ConfigThreads)
	progressPeriod := max(1, cfg.GetInt(config.ConfigArenaProgressPeriod))
	seeds, err := arenaSeeds(cfg, numGames)
	if err != nil {
		return nil, err
	}

	var enc *yaml.Encoder
	if path := cfg.GetString(config.ConfigResultLogPath); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create result log: %w", err)
		}
		defer f.Close()
		enc = yaml.NewEncoder(f)
		defer enc.Close()
	}

	summary := newSummary(runner.Names(), cfg.GetFloat64(config.ConfigConfidenceInterval))
	results := make(chan *GameResult, threads)
	collected := make(chan error, 1)
	go func() {
		var writeErr error
		for r := range results {
			summary.add(r)
			ArenaGamesPlayed.Add(1)
			if enc != nil && writeErr == nil {
				writeErr = enc.Encode(r)
			}
			if summary.Games%progressPeriod == 0 {
				logger.Info().Int("games", summary.Games).Int("of", numGames).Msg("arena-progress")
			}
		}
		collected <- writeErr
	}()

	logger.Info().Int("games", numGames).Int("threads", threads).
		Strs("entrants", runner.Names()).Int("players", cfg.GetInt(config.ConfigNumPlayers)).
		Msg("arena-starting")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i := 0; i < numGames && gctx.Err() == nil; i++ {
		g.Go(func() error {
			res, err := runner.PlayGame(gctx, i, seeds[i])
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			results <- res
			return nil
		})
	}
	err = g.Wait()
	close(results)
	if writeErr := <-collected; writeErr != nil && err == nil {
		err = fmt.Errorf("write result log: %w", writeErr)
	}
	if err == nil {
		err = ctx.Err()
	}
	summary.finish()
	logger.Info().Int("games", summary.Games).Msg("arena-finished")
	return summary, err
}
