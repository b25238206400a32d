// watch plays one game between the two configured players and prints the
// board after every move.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/htmf/automatic"
	"github.com/domino14/htmf/config"
	"github.com/domino14/htmf/game"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("loading-config")
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	runner, err := automatic.NewGameRunner(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("creating-players")
	}
	profile := termenv.ColorProfile()
	onMove := func(g *game.State, m game.Move) {
		fmt.Printf("%v\n%s\n", m, g.ToDisplayText(profile))
	}
	ctx := log.Logger.WithContext(context.Background())
	res, err := runner.WatchGame(ctx, 0, automatic.GenerateSeeds(1)[0], onMove)
	if err != nil {
		log.Fatal().Err(err).Msg("game-failed")
	}
	fmt.Printf("seats %v scored %v\n", res.Seats, res.Scores)
}
