package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug               = "debug"
	ConfigConfigFile          = "config-file"
	ConfigDraftingModelPath   = "drafting-model-path"
	ConfigMovementModelPath   = "movement-model-path"
	ConfigNumPlayers          = "num-players"
	ConfigNumGames            = "num-games"
	ConfigThreads             = "threads"
	ConfigPlayer1             = "player1"
	ConfigPlayer2             = "player2"
	ConfigPlayoutsPerMove     = "playouts-per-move"
	ConfigPonder              = "ponder"
	ConfigCPuct               = "c-puct"
	ConfigMaxMemoryFraction   = "max-memory-fraction"
	ConfigTemperature         = "temperature"
	ConfigTemperatureTurns    = "temperature-turns"
	ConfigMinimaxDepth        = "minimax-depth"
	ConfigSeedFile            = "seed-file"
	ConfigResultLogPath       = "result-log-path"
	ConfigConfidenceInterval  = "confidence-interval"
	ConfigArenaProgressPeriod = "arena-progress-period"
)

// Config holds every tunable of the engine, the bots and the arena. Values
// come from (in decreasing priority) command-line flags, HTMF_* environment
// variables, an optional YAML file and the defaults below.
type Config struct {
	viper.Viper
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(ConfigDebug, false)
	v.SetDefault(ConfigDraftingModelPath, "")
	v.SetDefault(ConfigMovementModelPath, "")
	v.SetDefault(ConfigNumPlayers, 2)
	v.SetDefault(ConfigNumGames, 100)
	v.SetDefault(ConfigThreads, 4)
	v.SetDefault(ConfigPlayer1, "mcts")
	v.SetDefault(ConfigPlayer2, "random")
	// 0 means "scale with the number of legal moves".
	v.SetDefault(ConfigPlayoutsPerMove, 0)
	v.SetDefault(ConfigPonder, false)
	v.SetDefault(ConfigCPuct, 1.5)
	v.SetDefault(ConfigMaxMemoryFraction, 0.25)
	v.SetDefault(ConfigTemperature, 0.0)
	v.SetDefault(ConfigTemperatureTurns, 0)
	v.SetDefault(ConfigMinimaxDepth, 3)
	v.SetDefault(ConfigSeedFile, "")
	v.SetDefault(ConfigResultLogPath, "")
	v.SetDefault(ConfigConfidenceInterval, 95.0)
	v.SetDefault(ConfigArenaProgressPeriod, 50)
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("htmf", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigConfigFile, "", "optional YAML config file")
	fs.String(ConfigDraftingModelPath, "", "ONNX model used while drafting")
	fs.String(ConfigMovementModelPath, "", "ONNX model used while moving")
	fs.Int(ConfigNumPlayers, 2, "number of players (2-4)")
	fs.Int(ConfigNumGames, 100, "number of arena games")
	fs.Int(ConfigThreads, 4, "number of games played at once")
	fs.String(ConfigPlayer1, "mcts", "first bot: mcts, nn, minimax or random")
	fs.String(ConfigPlayer2, "random", "second bot: mcts, nn, minimax or random")
	fs.Int(ConfigPlayoutsPerMove, 0, "playouts per MCTS move (0 scales with legal moves)")
	fs.Bool(ConfigPonder, false, "let MCTS bots think on the opponent's turn")
	fs.Float64(ConfigCPuct, 1.5, "PUCT exploration constant")
	fs.Float64(ConfigMaxMemoryFraction, 0.25, "fraction of system memory a search tree may use")
	fs.Float64(ConfigTemperature, 0, "move sampling temperature")
	fs.Int(ConfigTemperatureTurns, 0, "number of turns that sample with the temperature")
	fs.Int(ConfigMinimaxDepth, 3, "minimax search depth in plies")
	fs.String(ConfigSeedFile, "", "file with one base64 seed per arena game")
	fs.String(ConfigResultLogPath, "", "YAML file to write arena results to")
	fs.Float64(ConfigConfidenceInterval, 95, "confidence interval for arena win rates, in percent")
	fs.Int(ConfigArenaProgressPeriod, 50, "log arena progress every this many games")
	return fs
}

// Load reads args, the environment and an optional config file.
func (c *Config) Load(args []string) error {
	c.Viper = *viper.New()
	setDefaults(&c.Viper)

	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}

	c.SetEnvPrefix("htmf")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if path := c.GetString(ConfigConfigFile); path != "" {
		c.SetConfigFile(path)
		c.SetConfigType("yaml")
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	return c.validate()
}

func (c *Config) validate() error {
	if n := c.GetInt(ConfigNumPlayers); n < 2 || n > 4 {
		return fmt.Errorf("%s must be between 2 and 4, got %d", ConfigNumPlayers, n)
	}
	if c.GetInt(ConfigThreads) < 1 {
		return errors.New(ConfigThreads + " must be at least 1")
	}
	if f := c.GetFloat64(ConfigMaxMemoryFraction); f <= 0 || f > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %v", ConfigMaxMemoryFraction, f)
	}
	return nil
}

// DefaultConfig returns a config with every default and nothing read from
// flags, files or the environment.
func DefaultConfig() *Config {
	c := &Config{Viper: *viper.New()}
	setDefaults(&c.Viper)
	return c
}
