// Package commands implements the assetrev command-line interface.
package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetrev/internal/config"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer // user-facing output (summaries, tables)
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"assetrev.yaml" env:"ASSETREV_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Run the full revisioning pipeline"`
	Clean   CleanCmd   `cmd:"" help:"Remove the distribution directory"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild whenever source files change"`
	Verify  VerifyCmd  `cmd:"" help:"Check the references in a built distribution tree"`
	Graph   GraphCmd   `cmd:"" help:"Print the stage dependency graph"`
	History HistoryCmd `cmd:"" help:"List recent pipeline runs"`
}

// AfterApply runs after flag parsing; set up logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := parseLogLevel(c.Verbose)
	format := config.LogFormat(strings.ToLower(os.Getenv("ASSETREV_LOG_FORMAT")))
	g.Logger = newLogger(os.Stderr, level, format)
	slog.SetDefault(g.Logger)
	return nil
}

// parseLogLevel resolves the level from --verbose and ASSETREV_LOG_LEVEL,
// the flag taking precedence.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slogLevel(config.NormalizeLogLevel(os.Getenv("ASSETREV_LOG_LEVEL")), slog.LevelInfo)
}

func slogLevel(l config.LogLevel, def slog.Level) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return def
	}
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// applyLogging re-levels the default logger from the loaded configuration
// unless --verbose or ASSETREV_LOG_LEVEL already decided it.
func applyLogging(g *Global, root *CLI, cfg *config.Config) {
	if root.Verbose || os.Getenv("ASSETREV_LOG_LEVEL") != "" {
		return
	}
	format := cfg.Logging.Format
	if env := os.Getenv("ASSETREV_LOG_FORMAT"); env != "" {
		format = config.LogFormat(strings.ToLower(env))
	}
	g.Logger = newLogger(os.Stderr, slogLevel(cfg.Logging.Level, slog.LevelInfo), format)
	slog.SetDefault(g.Logger)
}

// loadConfig reads the configuration file. When the default file is absent
// the built-in defaults are used with the current directory as source root.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		if root.Config != config.DefaultFile || !errors.HasCategory(err, errors.CategoryConfig) {
			return nil, err
		}
		if _, statErr := os.Stat(root.Config); !os.IsNotExist(statErr) {
			return nil, err
		}
		slog.Debug("No configuration file found, using defaults", "path", root.Config)
		cfg = config.Default()
	}
	applyLogging(g, root, cfg)
	return cfg, nil
}
