// Package main provides the dicebag command-line roller: one-shot commands
// for rolling, presets and history, plus an interactive shell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dicebag/internal/command"
	"github.com/cory-johannsen/dicebag/internal/config"
	"github.com/cory-johannsen/dicebag/internal/game/dice"
	"github.com/cory-johannsen/dicebag/internal/game/preset"
	"github.com/cory-johannsen/dicebag/internal/game/rolllog"
	"github.com/cory-johannsen/dicebag/internal/observability"
	"github.com/cory-johannsen/dicebag/internal/render"
	"github.com/cory-johannsen/dicebag/internal/session"
	"github.com/cory-johannsen/dicebag/internal/storage/filestore"
	"github.com/cory-johannsen/dicebag/internal/storage/postgres"
	"github.com/cory-johannsen/dicebag/internal/storage/sqlite"
)

const usageHeader = "usage: dicebag [-config file] [-no-color] <command> [arguments]\n\n"

func usage() string {
	return usageHeader + command.DefaultRegistry().Help(command.HandlerQuit)
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses global flags, opens the session and dispatches one command.
//
// Postcondition: Returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dicebag", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage()) }
	configPath := fs.String("config", os.Getenv("DICEBAG_CONFIG"), "path to configuration file (defaults and DICEBAG_* variables when empty)")
	noColor := fs.Bool("no-color", false, "disable ANSI color")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "loading config: %v\n", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "initializing logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	a, err := openApp(ctx, cfg, logger, stdout, !*noColor)
	if err != nil {
		logger.Error("opening session", zap.Error(err))
		fmt.Fprintf(stderr, "dicebag: %v\n", err)
		return 1
	}
	defer a.close()

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if c, ok := a.commands.Resolve(cmd); ok && c.Handler == command.HandlerShell {
		err = a.shell(ctx, stdin, logger)
	} else {
		err = a.dispatch(ctx, cmd, cmdArgs)
	}
	if err != nil {
		fmt.Fprintf(stderr, "dicebag: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage())
			return 2
		}
		return 1
	}
	return 0
}

// app is one opened session plus its output.
type app struct {
	sess     *session.Session
	commands *command.Registry
	render   render.Renderer
	out      io.Writer
	close    func()
}

func openApp(ctx context.Context, cfg config.Config, logger *zap.Logger, out io.Writer, color bool) (*app, error) {
	start := time.Now()

	rolls, presets, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	defaults, err := loadDefaults(cfg.Roller.PresetsDir)
	if err != nil {
		closeStores()
		return nil, err
	}

	var src dice.Source
	if cfg.Roller.Seed != 0 {
		src = dice.NewSeededSource(cfg.Roller.Seed)
	} else {
		src = dice.NewCryptoSource()
	}

	sess, err := session.Open(ctx, session.Options{
		Roller:          dice.NewLoggedRoller(src, logger),
		Rolls:           rolls,
		Presets:         presets,
		HistoryCapacity: cfg.Roller.HistoryCapacity,
		Settings: preset.Settings{
			FeaturedSlots:  cfg.Roller.FeaturedSlots,
			CustomDieSides: cfg.Roller.CustomDieSides,
		},
		Defaults: defaults,
		Logger:   logger,
	})
	if err != nil {
		closeStores()
		return nil, err
	}

	logger.Debug("session opened",
		zap.String("backend", cfg.Storage.Backend),
		zap.Int("rolls", sess.Log().Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &app{
		sess:     sess,
		commands: command.DefaultRegistry(),
		render:   render.New(color),
		out:      out,
		close:    closeStores,
	}, nil
}

func loadDefaults(dir string) ([]preset.Preset, error) {
	if dir == "" {
		return preset.DefaultPresets()
	}
	return preset.LoadDefinitions(dir)
}

// openStores returns the roll and preset stores for the configured backend
// and a function releasing them.
func openStores(ctx context.Context, cfg config.Config) (rolllog.Store, preset.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendFile:
		s, err := filestore.New(cfg.Storage.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, func() {}, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
		s, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, func() { _ = s.Close() }, nil
	case config.BackendPostgres:
		if err := postgres.Migrate(cfg.Database.DSN()); err != nil {
			return nil, nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewRollRepository(pool.DB()), postgres.NewPresetRepository(pool.DB()), pool.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
