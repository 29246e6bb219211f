package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/archive"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/server"
)

// version is set by ldflags during build
var version = "dev"

var CLI struct {
	Version     kong.VersionFlag `short:"v" help:"Show version"`
	Config      string           `short:"c" default:"blackjack.hcl" help:"Path to HCL configuration file"`
	Addr        string           `short:"a" help:"Server address to bind to (overrides config)"`
	LogLevel    string           `short:"l" help:"Log level (overrides config)"`
	DatabaseURL string           `env:"DATABASE_URL" help:"Postgres URL for the results archive (overrides config)"`
	Seed        *int64           `help:"Deterministic RNG seed for shuffling (optional)"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("blackjack-server"),
		kong.Description("Multiplayer blackjack rooms over WebSocket"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := server.LoadServerConfig(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.DatabaseURL != "" {
		cfg.Server.DatabaseURL = CLI.DatabaseURL
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := newLogger(cfg.Server.LogLevel)
	if err := run(logger, cfg); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	styles := log.DefaultStyles()
	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Bold(true).
		Foreground(lipgloss.Color("214"))
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Bold(true).
		Foreground(lipgloss.Color("204"))
	logger.SetStyles(styles)
	return logger
}

func run(logger *log.Logger, cfg *server.ServerConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules, err := cfg.GameRules()
	if err != nil {
		return err
	}

	var srvOpts []server.Option
	regOpts := []game.Option{game.WithRules(rules)}
	if CLI.Seed != nil {
		regOpts = append(regOpts, game.WithSeed(*CLI.Seed))
	}

	if cfg.Server.DatabaseURL != "" {
		store, err := archive.New(ctx, cfg.Server.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		srvOpts = append(srvOpts, server.WithResults(store))
		regOpts = append(regOpts, game.WithRecorder(store))
		logger.Info("Results archive enabled")
	}

	srv := server.NewServer(logger, srvOpts...)
	reg := game.NewRegistry(srv, logger, regOpts...)
	srv.SetRegistry(reg)
	defer reg.Close()

	logger.Info("Starting Blackjack Server",
		"addr", cfg.GetServerAddress(),
		"maxPlayers", rules.MaxPlayers,
		"rounds", rules.MaxRounds,
		"startingChips", rules.StartingChips)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, cfg.GetServerAddress())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return nil
	})
	return g.Wait()
}
