package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
	"github.com/ryosukesatoh/arxiv-digest/internal/generator"
	"github.com/ryosukesatoh/arxiv-digest/internal/publisher"
	"github.com/ryosukesatoh/arxiv-digest/internal/runner"
	"github.com/ryosukesatoh/arxiv-digest/internal/selector"
	"github.com/ryosukesatoh/arxiv-digest/internal/summarizer"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	configPath := flag.String("config", "", "path to config file (defaults and environment only when empty)")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setLogLevel(cfg.LogLevel, *verbose)

	r, err := build(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}

	// Single-run mode: run the pipeline once and exit
	if *once {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		log.Info().Msg("running digest (once mode)")
		if err := r.Run(ctx); err != nil {
			log.Error().Err(err).Msg("pipeline failed")
			os.Exit(1)
		}
		log.Info().Msg("done")
		return
	}

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunOnStart {
		log.Info().Msg("running initial digest")
		if err := r.Run(ctx); err != nil {
			log.Error().Err(err).Msg("initial run failed")
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(cfg.Schedule, func() {
		log.Info().Msg("cron triggered, running digest")
		if err := r.Run(ctx); err != nil {
			log.Error().Err(err).Msg("scheduled run failed")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.Schedule).Msg("failed to set up cron schedule")
	}
	c.Start()
	log.Info().Str("schedule", cfg.Schedule).Msg("scheduled digest")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	<-c.Stop().Done()

	log.Info().Msg("shutdown complete")
}

// build wires the pipeline stages from configuration.
func build(cfg *config.Config) (*runner.Runner, error) {
	f, err := fetcher.New(cfg)
	if err != nil {
		return nil, err
	}

	gen, err := generator.New(cfg)
	if err != nil {
		return nil, err
	}

	sel, err := selector.FromConfig(cfg, gen)
	if err != nil {
		return nil, err
	}

	return runner.New(
		cfg.Publisher.Title,
		cfg.Selector.Limit,
		f,
		sel,
		summarizer.New(cfg, gen),
		publisher.New(cfg),
	), nil
}

func setLogLevel(level string, verbose bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
