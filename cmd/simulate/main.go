package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/fifteen/internal/app"
	"github.com/okian/fifteen/internal/config"
	"github.com/okian/fifteen/internal/simulation"
	"github.com/okian/fifteen/pkg/logger"
)

const (
	defaultMatches = 200
	defaultBatch   = 16
)

func main() {
	var (
		matches = flag.Int("matches", defaultMatches, "Number of ranked matches to play")
		batch   = flag.Int("batch", defaultBatch, "Matches in flight at once")
		top     = flag.Int("top", 0, "Ladder rows to print, 0 for every bot")
		seed    = flag.Uint64("seed", 0, "Random seed, 0 for a random one")
		think   = flag.Bool("think", false, "Keep the configured bot think delay")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.Server.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.Server.LogLevel), logger.Error(err))
	}
	if !*think {
		cfg.Bots.ThinkMS = 0
	}

	opts := []service.Option{service.WithConfig(cfg), service.WithLogger(log)}
	if *seed != 0 {
		opts = append(opts, service.WithSeed(*seed))
	}
	svc, err := service.New(opts...)
	if err != nil {
		log.Error(ctx, "failed to create service", logger.Error(err))
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	sum, err := simulation.Run(ctx, svc, simulation.Options{Matches: *matches, Batch: *batch, TopN: *top, Seed: *seed})
	if err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		return
	}
	if err := simulation.Print(os.Stdout, sum); err != nil {
		log.Error(ctx, "failed to print ladder", logger.Error(err))
	}
}
