package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/fifteen/internal/loadtest"
)

const (
	defaultMatches     = 500
	defaultPlayers     = 50
	defaultTopN        = 20
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 10 * time.Second
	defaultSettle      = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		matches = flag.Int("matches", defaultMatches, "Number of matches to play")
		players = flag.Int("players", defaultPlayers, "Synthetic player pool size")
		mode    = flag.String("mode", "ranked", "casual or ranked")
		topN    = flag.Int("top", defaultTopN, "Leaderboard rows to fetch")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent matches")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle  = flag.Duration("settle", defaultSettle, "Time allowed for history to catch up")
		seed    = flag.Uint64("seed", 0, "Random seed, 0 for a random one")
		output  = flag.String("output", "", "Write played matches to this JSON file")
		logFile = flag.String("log", "", "Also write logs to this file")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := loadtest.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:    *baseURL,
		Matches:    *matches,
		Players:    *players,
		Mode:       *mode,
		TopN:       *topN,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		Seed:       *seed,
		OutputFile: *output,
		Verbose:    *verbose,
	}
	if _, err := loadtest.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
