package loadtest

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/fifteen/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging writes logs to stdout and, when logFile is set, to that file
// as well.
func SetupLogging(logFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.Init(logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Fifteen Load Tool
=================

Plays matches between synthetic players against a running server and
verifies the resulting ladder and history.

Usage:
  go run ./cmd/loadtest [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -matches int       Number of matches to play (default 500)
  -players int       Synthetic player pool size (default 50)
  -mode string       casual or ranked (default "ranked")
  -top int           Leaderboard rows to fetch (default 20)
  -workers int       Concurrent matches (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 10s)
  -settle duration   Time allowed for history to catch up (default 30s)
  -seed uint         Random seed, 0 for a random one
  -output string     Write played matches to this JSON file
  -log string        Also write logs to this file
  -verbose           Enable debug logging
  -help              Show this help message

Examples:
  go run ./cmd/loadtest -matches 2000 -players 100
  go run ./cmd/loadtest -mode casual -workers 32 -url http://localhost:8080
`)
}
