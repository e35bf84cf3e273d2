package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/jitdj/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger, ConfigPath: "config.toml"})
	defer runner.Close()

	app := &cli.Command{
		Name:     "jitdj",
		Usage:    "Play a track list on Spotify by queueing each track just before the previous one ends",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   runner.Load,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		switch {
		case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrInvalidConfig):
			logger.Fatalf("configuration error: %v", err)
		case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrTokenExpired):
			logger.Fatalf("%v (run 'jitdj auth' to authorize)", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
