// Command kauma runs a batch job file of cryptanalysis actions and
// writes one reply per test case to standard output.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	weak "math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/rbnschffmchr/kauma/internal/dispatch"
	"github.com/rbnschffmchr/kauma/internal/job"
	"github.com/rbnschffmchr/kauma/internal/kauma"
)

func main() {
	app := &cli.App{
		Name:      "kauma",
		Usage:     "run a batch of cryptanalysis actions from a job file",
		ArgsUsage: "<job-file>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: kauma.DefaultTimeout,
				Usage: "per-request network timeout for padding-oracle sessions",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "zerolog level: debug, info, warn, error",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("missing job file argument", 1)
	}
	path := c.Args().Get(0)

	cfg := kauma.Config{
		Timeout:  c.Duration("timeout"),
		LogLevel: c.String("log-level"),
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid log level %q", cfg.LogLevel), 1)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("reading job file: %v", err), 1)
	}
	file, err := job.Decode(raw)
	if err != nil {
		return cli.Exit(fmt.Sprintf("decoding job file: %v", err), 1)
	}

	rng := weak.New(weak.NewSource(1))
	registry := dispatch.New(rng, cfg.Timeout)

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)
	for _, entry := range file.Testcases {
		id, tc := entry.ID, entry.Case
		start := time.Now()
		handler, ok := registry[tc.Action]
		if !ok {
			logger.Warn().Str("id", id).Str("action", tc.Action).Msg("unknown action")
			if err := enc.Encode(job.Reply{ID: id, Reply: map[string]any{"error": "Unknown action"}}); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			continue
		}
		reply, err := handler(ctx, tc.Arguments)
		elapsed := time.Since(start)
		if err != nil {
			logger.Error().Str("id", id).Str("action", tc.Action).Dur("elapsed", elapsed).Err(err).Msg("action failed")
			reply = map[string]any{"error": fmt.Sprintf("Action failed: %v", err)}
		} else {
			logger.Debug().Str("id", id).Str("action", tc.Action).Dur("elapsed", elapsed).Msg("action ok")
		}
		if err := enc.Encode(job.Reply{ID: id, Reply: reply}); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}
	return nil
}
