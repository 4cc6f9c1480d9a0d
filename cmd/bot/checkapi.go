package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tg_joke_bot/internal/config"
	"tg_joke_bot/internal/joke"
	"tg_joke_bot/internal/logging"
)

const checkAPIPrompt = "Test joke request"

func newCheckAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-api",
		Short: "Send one test request to the joke API and report the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return checkAPI(ctx, cmd)
		},
	}
}

func checkAPI(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig(config.LoadOffline)
	if err != nil {
		return err
	}
	if cfg.JokesAPIURL == "" {
		return fmt.Errorf("%s is required for check-api", config.KeyJokesAPIURL)
	}
	logger := logging.Logger()

	localizer, err := newLocalizer(cfg, logger)
	if err != nil {
		return err
	}

	tokenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := newJokeClient(tokenCtx, cfg, localizer, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "url: %s\n", client.URL())
	fmt.Fprintf(out, "timeout: %s\n", cfg.JokesAPITimeout)
	fmt.Fprintf(out, "auth: %s\n", jokeAuthMode(cfg))

	started := time.Now()
	text, err := client.FetchJoke(ctx, checkAPIPrompt, cfg.DefaultLanguage)
	elapsed := time.Since(started).Round(time.Millisecond)

	if err != nil {
		var jokeErr *joke.Error
		if errors.As(err, &jokeErr) {
			fmt.Fprintf(out, "result: failed after %s (reason %s", elapsed, jokeErr.Reason)
			if jokeErr.StatusCode != 0 {
				fmt.Fprintf(out, ", status %d", jokeErr.StatusCode)
			}
			if jokeErr.Timeout {
				fmt.Fprint(out, ", timed out")
			}
			fmt.Fprintln(out, ")")
		}
		return fmt.Errorf("joke api check failed: %w", err)
	}

	logger.WithFields(logging.Fields{
		"event":       "check_api_ok",
		"duration_ms": elapsed.Milliseconds(),
	}).Info("joke api reachable")

	fmt.Fprintf(out, "result: ok in %s\n", elapsed)
	return printReport(out, text)
}
