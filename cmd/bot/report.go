package main

import (
	"fmt"
	"html"
	"io"
	"regexp"

	"github.com/spf13/cobra"

	"tg_joke_bot/internal/config"
	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/logging"
	"tg_joke_bot/internal/stats"
)

var markupTag = regexp.MustCompile(`<[^>]+>`)

func newStatsCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the statistics summary from persisted data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStats(func(cfg config.Config, s *stats.Store) error {
				return printReport(cmd.OutOrStdout(), s.StatsSummary(reportLanguage(lang, cfg)))
			})
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Report language (uk, en, pl); defaults to DEFAULT_LANGUAGE.")
	return cmd
}

func newUsersCmd() *cobra.Command {
	var (
		lang  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "Print the most recently seen users from persisted data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStats(func(cfg config.Config, s *stats.Store) error {
				if !cmd.Flags().Changed("limit") {
					limit = cfg.UsersListLimit
				}
				return printReport(cmd.OutOrStdout(), s.UsersList(reportLanguage(lang, cfg), limit))
			})
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "Report language (uk, en, pl); defaults to DEFAULT_LANGUAGE.")
	cmd.Flags().IntVar(&limit, "limit", config.DefaultUsersListLimit, "Maximum number of users to list.")
	return cmd
}

// withStats opens the configured statistics read-only and passes them to fn.
// The Telegram token and joke API settings are not needed here.
func withStats(fn func(config.Config, *stats.Store) error) error {
	cfg, err := loadConfig(config.LoadOffline)
	if err != nil {
		return err
	}
	logger := logging.Logger()

	localizer, err := newLocalizer(cfg, logger)
	if err != nil {
		return err
	}

	backend, err := openStatsBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close(logger)

	statsStore, err := openStats(cfg, backend, localizer)
	if err != nil {
		return err
	}

	return fn(cfg, statsStore)
}

func reportLanguage(lang string, cfg config.Config) string {
	lang = domain.NormalizeLanguage(lang)
	if domain.IsSupportedLanguage(lang) {
		return lang
	}
	return cfg.DefaultLanguage
}

// printReport writes chat markup as plain text.
func printReport(w io.Writer, text string) error {
	_, err := fmt.Fprintln(w, html.UnescapeString(markupTag.ReplaceAllString(text, "")))
	return err
}
