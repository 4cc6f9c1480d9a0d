package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tg_joke_bot/internal/config"
	"tg_joke_bot/internal/dispatch"
	"tg_joke_bot/internal/feature/user"
	"tg_joke_bot/internal/health"
	"tg_joke_bot/internal/logging"
	"tg_joke_bot/internal/metrics"
	"tg_joke_bot/internal/state"
	"tg_joke_bot/internal/telegram"
)

const (
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

func runBot(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(config.Load)
	if err != nil {
		return err
	}
	logger := logging.Logger()

	logger.WithFields(logging.Fields{
		"event":         "startup",
		"stats_backend": cfg.StatsBackend,
		"admins":        cfg.Admins.Len(),
		"jokes_api":     cfg.JokesAPIURL,
	}).Info("configuration loaded")

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

	states, err := state.NewTracker(state.DefaultCapacity, cfg.StateTTL)
	if err != nil {
		return fmt.Errorf("state tracker setup: %w", err)
	}
	defer states.Close()

	botMetrics := metrics.New(nil)
	botMetrics.SetUsers(statsStore.Aggregate().TotalUsers)

	// Token refreshes run on tokenCtx for the life of the process.
	tokenCtx, cancelTokens := context.WithCancel(context.Background())
	defer cancelTokens()

	jokes, err := newJokeClient(tokenCtx, cfg, localizer, botMetrics)
	if err != nil {
		return err
	}

	tgClient, err := telegram.NewClient(cfg, logging.Component("telegram"))
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		return fmt.Errorf("telegram client setup error: %w", err)
	}

	dispatcher, err := dispatch.New(dispatch.Options{
		Transport:  tgClient,
		Registrar:  user.NewRegistrar(statsStore, botMetrics, logging.Component("registrar")),
		Stats:      statsStore,
		States:     states,
		Translator: localizer,
		Jokes:      jokes,
		Admins:     cfg.Admins,
		Counter:    botMetrics,
		Bot: dispatch.BotInfo{
			Name:      cfg.BotName,
			Version:   cfg.BotVersion,
			Developer: cfg.BotDeveloper,
			Email:     cfg.BotEmail,
			GitHub:    cfg.BotGitHub,
		},
		UsersLimit: cfg.UsersListLimit,
		Logger:     logging.Component("dispatch"),
	})
	if err != nil {
		return fmt.Errorf("dispatcher setup: %w", err)
	}
	tgClient.Handle(dispatcher)

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, backend.checks(statsStore), botMetrics.Handler(), logging.Component("health"))
	healthDone := make(chan error, 1)
	go func() {
		healthDone <- healthServer.ListenAndServe()
	}()

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	case err := <-healthDone:
		if err != nil {
			logger.WithError(err).Error("health server error")
			runErr = err
		}
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelShutdown()

	if _, persistErr := statsStore.PersistStatus(); persistErr != nil {
		logger.WithField("event", "stats_unsaved").WithError(persistErr).Warn("last statistics write failed")
	}

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
	return runErr
}
