package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tg_joke_bot/internal/config"
	"tg_joke_bot/internal/health"
	"tg_joke_bot/internal/i18n"
	"tg_joke_bot/internal/joke"
	"tg_joke_bot/internal/logging"
	"tg_joke_bot/internal/stats"
	"tg_joke_bot/internal/store"
)

const (
	mongoConnectTimeout    = 10 * time.Second
	mongoIndexTimeout      = 5 * time.Second
	mongoDisconnectTimeout = 5 * time.Second
	statsLoadTimeout       = 10 * time.Second
)

// newLocalizer loads the embedded tables, then the LOCALES_DIR overrides.
func newLocalizer(cfg config.Config, logger *logrus.Entry) (*i18n.Localizer, error) {
	localizer, err := i18n.New(cfg.DefaultLanguage, logging.Component("i18n"))
	if err != nil {
		return nil, fmt.Errorf("localizer setup: %w", err)
	}

	if err := localizer.Load(i18n.EmbeddedLocales()); err != nil {
		return nil, fmt.Errorf("load embedded locales: %w", err)
	}

	if cfg.LocalesDir != "" {
		if err := localizer.Load(i18n.LocalesFS(cfg.LocalesDir)); err != nil {
			return nil, fmt.Errorf("load locales from %s: %w", cfg.LocalesDir, err)
		}
		logger.WithFields(logrus.Fields{
			"event": "locales_loaded",
			"dir":   cfg.LocalesDir,
		}).Info("loaded locale overrides")
	}

	return localizer, nil
}

// newJokeClient builds the joke API client. tokenCtx scopes OAuth2 token
// refreshes; observer may be nil.
func newJokeClient(tokenCtx context.Context, cfg config.Config, translator joke.Translator, observer joke.Observer) (*joke.Client, error) {
	client, err := joke.NewClient(joke.Options{
		BaseURL:  cfg.JokesAPIURL,
		Endpoint: cfg.JokesAPIEndpoint,
		Timeout:  cfg.JokesAPITimeout,
		TokenSource: joke.NewTokenSource(tokenCtx, joke.AuthConfig{
			APIKey:       cfg.JokesAPIKey,
			TokenURL:     cfg.OAuthTokenURL,
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			Scopes:       cfg.OAuthScopes,
		}),
		UserAgent:       cfg.BotName + "/" + cfg.BotVersion,
		DefaultLanguage: cfg.DefaultLanguage,
		Translator:      translator,
		Observer:        observer,
		Logger:          logging.Component("joke"),
	})
	if err != nil {
		return nil, fmt.Errorf("joke client setup: %w", err)
	}
	return client, nil
}

func jokeAuthMode(cfg config.Config) string {
	switch {
	case cfg.OAuthTokenURL != "":
		return "oauth2 client credentials"
	case cfg.JokesAPIKey != "":
		return "api key"
	default:
		return "none"
	}
}

// statsBackend is the opened statistics persistence.
type statsBackend struct {
	persister stats.Persister
	mongo     *store.Manager
}

// checks returns the health probes for the backend and store.
func (b statsBackend) checks(statsStore *stats.Store) health.Checks {
	checks := health.Checks{Stats: statsStore}
	if b.mongo != nil {
		checks.Mongo = b.mongo
	}
	return checks
}

func (b statsBackend) close(logger *logrus.Entry) {
	if b.mongo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	defer cancel()

	if err := b.mongo.Close(ctx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
		return
	}
	logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
}

func openStatsBackend(cfg config.Config, logger *logrus.Entry) (statsBackend, error) {
	if !cfg.UsesMongo() {
		persister, err := stats.NewFilePersister(cfg.StatsDataDir)
		if err != nil {
			return statsBackend{}, fmt.Errorf("stats data dir: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"event":   "stats_backend",
			"backend": config.BackendFile,
			"dir":     persister.Dir(),
		}).Info("using file statistics backend")
		return statsBackend{persister: persister}, nil
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	manager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		return statsBackend{}, fmt.Errorf("mongo connection error: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"event":    "mongo_connect",
		"mongo_db": cfg.MongoDB,
	}).Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	err = manager.EnsureIndexes(indexCtx)
	cancelIndexes()
	if err != nil {
		backend := statsBackend{mongo: manager}
		backend.close(logger)
		return statsBackend{}, fmt.Errorf("mongo index setup error: %w", err)
	}

	logger.WithField("event", "mongo_indexes").Info("ensured mongo indexes")

	return statsBackend{
		persister: store.NewSnapshotRepository(manager.Profiles(), manager.Aggregates()),
		mongo:     manager,
	}, nil
}

func openStats(cfg config.Config, backend statsBackend, translator stats.Translator) (*stats.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), statsLoadTimeout)
	defer cancel()

	statsStore, err := stats.New(ctx, stats.Options{
		Persister:       backend.persister,
		Translator:      translator,
		DefaultLanguage: cfg.DefaultLanguage,
		Logger:          logging.Component("stats"),
	})
	if err != nil {
		return nil, fmt.Errorf("stats setup: %w", err)
	}
	return statsStore, nil
}
