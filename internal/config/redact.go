package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const visibleSecretPrefix = 4

// FormatRedacted renders cfg one "key: value" per line with secrets masked.
func FormatRedacted(cfg Config) string {
	admins := make([]string, 0, cfg.Admins.Len())
	for _, id := range cfg.Admins.IDs() {
		admins = append(admins, strconv.FormatInt(id, 10))
	}

	lines := [][2]string{
		{"app_env", cfg.AppEnv},
		{"log_level", cfg.LogLevel},
		{"http_port", strconv.Itoa(cfg.HTTPPort)},
		{"telegram_token", maskSecret(cfg.TelegramToken)},
		{"admin_user_ids", strings.Join(admins, ",")},
		{"jokes_api_url", redactURL(cfg.JokesAPIURL)},
		{"jokes_api_endpoint", cfg.JokesAPIEndpoint},
		{"jokes_api_key", maskSecret(cfg.JokesAPIKey)},
		{"jokes_api_timeout", cfg.JokesAPITimeout.String()},
		{"jokes_oauth_token_url", redactURL(cfg.OAuthTokenURL)},
		{"jokes_oauth_client_id", cfg.OAuthClientID},
		{"jokes_oauth_client_secret", maskSecret(cfg.OAuthClientSecret)},
		{"jokes_oauth_scopes", strings.Join(cfg.OAuthScopes, ",")},
		{"stats_backend", cfg.StatsBackend},
		{"stats_data_dir", cfg.StatsDataDir},
		{"mongo_uri", redactURL(cfg.MongoURI)},
		{"mongo_db", cfg.MongoDB},
		{"default_language", cfg.DefaultLanguage},
		{"locales_dir", cfg.LocalesDir},
		{"state_ttl", cfg.StateTTL.String()},
		{"users_list_limit", strconv.Itoa(cfg.UsersListLimit)},
		{"bot_name", cfg.BotName},
		{"bot_version", cfg.BotVersion},
		{"bot_developer", cfg.BotDeveloper},
		{"bot_email", cfg.BotEmail},
		{"bot_github", cfg.BotGitHub},
	}

	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "%s: %s\n", line[0], line[1])
	}
	return b.String()
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= visibleSecretPrefix {
		return "...redacted"
	}
	return value[:visibleSecretPrefix] + "...redacted"
}

// redactURL drops userinfo so credentials never reach the output.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "...redacted"
	}
	u.User = nil
	return u.String()
}
