// Package config defines the environment contract and loads and validates it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"

	"tg_joke_bot/internal/domain"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken     = "TELEGRAM_TOKEN"
	KeyAdminUserIDs      = "ADMIN_USER_IDS"
	KeyJokesAPIURL       = "JOKES_API_URL"
	KeyJokesAPIEndpoint  = "JOKES_API_ENDPOINT"
	KeyJokesAPIKey       = "JOKES_API_KEY"
	KeyJokesAPITimeout   = "JOKES_API_TIMEOUT"
	KeyOAuthTokenURL     = "JOKES_OAUTH_TOKEN_URL"
	KeyOAuthClientID     = "JOKES_OAUTH_CLIENT_ID"
	KeyOAuthClientSecret = "JOKES_OAUTH_CLIENT_SECRET"
	KeyOAuthScopes       = "JOKES_OAUTH_SCOPES"
	KeyStatsBackend      = "STATS_BACKEND"
	KeyStatsDataDir      = "STATS_DATA_DIR"
	KeyMongoURI          = "MONGO_URI"
	KeyMongoDB           = "MONGO_DB"
	KeyDefaultLanguage   = "DEFAULT_LANGUAGE"
	KeyLocalesDir        = "LOCALES_DIR"
	KeyStateTTL          = "STATE_TTL"
	KeyUsersListLimit    = "USERS_LIST_LIMIT"
	KeyBotName           = "BOT_NAME"
	KeyBotVersion        = "BOT_VERSION"
	KeyBotDeveloper      = "BOT_DEVELOPER"
	KeyBotEmail          = "BOT_EMAIL"
	KeyBotGitHub         = "BOT_GITHUB"
	KeyAppEnv            = "APP_ENV"
	KeyLogLevel          = "LOG_LEVEL"
	KeyHTTPPort          = "HTTP_PORT"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Statistics backends.
	BackendFile  = "file"
	BackendMongo = "mongo"

	// Defaults for optional settings.
	DefaultAppEnv           = EnvProduction
	DefaultLogLevel         = "info"
	DefaultHTTPPort         = 8080
	DefaultJokesAPIEndpoint = "/api/getJoke"
	DefaultJokesAPITimeout  = 10 * time.Second
	DefaultStatsBackend     = BackendFile
	DefaultStatsDataDir     = "data"
	DefaultLanguage         = domain.LanguageUkrainian
	DefaultUsersListLimit   = 20
	DefaultBotName          = "Joke Bot"
	DefaultBotVersion       = "1.0.0"
	DefaultBotDeveloper     = "unknown"

	// Recommended database names by environment.
	DefaultMongoDBProd = "joke_bot"
	DefaultMongoDBDev  = "joke_bot_dev"

	maxJokesAPITimeout = 30 * time.Second
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyAdminUserIDs,
		Example:     "123456789,987654321",
		Description: "Comma-separated Telegram user IDs allowed to open the users list.",
		Notes:       "Empty means nobody is an admin.",
	},
	{
		Key:         KeyJokesAPIURL,
		Example:     "https://jokes.example.com",
		Required:    true,
		Description: "Base URL of the joke generation API.",
	},
	{
		Key:         KeyJokesAPIEndpoint,
		Example:     DefaultJokesAPIEndpoint,
		Default:     DefaultJokesAPIEndpoint,
		Description: "Path appended to the joke API base URL.",
	},
	{
		Key:         KeyJokesAPIKey,
		Example:     "sk-...",
		Description: "Static bearer token for the joke API.",
		Notes:       "Ignored when " + KeyOAuthTokenURL + " is set.",
	},
	{
		Key:         KeyJokesAPITimeout,
		Example:     "10",
		Default:     strconv.Itoa(int(DefaultJokesAPITimeout / time.Second)),
		Description: "Joke API request timeout in seconds (1-30).",
	},
	{
		Key:         KeyOAuthTokenURL,
		Example:     "https://auth.example.com/oauth/token",
		Description: "OAuth2 token endpoint; enables client-credentials tokens for the joke API.",
	},
	{
		Key:         KeyOAuthClientID,
		Example:     "joke-bot",
		Description: "OAuth2 client ID.",
		Notes:       "Required when " + KeyOAuthTokenURL + " is set.",
	},
	{
		Key:         KeyOAuthClientSecret,
		Example:     "secret",
		Description: "OAuth2 client secret.",
	},
	{
		Key:         KeyOAuthScopes,
		Example:     "jokes.read",
		Description: "Comma-separated OAuth2 scopes.",
	},
	{
		Key:         KeyStatsBackend,
		Example:     BackendFile + " / " + BackendMongo,
		Default:     DefaultStatsBackend,
		Description: "Where usage statistics are persisted.",
	},
	{
		Key:         KeyStatsDataDir,
		Example:     DefaultStatsDataDir,
		Default:     DefaultStatsDataDir,
		Description: "Directory holding users.json and bot_stats.json for the file backend.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Description: "MongoDB connection string.",
		Notes:       "Required when " + KeyStatsBackend + "=" + BackendMongo + ".",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Description: "MongoDB database name.",
		Notes:       "Required when " + KeyStatsBackend + "=" + BackendMongo + ". Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyDefaultLanguage,
		Example:     "uk / en / pl",
		Default:     DefaultLanguage,
		Description: "Language for users without a stored preference.",
	},
	{
		Key:         KeyLocalesDir,
		Example:     "./locales",
		Description: "Directory with <lang>.json tables overriding the embedded ones.",
	},
	{
		Key:         KeyStateTTL,
		Example:     "30m",
		Default:     "0",
		Description: "How long a pending joke prompt stays active; 0 keeps it until consumed.",
	},
	{
		Key:         KeyUsersListLimit,
		Example:     strconv.Itoa(DefaultUsersListLimit),
		Default:     strconv.Itoa(DefaultUsersListLimit),
		Description: "Maximum users shown in the admin users list.",
	},
	{
		Key:         KeyBotName,
		Example:     DefaultBotName,
		Default:     DefaultBotName,
		Description: "Display name used in the welcome and info views.",
	},
	{
		Key:         KeyBotVersion,
		Example:     DefaultBotVersion,
		Default:     DefaultBotVersion,
		Description: "Version shown in the info view.",
	},
	{
		Key:         KeyBotDeveloper,
		Example:     "@username",
		Default:     DefaultBotDeveloper,
		Description: "Developer contact shown in the info view.",
	},
	{
		Key:         KeyBotEmail,
		Example:     "support@example.com",
		Description: "Support email shown in the contact view; omitted when empty.",
	},
	{
		Key:         KeyBotGitHub,
		Example:     "https://github.com/example/joke-bot",
		Description: "Project link shown in the contact view; omitted when empty.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health and metrics port.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken string
	Admins        domain.AdminList

	JokesAPIURL       string
	JokesAPIEndpoint  string
	JokesAPIKey       string
	JokesAPITimeout   time.Duration
	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthScopes       []string

	StatsBackend string
	StatsDataDir string
	MongoURI     string
	MongoDB      string

	DefaultLanguage string
	LocalesDir      string
	StateTTL        time.Duration
	UsersListLimit  int

	BotName      string
	BotVersion   string
	BotDeveloper string
	BotEmail     string
	BotGitHub    string

	AppEnv   string
	LogLevel string
	HTTPPort int
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	return load(true)
}

// LoadOffline resolves configuration for commands that only read persisted
// statistics. TELEGRAM_TOKEN and JOKES_API_URL are optional there; every other
// rule of Load applies.
func LoadOffline() (Config, error) {
	return load(false)
}

func load(service bool) (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:            firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken:     env(KeyTelegramToken),
		JokesAPIURL:       env(KeyJokesAPIURL),
		JokesAPIEndpoint:  firstNonEmpty(env(KeyJokesAPIEndpoint), DefaultJokesAPIEndpoint),
		JokesAPIKey:       env(KeyJokesAPIKey),
		JokesAPITimeout:   DefaultJokesAPITimeout,
		OAuthTokenURL:     env(KeyOAuthTokenURL),
		OAuthClientID:     env(KeyOAuthClientID),
		OAuthClientSecret: env(KeyOAuthClientSecret),
		OAuthScopes:       splitList(env(KeyOAuthScopes)),
		StatsBackend:      strings.ToLower(firstNonEmpty(env(KeyStatsBackend), DefaultStatsBackend)),
		StatsDataDir:      firstNonEmpty(env(KeyStatsDataDir), DefaultStatsDataDir),
		MongoURI:          env(KeyMongoURI),
		MongoDB:           env(KeyMongoDB),
		DefaultLanguage:   domain.NormalizeLanguage(firstNonEmpty(env(KeyDefaultLanguage), DefaultLanguage)),
		LocalesDir:        env(KeyLocalesDir),
		UsersListLimit:    DefaultUsersListLimit,
		BotName:           firstNonEmpty(env(KeyBotName), DefaultBotName),
		BotVersion:        firstNonEmpty(env(KeyBotVersion), DefaultBotVersion),
		BotDeveloper:      firstNonEmpty(env(KeyBotDeveloper), DefaultBotDeveloper),
		BotEmail:          env(KeyBotEmail),
		BotGitHub:         env(KeyBotGitHub),
		LogLevel:          firstNonEmpty(env(KeyLogLevel), DefaultLogLevel),
		HTTPPort:          DefaultHTTPPort,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if service && cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}
	if service && cfg.JokesAPIURL == "" {
		missing = append(missing, KeyJokesAPIURL)
	}
	if cfg.StatsBackend == BackendMongo {
		if cfg.MongoURI == "" {
			missing = append(missing, KeyMongoURI)
		}
		if cfg.MongoDB == "" {
			missing = append(missing, KeyMongoDB)
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	admins, err := domain.ParseAdminList(env(KeyAdminUserIDs))
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyAdminUserIDs, err)
	}
	cfg.Admins = admins

	if raw := env(KeyJokesAPITimeout); raw != "" {
		seconds, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyJokesAPITimeout, parseErr)
		}
		cfg.JokesAPITimeout = time.Duration(seconds) * time.Second
	}

	if raw := env(KeyStateTTL); raw != "" {
		ttl, parseErr := time.ParseDuration(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyStateTTL, parseErr)
		}
		cfg.StateTTL = ttl
	}

	if raw := env(KeyUsersListLimit); raw != "" {
		limit, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyUsersListLimit, parseErr)
		}
		cfg.UsersListLimit = limit
	}

	if raw := env(KeyHTTPPort); raw != "" {
		port, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		cfg.HTTPPort = port
	}

	if err := cfg.validate(service); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks value ranges and formats. Errors are keyed by environment
// variable. Zero numbers count as blank, so numeric keys carry Required.
func (c Config) Validate() error {
	return c.validate(true)
}

func (c Config) validate(service bool) error {
	mongo := c.StatsBackend == BackendMongo
	oauth := c.OAuthTokenURL != ""

	return validation.Errors{
		KeyAppEnv:          validation.Validate(c.AppEnv, validation.In(EnvDevelopment, EnvProduction)),
		KeyTelegramToken:   validation.Validate(c.TelegramToken, validation.Required.When(service)),
		KeyJokesAPIURL:     validation.Validate(c.JokesAPIURL, validation.Required.When(service), is.URL),
		KeyJokesAPITimeout: validation.Validate(c.JokesAPITimeout, validation.Required, validation.Min(time.Second), validation.Max(maxJokesAPITimeout)),
		KeyOAuthTokenURL:   validation.Validate(c.OAuthTokenURL, is.URL),
		KeyBotEmail:        validation.Validate(c.BotEmail, is.EmailFormat),
		KeyBotGitHub:       validation.Validate(c.BotGitHub, is.URL),
		KeyOAuthClientID:   validation.Validate(c.OAuthClientID, validation.Required.When(oauth)),
		KeyStatsBackend:    validation.Validate(c.StatsBackend, validation.In(BackendFile, BackendMongo)),
		KeyStatsDataDir:    validation.Validate(c.StatsDataDir, validation.Required.When(!mongo)),
		KeyMongoURI:        validation.Validate(c.MongoURI, validation.Required.When(mongo), validation.By(mongoURIRule)),
		KeyMongoDB:         validation.Validate(c.MongoDB, validation.Required.When(mongo)),
		KeyDefaultLanguage: validation.Validate(c.DefaultLanguage, validation.Required, validation.In(languageChoices()...)),
		KeyStateTTL:        validation.Validate(c.StateTTL, validation.Min(time.Duration(0))),
		KeyUsersListLimit:  validation.Validate(c.UsersListLimit, validation.Required, validation.Min(1)),
		KeyHTTPPort:        validation.Validate(c.HTTPPort, validation.Required, validation.Min(1), validation.Max(65535)),
	}.Filter()
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// UsesMongo reports whether statistics are stored in MongoDB.
func (c Config) UsesMongo() bool {
	return c.StatsBackend == BackendMongo
}

func mongoURIRule(value interface{}) error {
	uri, _ := value.(string)
	if uri == "" {
		return nil
	}
	if strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://") {
		return nil
	}
	return errors.New("must start with mongodb:// or mongodb+srv://")
}

func languageChoices() []interface{} {
	out := make([]interface{}, 0, len(domain.SupportedLanguages))
	for _, code := range domain.SupportedLanguages {
		out = append(out, code)
	}
	return out
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
