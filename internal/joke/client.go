// Package joke calls the external joke-generation API.
package joke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/i18n"
)

const (
	// DefaultEndpoint is appended to the base URL when no endpoint is configured.
	DefaultEndpoint = "/api/getJoke"
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// responseFields are tried in order when looking for the joke text.
var responseFields = []string{"response", "joke", "text", "content", "message"}

// Translator resolves the localized joke heading.
type Translator interface {
	Translate(key i18n.Key, lang string) string
}

// Observer records request outcomes.
type Observer interface {
	ObserveJokeRequest(outcome string, duration time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Endpoint string
	Timeout  time.Duration
	// TokenSource supplies the bearer token; nil sends no Authorization header.
	TokenSource     oauth2.TokenSource
	UserAgent       string
	DefaultLanguage string
	Translator      Translator
	Observer        Observer
	Logger          *logrus.Entry
	// Transport overrides the base HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// Client posts prompts to the joke API.
type Client struct {
	url             string
	http            *http.Client
	userAgent       string
	defaultLanguage string
	translator      Translator
	observer        Observer
	logger          *logrus.Entry
}

type request struct {
	Input    string `json:"input"`
	Language string `json:"language"`
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("joke api base url is required")
	}
	if opts.Translator == nil {
		return nil, errors.New("joke translator is required")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.TokenSource != nil {
		transport = &oauth2.Transport{Source: opts.TokenSource, Base: transport}
	}

	defaultLanguage := domain.NormalizeLanguage(opts.DefaultLanguage)
	if !domain.IsSupportedLanguage(defaultLanguage) {
		defaultLanguage = domain.LanguageUkrainian
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		url:             base + endpoint,
		http:            &http.Client{Timeout: timeout, Transport: transport},
		userAgent:       opts.UserAgent,
		defaultLanguage: defaultLanguage,
		translator:      opts.Translator,
		observer:        opts.Observer,
		logger:          logger,
	}, nil
}

// URL returns the full request URL.
func (c *Client) URL() string {
	return c.url
}

// LanguageName maps a language code to the English name the API expects.
// Unsupported codes map to the name of fallback.
func LanguageName(code, fallback string) string {
	code = domain.NormalizeLanguage(code)
	if !domain.IsSupportedLanguage(code) {
		code = domain.NormalizeLanguage(fallback)
	}
	tag, err := language.Parse(code)
	if err != nil {
		tag = language.Ukrainian
	}
	return display.English.Languages().Name(tag)
}

// FetchJoke asks the API for a joke about userText in lang and returns it
// formatted under a localized heading. Every failure satisfies
// errors.Is(err, ErrNoJoke); the *Error carries the reason for logs.
func (c *Client) FetchJoke(ctx context.Context, userText, lang string) (string, error) {
	if c == nil {
		return "", &Error{Reason: ReasonTransport, Err: errors.New("joke client is not initialized")}
	}
	if ctx == nil {
		return "", &Error{Reason: ReasonTransport, Err: errors.New("context is required")}
	}

	started := time.Now()
	text, err := c.fetch(ctx, userText, lang)
	c.observe(err, time.Since(started))

	log := c.logger.WithFields(logrus.Fields{"lang": lang})
	if err != nil {
		var jokeErr *Error
		if errors.As(err, &jokeErr) {
			log = log.WithFields(logrus.Fields{"reason": string(jokeErr.Reason), "status": jokeErr.StatusCode})
		}
		log.WithField("event", "joke_fetch_failed").WithError(err).Error("joke not fetched")
		return "", err
	}

	log.WithField("event", "joke_fetched").Info("joke fetched")
	return c.translator.Translate(i18n.KeyJokeHeading, lang) + "\n\n" + html.EscapeString(text), nil
}

func (c *Client) fetch(ctx context.Context, userText, lang string) (string, error) {
	body, err := json.Marshal(request{Input: userText, Language: LanguageName(lang, c.defaultLanguage)})
	if err != nil {
		return "", &Error{Reason: ReasonBadResponse, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Reason: ReasonTransport, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Reason: ReasonTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, payload)
	}

	text, err := extractJoke(payload)
	if err != nil {
		return "", &Error{Reason: ReasonBadResponse, StatusCode: resp.StatusCode, Err: err}
	}
	return text, nil
}

func (c *Client) observe(err error, d time.Duration) {
	if c.observer == nil {
		return
	}
	outcome := "success"
	var jokeErr *Error
	if errors.As(err, &jokeErr) {
		outcome = string(jokeErr.Reason)
	} else if err != nil {
		outcome = string(ReasonTransport)
	}
	c.observer.ObserveJokeRequest(outcome, d)
}

// extractJoke returns the first non-empty string among responseFields.
func extractJoke(payload []byte) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	for _, name := range responseFields {
		value, ok := fields[name].(string)
		if !ok {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, nil
		}
	}

	return "", errors.New("response has no joke text")
}
