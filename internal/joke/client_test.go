package joke

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_joke_bot/internal/i18n"
)

type stubTranslator struct{}

func (stubTranslator) Translate(key i18n.Key, lang string) string {
	return "[" + lang + "] " + string(key)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveJokeRequest(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

type capturedRequest struct {
	method string
	path   string
	header http.Header
	body   request
}

func newTestClient(t *testing.T, server *httptest.Server, mutate func(*Options)) (*Client, *logtest.Hook, *recordingObserver) {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	observer := &recordingObserver{}
	opts := Options{
		BaseURL:         server.URL + "/",
		Endpoint:        "api/getJoke",
		Timeout:         2 * time.Second,
		DefaultLanguage: "uk",
		UserAgent:       "tg-joke-bot/test",
		Translator:      stubTranslator{},
		Observer:        observer,
		Logger:          logrus.NewEntry(logger),
	}
	if mutate != nil {
		mutate(&opts)
	}

	client, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client, hook, observer
}

func jokeServer(t *testing.T, status int, body string, captured chan<- capturedRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if captured != nil {
			captured <- capturedRequest{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: req}
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchJokeSendsRequestAndFormatsResponse(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	server := jokeServer(t, http.StatusOK, `{"response":"Why did the <cat> cross the road?"}`, captured)
	client, hook, observer := newTestClient(t, server, func(o *Options) {
		o.TokenSource = NewTokenSource(context.Background(), AuthConfig{APIKey: "secret"})
	})

	text, err := client.FetchJoke(context.Background(), "cat joke", "pl")
	if err != nil {
		t.Fatalf("FetchJoke returned error: %v", err)
	}

	want := "[pl] joke_heading\n\nWhy did the &lt;cat&gt; cross the road?"
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}

	req := <-captured
	if req.method != http.MethodPost || req.path != "/api/getJoke" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if req.body.Input != "cat joke" || req.body.Language != "Polish" {
		t.Fatalf("unexpected body %+v", req.body)
	}
	if got := req.header.Get("Authorization"); got != "Bearer secret" {
		t.Fatalf("expected static bearer token, got %q", got)
	}
	if got := req.header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type, got %q", got)
	}
	if got := req.header.Get("User-Agent"); got != "tg-joke-bot/test" {
		t.Fatalf("expected user agent, got %q", got)
	}

	if hook.LastEntry().Data["event"] != "joke_fetched" {
		t.Fatalf("expected joke_fetched log, got %v", hook.LastEntry().Data)
	}
	if len(observer.outcomes) != 1 || observer.outcomes[0] != "success" {
		t.Fatalf("expected success outcome, got %v", observer.outcomes)
	}
}

func TestFetchJokeFallsBackThroughFields(t *testing.T) {
	server := jokeServer(t, http.StatusOK, `{"response":"","joke":"  ","text":42,"content":"Knock knock"}`, nil)
	client, _, _ := newTestClient(t, server, nil)

	text, err := client.FetchJoke(context.Background(), "x", "en")
	if err != nil {
		t.Fatalf("FetchJoke returned error: %v", err)
	}
	if !strings.HasSuffix(text, "\n\nKnock knock") {
		t.Fatalf("expected content field, got %q", text)
	}
}

func TestFetchJokeClassifiesFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		reason Reason
	}{
		{"unauthorized", http.StatusUnauthorized, `{}`, ReasonAuth},
		{"forbidden", http.StatusForbidden, `{}`, ReasonAuth},
		{"not found", http.StatusNotFound, `{}`, ReasonNotFound},
		{"server error", http.StatusInternalServerError, `boom`, ReasonUpstream},
		{"bad gateway", http.StatusBadGateway, ``, ReasonUpstream},
		{"teapot", http.StatusTeapot, ``, ReasonUnexpectedStatus},
		{"empty body", http.StatusOK, ``, ReasonBadResponse},
		{"no fields", http.StatusOK, `{"other":"x"}`, ReasonBadResponse},
		{"not json", http.StatusOK, `haha`, ReasonBadResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := jokeServer(t, tc.status, tc.body, nil)
			client, hook, observer := newTestClient(t, server, nil)

			_, err := client.FetchJoke(context.Background(), "x", "uk")
			if !errors.Is(err, ErrNoJoke) {
				t.Fatalf("expected ErrNoJoke, got %v", err)
			}

			var jokeErr *Error
			if !errors.As(err, &jokeErr) || jokeErr.Reason != tc.reason {
				t.Fatalf("expected reason %s, got %v", tc.reason, err)
			}

			entry := hook.LastEntry()
			if entry.Data["event"] != "joke_fetch_failed" || entry.Data["reason"] != string(tc.reason) {
				t.Fatalf("expected failure log with reason, got %v", entry.Data)
			}
			if observer.outcomes[0] != string(tc.reason) {
				t.Fatalf("expected outcome %s, got %v", tc.reason, observer.outcomes)
			}
		})
	}
}

func TestFetchJokeTimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, _, _ := newTestClient(t, server, func(o *Options) { o.Timeout = 50 * time.Millisecond })

	_, err := client.FetchJoke(context.Background(), "x", "uk")
	if !errors.Is(err, ErrNoJoke) {
		t.Fatalf("expected ErrNoJoke, got %v", err)
	}
	var jokeErr *Error
	if !errors.As(err, &jokeErr) || jokeErr.Reason != ReasonTransport || !jokeErr.Timeout {
		t.Fatalf("expected transport timeout, got %#v", err)
	}
}

func TestFetchJokeConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Options{BaseURL: url, Translator: stubTranslator{}, Logger: logrus.NewEntry(logrus.New())})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = client.FetchJoke(context.Background(), "x", "uk")
	var jokeErr *Error
	if !errors.As(err, &jokeErr) || jokeErr.Reason != ReasonTransport {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestFetchJokeUsesClientCredentials(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"dynamic","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenServer.Close)

	captured := make(chan capturedRequest, 1)
	server := jokeServer(t, http.StatusOK, `{"response":"ok"}`, captured)
	client, _, _ := newTestClient(t, server, func(o *Options) {
		o.TokenSource = NewTokenSource(context.Background(), AuthConfig{
			APIKey:       "ignored",
			TokenURL:     tokenServer.URL,
			ClientID:     "bot",
			ClientSecret: "s3cret",
		})
	})

	if _, err := client.FetchJoke(context.Background(), "x", "en"); err != nil {
		t.Fatalf("FetchJoke returned error: %v", err)
	}
	if got := (<-captured).header.Get("Authorization"); got != "Bearer dynamic" {
		t.Fatalf("expected dynamic bearer token, got %q", got)
	}
}

func TestFetchJokeTokenFailureIsAuth(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(tokenServer.Close)

	server := jokeServer(t, http.StatusOK, `{"response":"ok"}`, nil)
	client, _, _ := newTestClient(t, server, func(o *Options) {
		o.TokenSource = NewTokenSource(context.Background(), AuthConfig{TokenURL: tokenServer.URL, ClientID: "bot"})
	})

	_, err := client.FetchJoke(context.Background(), "x", "en")
	var jokeErr *Error
	if !errors.As(err, &jokeErr) || jokeErr.Reason != ReasonAuth {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestNewTokenSourceWithoutCredentials(t *testing.T) {
	if ts := NewTokenSource(context.Background(), AuthConfig{}); ts != nil {
		t.Fatalf("expected nil token source, got %T", ts)
	}
}

func TestLanguageName(t *testing.T) {
	cases := map[string]string{
		"uk": "Ukrainian",
		"en": "English",
		"pl": "Polish",
		"de": "Ukrainian",
	}
	for code, want := range cases {
		if got := LanguageName(code, "uk"); got != want {
			t.Fatalf("LanguageName(%q) = %q, want %q", code, got, want)
		}
	}
	if got := LanguageName("de", "en"); got != "English" {
		t.Fatalf("expected fallback name English, got %q", got)
	}
}

func TestNewClientValidatesOptions(t *testing.T) {
	if _, err := NewClient(Options{Translator: stubTranslator{}}); err == nil {
		t.Fatalf("expected error for missing base url")
	}
	if _, err := NewClient(Options{BaseURL: "http://x"}); err == nil {
		t.Fatalf("expected error for missing translator")
	}

	client, err := NewClient(Options{BaseURL: "http://jokes.local/", Translator: stubTranslator{}})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if client.URL() != "http://jokes.local/api/getJoke" {
		t.Fatalf("unexpected url %q", client.URL())
	}
}
