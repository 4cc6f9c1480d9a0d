// Package i18n resolves localized bot messages from per-language JSON tables.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"tg_joke_bot/internal/domain"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// EmbeddedLocales returns the locale tables compiled into the binary, one
// <code>.json file per supported language at the root.
func EmbeddedLocales() fs.FS {
	sub, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		panic(fmt.Sprintf("embedded locales: %v", err))
	}
	return sub
}

// LocalesFS returns os.DirFS(dir) when dir is set and the embedded tables otherwise.
func LocalesFS(dir string) fs.FS {
	if strings.TrimSpace(dir) == "" {
		return EmbeddedLocales()
	}
	return os.DirFS(dir)
}

// Localizer translates keys with a language -> default language -> key fallback.
type Localizer struct {
	mu              sync.RWMutex
	defaultLanguage string
	localizers      map[string]*goi18n.Localizer
	// sources holds every parsed file per language in load order.
	sources map[string][]source
	logger  *logrus.Entry
}

type source struct {
	name string
	data []byte
}

// New returns an empty Localizer. Call Load before translating.
func New(defaultLanguage string, logger *logrus.Entry) (*Localizer, error) {
	defaultLanguage = domain.NormalizeLanguage(defaultLanguage)
	if !domain.IsSupportedLanguage(defaultLanguage) {
		return nil, fmt.Errorf("unsupported default language %q", defaultLanguage)
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Localizer{
		defaultLanguage: defaultLanguage,
		localizers:      make(map[string]*goi18n.Localizer),
		sources:         make(map[string][]source),
		logger:          logger,
	}, nil
}

// Load reads <code>.json from fsys for every supported language and layers it
// over the tables loaded before, so a later file wins key by key and languages
// it does not mention keep their earlier tables. A file that is missing or
// malformed is logged and left out; Load only fails when fsys yields no table.
func (l *Localizer) Load(fsys fs.FS) error {
	if l == nil {
		return errors.New("localizer is not initialized")
	}
	if fsys == nil {
		return errors.New("locales filesystem is required")
	}

	l.mu.RLock()
	sources := make(map[string][]source, len(l.sources))
	for code, files := range l.sources {
		sources[code] = append([]source(nil), files...)
	}
	l.mu.RUnlock()

	read := 0
	for _, code := range domain.SupportedLanguages {
		name := code + ".json"
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			l.logger.WithFields(logrus.Fields{"event": "locale_load_failed", "lang": code}).WithError(err).Warn("locale file not loaded")
			continue
		}
		if _, err := newBundle(code, []source{{name: name, data: data}}); err != nil {
			l.logger.WithFields(logrus.Fields{"event": "locale_load_failed", "lang": code}).WithError(err).Warn("locale file not parsed")
			continue
		}

		sources[code] = append(sources[code], source{name: name, data: data})
		read++
	}

	if read == 0 {
		return errors.New("no locale tables loaded")
	}

	localizers := make(map[string]*goi18n.Localizer, len(sources))
	for code, files := range sources {
		bundle, err := newBundle(code, files)
		if err != nil {
			return fmt.Errorf("build %s locale: %w", code, err)
		}
		localizers[code] = goi18n.NewLocalizer(bundle, code)
	}

	l.mu.Lock()
	l.sources = sources
	l.localizers = localizers
	l.mu.Unlock()

	l.logger.WithFields(logrus.Fields{
		"event":     "locales_loaded",
		"files":     read,
		"languages": len(localizers),
	}).Info("locale tables loaded")
	return nil
}

// newBundle parses files into one bundle for code. One bundle per language
// keeps go-i18n from substituting another language on a miss, so the fallback
// order stays explicit.
func newBundle(code string, files []source) (*goi18n.Bundle, error) {
	tag, err := language.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("invalid language tag: %w", err)
	}

	bundle := goi18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, f := range files {
		if _, err := bundle.ParseMessageFileBytes(f.data, f.name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.name, err)
		}
	}
	return bundle, nil
}

// DefaultLanguage returns the configured fallback language code.
func (l *Localizer) DefaultLanguage() string {
	if l == nil {
		return domain.LanguageUkrainian
	}
	return l.defaultLanguage
}

// Loaded reports whether a table for lang was loaded.
func (l *Localizer) Loaded(lang string) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.localizers[domain.NormalizeLanguage(lang)]
	return ok
}

// Translate resolves key for lang. It never fails: the worst case is the key itself.
func (l *Localizer) Translate(key Key, lang string) string {
	return l.TranslateWith(key, lang, nil)
}

// TranslateWith resolves key for lang and executes its template with data.
func (l *Localizer) TranslateWith(key Key, lang string, data map[string]any) string {
	if l == nil {
		return string(key)
	}

	lang = domain.NormalizeLanguage(lang)
	if text, ok := l.lookup(key, lang, data); ok {
		return text
	}
	if lang != l.defaultLanguage {
		if text, ok := l.lookup(key, l.defaultLanguage, data); ok {
			return text
		}
	}

	return string(key)
}

func (l *Localizer) lookup(key Key, lang string, data map[string]any) (string, bool) {
	l.mu.RLock()
	localizer, ok := l.localizers[lang]
	l.mu.RUnlock()
	if !ok {
		return "", false
	}

	text, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    string(key),
		TemplateData: data,
	})
	if err != nil || text == "" {
		return "", false
	}

	return text, true
}
