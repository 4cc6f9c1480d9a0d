// Package stats owns user profiles and bot-wide usage counters and renders
// them as localized summaries.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/i18n"
)

var (
	// ErrUnknownUser is returned when an operation needs a tracked profile.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUnsupportedLanguage is returned for language codes the bot cannot speak.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Persister loads and stores complete statistics snapshots.
type Persister interface {
	Load(ctx context.Context) (domain.Snapshot, error)
	Save(ctx context.Context, snapshot domain.Snapshot) error
}

// Translator resolves localized labels.
type Translator interface {
	Translate(key i18n.Key, lang string) string
	TranslateWith(key i18n.Key, lang string, data map[string]any) string
}

// Identity carries the user fields a tracked interaction may update.
type Identity struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// Options configures a Store.
type Options struct {
	Persister       Persister
	Translator      Translator
	DefaultLanguage string
	Logger          *logrus.Entry
	// Now overrides the clock; nil uses time.Now.
	Now func() time.Time
}

// Store is the in-memory authority for statistics. Every mutation is written
// through to the Persister; write failures are logged and do not roll back memory.
type Store struct {
	mu      sync.Mutex
	users   map[int64]*domain.UserProfile
	bot     domain.BotAggregate
	version uint64

	saveMu      sync.Mutex
	attempted   uint64
	persistErr  error
	persistedAt time.Time

	persister       Persister
	translator      Translator
	defaultLanguage string
	logger          *logrus.Entry
	now             func() time.Time
}

// New loads prior statistics through opts.Persister and marks a restart. Load
// failures are logged and the store starts empty.
func New(ctx context.Context, opts Options) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if opts.Persister == nil {
		return nil, errors.New("stats persister is required")
	}
	if opts.Translator == nil {
		return nil, errors.New("stats translator is required")
	}

	defaultLanguage := domain.NormalizeLanguage(opts.DefaultLanguage)
	if defaultLanguage == "" {
		defaultLanguage = domain.LanguageUkrainian
	}
	if !domain.IsSupportedLanguage(defaultLanguage) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, defaultLanguage)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		users:           make(map[int64]*domain.UserProfile),
		persister:       opts.Persister,
		translator:      opts.Translator,
		defaultLanguage: defaultLanguage,
		logger:          logger,
		now:             now,
	}

	s.load(ctx)
	return s, nil
}

func (s *Store) load(ctx context.Context) {
	started := domain.NewTimestamp(s.now())

	snapshot, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"event": "stats_load_failed"}).WithError(err).Error("statistics not loaded, starting empty")
		snapshot = domain.Snapshot{}
	}

	for id, profile := range snapshot.Users {
		p := profile.Clone()
		p.UserID = id
		s.users[id] = &p
	}

	if snapshot.Bot != nil {
		s.bot = snapshot.Bot.Clone()
		s.bot.LastRestart = started
	} else {
		s.bot = domain.BotAggregate{StartTime: started, LastRestart: started}
	}

	s.logger.WithFields(logrus.Fields{
		"event": "stats_loaded",
		"users": len(s.users),
	}).Info("statistics loaded")
}

// TrackInteraction records one interaction from identity, creating the profile on
// first sight, and persists the store.
func (s *Store) TrackInteraction(ctx context.Context, identity Identity) (domain.UserProfile, error) {
	if s == nil {
		return domain.UserProfile{}, errors.New("stats store is not initialized")
	}
	if ctx == nil {
		return domain.UserProfile{}, errors.New("context is required")
	}
	if identity.UserID == 0 {
		return domain.UserProfile{}, errors.New("user_id is required")
	}

	s.mu.Lock()
	now := domain.NewTimestamp(s.now())

	profile, ok := s.users[identity.UserID]
	if !ok {
		profile = &domain.UserProfile{
			UserID:       identity.UserID,
			Username:     identity.Username,
			FirstName:    identity.FirstName,
			LastName:     identity.LastName,
			FirstSeen:    now,
			LastSeen:     now,
			MessageCount: 1,
		}
		s.users[identity.UserID] = profile
		s.logger.WithFields(logrus.Fields{
			"event":   "user_tracked_new",
			"user_id": identity.UserID,
		}).Info("new user tracked")
	} else {
		// Keep last_seen monotonic if the clock steps backwards.
		if now.After(profile.LastSeen.Time) {
			profile.LastSeen = now
		}
		profile.MessageCount++
		if identity.Username != "" {
			profile.Username = identity.Username
		}
		if identity.FirstName != "" {
			profile.FirstName = identity.FirstName
		}
		if identity.LastName != "" {
			profile.LastName = identity.LastName
		}
	}

	s.bot.TotalUsers = len(s.users)
	s.bot.TotalMessages++

	result := profile.Clone()
	snapshot, version := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot, version)
	return result, nil
}

// TrackCommand counts command for userID and globally. Unknown users only
// affect the global counters.
func (s *Store) TrackCommand(ctx context.Context, userID int64, command string) error {
	if s == nil {
		return errors.New("stats store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	command = strings.TrimSpace(command)
	if command == "" {
		return errors.New("command is required")
	}

	s.mu.Lock()
	if profile, ok := s.users[userID]; ok {
		profile.CommandsUsed.Inc(command)
	}
	s.bot.TotalCommands++
	s.bot.CommandsBreakdown.Inc(command)

	snapshot, version := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot, version)
	return nil
}

// UserLanguage returns the stored language of userID or the default language.
func (s *Store) UserLanguage(userID int64) string {
	if s == nil {
		return domain.LanguageUkrainian
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if profile, ok := s.users[userID]; ok && profile.Language != "" {
		return profile.Language
	}
	return s.defaultLanguage
}

// SetUserLanguage stores lang as userID's preference and persists the store.
func (s *Store) SetUserLanguage(ctx context.Context, userID int64, lang string) error {
	if s == nil {
		return errors.New("stats store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	lang = domain.NormalizeLanguage(lang)
	if !domain.IsSupportedLanguage(lang) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	s.mu.Lock()
	profile, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("set language for user %d: %w", userID, ErrUnknownUser)
	}
	profile.Language = lang
	snapshot, version := s.commitLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot, version)
	return nil
}

// DefaultLanguage returns the language used for users without a preference.
func (s *Store) DefaultLanguage() string {
	if s == nil {
		return domain.LanguageUkrainian
	}
	return s.defaultLanguage
}

// Profile returns a copy of the profile of userID.
func (s *Store) Profile(userID int64) (domain.UserProfile, bool) {
	if s == nil {
		return domain.UserProfile{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.users[userID]
	if !ok {
		return domain.UserProfile{}, false
	}
	return profile.Clone(), true
}

// Aggregate returns a copy of the bot-wide counters.
func (s *Store) Aggregate() domain.BotAggregate {
	if s == nil {
		return domain.BotAggregate{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bot.Clone()
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() domain.Snapshot {
	if s == nil {
		return domain.Snapshot{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// PersistStatus returns the time and error of the most recent write. The error
// is nil after a successful write or when nothing has been written yet.
func (s *Store) PersistStatus() (time.Time, error) {
	if s == nil {
		return time.Time{}, errors.New("stats store is not initialized")
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.persistedAt, s.persistErr
}

// Check reports the last persist error; it lets the health server probe the store.
func (s *Store) Check(context.Context) error {
	_, err := s.PersistStatus()
	return err
}

// commitLocked numbers a mutation and returns the snapshot to persist for it.
func (s *Store) commitLocked() (domain.Snapshot, uint64) {
	s.version++
	return s.snapshotLocked(), s.version
}

func (s *Store) snapshotLocked() domain.Snapshot {
	users := make(map[int64]domain.UserProfile, len(s.users))
	for id, profile := range s.users {
		users[id] = profile.Clone()
	}
	bot := s.bot.Clone()
	return domain.Snapshot{Users: users, Bot: &bot}
}

// persist writes snapshot unless a newer one has already been written.
func (s *Store) persist(ctx context.Context, snapshot domain.Snapshot, version uint64) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if version <= s.attempted {
		return
	}
	s.attempted = version

	err := s.persister.Save(ctx, snapshot)
	s.persistedAt = s.now()
	s.persistErr = err
	if err != nil {
		s.logger.WithFields(logrus.Fields{"event": "stats_persist_failed"}).WithError(err).Error("statistics not persisted")
	}
}
