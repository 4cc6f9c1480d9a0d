package user

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/stats"
)

type fakeTracker struct {
	profiles    map[int64]domain.UserProfile
	commands    []string
	trackErr    error
	commandErr  error
	interaction int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{profiles: map[int64]domain.UserProfile{}}
}

func (f *fakeTracker) TrackInteraction(_ context.Context, identity stats.Identity) (domain.UserProfile, error) {
	if f.trackErr != nil {
		return domain.UserProfile{}, f.trackErr
	}
	f.interaction++
	profile := f.profiles[identity.UserID]
	profile.UserID = identity.UserID
	profile.FirstName = identity.FirstName
	profile.MessageCount++
	f.profiles[identity.UserID] = profile
	return profile, nil
}

func (f *fakeTracker) TrackCommand(_ context.Context, _ int64, command string) error {
	if f.commandErr != nil {
		return f.commandErr
	}
	f.commands = append(f.commands, command)
	return nil
}

func (f *fakeTracker) Aggregate() domain.BotAggregate {
	return domain.BotAggregate{TotalUsers: len(f.profiles)}
}

type fakeCounter struct {
	commands map[string]int
	users    int
}

func (f *fakeCounter) SetUsers(n int) {
	f.users = n
}

func (f *fakeCounter) IncCommand(command string) {
	if f.commands == nil {
		f.commands = map[string]int{}
	}
	f.commands[command]++
}

func newRegistrar(t *testing.T) (*Registrar, *fakeTracker, *fakeCounter, *logtest.Hook) {
	t.Helper()

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	tracker := newFakeTracker()
	counter := &fakeCounter{}
	return NewRegistrar(tracker, counter, logrus.NewEntry(logger)), tracker, counter, hook
}

func TestRegisterCreatesNewUser(t *testing.T) {
	registrar, tracker, counter, hook := newRegistrar(t)

	created, err := registrar.Register(context.Background(), stats.Identity{UserID: 123, FirstName: "Ada"}, "/start")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !created {
		t.Fatalf("expected created to be true for new user")
	}

	if len(tracker.commands) != 1 || tracker.commands[0] != "/start" {
		t.Fatalf("expected /start to be tracked, got %v", tracker.commands)
	}
	if counter.commands["/start"] != 1 {
		t.Fatalf("expected command metric, got %v", counter.commands)
	}
	if counter.users != 1 {
		t.Fatalf("expected users gauge 1, got %d", counter.users)
	}

	entry := hook.LastEntry()
	if entry.Data["event"] != "user_registered" || entry.Data["user_id"] != int64(123) {
		t.Fatalf("unexpected log entry %v", entry.Data)
	}
	if entry.Level != logrus.InfoLevel {
		t.Fatalf("expected info level, got %s", entry.Level)
	}
}

func TestRegisterExistingUser(t *testing.T) {
	registrar, tracker, _, hook := newRegistrar(t)
	ctx := context.Background()
	identity := stats.Identity{UserID: 7}

	if _, err := registrar.Register(ctx, identity, "/start"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	created, err := registrar.Register(ctx, identity, "message")
	if err != nil {
		t.Fatalf("second Register returned error: %v", err)
	}
	if created {
		t.Fatalf("expected created to be false for existing user")
	}
	if tracker.profiles[7].MessageCount != 2 {
		t.Fatalf("expected two interactions, got %d", tracker.profiles[7].MessageCount)
	}

	entry := hook.LastEntry()
	if entry.Data["event"] != "user_seen" || entry.Data["command"] != "message" {
		t.Fatalf("unexpected log entry %v", entry.Data)
	}
}

func TestRegisterWithoutCommandOnlyTracksInteraction(t *testing.T) {
	registrar, tracker, counter, _ := newRegistrar(t)

	if _, err := registrar.Register(context.Background(), stats.Identity{UserID: 5}, "  "); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if tracker.interaction != 1 {
		t.Fatalf("expected one interaction, got %d", tracker.interaction)
	}
	if len(tracker.commands) != 0 || len(counter.commands) != 0 {
		t.Fatalf("expected no command tracking, got %v / %v", tracker.commands, counter.commands)
	}
}

func TestRegisterWithoutCounter(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	tracker := newFakeTracker()
	registrar := NewRegistrar(tracker, nil, logrus.NewEntry(logger))

	if _, err := registrar.Register(context.Background(), stats.Identity{UserID: 5}, "/help"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if len(tracker.commands) != 1 {
		t.Fatalf("expected command to be tracked without a counter")
	}
}

func TestRegisterPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")

	registrar, tracker, _, _ := newRegistrar(t)
	tracker.trackErr = boom
	if _, err := registrar.Register(context.Background(), stats.Identity{UserID: 1}, "/start"); !errors.Is(err, boom) {
		t.Fatalf("expected interaction error, got %v", err)
	}

	registrar, tracker, counter, _ := newRegistrar(t)
	tracker.commandErr = boom
	if _, err := registrar.Register(context.Background(), stats.Identity{UserID: 1}, "/start"); !errors.Is(err, boom) {
		t.Fatalf("expected command error, got %v", err)
	}
	if len(counter.commands) != 0 {
		t.Fatalf("expected no metric when tracking fails")
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	registrar, _, _, _ := newRegistrar(t)

	//nolint:staticcheck // nil context is part of the contract under test.
	if _, err := registrar.Register(nil, stats.Identity{UserID: 1}, ""); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := registrar.Register(context.Background(), stats.Identity{}, ""); err == nil {
		t.Fatalf("expected error for zero user id")
	}

	var nilRegistrar *Registrar
	if _, err := nilRegistrar.Register(context.Background(), stats.Identity{UserID: 1}, ""); err == nil {
		t.Fatalf("expected error for nil registrar")
	}
}
