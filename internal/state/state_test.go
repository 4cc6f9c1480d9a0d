package state

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestTracker(t *testing.T, ttl time.Duration) *Tracker {
	t.Helper()

	tracker, err := NewTracker(0, ttl)
	if err != nil {
		t.Fatalf("NewTracker returned error: %v", err)
	}
	t.Cleanup(tracker.Close)
	return tracker
}

func TestGetStateDefaultsToNormal(t *testing.T) {
	tracker := newTestTracker(t, 0)

	s, ctx := tracker.GetState(42)
	if s != Normal || ctx != nil {
		t.Fatalf("expected (Normal, nil), got (%v, %v)", s, ctx)
	}
	if tracker.IsAwaitingJokePrompt(42) {
		t.Fatalf("expected untouched user not to await a prompt")
	}
}

func TestSetStateOverwritesAndClearRemoves(t *testing.T) {
	tracker := newTestTracker(t, 0)

	if err := tracker.SetState(42, AwaitingJokePrompt, 1001); err != nil {
		t.Fatalf("SetState returned error: %v", err)
	}
	s, ctx := tracker.GetState(42)
	if s != AwaitingJokePrompt || ctx != 1001 {
		t.Fatalf("expected (AwaitingJokePrompt, 1001), got (%v, %v)", s, ctx)
	}
	if !tracker.IsAwaitingJokePrompt(42) {
		t.Fatalf("expected user to await a prompt")
	}

	if err := tracker.SetState(42, Normal, nil); err != nil {
		t.Fatalf("SetState returned error: %v", err)
	}
	if tracker.IsAwaitingJokePrompt(42) {
		t.Fatalf("expected Normal after overwrite")
	}
	if tracker.Size() != 1 {
		t.Fatalf("expected explicit Normal entry to be stored, size=%d", tracker.Size())
	}

	tracker.ClearState(42)
	if tracker.Size() != 0 {
		t.Fatalf("expected entry to be removed, size=%d", tracker.Size())
	}
}

func TestStatesAreIsolatedPerUser(t *testing.T) {
	tracker := newTestTracker(t, 0)

	if err := tracker.SetState(1, AwaitingJokePrompt, nil); err != nil {
		t.Fatalf("SetState returned error: %v", err)
	}
	if tracker.IsAwaitingJokePrompt(2) {
		t.Fatalf("expected user 2 to be unaffected")
	}
}

func TestStateExpiresWithTTL(t *testing.T) {
	tracker := newTestTracker(t, 50*time.Millisecond)

	if err := tracker.SetState(42, AwaitingJokePrompt, nil); err != nil {
		t.Fatalf("SetState returned error: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for tracker.IsAwaitingJokePrompt(42) {
		if time.Now().After(deadline) {
			t.Fatalf("expected state to expire")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNilTrackerIsSafe(t *testing.T) {
	var tracker *Tracker

	if err := tracker.SetState(1, AwaitingJokePrompt, nil); err == nil {
		t.Fatalf("expected error for nil tracker")
	}
	if s, _ := tracker.GetState(1); s != Normal {
		t.Fatalf("expected Normal from nil tracker, got %v", s)
	}
	tracker.ClearState(1)
	tracker.Close()
}

func TestStateString(t *testing.T) {
	if AwaitingJokePrompt.String() != "awaiting_joke_prompt" {
		t.Fatalf("unexpected name %q", AwaitingJokePrompt.String())
	}
}

func TestConsumeJokePrompt(t *testing.T) {
	tracker := newTestTracker(t, 0)

	if tracker.ConsumeJokePrompt(42) {
		t.Fatalf("expected nothing to consume for an untouched user")
	}

	if err := tracker.SetState(42, Normal, nil); err != nil {
		t.Fatalf("SetState returned error: %v", err)
	}
	if tracker.ConsumeJokePrompt(42) {
		t.Fatalf("expected Normal not to be consumed")
	}
	if s, _ := tracker.GetState(42); s != Normal {
		t.Fatalf("expected Normal entry to stay, got %v", s)
	}

	if err := tracker.SetState(42, AwaitingJokePrompt, 7); err != nil {
		t.Fatalf("SetState returned error: %v", err)
	}
	if !tracker.ConsumeJokePrompt(42) {
		t.Fatalf("expected awaiting state to be consumed")
	}
	if tracker.IsAwaitingJokePrompt(42) || tracker.ConsumeJokePrompt(42) {
		t.Fatalf("expected prompt to be consumed once")
	}

	var nilTracker *Tracker
	if nilTracker.ConsumeJokePrompt(42) {
		t.Fatalf("expected nil tracker to consume nothing")
	}
}

func TestConsumeJokePromptIsExclusive(t *testing.T) {
	tracker := newTestTracker(t, 0)
	if err := tracker.SetState(42, AwaitingJokePrompt, nil); err != nil {
		t.Fatalf("SetState returned error: %v", err)
	}

	var (
		wg       sync.WaitGroup
		consumed atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tracker.ConsumeJokePrompt(42) {
				consumed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := consumed.Load(); got != 1 {
		t.Fatalf("expected exactly one consumer, got %d", got)
	}
}
