// Package state tracks short-lived per-user conversation state in memory.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maypok86/otter"
)

// DefaultCapacity bounds how many users can hold a non-normal state at once.
const DefaultCapacity = 10_000

// State is the conversational mode that decides how the next free-text message is read.
type State int

const (
	// Normal is the implicit state of every user without an entry.
	Normal State = iota
	// AwaitingJokePrompt means the next free-text message is a joke topic.
	AwaitingJokePrompt
)

// String returns the log-friendly name of s.
func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case AwaitingJokePrompt:
		return "awaiting_joke_prompt"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type entry struct {
	state   State
	context any
}

// Tracker maps user IDs to their conversation state. Entries live until cleared,
// until ttl elapses when ttl is positive, or until the capacity bound evicts them.
type Tracker struct {
	// mu makes read-then-delete transitions atomic per tracker.
	mu    sync.Mutex
	cache otter.Cache[int64, entry]
	ttl   time.Duration
}

// NewTracker builds a Tracker. A non-positive capacity uses DefaultCapacity and a
// non-positive ttl disables expiry.
func NewTracker(capacity int, ttl time.Duration) (*Tracker, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	var (
		cache otter.Cache[int64, entry]
		err   error
	)
	if ttl > 0 {
		cache, err = otter.MustBuilder[int64, entry](capacity).WithTTL(ttl).Build()
	} else {
		cache, err = otter.MustBuilder[int64, entry](capacity).Build()
	}
	if err != nil {
		return nil, fmt.Errorf("create state cache with capacity %d: %w", capacity, err)
	}

	return &Tracker{cache: cache, ttl: ttl}, nil
}

// SetState overwrites the state of userID. ctx is an opaque value returned by GetState.
func (t *Tracker) SetState(userID int64, s State, ctx any) error {
	if t == nil {
		return errors.New("state tracker is not initialized")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.cache.Set(userID, entry{state: s, context: ctx}) {
		return fmt.Errorf("state cache rejected user %d", userID)
	}
	return nil
}

// GetState returns the state of userID, or (Normal, nil) when none is stored.
func (t *Tracker) GetState(userID int64) (State, any) {
	if t == nil {
		return Normal, nil
	}
	e, ok := t.cache.Get(userID)
	if !ok {
		return Normal, nil
	}
	return e.state, e.context
}

// IsAwaitingJokePrompt reports whether userID's next free-text message is a joke topic.
func (t *Tracker) IsAwaitingJokePrompt(userID int64) bool {
	s, _ := t.GetState(userID)
	return s == AwaitingJokePrompt
}

// ConsumeJokePrompt clears userID's state and reports true only when it was
// AwaitingJokePrompt. Of two concurrent callers at most one gets true.
func (t *Tracker) ConsumeJokePrompt(userID int64) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.cache.Get(userID)
	if !ok || e.state != AwaitingJokePrompt {
		return false
	}
	t.cache.Delete(userID)
	return true
}

// ClearState removes any entry for userID.
func (t *Tracker) ClearState(userID int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Delete(userID)
}

// Size returns the number of users with a stored entry.
func (t *Tracker) Size() int {
	if t == nil {
		return 0
	}
	return t.cache.Size()
}

// TTL returns the configured expiry, zero when entries never expire.
func (t *Tracker) TTL() time.Duration {
	if t == nil {
		return 0
	}
	return t.ttl
}

// Close stops the cache's background maintenance.
func (t *Tracker) Close() {
	if t == nil {
		return
	}
	t.cache.Close()
}
