// Package user records user interactions before a handler runs.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"tg_joke_bot/internal/domain"
	"tg_joke_bot/internal/logging"
	"tg_joke_bot/internal/stats"
)

type interactionTracker interface {
	TrackInteraction(ctx context.Context, identity stats.Identity) (domain.UserProfile, error)
	TrackCommand(ctx context.Context, userID int64, command string) error
	Aggregate() domain.BotAggregate
}

type usageCounter interface {
	IncCommand(command string)
	SetUsers(n int)
}

// Registrar keeps the profile of every user that talks to the bot up to date
// and counts the command that triggered the interaction.
type Registrar struct {
	tracker interactionTracker
	counter usageCounter
	logger  *logrus.Entry
}

// NewRegistrar constructs a Registrar backed by tracker. counter may be nil.
func NewRegistrar(tracker interactionTracker, counter usageCounter, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		tracker: tracker,
		counter: counter,
		logger:  logger,
	}
}

// Register tracks one interaction of identity and, when command is not empty,
// one use of command. It reports whether the profile was created by this call.
func (r *Registrar) Register(ctx context.Context, identity stats.Identity, command string) (bool, error) {
	if r == nil || r.tracker == nil {
		return false, errors.New("user registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if identity.UserID == 0 {
		return false, errors.New("user id is required")
	}

	profile, err := r.tracker.TrackInteraction(ctx, identity)
	if err != nil {
		return false, fmt.Errorf("track interaction: %w", err)
	}

	command = strings.TrimSpace(command)
	if command != "" {
		if err := r.tracker.TrackCommand(ctx, identity.UserID, command); err != nil {
			return false, fmt.Errorf("track command: %w", err)
		}
		if r.counter != nil {
			r.counter.IncCommand(command)
		}
	}

	created := profile.MessageCount == 1
	if created {
		if r.counter != nil {
			r.counter.SetUsers(r.tracker.Aggregate().TotalUsers)
		}
		r.logger.WithFields(logging.Fields{
			"event":   "user_registered",
			"user_id": identity.UserID,
		}).Info("registered new user")
		return true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":   "user_seen",
		"user_id": identity.UserID,
		"command": command,
	}).Debug("tracked user interaction")

	return false, nil
}
