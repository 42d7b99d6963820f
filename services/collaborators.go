package services

import (
	"context"
	"errors"
	"time"

	"vibin_matchcore/logging"
	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

// Notifier dispatches push and in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Broadcaster publishes real-time events to a room.
type Broadcaster interface {
	Publish(ctx context.Context, channelID string, evt models.Event) error
}

// MediaVerifier confirms that a media reference points at a stored object.
type MediaVerifier interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Policy holds the messaging windows and paging limits.
type Policy struct {
	EditWindow              time.Duration
	DeleteForEveryoneWindow time.Duration
	OneViewTTL              time.Duration
	EditHistoryCap          int
	DeliveryDelay           time.Duration
	DefaultPageSize         int
	MaxPageSize             int
}

func DefaultPolicy() Policy {
	return Policy{
		EditWindow:              24 * time.Hour,
		DeleteForEveryoneWindow: time.Hour,
		OneViewTTL:              24 * time.Hour,
		EditHistoryCap:          10,
		DeliveryDelay:           2 * time.Second,
		DefaultPageSize:         50,
		MaxPageSize:             100,
	}
}

// pageBounds clamps a 1-based page and its size, returning the offset too.
func (p Policy) pageBounds(page, size int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = p.DefaultPageSize
	}
	if size > p.MaxPageSize {
		size = p.MaxPageSize
	}
	return page, size, (page - 1) * size
}

// notify and publish are fire-and-forget: failures are logged and never
// reach the caller of the primary operation.
func notify(ctx context.Context, n Notifier, note models.Notification) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, note); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("type", note.Type).
			Str("recipient", note.RecipientID).
			Msg("notification dispatch failed")
	}
}

func publish(ctx context.Context, b Broadcaster, channelID string, evt models.Event) {
	if b == nil {
		return
	}
	if err := b.Publish(ctx, channelID, evt); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("channel", channelID).
			Str("event", evt.Type).
			Msg("broadcast failed")
	}
}

// profileGate answers the profile service questions every write path asks.
type profileGate struct {
	profiles repository.ProfileRepository
}

func (g profileGate) requireActive(ctx context.Context, userID string) (*models.UserProfile, error) {
	p, err := g.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("profile %s", userID)
	}
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, forbidden("profile %s is not active", userID)
	}
	return p, nil
}

func (g profileGate) requireExists(ctx context.Context, userID string) error {
	_, err := g.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return notFound("profile %s", userID)
	}
	return err
}

func (g profileGate) requireNotBlocked(ctx context.Context, a, b string) error {
	blocked, err := g.profiles.IsBlocked(ctx, a, b)
	if err != nil {
		return err
	}
	if blocked {
		return forbidden("users have blocked each other")
	}
	return nil
}
