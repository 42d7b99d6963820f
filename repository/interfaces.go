// Package repository declares the storage contracts of the matching and chat
// core. Implementations live in the dynamo and memory subpackages and must
// behave identically, conditional writes included.
package repository

import (
	"context"
	"errors"
	"time"

	"vibin_matchcore/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConditionFailed is returned when a conditional write was rejected
	// because the stored record is not in the expected state.
	ErrConditionFailed = errors.New("conditional write failed")
)

type ProfileRepository interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	// IsBlocked reports whether either user has blocked the other.
	IsBlocked(ctx context.Context, a, b string) (bool, error)
}

type InteractionRepository interface {
	Get(ctx context.Context, actorID, targetID string) (*models.Interaction, error)
	// Put records in as the actor's latest action on the target, keeping the
	// original creation time and clearing any match reference. A like is
	// rejected with ErrConditionFailed when the stored record is already a
	// matched like.
	Put(ctx context.Context, in *models.Interaction) (*models.Interaction, error)
	MarkMatched(ctx context.Context, actorID, targetID, matchID string, at time.Time) error
	// ListReceived returns pending likes targeting userID, newest first.
	ListReceived(ctx context.Context, targetID string, limit int) ([]models.Interaction, error)
}

type MatchRepository interface {
	// GetOrCreate atomically inserts the active match for the canonical pair,
	// or moves an ended one back to active keeping its identity. The returned
	// record carries the status it had before the call in PreviousStatus.
	// A blocked pair fails with ErrConditionFailed.
	GetOrCreate(ctx context.Context, userLow, userHigh, reason string, now time.Time) (*models.Match, error)
	GetByID(ctx context.Context, matchID string) (*models.Match, error)
	// End moves the match to status (ended or blocked). It fails with
	// ErrConditionFailed when the match is already in that status or blocked.
	End(ctx context.Context, matchID, status, reason, endedBy string, now time.Time) (*models.Match, error)
	ListByUser(ctx context.Context, userID string) ([]models.Match, error)
	Touch(ctx context.Context, matchID string, at time.Time) error
}

type ChatRepository interface {
	// GetOrCreate inserts c unless a chat with the same ID exists and returns
	// the stored chat together with whether this call created it.
	GetOrCreate(ctx context.Context, c *models.Chat) (*models.Chat, bool, error)
	GetByID(ctx context.Context, chatID string) (*models.Chat, error)
	ListByParticipant(ctx context.Context, userID string) ([]models.Chat, error)
	UpdateSettings(ctx context.Context, chatID, userID string, patch models.SettingsPatch, now time.Time) (*models.Chat, error)
	// Hide archives the chat for userID and moves their history horizon to now.
	Hide(ctx context.Context, chatID, userID string, now time.Time) (*models.Chat, error)
	// RecordMessage moves the last-message pointer, increments unread for
	// unreadFor and un-archives the chat for unhide.
	RecordMessage(ctx context.Context, chatID string, last models.LastMessage, unreadFor, unhide []string) error
	ResetUnread(ctx context.Context, chatID, userID string, at time.Time) (*models.Chat, error)
}

type MessageRepository interface {
	// Create fails with ErrConditionFailed when the key is already taken.
	Create(ctx context.Context, m *models.Message) error
	Get(ctx context.Context, messageID string) (*models.Message, error)
	// List returns up to limit messages of chatID not hidden for viewerID and
	// created strictly after since when set, newest first, skipping offset of
	// them. hasMore reports whether older ones remain.
	List(ctx context.Context, chatID, viewerID string, since *time.Time, offset, limit int) (msgs []models.Message, hasMore bool, err error)
	// MarkDelivered moves a message from sent to delivered and reports
	// whether it did.
	MarkDelivered(ctx context.Context, key models.MessageKey, at time.Time) (bool, error)
	// MarkReadBy records a read receipt for readerID on every message in the
	// chat they did not send, have not read and can still see (not hidden for
	// them, created after since when set), returning how many changed.
	MarkReadBy(ctx context.Context, chatID, readerID string, since *time.Time, at time.Time) (int, error)
	// Edit replaces the content when the stored version equals expectVersion
	// and the message was not deleted for everyone.
	Edit(ctx context.Context, key models.MessageKey, content string, history []models.EditRecord, at time.Time, expectVersion int64) (*models.Message, error)
	// SetReaction sets userID's reaction, or removes it when r is nil.
	SetReaction(ctx context.Context, key models.MessageKey, userID string, r *models.Reaction, at time.Time) (*models.Message, error)
	AddViewer(ctx context.Context, key models.MessageKey, viewerID string, at time.Time) (*models.Message, error)
	// DeleteForUser hides the message from userID only. ErrConditionFailed
	// when it is already hidden for them.
	DeleteForUser(ctx context.Context, key models.MessageKey, userID string, at time.Time) (*models.Message, error)
	// DeleteForEveryone strips the payload. ErrConditionFailed when senderID
	// is not the sender or it was already deleted for everyone.
	DeleteForEveryone(ctx context.Context, key models.MessageKey, senderID string, at time.Time) (*models.Message, error)
	// ExpireOneView marks an expired one-view message deleted and drops its media.
	ExpireOneView(ctx context.Context, key models.MessageKey, at time.Time) error
}
