package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantSettings is one participant's private view of a chat.
type ParticipantSettings struct {
	Archived      bool       `dynamodbav:"archived" json:"archived"`
	ArchivedAt    *time.Time `dynamodbav:"archivedAt,omitempty" json:"archivedAt,omitempty"`
	Pinned        bool       `dynamodbav:"pinned" json:"pinned"`
	Muted         bool       `dynamodbav:"muted" json:"muted"`
	UnreadCount   int        `dynamodbav:"unreadCount" json:"unreadCount"`
	LastReadAt    *time.Time `dynamodbav:"lastReadAt,omitempty" json:"lastReadAt,omitempty"`
	HiddenSinceAt *time.Time `dynamodbav:"hiddenSinceAt,omitempty" json:"hiddenSinceAt,omitempty"`
}

// Chat is the private channel belonging to exactly one match.
type Chat struct {
	ChatID             string                         `dynamodbav:"chatId" json:"chatId"` // partition key, derived from MatchID
	MatchID            string                         `dynamodbav:"matchId" json:"matchId"`
	ParticipantA       string                         `dynamodbav:"participantA" json:"participantA"`
	ParticipantB       string                         `dynamodbav:"participantB" json:"participantB"`
	LastMessageID      string                         `dynamodbav:"lastMessageId,omitempty" json:"lastMessageId,omitempty"`
	LastMessagePreview string                         `dynamodbav:"lastMessagePreview,omitempty" json:"lastMessagePreview,omitempty"`
	LastMessageSender  string                         `dynamodbav:"lastMessageSender,omitempty" json:"lastMessageSender,omitempty"`
	LastMessageAt      *time.Time                     `dynamodbav:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
	Settings           map[string]ParticipantSettings `dynamodbav:"settings" json:"-"`
	CreatedAt          time.Time                      `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time                      `dynamodbav:"updatedAt" json:"updatedAt"`
}

// ChatsTable is the DynamoDB table name for chats.
const ChatsTable = "Chats"

// GSIs listing chats by participant.
const (
	ParticipantAIndex = "participantA-index"
	ParticipantBIndex = "participantB-index"
)

var chatNamespace = uuid.MustParse("0c5e7a43-9b1f-4d2a-8e36-71f4d2c8ab19")

// ChatIDFor returns the deterministic chat ID of a match, so two concurrent
// provisioning calls address the same storage key.
func ChatIDFor(matchID string) string {
	return uuid.NewSHA1(chatNamespace, []byte(matchID)).String()
}

// NewChat seeds a chat for a match with default settings for both sides.
func NewChat(m *Match, now time.Time) *Chat {
	return &Chat{
		ChatID:       ChatIDFor(m.MatchID),
		MatchID:      m.MatchID,
		ParticipantA: m.UserLow,
		ParticipantB: m.UserHigh,
		Settings: map[string]ParticipantSettings{
			m.UserLow:  {},
			m.UserHigh: {},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Chat) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

// OtherParticipant returns the participant that is not userID.
func (c *Chat) OtherParticipant(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// SettingsFor returns userID's settings, zero-valued when absent.
func (c *Chat) SettingsFor(userID string) ParticipantSettings {
	return c.Settings[userID]
}

// SettingsPatch is a partial update of one participant's settings.
type SettingsPatch struct {
	Archived *bool `json:"archived,omitempty"`
	Pinned   *bool `json:"pinned,omitempty"`
	Muted    *bool `json:"muted,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.Archived == nil && p.Pinned == nil && p.Muted == nil
}

// LastMessage is the chat pointer written on every send.
type LastMessage struct {
	MessageID string
	SenderID  string
	Preview   string
	At        time.Time
}

// ChatSummary is a chat as seen by one participant.
type ChatSummary struct {
	Chat
	OtherUserID string              `json:"otherUserId"`
	MatchStatus string              `json:"matchStatus,omitempty"`
	Mine        ParticipantSettings `json:"settings"`
	UnreadCount int                 `json:"unreadCount"`
}

// SummaryFor projects c onto userID's view.
func (c *Chat) SummaryFor(userID string) ChatSummary {
	mine := c.SettingsFor(userID)
	return ChatSummary{
		Chat:        *c,
		OtherUserID: c.OtherParticipant(userID),
		Mine:        mine,
		UnreadCount: mine.UnreadCount,
	}
}
