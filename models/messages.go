package models

import (
	"time"
)

// Media is a reference to an object already held by the media store.
type Media struct {
	Key          string `dynamodbav:"key" json:"key" validate:"required"`
	URL          string `dynamodbav:"url,omitempty" json:"url,omitempty"`
	MimeType     string `dynamodbav:"mimeType,omitempty" json:"mimeType,omitempty"`
	SizeBytes    int64  `dynamodbav:"sizeBytes,omitempty" json:"sizeBytes,omitempty" validate:"gte=0"`
	DurationSecs int    `dynamodbav:"durationSecs,omitempty" json:"durationSecs,omitempty" validate:"gte=0"`
	ThumbnailKey string `dynamodbav:"thumbnailKey,omitempty" json:"thumbnailKey,omitempty"`
	FileName     string `dynamodbav:"fileName,omitempty" json:"fileName,omitempty"`
}

// Location is a shared geographic point.
type Location struct {
	Latitude  *float64 `dynamodbav:"latitude" json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `dynamodbav:"longitude" json:"longitude" validate:"required,gte=-180,lte=180"`
	Label     string   `dynamodbav:"label,omitempty" json:"label,omitempty" validate:"max=200"`
}

// Reaction is one user's emoji on a message.
type Reaction struct {
	Emoji     string    `dynamodbav:"emoji" json:"emoji"`
	ReactedAt time.Time `dynamodbav:"reactedAt" json:"reactedAt"`
}

// EditRecord is a prior version of a message's content.
type EditRecord struct {
	Content  string    `dynamodbav:"content" json:"content"`
	EditedAt time.Time `dynamodbav:"editedAt" json:"editedAt"`
}

// DeletionRecord is one user's deletion of a message.
type DeletionRecord struct {
	DeletedAt   time.Time `dynamodbav:"deletedAt" json:"deletedAt"`
	ForEveryone bool      `dynamodbav:"forEveryone" json:"forEveryone"`
}

// ForwardRef points at the message a forwarded message was copied from.
type ForwardRef struct {
	MessageID    string `dynamodbav:"messageId" json:"messageId"`
	ChatID       string `dynamodbav:"chatId" json:"chatId"`
	SenderID     string `dynamodbav:"senderId" json:"senderId"`
	OriginalType string `dynamodbav:"originalType" json:"originalType"`
}

// Payload is the type-dependent body of a message.
type Payload struct {
	Content  string    `json:"content,omitempty" validate:"max=4000"`
	Media    *Media    `json:"media,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// Message is one entry of a chat's append-only log.
type Message struct {
	ChatID        string      `dynamodbav:"chatId" json:"chatId"` // partition key
	SortKey       string      `dynamodbav:"sortKey" json:"-"`     // sort key: createdAt#messageId
	MessageID     string      `dynamodbav:"messageId" json:"messageId"`
	SenderID      string      `dynamodbav:"senderId" json:"senderId"`
	Type          string      `dynamodbav:"type" json:"type"`
	Content       string      `dynamodbav:"content,omitempty" json:"content,omitempty"`
	Media         *Media      `dynamodbav:"media,omitempty" json:"media,omitempty"`
	Location      *Location   `dynamodbav:"location,omitempty" json:"location,omitempty"`
	ReplyTo       string      `dynamodbav:"replyTo,omitempty" json:"replyTo,omitempty"`
	ForwardedFrom *ForwardRef `dynamodbav:"forwardedFrom,omitempty" json:"forwardedFrom,omitempty"`
	Status        string      `dynamodbav:"status" json:"status"`

	ReadReceipts map[string]time.Time `dynamodbav:"readReceipts" json:"readReceipts"`
	Reactions    map[string]Reaction  `dynamodbav:"reactions" json:"reactions"`
	EditHistory  []EditRecord         `dynamodbav:"editHistory" json:"editHistory,omitempty"`
	EditedAt     *time.Time           `dynamodbav:"editedAt,omitempty" json:"editedAt,omitempty"`

	IsOneView        bool       `dynamodbav:"isOneView" json:"isOneView"`
	OneViewExpiresAt *time.Time `dynamodbav:"oneViewExpiresAt,omitempty" json:"oneViewExpiresAt,omitempty"`
	ViewedBy         []string   `dynamodbav:"viewedBy,stringset,omitempty" json:"viewedBy,omitempty"`

	DeletionRecords    map[string]DeletionRecord `dynamodbav:"deletionRecords" json:"-"`
	HiddenFor          []string                  `dynamodbav:"hiddenFor,stringset,omitempty" json:"-"`
	IsDeleted          bool                      `dynamodbav:"isDeleted" json:"isDeleted"`
	DeletedForEveryone bool                      `dynamodbav:"deletedForEveryone" json:"deletedForEveryone"`
	DeletedAt          *time.Time                `dynamodbav:"deletedAt,omitempty" json:"deletedAt,omitempty"`

	Version   int64     `dynamodbav:"version" json:"-"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `dynamodbav:"updatedAt" json:"updatedAt"`
}

// MessagesTable is the DynamoDB table name for messages.
const MessagesTable = "Messages"

// MessageIDIndex is the GSI resolving a message by its ID.
const MessageIDIndex = "messageId-index"

// sortKeyLayout is fixed-width so lexicographic order equals time order.
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z"

// SortKeyPrefix renders t in the sort key's time layout.
func SortKeyPrefix(t time.Time) string {
	return t.UTC().Format(sortKeyLayout)
}

// MessageSortKey builds the sort key for a message created at t.
func MessageSortKey(t time.Time, messageID string) string {
	return SortKeyPrefix(t) + "#" + messageID
}

// SortKeyAfter returns the smallest bound such that every message created
// strictly after t sorts above it and every message created at or before t
// sorts at or below it.
func SortKeyAfter(t time.Time) string {
	return SortKeyPrefix(t) + "#~"
}

// MessageKey addresses a message item.
type MessageKey struct {
	ChatID  string
	SortKey string
}

// Key returns the storage key of m.
func (m *Message) Key() MessageKey {
	return MessageKey{ChatID: m.ChatID, SortKey: m.SortKey}
}

// NewMessage returns a message with every map attribute initialised, so
// nested-path updates on it never hit a missing parent.
func NewMessage(chatID, messageID, senderID, msgType string, now time.Time) *Message {
	return &Message{
		ChatID:          chatID,
		SortKey:         MessageSortKey(now, messageID),
		MessageID:       messageID,
		SenderID:        senderID,
		Type:            msgType,
		Status:          StatusSent,
		ReadReceipts:    map[string]time.Time{},
		Reactions:       map[string]Reaction{},
		EditHistory:     []EditRecord{},
		DeletionRecords: map[string]DeletionRecord{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ApplyPayload copies p onto m.
func (m *Message) ApplyPayload(p Payload) {
	m.Content = p.Content
	m.Media = p.Media
	m.Location = p.Location
}

// Payload returns the type-dependent body of m.
func (m *Message) Payload() Payload {
	return Payload{Content: m.Content, Media: m.Media, Location: m.Location}
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// HiddenFrom reports whether userID deleted m for themselves only.
func (m *Message) HiddenFrom(userID string) bool {
	return containsString(m.HiddenFor, userID)
}

// ViewedByUser reports whether userID already opened the one-view message.
func (m *Message) ViewedByUser(userID string) bool {
	return containsString(m.ViewedBy, userID)
}

// OneViewExpired reports whether the one-view window closed at or before now.
func (m *Message) OneViewExpired(now time.Time) bool {
	return m.IsOneView && m.OneViewExpiresAt != nil && !now.Before(*m.OneViewExpiresAt)
}

// VisibleTo returns m as viewerID should see it at now, and false when m
// must be omitted from viewerID's view entirely.
//
// A for-me deletion hides the message from that viewer only. A for-everyone
// deletion keeps the envelope but replaces the payload for every viewer,
// the sender included. A recipient sees a one-view payload only in the
// response to opening it.
func (m Message) VisibleTo(viewerID string, now time.Time) (Message, bool) {
	if m.HiddenFrom(viewerID) {
		return Message{}, false
	}
	if m.DeletedForEveryone {
		return m.redacted(DeletedPlaceholder), true
	}
	if m.IsOneView {
		switch {
		case m.IsDeleted || m.OneViewExpired(now):
			return m.redacted(OneViewExpiredPlaceholder), true
		case viewerID != m.SenderID && m.ViewedByUser(viewerID):
			return m.redacted(OneViewOpenedPlaceholder), true
		case viewerID != m.SenderID:
			// the payload is only released by opening it
			m.Content = OneViewPendingPlaceholder
			m.Media = nil
			m.Location = nil
			m.EditHistory = nil
		}
	}
	m.HiddenFor = nil
	m.DeletionRecords = nil
	return m, true
}

func (m Message) redacted(placeholder string) Message {
	m.Content = placeholder
	m.Media = nil
	m.Location = nil
	m.EditHistory = nil
	m.Reactions = map[string]Reaction{}
	m.HiddenFor = nil
	m.DeletionRecords = nil
	return m
}

// MessagePage is one page of a chat's visible history in chronological order.
type MessagePage struct {
	Messages []Message `json:"messages"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
	HasMore  bool      `json:"hasMore"`
}
