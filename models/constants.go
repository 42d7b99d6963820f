package models

// Interaction actions
const (
	ActionLike    = "like"
	ActionDislike = "dislike"
)

// Interaction statuses
const (
	InteractionPending   = "pending"
	InteractionMatched   = "matched"
	InteractionDismissed = "dismissed"
)

// Match statuses
const (
	MatchActive  = "active"
	MatchEnded   = "ended"
	MatchBlocked = "blocked"
)

// Match origin and end reasons
const (
	ReasonMutualLike = "mutual_like"
	ReasonDismissed  = "dismissed"
	ReasonUnmatched  = "unmatched"
	ReasonBlocked    = "blocked"
)

// Message types
const (
	MessageText      = "text"
	MessageImage     = "image"
	MessageVideo     = "video"
	MessageAudio     = "audio"
	MessageVoice     = "voice"
	MessageDocument  = "document"
	MessageGIF       = "gif"
	MessageLocation  = "location"
	MessageSystem    = "system"
	MessageForwarded = "forwarded"
)

// Message delivery statuses
const (
	StatusSending   = "sending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

// Notification types sent to the notification dispatcher
const (
	NotifyLike    = "like"
	NotifyMatch   = "match"
	NotifyMessage = "message"
)

// Real-time event types published on a chat room
const (
	EventMessageNew       = "message.new"
	EventMessageEdited    = "message.edited"
	EventMessageDeleted   = "message.deleted"
	EventMessageReaction  = "message.reaction"
	EventMessageDelivered = "message.delivered"
	EventMessageViewed    = "message.viewed"
	EventChatRead         = "chat.read"
	EventNotification     = "notification"
)

// Placeholders substituted for content that is no longer visible.
const (
	DeletedPlaceholder        = "This message was deleted"
	OneViewExpiredPlaceholder = "This one-view message has expired"
	OneViewOpenedPlaceholder  = "Opened"
	OneViewPendingPlaceholder = "One-view message"
)

var mediaTypes = map[string]bool{
	MessageImage:    true,
	MessageVideo:    true,
	MessageAudio:    true,
	MessageVoice:    true,
	MessageDocument: true,
	MessageGIF:      true,
}

var oneViewTypes = map[string]bool{
	MessageImage: true,
	MessageVideo: true,
	MessageGIF:   true,
}

// IsMediaType reports whether messages of type t carry a stored-media reference.
func IsMediaType(t string) bool { return mediaTypes[t] }

// SupportsOneView reports whether a message of type t may be sent as one-view.
func SupportsOneView(t string) bool { return oneViewTypes[t] }

// IsUserSendableType reports whether t may be sent directly by a participant.
// System and forwarded messages are only produced internally.
func IsUserSendableType(t string) bool {
	return t == MessageText || t == MessageLocation || mediaTypes[t]
}
