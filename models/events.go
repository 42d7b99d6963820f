package models

import "time"

// Event is a real-time update published on a chat or user room.
type Event struct {
	Type      string    `json:"type"`
	ChatID    string    `json:"chatId,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Notification is a push/in-app notification request for one recipient.
type Notification struct {
	Type        string         `json:"type"`
	RecipientID string         `json:"recipientId"`
	SenderID    string         `json:"senderId"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// UserRoom is the real-time room every connection of userID joins.
func UserRoom(userID string) string {
	return "user:" + userID
}

// ChatRoom is the real-time room for a chat.
func ChatRoom(chatID string) string {
	return "chat:" + chatID
}

// LikeResult is the outcome of a like.
type LikeResult struct {
	Interaction *Interaction `json:"interaction"`
	Matched     bool         `json:"matched"`
	Match       *Match       `json:"match,omitempty"`
}

// MessageDeletion is the payload of a message.deleted event.
type MessageDeletion struct {
	MessageID   string `json:"messageId"`
	ForEveryone bool   `json:"forEveryone"`
}
