package memory

import (
	"context"
	"sync"
	"time"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

type ChatRepo struct {
	mu    sync.Mutex
	chats map[string]models.Chat
}

func NewChatRepo() *ChatRepo {
	return &ChatRepo{chats: map[string]models.Chat{}}
}

func (r *ChatRepo) GetOrCreate(ctx context.Context, c *models.Chat) (*models.Chat, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.chats[c.ChatID]; ok {
		return cloneChat(existing), false, nil
	}
	stored := *cloneChat(*c)
	r.chats[c.ChatID] = stored
	return cloneChat(stored), true, nil
}

func (r *ChatRepo) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.chats[chatID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneChat(c), nil
}

func (r *ChatRepo) ListByParticipant(ctx context.Context, userID string) ([]models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Chat
	for _, c := range r.chats {
		if c.HasParticipant(userID) {
			out = append(out, *cloneChat(c))
		}
	}
	return out, nil
}

// update runs fn on a private copy of the chat and stores the result.
func (r *ChatRepo) update(chatID string, fn func(c *models.Chat)) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.chats[chatID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneChat(existing)
	fn(c)
	r.chats[chatID] = *c
	return cloneChat(*c), nil
}

func (r *ChatRepo) UpdateSettings(ctx context.Context, chatID, userID string, patch models.SettingsPatch, now time.Time) (*models.Chat, error) {
	return r.update(chatID, func(c *models.Chat) {
		s := c.Settings[userID]
		if patch.Archived != nil {
			s.Archived = *patch.Archived
			if s.Archived {
				s.ArchivedAt = &now
			}
		}
		if patch.Pinned != nil {
			s.Pinned = *patch.Pinned
		}
		if patch.Muted != nil {
			s.Muted = *patch.Muted
		}
		c.Settings[userID] = s
		c.UpdatedAt = now
	})
}

func (r *ChatRepo) Hide(ctx context.Context, chatID, userID string, now time.Time) (*models.Chat, error) {
	return r.update(chatID, func(c *models.Chat) {
		s := c.Settings[userID]
		s.Archived = true
		s.ArchivedAt = &now
		s.HiddenSinceAt = &now
		s.UnreadCount = 0
		c.Settings[userID] = s
		c.UpdatedAt = now
	})
}

func (r *ChatRepo) RecordMessage(ctx context.Context, chatID string, last models.LastMessage, unreadFor, unhide []string) error {
	_, err := r.update(chatID, func(c *models.Chat) {
		at := last.At
		c.LastMessageID = last.MessageID
		c.LastMessageSender = last.SenderID
		c.LastMessagePreview = last.Preview
		c.LastMessageAt = &at
		c.UpdatedAt = at
		for _, u := range unreadFor {
			s := c.Settings[u]
			s.UnreadCount++
			c.Settings[u] = s
		}
		for _, u := range unhide {
			s := c.Settings[u]
			s.Archived = false
			c.Settings[u] = s
		}
	})
	return err
}

func (r *ChatRepo) ResetUnread(ctx context.Context, chatID, userID string, at time.Time) (*models.Chat, error) {
	return r.update(chatID, func(c *models.Chat) {
		s := c.Settings[userID]
		s.UnreadCount = 0
		s.LastReadAt = &at
		c.Settings[userID] = s
	})
}
