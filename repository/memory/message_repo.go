package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

type MessageRepo struct {
	mu       sync.Mutex
	messages map[string]models.Message // by messageId
}

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{messages: map[string]models.Message{}}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.messages[m.MessageID]; ok {
		return repository.ErrConditionFailed
	}
	r.messages[m.MessageID] = *cloneMessage(*m)
	return nil
}

func (r *MessageRepo) Get(ctx context.Context, messageID string) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[messageID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (r *MessageRepo) List(ctx context.Context, chatID, viewerID string, since *time.Time, offset, limit int) ([]models.Message, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bound string
	if since != nil {
		bound = models.SortKeyAfter(*since)
	}

	var all []models.Message
	for _, m := range r.messages {
		if m.ChatID != chatID || m.HiddenFrom(viewerID) {
			continue
		}
		if bound != "" && m.SortKey <= bound {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SortKey > all[j].SortKey })

	if offset >= len(all) {
		return []models.Message{}, false, nil
	}
	all = all[offset:]
	hasMore := len(all) > limit
	if hasMore {
		all = all[:limit]
	}
	out := make([]models.Message, len(all))
	for i := range all {
		out[i] = *cloneMessage(all[i])
	}
	return out, hasMore, nil
}

// update applies fn to a private copy when check passes and stores it.
func (r *MessageRepo) update(key models.MessageKey, check func(m *models.Message) bool, fn func(m *models.Message)) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *models.Message
	for id, m := range r.messages {
		if m.ChatID == key.ChatID && m.SortKey == key.SortKey {
			found = cloneMessage(r.messages[id])
			break
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	if check != nil && !check(found) {
		return nil, repository.ErrConditionFailed
	}
	fn(found)
	r.messages[found.MessageID] = *found
	return cloneMessage(*found), nil
}

func (r *MessageRepo) MarkDelivered(ctx context.Context, key models.MessageKey, at time.Time) (bool, error) {
	_, err := r.update(key,
		func(m *models.Message) bool { return m.Status == models.StatusSent },
		func(m *models.Message) {
			m.Status = models.StatusDelivered
			m.UpdatedAt = at
		})
	if errors.Is(err, repository.ErrConditionFailed) {
		return false, nil
	}
	return err == nil, err
}

func (r *MessageRepo) MarkReadBy(ctx context.Context, chatID, readerID string, since *time.Time, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var bound string
	if since != nil {
		bound = models.SortKeyAfter(*since)
	}

	n := 0
	for id, m := range r.messages {
		if m.ChatID != chatID || m.SenderID == readerID || m.HiddenFrom(readerID) {
			continue
		}
		if bound != "" && m.SortKey <= bound {
			continue
		}
		if _, read := m.ReadReceipts[readerID]; read {
			continue
		}
		c := cloneMessage(m)
		if c.ReadReceipts == nil {
			c.ReadReceipts = map[string]time.Time{}
		}
		c.ReadReceipts[readerID] = at
		c.Status = models.StatusRead
		c.UpdatedAt = at
		r.messages[id] = *c
		n++
	}
	return n, nil
}

func (r *MessageRepo) Edit(ctx context.Context, key models.MessageKey, content string, history []models.EditRecord, at time.Time, expectVersion int64) (*models.Message, error) {
	return r.update(key,
		func(m *models.Message) bool { return m.Version == expectVersion && !m.DeletedForEveryone },
		func(m *models.Message) {
			m.Content = content
			m.EditHistory = slices.Clone(history)
			m.EditedAt = &at
			m.UpdatedAt = at
			m.Version++
		})
}

func (r *MessageRepo) SetReaction(ctx context.Context, key models.MessageKey, userID string, reaction *models.Reaction, at time.Time) (*models.Message, error) {
	return r.update(key,
		func(m *models.Message) bool { return !m.DeletedForEveryone },
		func(m *models.Message) {
			if m.Reactions == nil {
				m.Reactions = map[string]models.Reaction{}
			}
			if reaction == nil {
				delete(m.Reactions, userID)
			} else {
				m.Reactions[userID] = *reaction
			}
			m.UpdatedAt = at
		})
}

func (r *MessageRepo) AddViewer(ctx context.Context, key models.MessageKey, viewerID string, at time.Time) (*models.Message, error) {
	return r.update(key, nil, func(m *models.Message) {
		if !m.ViewedByUser(viewerID) {
			m.ViewedBy = append(m.ViewedBy, viewerID)
			m.UpdatedAt = at
		}
	})
}

func (r *MessageRepo) DeleteForUser(ctx context.Context, key models.MessageKey, userID string, at time.Time) (*models.Message, error) {
	return r.update(key,
		func(m *models.Message) bool { return !m.HiddenFrom(userID) },
		func(m *models.Message) {
			if m.DeletionRecords == nil {
				m.DeletionRecords = map[string]models.DeletionRecord{}
			}
			m.DeletionRecords[userID] = models.DeletionRecord{DeletedAt: at}
			m.HiddenFor = append(m.HiddenFor, userID)
			m.UpdatedAt = at
		})
}

func (r *MessageRepo) DeleteForEveryone(ctx context.Context, key models.MessageKey, senderID string, at time.Time) (*models.Message, error) {
	return r.update(key,
		func(m *models.Message) bool { return m.SenderID == senderID && !m.DeletedForEveryone },
		func(m *models.Message) {
			if m.DeletionRecords == nil {
				m.DeletionRecords = map[string]models.DeletionRecord{}
			}
			m.DeletionRecords[senderID] = models.DeletionRecord{DeletedAt: at, ForEveryone: true}
			m.IsDeleted = true
			m.DeletedForEveryone = true
			m.DeletedAt = &at
			m.Content = models.DeletedPlaceholder
			m.Media = nil
			m.Location = nil
			m.EditHistory = []models.EditRecord{}
			m.Reactions = map[string]models.Reaction{}
			m.UpdatedAt = at
		})
}

func (r *MessageRepo) ExpireOneView(ctx context.Context, key models.MessageKey, at time.Time) error {
	_, err := r.update(key, nil, func(m *models.Message) {
		if m.IsDeleted {
			return
		}
		m.IsDeleted = true
		m.DeletedAt = &at
		m.Media = nil
		m.UpdatedAt = at
	})
	return err
}
