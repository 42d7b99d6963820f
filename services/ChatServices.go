package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"vibin_matchcore/logging"
	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

// MatchGreeting opens every new chat.
const MatchGreeting = "It's a match! Say hello."

// SystemSender is the sender ID of system messages.
const SystemSender = "system"

// ChatService provisions chats for matches and manages each participant's
// view of them.
type ChatService struct {
	chats    repository.ChatRepository
	matches  repository.MatchRepository
	messages repository.MessageRepository
	policy   Policy
	now      func() time.Time
}

func NewChatService(chats repository.ChatRepository, matches repository.MatchRepository, messages repository.MessageRepository) *ChatService {
	return &ChatService{
		chats:    chats,
		matches:  matches,
		messages: messages,
		policy:   DefaultPolicy(),
		now:      time.Now,
	}
}

func (s *ChatService) SetClock(now func() time.Time) { s.now = now }
func (s *ChatService) SetPolicy(p Policy) { s.policy = p }

// GetOrCreateChatForMatch returns the chat of an active match, creating it
// on first use. Concurrent callers all receive the same chat.
func (s *ChatService) GetOrCreateChatForMatch(ctx context.Context, matchID, callerID string) (*models.ChatSummary, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("match %s", matchID)
	}
	if err != nil {
		return nil, err
	}
	if !m.HasParticipant(callerID) {
		return nil, forbidden("not a participant of this match")
	}
	if m.Status != models.MatchActive {
		return nil, forbidden("match is %s", m.Status)
	}

	now := s.now()
	chat, created, err := s.chats.GetOrCreate(ctx, models.NewChat(m, now))
	if err != nil {
		return nil, err
	}
	if created {
		s.postGreeting(ctx, chat, now)
		if refreshed, err := s.chats.GetByID(ctx, chat.ChatID); err == nil {
			chat = refreshed
		}
		logging.Ctx(ctx).Info().Str("chat_id", chat.ChatID).Str("match_id", matchID).Msg("chat created")
	}

	summary := chat.SummaryFor(callerID)
	summary.MatchStatus = m.Status
	return &summary, nil
}

func (s *ChatService) postGreeting(ctx context.Context, chat *models.Chat, now time.Time) {
	msg := models.NewMessage(chat.ChatID, uuid.NewString(), SystemSender, models.MessageSystem, now)
	msg.Content = MatchGreeting
	if err := s.messages.Create(ctx, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("chat_id", chat.ChatID).Msg("greeting not stored")
		return
	}
	last := models.LastMessage{MessageID: msg.MessageID, SenderID: SystemSender, Preview: MatchGreeting, At: now}
	if err := s.chats.RecordMessage(ctx, chat.ChatID, last, nil, nil); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("chat_id", chat.ChatID).Msg("greeting pointer not recorded")
	}
}

// GetChat loads a chat the caller takes part in.
func (s *ChatService) GetChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	c, err := s.chats.GetByID(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("chat %s", chatID)
	}
	if err != nil {
		return nil, err
	}
	if !c.HasParticipant(userID) {
		return nil, forbidden("not a participant of this chat")
	}
	return c, nil
}

// GetChatSummary is GetChat projected onto the caller's view.
func (s *ChatService) GetChatSummary(ctx context.Context, chatID, userID string) (*models.ChatSummary, error) {
	c, err := s.GetChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	summary := c.SummaryFor(userID)
	if m, err := s.matches.GetByID(ctx, c.MatchID); err == nil {
		summary.MatchStatus = m.Status
	}
	return &summary, nil
}

type ListChatsOptions struct {
	IncludeArchived bool
	Page            int
	PageSize        int
}

type ChatPage struct {
	Chats    []models.ChatSummary `json:"chats"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
	HasMore  bool                 `json:"hasMore"`
}

// ListChats returns the user's chats, pinned first and then by most recent
// activity.
func (s *ChatService) ListChats(ctx context.Context, userID string, opts ListChatsOptions) (*ChatPage, error) {
	chats, err := s.chats.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := map[string]string{}
	matches, err := s.matches.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		statuses[m.MatchID] = m.Status
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for i := range chats {
		summary := chats[i].SummaryFor(userID)
		if summary.Mine.Archived && !opts.IncludeArchived {
			continue
		}
		summary.MatchStatus = statuses[summary.MatchID]
		summaries = append(summaries, summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Mine.Pinned != b.Mine.Pinned {
			return a.Mine.Pinned
		}
		return activityAt(&a.Chat).After(activityAt(&b.Chat))
	})

	page, size, offset := s.policy.pageBounds(opts.Page, opts.PageSize)
	result := &ChatPage{Chats: []models.ChatSummary{}, Page: page, PageSize: size}
	if offset >= len(summaries) {
		return result, nil
	}
	summaries = summaries[offset:]
	if len(summaries) > size {
		summaries = summaries[:size]
		result.HasMore = true
	}
	result.Chats = summaries
	return result, nil
}

func activityAt(c *models.Chat) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

// UpdateSettings changes the caller's archive, pin and mute flags.
func (s *ChatService) UpdateSettings(ctx context.Context, chatID, userID string, patch models.SettingsPatch) (*models.ChatSummary, error) {
	if patch.Empty() {
		return nil, invalid("no settings to update")
	}
	if _, err := s.GetChat(ctx, chatID, userID); err != nil {
		return nil, err
	}
	c, err := s.chats.UpdateSettings(ctx, chatID, userID, patch, s.now())
	if err != nil {
		return nil, err
	}
	summary := c.SummaryFor(userID)
	return &summary, nil
}

// DeleteChat hides the chat for the caller only. Their history restarts
// from now; the other participant is unaffected.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID string) error {
	if _, err := s.GetChat(ctx, chatID, userID); err != nil {
		return err
	}
	if _, err := s.chats.Hide(ctx, chatID, userID, s.now()); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("chat_id", chatID).Msg("chat hidden")
	return nil
}
