package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"vibin_matchcore/logging"
	"vibin_matchcore/models"
	"vibin_matchcore/repository"
	"vibin_matchcore/validation"
)

const (
	maxPreviewLength = 100
	maxEmojiLength   = 8
)

// MessageService owns the message lifecycle inside a chat.
type MessageService struct {
	messages    repository.MessageRepository
	chats       repository.ChatRepository
	matches     repository.MatchRepository
	profiles    profileGate
	notifier    Notifier
	broadcaster Broadcaster
	media       MediaVerifier
	scheduler   Scheduler
	policy      Policy
	now         func() time.Time
	newID       func() string
}

func NewMessageService(messages repository.MessageRepository, chats repository.ChatRepository, matches repository.MatchRepository, profiles repository.ProfileRepository) *MessageService {
	return &MessageService{
		messages:  messages,
		chats:     chats,
		matches:   matches,
		profiles:  profileGate{profiles: profiles},
		scheduler: timerScheduler{},
		policy:    DefaultPolicy(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *MessageService) SetNotifier(n Notifier) { s.notifier = n }
func (s *MessageService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }
func (s *MessageService) SetMediaVerifier(v MediaVerifier) { s.media = v }
func (s *MessageService) SetScheduler(sch Scheduler) { s.scheduler = sch }
func (s *MessageService) SetPolicy(p Policy) { s.policy = p }
func (s *MessageService) SetClock(now func() time.Time) { s.now = now }

// SendRequest is a participant's new message.
type SendRequest struct {
	ChatID    string
	SenderID  string
	Type      string
	Payload   models.Payload
	ReplyTo   string
	IsOneView bool
}

// Send appends a message to an active chat and fans it out to the other
// participant.
func (s *MessageService) Send(ctx context.Context, req SendRequest) (*models.Message, error) {
	if !models.IsUserSendableType(req.Type) {
		return nil, invalid("unsupported message type %q", req.Type)
	}
	return s.send(ctx, req, nil)
}

func (s *MessageService) send(ctx context.Context, req SendRequest, fwd *models.ForwardRef) (*models.Message, error) {
	chat, err := s.participantChat(ctx, req.ChatID, req.SenderID)
	if err != nil {
		return nil, err
	}
	recipientID := chat.OtherParticipant(req.SenderID)
	if err := s.requireSendable(ctx, chat, req.SenderID, recipientID); err != nil {
		return nil, err
	}
	if err := s.validatePayload(ctx, req); err != nil {
		return nil, err
	}
	if req.ReplyTo != "" {
		parent, err := s.messages.Get(ctx, req.ReplyTo)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && parent.ChatID != chat.ChatID) {
			return nil, invalid("replied-to message is not in this chat")
		}
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	msgType := req.Type
	if fwd != nil {
		msgType = models.MessageForwarded
	}
	msg := models.NewMessage(chat.ChatID, s.newID(), req.SenderID, msgType, now)
	msg.ApplyPayload(req.Payload)
	msg.ReplyTo = req.ReplyTo
	msg.ForwardedFrom = fwd
	if req.IsOneView {
		expires := now.Add(s.policy.OneViewTTL)
		msg.IsOneView = true
		msg.OneViewExpiresAt = &expires
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	last := models.LastMessage{MessageID: msg.MessageID, SenderID: req.SenderID, Preview: previewFor(req.Type, msg), At: now}
	if err := s.chats.RecordMessage(ctx, chat.ChatID, last, []string{recipientID}, reopenFor(chat)); err != nil {
		return nil, fmt.Errorf("record last message: %w", err)
	}
	if err := s.matches.Touch(ctx, chat.MatchID, now); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("match_id", chat.MatchID).Msg("match activity not updated")
	}

	if !chat.SettingsFor(recipientID).Muted {
		notify(ctx, s.notifier, models.Notification{
			Type:        models.NotifyMessage,
			RecipientID: recipientID,
			SenderID:    req.SenderID,
			Payload: map[string]any{
				"chatId":    chat.ChatID,
				"messageId": msg.MessageID,
				"preview":   last.Preview,
			},
		})
	}
	visible, _ := msg.VisibleTo(recipientID, now)
	publish(ctx, s.broadcaster, models.ChatRoom(chat.ChatID), models.Event{
		Type:      models.EventMessageNew,
		ChatID:    chat.ChatID,
		ActorID:   req.SenderID,
		Payload:   visible,
		Timestamp: now,
	})
	s.scheduleDelivery(ctx, msg.Key(), chat.ChatID, msg.MessageID)

	logging.Ctx(ctx).Debug().
		Str("chat_id", chat.ChatID).
		Str("message_id", msg.MessageID).
		Str("type", msg.Type).
		Msg("message sent")
	return msg, nil
}

func (s *MessageService) requireSendable(ctx context.Context, chat *models.Chat, senderID, recipientID string) error {
	if _, err := s.profiles.requireActive(ctx, senderID); err != nil {
		return err
	}
	if err := s.profiles.requireNotBlocked(ctx, senderID, recipientID); err != nil {
		return err
	}
	m, err := s.matches.GetByID(ctx, chat.MatchID)
	if errors.Is(err, repository.ErrNotFound) {
		return forbidden("chat has no match")
	}
	if err != nil {
		return err
	}
	if m.Status != models.MatchActive {
		return forbidden("match is %s", m.Status)
	}
	return nil
}

func (s *MessageService) validatePayload(ctx context.Context, req SendRequest) error {
	if err := validation.ValidateStruct(req.Payload); err != nil {
		return invalid("%v", err)
	}
	if req.IsOneView && !models.SupportsOneView(req.Type) {
		return invalid("%s messages cannot be one-view", req.Type)
	}

	switch {
	case req.Type == models.MessageText:
		if strings.TrimSpace(req.Payload.Content) == "" {
			return invalid("text message content is empty")
		}
	case req.Type == models.MessageLocation:
		if req.Payload.Location == nil {
			return invalid("location is required")
		}
		if err := validation.ValidateStruct(req.Payload.Location); err != nil {
			return invalid("%v", err)
		}
	case models.IsMediaType(req.Type):
		if req.Payload.Media == nil {
			return invalid("media is required")
		}
		if err := validation.ValidateStruct(req.Payload.Media); err != nil {
			return invalid("%v", err)
		}
		if s.media == nil {
			return nil
		}
		ok, err := s.media.Exists(ctx, req.Payload.Media.Key)
		if err != nil {
			return fmt.Errorf("verify media: %w", err)
		}
		if !ok {
			return invalid("media %s does not exist", req.Payload.Media.Key)
		}
	default:
		return invalid("unsupported message type %q", req.Type)
	}
	return nil
}

// reopenFor lists the participants whose chat was hidden by a chat delete
// and not archived again since; a new message brings it back.
func reopenFor(c *models.Chat) []string {
	var out []string
	for _, userID := range []string{c.ParticipantA, c.ParticipantB} {
		st := c.SettingsFor(userID)
		if st.Archived && st.HiddenSinceAt != nil && st.ArchivedAt != nil && st.ArchivedAt.Equal(*st.HiddenSinceAt) {
			out = append(out, userID)
		}
	}
	return out
}

var mediaPreviews = map[string]string{
	models.MessageImage:    "Photo",
	models.MessageVideo:    "Video",
	models.MessageAudio:    "Audio",
	models.MessageVoice:    "Voice message",
	models.MessageDocument: "Document",
	models.MessageGIF:      "GIF",
	models.MessageLocation: "Location",
}

func previewFor(contentType string, m *models.Message) string {
	if m.IsOneView {
		return "One-view " + strings.ToLower(mediaPreviews[contentType])
	}
	if p, ok := mediaPreviews[contentType]; ok {
		return p
	}
	content := strings.TrimSpace(m.Content)
	if utf8.RuneCountInString(content) > maxPreviewLength {
		content = string([]rune(content)[:maxPreviewLength]) + "…"
	}
	return content
}

func (s *MessageService) scheduleDelivery(ctx context.Context, key models.MessageKey, chatID, messageID string) {
	if s.scheduler == nil {
		return
	}
	bg := context.WithoutCancel(ctx)
	s.scheduler.AfterFunc(s.policy.DeliveryDelay, func() {
		at := s.now()
		moved, err := s.messages.MarkDelivered(bg, key, at)
		if err != nil {
			logging.Ctx(bg).Warn().Err(err).Str("message_id", messageID).Msg("delivery update failed")
			return
		}
		if moved {
			publish(bg, s.broadcaster, models.ChatRoom(chatID), models.Event{
				Type:      models.EventMessageDelivered,
				ChatID:    chatID,
				Payload:   map[string]any{"messageId": messageID},
				Timestamp: at,
			})
		}
	})
}

// participantChat loads a chat and checks userID takes part in it.
func (s *MessageService) participantChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
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

// participantMessage loads a message from a chat userID takes part in.
func (s *MessageService) participantMessage(ctx context.Context, messageID, userID string) (*models.Message, *models.Chat, error) {
	m, err := s.messages.Get(ctx, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, notFound("message %s", messageID)
	}
	if err != nil {
		return nil, nil, err
	}
	c, err := s.participantChat(ctx, m.ChatID, userID)
	if err != nil {
		return nil, nil, err
	}
	return m, c, nil
}

// Edit replaces the content of the caller's text message, keeping the
// previous content in the message's bounded edit history.
func (s *MessageService) Edit(ctx context.Context, messageID, userID, content string) (*models.Message, error) {
	m, _, err := s.participantMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if m.HiddenFrom(userID) {
		return nil, notFound("message %s", messageID)
	}
	if m.SenderID != userID {
		return nil, forbidden("only the sender can edit a message")
	}
	if m.IsDeleted || m.DeletedForEveryone {
		return nil, forbidden("message was deleted")
	}
	if m.Type != models.MessageText {
		return nil, invalid("only text messages can be edited")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content is empty")
	}
	if err := validation.ValidateStruct(models.Payload{Content: content}); err != nil {
		return nil, invalid("%v", err)
	}

	now := s.now()
	if now.Sub(m.CreatedAt) > s.policy.EditWindow {
		return nil, expired("edit window closed")
	}

	history := append(m.EditHistory, models.EditRecord{Content: m.Content, EditedAt: now})
	if limit := s.policy.EditHistoryCap; limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	edited, err := s.messages.Edit(ctx, m.Key(), content, history, now, m.Version)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, conflict("message changed concurrently")
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.broadcaster, models.ChatRoom(m.ChatID), models.Event{
		Type:      models.EventMessageEdited,
		ChatID:    m.ChatID,
		ActorID:   userID,
		Payload:   edited,
		Timestamp: now,
	})
	return edited, nil
}

// Delete removes a message for the caller only, or for everyone when the
// caller sent it within the delete window.
func (s *MessageService) Delete(ctx context.Context, messageID, userID string, forEveryone bool) (*models.Message, error) {
	m, _, err := s.participantMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if forEveryone {
		if m.SenderID != userID {
			return nil, forbidden("only the sender can delete for everyone")
		}
		if m.DeletedForEveryone {
			return nil, conflict("message already deleted for everyone")
		}
		if now.Sub(m.CreatedAt) > s.policy.DeleteForEveryoneWindow {
			return nil, expired("delete-for-everyone window closed")
		}
		deleted, err := s.messages.DeleteForEveryone(ctx, m.Key(), userID, now)
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, conflict("message already deleted for everyone")
		}
		if err != nil {
			return nil, err
		}
		publish(ctx, s.broadcaster, models.ChatRoom(m.ChatID), models.Event{
			Type:      models.EventMessageDeleted,
			ChatID:    m.ChatID,
			ActorID:   userID,
			Payload:   models.MessageDeletion{MessageID: m.MessageID, ForEveryone: true},
			Timestamp: now,
		})
		return deleted, nil
	}

	if m.HiddenFrom(userID) {
		return nil, conflict("message already deleted")
	}
	deleted, err := s.messages.DeleteForUser(ctx, m.Key(), userID, now)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, conflict("message already deleted")
	}
	if err != nil {
		return nil, err
	}
	publish(ctx, s.broadcaster, models.UserRoom(userID), models.Event{
		Type:      models.EventMessageDeleted,
		ChatID:    m.ChatID,
		ActorID:   userID,
		Payload:   models.MessageDeletion{MessageID: m.MessageID},
		Timestamp: now,
	})
	return deleted, nil
}

// React sets the caller's reaction, replacing any previous one.
func (s *MessageService) React(ctx context.Context, messageID, userID, emoji string) (*models.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, invalid("emoji is required")
	}
	if utf8.RuneCountInString(emoji) > maxEmojiLength {
		return nil, invalid("emoji is too long")
	}
	now := s.now()
	return s.setReaction(ctx, messageID, userID, &models.Reaction{Emoji: emoji, ReactedAt: now}, now)
}

// Unreact removes the caller's reaction. Removing a missing reaction is a
// no-op.
func (s *MessageService) Unreact(ctx context.Context, messageID, userID string) (*models.Message, error) {
	return s.setReaction(ctx, messageID, userID, nil, s.now())
}

func (s *MessageService) setReaction(ctx context.Context, messageID, userID string, r *models.Reaction, now time.Time) (*models.Message, error) {
	m, _, err := s.participantMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	if m.HiddenFrom(userID) {
		return nil, notFound("message %s", messageID)
	}
	if m.DeletedForEveryone {
		return nil, forbidden("message was deleted")
	}
	if _, has := m.Reactions[userID]; r == nil && !has {
		visible, _ := m.VisibleTo(userID, now)
		return &visible, nil
	}

	updated, err := s.messages.SetReaction(ctx, m.Key(), userID, r, now)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, forbidden("message was deleted")
	}
	if err != nil {
		return nil, err
	}

	emoji := ""
	if r != nil {
		emoji = r.Emoji
	}
	publish(ctx, s.broadcaster, models.ChatRoom(m.ChatID), models.Event{
		Type:    models.EventMessageReaction,
		ChatID:  m.ChatID,
		ActorID: userID,
		Payload: map[string]any{
			"messageId": m.MessageID,
			"userId":    userID,
			"emoji":     emoji,
		},
		Timestamp: now,
	})
	visible, _ := updated.VisibleTo(userID, now)
	return &visible, nil
}

// Forward copies a message the caller can see into another of their chats.
func (s *MessageService) Forward(ctx context.Context, messageID, userID, targetChatID string) (*models.Message, error) {
	src, _, err := s.participantMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case src.HiddenFrom(userID):
		return nil, notFound("message %s", messageID)
	case src.IsDeleted || src.DeletedForEveryone:
		return nil, invalid("deleted messages cannot be forwarded")
	case src.IsOneView:
		return nil, forbidden("one-view messages cannot be forwarded")
	case src.Type == models.MessageSystem:
		return nil, invalid("system messages cannot be forwarded")
	}

	originalType := src.Type
	if src.Type == models.MessageForwarded && src.ForwardedFrom != nil {
		originalType = src.ForwardedFrom.OriginalType
	}
	return s.send(ctx, SendRequest{
		ChatID:   targetChatID,
		SenderID: userID,
		Type:     originalType,
		Payload:  src.Payload(),
	}, &models.ForwardRef{
		MessageID:    src.MessageID,
		ChatID:       src.ChatID,
		SenderID:     src.SenderID,
		OriginalType: originalType,
	})
}

// MarkRead records read receipts for everything the caller received in the
// chat and resets their unread counter. It returns how many messages
// changed; repeating it is harmless.
func (s *MessageService) MarkRead(ctx context.Context, chatID, userID string) (int, error) {
	chat, err := s.participantChat(ctx, chatID, userID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	n, err := s.messages.MarkReadBy(ctx, chatID, userID, chat.SettingsFor(userID).HiddenSinceAt, now)
	if err != nil {
		return 0, err
	}
	if _, err := s.chats.ResetUnread(ctx, chatID, userID, now); err != nil {
		return 0, err
	}
	if n > 0 {
		publish(ctx, s.broadcaster, models.ChatRoom(chatID), models.Event{
			Type:      models.EventChatRead,
			ChatID:    chatID,
			ActorID:   userID,
			Payload:   map[string]any{"readerId": userID, "count": n},
			Timestamp: now,
		})
	}
	return n, nil
}

type MessageListOptions struct {
	Page     int
	PageSize int
	Since    *time.Time
}

// GetChatMessages returns one page of the caller's visible history. Page 1
// holds the newest messages; each page is in chronological order.
func (s *MessageService) GetChatMessages(ctx context.Context, chatID, userID string, opts MessageListOptions) (*models.MessagePage, error) {
	chat, err := s.participantChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	since := opts.Since
	if horizon := chat.SettingsFor(userID).HiddenSinceAt; horizon != nil {
		if since == nil || horizon.After(*since) {
			since = horizon
		}
	}

	page, size, offset := s.policy.pageBounds(opts.Page, opts.PageSize)
	msgs, hasMore, err := s.messages.List(ctx, chatID, userID, since, offset, size)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]models.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		if v, ok := msgs[i].VisibleTo(userID, now); ok {
			out = append(out, v)
		}
	}
	return &models.MessagePage{Messages: out, Page: page, PageSize: size, HasMore: hasMore}, nil
}

// MarkViewed opens a one-view message for the caller. A recipient can open
// it once; afterwards, and for everyone once it expires, only a
// placeholder remains.
func (s *MessageService) MarkViewed(ctx context.Context, messageID, viewerID string) (*models.Message, error) {
	m, _, err := s.participantMessage(ctx, messageID, viewerID)
	if err != nil {
		return nil, err
	}
	if m.HiddenFrom(viewerID) {
		return nil, notFound("message %s", messageID)
	}
	if !m.IsOneView {
		return nil, invalid("message is not one-view")
	}

	now := s.now()
	if m.OneViewExpired(now) {
		if !m.IsDeleted {
			if err := s.messages.ExpireOneView(ctx, m.Key(), now); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("message_id", messageID).Msg("one-view expiry not stored")
			}
		}
		return nil, expired("one-view message expired")
	}
	if m.IsDeleted {
		return nil, expired("one-view message is no longer available")
	}
	if m.SenderID == viewerID || m.ViewedByUser(viewerID) {
		visible, _ := m.VisibleTo(viewerID, now)
		return &visible, nil
	}

	// the viewer gets the content this once; later reads see a placeholder
	opened := *m
	updated, err := s.messages.AddViewer(ctx, m.Key(), viewerID, now)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.broadcaster, models.ChatRoom(m.ChatID), models.Event{
		Type:      models.EventMessageViewed,
		ChatID:    m.ChatID,
		ActorID:   viewerID,
		Payload:   map[string]any{"messageId": m.MessageID, "viewerId": viewerID},
		Timestamp: now,
	})
	opened.ViewedBy = updated.ViewedBy
	opened.HiddenFor = nil
	opened.DeletionRecords = nil
	return &opened, nil
}
