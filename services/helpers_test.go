package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vibin_matchcore/models"
	"vibin_matchcore/repository/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, note models.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return nil
}

func (n *recordingNotifier) count(noteType, recipient string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, note := range n.notes {
		if note.Type == noteType && note.RecipientID == recipient {
			c++
		}
	}
	return c
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events map[string][]models.Event
}

func (b *recordingBroadcaster) Publish(ctx context.Context, channelID string, evt models.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.events = map[string][]models.Event{}
	}
	b.events[channelID] = append(b.events[channelID], evt)
	return nil
}

func (b *recordingBroadcaster) count(channelID, eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := 0
	for _, evt := range b.events[channelID] {
		if evt.Type == eventType {
			c++
		}
	}
	return c
}

// manualScheduler queues callbacks until the test runs them.
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
}

func (s *manualScheduler) RunAll() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

type stubMedia struct {
	missing map[string]bool
}

func (m stubMedia) Exists(ctx context.Context, key string) (bool, error) {
	return !m.missing[key], nil
}

type fixture struct {
	profiles     *memory.ProfileRepo
	interactions *memory.InteractionRepo
	matchRepo    *memory.MatchRepo
	chatRepo     *memory.ChatRepo
	messageRepo  *memory.MessageRepo

	clock       *fakeClock
	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster
	scheduler   *manualScheduler

	matches  *MatchService
	likes    *InteractionService
	chats    *ChatService
	messages *MessageService
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()

	f := &fixture{
		profiles:     memory.NewProfileRepo(),
		interactions: memory.NewInteractionRepo(),
		matchRepo:    memory.NewMatchRepo(),
		chatRepo:     memory.NewChatRepo(),
		messageRepo:  memory.NewMessageRepo(),
		clock:        newFakeClock(),
		notifier:     &recordingNotifier{},
		broadcaster:  &recordingBroadcaster{},
		scheduler:    &manualScheduler{},
	}
	for _, u := range users {
		f.profiles.Save(models.UserProfile{UserHandle: u, Name: u, AccountStatus: models.AccountActive})
	}

	f.matches = NewMatchService(f.matchRepo, f.profiles)
	f.matches.SetClock(f.clock.Now)

	f.likes = NewInteractionService(f.interactions, f.profiles, f.matches)
	f.likes.SetClock(f.clock.Now)
	f.likes.SetNotifier(f.notifier)

	f.chats = NewChatService(f.chatRepo, f.matchRepo, f.messageRepo)
	f.chats.SetClock(f.clock.Now)

	f.messages = NewMessageService(f.messageRepo, f.chatRepo, f.matchRepo, f.profiles)
	f.messages.SetClock(f.clock.Now)
	f.messages.SetNotifier(f.notifier)
	f.messages.SetBroadcaster(f.broadcaster)
	f.messages.SetScheduler(f.scheduler)
	return f
}

// match makes a and b like each other and returns their match.
func (f *fixture) match(t *testing.T, a, b string) *models.Match {
	t.Helper()
	ctx := context.Background()
	if _, err := f.likes.RecordLike(ctx, a, b, nil); err != nil {
		t.Fatalf("like %s->%s: %v", a, b, err)
	}
	res, err := f.likes.RecordLike(ctx, b, a, nil)
	if err != nil {
		t.Fatalf("like %s->%s: %v", b, a, err)
	}
	if !res.Matched {
		t.Fatalf("expected %s and %s to match", a, b)
	}
	return res.Match
}

// chat matches a and b and opens their chat.
func (f *fixture) chat(t *testing.T, a, b string) *models.ChatSummary {
	t.Helper()
	m := f.match(t, a, b)
	c, err := f.chats.GetOrCreateChatForMatch(context.Background(), m.MatchID, a)
	if err != nil {
		t.Fatalf("GetOrCreateChatForMatch: %v", err)
	}
	return c
}

func (f *fixture) sendText(t *testing.T, chatID, sender, content string) *models.Message {
	t.Helper()
	f.clock.Advance(time.Second)
	msg, err := f.messages.Send(context.Background(), SendRequest{
		ChatID:   chatID,
		SenderID: sender,
		Type:     models.MessageText,
		Payload:  models.Payload{Content: content},
	})
	if err != nil {
		t.Fatalf("send %q: %v", content, err)
	}
	return msg
}

func (f *fixture) history(t *testing.T, chatID, viewer string) []models.Message {
	t.Helper()
	page, err := f.messages.GetChatMessages(context.Background(), chatID, viewer, MessageListOptions{PageSize: 100})
	if err != nil {
		t.Fatalf("GetChatMessages(%s): %v", viewer, err)
	}
	return page.Messages
}

func findMessage(msgs []models.Message, id string) (models.Message, bool) {
	for _, m := range msgs {
		if m.MessageID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

func assertKind(t *testing.T, err, want error) {
	t.Helper()
	if want == nil {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}
