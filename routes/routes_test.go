package routes

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"vibin_matchcore/controllers"
	"vibin_matchcore/media"
	"vibin_matchcore/models"
	"vibin_matchcore/repository/memory"
	"vibin_matchcore/services"
)

type noDelivery struct{}

func (noDelivery) AfterFunc(time.Duration, func()) {}

type fakeSigner struct{}

func (fakeSigner) UploadURL(_ context.Context, fileName, _ string) (*media.Upload, error) {
	return &media.Upload{URL: "https://bucket.example/put", Key: "chat-media/x-" + fileName}, nil
}

func (fakeSigner) ReadURL(_ context.Context, key string) (string, error) {
	return "https://bucket.example/get/" + key, nil
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T, users ...string) *testAPI {
	t.Helper()
	profiles := memory.NewProfileRepo()
	for _, u := range users {
		profiles.Save(models.UserProfile{UserHandle: u, Name: u, AccountStatus: models.AccountActive})
	}
	interactions := memory.NewInteractionRepo()
	matchRepo := memory.NewMatchRepo()
	chatRepo := memory.NewChatRepo()
	messageRepo := memory.NewMessageRepo()

	matches := services.NewMatchService(matchRepo, profiles)
	likes := services.NewInteractionService(interactions, profiles, matches)
	chats := services.NewChatService(chatRepo, matchRepo, messageRepo)
	messages := services.NewMessageService(messageRepo, chatRepo, matchRepo, profiles)
	messages.SetScheduler(noDelivery{})

	return &testAPI{t: t, handler: NewRouter(Services{
		Interactions: likes,
		Matches:      matches,
		Chats:        chats,
		Messages:     messages,
		Media:        fakeSigner{},
	}, time.Second)}
}

func (a *testAPI) do(method, path, user string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(controllers.UserHandleHeader, user)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// call expects status and decodes the body into out when out is non-nil.
func (a *testAPI) call(method, path, user string, body any, status int, out any) {
	a.t.Helper()
	rec := a.do(method, path, user, body)
	if rec.Code != status {
		a.t.Fatalf("%s %s = %d, want %d: %s", method, path, rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			a.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	var body map[string]string
	api.call(http.MethodGet, "/health", "", nil, http.StatusOK, &body)
	if body["status"] != "healthy" {
		t.Errorf("health = %v", body)
	}
}

func TestLikeMatchChatFlow(t *testing.T) {
	api := newTestAPI(t, "alice", "bob")

	var first models.LikeResult
	api.call(http.MethodPost, "/api/interactions/like", "alice", map[string]any{"targetUserId": "bob", "comment": "hey"}, http.StatusCreated, &first)
	if first.Matched {
		t.Fatal("a one-sided like must not match")
	}

	var received struct {
		Likes []models.ReceivedLike `json:"likes"`
	}
	api.call(http.MethodGet, "/api/interactions/received", "bob", nil, http.StatusOK, &received)
	if len(received.Likes) != 1 {
		t.Fatalf("bob has %d received likes, want 1", len(received.Likes))
	}

	var second models.LikeResult
	api.call(http.MethodPost, "/api/interactions/like", "bob", map[string]any{"targetUserId": "alice"}, http.StatusCreated, &second)
	if !second.Matched || second.Match == nil {
		t.Fatalf("reciprocal like = %+v, want a match", second)
	}
	matchID := second.Match.MatchID

	var matches services.MatchPage
	api.call(http.MethodGet, "/api/matches", "alice", nil, http.StatusOK, &matches)
	if len(matches.Matches) != 1 {
		t.Fatalf("alice has %d matches, want 1", len(matches.Matches))
	}

	var chat models.ChatSummary
	api.call(http.MethodPost, "/api/chats", "alice", map[string]string{"matchId": matchID}, http.StatusOK, &chat)
	if chat.ChatID != models.ChatIDFor(matchID) || chat.OtherUserID != "bob" {
		t.Fatalf("chat = %+v", chat)
	}

	var sent models.Message
	api.call(http.MethodPost, "/api/chats/"+chat.ChatID+"/messages", "alice", map[string]string{"type": models.MessageText, "content": "hi bob"}, http.StatusCreated, &sent)
	if sent.Content != "hi bob" || sent.SenderID != "alice" {
		t.Fatalf("sent = %+v", sent)
	}

	var page models.MessagePage
	api.call(http.MethodGet, "/api/chats/"+chat.ChatID+"/messages?page=1&pageSize=10", "bob", nil, http.StatusOK, &page)
	if len(page.Messages) != 2 || page.Messages[1].MessageID != sent.MessageID {
		t.Fatalf("bob sees %d messages, want the greeting and alice's message", len(page.Messages))
	}

	var read map[string]int
	api.call(http.MethodPost, "/api/chats/"+chat.ChatID+"/read", "bob", nil, http.StatusOK, &read)
	if read["marked"] != 2 {
		t.Errorf("marked = %d, want 2", read["marked"])
	}

	var reacted models.Message
	api.call(http.MethodPut, "/api/messages/"+sent.MessageID+"/reaction", "bob", map[string]string{"emoji": "🔥"}, http.StatusOK, &reacted)
	if reacted.Reactions["bob"].Emoji != "🔥" {
		t.Errorf("reactions = %v", reacted.Reactions)
	}

	var edited models.Message
	api.call(http.MethodPatch, "/api/messages/"+sent.MessageID, "alice", map[string]string{"content": "hi bob!"}, http.StatusOK, &edited)
	if edited.Content != "hi bob!" || edited.EditedAt == nil {
		t.Errorf("edited = %+v", edited)
	}

	var deleted models.Message
	api.call(http.MethodDelete, "/api/messages/"+sent.MessageID+"?forEveryone=true", "alice", nil, http.StatusOK, &deleted)
	if !deleted.DeletedForEveryone || deleted.Content != models.DeletedPlaceholder {
		t.Errorf("deleted = %+v", deleted)
	}

	api.call(http.MethodPost, "/api/matches/unmatch", "bob", map[string]string{"userId": "alice"}, http.StatusOK, nil)
	api.call(http.MethodPost, "/api/chats/"+chat.ChatID+"/messages", "alice", map[string]string{"type": models.MessageText, "content": "still there?"}, http.StatusForbidden, nil)
}

func TestChatSettingsAndDelete(t *testing.T) {
	api := newTestAPI(t, "alice", "bob")
	api.call(http.MethodPost, "/api/interactions/like", "alice", map[string]any{"targetUserId": "bob"}, http.StatusCreated, nil)
	var result models.LikeResult
	api.call(http.MethodPost, "/api/interactions/like", "bob", map[string]any{"targetUserId": "alice"}, http.StatusCreated, &result)

	var chat models.ChatSummary
	api.call(http.MethodPost, "/api/chats", "bob", map[string]string{"matchId": result.Match.MatchID}, http.StatusOK, &chat)

	var updated models.ChatSummary
	api.call(http.MethodPatch, "/api/chats/"+chat.ChatID+"/settings", "bob", map[string]bool{"pinned": true, "muted": true}, http.StatusOK, &updated)
	if !updated.Mine.Pinned || !updated.Mine.Muted {
		t.Errorf("settings = %+v", updated.Mine)
	}
	api.call(http.MethodPatch, "/api/chats/"+chat.ChatID+"/settings", "bob", map[string]bool{}, http.StatusBadRequest, nil)

	rec := api.do(http.MethodDelete, "/api/chats/"+chat.ChatID, "bob", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE chat = %d", rec.Code)
	}

	var listed services.ChatPage
	api.call(http.MethodGet, "/api/chats", "bob", nil, http.StatusOK, &listed)
	if len(listed.Chats) != 0 {
		t.Errorf("deleted chat still listed: %+v", listed.Chats)
	}
	api.call(http.MethodGet, "/api/chats?includeArchived=true", "bob", nil, http.StatusOK, &listed)
	if len(listed.Chats) != 1 {
		t.Errorf("includeArchived lists %d chats, want 1", len(listed.Chats))
	}
	api.call(http.MethodGet, "/api/chats", "alice", nil, http.StatusOK, &listed)
	if len(listed.Chats) != 1 {
		t.Errorf("alice lists %d chats; deleting is one-sided", len(listed.Chats))
	}
}

func TestRequestErrors(t *testing.T) {
	api := newTestAPI(t, "alice", "bob")

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"no caller", http.MethodGet, "/api/matches", "", nil, http.StatusUnauthorized},
		{"missing target", http.MethodPost, "/api/interactions/like", "alice", map[string]string{}, http.StatusBadRequest},
		{"self like", http.MethodPost, "/api/interactions/like", "alice", map[string]string{"targetUserId": "alice"}, http.StatusBadRequest},
		{"unknown target", http.MethodPost, "/api/interactions/like", "alice", map[string]string{"targetUserId": "zed"}, http.StatusNotFound},
		{"bad page", http.MethodGet, "/api/matches?page=two", "alice", nil, http.StatusBadRequest},
		{"bad flag", http.MethodGet, "/api/chats?includeArchived=maybe", "alice", nil, http.StatusBadRequest},
		{"bad since", http.MethodGet, "/api/chats/c1/messages?since=yesterday", "alice", nil, http.StatusBadRequest},
		{"unknown chat", http.MethodGet, "/api/chats/nope", "alice", nil, http.StatusNotFound},
		{"unknown match", http.MethodPost, "/api/chats", "alice", map[string]string{"matchId": "nope"}, http.StatusNotFound},
		{"unknown message", http.MethodPost, "/api/messages/nope/view", "alice", nil, http.StatusNotFound},
		{"empty emoji", http.MethodPut, "/api/messages/m1/reaction", "alice", map[string]string{"emoji": ""}, http.StatusBadRequest},
		{"wrong method", http.MethodPut, "/api/matches", "alice", nil, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api.t = t
			rec := api.do(tt.method, tt.path, tt.user, tt.body)
			if rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestMediaRoutes(t *testing.T) {
	api := newTestAPI(t, "alice")

	var upload media.Upload
	api.call(http.MethodPost, "/api/media/upload-url", "alice", map[string]string{"fileName": "a.jpg", "fileType": "image/jpeg"}, http.StatusOK, &upload)
	if upload.Key != "chat-media/x-a.jpg" || upload.URL == "" {
		t.Errorf("upload = %+v", upload)
	}
	api.call(http.MethodPost, "/api/media/upload-url", "alice", map[string]string{"fileName": "a.jpg"}, http.StatusBadRequest, nil)
}

func TestCorrelationHeader(t *testing.T) {
	api := newTestAPI(t, "alice")

	req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	req.Header.Set(controllers.UserHandleHeader, "alice")
	req.Header.Set(controllers.CorrelationHeader, "abc123")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(controllers.CorrelationHeader); got != "abc123" {
		t.Errorf("correlation header = %q, want the caller's ID echoed", got)
	}

	rec = api.do(http.MethodGet, "/api/matches", "alice", nil)
	if rec.Header().Get(controllers.CorrelationHeader) == "" {
		t.Error("a correlation ID must be generated when none is sent")
	}
}
