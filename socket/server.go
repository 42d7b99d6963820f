package socket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	socketio "github.com/googollee/go-socket.io"

	"vibin_matchcore/logging"
	"vibin_matchcore/models"
)

const (
	namespace = "/"

	// UserHandleHeader carries the caller identity on REST and socket
	// handshakes alike.
	UserHandleHeader = "X-User-Handle"
	userHandleQuery  = "userHandle"

	joinTimeout = 5 * time.Second
)

// ChatAuthorizer checks that userID participates in chatID.
type ChatAuthorizer interface {
	GetChat(ctx context.Context, chatID, userID string) (*models.Chat, error)
}

// Hub owns the Socket.IO server. Every connection joins its user room on
// connect and may join the rooms of chats it participates in.
type Hub struct {
	server *socketio.Server
	chats  ChatAuthorizer
}

// NewHub initializes the Socket.IO server and its handlers.
func NewHub(chats ChatAuthorizer) *Hub {
	h := &Hub{server: socketio.NewServer(nil), chats: chats}
	log := logging.WithComponent("socket")

	h.server.OnConnect(namespace, func(s socketio.Conn) error {
		user := handleFrom(s.URL(), s.RemoteHeader())
		if user == "" {
			log.Warn().Str("conn", s.ID()).Msg("socket rejected: no user handle")
			return errors.New("missing user handle")
		}
		s.SetContext(user)
		s.Join(models.UserRoom(user))
		log.Debug().Str("conn", s.ID()).Str("user", user).Msg("socket connected")
		return nil
	})

	h.server.OnEvent(namespace, "join", func(s socketio.Conn, chatID string) {
		user, _ := s.Context().(string)
		room, err := h.authorizeJoin(user, chatID)
		if err != nil {
			log.Warn().Err(err).Str("user", user).Str("chat", chatID).Msg("join refused")
			s.Emit("error", err.Error())
			return
		}
		s.Join(room)
		s.Emit("joined", chatID)
	})

	h.server.OnEvent(namespace, "leave", func(s socketio.Conn, chatID string) {
		s.Leave(models.ChatRoom(chatID))
	})

	h.server.OnError(namespace, func(s socketio.Conn, err error) {
		log.Warn().Err(err).Msg("socket error")
	})

	h.server.OnDisconnect(namespace, func(s socketio.Conn, reason string) {
		log.Debug().Str("conn", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	return h
}

func (h *Hub) authorizeJoin(user, chatID string) (string, error) {
	if user == "" || chatID == "" {
		return "", errors.New("user and chat are required")
	}
	ctx, cancel := context.WithTimeout(logging.ContextWithUserID(context.Background(), user), joinTimeout)
	defer cancel()
	if _, err := h.chats.GetChat(ctx, chatID, user); err != nil {
		return "", fmt.Errorf("join %s: %w", chatID, err)
	}
	return models.ChatRoom(chatID), nil
}

// Handler serves the Socket.IO endpoint.
func (h *Hub) Handler() http.Handler { return h.server }

// Serve runs the server loop until Close.
func (h *Hub) Serve() error { return h.server.Serve() }

func (h *Hub) Close() error { return h.server.Close() }

// Publish implements services.Broadcaster.
func (h *Hub) Publish(ctx context.Context, channelID string, evt models.Event) error {
	if !h.server.BroadcastToRoom(namespace, channelID, evt.Type, evt) {
		return fmt.Errorf("broadcast %s to %s: namespace %s not found", evt.Type, channelID, namespace)
	}
	return nil
}

// handleFrom reads the user handle from the handshake query or headers.
func handleFrom(u url.URL, h http.Header) string {
	if v := strings.TrimSpace(u.Query().Get(userHandleQuery)); v != "" {
		return v
	}
	return strings.TrimSpace(h.Get(UserHandleHeader))
}
