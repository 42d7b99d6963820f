package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"vibin_matchcore/helpers"
	"vibin_matchcore/models"
	"vibin_matchcore/services"
)

// ChatController handles chats and the messages listed or sent within them
type ChatController struct {
	ChatService    *services.ChatService
	MessageService *services.MessageService
}

// NewChatController creates a new ChatController
func NewChatController(chats *services.ChatService, messages *services.MessageService) *ChatController {
	return &ChatController{ChatService: chats, MessageService: messages}
}

type createChatRequest struct {
	MatchID string `json:"matchId" validate:"required"`
}

type sendMessageRequest struct {
	Type      string `json:"type" validate:"required"`
	ReplyTo   string `json:"replyTo,omitempty"`
	IsOneView bool   `json:"isOneView,omitempty"`
	models.Payload
}

// GetOrCreate opens the chat of an active match
func (cc *ChatController) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req createChatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	summary, err := cc.ChatService.GetOrCreateChatForMatch(r.Context(), req.MatchID, user)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, summary)
}

// ListChats returns the caller's chats. Query: includeArchived, page, pageSize.
func (cc *ChatController) ListChats(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	archived, ok := queryBool(w, r, "includeArchived")
	if !ok {
		return
	}
	page, ok := queryInt(w, r, "page")
	if !ok {
		return
	}
	size, ok := queryInt(w, r, "pageSize")
	if !ok {
		return
	}

	result, err := cc.ChatService.ListChats(r.Context(), user, services.ListChatsOptions{
		IncludeArchived: archived,
		Page:            page,
		PageSize:        size,
	})
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}

func (cc *ChatController) GetChat(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	summary, err := cc.ChatService.GetChatSummary(r.Context(), mux.Vars(r)["chatId"], user)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, summary)
}

// UpdateSettings applies a partial archive/pin/mute update for the caller
func (cc *ChatController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var patch models.SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}

	summary, err := cc.ChatService.UpdateSettings(r.Context(), mux.Vars(r)["chatId"], user, patch)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, summary)
}

// DeleteChat hides the chat and its history from the caller only
func (cc *ChatController) DeleteChat(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	if err := cc.ChatService.DeleteChat(r.Context(), mux.Vars(r)["chatId"], user); err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkRead marks every message from the other participant as read
func (cc *ChatController) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	n, err := cc.MessageService.MarkRead(r.Context(), mux.Vars(r)["chatId"], user)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]int{"marked": n})
}

// ListMessages returns one page of history. Query: page, pageSize, since (RFC 3339).
func (cc *ChatController) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	page, ok := queryInt(w, r, "page")
	if !ok {
		return
	}
	size, ok := queryInt(w, r, "pageSize")
	if !ok {
		return
	}
	opts := services.MessageListOptions{Page: page, PageSize: size}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			badQuery(w, r, "since", "an RFC 3339 timestamp")
			return
		}
		opts.Since = &since
	}

	result, err := cc.MessageService.GetChatMessages(r.Context(), mux.Vars(r)["chatId"], user, opts)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}

// SendMessage appends a message to the chat
func (cc *ChatController) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := cc.MessageService.Send(r.Context(), services.SendRequest{
		ChatID:    mux.Vars(r)["chatId"],
		SenderID:  user,
		Type:      req.Type,
		Payload:   req.Payload,
		ReplyTo:   req.ReplyTo,
		IsOneView: req.IsOneView,
	})
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, msg)
}
