package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"vibin_matchcore/helpers"
	"vibin_matchcore/services"
)

// MessageController handles actions on a single message
type MessageController struct {
	MessageService *services.MessageService
}

func NewMessageController(service *services.MessageService) *MessageController {
	return &MessageController{MessageService: service}
}

type editRequest struct {
	Content string `json:"content" validate:"required"`
}

type reactRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

type forwardRequest struct {
	TargetChatID string `json:"targetChatId" validate:"required"`
}

// Edit replaces the text of the caller's own message
func (mc *MessageController) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req editRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := mc.MessageService.Edit(r.Context(), mux.Vars(r)["messageId"], user, req.Content)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, msg)
}

// Delete removes a message for the caller, or for everyone with
// ?forEveryone=true
func (mc *MessageController) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	forEveryone, ok := queryBool(w, r, "forEveryone")
	if !ok {
		return
	}

	msg, err := mc.MessageService.Delete(r.Context(), mux.Vars(r)["messageId"], user, forEveryone)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, msg)
}

// React sets or replaces the caller's reaction
func (mc *MessageController) React(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req reactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := mc.MessageService.React(r.Context(), mux.Vars(r)["messageId"], user, req.Emoji)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, msg)
}

func (mc *MessageController) Unreact(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	msg, err := mc.MessageService.Unreact(r.Context(), mux.Vars(r)["messageId"], user)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, msg)
}

// Forward copies a message into another chat of the caller
func (mc *MessageController) Forward(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req forwardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg, err := mc.MessageService.Forward(r.Context(), mux.Vars(r)["messageId"], user, req.TargetChatID)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, msg)
}

// View opens a one-view message
func (mc *MessageController) View(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	msg, err := mc.MessageService.MarkViewed(r.Context(), mux.Vars(r)["messageId"], user)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, msg)
}
