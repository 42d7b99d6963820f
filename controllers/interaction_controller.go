package controllers

import (
	"net/http"

	"vibin_matchcore/helpers"
	"vibin_matchcore/services"
)

// InteractionController handles likes and dislikes
type InteractionController struct {
	InteractionService *services.InteractionService
}

// NewInteractionController creates a new InteractionController
func NewInteractionController(service *services.InteractionService) *InteractionController {
	return &InteractionController{InteractionService: service}
}

type likeRequest struct {
	TargetUserID string  `json:"targetUserId" validate:"required"`
	Comment      *string `json:"comment,omitempty"`
}

type dislikeRequest struct {
	TargetUserID string `json:"targetUserId" validate:"required"`
}

// Like records a like and reports whether it completed a match
func (ic *InteractionController) Like(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req likeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := ic.InteractionService.RecordLike(r.Context(), user, req.TargetUserID, req.Comment)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, result)
}

// Dislike records a dislike, ending any active match between the pair
func (ic *InteractionController) Dislike(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req dislikeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	interaction, err := ic.InteractionService.RecordDislike(r.Context(), user, req.TargetUserID)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, map[string]any{"interaction": interaction})
}

// ListReceived returns pending likes sent to the caller
func (ic *InteractionController) ListReceived(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	likes, err := ic.InteractionService.ListLikesReceived(r.Context(), user, limit)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]any{"likes": likes})
}
