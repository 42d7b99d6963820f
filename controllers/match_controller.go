package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"vibin_matchcore/helpers"
	"vibin_matchcore/services"
)

// MatchController handles HTTP requests for match-related actions
type MatchController struct {
	MatchService *services.MatchService
}

// NewMatchController creates a new MatchController instance
func NewMatchController(matchService *services.MatchService) *MatchController {
	return &MatchController{MatchService: matchService}
}

type pairRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// ListMatches returns the caller's matches. Query: status, page, pageSize.
func (mc *MatchController) ListMatches(w http.ResponseWriter, r *http.Request) {
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

	result, err := mc.MatchService.ListMatches(r.Context(), user, services.ListMatchesOptions{
		Status:   r.URL.Query().Get("status"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}

// GetMatch returns one match the caller participates in
func (mc *MatchController) GetMatch(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	match, err := mc.MatchService.GetMatch(r.Context(), mux.Vars(r)["matchId"], user)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, match)
}

// Unmatch ends the caller's active match with another user
func (mc *MatchController) Unmatch(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req pairRequest
	if !decodeBody(w, r, &req) {
		return
	}

	match, err := mc.MatchService.Unmatch(r.Context(), user, req.UserID)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, match)
}

// Block ends the match as blocked
func (mc *MatchController) Block(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req pairRequest
	if !decodeBody(w, r, &req) {
		return
	}

	match, err := mc.MatchService.Block(r.Context(), user, req.UserID)
	if err != nil {
		helpers.WriteErrorResponse(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, match)
}
