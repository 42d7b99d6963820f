package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"vibin_matchcore/logging"
	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

// MatchService owns the canonical match record of every pair.
type MatchService struct {
	matches  repository.MatchRepository
	profiles profileGate
	policy   Policy
	now      func() time.Time
}

func NewMatchService(matches repository.MatchRepository, profiles repository.ProfileRepository) *MatchService {
	return &MatchService{
		matches:  matches,
		profiles: profileGate{profiles: profiles},
		policy:   DefaultPolicy(),
		now:      time.Now,
	}
}

func (s *MatchService) SetClock(now func() time.Time) { s.now = now }
func (s *MatchService) SetPolicy(p Policy) { s.policy = p }

// CreateOrGetMatch returns the active match of the pair, inserting it or
// reactivating an ended one in a single conditional write.
func (s *MatchService) CreateOrGetMatch(ctx context.Context, userX, userY, reason string) (*models.Match, error) {
	if userX == "" || userY == "" {
		return nil, invalid("both users are required")
	}
	if userX == userY {
		return nil, invalid("a user cannot match themselves")
	}

	low, high := models.PairKey(userX, userY)
	m, err := s.matches.GetOrCreate(ctx, low, high, reason, s.now())
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, forbidden("pair is blocked")
	}
	if err != nil {
		return nil, err
	}

	if m.WasActivated() {
		logging.Ctx(ctx).Info().
			Str("match_id", m.MatchID).
			Str("previous_status", m.PreviousStatus).
			Msg("match activated")
	}
	return m, nil
}

// EndMatch moves the pair's match to status (ended or blocked). Repeating
// the call, or ending a blocked match, returns the stored record unchanged.
func (s *MatchService) EndMatch(ctx context.Context, userX, userY, status, reason, endedBy string) (*models.Match, error) {
	if status != models.MatchEnded && status != models.MatchBlocked {
		return nil, invalid("unknown terminal status %q", status)
	}
	if userX == userY {
		return nil, invalid("a user cannot match themselves")
	}

	matchID := models.MatchIDFor(userX, userY)
	current, err := s.matches.GetByID(ctx, matchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound("no match between these users")
	}
	if err != nil {
		return nil, err
	}
	if current.Status == status || current.Status == models.MatchBlocked {
		return current, nil
	}

	m, err := s.matches.End(ctx, matchID, status, reason, endedBy, s.now())
	if errors.Is(err, repository.ErrConditionFailed) {
		// a concurrent caller got there first
		return s.matches.GetByID(ctx, matchID)
	}
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("match_id", m.MatchID).
		Str("status", status).
		Str("reason", reason).
		Msg("match ended")
	return m, nil
}

// Unmatch ends the caller's match with otherID.
func (s *MatchService) Unmatch(ctx context.Context, callerID, otherID string) (*models.Match, error) {
	return s.EndMatch(ctx, callerID, otherID, models.MatchEnded, models.ReasonUnmatched, callerID)
}

// Block moves the caller's match with otherID to blocked, after which the
// pair can never be reactivated.
func (s *MatchService) Block(ctx context.Context, callerID, otherID string) (*models.Match, error) {
	return s.EndMatch(ctx, callerID, otherID, models.MatchBlocked, models.ReasonBlocked, callerID)
}

// GetMatch loads a match the caller takes part in.
func (s *MatchService) GetMatch(ctx context.Context, matchID, callerID string) (*models.Match, error) {
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
	return m, nil
}

// ListMatchesOptions filters and pages a match listing.
type ListMatchesOptions struct {
	Status   string // active (default), ended, blocked or all
	Page     int
	PageSize int
}

// MatchPage is one page of a user's matches, most recent first.
type MatchPage struct {
	Matches  []models.MatchSummary `json:"matches"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
	HasMore  bool                  `json:"hasMore"`
}

// ListMatches returns the user's matches annotated with the other side's
// card and a compatibility score.
func (s *MatchService) ListMatches(ctx context.Context, userID string, opts ListMatchesOptions) (*MatchPage, error) {
	status := strings.ToLower(opts.Status)
	switch status {
	case "":
		status = models.MatchActive
	case models.MatchActive, models.MatchEnded, models.MatchBlocked, "all":
	default:
		return nil, invalid("unknown match status %q", opts.Status)
	}

	all, err := s.matches.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var filtered []models.Match
	for _, m := range all {
		if status == "all" || m.Status == status {
			filtered = append(filtered, m)
		}
	}

	page, size, offset := s.policy.pageBounds(opts.Page, opts.PageSize)
	result := &MatchPage{Matches: []models.MatchSummary{}, Page: page, PageSize: size}
	if offset >= len(filtered) {
		return result, nil
	}
	filtered = filtered[offset:]
	if len(filtered) > size {
		filtered = filtered[:size]
		result.HasMore = true
	}

	me, err := s.profiles.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	for _, m := range filtered {
		summary := models.MatchSummary{Match: m, OtherUserID: m.OtherParticipant(userID)}
		other, err := s.profiles.profiles.Get(ctx, summary.OtherUserID)
		switch {
		case err == nil:
			summary.OtherUser = models.CardFor(other)
			summary.Compatibility = Compatibility(me, other)
		case errors.Is(err, repository.ErrNotFound):
		default:
			logging.Ctx(ctx).Warn().Err(err).Str("user", summary.OtherUserID).Msg("profile lookup failed")
		}
		result.Matches = append(result.Matches, summary)
	}
	return result, nil
}
