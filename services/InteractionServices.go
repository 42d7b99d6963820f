package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"vibin_matchcore/logging"
	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

// MaxCommentLength bounds the optional note attached to a like.
const MaxCommentLength = 500

// InteractionService records likes and dislikes and detects reciprocity.
type InteractionService struct {
	interactions repository.InteractionRepository
	profiles     profileGate
	matches      *MatchService
	notifier     Notifier
	now          func() time.Time
}

func NewInteractionService(interactions repository.InteractionRepository, profiles repository.ProfileRepository, matches *MatchService) *InteractionService {
	return &InteractionService{
		interactions: interactions,
		profiles:     profileGate{profiles: profiles},
		matches:      matches,
		now:          time.Now,
	}
}

func (s *InteractionService) SetNotifier(n Notifier) { s.notifier = n }
func (s *InteractionService) SetClock(now func() time.Time) { s.now = now }

// RecordLike stores actor's like of target. When target already likes
// actor, both interactions become matched and the pair's match is created
// or reactivated.
func (s *InteractionService) RecordLike(ctx context.Context, actorID, targetID string, comment *string) (*models.LikeResult, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if utf8.RuneCountInString(trimmed) > MaxCommentLength {
			return nil, invalid("comment exceeds %d characters", MaxCommentLength)
		}
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}

	if _, err := s.profiles.requireActive(ctx, actorID); err != nil {
		return nil, err
	}
	if _, err := s.profiles.requireActive(ctx, targetID); err != nil {
		return nil, err
	}
	if err := s.profiles.requireNotBlocked(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	// a blocked match can never be reactivated, so the like is refused
	// before it is stored
	existing, err := s.matches.matches.GetByID(ctx, models.MatchIDFor(actorID, targetID))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == models.MatchBlocked {
		return nil, forbidden("match is blocked")
	}

	now := s.now()
	stored, err := s.interactions.Put(ctx, &models.Interaction{
		ActorID:     actorID,
		TargetID:    targetID,
		Action:      models.ActionLike,
		Comment:     comment,
		Status:      models.InteractionPending,
		CreatedAt:   now,
		LastUpdated: now,
	})
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, conflict("already liked")
	}
	if err != nil {
		return nil, err
	}

	reverse, err := s.interactions.Get(ctx, targetID, actorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if reverse == nil || reverse.Action != models.ActionLike {
		payload := map[string]any{}
		if comment != nil {
			payload["comment"] = *comment
		}
		notify(ctx, s.notifier, models.Notification{
			Type:        models.NotifyLike,
			RecipientID: targetID,
			SenderID:    actorID,
			Payload:     payload,
		})
		return &models.LikeResult{Interaction: stored}, nil
	}

	match, err := s.matches.CreateOrGetMatch(ctx, actorID, targetID, models.ReasonMutualLike)
	if err != nil {
		return nil, err
	}
	for _, pair := range [][2]string{{actorID, targetID}, {targetID, actorID}} {
		if err := s.interactions.MarkMatched(ctx, pair[0], pair[1], match.MatchID, now); err != nil {
			return nil, err
		}
	}
	stored.Status = models.InteractionMatched
	stored.MatchID = match.MatchID
	stored.MatchedAt = &now

	if match.WasActivated() {
		for _, pair := range [][2]string{{actorID, targetID}, {targetID, actorID}} {
			notify(ctx, s.notifier, models.Notification{
				Type:        models.NotifyMatch,
				RecipientID: pair[0],
				SenderID:    pair[1],
				Payload:     map[string]any{"matchId": match.MatchID},
			})
		}
	}

	logging.Ctx(ctx).Info().
		Str("actor", actorID).
		Str("target", targetID).
		Str("match_id", match.MatchID).
		Msg("reciprocal like")
	return &models.LikeResult{Interaction: stored, Matched: true, Match: match}, nil
}

// RecordDislike stores actor's dislike of target and ends their active
// match, if any.
func (s *InteractionService) RecordDislike(ctx context.Context, actorID, targetID string) (*models.Interaction, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.profiles.requireExists(ctx, targetID); err != nil {
		return nil, err
	}

	now := s.now()
	stored, err := s.interactions.Put(ctx, &models.Interaction{
		ActorID:     actorID,
		TargetID:    targetID,
		Action:      models.ActionDislike,
		Status:      models.InteractionDismissed,
		CreatedAt:   now,
		LastUpdated: now,
	})
	if err != nil {
		return nil, err
	}

	m, err := s.matches.matches.GetByID(ctx, models.MatchIDFor(actorID, targetID))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return stored, nil
	case err != nil:
		return nil, err
	}
	if m.Status == models.MatchActive {
		if _, err := s.matches.EndMatch(ctx, actorID, targetID, models.MatchEnded, models.ReasonDismissed, actorID); err != nil {
			return nil, err
		}
	}
	return stored, nil
}

// ListLikesReceived returns pending likes targeting userID from users who
// are still active and not blocked.
func (s *InteractionService) ListLikesReceived(ctx context.Context, userID string, limit int) ([]models.ReceivedLike, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	likes, err := s.interactions.ListReceived(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]models.ReceivedLike, 0, len(likes))
	for _, in := range likes {
		actor, err := s.profiles.profiles.Get(ctx, in.ActorID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !actor.IsActive() {
			continue
		}
		blocked, err := s.profiles.profiles.IsBlocked(ctx, userID, in.ActorID)
		if err != nil {
			return nil, err
		}
		if blocked {
			continue
		}
		out = append(out, models.ReceivedLike{Interaction: in, Actor: models.CardFor(actor)})
	}
	return out, nil
}

func validatePair(actorID, targetID string) error {
	if actorID == "" || targetID == "" {
		return invalid("actor and target are required")
	}
	if actorID == targetID {
		return invalid("cannot target yourself")
	}
	return nil
}
