package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

type MatchRepo struct {
	mu      sync.Mutex
	matches map[string]models.Match
}

func NewMatchRepo() *MatchRepo {
	return &MatchRepo{matches: map[string]models.Match{}}
}

func (r *MatchRepo) GetOrCreate(ctx context.Context, userLow, userHigh, reason string, now time.Time) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := models.MatchIDFor(userLow, userHigh)
	m, ok := r.matches[id]
	if !ok {
		m = models.Match{
			MatchID:      id,
			PairKey:      models.PairKeyString(userLow, userHigh),
			UserLow:      userLow,
			UserHigh:     userHigh,
			OriginReason: reason,
			CreatedAt:    now,
		}
	} else if m.Status == models.MatchBlocked {
		return nil, repository.ErrConditionFailed
	}

	m.PreviousStatus = m.Status
	m.Status = models.MatchActive
	m.EndReason = ""
	m.EndedBy = ""
	m.EndedAt = nil
	m.LastInteractionAt = now
	r.matches[id] = m
	return cloneMatch(m), nil
}

func (r *MatchRepo) GetByID(ctx context.Context, matchID string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneMatch(m), nil
}

func (r *MatchRepo) End(ctx context.Context, matchID, status, reason, endedBy string, now time.Time) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if m.Status == status || m.Status == models.MatchBlocked {
		return nil, repository.ErrConditionFailed
	}
	m.Status = status
	m.EndReason = reason
	m.EndedBy = endedBy
	m.EndedAt = &now
	m.LastInteractionAt = now
	r.matches[matchID] = m
	return cloneMatch(m), nil
}

func (r *MatchRepo) ListByUser(ctx context.Context, userID string) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Match
	for _, m := range r.matches {
		if m.HasParticipant(userID) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastInteractionAt.After(out[j].LastInteractionAt)
	})
	return out, nil
}

func (r *MatchRepo) Touch(ctx context.Context, matchID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchID]
	if !ok {
		return repository.ErrNotFound
	}
	m.LastInteractionAt = at
	r.matches[matchID] = m
	return nil
}
