package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

type InteractionRepo struct {
	mu    sync.Mutex
	items map[string]models.Interaction
}

func NewInteractionRepo() *InteractionRepo {
	return &InteractionRepo{items: map[string]models.Interaction{}}
}

func interactionKey(actorID, targetID string) string {
	pk, sk := models.InteractionKey(actorID, targetID)
	return pk + "|" + sk
}

func (r *InteractionRepo) Get(ctx context.Context, actorID, targetID string) (*models.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.items[interactionKey(actorID, targetID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneInteraction(in), nil
}

func (r *InteractionRepo) Put(ctx context.Context, in *models.Interaction) (*models.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := interactionKey(in.ActorID, in.TargetID)
	existing, ok := r.items[key]
	if ok && in.Action == models.ActionLike && existing.IsMatchedLike() {
		return nil, repository.ErrConditionFailed
	}

	stored := *cloneInteraction(*in)
	stored.PK, stored.SK = models.InteractionKey(in.ActorID, in.TargetID)
	stored.MatchID = ""
	stored.MatchedAt = nil
	if ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.LastUpdated
	}
	r.items[key] = stored
	return cloneInteraction(stored), nil
}

func (r *InteractionRepo) MarkMatched(ctx context.Context, actorID, targetID, matchID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := interactionKey(actorID, targetID)
	in, ok := r.items[key]
	if !ok {
		return repository.ErrNotFound
	}
	in.Status = models.InteractionMatched
	in.MatchID = matchID
	in.MatchedAt = &at
	in.LastUpdated = at
	r.items[key] = in
	return nil
}

func (r *InteractionRepo) ListReceived(ctx context.Context, targetID string, limit int) ([]models.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Interaction
	for _, in := range r.items {
		if in.TargetID == targetID && in.Action == models.ActionLike && in.Status == models.InteractionPending {
			out = append(out, *cloneInteraction(in))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
