package dynamo

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

type MatchRepo struct {
	ds    *DynamoService
	table string
}

func NewMatchRepo(ds *DynamoService, table string) *MatchRepo {
	return &MatchRepo{ds: ds, table: table}
}

// GetOrCreate is a single conditional upsert keyed by the pair-derived ID,
// so concurrent mutual likes converge on one record.
func (r *MatchRepo) GetOrCreate(ctx context.Context, userLow, userHigh, reason string, now time.Time) (*models.Match, error) {
	av, err := values(map[string]any{
		":none":    "",
		":pair":    models.PairKeyString(userLow, userHigh),
		":low":     userLow,
		":high":    userHigh,
		":active":  models.MatchActive,
		":blocked": models.MatchBlocked,
		":reason":  reason,
		":now":     now,
	})
	if err != nil {
		return nil, err
	}

	var m models.Match
	err = r.ds.UpdateItem(ctx, Update{
		Table: r.table,
		Key:   stringKey("matchId", models.MatchIDFor(userLow, userHigh)),
		Expression: "SET previousStatus = if_not_exists(#status, :none), pairKey = :pair, " +
			"userLow = :low, userHigh = :high, #status = :active, " +
			"originReason = if_not_exists(originReason, :reason), " +
			"createdAt = if_not_exists(createdAt, :now), lastInteractionAt = :now " +
			"REMOVE endReason, endedBy, endedAt",
		Condition: "attribute_not_exists(matchId) OR #status <> :blocked",
		Names:     map[string]string{"#status": "status"},
		Values:    av,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MatchRepo) GetByID(ctx context.Context, matchID string) (*models.Match, error) {
	var m models.Match
	if err := r.ds.GetItem(ctx, r.table, stringKey("matchId", matchID), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MatchRepo) End(ctx context.Context, matchID, status, reason, endedBy string, now time.Time) (*models.Match, error) {
	av, err := values(map[string]any{
		":status":  status,
		":blocked": models.MatchBlocked,
		":reason":  reason,
		":by":      endedBy,
		":now":     now,
	})
	if err != nil {
		return nil, err
	}

	var m models.Match
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        stringKey("matchId", matchID),
		Expression: "SET #status = :status, endReason = :reason, endedBy = :by, endedAt = :now, lastInteractionAt = :now",
		Condition:  "attribute_exists(matchId) AND #status <> :status AND #status <> :blocked",
		Names:      map[string]string{"#status": "status"},
		Values:     av,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByUser queries both side indexes and merges the results.
func (r *MatchRepo) ListByUser(ctx context.Context, userID string) ([]models.Match, error) {
	av, err := values(map[string]any{":u": userID})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []models.Match
	for _, idx := range []struct{ index, attr string }{
		{models.UserLowIndex, "userLow"},
		{models.UserHighIndex, "userHigh"},
	} {
		var page []models.Match
		err := r.ds.QueryAll(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table),
			IndexName:                 aws.String(idx.index),
			KeyConditionExpression:    aws.String(idx.attr + " = :u"),
			ExpressionAttributeValues: av,
		}, &page)
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			if !seen[m.MatchID] {
				seen[m.MatchID] = true
				out = append(out, m)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastInteractionAt.After(out[j].LastInteractionAt)
	})
	return out, nil
}

func (r *MatchRepo) Touch(ctx context.Context, matchID string, at time.Time) error {
	av, err := values(map[string]any{":at": at})
	if err != nil {
		return err
	}
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        stringKey("matchId", matchID),
		Expression: "SET lastInteractionAt = :at",
		Condition:  "attribute_exists(matchId)",
		Values:     av,
	}, nil)
	if errors.Is(err, repository.ErrConditionFailed) {
		return repository.ErrNotFound
	}
	return err
}
