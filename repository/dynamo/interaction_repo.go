package dynamo

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

type InteractionRepo struct {
	ds    *DynamoService
	table string
}

func NewInteractionRepo(ds *DynamoService, table string) *InteractionRepo {
	return &InteractionRepo{ds: ds, table: table}
}

func interactionKey(actorID, targetID string) map[string]types.AttributeValue {
	pk, sk := models.InteractionKey(actorID, targetID)
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func (r *InteractionRepo) Get(ctx context.Context, actorID, targetID string) (*models.Interaction, error) {
	var in models.Interaction
	if err := r.ds.GetItem(ctx, r.table, interactionKey(actorID, targetID), &in); err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *InteractionRepo) Put(ctx context.Context, in *models.Interaction) (*models.Interaction, error) {
	created := in.CreatedAt
	if created.IsZero() {
		created = in.LastUpdated
	}
	vals := map[string]any{
		":actor":   in.ActorID,
		":target":  in.TargetID,
		":action":  in.Action,
		":status":  in.Status,
		":now":     in.LastUpdated,
		":created": created,
	}
	names := map[string]string{
		"#action":  "action",
		"#status":  "status",
		"#comment": "comment",
	}

	expr := "SET actorId = :actor, targetId = :target, #action = :action, #status = :status, " +
		"lastUpdated = :now, createdAt = if_not_exists(createdAt, :created)"
	remove := " REMOVE matchId, matchedAt"
	if in.Comment != nil {
		expr += ", #comment = :comment"
		vals[":comment"] = *in.Comment
	} else {
		remove += ", #comment"
	}

	var cond string
	if in.Action == models.ActionLike {
		cond = "attribute_not_exists(PK) OR NOT (#action = :like AND #status = :matched)"
		vals[":like"] = models.ActionLike
		vals[":matched"] = models.InteractionMatched
	}

	av, err := values(vals)
	if err != nil {
		return nil, err
	}

	var stored models.Interaction
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        interactionKey(in.ActorID, in.TargetID),
		Expression: expr + remove,
		Condition:  cond,
		Names:      names,
		Values:     av,
	}, &stored)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *InteractionRepo) MarkMatched(ctx context.Context, actorID, targetID, matchID string, at time.Time) error {
	av, err := values(map[string]any{
		":matched": models.InteractionMatched,
		":match":   matchID,
		":at":      at,
	})
	if err != nil {
		return err
	}
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        interactionKey(actorID, targetID),
		Expression: "SET #status = :matched, matchId = :match, matchedAt = :at, lastUpdated = :at",
		Condition:  "attribute_exists(PK)",
		Names:      map[string]string{"#status": "status"},
		Values:     av,
	}, nil)
	if errors.Is(err, repository.ErrConditionFailed) {
		return repository.ErrNotFound
	}
	return err
}

func (r *InteractionRepo) ListReceived(ctx context.Context, targetID string, limit int) ([]models.Interaction, error) {
	av, err := values(map[string]any{
		":target":  targetID,
		":like":    models.ActionLike,
		":pending": models.InteractionPending,
	})
	if err != nil {
		return nil, err
	}

	var out []models.Interaction
	err = r.ds.QueryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(models.TargetIDIndex),
		KeyConditionExpression:    aws.String("targetId = :target"),
		FilterExpression:          aws.String("#action = :like AND #status = :pending"),
		ExpressionAttributeNames:  map[string]string{"#action": "action", "#status": "status"},
		ExpressionAttributeValues: av,
	}, &out)
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
