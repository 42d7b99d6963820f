package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

type ChatRepo struct {
	ds    *DynamoService
	table string
}

func NewChatRepo(ds *DynamoService, table string) *ChatRepo {
	return &ChatRepo{ds: ds, table: table}
}

// GetOrCreate relies on the match-derived chat ID: the first writer wins the
// conditional put and every other caller reads the winner back.
func (r *ChatRepo) GetOrCreate(ctx context.Context, c *models.Chat) (*models.Chat, bool, error) {
	err := r.ds.PutItem(ctx, r.table, c, "attribute_not_exists(chatId)")
	if err == nil {
		stored := *c
		return &stored, true, nil
	}
	if !errors.Is(err, repository.ErrConditionFailed) {
		return nil, false, err
	}
	existing, err := r.GetByID(ctx, c.ChatID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ChatRepo) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	var c models.Chat
	if err := r.ds.GetItem(ctx, r.table, stringKey("chatId", chatID), &c); err != nil {
		return nil, err
	}
	if c.Settings == nil {
		c.Settings = map[string]models.ParticipantSettings{}
	}
	return &c, nil
}

func (r *ChatRepo) ListByParticipant(ctx context.Context, userID string) ([]models.Chat, error) {
	av, err := values(map[string]any{":u": userID})
	if err != nil {
		return nil, err
	}

	var out []models.Chat
	for _, idx := range []struct{ index, attr string }{
		{models.ParticipantAIndex, "participantA"},
		{models.ParticipantBIndex, "participantB"},
	} {
		var page []models.Chat
		err := r.ds.QueryAll(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table),
			IndexName:                 aws.String(idx.index),
			KeyConditionExpression:    aws.String(idx.attr + " = :u"),
			ExpressionAttributeValues: av,
		}, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
	}
	return out, nil
}

// updateSettings runs a SET over one participant's settings entry.
func (r *ChatRepo) updateSettings(ctx context.Context, chatID, userID string, sets []string, vals map[string]any) (*models.Chat, error) {
	av, err := values(vals)
	if err != nil {
		return nil, err
	}

	var c models.Chat
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        stringKey("chatId", chatID),
		Expression: "SET " + strings.Join(sets, ", "),
		Condition:  "attribute_exists(chatId)",
		Names:      map[string]string{"#u": userID},
		Values:     av,
	}, &c)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepo) UpdateSettings(ctx context.Context, chatID, userID string, patch models.SettingsPatch, now time.Time) (*models.Chat, error) {
	sets := []string{"updatedAt = :now"}
	vals := map[string]any{":now": now}
	if patch.Archived != nil {
		sets = append(sets, "settings.#u.archived = :archived")
		vals[":archived"] = *patch.Archived
		if *patch.Archived {
			sets = append(sets, "settings.#u.archivedAt = :now")
		}
	}
	if patch.Pinned != nil {
		sets = append(sets, "settings.#u.pinned = :pinned")
		vals[":pinned"] = *patch.Pinned
	}
	if patch.Muted != nil {
		sets = append(sets, "settings.#u.muted = :muted")
		vals[":muted"] = *patch.Muted
	}
	return r.updateSettings(ctx, chatID, userID, sets, vals)
}

func (r *ChatRepo) Hide(ctx context.Context, chatID, userID string, now time.Time) (*models.Chat, error) {
	return r.updateSettings(ctx, chatID, userID, []string{
		"settings.#u.archived = :true",
		"settings.#u.archivedAt = :now",
		"settings.#u.hiddenSinceAt = :now",
		"settings.#u.unreadCount = :zero",
		"updatedAt = :now",
	}, map[string]any{":true": true, ":now": now, ":zero": 0})
}

func (r *ChatRepo) RecordMessage(ctx context.Context, chatID string, last models.LastMessage, unreadFor, unhide []string) error {
	vals := map[string]any{
		":id":      last.MessageID,
		":sender":  last.SenderID,
		":preview": last.Preview,
		":at":      last.At,
	}
	names := map[string]string{}
	sets := []string{
		"lastMessageId = :id",
		"lastMessageSender = :sender",
		"lastMessagePreview = :preview",
		"lastMessageAt = :at",
		"updatedAt = :at",
	}
	for i, u := range unhide {
		name := fmt.Sprintf("#h%d", i)
		names[name] = u
		sets = append(sets, "settings."+name+".archived = :false")
		vals[":false"] = false
	}
	expr := "SET " + strings.Join(sets, ", ")

	var adds []string
	for i, u := range unreadFor {
		name := fmt.Sprintf("#r%d", i)
		names[name] = u
		adds = append(adds, "settings."+name+".unreadCount :one")
		vals[":one"] = 1
	}
	if len(adds) > 0 {
		expr += " ADD " + strings.Join(adds, ", ")
	}

	av, err := values(vals)
	if err != nil {
		return err
	}
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        stringKey("chatId", chatID),
		Expression: expr,
		Condition:  "attribute_exists(chatId)",
		Names:      names,
		Values:     av,
	}, nil)
	if errors.Is(err, repository.ErrConditionFailed) {
		return repository.ErrNotFound
	}
	return err
}

func (r *ChatRepo) ResetUnread(ctx context.Context, chatID, userID string, at time.Time) (*models.Chat, error) {
	return r.updateSettings(ctx, chatID, userID, []string{
		"settings.#u.unreadCount = :zero",
		"settings.#u.lastReadAt = :at",
	}, map[string]any{":zero": 0, ":at": at})
}
