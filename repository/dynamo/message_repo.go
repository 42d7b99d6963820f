package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

// MessageRepo stores one partition per chat, sorted by createdAt#messageId.
type MessageRepo struct {
	ds    *DynamoService
	table string
}

func NewMessageRepo(ds *DynamoService, table string) *MessageRepo {
	return &MessageRepo{ds: ds, table: table}
}

func messageKey(key models.MessageKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"chatId":  &types.AttributeValueMemberS{Value: key.ChatID},
		"sortKey": &types.AttributeValueMemberS{Value: key.SortKey},
	}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	return r.ds.PutItem(ctx, r.table, m, "attribute_not_exists(sortKey)")
}

// Get resolves the message's key through the ID index, then reads the item
// consistently from the table. The index lags writes, so a miss is retried
// briefly before it counts as not found.
func (r *MessageRepo) Get(ctx context.Context, messageID string) (*models.Message, error) {
	var key models.MessageKey
	err := retryNotFound(ctx, func(ctx context.Context) error {
		k, err := r.keyFor(ctx, messageID)
		key = k
		return err
	})
	if err != nil {
		return nil, err
	}

	var m models.Message
	if err := r.ds.GetItem(ctx, r.table, messageKey(key), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) keyFor(ctx context.Context, messageID string) (models.MessageKey, error) {
	var found []struct {
		ChatID  string `dynamodbav:"chatId"`
		SortKey string `dynamodbav:"sortKey"`
	}
	err := r.ds.QueryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(models.MessageIDIndex),
		KeyConditionExpression: aws.String("messageId = :id"),
		ProjectionExpression:   aws.String("chatId, sortKey"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: messageID},
		},
	}, &found)
	if err != nil {
		return models.MessageKey{}, err
	}
	if len(found) == 0 {
		return models.MessageKey{}, repository.ErrNotFound
	}
	return models.MessageKey{ChatID: found[0].ChatID, SortKey: found[0].SortKey}, nil
}

func (r *MessageRepo) List(ctx context.Context, chatID, viewerID string, since *time.Time, offset, limit int) ([]models.Message, bool, error) {
	keyCond := "chatId = :chat"
	vals := map[string]any{":chat": chatID, ":viewer": viewerID}
	if since != nil {
		keyCond += " AND sortKey > :bound"
		vals[":bound"] = models.SortKeyAfter(*since)
	}
	av, err := values(vals)
	if err != nil {
		return nil, false, err
	}

	// Walk newest first; the filter drops messages the viewer hid, so
	// offset and limit are applied to what survives it.
	skipped := 0
	var items []map[string]types.AttributeValue
	err = r.ds.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    aws.String(keyCond),
		FilterExpression:          aws.String("NOT contains(hiddenFor, :viewer)"),
		ExpressionAttributeValues: av,
		ScanIndexForward:          aws.Bool(false),
	}, func(page []map[string]types.AttributeValue) (bool, error) {
		for _, item := range page {
			if skipped < offset {
				skipped++
				continue
			}
			items = append(items, item)
			if len(items) > limit {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	msgs := []models.Message{}
	if err := attributevalue.UnmarshalListOfMaps(items, &msgs); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return msgs, hasMore, nil
}

func (r *MessageRepo) MarkDelivered(ctx context.Context, key models.MessageKey, at time.Time) (bool, error) {
	av, err := values(map[string]any{
		":sent":      models.StatusSent,
		":delivered": models.StatusDelivered,
		":at":        at,
	})
	if err != nil {
		return false, err
	}
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        messageKey(key),
		Expression: "SET #status = :delivered, updatedAt = :at",
		Condition:  "#status = :sent",
		Names:      map[string]string{"#status": "status"},
		Values:     av,
	}, nil)
	if errors.Is(err, repository.ErrConditionFailed) {
		return false, nil
	}
	return err == nil, err
}

// MarkReadBy finds unread incoming messages, then writes each receipt
// conditionally so concurrent readers never double-count.
func (r *MessageRepo) MarkReadBy(ctx context.Context, chatID, readerID string, since *time.Time, at time.Time) (int, error) {
	keyCond := "chatId = :chat"
	vals := map[string]any{":chat": chatID, ":reader": readerID}
	if since != nil {
		keyCond += " AND sortKey > :bound"
		vals[":bound"] = models.SortKeyAfter(*since)
	}
	av, err := values(vals)
	if err != nil {
		return 0, err
	}

	var keys []models.MessageKey
	err = r.ds.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		KeyConditionExpression:    aws.String(keyCond),
		FilterExpression:          aws.String("senderId <> :reader AND NOT contains(hiddenFor, :reader) AND attribute_not_exists(readReceipts.#u)"),
		ProjectionExpression:      aws.String("chatId, sortKey"),
		ExpressionAttributeNames:  map[string]string{"#u": readerID},
		ExpressionAttributeValues: av,
	}, func(page []map[string]types.AttributeValue) (bool, error) {
		var batch []struct {
			ChatID  string `dynamodbav:"chatId"`
			SortKey string `dynamodbav:"sortKey"`
		}
		if err := attributevalue.UnmarshalListOfMaps(page, &batch); err != nil {
			return false, fmt.Errorf("failed to unmarshal message keys: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, models.MessageKey{ChatID: k.ChatID, SortKey: k.SortKey})
		}
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	upd, err := values(map[string]any{":at": at, ":read": models.StatusRead})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, key := range keys {
		err := r.ds.UpdateItem(ctx, Update{
			Table:      r.table,
			Key:        messageKey(key),
			Expression: "SET readReceipts.#u = :at, #status = :read, updatedAt = :at",
			Condition:  "attribute_not_exists(readReceipts.#u)",
			Names:      map[string]string{"#u": readerID, "#status": "status"},
			Values:     upd,
		}, nil)
		if errors.Is(err, repository.ErrConditionFailed) {
			continue
		}
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *MessageRepo) Edit(ctx context.Context, key models.MessageKey, content string, history []models.EditRecord, at time.Time, expectVersion int64) (*models.Message, error) {
	if history == nil {
		history = []models.EditRecord{}
	}
	av, err := values(map[string]any{
		":content": content,
		":history": history,
		":at":      at,
		":one":     1,
		":version": expectVersion,
		":false":   false,
	})
	if err != nil {
		return nil, err
	}

	var m models.Message
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        messageKey(key),
		Expression: "SET #content = :content, editHistory = :history, editedAt = :at, updatedAt = :at, #version = #version + :one",
		Condition:  "#version = :version AND deletedForEveryone = :false",
		Names:      map[string]string{"#content": "content", "#version": "version"},
		Values:     av,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) SetReaction(ctx context.Context, key models.MessageKey, userID string, reaction *models.Reaction, at time.Time) (*models.Message, error) {
	vals := map[string]any{":at": at, ":false": false}
	expr := "SET updatedAt = :at REMOVE reactions.#u"
	if reaction != nil {
		vals[":reaction"] = *reaction
		expr = "SET reactions.#u = :reaction, updatedAt = :at"
	}
	av, err := values(vals)
	if err != nil {
		return nil, err
	}

	var m models.Message
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        messageKey(key),
		Expression: expr,
		Condition:  "attribute_exists(sortKey) AND deletedForEveryone = :false",
		Names:      map[string]string{"#u": userID},
		Values:     av,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) AddViewer(ctx context.Context, key models.MessageKey, viewerID string, at time.Time) (*models.Message, error) {
	av, err := values(map[string]any{":at": at})
	if err != nil {
		return nil, err
	}
	av[":viewer"] = stringSet(viewerID)

	var m models.Message
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        messageKey(key),
		Expression: "SET updatedAt = :at ADD viewedBy :viewer",
		Condition:  "attribute_exists(sortKey)",
		Values:     av,
	}, &m)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) DeleteForUser(ctx context.Context, key models.MessageKey, userID string, at time.Time) (*models.Message, error) {
	av, err := values(map[string]any{
		":at":     at,
		":record": models.DeletionRecord{DeletedAt: at},
		":user":   userID,
	})
	if err != nil {
		return nil, err
	}
	av[":hidden"] = stringSet(userID)

	var m models.Message
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        messageKey(key),
		Expression: "SET deletionRecords.#u = :record, updatedAt = :at ADD hiddenFor :hidden",
		Condition:  "attribute_exists(sortKey) AND NOT contains(hiddenFor, :user)",
		Names:      map[string]string{"#u": userID},
		Values:     av,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) DeleteForEveryone(ctx context.Context, key models.MessageKey, senderID string, at time.Time) (*models.Message, error) {
	av, err := values(map[string]any{
		":true":        true,
		":false":       false,
		":at":          at,
		":placeholder": models.DeletedPlaceholder,
		":record":      models.DeletionRecord{DeletedAt: at, ForEveryone: true},
		":history":     []models.EditRecord{},
		":reactions":   map[string]models.Reaction{},
		":sender":      senderID,
	})
	if err != nil {
		return nil, err
	}

	var m models.Message
	err = r.ds.UpdateItem(ctx, Update{
		Table: r.table,
		Key:   messageKey(key),
		Expression: "SET isDeleted = :true, deletedForEveryone = :true, deletedAt = :at, " +
			"#content = :placeholder, deletionRecords.#u = :record, editHistory = :history, " +
			"reactions = :reactions, updatedAt = :at REMOVE #media, #location",
		Condition: "senderId = :sender AND deletedForEveryone = :false",
		Names: map[string]string{
			"#u":        senderID,
			"#content":  "content",
			"#media":    "media",
			"#location": "location",
		},
		Values: av,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MessageRepo) ExpireOneView(ctx context.Context, key models.MessageKey, at time.Time) error {
	av, err := values(map[string]any{":true": true, ":at": at})
	if err != nil {
		return err
	}
	err = r.ds.UpdateItem(ctx, Update{
		Table:      r.table,
		Key:        messageKey(key),
		Expression: "SET isDeleted = :true, deletedAt = if_not_exists(deletedAt, :at), updatedAt = :at REMOVE #media",
		Condition:  "attribute_exists(sortKey)",
		Names:      map[string]string{"#media": "media"},
		Values:     av,
	}, nil)
	if errors.Is(err, repository.ErrConditionFailed) {
		return repository.ErrNotFound
	}
	return err
}
