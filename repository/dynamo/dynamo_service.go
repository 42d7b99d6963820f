// Package dynamo implements the repository contracts on Amazon DynamoDB.
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
	"github.com/rs/zerolog"

	"vibin_matchcore/logging"
	"vibin_matchcore/repository"
)

// DynamoService wraps the client with the marshal, condition and paging
// plumbing shared by the repositories.
type DynamoService struct {
	Client *dynamodb.Client
	log    zerolog.Logger
}

// NewClient builds a DynamoDB client. A non-empty endpoint targets a local
// emulator instead of the regional service.
func NewClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

func NewDynamoService(client *dynamodb.Client) *DynamoService {
	return &DynamoService{Client: client, log: logging.WithComponent("dynamo")}
}

// translate maps SDK failures onto repository errors.
func translate(err error, tableName string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return repository.ErrConditionFailed
	}
	return fmt.Errorf("table '%s': %w", tableName, err)
}

// PutItem writes item, guarded by condition when it is non-empty.
func (ds *DynamoService) PutItem(ctx context.Context, tableName string, item any, condition string) error {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      marshaled,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
	}

	if _, err := ds.Client.PutItem(ctx, input); err != nil {
		return translate(err, tableName)
	}
	ds.log.Debug().Str("table", tableName).Msg("item written")
	return nil
}

// GetItem loads the item at key into out, or returns repository.ErrNotFound.
func (ds *DynamoService) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue, out any) error {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return translate(err, tableName)
	}
	if output.Item == nil {
		return repository.ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(output.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item from table '%s': %w", tableName, err)
	}
	return nil
}

// Update describes one UpdateItem call.
type Update struct {
	Table      string
	Key        map[string]types.AttributeValue
	Expression string
	Condition  string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// UpdateItem applies u and unmarshals the updated item into out when out is
// non-nil.
func (ds *DynamoService) UpdateItem(ctx context.Context, u Update, out any) error {
	if len(u.Key) == 0 {
		return errors.New("update failed: key cannot be empty")
	}
	if u.Expression == "" {
		return errors.New("update failed: expression cannot be empty")
	}

	input := &dynamodb.UpdateItemInput{
		TableName:        aws.String(u.Table),
		Key:              u.Key,
		UpdateExpression: aws.String(u.Expression),
		ReturnValues:     types.ReturnValueAllNew,
	}
	if u.Condition != "" {
		input.ConditionExpression = aws.String(u.Condition)
	}
	if len(u.Names) > 0 {
		input.ExpressionAttributeNames = u.Names
	}
	if len(u.Values) > 0 {
		input.ExpressionAttributeValues = u.Values
	}

	output, err := ds.Client.UpdateItem(ctx, input)
	if err != nil {
		err = translate(err, u.Table)
		if !errors.Is(err, repository.ErrConditionFailed) {
			ds.log.Error().Err(err).Str("expression", u.Expression).Msg("update failed")
		}
		return err
	}
	if out == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(output.Attributes, out); err != nil {
		return fmt.Errorf("failed to unmarshal updated item from table '%s': %w", u.Table, err)
	}
	return nil
}

// Query runs input page by page, handing each page to visit until visit
// returns false or the results are exhausted.
func (ds *DynamoService) Query(ctx context.Context, input *dynamodb.QueryInput, visit func(items []map[string]types.AttributeValue) (bool, error)) error {
	paginator := dynamodb.NewQueryPaginator(ds.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return translate(err, aws.ToString(input.TableName))
		}
		more, err := visit(page.Items)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// QueryAll collects every item matched by input into out, a pointer to a slice.
func (ds *DynamoService) QueryAll(ctx context.Context, input *dynamodb.QueryInput, out any) error {
	var all []map[string]types.AttributeValue
	err := ds.Query(ctx, input, func(items []map[string]types.AttributeValue) (bool, error) {
		all = append(all, items...)
		return true, nil
	})
	if err != nil {
		return err
	}
	if err := attributevalue.UnmarshalListOfMaps(all, out); err != nil {
		return fmt.Errorf("failed to unmarshal query result: %w", err)
	}
	return nil
}

// batchGetAPI is the slice of the client BatchGetKeys drives.
type batchGetAPI interface {
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

// Retry schedule for keys DynamoDB leaves unprocessed under throttling.
var (
	batchGetAttempts = 5
	batchGetBackoff  = 50 * time.Millisecond
)

// BatchGetKeys returns the items present among keys in one table, reading
// consistently. Unprocessed keys are retried with backoff; a batch that is
// still incomplete after the last attempt is an error, never a partial result.
func (ds *DynamoService) BatchGetKeys(ctx context.Context, tableName string, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	return batchGetAll(ctx, ds.Client, tableName, keys)
}

func batchGetAll(ctx context.Context, api batchGetAPI, tableName string, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	pending := keys
	backoff := batchGetBackoff
	for attempt := 1; len(pending) > 0; attempt++ {
		output, err := api.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				tableName: {Keys: pending, ConsistentRead: aws.Bool(true)},
			},
		})
		if err != nil {
			return nil, translate(err, tableName)
		}
		items = append(items, output.Responses[tableName]...)

		pending = output.UnprocessedKeys[tableName].Keys
		if len(pending) == 0 {
			break
		}
		if attempt >= batchGetAttempts {
			return nil, fmt.Errorf("table '%s': %d keys unprocessed after %d attempts", tableName, len(pending), attempt)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return items, nil
}

// Retry schedule for reads through an eventually consistent index.
var (
	indexLookupAttempts = 3
	indexLookupBackoff  = 25 * time.Millisecond
)

// retryNotFound runs lookup until it returns something other than
// repository.ErrNotFound or the attempts run out.
func retryNotFound(ctx context.Context, lookup func(ctx context.Context) error) error {
	backoff := indexLookupBackoff
	for attempt := 1; ; attempt++ {
		err := lookup(ctx)
		if !errors.Is(err, repository.ErrNotFound) || attempt >= indexLookupAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// values marshals expression attribute values.
func values(in map[string]any) (map[string]types.AttributeValue, error) {
	out, err := attributevalue.MarshalMap(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal expression values: %w", err)
	}
	return out, nil
}

func stringKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{name: &types.AttributeValueMemberS{Value: value}}
}

func stringSet(v ...string) types.AttributeValue {
	return &types.AttributeValueMemberSS{Value: v}
}
