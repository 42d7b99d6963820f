package dynamo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCondition bool
	}{
		{"conditional check", &types.ConditionalCheckFailedException{Message: aws.String("nope")}, true},
		{"throttled", &types.ProvisionedThroughputExceededException{}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.err, "Messages")
			if errors.Is(got, repository.ErrConditionFailed) != tt.wantCondition {
				t.Errorf("translate(%v) = %v", tt.err, got)
			}
			if !tt.wantCondition && !strings.Contains(got.Error(), "Messages") {
				t.Errorf("error %q should name the table", got)
			}
		})
	}
}

func TestUpdateItem_RejectsIncompleteUpdates(t *testing.T) {
	ds := &DynamoService{}
	ctx := context.Background()

	if err := ds.UpdateItem(ctx, Update{Table: "Chats", Expression: "SET a = :a"}, nil); err == nil {
		t.Error("an update without key must fail")
	}
	if err := ds.UpdateItem(ctx, Update{Table: "Chats", Key: stringKey("chatId", "c1")}, nil); err == nil {
		t.Error("an update without expression must fail")
	}
}

func TestMessageItemShape(t *testing.T) {
	now := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	m := models.NewMessage("c1", "m1", "alice", models.MessageText, now)
	m.Content = "hi"

	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}
	for _, attr := range []string{"viewedBy", "hiddenFor"} {
		if _, ok := item[attr]; ok {
			t.Errorf("empty %s must be omitted; DynamoDB rejects empty sets", attr)
		}
	}
	for _, attr := range []string{"reactions", "readReceipts", "deletionRecords"} {
		if _, ok := item[attr].(*types.AttributeValueMemberM); !ok {
			t.Errorf("%s must be stored as a map so nested updates have a parent", attr)
		}
	}
	sk, ok := item["sortKey"].(*types.AttributeValueMemberS)
	if !ok || sk.Value != models.MessageSortKey(now, "m1") {
		t.Errorf("sortKey = %v", item["sortKey"])
	}

	m.ViewedBy = []string{"bob"}
	item, err = attributevalue.MarshalMap(m)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}
	if _, ok := item["viewedBy"].(*types.AttributeValueMemberSS); !ok {
		t.Errorf("viewedBy = %T, want a string set", item["viewedBy"])
	}
}

func TestValues(t *testing.T) {
	vals, err := values(map[string]any{
		":at":   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		":one":  1,
		":user": "alice",
	})
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if _, ok := vals[":one"].(*types.AttributeValueMemberN); !ok {
		t.Errorf(":one = %T, want number", vals[":one"])
	}
	if s, ok := vals[":at"].(*types.AttributeValueMemberS); !ok || !strings.HasPrefix(s.Value, "2025-01-01T00:00:00") {
		t.Errorf(":at = %v, want an RFC 3339 string", vals[":at"])
	}
	if ss, ok := stringSet("bob").(*types.AttributeValueMemberSS); !ok || len(ss.Value) != 1 {
		t.Error("stringSet must build a string set")
	}
}

// scriptedBatchGet answers BatchGetItem calls from a fixed script, one
// output per call, and records the keys each call asked for.
type scriptedBatchGet struct {
	outputs []*dynamodb.BatchGetItemOutput
	asked   [][]map[string]types.AttributeValue
}

func (s *scriptedBatchGet) BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	ka := in.RequestItems["Blocks"]
	if ka.ConsistentRead == nil || !*ka.ConsistentRead {
		return nil, errors.New("block lookups must read consistently")
	}
	s.asked = append(s.asked, ka.Keys)
	if len(s.asked) > len(s.outputs) {
		return &dynamodb.BatchGetItemOutput{}, nil
	}
	return s.outputs[len(s.asked)-1], nil
}

func TestBatchGetAll_RetriesUnprocessedKeys(t *testing.T) {
	prev := batchGetBackoff
	batchGetBackoff = time.Millisecond
	t.Cleanup(func() { batchGetBackoff = prev })

	ab := blockKey("alice", "bob")
	ba := blockKey("bob", "alice")
	unprocessed := func(keys ...map[string]types.AttributeValue) map[string]types.KeysAndAttributes {
		return map[string]types.KeysAndAttributes{"Blocks": {Keys: keys}}
	}
	found := func(items ...map[string]types.AttributeValue) map[string][]map[string]types.AttributeValue {
		return map[string][]map[string]types.AttributeValue{"Blocks": items}
	}

	tests := []struct {
		name      string
		outputs   []*dynamodb.BatchGetItemOutput
		wantItems int
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "complete first time",
			outputs:   []*dynamodb.BatchGetItemOutput{{Responses: found(ab)}},
			wantItems: 1,
			wantCalls: 1,
		},
		{
			name: "block key throttled then returned",
			outputs: []*dynamodb.BatchGetItemOutput{
				{UnprocessedKeys: unprocessed(ab, ba)},
				{Responses: found(ba), UnprocessedKeys: unprocessed(ab)},
				{Responses: found(ab)},
			},
			wantItems: 2,
			wantCalls: 3,
		},
		{
			name: "never drains",
			outputs: []*dynamodb.BatchGetItemOutput{
				{UnprocessedKeys: unprocessed(ab)},
				{UnprocessedKeys: unprocessed(ab)},
				{UnprocessedKeys: unprocessed(ab)},
				{UnprocessedKeys: unprocessed(ab)},
				{UnprocessedKeys: unprocessed(ab)},
			},
			wantCalls: 5,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &scriptedBatchGet{outputs: tt.outputs}
			items, err := batchGetAll(context.Background(), api, "Blocks", []map[string]types.AttributeValue{ab, ba})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(items), tt.wantItems)
			}
			if len(api.asked) != tt.wantCalls {
				t.Errorf("calls = %d, want %d", len(api.asked), tt.wantCalls)
			}
			if len(api.asked) > 1 && len(api.asked[1]) != len(tt.outputs[0].UnprocessedKeys["Blocks"].Keys) {
				t.Errorf("retry asked for %d keys, want only the unprocessed ones", len(api.asked[1]))
			}
		})
	}
}

func TestRetryNotFound(t *testing.T) {
	prev := indexLookupBackoff
	indexLookupBackoff = time.Millisecond
	t.Cleanup(func() { indexLookupBackoff = prev })

	boom := errors.New("boom")
	tests := []struct {
		name      string
		results   []error
		want      error
		wantCalls int
	}{
		{"found at once", []error{nil}, nil, 1},
		{"index catches up", []error{repository.ErrNotFound, repository.ErrNotFound, nil}, nil, 3},
		{"really missing", []error{repository.ErrNotFound, repository.ErrNotFound, repository.ErrNotFound, nil}, repository.ErrNotFound, 3},
		{"other errors are not retried", []error{boom, nil}, boom, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retryNotFound(context.Background(), func(ctx context.Context) error {
				calls++
				return tt.results[calls-1]
			})
			if !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}
