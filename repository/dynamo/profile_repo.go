package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vibin_matchcore/models"
)

// ProfileRepo reads the profile service's Users and Blocks tables.
type ProfileRepo struct {
	ds          *DynamoService
	usersTable  string
	blocksTable string
}

func NewProfileRepo(ds *DynamoService, usersTable, blocksTable string) *ProfileRepo {
	return &ProfileRepo{ds: ds, usersTable: usersTable, blocksTable: blocksTable}
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := r.ds.GetItem(ctx, r.usersTable, stringKey("userhandle", userID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func blockKey(blocker, blocked string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"blockerId": &types.AttributeValueMemberS{Value: blocker},
		"blockedId": &types.AttributeValueMemberS{Value: blocked},
	}
}

// IsBlocked fetches both directions of the pair in one consistent batch.
func (r *ProfileRepo) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	items, err := r.ds.BatchGetKeys(ctx, r.blocksTable, []map[string]types.AttributeValue{
		blockKey(a, b),
		blockKey(b, a),
	})
	if err != nil {
		return false, err
	}
	return len(items) > 0, nil
}
