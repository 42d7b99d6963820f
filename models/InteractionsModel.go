package models

import "time"

// Interaction is the latest like/dislike an actor made on a target profile.
// There is at most one per ordered (actor, target) pair; a repeat action
// overwrites it in place.
type Interaction struct {
	PK          string     `dynamodbav:"PK" json:"-"` // "USER#<actor>"
	SK          string     `dynamodbav:"SK" json:"-"` // "INTERACTION#<target>"
	ActorID     string     `dynamodbav:"actorId" json:"actorId"`
	TargetID    string     `dynamodbav:"targetId" json:"targetId"`
	Action      string     `dynamodbav:"action" json:"action"` // like, dislike
	Comment     *string    `dynamodbav:"comment,omitempty" json:"comment,omitempty"`
	Status      string     `dynamodbav:"status" json:"status"` // pending, matched, dismissed
	MatchID     string     `dynamodbav:"matchId,omitempty" json:"matchId,omitempty"`
	MatchedAt   *time.Time `dynamodbav:"matchedAt,omitempty" json:"matchedAt,omitempty"`
	CreatedAt   time.Time  `dynamodbav:"createdAt" json:"createdAt"`
	LastUpdated time.Time  `dynamodbav:"lastUpdated" json:"lastUpdated"`
}

// InteractionsTable is the DynamoDB table holding interactions.
const InteractionsTable = "Interactions"

// TargetIDIndex is the GSI used to list interactions received by a user.
const TargetIDIndex = "targetId-index"

// InteractionKey returns the partition and sort key of the actor→target interaction.
func InteractionKey(actorID, targetID string) (pk, sk string) {
	return "USER#" + actorID, "INTERACTION#" + targetID
}

// IsMatchedLike reports whether the interaction already produced a match.
func (i *Interaction) IsMatchedLike() bool {
	return i.Action == ActionLike && i.Status == InteractionMatched
}
