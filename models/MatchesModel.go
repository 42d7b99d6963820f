package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Match is the single canonical record of the relationship between two users.
// UserLow and UserHigh hold the participants in PairKey order, so the
// unordered pair {A,B} always maps to one MatchID.
type Match struct {
	MatchID           string     `dynamodbav:"matchId" json:"matchId"` // partition key, derived from the pair
	PairKey           string     `dynamodbav:"pairKey" json:"-"`
	UserLow           string     `dynamodbav:"userLow" json:"userLow"`
	UserHigh          string     `dynamodbav:"userHigh" json:"userHigh"`
	Status            string     `dynamodbav:"status" json:"status"` // active, ended, blocked
	OriginReason      string     `dynamodbav:"originReason" json:"originReason"`
	EndReason         string     `dynamodbav:"endReason,omitempty" json:"endReason,omitempty"`
	EndedBy           string     `dynamodbav:"endedBy,omitempty" json:"endedBy,omitempty"`
	EndedAt           *time.Time `dynamodbav:"endedAt,omitempty" json:"endedAt,omitempty"`
	CreatedAt         time.Time  `dynamodbav:"createdAt" json:"createdAt"`
	LastInteractionAt time.Time  `dynamodbav:"lastInteractionAt" json:"lastInteractionAt"`

	// PreviousStatus is the status the record had before the last
	// create-or-get. Empty when the record was just inserted.
	PreviousStatus string `dynamodbav:"previousStatus,omitempty" json:"-"`
}

// MatchesTable is the DynamoDB table name for matches.
const MatchesTable = "Matches"

// GSIs listing matches by either side of the pair.
const (
	UserLowIndex  = "userLow-index"
	UserHighIndex = "userHigh-index"
)

var matchNamespace = uuid.MustParse("6f0b8b2e-3c1a-4f4e-9d61-2b7c9a1e5d40")

// PairKey orders two user identifiers into (low, high) under byte-wise
// lexicographic order. PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) (low, high string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// PairKeyString renders the canonical pair as a single storage key. Each
// side is length-prefixed so identifiers containing '#' cannot collide.
func PairKeyString(a, b string) string {
	low, high := PairKey(a, b)
	return fmt.Sprintf("PAIR#%d:%s#%d:%s", len(low), low, len(high), high)
}

// MatchIDFor returns the opaque, deterministic match ID of the unordered pair.
func MatchIDFor(a, b string) string {
	return uuid.NewSHA1(matchNamespace, []byte(PairKeyString(a, b))).String()
}

// HasParticipant reports whether userID is one side of the match.
func (m *Match) HasParticipant(userID string) bool {
	return m.UserLow == userID || m.UserHigh == userID
}

// OtherParticipant returns the side of the pair that is not userID.
func (m *Match) OtherParticipant(userID string) string {
	if m.UserLow == userID {
		return m.UserHigh
	}
	return m.UserLow
}

// WasActivated reports whether the last create-or-get inserted the match
// or moved it back to active.
func (m *Match) WasActivated() bool {
	return m.PreviousStatus != MatchActive
}
