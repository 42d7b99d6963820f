package models

// MatchedUserDetails is the other participant's public card.
type MatchedUserDetails struct {
	UserHandle  string   `json:"userhandle"`
	Name        string   `json:"name,omitempty"`
	Age         int      `json:"age,omitempty"`
	Photo       string   `json:"photo,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Orientation string   `json:"orientation,omitempty"`
	LookingFor  string   `json:"lookingFor,omitempty"`
	Interests   []string `json:"interests,omitempty"`
}

// CardFor projects a profile onto its public card.
func CardFor(p *UserProfile) *MatchedUserDetails {
	if p == nil {
		return nil
	}
	return &MatchedUserDetails{
		UserHandle:  p.UserHandle,
		Name:        p.Name,
		Age:         p.Age,
		Photo:       p.FirstPhoto(),
		Gender:      p.Gender,
		Orientation: p.Orientation,
		LookingFor:  p.LookingFor,
		Interests:   p.Interests,
	}
}

// Compatibility annotates a match for presentation only; it is never stored.
type Compatibility struct {
	Score           float64  `json:"score"`
	SharedInterests []string `json:"sharedInterests,omitempty"`
	DistanceKm      *float64 `json:"distanceKm,omitempty"`
	DistanceBand    string   `json:"distanceBand,omitempty"`
}

// MatchSummary is a match as listed for one of its participants.
type MatchSummary struct {
	Match
	OtherUserID   string              `json:"otherUserId"`
	OtherUser     *MatchedUserDetails `json:"otherUser,omitempty"`
	Compatibility *Compatibility      `json:"compatibility,omitempty"`
}

// ReceivedLike is a pending like targeting the caller.
type ReceivedLike struct {
	Interaction
	Actor *MatchedUserDetails `json:"actor,omitempty"`
}
