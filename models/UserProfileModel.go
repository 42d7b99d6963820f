package models

// UserProfile is the subset of the profile service's record this core reads.
type UserProfile struct {
	UserHandle    string   `dynamodbav:"userhandle" json:"userhandle"` // partition key
	Name          string   `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Age           int      `dynamodbav:"age,omitempty" json:"age,omitempty"`
	Gender        string   `dynamodbav:"gender,omitempty" json:"gender,omitempty"`
	Orientation   string   `dynamodbav:"orientation,omitempty" json:"orientation,omitempty"`
	LookingFor    string   `dynamodbav:"lookingFor,omitempty" json:"lookingFor,omitempty"`
	Interests     []string `dynamodbav:"interests,omitempty" json:"interests,omitempty"`
	Desires       []string `dynamodbav:"desires,omitempty" json:"desires,omitempty"`
	Photos        []string `dynamodbav:"photos,omitempty" json:"photos,omitempty"`
	Latitude      float64  `dynamodbav:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude     float64  `dynamodbav:"longitude,omitempty" json:"longitude,omitempty"`
	AccountStatus string   `dynamodbav:"accountStatus,omitempty" json:"accountStatus,omitempty"` // active, suspended, deleted
}

// UserProfilesTable is the DynamoDB table name for user profiles.
const UserProfilesTable = "Users"

// BlocksTable holds one item per (blocker, blocked) pair.
const BlocksTable = "Blocks"

// Account statuses
const (
	AccountActive    = "active"
	AccountSuspended = "suspended"
	AccountDeleted   = "deleted"
)

// IsActive reports whether the profile may take part in matching and chat.
// Profiles created before account statuses existed carry no status.
func (p *UserProfile) IsActive() bool {
	return p.AccountStatus == "" || p.AccountStatus == AccountActive
}

// HasLocation reports whether the profile carries coordinates.
func (p *UserProfile) HasLocation() bool {
	return p.Latitude != 0 || p.Longitude != 0
}

// FirstPhoto returns the profile's first photo or "".
func (p *UserProfile) FirstPhoto() string {
	if len(p.Photos) == 0 {
		return ""
	}
	return p.Photos[0]
}
