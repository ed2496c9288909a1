package models

import "time"

type User struct {
	ID                  string    `json:"id" bson:"_id"`
	Email               string    `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash        string    `json:"-" bson:"password_hash,omitempty"`
	IsAdmin             bool      `json:"isAdmin" bson:"isAdmin"`
	NearbyNotifications bool      `json:"nearby_notifications" bson:"nearby_notifications"`
	VisitedPOIs         []string  `json:"visited_pois" bson:"visited_pois"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at"`
}

// Role is the account level a request runs with.
type Role string

const (
	RoleGuest    Role = "GUEST"
	RoleStandard Role = "STANDARD"
	RoleAdmin    Role = "ADMIN"
)

// RoleOf resolves the role of an identified user. A nil user with a non-empty
// id is an authenticated account that has no stored document yet.
func RoleOf(userID string, user *User) Role {
	if userID == "" {
		return RoleGuest
	}
	if user != nil && user.IsAdmin {
		return RoleAdmin
	}
	return RoleStandard
}

func (r Role) SignedIn() bool {
	return r == RoleStandard || r == RoleAdmin
}

func (u User) HasVisited(poiID string) bool {
	for _, id := range u.VisitedPOIs {
		if id == poiID {
			return true
		}
	}
	return false
}
