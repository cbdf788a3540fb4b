package types

import "time"

// User is the persisted owner identity consumed from the auth collaborator.
// Registration and password handling live outside this service.
type User struct {
	Id         uint      `json:"-"`
	ExternalId string    `json:"id"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuthInfo is attached to request contexts after token validation
type AuthInfo struct {
	User *User
}
