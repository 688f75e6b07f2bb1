// Package domain contains entity without logic, just meta-data
package domain

import "strings"

const MaxUsernameLen = 64

// UserID is the Telegram numeric user id. Test identities use the
// 1000..10999 range and are never persisted as real users.
type UserID int64

type User struct {
	ID        UserID `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(id UserID, username string) *User {
	return &User{ID: id, Username: username}
}

// DisplayName prefers the username and falls back to first/last name.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
