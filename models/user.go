package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	PushToken    string    `json:"-"`
	Created      time.Time `json:"created"`
}

// Name returns the label printed on tickets. Falls back to the
// username when no display name was set.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
