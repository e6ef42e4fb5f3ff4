package models

import "time"

// Role is the access level of an account. It is fixed at signup.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user account in the system.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"` // Never expose this to the client
	Role         Role       `json:"role"`
	IsBlocked    bool       `json:"isBlocked"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// UserSummary is the admin listing shape.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsBlocked bool   `json:"isBlocked"`
}
