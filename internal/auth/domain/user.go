package domain

import "time"

// DefaultAuthorities are granted to users created without explicit ones.
var DefaultAuthorities = []string{"ROLE_USER"}

type User struct {
	ID             string
	Email          string
	Name           string
	Authorities    []string // Parsed from space-delimited storage
	AccountExpired bool
	Locked         bool
	Disabled       bool
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OAuthLink ties a local user to an identity at an upstream provider.
type OAuthLink struct {
	UserID    string
	Provider  string
	OAuthID   string
	CreatedAt time.Time
}
