// Package auth handles sign-in against local credentials and session
// registration. It stands in for the institutional single sign-on boundary:
// the rest of the application only ever consumes the resolved identity.
package auth

import "time"

// Credentials is the slice of the users table that sign-in needs.
type Credentials struct {
	UserID       int64
	Username     string
	PasswordHash string
	IsActive     bool
}

// SessionRecord mirrors a login session persisted for auditing.
type SessionRecord struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
