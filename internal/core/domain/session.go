package domain

import "time"

// Session represents a persisted refresh-token identity. One row exists per
// live refresh token; the row is deleted (not flagged) when the token is
// rotated or the user logs out, which is what makes refresh tokens single-use.
type Session struct {
	ID        string
	UserID    string
	TokenJTI  string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session has elapsed its validity window.
func (s Session) IsExpired(at time.Time) bool {
	return !s.ExpiresAt.After(at)
}
