package domain

import "time"

// LoginSucceededEvent represents the payload for cohortsec.auth.login messages.
type LoginSucceededEvent struct {
	EventID   string
	UserID    string
	Method    string // "password", "mfa", "biometric"
	SessionID string
	IPAddress *string
	UserAgent *string
	At        time.Time
	Metadata  map[string]any
}

// LoginFailedEvent represents the payload for cohortsec.auth.login_failed messages.
type LoginFailedEvent struct {
	EventID    string
	UserID     *string
	Identifier string
	Method     string
	Reason     string
	IPAddress  *string
	At         time.Time
}

// SessionRevokedEvent represents the payload for cohortsec.auth.session_revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	Reason    string
	RevokedAt time.Time
	IPAddress *string
}

// BiometricLockoutEvent represents the payload for cohortsec.auth.biometric_lockout
// messages, emitted when repeated face-verification failures lock an account.
type BiometricLockoutEvent struct {
	EventID        string
	UserID         string
	FailedAttempts int
	LockedUntil    time.Time
	At             time.Time
}

// AccountRegisteredEvent represents the payload for cohortsec.auth.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	UserID       string
	Username     string
	Email        string
	RegisteredAt time.Time
}
