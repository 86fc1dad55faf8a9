package domain

import "time"

const (
	// MaxTemplatesPerAccount caps how many face templates a single account may enroll.
	MaxTemplatesPerAccount = 5

	// DefaultConfidenceThreshold is the matching threshold applied when the
	// account has no explicit biometric settings row yet. A face matches when
	// the embedding distance is below 1 - threshold.
	DefaultConfidenceThreshold = 0.65

	// MinConfidenceThreshold and MaxConfidenceThreshold bound user-tunable thresholds.
	MinConfidenceThreshold = 0.5
	MaxConfidenceThreshold = 0.9

	// DefaultMaxFailedAttempts is how many consecutive failed verifications
	// trigger a temporary biometric lockout.
	DefaultMaxFailedAttempts = 5

	// LockoutDuration is how long biometric authentication stays refused
	// after the failure limit is reached.
	LockoutDuration = 30 * time.Minute
)

// BiometricTemplate is an enrolled face stored as field-cipher ciphertext of
// the embedding vector. Templates are immutable; users delete and re-enroll.
type BiometricTemplate struct {
	ID                 string
	UserID             string
	EncryptedEmbedding string
	Label              string
	CreatedAt          time.Time
}

// BiometricSettings holds the per-account matching threshold together with
// the bruteforce lockout record. One row per account, lazily created.
type BiometricSettings struct {
	UserID              string
	ConfidenceThreshold float64
	FailedAttempts      int
	LockedUntil         *time.Time
	MaxFailedAttempts   int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewBiometricSettings returns the default settings for an account that has
// never configured biometrics.
func NewBiometricSettings(userID string, now time.Time) BiometricSettings {
	return BiometricSettings{
		UserID:              userID,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaxFailedAttempts:   DefaultMaxFailedAttempts,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// IsLocked reports whether biometric authentication is currently refused.
func (s BiometricSettings) IsLocked(at time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(at)
}

// RecordFailure increments the failure counter and, once the limit is
// reached, starts the lockout window. Returns true when the account
// transitioned into the locked state.
func (s *BiometricSettings) RecordFailure(at time.Time) bool {
	s.FailedAttempts++
	s.UpdatedAt = at
	if s.FailedAttempts >= s.MaxFailedAttempts {
		until := at.Add(LockoutDuration)
		s.LockedUntil = &until
		return true
	}
	return false
}

// RecordSuccess resets the failure counter and clears any pending lockout.
func (s *BiometricSettings) RecordSuccess(at time.Time) {
	s.FailedAttempts = 0
	s.LockedUntil = nil
	s.UpdatedAt = at
}
