package domain

import "time"

// AccountStatus captures the lifecycle state of an account.
type AccountStatus string

const (
	// AccountStatusActive marks an account that may authenticate.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusDisabled marks an account blocked from authenticating.
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account is the aggregate root for authentication. TOTPSecret is stored as
// field-cipher ciphertext and is only decrypted at verification time.
type Account struct {
	ID           string
	Username     string
	Email        string
	FullName     *string
	PasswordHash string
	Status       AccountStatus
	IsActive     bool
	MFAEnabled   bool
	TOTPSecret   string
	RegisteredAt time.Time
	LastLogin    *time.Time
}

// CanAuthenticate reports whether the account is allowed to start a session.
func (a Account) CanAuthenticate() bool {
	return a.IsActive && a.Status == AccountStatusActive
}
