package port

import (
	"context"
	"time"

	"github.com/gerich15/cohortsec/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error)
	UpdateTOTPSecret(ctx context.Context, id string, encryptedSecret string) error
	SetMFAEnabled(ctx context.Context, id string, enabled bool) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
