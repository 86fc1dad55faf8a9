package port

import (
	"context"

	"github.com/gerich15/cohortsec/internal/core/domain"
)

// BiometricRepository stores encrypted face templates and the per-account
// settings/lockout record.
type BiometricRepository interface {
	CreateTemplate(ctx context.Context, template domain.BiometricTemplate) error
	ListTemplatesByUser(ctx context.Context, userID string) ([]domain.BiometricTemplate, error)
	CountTemplatesByUser(ctx context.Context, userID string) (int, error)
	DeleteTemplate(ctx context.Context, userID, templateID string) error
	// ListEnrolledUserIDs returns the distinct ids of accounts that have at
	// least one template, for the 1:N identification scan.
	ListEnrolledUserIDs(ctx context.Context) ([]string, error)

	GetSettings(ctx context.Context, userID string) (*domain.BiometricSettings, error)
	// UpsertSettings inserts or fully replaces the settings row for the account.
	UpsertSettings(ctx context.Context, settings domain.BiometricSettings) error
}
