package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/repository"
)

var templateColumns = []string{
	"id",
	"user_id",
	"encrypted_embedding",
	"label",
	"created_at",
}

// BiometricRepository implements port.BiometricRepository using PostgreSQL.
type BiometricRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewBiometricRepository wires a PostgreSQL-backed biometric repository.
func NewBiometricRepository(pool *pgxpool.Pool) *BiometricRepository {
	return &BiometricRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateTemplate inserts an enrolled face template.
func (r *BiometricRepository) CreateTemplate(ctx context.Context, template domain.BiometricTemplate) error {
	stmt, args, err := r.builder.Insert("biometric_templates").
		Columns(templateColumns...).
		Values(
			template.ID,
			template.UserID,
			template.EncryptedEmbedding,
			template.Label,
			template.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert template sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	return nil
}

// ListTemplatesByUser returns the user's templates in enrollment order.
func (r *BiometricRepository) ListTemplatesByUser(ctx context.Context, userID string) ([]domain.BiometricTemplate, error) {
	stmt, args, err := r.builder.
		Select(templateColumns...).
		From("biometric_templates").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select templates sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.BiometricTemplate
	for rows.Next() {
		var tpl domain.BiometricTemplate
		if err := rows.Scan(
			&tpl.ID,
			&tpl.UserID,
			&tpl.EncryptedEmbedding,
			&tpl.Label,
			&tpl.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}

	return templates, nil
}

// CountTemplatesByUser returns how many templates the user has enrolled.
func (r *BiometricRepository) CountTemplatesByUser(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("biometric_templates").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count templates sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}

	return count, nil
}

// DeleteTemplate removes one template, scoped to the owning user.
func (r *BiometricRepository) DeleteTemplate(ctx context.Context, userID, templateID string) error {
	stmt, args, err := r.builder.Delete("biometric_templates").
		Where(squirrel.Eq{"user_id": userID, "id": templateID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete template sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListEnrolledUserIDs returns distinct user ids with at least one template.
func (r *BiometricRepository) ListEnrolledUserIDs(ctx context.Context) ([]string, error) {
	stmt, args, err := r.builder.
		Select("DISTINCT user_id").
		From("biometric_templates").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select enrolled users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select enrolled users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan enrolled user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolled users: %w", err)
	}

	return ids, nil
}

// GetSettings fetches the per-account biometric settings row.
func (r *BiometricRepository) GetSettings(ctx context.Context, userID string) (*domain.BiometricSettings, error) {
	stmt, args, err := r.builder.
		Select(
			"user_id",
			"confidence_threshold",
			"failed_attempts",
			"locked_until",
			"max_failed_attempts",
			"created_at",
			"updated_at",
		).
		From("biometric_settings").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select settings sql: %w", err)
	}

	var (
		settings    domain.BiometricSettings
		lockedUntil *time.Time
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&settings.UserID,
		&settings.ConfidenceThreshold,
		&settings.FailedAttempts,
		&lockedUntil,
		&settings.MaxFailedAttempts,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	settings.LockedUntil = lockedUntil

	return &settings, nil
}

// UpsertSettings inserts or replaces the settings row for the account.
func (r *BiometricRepository) UpsertSettings(ctx context.Context, settings domain.BiometricSettings) error {
	stmt, args, err := r.builder.Insert("biometric_settings").
		Columns(
			"user_id",
			"confidence_threshold",
			"failed_attempts",
			"locked_until",
			"max_failed_attempts",
			"created_at",
			"updated_at",
		).
		Values(
			settings.UserID,
			settings.ConfidenceThreshold,
			settings.FailedAttempts,
			settings.LockedUntil,
			settings.MaxFailedAttempts,
			settings.CreatedAt,
			settings.UpdatedAt,
		).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			confidence_threshold = EXCLUDED.confidence_threshold,
			failed_attempts = EXCLUDED.failed_attempts,
			locked_until = EXCLUDED.locked_until,
			max_failed_attempts = EXCLUDED.max_failed_attempts,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert settings sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}

	return nil
}
