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

var sessionColumns = []string{
	"id",
	"user_id",
	"token_jti",
	"ip",
	"user_agent",
	"created_at",
	"expires_at",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a session record for a freshly issued refresh token.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Insert("sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.TokenJTI,
			session.IP,
			session.UserAgent,
			session.CreatedAt,
			session.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// Consume atomically deletes the live session matching (userID, jti) and
// returns it. Expired rows do not qualify, so a stale refresh token cannot be
// redeemed, and of two concurrent rotations only one sees the row.
func (r *SessionRepository) Consume(ctx context.Context, userID, jti string) (*domain.Session, error) {
	const stmt = `DELETE FROM sessions
		WHERE user_id = $1 AND token_jti = $2 AND expires_at > now()
		RETURNING id, user_id, token_jti, ip, user_agent, created_at, expires_at`

	row := r.exec.QueryRow(ctx, stmt, userID, jti)

	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenJTI,
		&session.IP,
		&session.UserAgent,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("consume session: %w", err)
	}

	return &session, nil
}

// Revoke removes the session identified by the refresh token jti. Missing
// rows are not an error: logout is idempotent.
func (r *SessionRepository) Revoke(ctx context.Context, userID, jti string) error {
	stmt, args, err := r.builder.Delete("sessions").
		Where(squirrel.Eq{"user_id": userID, "token_jti": jti}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// RevokeByID removes a session by its row id, scoped to the owning user.
func (r *SessionRepository) RevokeByID(ctx context.Context, userID, sessionID string) error {
	stmt, args, err := r.builder.Delete("sessions").
		Where(squirrel.Eq{"user_id": userID, "id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete session by id sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete session by id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByUser returns the user's live sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("sessions").
		Where(squirrel.Eq{"user_id": userID}).
		Where("expires_at > now()").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.TokenJTI,
			&session.IP,
			&session.UserAgent,
			&session.CreatedAt,
			&session.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// DeleteExpired garbage-collects sessions whose validity has elapsed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("sessions").
		Where(squirrel.LtOrEq{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired sessions sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
