package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/repository"
)

const uniqueViolationCode = "23505"

var accountColumns = []string{
	"id",
	"username",
	"email",
	"full_name",
	"password_hash",
	"status",
	"is_active",
	"mfa_enabled",
	"totp_secret",
	"registered_at",
	"last_login",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new account row. Returns repository.ErrConflict when the
// username or email is already taken.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	var fullNameValue any
	if account.FullName != nil && *account.FullName != "" {
		fullNameValue = *account.FullName
	}

	var totpValue any
	if account.TOTPSecret != "" {
		totpValue = account.TOTPSecret
	}

	stmt, args, err := r.builder.Insert("accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.Username,
			account.Email,
			fullNameValue,
			account.PasswordHash,
			account.Status,
			account.IsActive,
			account.MFAEnabled,
			totpValue,
			account.RegisteredAt,
			account.LastLogin,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByIdentifier retrieves an account by username or email.
func (r *AccountRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Or{
			squirrel.Eq{"username": identifier},
			squirrel.Eq{"email": identifier},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account by identifier sql: %w", err)
	}

	return r.scanAccount(r.exec.QueryRow(ctx, stmt, args...))
}

// UpdateTOTPSecret stores the encrypted TOTP secret for the account. An empty
// value clears the secret.
func (r *AccountRepository) UpdateTOTPSecret(ctx context.Context, id string, encryptedSecret string) error {
	var value any
	if encryptedSecret != "" {
		value = encryptedSecret
	}

	stmt, args, err := r.builder.Update("accounts").
		Set("totp_secret", value).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update totp secret sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update totp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetMFAEnabled flips the MFA flag for the account.
func (r *AccountRepository) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("mfa_enabled", enabled).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update mfa flag sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update mfa flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastLogin records the successful authentication timestamp.
func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("accounts").
		Set("last_login", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	return nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account    domain.Account
		fullName   sql.NullString
		totpSecret sql.NullString
		lastLogin  *time.Time
	)

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&fullName,
		&account.PasswordHash,
		&account.Status,
		&account.IsActive,
		&account.MFAEnabled,
		&totpSecret,
		&account.RegisteredAt,
		&lastLogin,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if fullName.Valid {
		val := fullName.String
		account.FullName = &val
	}
	if totpSecret.Valid {
		account.TOTPSecret = totpSecret.String
	}
	account.LastLogin = lastLogin

	return &account, nil
}
