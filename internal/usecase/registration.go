package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	uuid "github.com/google/uuid"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/core/port"
	"github.com/gerich15/cohortsec/internal/infra/security"
	"github.com/gerich15/cohortsec/internal/repository"
)

var (
	// ErrAccountExists indicates the username or email is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidRegistration indicates a malformed registration request.
	ErrInvalidRegistration = errors.New("invalid registration input")
)

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName *string
}

// RegistrationService creates new accounts.
type RegistrationService struct {
	accounts  port.AccountRepository
	hasher    port.PasswordHasher
	validator *security.PasswordValidator
	events    port.EventPublisher
	now       func() time.Time
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	validator *security.PasswordValidator,
	events port.EventPublisher,
) *RegistrationService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	return &RegistrationService{
		accounts:  accounts,
		hasher:    hasher,
		validator: validator,
		events:    events,
		now:       time.Now,
	}
}

// WithClock injects a custom clock for tests.
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Register validates the input, hashes the password, and persists the account.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(input.Password, input.Username, input.Email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRegistration, err.Error())
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account := domain.Account{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		FullName:     input.FullName,
		PasswordHash: hash,
		Status:       domain.AccountStatusActive,
		IsActive:     true,
		RegisteredAt: now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishAccountRegistered(ctx, domain.AccountRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       account.ID,
			Username:     account.Username,
			Email:        account.Email,
			RegisteredAt: now,
		})
	}

	account.PasswordHash = ""
	return &account, nil
}

func validateRegisterInput(input RegisterInput) error {
	if len(input.Username) < 3 || len(input.Username) > 64 {
		return fmt.Errorf("%w: username must be 3-64 characters", ErrInvalidRegistration)
	}
	for _, r := range input.Username {
		if !isUsernameRune(r) {
			return fmt.Errorf("%w: username may contain letters, digits, dot, dash, underscore", ErrInvalidRegistration)
		}
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrInvalidRegistration)
	}
	return nil
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '_':
		return true
	}
	return false
}
