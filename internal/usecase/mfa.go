package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/core/port"
	"github.com/gerich15/cohortsec/internal/infra/security"
	"github.com/gerich15/cohortsec/internal/repository"
)

var (
	// ErrMFAAlreadyEnabled indicates TOTP is already active for the account.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrMFANotConfigured indicates setup was never started or never confirmed.
	ErrMFANotConfigured = errors.New("mfa not configured")
	// ErrInvalidMFACode indicates the submitted TOTP code did not verify.
	ErrInvalidMFACode = errors.New("invalid mfa code")
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
)

// loginFinisher turns a fully verified account into a usable token pair.
// AuthService provides the production implementation.
type loginFinisher interface {
	FinishLogin(ctx context.Context, account domain.Account, method string, ip, userAgent *string) (*TokenPair, error)
}

// MFAService manages the two-phase TOTP lifecycle: Setup stores a fresh
// secret without enabling enforcement, Confirm proves possession and turns
// enforcement on. VerifyLogin completes a pending password login.
type MFAService struct {
	accounts port.AccountRepository
	cipher   port.FieldCipher
	finisher loginFinisher
	issuer   string
	now      func() time.Time
}

// NewMFAService constructs an MFAService instance.
func NewMFAService(accounts port.AccountRepository, cipher port.FieldCipher, finisher loginFinisher, issuer string) *MFAService {
	return &MFAService{
		accounts: accounts,
		cipher:   cipher,
		finisher: finisher,
		issuer:   issuer,
		now:      time.Now,
	}
}

// WithClock injects a custom clock for tests.
func (s *MFAService) WithClock(now func() time.Time) *MFAService {
	if now != nil {
		s.now = now
	}
	return s
}

// MFASetup is the result of starting TOTP enrollment.
type MFASetup struct {
	Secret          string
	ProvisioningURI string
}

// Setup generates a new TOTP secret for the account and stores it encrypted.
// Enforcement stays off until Confirm. Re-running Setup before Confirm
// replaces the stored secret.
func (s *MFAService) Setup(ctx context.Context, userID string) (*MFASetup, error) {
	account, err := s.getAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.MFAEnabled {
		return nil, ErrMFAAlreadyEnabled
	}

	secret, err := security.GenerateTOTPSecret()
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	encrypted, err := s.cipher.Encrypt([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("encrypt totp secret: %w", err)
	}

	if err := s.accounts.UpdateTOTPSecret(ctx, account.ID, encrypted); err != nil {
		return nil, fmt.Errorf("store totp secret: %w", err)
	}

	return &MFASetup{
		Secret:          secret,
		ProvisioningURI: security.TOTPProvisioningURI(secret, account.Username, s.issuer),
	}, nil
}

// Confirm verifies the first code against the pending secret and enables
// TOTP enforcement for subsequent logins.
func (s *MFAService) Confirm(ctx context.Context, userID, code string) error {
	account, err := s.getAccount(ctx, userID)
	if err != nil {
		return err
	}
	if account.MFAEnabled {
		return ErrMFAAlreadyEnabled
	}
	if account.TOTPSecret == "" {
		return ErrMFANotConfigured
	}

	if err := s.verifyCode(account.TOTPSecret, code); err != nil {
		return err
	}

	if err := s.accounts.SetMFAEnabled(ctx, account.ID, true); err != nil {
		return fmt.Errorf("enable mfa: %w", err)
	}

	return nil
}

// VerifyLogin completes a pending password login with a TOTP code and
// returns the full token pair.
func (s *MFAService) VerifyLogin(ctx context.Context, userID, code string, ip, userAgent *string) (*TokenPair, error) {
	account, err := s.getAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !account.MFAEnabled || account.TOTPSecret == "" {
		return nil, ErrMFANotConfigured
	}

	if err := s.verifyCode(account.TOTPSecret, code); err != nil {
		return nil, err
	}

	return s.finisher.FinishLogin(ctx, *account, "mfa", ip, userAgent)
}

// Disable turns TOTP enforcement off after a final code check and discards
// the stored secret.
func (s *MFAService) Disable(ctx context.Context, userID, code string) error {
	account, err := s.getAccount(ctx, userID)
	if err != nil {
		return err
	}
	if !account.MFAEnabled || account.TOTPSecret == "" {
		return ErrMFANotConfigured
	}

	if err := s.verifyCode(account.TOTPSecret, code); err != nil {
		return err
	}

	if err := s.accounts.SetMFAEnabled(ctx, account.ID, false); err != nil {
		return fmt.Errorf("disable mfa: %w", err)
	}
	if err := s.accounts.UpdateTOTPSecret(ctx, account.ID, ""); err != nil {
		return fmt.Errorf("clear totp secret: %w", err)
	}

	return nil
}

func (s *MFAService) getAccount(ctx context.Context, userID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

func (s *MFAService) verifyCode(encryptedSecret, code string) error {
	secret, err := s.cipher.Decrypt(encryptedSecret)
	if err != nil {
		return fmt.Errorf("decrypt totp secret: %w", err)
	}

	ok, err := security.VerifyTOTP(string(secret), code, s.now())
	if err != nil {
		return fmt.Errorf("verify totp code: %w", err)
	}
	if !ok {
		return ErrInvalidMFACode
	}

	return nil
}
