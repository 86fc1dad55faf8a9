package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/core/port"
	"github.com/gerich15/cohortsec/internal/infra/security"
	"github.com/gerich15/cohortsec/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided identifier or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrInvalidRefreshToken indicates the refresh token is malformed, expired,
	// already rotated, or revoked.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidAccessToken indicates the access token failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrMFARequired indicates the access token only proves the first factor
	// and cannot be used outside MFA verification.
	ErrMFARequired = errors.New("multi-factor verification required")
	// ErrSessionNotFound indicates the referenced session does not exist or
	// belongs to another user.
	ErrSessionNotFound = errors.New("session not found")
)

// TokenPair is a freshly issued access/refresh token couple.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	SessionID    string
}

// LoginResult is the outcome of a credential login. When MFARequired is set,
// AccessToken carries only the short-lived mfa_pending token and the refresh
// token is withheld until the second factor clears.
type LoginResult struct {
	Pair         *TokenPair
	MFARequired  bool
	PendingToken string
	UserID       string
}

// AuthService coordinates credential login, token rotation, and session
// management.
type AuthService struct {
	accounts      port.AccountRepository
	sessions      port.SessionRepository
	tokens        *security.TokenIssuer
	hasher        port.PasswordHasher
	events        port.EventPublisher
	accessTTL     time.Duration
	refreshTTL    time.Duration
	mfaPendingTTL time.Duration
	now           func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	accounts port.AccountRepository,
	sessions port.SessionRepository,
	tokens *security.TokenIssuer,
	hasher port.PasswordHasher,
	events port.EventPublisher,
	accessTTL, refreshTTL, mfaPendingTTL time.Duration,
) *AuthService {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if mfaPendingTTL <= 0 {
		mfaPendingTTL = 5 * time.Minute
	}
	return &AuthService{
		accounts:      accounts,
		sessions:      sessions,
		tokens:        tokens,
		hasher:        hasher,
		events:        events,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		mfaPendingTTL: mfaPendingTTL,
		now:           time.Now,
	}
}

// WithClock injects a custom clock for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login validates credentials. Accounts with MFA enabled receive a pending
// token instead of a session; everyone else gets a full token pair.
func (s *AuthService) Login(ctx context.Context, identifier, password string, ip, userAgent *string) (*LoginResult, error) {
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.publishLoginFailed(ctx, nil, identifier, "password", "unknown identifier", ip)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.publishLoginFailed(ctx, &account.ID, identifier, "password", "wrong password", ip)
		return nil, ErrInvalidCredentials
	}

	if !account.CanAuthenticate() {
		return nil, ErrInactiveAccount
	}

	if account.MFAEnabled {
		pending, err := s.tokens.IssueMFAPending(account.ID, s.mfaPendingTTL)
		if err != nil {
			return nil, fmt.Errorf("issue pending token: %w", err)
		}
		return &LoginResult{MFARequired: true, PendingToken: pending, UserID: account.ID}, nil
	}

	pair, err := s.FinishLogin(ctx, *account, "password", ip, userAgent)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Pair: pair, UserID: account.ID}, nil
}

// FinishLogin records a session for the account and issues the token pair.
// It is the single path through which any factor combination (password only,
// password+TOTP, biometric) produces usable tokens.
func (s *AuthService) FinishLogin(ctx context.Context, account domain.Account, method string, ip, userAgent *string) (*TokenPair, error) {
	if !account.CanAuthenticate() {
		return nil, ErrInactiveAccount
	}

	now := s.now().UTC()

	pair, err := s.issuePair(ctx, account.ID, ip, userAgent, now)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{
			EventID:   uuid.NewString(),
			UserID:    account.ID,
			Method:    method,
			SessionID: pair.SessionID,
			IPAddress: ip,
			UserAgent: userAgent,
			At:        now,
		})
	}

	return pair, nil
}

func (s *AuthService) issuePair(ctx context.Context, userID string, ip, userAgent *string, now time.Time) (*TokenPair, error) {
	jti, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh jti: %w", err)
	}

	accessToken, err := s.tokens.IssueAccess(userID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefresh(userID, jti)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenJTI:  jti,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		SessionID:    session.ID,
	}, nil
}

// Refresh rotates a refresh token: the presented token's session row is
// consumed atomically and a brand new pair is issued. A token that was
// already rotated, logged out, or expired fails here regardless of its
// signature still verifying.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, ip, userAgent *string) (*TokenPair, error) {
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if claims.TokenType != security.TokenTypeRefresh || claims.ID == "" {
		return nil, ErrInvalidRefreshToken
	}

	if _, err := s.sessions.Consume(ctx, claims.Subject, claims.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("consume session: %w", err)
	}

	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !account.CanAuthenticate() {
		return nil, ErrInactiveAccount
	}

	return s.issuePair(ctx, account.ID, ip, userAgent, s.now().UTC())
}

// Logout revokes the session tied to the presented refresh token. Revoking a
// token that is already gone is not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	if claims.TokenType != security.TokenTypeRefresh || claims.ID == "" {
		return ErrInvalidRefreshToken
	}

	if err := s.sessions.Revoke(ctx, claims.Subject, claims.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

// ParseAccessToken validates a bearer token for resource access. Pending MFA
// tokens are rejected so a half-authenticated login cannot reach protected
// endpoints.
func (s *AuthService) ParseAccessToken(_ context.Context, token string) (*security.Claims, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	if claims.TokenType != security.TokenTypeAccess {
		return nil, ErrInvalidAccessToken
	}
	if claims.MFAPending {
		return nil, ErrMFARequired
	}
	return claims, nil
}

// ParsePendingToken validates a token for the MFA verification endpoint only.
func (s *AuthService) ParsePendingToken(_ context.Context, token string) (*security.Claims, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, ErrInvalidAccessToken
	}
	if claims.TokenType != security.TokenTypeAccess || !claims.MFAPending {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

// ListSessions returns the user's live sessions.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession terminates one of the user's sessions by id.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string, ip *string) error {
	if err := s.sessions.RevokeByID(ctx, userID, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("revoke session: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
			EventID:   uuid.NewString(),
			SessionID: sessionID,
			UserID:    userID,
			Reason:    "user revoked",
			RevokedAt: s.now().UTC(),
			IPAddress: ip,
		})
	}

	return nil
}

// PurgeExpiredSessions garbage-collects sessions whose validity has elapsed,
// returning the number of rows removed. Expired rows are already invisible to
// Consume and ListByUser; the sweep only bounds table growth.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int, error) {
	removed, err := s.sessions.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return removed, nil
}

func (s *AuthService) publishLoginFailed(ctx context.Context, userID *string, identifier, method, reason string, ip *string) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Identifier: identifier,
		Method:     method,
		Reason:     reason,
		IPAddress:  ip,
		At:         s.now().UTC(),
	})
}
