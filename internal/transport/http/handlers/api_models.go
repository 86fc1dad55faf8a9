package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/transport/http/middleware"
	"github.com/gerich15/cohortsec/internal/usecase"
)

// ErrorResponse represents a generic error payload with a correlation id.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request id.
func NewErrorResponse(c *gin.Context, msg string) ErrorResponse {
	return ErrorResponse{Error: msg, RequestID: middleware.GetRequestID(c)}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest defines the payload for account creation.
type RegisterRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	FullName *string `json:"full_name"`
}

// AccountSummary describes the public view of an account.
type AccountSummary struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     *string    `json:"full_name,omitempty"`
	MFAEnabled   bool       `json:"mfa_enabled"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:           account.ID,
		Username:     account.Username,
		Email:        account.Email,
		FullName:     account.FullName,
		MFAEnabled:   account.MFAEnabled,
		RegisteredAt: account.RegisteredAt,
		LastLogin:    account.LastLogin,
	}
}

// LoginRequest defines the payload for password login.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// TokenPairResponse describes a successful authentication result.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

func newTokenPairResponse(pair *usecase.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
		SessionID:    pair.SessionID,
	}
}

// LoginResponse wraps either a full token pair or the pending MFA challenge.
type LoginResponse struct {
	MFARequired  bool   `json:"mfa_required"`
	PendingToken string `json:"pending_token,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
}

// RefreshRequest defines the payload for token rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest defines the payload for logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SessionSummary provides a compact view of a live session.
type SessionSummary struct {
	ID        string    `json:"id"`
	IP        *string   `json:"ip,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newSessionSummaries(sessions []domain.Session) []SessionSummary {
	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionSummary{
			ID:        s.ID,
			IP:        s.IP,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	return out
}

// MFASetupResponse returns the fresh TOTP secret and provisioning URI.
type MFASetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// MFACodeRequest defines payloads carrying a TOTP code.
type MFACodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// BiometricImageRequest carries a base64-encoded face image.
type BiometricImageRequest struct {
	Image string `json:"image" binding:"required"`
	Label string `json:"label"`
}

// BiometricTemplateSummary describes an enrolled template without its embedding.
type BiometricTemplateSummary struct {
	ID        string    `json:"id"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newTemplateSummaries(templates []domain.BiometricTemplate) []BiometricTemplateSummary {
	out := make([]BiometricTemplateSummary, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, BiometricTemplateSummary{ID: tpl.ID, Label: tpl.Label, CreatedAt: tpl.CreatedAt})
	}
	return out
}

// BiometricSettingsResponse describes the account's matching configuration.
type BiometricSettingsResponse struct {
	ConfidenceThreshold float64    `json:"confidence_threshold"`
	FailedAttempts      int        `json:"failed_attempts"`
	MaxFailedAttempts   int        `json:"max_failed_attempts"`
	LockedUntil         *time.Time `json:"locked_until,omitempty"`
}

func newSettingsResponse(settings *domain.BiometricSettings) BiometricSettingsResponse {
	return BiometricSettingsResponse{
		ConfidenceThreshold: settings.ConfidenceThreshold,
		FailedAttempts:      settings.FailedAttempts,
		MaxFailedAttempts:   settings.MaxFailedAttempts,
		LockedUntil:         settings.LockedUntil,
	}
}

// BiometricSettingsRequest updates the matching threshold.
type BiometricSettingsRequest struct {
	ConfidenceThreshold float64 `json:"confidence_threshold" binding:"required"`
}

// BiometricVerifyResponse reports the 1:1 match outcome.
type BiometricVerifyResponse struct {
	Matched bool `json:"matched"`
}
