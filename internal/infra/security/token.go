package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type claim values.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken indicates the token is malformed, mis-signed, expired, or
// otherwise unusable. Callers must treat it identically to "not authenticated".
var ErrInvalidToken = errors.New("invalid token")

// Claims is the claim set carried by both access and refresh tokens.
type Claims struct {
	TokenType  string `json:"type"`
	MFAPending bool   `json:"mfa_pending,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer creates and validates signed time-bounded tokens. It is a pure
// function over the signing secret and the clock: it never consults storage,
// which is why a decoded refresh token must still pass the session registry
// before it is honored.
type TokenIssuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer builds a TokenIssuer signing with HMAC-SHA256.
func NewTokenIssuer(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// WithClock allows injection of a custom clock (primarily for testing).
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	if now != nil {
		t.now = now
	}
	return t
}

// IssueAccess creates a signed access token for the subject with the default
// access TTL.
func (t *TokenIssuer) IssueAccess(subject string) (string, error) {
	return t.issue(Claims{TokenType: TokenTypeAccess}, subject, t.accessTTL)
}

// IssueMFAPending creates a short-lived access token carrying the mfa_pending
// marker. The general authentication gate rejects these; only the MFA
// verification endpoint accepts them.
func (t *TokenIssuer) IssueMFAPending(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return t.issue(Claims{TokenType: TokenTypeAccess, MFAPending: true}, subject, ttl)
}

// IssueRefresh creates a signed refresh token whose jti must be recorded in
// the session registry before the token is usable.
func (t *TokenIssuer) IssueRefresh(subject, jti string) (string, error) {
	if jti == "" {
		return "", fmt.Errorf("jti is required")
	}
	claims := Claims{TokenType: TokenTypeRefresh}
	claims.ID = jti
	return t.issue(claims, subject, t.refreshTTL)
}

func (t *TokenIssuer) issue(claims Claims, subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	now := t.now().UTC()
	claims.Subject = subject
	claims.Issuer = t.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Decode validates the signature and expiry of the token and returns its
// claims. Any failure maps to ErrInvalidToken.
func (t *TokenIssuer) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(func() time.Time { return t.now() }))
	if err != nil {
		return nil, ErrInvalidToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
