package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gerich15/cohortsec/internal/usecase"
)

const (
	// UserIDKey is the context key holding the authenticated account id.
	UserIDKey = "user_id"
)

// ErrorResponse mirrors the handlers error payload for middleware-level rejections.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, msg string) ErrorResponse {
	return ErrorResponse{Error: msg, RequestID: GetRequestID(c)}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// RequireAuth validates the Authorization header and stores the account id in
// the request context. Tokens still pending their second factor are rejected
// with 403: they prove the password but not the account.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing or malformed authorization header"))
			return
		}

		claims, err := auth.ParseAccessToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, usecase.ErrMFARequired) {
				c.AbortWithStatusJSON(http.StatusForbidden,
					newErrorResponse(c, "multi-factor verification required"))
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid access token"))
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// RequirePendingAuth accepts only mfa_pending tokens. It guards the MFA
// verification endpoint, the single place where a half-finished login is
// allowed to act.
func RequirePendingAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing or malformed authorization header"))
			return
		}

		claims, err := auth.ParsePendingToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid pending token"))
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// AuthenticatedUserID returns the account id stored by RequireAuth.
func AuthenticatedUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
