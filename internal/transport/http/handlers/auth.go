package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gerich15/cohortsec/internal/transport/http/middleware"
	"github.com/gerich15/cohortsec/internal/usecase"
)

// AuthHandler exposes registration, login, token rotation, and session endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, registration *usecase.RegistrationService) *AuthHandler {
	return &AuthHandler{auth: auth, registration: registration}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the unauthenticated endpoints.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginLimiter, registerLimiter, refreshLimiter gin.HandlerFunc) {
	r.POST("/register", chain(registerLimiter, h.register)...)
	r.POST("/login", chain(loginLimiter, h.login)...)
	r.POST("/refresh", chain(refreshLimiter, h.refresh)...)
	r.POST("/logout", h.logout)

	r.GET("/sessions", middleware.RequireAuth(h.auth), h.listSessions)
	r.DELETE("/sessions/:id", middleware.RequireAuth(h.auth), h.revokeSession)
}

func chain(limiter gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	if limiter == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{limiter, handler}
}

func clientMeta(c *gin.Context) (*string, *string) {
	var ip, ua *string
	if v := c.ClientIP(); v != "" {
		ip = &v
	}
	if v := c.Request.UserAgent(); v != "" {
		ua = &v
	}
	return ip, ua
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	account, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountExists, Status: http.StatusConflict, Message: "username or email already registered"},
			{Err: usecase.ErrInvalidRegistration, Status: http.StatusBadRequest, Message: err.Error()},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, newAccountSummary(*account))
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	ip, ua := clientMeta(c)
	result, err := h.auth.Login(c.Request.Context(), req.Identifier, req.Password, ip, ua)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	if result.MFARequired {
		c.JSON(http.StatusOK, LoginResponse{MFARequired: true, PendingToken: result.PendingToken})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  result.Pair.AccessToken,
		RefreshToken: result.Pair.RefreshToken,
		TokenType:    result.Pair.TokenType,
		ExpiresIn:    result.Pair.ExpiresIn,
		SessionID:    result.Pair.SessionID,
	})
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	ip, ua := clientMeta(c)
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, ip, ua)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active"},
		}, http.StatusInternalServerError, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(pair))
}

func (h *AuthHandler) logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
		}, http.StatusInternalServerError, "logout failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) listSessions(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessions, err := h.auth.ListSessions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": newSessionSummaries(sessions)})
}

func (h *AuthHandler) revokeSession(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	ip, _ := clientMeta(c)
	if err := h.auth.RevokeSession(c.Request.Context(), userID, c.Param("id"), ip); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found"},
		}, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session revoked"})
}
