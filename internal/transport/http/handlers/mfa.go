package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gerich15/cohortsec/internal/transport/http/middleware"
	"github.com/gerich15/cohortsec/internal/usecase"
)

// MFAHandler exposes TOTP enrollment and verification endpoints.
type MFAHandler struct {
	auth *usecase.AuthService
	mfa  *usecase.MFAService
}

// NewMFAHandler constructs MFAHandler.
func NewMFAHandler(auth *usecase.AuthService, mfa *usecase.MFAService) *MFAHandler {
	return &MFAHandler{auth: auth, mfa: mfa}
}

// RegisterRoutes binds MFA routes. Verify accepts only pending tokens; the
// management endpoints require a fully authenticated account.
func (h *MFAHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/verify", middleware.RequirePendingAuth(h.auth), h.verify)

	authenticated := r.Group("", middleware.RequireAuth(h.auth))
	authenticated.POST("/setup", h.setup)
	authenticated.POST("/confirm", h.confirm)
	authenticated.POST("/disable", h.disable)
}

func (h *MFAHandler) setup(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	setup, err := h.mfa.Setup(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrMFAAlreadyEnabled, Status: http.StatusConflict, Message: "mfa already enabled"},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "mfa setup failed")
		return
	}

	c.JSON(http.StatusOK, MFASetupResponse{Secret: setup.Secret, ProvisioningURI: setup.ProvisioningURI})
}

func (h *MFAHandler) confirm(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.mfa.Confirm(c.Request.Context(), userID, req.Code); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidMFACode, Status: http.StatusUnauthorized, Message: "invalid code"},
			{Err: usecase.ErrMFANotConfigured, Status: http.StatusBadRequest, Message: "mfa setup not started"},
			{Err: usecase.ErrMFAAlreadyEnabled, Status: http.StatusConflict, Message: "mfa already enabled"},
		}, http.StatusInternalServerError, "mfa confirmation failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "mfa enabled"})
}

func (h *MFAHandler) verify(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	ip, ua := clientMeta(c)
	pair, err := h.mfa.VerifyLogin(c.Request.Context(), userID, req.Code, ip, ua)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidMFACode, Status: http.StatusUnauthorized, Message: "invalid code"},
			{Err: usecase.ErrMFANotConfigured, Status: http.StatusBadRequest, Message: "mfa not configured"},
		}, http.StatusInternalServerError, "mfa verification failed")
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(pair))
}

func (h *MFAHandler) disable(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.mfa.Disable(c.Request.Context(), userID, req.Code); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidMFACode, Status: http.StatusUnauthorized, Message: "invalid code"},
			{Err: usecase.ErrMFANotConfigured, Status: http.StatusBadRequest, Message: "mfa not configured"},
		}, http.StatusInternalServerError, "mfa disable failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "mfa disabled"})
}
