package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gerich15/cohortsec/internal/transport/http/middleware"
	"github.com/gerich15/cohortsec/internal/usecase"
)

// BiometricHandler exposes face enrollment and authentication endpoints.
type BiometricHandler struct {
	auth      *usecase.AuthService
	biometric *usecase.BiometricService
}

// NewBiometricHandler constructs BiometricHandler.
func NewBiometricHandler(auth *usecase.AuthService, biometric *usecase.BiometricService) *BiometricHandler {
	return &BiometricHandler{auth: auth, biometric: biometric}
}

// RegisterRoutes binds biometric routes. Identify is the login endpoint and
// stays unauthenticated behind its rate limiter; verify, template, and
// settings management require a session.
func (h *BiometricHandler) RegisterRoutes(r *gin.RouterGroup, verifyLimiter, identifyLimiter gin.HandlerFunc) {
	r.POST("/identify", chain(identifyLimiter, h.identify)...)

	authenticated := r.Group("", middleware.RequireAuth(h.auth))
	authenticated.POST("/verify", chain(verifyLimiter, h.verify)...)
	authenticated.POST("/templates", h.enroll)
	authenticated.GET("/templates", h.listTemplates)
	authenticated.DELETE("/templates/:id", h.deleteTemplate)
	authenticated.GET("/settings", h.getSettings)
	authenticated.PUT("/settings", h.updateSettings)
}

func decodeImage(c *gin.Context) ([]byte, string, bool) {
	var req BiometricImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return nil, "", false
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "image must be base64 encoded"))
		return nil, "", false
	}

	return image, req.Label, true
}

func (h *BiometricHandler) enroll(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	image, label, ok := decodeImage(c)
	if !ok {
		return
	}

	template, err := h.biometric.Enroll(c.Request.Context(), userID, image, label)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTemplateQuotaExceeded, Status: http.StatusConflict, Message: "template limit reached"},
			{Err: usecase.ErrUnsuitableImage, Status: http.StatusBadRequest, Message: err.Error()},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "enrollment failed")
		return
	}

	c.JSON(http.StatusCreated, BiometricTemplateSummary{
		ID:        template.ID,
		Label:     template.Label,
		CreatedAt: template.CreatedAt,
	})
}

// verify performs 1:1 matching against the authenticated account's own
// templates. It never issues tokens; biometric login goes through identify.
func (h *BiometricHandler) verify(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	image, _, ok := decodeImage(c)
	if !ok {
		return
	}

	matched, err := h.biometric.Verify(c.Request.Context(), userID, image)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrBiometricLocked, Status: http.StatusTooManyRequests, Message: "biometric authentication temporarily locked"},
			{Err: usecase.ErrNoBiometricEnrolled, Status: http.StatusBadRequest, Message: "no templates enrolled"},
			{Err: usecase.ErrUnsuitableImage, Status: http.StatusBadRequest, Message: err.Error()},
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInactiveAccount, Status: http.StatusForbidden, Message: "account is not active"},
		}, http.StatusInternalServerError, "biometric verification failed")
		return
	}

	c.JSON(http.StatusOK, BiometricVerifyResponse{Matched: matched})
}

func (h *BiometricHandler) identify(c *gin.Context) {
	image, _, ok := decodeImage(c)
	if !ok {
		return
	}

	ip, ua := clientMeta(c)
	pair, err := h.biometric.Identify(c.Request.Context(), image, ip, ua)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrBiometricMismatch, Status: http.StatusUnauthorized, Message: "face not recognized"},
			{Err: usecase.ErrUnsuitableImage, Status: http.StatusBadRequest, Message: err.Error()},
		}, http.StatusInternalServerError, "biometric identification failed")
		return
	}

	c.JSON(http.StatusOK, newTokenPairResponse(pair))
}

func (h *BiometricHandler) listTemplates(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	templates, err := h.biometric.ListTemplates(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list templates"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"templates": newTemplateSummaries(templates)})
}

func (h *BiometricHandler) deleteTemplate(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.biometric.DeleteTemplate(c.Request.Context(), userID, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTemplateNotFound, Status: http.StatusNotFound, Message: "template not found"},
		}, http.StatusInternalServerError, "failed to delete template")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "template deleted"})
}

func (h *BiometricHandler) getSettings(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	settings, err := h.biometric.GetSettings(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load settings"))
		return
	}

	c.JSON(http.StatusOK, newSettingsResponse(settings))
}

func (h *BiometricHandler) updateSettings(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req BiometricSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	settings, err := h.biometric.UpdateThreshold(c.Request.Context(), userID, req.ConfidenceThreshold)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidThreshold, Status: http.StatusBadRequest, Message: "confidence threshold must be between 0.5 and 0.9"},
		}, http.StatusInternalServerError, "failed to update settings")
		return
	}

	c.JSON(http.StatusOK, newSettingsResponse(settings))
}
