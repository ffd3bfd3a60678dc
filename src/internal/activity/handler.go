package activity

import (
	"context"
	"errors"
	"net/http"
	"time"

	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/middleware"
	"smart-time-tracker/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	IngestLogs(c *gin.Context)
	ListLogs(c *gin.Context)
}

type handler struct {
	config   *config.Configuration
	service  Service
	identity *middleware.IdentityResolver
}

func NewHandler(cfg *config.Configuration, service Service, identity *middleware.IdentityResolver) Handler {
	return &handler{
		config:   cfg,
		service:  service,
		identity: identity,
	}
}

func (h *handler) IngestLogs(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		logrus.WithError(err).Debug("Unreadable logs body")
	}

	raw, ok := body["logs"].([]any)
	if !ok {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid format: logs must be an array")
		return
	}

	legacyUserID, _ := body["user_id"].(string)
	userID, err := h.identity.Resolve(c, legacyUserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	inserted, err := h.service.Ingest(ctx, userID, raw)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, IngestResponse{Success: true, Inserted: inserted})
}

func (h *handler) ListLogs(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	records, err := h.service.List(ctx, &req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		h.sendErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, middleware.ErrMissingIdentity):
		h.sendErrorResponse(c, http.StatusBadRequest, "Missing identity (token or user_id)")
	case errors.Is(err, models.ErrValidation):
		h.sendErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrDatabaseInsert):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to store activity logs",
			"details": err.Error(),
		})
	case errors.Is(err, models.ErrDatabaseQuery):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to query activity logs",
			"details": err.Error(),
		})
	default:
		logrus.WithError(err).Error("Activity request failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *handler) sendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error": message,
	})
}
