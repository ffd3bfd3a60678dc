package pairing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/middleware"
	"smart-time-tracker/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	StartPairing(c *gin.Context)
	FinishPairing(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
}

func NewHandler(cfg *config.Configuration, service Service) Handler {
	return &handler{
		config:  cfg,
		service: service,
	}
}

func (h *handler) StartPairing(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Debug("Unreadable pair/start body")
	}

	if sub, ok := c.Get(middleware.DashboardUserKey); ok && sub != strings.TrimSpace(req.UserID) {
		logrus.WithFields(logrus.Fields{
			"session_user": sub,
			"user_id":      req.UserID,
		}).Warn("Pairing requested for a different user than the dashboard session")
		h.sendErrorResponse(c, http.StatusForbidden, "user_id does not match dashboard session")
		return
	}

	result, err := h.service.Start(ctx, req.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, StartResponse{
		PairCode:         result.PairCode,
		ExpiresInSeconds: int64(result.ExpiresIn / time.Second),
	})
}

func (h *handler) FinishPairing(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	var req FinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Debug("Unreadable pair/finish body")
	}

	issued, err := h.service.Finish(ctx, req.PairCode)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, FinishResponse{
		ExtensionToken:        issued.Token,
		UserID:                issued.UserID,
		TokenExpiresInSeconds: issued.ExpiresInSeconds(),
	})
}

func (h *handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMissingUserID):
		h.sendErrorResponse(c, http.StatusBadRequest, "Missing user_id")
	case errors.Is(err, ErrInvalidUserID):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid user_id")
	case errors.Is(err, ErrMissingPairCode):
		h.sendErrorResponse(c, http.StatusBadRequest, "Missing pair_code")
	case errors.Is(err, models.ErrNotFoundOrExpired):
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid or expired pair_code")
	case errors.Is(err, models.ErrValidation):
		h.sendErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrGenerationExhausted):
		logrus.WithError(err).Error("Pairing code generation exhausted")
		h.sendErrorResponse(c, http.StatusInternalServerError, "Failed to generate pairing code")
	default:
		logrus.WithError(err).Error("Pairing request failed")
		h.sendErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *handler) sendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error": message,
	})
}
