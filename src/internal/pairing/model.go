package pairing

import (
	"fmt"
	"time"

	"smart-time-tracker/src/internal/models"
)

// Code is the store entry behind a live pairing code.
type Code struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type StartResult struct {
	PairCode  string
	ExpiresIn time.Duration
}

type StartRequest struct {
	UserID string `json:"user_id"`
}

type StartResponse struct {
	PairCode         string `json:"pair_code"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

type FinishRequest struct {
	PairCode string `json:"pair_code"`
}

type FinishResponse struct {
	ExtensionToken        string `json:"extension_token"`
	UserID                string `json:"user_id"`
	TokenExpiresInSeconds int64  `json:"token_expires_in_seconds"`
}

var (
	ErrMissingUserID   = fmt.Errorf("%w: missing user_id", models.ErrValidation)
	ErrInvalidUserID   = fmt.Errorf("%w: invalid user_id", models.ErrValidation)
	ErrMissingPairCode = fmt.Errorf("%w: missing pair_code", models.ErrValidation)
)
