package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"smart-time-tracker/src/internal/models"
	"smart-time-tracker/src/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var ErrMissingIdentity = fmt.Errorf("%w: missing identity (token or user_id)", models.ErrValidation)

// UntrustedLegacyIdentity accepts a caller-supplied user_id without any
// verification. Anyone can claim any user through it; it exists only for
// extensions that were never paired and can be switched off by config.
type UntrustedLegacyIdentity struct {
	Enabled bool
}

func (l UntrustedLegacyIdentity) Accept(userID string) (string, bool) {
	userID = strings.TrimSpace(userID)
	if !l.Enabled || userID == "" {
		return "", false
	}
	return userID, true
}

// IdentityResolver decides which user an ingestion request belongs to.
type IdentityResolver struct {
	tokens token.Service
	legacy UntrustedLegacyIdentity
}

func NewIdentityResolver(tokens token.Service, legacy UntrustedLegacyIdentity) *IdentityResolver {
	return &IdentityResolver{
		tokens: tokens,
		legacy: legacy,
	}
}

// Resolve prefers the bearer token. A token that is present but not valid
// fails with ErrUnauthorized; the legacy user_id is never consulted then.
func (r *IdentityResolver) Resolve(c *gin.Context, legacyUserID string) (string, error) {
	return r.resolve(c.Request.Context(), BearerToken(c), legacyUserID)
}

func (r *IdentityResolver) resolve(ctx context.Context, bearer, legacyUserID string) (string, error) {
	if bearer != "" {
		userID, err := r.tokens.Validate(ctx, bearer)
		if err != nil {
			if errors.Is(err, models.ErrNotFoundOrExpired) {
				return "", fmt.Errorf("%w: invalid or expired token", models.ErrUnauthorized)
			}
			return "", err
		}
		return userID, nil
	}

	if userID, ok := r.legacy.Accept(legacyUserID); ok {
		logrus.WithField("user_id", userID).Debug("Accepted untrusted legacy identity")
		return userID, nil
	}

	return "", ErrMissingIdentity
}
