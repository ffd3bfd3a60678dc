package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"smart-time-tracker/src/internal/cache"
	"smart-time-tracker/src/internal/models"

	"github.com/coder/quartz"
	"github.com/sirupsen/logrus"
)

// tokenBytes is 256 bits, rendered as 64 hex characters.
const tokenBytes = 32

type Service interface {
	Issue(ctx context.Context, userID string) (*Issued, error)
	Validate(ctx context.Context, token string) (string, error)
	Count(ctx context.Context) (int, error)
}

type tokenService struct {
	store cache.Store[Entry]
	ttl   time.Duration
	clock quartz.Clock
}

func NewTokenService(store cache.Store[Entry], ttl time.Duration, clock quartz.Clock) Service {
	return &tokenService{
		store: store,
		ttl:   ttl,
		clock: clock,
	}
}

func (s *tokenService) Issue(ctx context.Context, userID string) (*Issued, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user_id", models.ErrValidation)
	}

	value, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.clock.Now().UTC()
	if err := s.store.Put(ctx, value, Entry{UserID: userID, CreatedAt: now}, now.Add(s.ttl)); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	logrus.WithField("user_id", userID).Info("Extension token issued")

	return &Issued{
		Token:     value,
		UserID:    userID,
		CreatedAt: now,
		TTL:       s.ttl,
	}, nil
}

func (s *tokenService) Validate(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", models.ErrNotFoundOrExpired
	}

	if _, err := s.store.SweepExpired(ctx); err != nil {
		return "", fmt.Errorf("sweep tokens: %w", err)
	}

	entry, ok, err := s.store.GetIfLive(ctx, token)
	if err != nil {
		return "", fmt.Errorf("lookup token: %w", err)
	}
	// CreatedAt is checked as well so a store entry outliving its TTL is never accepted.
	if !ok || entry.UserID == "" || !entry.CreatedAt.Add(s.ttl).After(s.clock.Now()) {
		return "", models.ErrNotFoundOrExpired
	}

	return entry.UserID, nil
}

// Count reports live tokens after a sweep.
func (s *tokenService) Count(ctx context.Context) (int, error) {
	if _, err := s.store.SweepExpired(ctx); err != nil {
		return 0, fmt.Errorf("sweep tokens: %w", err)
	}
	return s.store.Len(ctx)
}

func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
