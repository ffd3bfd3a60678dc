package pairing

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/cache"
	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/models"
	"smart-time-tracker/src/internal/token"

	"github.com/coder/quartz"
	"github.com/sirupsen/logrus"
)

var codeSpace = big.NewInt(1_000_000)

// CodeGenerator returns a candidate pairing code.
type CodeGenerator func() (string, error)

// RandomCode returns a zero-padded 6-digit code.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type Service interface {
	Start(ctx context.Context, userID string) (*StartResult, error)
	Finish(ctx context.Context, pairCode string) (*token.Issued, error)
	Count(ctx context.Context) (int, error)
}

type pairingService struct {
	codes       cache.Store[Code]
	tokens      token.Service
	publisher   clients.Publisher
	clock       quartz.Clock
	generate    CodeGenerator
	ttl         time.Duration
	maxAttempts int
	minUserID   int
}

func NewPairingService(codes cache.Store[Code], tokens token.Service, publisher clients.Publisher,
	cfg *config.PairingConfig, clock quartz.Clock, generate CodeGenerator) Service {
	if generate == nil {
		generate = RandomCode
	}
	return &pairingService{
		codes:       codes,
		tokens:      tokens,
		publisher:   publisher,
		clock:       clock,
		generate:    generate,
		ttl:         cfg.CodeTTL,
		maxAttempts: cfg.MaxAttempts,
		minUserID:   cfg.MinUserIDLength,
	}
}

func (s *pairingService) Start(ctx context.Context, userID string) (*StartResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if len(userID) < s.minUserID {
		return nil, ErrInvalidUserID
	}

	if _, err := s.codes.SweepExpired(ctx); err != nil {
		return nil, fmt.Errorf("sweep pairing codes: %w", err)
	}

	expiresAt := s.clock.Now().Add(s.ttl)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		candidate, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("generate pairing code: %w", err)
		}

		stored, err := s.codes.PutIfAbsent(ctx, candidate, Code{UserID: userID, ExpiresAt: expiresAt}, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("store pairing code: %w", err)
		}
		if !stored {
			logrus.WithField("attempt", attempt).Debug("Pairing code collided with a live code")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"attempt": attempt,
		}).Info("Pairing code issued")

		return &StartResult{PairCode: candidate, ExpiresIn: s.ttl}, nil
	}

	logrus.WithField("user_id", userID).Error("Exhausted pairing code attempts")
	return nil, models.ErrGenerationExhausted
}

// Finish redeems a code. The code is removed before the token is issued, so a
// code can be redeemed at most once even when requests race.
func (s *pairingService) Finish(ctx context.Context, pairCode string) (*token.Issued, error) {
	pairCode = strings.TrimSpace(pairCode)
	if pairCode == "" {
		return nil, ErrMissingPairCode
	}

	if _, err := s.codes.SweepExpired(ctx); err != nil {
		return nil, fmt.Errorf("sweep pairing codes: %w", err)
	}

	code, ok, err := s.codes.DeleteIfPresent(ctx, pairCode)
	if err != nil {
		return nil, fmt.Errorf("consume pairing code: %w", err)
	}
	if !ok || code.UserID == "" {
		return nil, models.ErrNotFoundOrExpired
	}

	issued, err := s.tokens.Issue(ctx, code.UserID)
	if err != nil {
		return nil, err
	}

	logrus.WithField("user_id", code.UserID).Info("Pairing code exchanged for token")

	if err := s.publisher.Publish(ctx, models.ActivityMessage{
		UserID:      code.UserID,
		ServiceName: models.ServicePairing,
		Action:      models.ActionDevicePaired,
		Timestamp:   s.clock.Now().UTC(),
	}); err != nil {
		logrus.WithError(err).Warn("Failed to publish pairing activity")
	}

	return issued, nil
}

// Count reports live pairing codes after a sweep.
func (s *pairingService) Count(ctx context.Context) (int, error) {
	if _, err := s.codes.SweepExpired(ctx); err != nil {
		return 0, fmt.Errorf("sweep pairing codes: %w", err)
	}
	return s.codes.Len(ctx)
}
