package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/models"

	"github.com/coder/quartz"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidStartDate = fmt.Errorf("%w: invalid start_date", models.ErrValidation)
	ErrInvalidEndDate   = fmt.Errorf("%w: invalid end_date", models.ErrValidation)
)

type Service interface {
	// Ingest normalizes raw entries for userID and stores the survivors as
	// one batch. It returns the number of stored records.
	Ingest(ctx context.Context, userID string, raw []any) (int, error)
	List(ctx context.Context, req *ListRequest) ([]*Record, error)
}

type activityService struct {
	repository Repository
	publisher  clients.Publisher
	clock      quartz.Clock
}

func NewActivityService(repository Repository, publisher clients.Publisher, clock quartz.Clock) Service {
	return &activityService{
		repository: repository,
		publisher:  publisher,
		clock:      clock,
	}
}

func (s *activityService) Ingest(ctx context.Context, userID string, raw []any) (int, error) {
	now := s.clock.Now().UTC()
	records := NormalizeEntries(userID, raw, now)

	logger := logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"received": len(raw),
		"accepted": len(records),
	})

	if len(records) == 0 {
		logger.Debug("No activity logs survived normalization")
		return 0, nil
	}

	if err := s.repository.InsertMany(ctx, records); err != nil {
		return 0, err
	}

	logger.Info("Activity logs stored")

	if err := s.publisher.Publish(ctx, models.ActivityMessage{
		UserID:      userID,
		ServiceName: models.ServiceIngestion,
		Action:      models.ActionLogsIngested,
		Count:       len(records),
		Timestamp:   now,
	}); err != nil {
		logger.WithError(err).Warn("Failed to publish ingestion activity")
	}

	return len(records), nil
}

func (s *activityService) List(ctx context.Context, req *ListRequest) ([]*Record, error) {
	query, err := parseListRequest(req)
	if err != nil {
		return nil, err
	}
	return s.repository.Find(ctx, query)
}

// parseListRequest turns YYYY-MM-DD bounds into an inclusive UTC day window.
func parseListRequest(req *ListRequest) (*ListQuery, error) {
	query := &ListQuery{
		UserID: strings.TrimSpace(req.UserID),
		Limit:  defaultListLimit,
	}

	if start := strings.TrimSpace(req.StartDate); start != "" {
		day, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return nil, ErrInvalidStartDate
		}
		query.From = day
	}

	if end := strings.TrimSpace(req.EndDate); end != "" {
		day, err := time.Parse(time.DateOnly, end)
		if err != nil {
			return nil, ErrInvalidEndDate
		}
		query.To = day.Add(24*time.Hour - time.Millisecond)
	}

	if !query.From.IsZero() || !query.To.IsZero() {
		query.Limit = rangeListLimit
	}

	return query, nil
}
