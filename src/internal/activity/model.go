package activity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	defaultListLimit = 200
	rangeListLimit   = 2000
)

// Record is a stored activity log entry.
type Record struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Domain    string             `bson:"domain" json:"domain"`
	Duration  int64              `bson:"duration" json:"duration"`
	StartTime *string            `bson:"start_time" json:"start_time"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// ListRequest carries the raw query of GET /api/logs.
type ListRequest struct {
	UserID    string `form:"user_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// ListQuery is a parsed ListRequest. Zero times mean no bound.
type ListQuery struct {
	UserID string
	From   time.Time
	To     time.Time
	Limit  int64
}

type IngestResponse struct {
	Success  bool `json:"success"`
	Inserted int  `json:"inserted"`
}
