package models

import "time"

type ActivityMessage struct {
	UserID      string            `json:"user_id"`
	ServiceName string            `json:"service_name"`
	Action      string            `json:"action"`
	Count       int               `json:"count,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Activity action constants
const (
	ActionLogsIngested = "logs_ingested"
	ActionDevicePaired = "device_paired"
)

// Service name constants
const (
	ServiceIngestion = "collector.activity.ingest"
	ServicePairing   = "collector.pairing.finish"
)
