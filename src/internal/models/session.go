package models

import "time"

// Session is the span currently being tracked. At most one exists at a time.
type Session struct {
	Domain    string    `json:"domain"`
	StartTime time.Time `json:"startTime"`
}

// LogRecord is a closed span of time on one domain, queued for upload.
// Duration is in seconds.
type LogRecord struct {
	Domain    string    `json:"domain"`
	StartTime time.Time `json:"startTime"`
	Duration  float64   `json:"duration"`
}

// Close turns the session into a record ending at end.
func (s *Session) Close(end time.Time) LogRecord {
	return LogRecord{
		Domain:    s.Domain,
		StartTime: s.StartTime.UTC(),
		Duration:  end.Sub(s.StartTime).Seconds(),
	}
}
