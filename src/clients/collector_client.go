package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/models"
)

const maxErrorBody = 4 << 10

// LogBatch is the body of POST /api/logs. UserID is only set on the legacy path.
type LogBatch struct {
	Logs   []models.LogRecord `json:"logs"`
	UserID string             `json:"user_id,omitempty"`
}

// PairResult is the collector's answer to a successful pairing.
type PairResult struct {
	ExtensionToken        string `json:"extension_token"`
	UserID                string `json:"user_id"`
	TokenExpiresInSeconds int64  `json:"token_expires_in_seconds"`
}

// RemoteLog is a stored record as returned by GET /api/logs.
type RemoteLog struct {
	Domain   string  `json:"domain"`
	Duration float64 `json:"duration"`
}

// CollectorClient talks to the collector on behalf of the tracker.
type CollectorClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCollectorClient(cfg *config.TrackerConfig) *CollectorClient {
	return &CollectorClient{
		baseURL: strings.TrimRight(cfg.ServerUrl, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// PostLogs uploads one batch. A bearer token, when given, is sent in the
// Authorization header; batch.UserID must then be empty.
func (c *CollectorClient) PostLogs(ctx context.Context, batch *LogBatch, token string) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal log batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/logs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransientTransport, err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

// FinishPairing exchanges a pairing code for an extension token.
func (c *CollectorClient) FinishPairing(ctx context.Context, pairCode string) (*PairResult, error) {
	body, err := json.Marshal(map[string]string{"pair_code": pairCode})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pairing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/extension/pair/finish", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransientTransport, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result PairResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// GetLogs fetches stored records for a user, newest first, optionally limited
// to records created since the given day.
func (c *CollectorClient) GetLogs(ctx context.Context, userID string, since time.Time) ([]RemoteLog, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	if !since.IsZero() {
		query.Set("start_date", since.UTC().Format(time.DateOnly))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/logs?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrTransientTransport, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var logs []RemoteLog
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return logs, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(text))
	if json.Unmarshal(text, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: collector returned status %d: %s", models.ErrTransientTransport, resp.StatusCode, message)
	}
	return fmt.Errorf("%w: collector returned status %d: %s", models.ErrCollectorRejected, resp.StatusCode, message)
}
