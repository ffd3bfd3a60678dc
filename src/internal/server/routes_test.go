package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"smart-time-tracker/src/internal/activity"
	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/dependency"
	"smart-time-tracker/src/internal/models"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	mu      sync.Mutex
	records []*activity.Record
}

func (r *memoryRepository) InsertMany(_ context.Context, records []*activity.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *memoryRepository) Find(_ context.Context, q *activity.ListQuery) ([]*activity.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*activity.Record, 0)
	for i := len(r.records) - 1; i >= 0 && int64(len(out)) < q.Limit; i-- {
		if q.UserID == "" || r.records[i].UserID == q.UserID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func testConfig() *config.Configuration {
	return &config.Configuration{
		App:      config.Application{Name: "smart-time-tracker", Timeout: 5},
		Server:   config.ServerSettings{Port: "0", Mode: gin.TestMode},
		Security: config.SecuritySettings{AllowLegacyIdentity: true},
		Pairing: config.PairingConfig{
			Store:           config.StoreMemory,
			CodeTTL:         2 * time.Minute,
			TokenTTL:        30 * 24 * time.Hour,
			MaxAttempts:     5,
			MinUserIDLength: 6,
		},
	}
}

type testServer struct {
	t      *testing.T
	router http.Handler
	repo   *memoryRepository
	clock  *quartz.Mock
}

func newTestServer(t *testing.T, cfg *config.Configuration) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := &memoryRepository{}
	clock := quartz.NewMock(t)
	srv := NewWithBackends(cfg, dependency.Backends{Repository: repo}, clock)
	return &testServer{t: t, router: srv.Handler(), repo: repo, clock: clock}
}

func (s *testServer) do(method, path, body string, headers map[string]string) (int, map[string]any) {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w.Code, decoded
}

func TestEndToEnd_PairThenIngest(t *testing.T) {
	s := newTestServer(t, testConfig())

	status, started := s.do(http.MethodPost, "/api/extension/pair/start", `{"user_id":"user-aaaaaa"}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 120, started["expires_in_seconds"])

	status, health := s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, health["ok"])
	assert.EqualValues(t, 1, health["pairingCodes"])
	assert.EqualValues(t, 0, health["tokens"])

	status, finished := s.do(http.MethodPost, "/api/extension/pair/finish",
		`{"pair_code":"`+started["pair_code"].(string)+`"}`, nil)
	require.Equal(t, http.StatusOK, status)
	token := finished["extension_token"].(string)
	assert.Len(t, token, 64)

	status, body := s.do(http.MethodPost, "/api/logs",
		`{"logs":[{"domain":"","duration":10},{"domain":"x.com","duration":0},{"domain":"x.com","duration":5}]}`,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"success": true, "inserted": float64(1)}, body)

	status, health = s.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, health["pairingCodes"])
	assert.EqualValues(t, 1, health["tokens"])

	req := httptest.NewRequest(http.MethodGet, "/api/logs?user_id=user-aaaaaa", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "x.com", listed[0]["domain"])
	assert.EqualValues(t, 5, listed[0]["duration"])
}

func TestHealth_SweepsExpiredEntries(t *testing.T) {
	s := newTestServer(t, testConfig())

	status, _ := s.do(http.MethodPost, "/api/extension/pair/start", `{"user_id":"user-aaaaaa"}`, nil)
	require.Equal(t, http.StatusOK, status)

	s.clock.Advance(2 * time.Minute)

	_, health := s.do(http.MethodGet, "/health", "", nil)
	assert.EqualValues(t, 0, health["pairingCodes"])
}

func TestExpiredTokenIsRejected(t *testing.T) {
	s := newTestServer(t, testConfig())

	_, started := s.do(http.MethodPost, "/api/extension/pair/start", `{"user_id":"user-aaaaaa"}`, nil)
	_, finished := s.do(http.MethodPost, "/api/extension/pair/finish",
		`{"pair_code":"`+started["pair_code"].(string)+`"}`, nil)
	token := finished["extension_token"].(string)

	s.clock.Advance(30 * 24 * time.Hour)

	status, body := s.do(http.MethodPost, "/api/logs", `{"logs":[{"domain":"x.com","duration":5}]}`,
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body["error"])
	assert.Empty(t, s.repo.records)
}

func TestDashboardGuardOnPairStart(t *testing.T) {
	cfg := testConfig()
	cfg.Security.DashboardJwtKey = "dashboard-secret"
	s := newTestServer(t, cfg)

	status, _ := s.do(http.MethodPost, "/api/extension/pair/start", `{"user_id":"user-aaaaaa"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-aaaaaa",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("dashboard-secret"))
	require.NoError(t, err)
	auth := map[string]string{"Authorization": "Bearer " + signed}

	status, _ = s.do(http.MethodPost, "/api/extension/pair/start", `{"user_id":"user-bbbbbb"}`, auth)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(http.MethodPost, "/api/extension/pair/start", `{"user_id":"user-aaaaaa"}`, auth)
	assert.Equal(t, http.StatusOK, status)
	assert.Regexp(t, `^\d{6}$`, body["pair_code"])

	// Finishing needs no dashboard session.
	status, _ = s.do(http.MethodPost, "/api/extension/pair/finish", `{"pair_code":"`+body["pair_code"].(string)+`"}`, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestRootAndDetailedHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "is running")

	status, body := s.do(http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, status)
	components := body["components"].(map[string]any)
	database := components["database"].(map[string]any)
	assert.Equal(t, "not configured", database["mongodb"])
	assert.Equal(t, "not configured", database["redis"])
	assert.Equal(t, "disabled", components["publisher"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []models.ActivityMessage
}

func (p *recordingPublisher) Publish(_ context.Context, m models.ActivityMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, m)
	return nil
}

func TestBackendsPublisher_ReceivesActivity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub := &recordingPublisher{}
	srv := NewWithBackends(testConfig(), dependency.Backends{Repository: &memoryRepository{}, Publisher: pub}, quartz.NewMock(t))

	req := httptest.NewRequest(http.MethodPost, "/api/logs",
		strings.NewReader(`{"user_id":"user-aaaaaa","logs":[{"domain":"x.com","duration":5}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.messages, 1)
	assert.Equal(t, models.ActionLogsIngested, pub.messages[0].Action)
	assert.Equal(t, "user-aaaaaa", pub.messages[0].UserID)
	assert.Equal(t, 1, pub.messages[0].Count)
}
