package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smart-time-tracker/src/internal/cache"
	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/middleware"
	"smart-time-tracker/src/internal/models"
	"smart-time-tracker/src/internal/token"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	router *gin.Engine
	repo   *fakeRepository
	token  string
}

func newHandlerFixture(t *testing.T, legacy bool) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := quartz.NewMock(t)
	tokens := token.NewTokenService(cache.NewMemoryStore[token.Entry](clock), 30*24*time.Hour, clock)
	issued, err := tokens.Issue(context.Background(), "user-aaaaaa")
	require.NoError(t, err)

	repo := &fakeRepository{}
	cfg := &config.Configuration{App: config.Application{Timeout: 5}}
	h := NewHandler(cfg,
		NewActivityService(repo, &fakePublisher{}, clock),
		middleware.NewIdentityResolver(tokens, middleware.UntrustedLegacyIdentity{Enabled: legacy}))

	r := gin.New()
	r.POST("/api/logs", h.IngestLogs)
	r.GET("/api/logs", h.ListLogs)

	return &handlerFixture{router: r, repo: repo, token: issued.Token}
}

func (f *handlerFixture) post(body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestIngestLogs_NormalizesWithToken(t *testing.T) {
	f := newHandlerFixture(t, true)

	w := f.post(`{"logs":[{"domain":"","duration":10},{"domain":"x.com","duration":0},{"domain":"x.com","duration":5}]}`, f.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"inserted":1}`, w.Body.String())

	require.Len(t, f.repo.batches, 1)
	assert.Equal(t, "user-aaaaaa", f.repo.batches[0][0].UserID)
}

func TestIngestLogs_TokenBeatsBodyIdentity(t *testing.T) {
	f := newHandlerFixture(t, true)

	w := f.post(`{"user_id":"someone-else","logs":[{"domain":"x.com","duration":5}]}`, f.token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-aaaaaa", f.repo.batches[0][0].UserID)
}

func TestIngestLogs_Errors(t *testing.T) {
	tests := []struct {
		name   string
		legacy bool
		body   string
		bearer string
		status int
		errMsg string
	}{
		{"logs not array", true, `{"logs":"x.com"}`, "", http.StatusBadRequest, "Invalid format: logs must be an array"},
		{"body not object", true, `[1,2]`, "", http.StatusBadRequest, "Invalid format: logs must be an array"},
		{"no identity", true, `{"logs":[]}`, "", http.StatusBadRequest, "Missing identity (token or user_id)"},
		{"bad token", true, `{"logs":[],"user_id":"user-aaaaaa"}`, "nope", http.StatusUnauthorized, "Invalid or expired token"},
		{"legacy disabled", false, `{"logs":[],"user_id":"user-aaaaaa"}`, "", http.StatusBadRequest, "Missing identity (token or user_id)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t, tt.legacy)
			w := f.post(tt.body, tt.bearer)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.errMsg, body["error"])
			assert.Empty(t, f.repo.batches)
		})
	}
}

func TestIngestLogs_LegacyIdentity(t *testing.T) {
	f := newHandlerFixture(t, true)

	w := f.post(`{"user_id":" legacy-user ","logs":[{"domain":"x.com","duration":5}]}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "legacy-user", f.repo.batches[0][0].UserID)
}

func TestIngestLogs_StorageFailure(t *testing.T) {
	f := newHandlerFixture(t, true)
	f.repo.insertErr = fmt.Errorf("%w: write concern timeout", models.ErrDatabaseInsert)

	w := f.post(`{"logs":[{"domain":"x.com","duration":5}]}`, f.token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "write concern timeout")
}

func TestListLogs(t *testing.T) {
	f := newHandlerFixture(t, true)
	f.repo.found = []*Record{{UserID: "user-aaaaaa", Domain: "x.com", Duration: 5}}

	req := httptest.NewRequest(http.MethodGet, "/api/logs?user_id=user-aaaaaa&start_date=2024-05-01", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var records []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "x.com", records[0]["domain"])

	require.NotNil(t, f.repo.lastQuery)
	assert.Equal(t, int64(2000), f.repo.lastQuery.Limit)
}

func TestListLogs_BadDate(t *testing.T) {
	f := newHandlerFixture(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/logs?start_date=nope", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, f.repo.lastQuery)
}
