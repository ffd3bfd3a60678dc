package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "dashboard-secret"

func signed(t *testing.T, method jwt.SigningMethod, secret string, claims DashboardClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func guardedRouter(auth *DashboardAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/start", auth.RequireDashboardSession(), func(c *gin.Context) {
		sub, _ := c.Get(DashboardUserKey)
		c.JSON(http.StatusOK, gin.H{"sub": sub})
	})
	return r
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER   abc  ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"abc", ""},
	}
	gin.SetMode(gin.TestMode)
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, BearerToken(c))
		})
	}
}

func TestDashboardAuth_DisabledPassesThrough(t *testing.T) {
	auth := NewDashboardAuth("")
	assert.False(t, auth.Enabled())

	w := httptest.NewRecorder()
	guardedRouter(auth).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardAuth(t *testing.T) {
	valid := DashboardClaims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-aaaaaa",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noSubject := valid
	noSubject.Subject = ""

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"valid", "Bearer " + signed(t, jwt.SigningMethodHS256, testSecret, valid), http.StatusOK},
		{"wrong secret", "Bearer " + signed(t, jwt.SigningMethodHS256, "other", valid), http.StatusUnauthorized},
		{"expired", "Bearer " + signed(t, jwt.SigningMethodHS256, testSecret, expired), http.StatusUnauthorized},
		{"no subject", "Bearer " + signed(t, jwt.SigningMethodHS256, testSecret, noSubject), http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	r := guardedRouter(NewDashboardAuth(testSecret))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/start", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"sub":"user-aaaaaa"`)
			}
		})
	}
}
