package middleware

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// DashboardUserKey holds the subject of a verified dashboard session.
const DashboardUserKey = "dashboard_user_id"

var bearerPattern = regexp.MustCompile(`(?i)^Bearer\s+(.+)$`)

// DashboardClaims are the claims of a dashboard session JWT (HS256).
type DashboardClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// DashboardAuth guards pairing start with the dashboard's session JWT.
// With an empty secret the guard is disabled and every request passes.
type DashboardAuth struct {
	jwtSecret string
}

func NewDashboardAuth(jwtSecret string) *DashboardAuth {
	return &DashboardAuth{jwtSecret: jwtSecret}
}

func (m *DashboardAuth) Enabled() bool {
	return m.jwtSecret != ""
}

// RequireDashboardSession validates the bearer JWT and stores its subject
// under DashboardUserKey.
func (m *DashboardAuth) RequireDashboardSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() {
			c.Next()
			return
		}

		token := BearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization token is required",
			})
			c.Abort()
			return
		}

		claims, err := m.validateJWTToken(token)
		if err != nil {
			logrus.WithError(err).Warn("Dashboard JWT validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(DashboardUserKey, claims.Subject)

		logrus.WithField("user_id", claims.Subject).Debug("Dashboard session verified")
		c.Next()
	}
}

// validateJWTToken parses and validates the JWT (signature and expiration)
func (m *DashboardAuth) validateJWTToken(tokenString string) (*DashboardClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DashboardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(m.jwtSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token expired")
		}
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*DashboardClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively; an absent or malformed header yields "".
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}

	m := bearerPattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
