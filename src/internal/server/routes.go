package server

import (
	"net/http"
	"time"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/dependency"
	"smart-time-tracker/src/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(middleware.RequestLogger())

	setupHealthEndpoints(deps)
	setupPairingRoutes(router, deps)
	setupLogRoutes(router, deps)
}

func setupHealthEndpoints(deps *dependency.Manager) {
	router := deps.Router
	cfg := deps.Config

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "%s API is running!", cfg.App.Name)
	})

	router.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()

		codes, err := deps.PairingService.Count(ctx)
		if err != nil {
			logrus.WithError(err).Error("Failed to count pairing codes")
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
		tokens, err := deps.TokenService.Count(ctx)
		if err != nil {
			logrus.WithError(err).Error("Failed to count tokens")
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":           true,
			"pairingCodes": codes,
			"tokens":       tokens,
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		logrus.Debug("Detailed health check endpoint requested")

		c.JSON(http.StatusOK, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(deps.Mongodb, c)),
					"redis":   getStatus(isRedisConnected(deps.Redis, c)),
				},
				"pairing_store": cfg.Pairing.Store,
				"publisher":     publisherStatus(deps.RabbitMQ),
			},
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}

func setupPairingRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.PairingHandler

	pair := router.Group("/api/extension/pair")
	{
		pair.POST("/start",
			setRouteName("startPairing"),
			deps.DashboardAuth.RequireDashboardSession(),
			handler.StartPairing)

		pair.POST("/finish",
			setRouteName("finishPairing"),
			handler.FinishPairing)
	}
}

func setupLogRoutes(router *gin.Engine, deps *dependency.Manager) {
	handler := deps.ActivityHandler

	logs := router.Group("/api/logs")
	{
		logs.POST("", setRouteName("ingestLogs"), handler.IngestLogs)
		logs.GET("", setRouteName("listLogs"), handler.ListLogs)
	}
}

func setRouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_name", name)
		c.Next()
	}
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) (bool, bool) {
	if mongodb == nil {
		return false, false
	}
	return mongodb.Client.Ping(c.Request.Context(), nil) == nil, true
}

func isRedisConnected(redisClient *clients.RedisClient, c *gin.Context) (bool, bool) {
	if redisClient == nil {
		return false, false
	}
	return redisClient.Client.Ping(c.Request.Context()).Err() == nil, true
}

func getStatus(connected, configured bool) string {
	switch {
	case !configured:
		return "not configured"
	case connected:
		return "connected"
	default:
		return "disconnected"
	}
}

func publisherStatus(rabbitMQ *clients.RabbitMQ) string {
	switch {
	case rabbitMQ == nil:
		return "disabled"
	case rabbitMQ.IsClosed():
		return "disconnected"
	default:
		return "connected"
	}
}
