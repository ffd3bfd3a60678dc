package dependency

import (
	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/activity"
	"smart-time-tracker/src/internal/cache"
	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/middleware"
	"smart-time-tracker/src/internal/pairing"
	"smart-time-tracker/src/internal/token"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Backends are the external systems the collector talks to. Any of them may
// be nil: a nil Redis keeps codes and tokens in memory, a nil Publisher
// disables activity publishing, and Repository overrides the Mongo-backed
// activity repository.
type Backends struct {
	Mongodb    *clients.MongoDB
	Redis      *clients.RedisClient
	RabbitMQ   *clients.RabbitMQ
	Publisher  clients.Publisher
	Repository activity.Repository
}

type Manager struct {
	Router          *gin.Engine
	Config          *config.Configuration
	Clock           quartz.Clock
	Mongodb         *clients.MongoDB
	Redis           *clients.RedisClient
	RabbitMQ        *clients.RabbitMQ
	Publisher       clients.Publisher
	TokenService    token.Service
	PairingService  pairing.Service
	PairingHandler  pairing.Handler
	ActivityService activity.Service
	ActivityHandler activity.Handler
	DashboardAuth   *middleware.DashboardAuth
}

func NewDependencyManager(router *gin.Engine,
	backends Backends,
	cfg *config.Configuration,
	clock quartz.Clock) *Manager {
	codes, tokenStore := newStores(backends.Redis, cfg, clock)

	publisher := backends.Publisher
	if publisher == nil {
		publisher = clients.NoopPublisher{}
	}

	repository := backends.Repository
	if repository == nil {
		repository = activity.NewActivityRepository(backends.Mongodb, cfg.Database.LogsCollection, cfg.Database.Transactions)
	}

	tokenService := token.NewTokenService(tokenStore, cfg.Pairing.TokenTTL, clock)
	pairingService := pairing.NewPairingService(codes, tokenService, publisher, &cfg.Pairing, clock, pairing.RandomCode)
	pairingHandler := pairing.NewHandler(cfg, pairingService)

	identity := middleware.NewIdentityResolver(tokenService,
		middleware.UntrustedLegacyIdentity{Enabled: cfg.Security.AllowLegacyIdentity})
	activityService := activity.NewActivityService(repository, publisher, clock)
	activityHandler := activity.NewHandler(cfg, activityService, identity)

	return &Manager{
		Router:          router,
		Config:          cfg,
		Clock:           clock,
		Mongodb:         backends.Mongodb,
		Redis:           backends.Redis,
		RabbitMQ:        backends.RabbitMQ,
		Publisher:       publisher,
		TokenService:    tokenService,
		PairingService:  pairingService,
		PairingHandler:  pairingHandler,
		ActivityService: activityService,
		ActivityHandler: activityHandler,
		DashboardAuth:   middleware.NewDashboardAuth(cfg.Security.DashboardJwtKey),
	}
}

func newStores(redisClient *clients.RedisClient, cfg *config.Configuration, clock quartz.Clock) (cache.Store[pairing.Code], cache.Store[token.Entry]) {
	if cfg.Pairing.Store == config.StoreRedis && redisClient != nil {
		logrus.Info("Pairing codes and tokens are stored in Redis")
		return cache.NewRedisStore[pairing.Code](redisClient.Client, cfg.Redis.KeyPrefix+":pair", clock),
			cache.NewRedisStore[token.Entry](redisClient.Client, cfg.Redis.KeyPrefix+":token", clock)
	}

	if cfg.Pairing.Store == config.StoreRedis {
		logrus.Warn("Redis store requested but no Redis client available, using memory")
	}
	return cache.NewMemoryStore[pairing.Code](clock), cache.NewMemoryStore[token.Entry](clock)
}
