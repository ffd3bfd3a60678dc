package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"smart-time-tracker/src/clients"
	"smart-time-tracker/src/internal/activity"
	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/dependency"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg      *config.Configuration
	deps     *dependency.Manager
	httpSrv  *http.Server
	backends dependency.Backends
}

// New connects to the configured backends and builds the collector. MongoDB
// is required; Redis and RabbitMQ are only dialled when configured.
func New(cfg *config.Configuration) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)

	backends, err := connectBackends(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.Timeout)*time.Second)
	defer cancel()
	if err := activity.EnsureIndexes(ctx, backends.Mongodb, cfg.Database.LogsCollection); err != nil {
		logrus.WithError(err).Warn("Could not ensure activity log indexes")
	}

	return NewWithBackends(cfg, backends, quartz.NewReal()), nil
}

// NewWithBackends builds the collector around already connected backends.
func NewWithBackends(cfg *config.Configuration, backends dependency.Backends, clock quartz.Clock) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	deps := dependency.NewDependencyManager(router, backends, cfg, clock)
	SetupRoutes(deps)

	return &Server{
		cfg:      cfg,
		deps:     deps,
		backends: backends,
		httpSrv: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Start serves until ctx is done, then shuts down gracefully and closes the
// backends.
func (s *Server) Start(ctx context.Context) error {
	defer s.closeBackends()

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("port", s.cfg.Server.Port).Info("Server is listening")
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logrus.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	}
}

func connectBackends(cfg *config.Configuration) (dependency.Backends, error) {
	var backends dependency.Backends

	mongodb, err := clients.NewMongoDB(&cfg.Database)
	if err != nil {
		return backends, err
	}
	backends.Mongodb = mongodb

	if cfg.Pairing.Store == config.StoreRedis {
		redisClient, err := clients.NewRedisClient(&cfg.Redis)
		if err != nil {
			closeAll(backends)
			return dependency.Backends{}, err
		}
		backends.Redis = redisClient
	}

	if cfg.Queue.RabbitMQ.Url != "" {
		rabbitMQ, err := clients.NewRabbitMQ(cfg.Queue.RabbitMQ.Url)
		if err != nil {
			closeAll(backends)
			return dependency.Backends{}, err
		}
		publisher, err := clients.NewActivityPublisher(&cfg.Queue.RabbitMQ, rabbitMQ.Channel)
		if err != nil {
			_ = rabbitMQ.Close()
			closeAll(backends)
			return dependency.Backends{}, err
		}
		backends.RabbitMQ = rabbitMQ
		backends.Publisher = publisher
	}

	return backends, nil
}

func (s *Server) closeBackends() {
	closeAll(s.backends)
}

func closeAll(b dependency.Backends) {
	if b.RabbitMQ != nil {
		_ = b.RabbitMQ.Close()
	}
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.Mongodb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Mongodb.Close(ctx)
	}
}
