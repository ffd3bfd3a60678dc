package main

import (
	"context"
	"os/signal"
	"syscall"

	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/logger"
	"smart-time-tracker/src/internal/server"

	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

func main() {
	cfg := config.Load()
	logger.Init(cfg)

	log.Infof("Application %s is starting....", cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("Error initializing server")
	}
	if err := srv.Start(ctx); err != nil {
		log.WithError(err).Fatal("Error running server")
	}

	log.Info("Server stopped")
}
