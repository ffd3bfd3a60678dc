package clients

import (
	"context"
	"fmt"
	"time"

	"smart-time-tracker/src/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Database) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Timeout)*time.Second)
	defer cancel()

	log.WithField("database", cfg.DbName).Info("Connecting to MongoDB...")
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Url))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.WithField("database", cfg.DbName).Info("Connected to MongoDB")

	return &MongoDB{
		Client:   client,
		Database: client.Database(cfg.DbName),
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.Client.Disconnect(ctx); err != nil {
		log.WithError(err).Error("Failed to disconnect from MongoDB")
		return err
	}
	log.Info("MongoDB connection closed")
	return nil
}
