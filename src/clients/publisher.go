package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smart-time-tracker/src/internal/config"
	"smart-time-tracker/src/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Publisher announces collector activity to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, message models.ActivityMessage) error
}

// amqpChannel is the part of *amqp.Channel the publisher needs.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ActivityPublisher publishes activity messages to a RabbitMQ exchange.
type ActivityPublisher struct {
	channel amqpChannel
	cfg     *config.RabbitMQConfig
}

// NewActivityPublisher declares the configured exchange on channel, so
// consumers can bind to it before the first message goes out.
func NewActivityPublisher(cfg *config.RabbitMQConfig, channel amqpChannel) (*ActivityPublisher, error) {
	err := channel.ExchangeDeclare(
		cfg.Exchange,
		cfg.ExchangeType,
		cfg.Durable,
		cfg.AutoDelete,
		cfg.Internal,
		cfg.NoWait,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %q: %w", cfg.Exchange, err)
	}

	logrus.WithFields(logrus.Fields{
		"exchange":    cfg.Exchange,
		"type":        cfg.ExchangeType,
		"routing_key": cfg.RoutingKey,
	}).Info("Activity publisher ready")

	return &ActivityPublisher{
		channel: channel,
		cfg:     cfg,
	}, nil
}

func (p *ActivityPublisher) Publish(_ context.Context, message models.ActivityMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal activity message: %w", err)
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		p.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)

	if err != nil {
		logrus.WithError(err).Error("Failed to publish activity message")
		return fmt.Errorf("failed to publish activity message: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     message.UserID,
		"service":     message.ServiceName,
		"action":      message.Action,
		"count":       message.Count,
		"exchange":    p.cfg.Exchange,
		"routing_key": p.cfg.RoutingKey,
	}).Debug("Activity message published")

	return nil
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.ActivityMessage) error {
	return nil
}
