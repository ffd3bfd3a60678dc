package clients

import (
	"errors"
	"fmt"

	"github.com/streadway/amqp"
)

// RabbitMQ is the broker connection activity messages go out on. Exchange
// declaration belongs to the publisher that uses it.
type RabbitMQ struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	log.Info("Connecting to RabbitMQ...")
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	log.Info("Connected to RabbitMQ")
	return &RabbitMQ{conn: conn, Channel: channel}, nil
}

// IsClosed reports whether the broker dropped the connection.
func (r *RabbitMQ) IsClosed() bool {
	return r.conn == nil || r.conn.IsClosed()
}

// Close closes the channel and then the connection, reporting both failures.
func (r *RabbitMQ) Close() error {
	var errs []error
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.WithError(err).Error("Failed to close RabbitMQ")
		return err
	}
	log.Info("RabbitMQ connection closed")
	return nil
}
