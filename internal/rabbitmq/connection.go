package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const ExchangeType = "topic"

// Connect dials url, retrying while the broker starts up, opens a channel and
// declares the durable topic exchange.
func Connect(ctx context.Context, url, exchange string, logger *slog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	const op = "rabbitmq.Connect"

	var conn *amqp.Connection
	var err error

	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("rabbitmq dial failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("%s:%w", op, ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: channel: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,     // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: declare exchange: %w", op, err)
	}

	return conn, ch, nil
}
