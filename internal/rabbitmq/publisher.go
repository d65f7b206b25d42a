package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kirinyoku/lessonbook/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const RoutingKeyOrderPlaced = "orders.placed"

type channel interface {
	PublishWithContext(
		ctx context.Context,
		exchange, key string,
		mandatory, immediate bool,
		msg amqp.Publishing,
	) error
}

// OrderPublisher publishes order events to a topic exchange.
type OrderPublisher struct {
	mu       sync.Mutex
	ch       channel
	exchange string
}

func NewOrderPublisher(ch *amqp.Channel, exchange string) *OrderPublisher {
	return &OrderPublisher{ch: ch, exchange: exchange}
}

type orderPlacedMsg struct {
	Type        string            `json:"type"`
	OrderID     string            `json:"orderId"`
	LessonItems []domain.LineItem `json:"lessonItems"`
	TotalSpent  string            `json:"totalSpent"`
	PlacedAt    time.Time         `json:"placedAt"`
}

func (p *OrderPublisher) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	const op = "rabbitmq.OrderPublisher.PublishOrderPlaced"

	body, err := json.Marshal(orderPlacedMsg{
		Type:        "order_placed",
		OrderID:     order.ID.String(),
		LessonItems: order.LessonItems,
		TotalSpent:  order.TotalSpent.String(),
		PlacedAt:    order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	// amqp channels must not be shared between concurrent publishers.
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,            // exchange
		RoutingKeyOrderPlaced, // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    order.ID.String(),
			Timestamp:    order.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
