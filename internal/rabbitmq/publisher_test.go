package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/lessonbook/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *recordingChannel) PublishWithContext(
	_ context.Context,
	exchange, key string,
	_, _ bool,
	msg amqp.Publishing,
) error {
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return c.err
}

func TestOrderPublisher_PublishOrderPlaced(t *testing.T) {
	ch := &recordingChannel{}
	pub := &OrderPublisher{ch: ch, exchange: "lessonbook"}

	order := domain.Order{
		ID:          uuid.New(),
		LessonItems: []domain.LineItem{{ID: 5, Spaces: 2}},
		TotalSpent:  decimal.RequireFromString("40.50"),
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, pub.PublishOrderPlaced(context.Background(), order))

	assert.Equal(t, "lessonbook", ch.exchange)
	assert.Equal(t, RoutingKeyOrderPlaced, ch.key)
	assert.Equal(t, order.ID.String(), ch.msg.MessageId)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var body orderPlacedMsg
	require.NoError(t, json.Unmarshal(ch.msg.Body, &body))
	assert.Equal(t, "order_placed", body.Type)
	assert.Equal(t, "40.5", body.TotalSpent)
	assert.Equal(t, order.LessonItems, body.LessonItems)
}

func TestOrderPublisher_PublishError(t *testing.T) {
	boom := errors.New("channel closed")
	pub := &OrderPublisher{ch: &recordingChannel{err: boom}, exchange: "x"}

	err := pub.PublishOrderPlaced(context.Background(), domain.Order{ID: uuid.New()})
	require.ErrorIs(t, err, boom)
}
