package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"storedesk/internal/models"
)

// AMQPSink publishes orders to a topic exchange and waits for the broker to
// confirm each one.
type AMQPSink struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	slog.Info("Connected to RabbitMQ", "exchange", exchange)
	return &AMQPSink{conn: conn, ch: ch, exchange: exchange}, nil
}

// Channel exposes the underlying channel, for declaring consumers.
func (s *AMQPSink) Channel() *amqp.Channel { return s.ch }

func (s *AMQPSink) Forward(ctx context.Context, o models.Order) error {
	body, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %d: %w", o.ID, err)
	}

	// each publish gets its own confirmation, so a confirm that arrives
	// after ctx ended is never mistaken for a later order's
	key := RoutingKey(o)
	dc, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, s.exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish order %d: %w", o.ID, err)
	}
	if dc == nil {
		return errors.New("amqp channel is not in confirm mode")
	}

	ack, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("confirm order %d: %w", o.ID, err)
	}
	if !ack {
		return fmt.Errorf("broker nacked order %d", o.ID)
	}
	slog.Debug("Order relayed", "order_id", o.ID, "routing_key", key, "delivery_tag", dc.DeliveryTag)
	return nil
}

func (s *AMQPSink) Close() error {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
