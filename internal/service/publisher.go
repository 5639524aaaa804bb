// Package service publishes reservation events to RabbitMQ.  Failures are
// logged and returned; callers never fail a request because of them.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/queue"
)

// Publisher sends reservation events.
type Publisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// NopPublisher drops every event.  It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }

// AMQPPublisher dials the broker per event and publishes a persistent
// message to queue.QueueName through the default exchange.
type AMQPPublisher struct {
	URL string
}

// Publish implements Publisher.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	err := p.publish(ctx, ev)
	if err != nil {
		logging.Warn().Err(err).Str("event", ev.Type).Uint64("movie_id", ev.MovieID).Uint64("user_id", ev.UserID).Msg("event publish failed")
	}
	return err
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue.QueueName, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", queue.QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
}
