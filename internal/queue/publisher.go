package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/parking-reservation/internal/logging"
)

// ReservationsQueue carries both booked and released events; consumers
// tell them apart by ReservationEvent.Type.
const ReservationsQueue = "parking.reservations"

// Publisher sends reservation events to RabbitMQ.  It dials per
// publish, which keeps it free of connection state at the low event
// rates of a parking lot.
type Publisher struct {
	url   string
	queue string
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, queue: ReservationsQueue}
}

// Publish sends ev as a persistent JSON message with a fresh message
// id.  Errors are logged and returned so the caller can ignore them.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		logging.Warn(ctx).Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logging.Warn(ctx).Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		logging.Warn(ctx).Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	msg, err := newMessage(ev)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		logging.Warn(ctx).Err(err).Msg("rabbitmq: publish failed")
		return err
	}
	logging.Debug(ctx).Str("message_id", msg.MessageId).Str("event", ev.Type).Msg("event published")
	return nil
}

func newMessage(ev ReservationEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
