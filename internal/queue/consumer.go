package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/parking-reservation/internal/logging"
)

// Consumer appends every reservation event to a log file, one line per
// event.
type Consumer struct {
	url     string
	queue   string
	logPath string
}

// NewConsumer returns a Consumer reading ReservationsQueue at url and
// writing to logPath.
func NewConsumer(url, logPath string) *Consumer {
	return &Consumer{url: url, queue: ReservationsQueue, logPath: logPath}
}

// Run consumes until ctx is cancelled, reconnecting with exponential
// backoff (capped at 30s) whenever the broker goes away.  Messages that
// cannot be handled are rejected without requeue.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			logging.Warn(ctx).Err(err).Dur("retry_in", backoff).Msg("event consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn(ctx).Err(err).Msg("event consumer: reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logging.Warn(ctx).Err(err).Msg("event consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				logging.Error(ctx).Err(err).Str("message_id", d.MessageId).Msg("event consumer: handle failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.ReservationID == 0 {
		return errors.New("event without type or reservation id")
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single newline-terminated log line.
func FormatLine(ev ReservationEvent) string {
	switch ev.Type {
	case EventReleased:
		return fmt.Sprintf("[%s] Spot released | reservation_id=%d | lot_id=%d | spot_id=%d | email=%s | vehicle=%s | location=%q | parked=%s | released=%s | cost=%d\n",
			ev.OccurredAt, ev.ReservationID, ev.LotID, ev.SpotID, ev.Email, ev.VehicleNumber, ev.Location, ev.ParkingTime, ev.ReleaseTime, ev.Cost)
	default:
		return fmt.Sprintf("[%s] Spot booked | reservation_id=%d | lot_id=%d | spot_id=%d | email=%s | vehicle=%s | location=%q | parked=%s\n",
			ev.OccurredAt, ev.ReservationID, ev.LotID, ev.SpotID, ev.Email, ev.VehicleNumber, ev.Location, ev.ParkingTime)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
