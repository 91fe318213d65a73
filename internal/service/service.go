// Package service implements the reservation lifecycle and capacity
// accounting for parking lots: booking and releasing spots, computing
// the cost of a stay, and growing, shrinking or deleting lots without
// breaking the occupancy invariant.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/parking-reservation/internal/logging"
	"github.com/iliyamo/parking-reservation/internal/queue"
)

// EventPublisher delivers reservation events after their transaction
// has committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Caller identifies who issues a request.  It is supplied by the
// authentication layer and trusted as already validated.
type Caller struct {
	Email string
	Role  string
}

// ParkingService owns every mutation of lots, spots and reservations.
type ParkingService struct {
	store     Store
	now       func() time.Time
	publisher EventPublisher
	meters    metric.MeterProvider
	tracer    trace.Tracer
	metrics   serviceMetrics
}

// Option customises a ParkingService.
type Option func(*ParkingService)

// WithClock replaces time.Now, which lets tests freeze or advance time.
func WithClock(now func() time.Time) Option {
	return func(s *ParkingService) { s.now = now }
}

// WithPublisher sets the sink for reservation events.
func WithPublisher(p EventPublisher) Option {
	return func(s *ParkingService) { s.publisher = p }
}

// WithMeterProvider records the service metrics on mp instead of the
// global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *ParkingService) { s.meters = mp }
}

// NewParkingService builds a service over store.  It panics when store
// is nil.
func NewParkingService(store Store, opts ...Option) *ParkingService {
	if store == nil {
		panic("nil store passed to NewParkingService")
	}
	s := &ParkingService{
		store:  store,
		now:    time.Now,
		meters: otel.GetMeterProvider(),
		tracer: otel.Tracer("parking"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newServiceMetrics(s.meters.Meter("parking"))
	return s
}

func (s *ParkingService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *ParkingService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *ParkingService) publish(ctx context.Context, ev queue.ReservationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logging.Warn(ctx).Err(err).
			Str("event", ev.Type).
			Uint64("reservation_id", ev.ReservationID).
			Msg("publish reservation event failed")
	}
}

type serviceMetrics struct {
	bookings  metric.Int64Counter
	releases  metric.Int64Counter
	revenue   metric.Int64Counter
	occupancy metric.Int64UpDownCounter
	rejected  metric.Int64Counter
}

// newServiceMetrics registers the service instruments.  Instrument
// creation only fails on invalid names; a failed instrument is
// replaced by its no-op counterpart.
func newServiceMetrics(meter metric.Meter) serviceMetrics {
	fallback := noop.NewMeterProvider().Meter("parking")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("1"))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}
	occupancy, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		occupancy, _ = fallback.Int64UpDownCounter("parking_lot_occupancy")
	}
	return serviceMetrics{
		bookings:  counter("parking_bookings_total", "Total number of spots booked"),
		releases:  counter("parking_releases_total", "Total number of reservations released"),
		revenue:   counter("parking_revenue_total", "Sum of costs charged on release"),
		occupancy: occupancy,
		rejected:  counter("parking_rejections_total", "Operations rejected by capacity rules"),
	}
}
