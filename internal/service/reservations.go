package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/iliyamo/parking-reservation/internal/logging"
	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/queue"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

const maxVehicleNumberLen = 20

// Book allocates the lowest-numbered AVAILABLE spot of the lot to the
// caller.  The reservation insert, the spot status change and the
// occupancy increment commit together or not at all.
func (s *ParkingService) Book(ctx context.Context, caller Caller, lotID uint64, vehicle string) (res *model.Reservation, err error) {
	ctx, span := s.startSpan(ctx, "parking.book", attribute.Int64("lot.id", int64(lotID)))
	defer func() {
		if errors.Is(err, ErrNoCapacity) {
			s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", "no_capacity")))
		}
		endSpan(span, err)
	}()

	if strings.TrimSpace(caller.Email) == "" {
		return nil, ErrForbidden
	}
	vehicle = normalizeVehicle(vehicle)
	if vehicle == "" {
		return nil, invalid("vehicle_number", "is required")
	}
	if len(vehicle) > maxVehicleNumberLen {
		return nil, invalid("vehicle_number", "must be at most 20 characters")
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lot, err := tx.LockLot(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("lock lot", err)
	}
	spot, err := tx.FirstAvailableSpot(ctx, lot.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoCapacity
		}
		return nil, storeErr("find available spot", err)
	}
	if err := occupy(ctx, tx, lot, spot, vehicle); err != nil {
		return nil, err
	}
	res = &model.Reservation{
		SpotID:        spot.ID,
		LotID:         lot.ID,
		Email:         strings.ToLower(strings.TrimSpace(caller.Email)),
		VehicleNumber: vehicle,
		ParkingTime:   s.clock(),
	}
	if err := tx.InsertReservation(ctx, res); err != nil {
		return nil, storeErr("insert reservation", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit booking", err)
	}
	committed = true

	lotAttr := metric.WithAttributes(attribute.Int64("lot.id", int64(lot.ID)))
	s.metrics.bookings.Add(ctx, 1, lotAttr)
	s.metrics.occupancy.Add(ctx, 1, lotAttr)
	logging.Info(ctx).
		Uint64("reservation_id", res.ID).
		Uint64("lot_id", lot.ID).
		Uint64("spot_id", spot.ID).
		Str("email", res.Email).
		Msg("spot booked")
	s.publish(ctx, reservationEvent(queue.EventBooked, res, lot))
	return res, nil
}

// Release closes an active reservation owned by the caller, charges
// the elapsed time at the lot's hourly price and returns the spot to
// the pool.  Releasing twice fails with ErrAlreadyReleased and leaves
// the first cost in place.
func (s *ParkingService) Release(ctx context.Context, caller Caller, reservationID uint64) (res *model.Reservation, err error) {
	ctx, span := s.startSpan(ctx, "parking.release", attribute.Int64("reservation.id", int64(reservationID)))
	defer func() { endSpan(span, err) }()

	current, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get reservation", err)
	}
	if !sameEmail(current.Email, caller.Email) {
		return nil, ErrForbidden
	}
	if !current.IsActive() {
		return nil, ErrAlreadyReleased
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lot, err := tx.LockLot(ctx, current.LotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("lock lot", err)
	}
	res, err = tx.LockReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("lock reservation", err)
	}
	// A concurrent release may have won between the read above and the lock.
	if !res.IsActive() {
		return nil, ErrAlreadyReleased
	}

	now := s.clock()
	res.ReleaseTime = &now
	res.Cost = Cost(res.ParkingTime, now, lot.Price)
	res.Paid = true

	if err := vacate(ctx, tx, lot, res.SpotID); err != nil {
		return nil, err
	}
	if err := tx.CloseReservation(ctx, res); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyReleased
		}
		return nil, storeErr("close reservation", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("commit release", err)
	}
	committed = true

	lotAttr := metric.WithAttributes(attribute.Int64("lot.id", int64(lot.ID)))
	s.metrics.releases.Add(ctx, 1, lotAttr)
	s.metrics.revenue.Add(ctx, res.Cost, lotAttr)
	s.metrics.occupancy.Add(ctx, -1, lotAttr)
	logging.Info(ctx).
		Uint64("reservation_id", res.ID).
		Uint64("lot_id", lot.ID).
		Int64("cost", res.Cost).
		Msg("spot released")
	s.publish(ctx, reservationEvent(queue.EventReleased, res, lot))
	return res, nil
}

// GetReservation returns a reservation visible to the caller: admins
// see every reservation, users only their own.
func (s *ParkingService) GetReservation(ctx context.Context, caller Caller, id uint64) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get reservation", err)
	}
	if caller.Role != model.RoleAdmin && !sameEmail(res.Email, caller.Email) {
		return nil, ErrForbidden
	}
	return res, nil
}

// ListReservations returns reservations matching f, newest first.
// Non-admin callers are always restricted to their own email.
func (s *ParkingService) ListReservations(ctx context.Context, caller Caller, f model.ReservationFilter) ([]model.Reservation, error) {
	switch f.State {
	case model.ReservationsAll, model.ReservationsActive, model.ReservationsHistory:
	default:
		return nil, invalid("status", "must be active or history")
	}
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	if caller.Role != model.RoleAdmin {
		f.Email = strings.ToLower(strings.TrimSpace(caller.Email))
	}
	list, err := s.store.ListReservations(ctx, f)
	if err != nil {
		return nil, storeErr("list reservations", err)
	}
	return list, nil
}

func normalizeVehicle(v string) string {
	return strings.ToUpper(strings.Join(strings.Fields(v), ""))
}

func sameEmail(a, b string) bool {
	a = strings.TrimSpace(a)
	return a != "" && strings.EqualFold(a, strings.TrimSpace(b))
}

func reservationEvent(kind string, res *model.Reservation, lot *model.ParkingLot) queue.ReservationEvent {
	ev := queue.ReservationEvent{
		Type:          kind,
		ReservationID: res.ID,
		LotID:         res.LotID,
		SpotID:        res.SpotID,
		Email:         res.Email,
		VehicleNumber: res.VehicleNumber,
		Location:      lot.Location,
		ParkingTime:   res.ParkingTime.UTC().Format(time.RFC3339),
		Cost:          res.Cost,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if res.ReleaseTime != nil {
		ev.ReleaseTime = res.ReleaseTime.UTC().Format(time.RFC3339)
	}
	return ev
}
