package service

import (
	"context"
	"errors"
	"math"
	"math/bits"
	"time"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/repository"
)

// occupy marks spot as OCCUPIED and bumps the lot counter in the same
// transaction.  lot must have been locked by the caller; its Occupied
// field is kept in step with the stored counter.
func occupy(ctx context.Context, tx Tx, lot *model.ParkingLot, spot *model.ParkingSpot, vehicle string) error {
	if lot.Occupied >= lot.MaxSpots {
		return ErrNoCapacity
	}
	if err := tx.OccupySpot(ctx, spot.ID, vehicle); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return ErrNoCapacity
		}
		return storeErr("occupy spot", err)
	}
	if err := tx.AdjustOccupied(ctx, lot.ID, 1); err != nil {
		if errors.Is(err, repository.ErrOccupancyOutOfRange) {
			return ErrNoCapacity
		}
		return storeErr("increment occupied", err)
	}
	spot.Status = model.SpotOccupied
	spot.VehicleNumber = vehicle
	lot.Occupied++
	return nil
}

// vacate is the inverse of occupy.
func vacate(ctx context.Context, tx Tx, lot *model.ParkingLot, spotID uint64) error {
	if lot.Occupied <= 0 {
		return storeErr("decrement occupied", repository.ErrOccupancyOutOfRange)
	}
	if err := tx.VacateSpot(ctx, spotID); err != nil {
		return storeErr("vacate spot", err)
	}
	if err := tx.AdjustOccupied(ctx, lot.ID, -1); err != nil {
		return storeErr("decrement occupied", err)
	}
	lot.Occupied--
	return nil
}

// Cost returns the charge for a stay from parkedAt to releasedAt at an
// hourly price: whole elapsed seconds times price divided by 3600,
// truncated.  A release at or before the parking time costs nothing.
// The product is taken in 128 bits and the result saturates at
// math.MaxInt64, so cost never decreases as the stay grows.
func Cost(parkedAt, releasedAt time.Time, price int64) int64 {
	if price <= 0 || !releasedAt.After(parkedAt) {
		return 0
	}
	seconds := uint64(releasedAt.Sub(parkedAt) / time.Second)
	hi, lo := bits.Mul64(seconds, uint64(price))
	if hi >= 3600 {
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, 3600)
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}
