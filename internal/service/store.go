package service

import (
	"context"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// Store is the persistence collaborator used by ParkingService.  Reads
// run outside of a transaction; every mutation goes through a Tx.
// Lookups that find no row return repository.ErrNotFound.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)

	GetLot(ctx context.Context, id uint64) (*model.ParkingLot, error)
	ListLots(ctx context.Context) ([]model.ParkingLot, error)
	GetSpot(ctx context.Context, id uint64) (*model.ParkingSpot, error)
	SpotsByLot(ctx context.Context, f model.SpotFilter) ([]model.ParkingSpot, error)
	ActiveReservationBySpot(ctx context.Context, spotID uint64) (*model.Reservation, error)
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error)
}

// Tx is one unit of work against the store.  Methods named Lock* take
// a row lock that is held until Commit or Rollback.  Locks are always
// taken in the order lot, spot, reservation.
type Tx interface {
	Commit() error
	Rollback() error

	InsertLot(ctx context.Context, lot *model.ParkingLot) error
	LockLot(ctx context.Context, id uint64) (*model.ParkingLot, error)
	UpdateLot(ctx context.Context, lot *model.ParkingLot) error
	DeleteLot(ctx context.Context, id uint64) error
	// AdjustOccupied adds delta to the lot's occupied counter.  It fails
	// with repository.ErrOccupancyOutOfRange instead of leaving the
	// counter outside [0, max_spots].
	AdjustOccupied(ctx context.Context, lotID uint64, delta int) error

	CountSpots(ctx context.Context, lotID uint64) (int, error)
	CountSpotsByStatus(ctx context.Context, lotID uint64, status string) (int, error)
	InsertSpots(ctx context.Context, lotID uint64, n int) error
	// FirstAvailableSpot locks and returns the AVAILABLE spot with the
	// lowest id in the lot.
	FirstAvailableSpot(ctx context.Context, lotID uint64) (*model.ParkingSpot, error)
	// RemovableSpots locks and returns up to limit spot ids, lowest
	// first, that are AVAILABLE and referenced by no reservation.
	RemovableSpots(ctx context.Context, lotID uint64, limit int) ([]uint64, error)
	// OccupySpot and VacateSpot are compare-and-swap transitions; they
	// return repository.ErrStatusConflict when the spot was not in the
	// expected state.
	OccupySpot(ctx context.Context, spotID uint64, vehicle string) error
	VacateSpot(ctx context.Context, spotID uint64) error
	DeleteSpots(ctx context.Context, ids []uint64) error
	DeleteSpotsByLot(ctx context.Context, lotID uint64) (int64, error)

	InsertReservation(ctx context.Context, r *model.Reservation) error
	LockReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	CloseReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservationsByLot(ctx context.Context, lotID uint64) (int64, error)
}
