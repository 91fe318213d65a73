// Package store binds the MySQL repositories to the persistence
// interfaces consumed by the parking service.
package store

import (
	"context"
	"database/sql"

	"github.com/iliyamo/parking-reservation/internal/model"
	"github.com/iliyamo/parking-reservation/internal/repository"
	"github.com/iliyamo/parking-reservation/internal/service"
)

// MySQL implements service.Store.
type MySQL struct {
	db           *sql.DB
	lots         *repository.LotRepo
	spots        *repository.SpotRepo
	reservations *repository.ReservationRepo
}

var _ service.Store = (*MySQL)(nil)

// New returns a store over db.
func New(db *sql.DB) *MySQL {
	return &MySQL{
		db:           db,
		lots:         repository.NewLotRepo(db),
		spots:        repository.NewSpotRepo(db),
		reservations: repository.NewReservationRepo(db),
	}
}

// BeginTx opens a READ COMMITTED transaction.  Row locks taken with
// FOR UPDATE serialise the writers; the lower isolation level avoids
// gap locks on the spot and reservation indexes.
func (s *MySQL) BeginTx(ctx context.Context) (service.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	return &mysqlTx{tx: tx, s: s}, nil
}

func (s *MySQL) GetLot(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	return s.lots.GetByID(ctx, id)
}

func (s *MySQL) ListLots(ctx context.Context) ([]model.ParkingLot, error) {
	return s.lots.List(ctx)
}

func (s *MySQL) GetSpot(ctx context.Context, id uint64) (*model.ParkingSpot, error) {
	return s.spots.GetByID(ctx, id)
}

func (s *MySQL) SpotsByLot(ctx context.Context, f model.SpotFilter) ([]model.ParkingSpot, error) {
	return s.spots.ListByLot(ctx, f)
}

func (s *MySQL) ActiveReservationBySpot(ctx context.Context, spotID uint64) (*model.Reservation, error) {
	return s.reservations.ActiveBySpot(ctx, spotID)
}

func (s *MySQL) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *MySQL) ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	return s.reservations.List(ctx, f)
}

type mysqlTx struct {
	tx *sql.Tx
	s  *MySQL
}

func (t *mysqlTx) Commit() error   { return t.tx.Commit() }
func (t *mysqlTx) Rollback() error { return t.tx.Rollback() }

func (t *mysqlTx) InsertLot(ctx context.Context, lot *model.ParkingLot) error {
	return t.s.lots.CreateTx(ctx, t.tx, lot)
}

func (t *mysqlTx) LockLot(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	return t.s.lots.LockTx(ctx, t.tx, id)
}

func (t *mysqlTx) UpdateLot(ctx context.Context, lot *model.ParkingLot) error {
	return t.s.lots.UpdateTx(ctx, t.tx, lot)
}

func (t *mysqlTx) DeleteLot(ctx context.Context, id uint64) error {
	return t.s.lots.DeleteTx(ctx, t.tx, id)
}

func (t *mysqlTx) AdjustOccupied(ctx context.Context, lotID uint64, delta int) error {
	return t.s.lots.AdjustOccupiedTx(ctx, t.tx, lotID, delta)
}

func (t *mysqlTx) CountSpots(ctx context.Context, lotID uint64) (int, error) {
	return t.s.spots.CountTx(ctx, t.tx, lotID)
}

func (t *mysqlTx) CountSpotsByStatus(ctx context.Context, lotID uint64, status string) (int, error) {
	return t.s.spots.CountByStatusTx(ctx, t.tx, lotID, status)
}

func (t *mysqlTx) InsertSpots(ctx context.Context, lotID uint64, n int) error {
	return t.s.spots.CreateBulkTx(ctx, t.tx, lotID, n)
}

func (t *mysqlTx) FirstAvailableSpot(ctx context.Context, lotID uint64) (*model.ParkingSpot, error) {
	return t.s.spots.FirstAvailableTx(ctx, t.tx, lotID)
}

func (t *mysqlTx) RemovableSpots(ctx context.Context, lotID uint64, limit int) ([]uint64, error) {
	return t.s.spots.RemovableTx(ctx, t.tx, lotID, limit)
}

func (t *mysqlTx) OccupySpot(ctx context.Context, spotID uint64, vehicle string) error {
	return t.s.spots.OccupyTx(ctx, t.tx, spotID, vehicle)
}

func (t *mysqlTx) VacateSpot(ctx context.Context, spotID uint64) error {
	return t.s.spots.VacateTx(ctx, t.tx, spotID)
}

func (t *mysqlTx) DeleteSpots(ctx context.Context, ids []uint64) error {
	return t.s.spots.DeleteTx(ctx, t.tx, ids)
}

func (t *mysqlTx) DeleteSpotsByLot(ctx context.Context, lotID uint64) (int64, error) {
	return t.s.spots.DeleteByLotTx(ctx, t.tx, lotID)
}

func (t *mysqlTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	return t.s.reservations.CreateTx(ctx, t.tx, r)
}

func (t *mysqlTx) LockReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return t.s.reservations.LockTx(ctx, t.tx, id)
}

func (t *mysqlTx) CloseReservation(ctx context.Context, r *model.Reservation) error {
	return t.s.reservations.CloseTx(ctx, t.tx, r)
}

func (t *mysqlTx) DeleteReservationsByLot(ctx context.Context, lotID uint64) (int64, error) {
	return t.s.reservations.DeleteByLotTx(ctx, t.tx, lotID)
}
