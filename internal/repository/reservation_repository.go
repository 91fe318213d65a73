package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// ReservationRepo persists reservations.  All timestamps are stored in
// UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, spot_id, lot_id, email, vehicle_number, parking_time, release_time, cost, paid`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var (
		res     model.Reservation
		release sql.NullTime
	)
	err := row.Scan(&res.ID, &res.SpotID, &res.LotID, &res.Email, &res.VehicleNumber,
		&res.ParkingTime, &release, &res.Cost, &res.Paid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res.ParkingTime = res.ParkingTime.UTC()
	if release.Valid {
		t := release.Time.UTC()
		res.ReleaseTime = &t
	}
	return &res, nil
}

// GetByID returns a reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
}

// ActiveBySpot returns the reservation currently holding a spot, or
// ErrNotFound when the spot is free.
func (r *ReservationRepo) ActiveBySpot(ctx context.Context, spotID uint64) (*model.Reservation, error) {
	return scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE spot_id = ? AND release_time IS NULL LIMIT 1`, spotID))
}

// List returns reservations matching f, newest first.
func (r *ReservationRepo) List(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	var args []interface{}
	if f.Email != "" {
		q += ` AND email = ?`
		args = append(args, f.Email)
	}
	if f.LotID != 0 {
		q += ` AND lot_id = ?`
		args = append(args, f.LotID)
	}
	switch f.State {
	case model.ReservationsActive:
		q += ` AND release_time IS NULL`
	case model.ReservationsHistory:
		q += ` AND release_time IS NOT NULL`
	}
	q += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *res)
	}
	return list, rows.Err()
}

// CreateTx inserts an active reservation and sets its generated ID.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (spot_id, lot_id, email, vehicle_number, parking_time, cost, paid)
	           VALUES (?, ?, ?, ?, ?, 0, 0)`
	result, err := tx.ExecContext(ctx, q, res.SpotID, res.LotID, res.Email, res.VehicleNumber, res.ParkingTime.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// LockTx reads a reservation and holds its row lock.
func (r *ReservationRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	return scanReservation(tx.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id))
}

// CloseTx stores release_time, cost and paid on an active reservation.
// It returns ErrConflict when the reservation was already closed.
func (r *ReservationRepo) CloseTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	if res.ReleaseTime == nil {
		return errors.New("close reservation without release time")
	}
	const q = `UPDATE reservations SET release_time = ?, cost = ?, paid = ? WHERE id = ? AND release_time IS NULL`
	result, err := tx.ExecContext(ctx, q, res.ReleaseTime.UTC(), res.Cost, res.Paid, res.ID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// DeleteByLotTx removes every reservation that references the lot or
// any of its spots.
func (r *ReservationRepo) DeleteByLotTx(ctx context.Context, tx *sql.Tx, lotID uint64) (int64, error) {
	const q = `DELETE FROM reservations
	           WHERE lot_id = ? OR spot_id IN (SELECT id FROM parking_spots WHERE lot_id = ?)`
	res, err := tx.ExecContext(ctx, q, lotID, lotID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
