package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// LotRepo persists parking lots.  Methods with a Tx suffix run inside a
// caller-owned transaction; the caller must commit or roll back.
type LotRepo struct {
	db *sql.DB
}

// NewLotRepo returns a new LotRepo bound to the given database.
func NewLotRepo(db *sql.DB) *LotRepo { return &LotRepo{db: db} }

const lotColumns = `id, location, address, pincode, price, max_spots, occupied, created_at, updated_at`

func scanLot(row interface{ Scan(...any) error }) (*model.ParkingLot, error) {
	var l model.ParkingLot
	err := row.Scan(&l.ID, &l.Location, &l.Address, &l.Pincode, &l.Price,
		&l.MaxSpots, &l.Occupied, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByID returns a lot or ErrNotFound.
func (r *LotRepo) GetByID(ctx context.Context, id uint64) (*model.ParkingLot, error) {
	return scanLot(r.db.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM parking_lots WHERE id = ?`, id))
}

// List returns every lot ordered by id.
func (r *LotRepo) List(ctx context.Context) ([]model.ParkingLot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+lotColumns+` FROM parking_lots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lots := []model.ParkingLot{}
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, *l)
	}
	return lots, rows.Err()
}

// CreateTx inserts lot with occupied = 0 and sets its generated ID.
func (r *LotRepo) CreateTx(ctx context.Context, tx *sql.Tx, lot *model.ParkingLot) error {
	const q = `INSERT INTO parking_lots (location, address, pincode, price, max_spots, occupied) VALUES (?, ?, ?, ?, ?, 0)`
	res, err := tx.ExecContext(ctx, q, lot.Location, lot.Address, lot.Pincode, lot.Price, lot.MaxSpots)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	lot.ID = uint64(id)
	lot.Occupied = 0
	return nil
}

// LockTx reads a lot and holds its row lock until the transaction ends.
func (r *LotRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.ParkingLot, error) {
	return scanLot(tx.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM parking_lots WHERE id = ? FOR UPDATE`, id))
}

// UpdateTx writes the editable columns of lot.  The occupied counter is
// only ever changed through AdjustOccupiedTx.
func (r *LotRepo) UpdateTx(ctx context.Context, tx *sql.Tx, lot *model.ParkingLot) error {
	const q = `UPDATE parking_lots SET location = ?, address = ?, pincode = ?, price = ?, max_spots = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, lot.Location, lot.Address, lot.Pincode, lot.Price, lot.MaxSpots, lot.ID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// AdjustOccupiedTx adds delta to the occupied counter.  The update is
// guarded so the counter cannot leave [0, max_spots]; a guard miss
// returns ErrOccupancyOutOfRange.
func (r *LotRepo) AdjustOccupiedTx(ctx context.Context, tx *sql.Tx, lotID uint64, delta int) error {
	const q = `UPDATE parking_lots SET occupied = occupied + ? WHERE id = ? AND occupied + ? BETWEEN 0 AND max_spots`
	res, err := tx.ExecContext(ctx, q, delta, lotID, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOccupancyOutOfRange
	}
	return nil
}

// DeleteTx removes the lot row.
func (r *LotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
