package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/parking-reservation/internal/model"
)

// SpotRepo persists parking spots.
type SpotRepo struct {
	db *sql.DB
}

// NewSpotRepo returns a new SpotRepo bound to the given database.
func NewSpotRepo(db *sql.DB) *SpotRepo { return &SpotRepo{db: db} }

const spotColumns = `id, lot_id, status, vehicle_number, created_at, updated_at`

func scanSpot(row interface{ Scan(...any) error }) (*model.ParkingSpot, error) {
	var (
		s       model.ParkingSpot
		vehicle sql.NullString
	)
	err := row.Scan(&s.ID, &s.LotID, &s.Status, &vehicle, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.VehicleNumber = vehicle.String
	return &s, nil
}

// GetByID returns a spot or ErrNotFound.
func (r *SpotRepo) GetByID(ctx context.Context, id uint64) (*model.ParkingSpot, error) {
	return scanSpot(r.db.QueryRowContext(ctx, `SELECT `+spotColumns+` FROM parking_spots WHERE id = ?`, id))
}

// ListByLot returns the spots of f.LotID ordered by id, optionally
// restricted to f.Status.
func (r *SpotRepo) ListByLot(ctx context.Context, f model.SpotFilter) ([]model.ParkingSpot, error) {
	q := `SELECT ` + spotColumns + ` FROM parking_spots WHERE lot_id = ?`
	args := []interface{}{f.LotID}
	if f.Status != "" {
		q += ` AND status = ?`
		args = append(args, f.Status)
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	spots := []model.ParkingSpot{}
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, err
		}
		spots = append(spots, *s)
	}
	return spots, rows.Err()
}

// CountTx returns the number of spots in a lot.
func (r *SpotRepo) CountTx(ctx context.Context, tx *sql.Tx, lotID uint64) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM parking_spots WHERE lot_id = ?`, lotID).Scan(&n)
	return n, err
}

// CountByStatusTx returns the number of spots in a lot with status.
func (r *SpotRepo) CountByStatusTx(ctx context.Context, tx *sql.Tx, lotID uint64, status string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parking_spots WHERE lot_id = ? AND status = ?`, lotID, status).Scan(&n)
	return n, err
}

// CreateBulkTx inserts n AVAILABLE spots for a lot in one statement.
// n <= 0 is a no-op.
func (r *SpotRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, lotID uint64, n int) error {
	if n <= 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO parking_spots (lot_id, status) VALUES `)
	args := make([]interface{}, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?)")
		args = append(args, lotID, model.SpotAvailable)
	}
	_, err := tx.ExecContext(ctx, b.String(), args...)
	return err
}

// FirstAvailableTx locks and returns the lowest-id AVAILABLE spot of a
// lot, or ErrNotFound when the lot is full.
func (r *SpotRepo) FirstAvailableTx(ctx context.Context, tx *sql.Tx, lotID uint64) (*model.ParkingSpot, error) {
	const q = `SELECT ` + spotColumns + ` FROM parking_spots
	           WHERE lot_id = ? AND status = ?
	           ORDER BY id LIMIT 1 FOR UPDATE`
	return scanSpot(tx.QueryRowContext(ctx, q, lotID, model.SpotAvailable))
}

// RemovableTx locks and returns up to limit ids of AVAILABLE spots that
// no reservation has ever referenced, lowest id first.
func (r *SpotRepo) RemovableTx(ctx context.Context, tx *sql.Tx, lotID uint64, limit int) ([]uint64, error) {
	if limit <= 0 {
		return nil, nil
	}
	const q = `SELECT s.id FROM parking_spots s
	           WHERE s.lot_id = ? AND s.status = ?
	             AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.spot_id = s.id)
	           ORDER BY s.id LIMIT ? FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, lotID, model.SpotAvailable, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// OccupyTx flips an AVAILABLE spot to OCCUPIED.  It returns
// ErrStatusConflict when the spot was not AVAILABLE.
func (r *SpotRepo) OccupyTx(ctx context.Context, tx *sql.Tx, spotID uint64, vehicle string) error {
	const q = `UPDATE parking_spots SET status = ?, vehicle_number = ? WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.SpotOccupied, vehicle, spotID, model.SpotAvailable)
	if err != nil {
		return err
	}
	return expectTransition(res)
}

// VacateTx flips an OCCUPIED spot back to AVAILABLE.
func (r *SpotRepo) VacateTx(ctx context.Context, tx *sql.Tx, spotID uint64) error {
	const q = `UPDATE parking_spots SET status = ?, vehicle_number = NULL WHERE id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, model.SpotAvailable, spotID, model.SpotOccupied)
	if err != nil {
		return err
	}
	return expectTransition(res)
}

// DeleteTx removes the given spots.
func (r *SpotRepo) DeleteTx(ctx context.Context, tx *sql.Tx, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	q := `DELETE FROM parking_spots WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// DeleteByLotTx removes every spot of a lot and reports how many went.
func (r *SpotRepo) DeleteByLotTx(ctx context.Context, tx *sql.Tx, lotID uint64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM parking_spots WHERE lot_id = ?`, lotID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func expectTransition(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return ErrStatusConflict
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
