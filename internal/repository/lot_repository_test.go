package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-reservation/internal/model"
)

var lotCols = []string{"id", "location", "address", "pincode", "price", "max_spots", "occupied", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func beginTx(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock) *sql.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	return tx
}

func TestLotRepoGetByID(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_lots WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(lotCols).AddRow(7, "Downtown", "12 Main Street", 560001, 10, 4, 1, now, now))

	lot, err := NewLotRepo(db).GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), lot.ID)
	assert.Equal(t, uint32(560001), lot.Pincode)
	assert.Equal(t, 4, lot.MaxSpots)
	assert.Equal(t, 1, lot.Occupied)
	assert.Equal(t, 3, lot.Available())
}

func TestLotRepoGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_lots WHERE id = ?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(lotCols))

	_, err := NewLotRepo(db).GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLotRepoList(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_lots ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(lotCols).
			AddRow(1, "A", "addr a", 100001, 5, 2, 0, now, now).
			AddRow(2, "B", "addr b", 100002, 8, 3, 3, now, now))

	lots, err := NewLotRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "B", lots[1].Location)
	assert.Equal(t, 0, lots[1].Available())
}

func TestLotRepoCreateTx(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO parking_lots (location, address, pincode, price, max_spots, occupied)")).
		WithArgs("Downtown", "12 Main Street", uint32(560001), int64(10), 2).
		WillReturnResult(sqlmock.NewResult(11, 1))

	lot := &model.ParkingLot{Location: "Downtown", Address: "12 Main Street", Pincode: 560001, Price: 10, MaxSpots: 2, Occupied: 5}
	require.NoError(t, NewLotRepo(db).CreateTx(context.Background(), tx, lot))
	assert.Equal(t, uint64(11), lot.ID)
	assert.Equal(t, 0, lot.Occupied)
}

func TestLotRepoLockTxUsesForUpdate(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("FROM parking_lots WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(lotCols).AddRow(3, "A", "addr", 100001, 5, 2, 0, now, now))

	lot, err := NewLotRepo(db).LockTx(context.Background(), tx, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), lot.ID)
}

func TestLotRepoAdjustOccupiedTx(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)
	const q = "UPDATE parking_lots SET occupied = occupied + ? WHERE id = ? AND occupied + ? BETWEEN 0 AND max_spots"
	mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs(1, uint64(3), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(q)).WithArgs(-1, uint64(3), -1).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewLotRepo(db)
	require.NoError(t, repo.AdjustOccupiedTx(context.Background(), tx, 3, 1))
	assert.ErrorIs(t, repo.AdjustOccupiedTx(context.Background(), tx, 3, -1), ErrOccupancyOutOfRange)
}

func TestLotRepoUpdateTx(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)
	const q = "UPDATE parking_lots SET location = ?, address = ?, pincode = ?, price = ?, max_spots = ? WHERE id = ?"
	mock.ExpectExec(regexp.QuoteMeta(q)).
		WithArgs("Uptown", "1 Hill Road", uint32(400001), int64(25), 6, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(q)).
		WithArgs("Uptown", "1 Hill Road", uint32(400001), int64(25), 6, uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewLotRepo(db)
	lot := &model.ParkingLot{ID: 3, Location: "Uptown", Address: "1 Hill Road", Pincode: 400001, Price: 25, MaxSpots: 6}
	require.NoError(t, repo.UpdateTx(context.Background(), tx, lot))
	lot.ID = 4
	assert.ErrorIs(t, repo.UpdateTx(context.Background(), tx, lot), ErrNotFound)
}

func TestLotRepoDeleteTx(t *testing.T) {
	db, mock := newMock(t)
	tx := beginTx(t, db, mock)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM parking_lots WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewLotRepo(db).DeleteTx(context.Background(), tx, 3))
}
