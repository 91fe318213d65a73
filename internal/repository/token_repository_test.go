package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRepoValidateRefresh(t *testing.T) {
	db, mock := newMock(t)
	const q = "SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1"
	cols := []string{"user_id", "expires_at", "revoked_at"}
	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs("good").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, future, nil))
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, past, nil))
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, future, past))
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewTokenRepo(db)
	id, err := repo.ValidateRefresh(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	for _, h := range []string{"expired", "revoked", "missing"} {
		_, err := repo.ValidateRefresh(context.Background(), h)
		assert.ErrorIs(t, err, ErrNotFound, h)
	}
}

func TestTokenRepoRotate(t *testing.T) {
	db, mock := newMock(t)
	exp := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND user_id=? AND revoked_at IS NULL")).
		WithArgs("old", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens (user_id, token_hash, expires_at)")).
		WithArgs(uint64(3), "new", exp).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	require.NoError(t, NewTokenRepo(db).Rotate(context.Background(), 3, "old", "new", exp))
}

func TestTokenRepoRotateAlreadyUsed(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=NOW()")).
		WithArgs("old", uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewTokenRepo(db).Rotate(context.Background(), 3, "old", "new", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}
