package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	rec := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	e := echo.New()
	e.GET("/readyz", Ready(map[string]Check{
		"mysql": PingDB(db),
		"redis": PingRedis(nil),
	}))
	rec := do(e, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"mysql": "up", "redis": "up"}, decode(t, rec)["checks"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadyReportsFailures(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	e := echo.New()
	e.GET("/readyz", Ready(map[string]Check{
		"mysql": func(context.Context) error { return errors.New("refused") },
		"redis": PingRedis(rdb),
	}))
	rec := do(e, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, map[string]any{"mysql": "down", "redis": "down"}, decode(t, rec)["checks"])
}
