package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimProtocol(t *testing.T) {
	assert.Equal(t, "collector:4318", TrimProtocol("http://collector:4318"))
	assert.Equal(t, "collector:4318", TrimProtocol("https://collector:4318"))
	assert.Equal(t, "collector:4318", TrimProtocol("collector:4318"))
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Settings{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestPrometheusHandler(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h, err := PrometheusHandler(prometheus.NewRegistry(), db)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.Contains(t, rec.Body.String(), `go_sql_max_open_connections{db_name="parking"}`)
}
