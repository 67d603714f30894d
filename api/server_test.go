package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demand-forecast-engine/dataset"
	"demand-forecast-engine/storage"
)

type fakeTableReader struct {
	tables map[string][]byte
	err    error
}

func (f *fakeTableReader) Get(ctx context.Context, tableID string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.tables[tableID]
	if !ok {
		return nil, storage.ErrTableNotFound
	}
	return data, nil
}

func newTestServer(t *testing.T, rows []dataset.ForecastRow) *Server {
	t.Helper()
	reader := &fakeTableReader{tables: map[string][]byte{}}
	if rows != nil {
		data, err := dataset.EncodeForecast(rows)
		require.NoError(t, err)
		reader.tables[storage.ForecastTable] = data
	}
	return NewServer(reader, 100, 100)
}

func forecastRows() []dataset.ForecastRow {
	d := time.Date(2012, 11, 2, 0, 0, 0, 0, time.UTC)
	return []dataset.ForecastRow{
		{Store: 1, Date: d, Predicted: 1500.5},
		{Store: 1, Date: d.AddDate(0, 0, 7), Predicted: 1600.25},
		{Store: 2, Date: d, Predicted: 900},
	}
}

func TestGetForecast_KnownStore(t *testing.T) {
	server := newTestServer(t, forecastRows())

	req := httptest.NewRequest("GET", "/forecast/1", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rows []dataset.ForecastRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	// Persisted order survives the filter
	assert.Equal(t, 1500.5, rows[0].Predicted)
	assert.Equal(t, 1600.25, rows[1].Predicted)
	for _, row := range rows {
		assert.Equal(t, 1, row.Store)
	}
}

func TestGetForecast_UnknownStoreEmptyArray(t *testing.T) {
	server := newTestServer(t, forecastRows())

	req := httptest.NewRequest("GET", "/forecast/99", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetForecast_NoTableYet(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/forecast/1", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGetForecast_BadStoreID(t *testing.T) {
	server := newTestServer(t, forecastRows())

	req := httptest.NewRequest("GET", "/forecast/abc", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetForecast_StoreFailure(t *testing.T) {
	server := NewServer(&fakeTableReader{err: context.DeadlineExceeded}, 100, 100)

	req := httptest.NewRequest("GET", "/forecast/1", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetForecast_RateLimited(t *testing.T) {
	server := newTestServer(t, forecastRows())
	server.limiter.SetLimit(0)
	server.limiter.SetBurst(0)

	req := httptest.NewRequest("GET", "/forecast/1", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, forecastRows())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, true, health["forecast_ready"])
}

func TestHealthCheck_NoForecastTable(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, false, health["forecast_ready"])
}
