package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dreschagin/vessel-guard/internal/domain/service"
	"github.com/dreschagin/vessel-guard/internal/domain/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScorer(t *testing.T) *service.SafetyScorer {
	t.Helper()
	tables, err := service.LoadEmbeddedTables()
	require.NoError(t, err)
	return service.NewSafetyScorer(tables.Weights)
}

func mustPosition(t *testing.T, lat, lon float64) valueobject.Position {
	t.Helper()
	p, err := valueobject.NewPosition(lat, lon)
	require.NoError(t, err)
	return p
}

func TestClient_CurrentWeatherScoresAndCaches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, conditionsPath, r.URL.Path)
		assert.Equal(t, "43.7000", r.URL.Query().Get("lat"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temperatureC":18.5,"windSpeedKnots":40,"windDirectionDeg":270,"visibilityKm":0.5,"waveHeightM":4.2,"observedAt":"2026-07-04T09:00:00Z"}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, APIKey: "secret"}, newScorer(t))
	require.NoError(t, err)

	snapshot, err := client.CurrentWeather(context.Background(), mustPosition(t, 43.7, 7.42))
	require.NoError(t, err)
	assert.Equal(t, 40.0, snapshot.WindSpeedKnots)
	require.NotNil(t, snapshot.WaveHeightMeters)
	assert.Equal(t, 4.2, *snapshot.WaveHeightMeters)
	assert.Less(t, snapshot.SafetyScore, 50.0)
	assert.NotEmpty(t, snapshot.Warnings)
	assert.Equal(t, time.Date(2026, 7, 4, 9, 0, 0, 0, time.UTC), snapshot.ObservedAt)

	// Same grid cell is served from cache with the caller's position.
	nearby := mustPosition(t, 43.71, 7.44)
	cached, err := client.CurrentWeather(context.Background(), nearby)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, nearby, cached.Position)
	assert.Equal(t, snapshot.SafetyScore, cached.SafetyScore)
}

func TestClient_ProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		errMsg string
	}{
		{"server error", http.StatusBadGateway, "upstream down", "returned 502"},
		{"malformed json", http.StatusOK, "{", "failed to decode"},
		{"negative visibility", http.StatusOK, `{"visibilityKm":-1}`, "negative values"},
		{"bad timestamp", http.StatusOK, `{"visibilityKm":10,"observedAt":"yesterday"}`, "invalid observedAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(Config{BaseURL: server.URL}, newScorer(t))
			require.NoError(t, err)

			_, err = client.CurrentWeather(context.Background(), mustPosition(t, 10, 10))
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestClient_RespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, RequestTimeout: 5 * time.Second}, newScorer(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.CurrentWeather(ctx, mustPosition(t, 0, 0))
	assert.Error(t, err)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.ErrorContains(t, err, "base url is required")
}

func TestGridKey(t *testing.T) {
	assert.Equal(t, gridKey(mustPosition(t, 43.71, 7.44)), gridKey(mustPosition(t, 43.79, 7.41)))
	assert.NotEqual(t, gridKey(mustPosition(t, 43.71, 7.44)), gridKey(mustPosition(t, 43.81, 7.44)))
}
