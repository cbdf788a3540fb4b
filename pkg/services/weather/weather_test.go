package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/common"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc := NewService(common.NewUpstreamClient(types.UpstreamHTTPConfig{}), types.WeatherConfig{TTL: time.Minute})
	svc.baseURL = server.URL
	return svc, server
}

func TestCurrent(t *testing.T) {
	var calls int32
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		q := r.URL.Query()
		assert.Equal(t, "52.5200", q.Get("latitude"))
		assert.Equal(t, "13.4050", q.Get("longitude"))
		assert.Equal(t, "auto", q.Get("timezone"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"latitude": 52.52, "longitude": 13.405, "timezone": "Europe/Berlin",
			"current": {
				"time": "2026-08-30T08:00",
				"temperature_2m": 18.4,
				"apparent_temperature": 17.1,
				"precipitation": 0.2,
				"weather_code": 61,
				"wind_speed_10m": 12.3
			}
		}`)
	})

	report, err := svc.Current(context.Background(), 52.52, 13.405)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", report.Location.Timezone)
	assert.Equal(t, 18.4, report.Current.TemperatureC)
	assert.Equal(t, 61, report.Current.WeatherCode)
	assert.Equal(t, "Slight rain", report.Current.Conditions)

	// Nearby coordinates hit the cache
	_, err = svc.Current(context.Background(), 52.521, 13.4049)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCurrentUnknownWeatherCode(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"latitude": 0, "longitude": 0, "timezone": "UTC", "current": {"weather_code": 42}}`)
	})

	report, err := svc.Current(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", report.Current.Conditions)
}

func TestCurrentValidatesCoordinates(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream must not be called for invalid coordinates")
	})

	var invalid *types.ErrInvalidParams

	_, err := svc.Current(context.Background(), 91, 0)
	assert.ErrorAs(t, err, &invalid)

	_, err = svc.Current(context.Background(), 0, -181)
	assert.ErrorAs(t, err, &invalid)
}

func TestCurrentUpstreamFailure(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := svc.Current(context.Background(), 52.52, 13.405)
	var upstream *types.ErrUpstreamAction
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
}
