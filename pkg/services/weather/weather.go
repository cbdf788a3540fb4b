package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/common"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const (
	openMeteoBase = "https://api.open-meteo.com/v1/forecast"

	defaultTTL = 10 * time.Minute
	cacheSize  = 256
)

// WMO weather interpretation codes
var weatherCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

// Service fetches current conditions from Open-Meteo, caching per location.
// Open-Meteo needs no API key.
type Service struct {
	upstream *common.UpstreamClient
	cache    *common.TTLCache[*types.WeatherReport]

	// Overridable for tests
	baseURL string
}

// NewService creates the weather service
func NewService(upstream *common.UpstreamClient, cfg types.WeatherConfig) *Service {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	return &Service{
		upstream: upstream,
		cache:    common.NewTTLCache[*types.WeatherReport](cacheSize, ttl),
		baseURL:  openMeteoBase,
	}
}

// Current returns current conditions for the given coordinates
func (s *Service) Current(ctx context.Context, latitude, longitude float64) (*types.WeatherReport, error) {
	if latitude < -90 || latitude > 90 {
		return nil, &types.ErrInvalidParams{Reason: "latitude must be between -90 and 90"}
	}
	if longitude < -180 || longitude > 180 {
		return nil, &types.ErrInvalidParams{Reason: "longitude must be between -180 and 180"}
	}

	// Round so nearby coordinates share a cache entry (~1km)
	key := common.Keys.CacheWeather(fmt.Sprintf("%.2f,%.2f", latitude, longitude))
	return s.cache.GetOrLoad(key, func() (*types.WeatherReport, error) {
		return s.fetch(ctx, latitude, longitude)
	})
}

func (s *Service) fetch(ctx context.Context, latitude, longitude float64) (*types.WeatherReport, error) {
	query := url.Values{
		"latitude":  {fmt.Sprintf("%.4f", latitude)},
		"longitude": {fmt.Sprintf("%.4f", longitude)},
		"current":   {"temperature_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m"},
		"timezone":  {"auto"},
	}

	resp, err := s.upstream.Get(ctx, s.baseURL+"?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, &types.ErrUpstreamAction{ProviderType: "open-meteo", StatusCode: resp.StatusCode}
	}

	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
		Current   struct {
			Time                string  `json:"time"`
			Temperature         float64 `json:"temperature_2m"`
			ApparentTemperature float64 `json:"apparent_temperature"`
			Precipitation       float64 `json:"precipitation"`
			WeatherCode         int     `json:"weather_code"`
			WindSpeed           float64 `json:"wind_speed_10m"`
		} `json:"current"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse weather response: %w", err)
	}

	conditions, ok := weatherCodes[payload.Current.WeatherCode]
	if !ok {
		conditions = "Unknown"
	}

	return &types.WeatherReport{
		Location: types.WeatherLocation{
			Latitude:  payload.Latitude,
			Longitude: payload.Longitude,
			Timezone:  payload.Timezone,
		},
		Current: types.WeatherCurrent{
			Time:                payload.Current.Time,
			TemperatureC:        payload.Current.Temperature,
			ApparentTemperature: payload.Current.ApparentTemperature,
			PrecipitationMM:     payload.Current.Precipitation,
			WindSpeedKMH:        payload.Current.WindSpeed,
			WeatherCode:         payload.Current.WeatherCode,
			Conditions:          conditions,
		},
	}, nil
}
