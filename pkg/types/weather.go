package types

// WeatherCurrent is a point-in-time weather observation
type WeatherCurrent struct {
	Time                string  `json:"time"`
	TemperatureC        float64 `json:"temperature_c"`
	ApparentTemperature float64 `json:"apparent_temperature_c"`
	PrecipitationMM     float64 `json:"precipitation_mm"`
	WindSpeedKMH        float64 `json:"wind_speed_kmh"`
	WeatherCode         int     `json:"weather_code"`
	Conditions          string  `json:"conditions"`
}

// WeatherLocation echoes the requested coordinates back to the caller
type WeatherLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
}

// WeatherReport is the current-conditions response payload
type WeatherReport struct {
	Location WeatherLocation `json:"location"`
	Current  WeatherCurrent  `json:"current"`
}
