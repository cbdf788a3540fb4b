package types

// MyDay aggregates the morning dashboard. Sections that fail to load are
// omitted rather than failing the whole payload.
type MyDay struct {
	Weather  *WeatherReport `json:"weather,omitempty"`
	News     []NewsItem     `json:"news,omitempty"`
	Tasks    []Task         `json:"tasks,omitempty"`
	Emails   []EmailMessage `json:"emails,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}
