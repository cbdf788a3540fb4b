package dashboard

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/providers"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/repository"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const (
	newsLimit  = 5
	emailLimit = 5
)

// WeatherService supplies the weather section
type WeatherService interface {
	Current(ctx context.Context, latitude, longitude float64) (*types.WeatherReport, error)
}

// NewsService supplies the headlines section
type NewsService interface {
	Headlines(ctx context.Context, limit int) ([]types.NewsItem, error)
}

// IntegrationService supplies recent emails through the user's integrations
type IntegrationService interface {
	List(ctx context.Context, userId uint) ([]types.Integration, error)
	Execute(ctx context.Context, userId uint, integrationId, action string, params map[string]any) (any, error)
}

// EmailAnnotator optionally enriches emails, e.g. with AI summaries
type EmailAnnotator interface {
	Annotate(ctx context.Context, emails []types.EmailMessage)
}

// Service assembles the "my day" dashboard. Every section loads concurrently
// and independently; a failing section becomes a warning, never an error.
type Service struct {
	weather      WeatherService
	news         NewsService
	integrations IntegrationService
	tasks        repository.TaskRepository
	annotator    EmailAnnotator
}

// NewService creates the dashboard service. annotator may be nil.
func NewService(weather WeatherService, news NewsService, integrations IntegrationService, tasks repository.TaskRepository, annotator EmailAnnotator) *Service {
	return &Service{
		weather:      weather,
		news:         news,
		integrations: integrations,
		tasks:        tasks,
		annotator:    annotator,
	}
}

// MyDayParams selects what the dashboard includes. Weather needs coordinates;
// without them the section is skipped silently.
type MyDayParams struct {
	Latitude  *float64
	Longitude *float64
}

// MyDay builds the dashboard for one user
func (s *Service) MyDay(ctx context.Context, userId uint, params MyDayParams) *types.MyDay {
	day := &types.MyDay{}

	var mu sync.Mutex
	warn := func(section string, err error) {
		log.Warn().Err(err).Str("section", section).Uint("user_id", userId).Msg("dashboard section failed")
		mu.Lock()
		day.Warnings = append(day.Warnings, section+" unavailable")
		mu.Unlock()
	}

	var wg sync.WaitGroup

	if params.Latitude != nil && params.Longitude != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := s.weather.Current(ctx, *params.Latitude, *params.Longitude)
			if err != nil {
				warn("weather", err)
				return
			}
			day.Weather = report
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		items, err := s.news.Headlines(ctx, newsLimit)
		if err != nil {
			warn("news", err)
			return
		}
		day.News = items
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		tasks, err := s.tasks.ListTasks(ctx, userId, false)
		if err != nil {
			warn("tasks", err)
			return
		}
		day.Tasks = tasks
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		emails, err := s.recentEmails(ctx, userId)
		if err != nil {
			warn("email", err)
			return
		}
		day.Emails = emails
	}()

	wg.Wait()
	return day
}

// recentEmails pulls the newest messages from the user's gmail integration.
// No connected integration means no section, not a warning.
func (s *Service) recentEmails(ctx context.Context, userId uint) ([]types.EmailMessage, error) {
	integrations, err := s.integrations.List(ctx, userId)
	if err != nil {
		return nil, err
	}

	var gmail *types.Integration
	for i := range integrations {
		if integrations[i].ProviderType == types.ProviderGmail && integrations[i].Status == types.IntegrationStatusActive {
			gmail = &integrations[i]
			break
		}
	}
	if gmail == nil {
		return nil, nil
	}

	result, err := s.integrations.Execute(ctx, userId, gmail.ExternalId, providers.ActionListEmails, map[string]any{
		"max_results": emailLimit,
	})
	if err != nil {
		return nil, err
	}

	listing, ok := result.(*types.EmailListing)
	if !ok {
		return nil, nil
	}

	if s.annotator != nil {
		s.annotator.Annotate(ctx, listing.Messages)
	}
	return listing.Messages, nil
}
