package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

type fakeWeather struct {
	report *types.WeatherReport
	err    error
}

func (f *fakeWeather) Current(ctx context.Context, latitude, longitude float64) (*types.WeatherReport, error) {
	return f.report, f.err
}

type fakeNews struct {
	items []types.NewsItem
	err   error
}

func (f *fakeNews) Headlines(ctx context.Context, limit int) ([]types.NewsItem, error) {
	return f.items, f.err
}

type fakeIntegrations struct {
	integrations []types.Integration
	result       any
	listErr      error
	executeErr   error
}

func (f *fakeIntegrations) List(ctx context.Context, userId uint) ([]types.Integration, error) {
	return f.integrations, f.listErr
}

func (f *fakeIntegrations) Execute(ctx context.Context, userId uint, integrationId, action string, params map[string]any) (any, error) {
	return f.result, f.executeErr
}

type fakeTasks struct {
	tasks []types.Task
	err   error
}

func (f *fakeTasks) CreateTask(ctx context.Context, userId uint, task *types.Task) (*types.Task, error) {
	return nil, nil
}
func (f *fakeTasks) GetTask(ctx context.Context, userId uint, externalId string) (*types.Task, error) {
	return nil, nil
}
func (f *fakeTasks) ListTasks(ctx context.Context, userId uint, includeDone bool) ([]types.Task, error) {
	return f.tasks, f.err
}
func (f *fakeTasks) UpdateTask(ctx context.Context, userId uint, externalId string, update *types.TaskUpdate) (*types.Task, error) {
	return nil, nil
}
func (f *fakeTasks) DeleteTask(ctx context.Context, userId uint, externalId string) error {
	return nil
}

type fakeAnnotator struct{}

func (f *fakeAnnotator) Annotate(ctx context.Context, emails []types.EmailMessage) {
	for i := range emails {
		emails[i].Summary = "summarized"
	}
}

func coords(lat, lon float64) MyDayParams {
	return MyDayParams{Latitude: &lat, Longitude: &lon}
}

func TestMyDayAllSections(t *testing.T) {
	svc := NewService(
		&fakeWeather{report: &types.WeatherReport{Current: types.WeatherCurrent{TemperatureC: 21}}},
		&fakeNews{items: []types.NewsItem{{Title: "headline", PublishedAt: time.Now()}}},
		&fakeIntegrations{
			integrations: []types.Integration{{ExternalId: "int-1", ProviderType: types.ProviderGmail, Status: types.IntegrationStatusActive}},
			result:       &types.EmailListing{Messages: []types.EmailMessage{{Id: "m1", Subject: "hi"}}},
		},
		&fakeTasks{tasks: []types.Task{{Title: "buy milk"}}},
		&fakeAnnotator{},
	)

	day := svc.MyDay(context.Background(), 1, coords(52.52, 13.405))

	require.NotNil(t, day.Weather)
	assert.Equal(t, 21.0, day.Weather.Current.TemperatureC)
	require.Len(t, day.News, 1)
	require.Len(t, day.Tasks, 1)
	require.Len(t, day.Emails, 1)
	assert.Equal(t, "summarized", day.Emails[0].Summary)
	assert.Empty(t, day.Warnings)
}

func TestMyDaySkipsWeatherWithoutCoordinates(t *testing.T) {
	svc := NewService(
		&fakeWeather{err: errors.New("must not be called")},
		&fakeNews{},
		&fakeIntegrations{},
		&fakeTasks{},
		nil,
	)

	day := svc.MyDay(context.Background(), 1, MyDayParams{})
	assert.Nil(t, day.Weather)
	assert.Empty(t, day.Warnings)
}

func TestMyDayDegradedSections(t *testing.T) {
	svc := NewService(
		&fakeWeather{err: errors.New("open-meteo down")},
		&fakeNews{err: errors.New("feeds down")},
		&fakeIntegrations{
			integrations: []types.Integration{{ExternalId: "int-1", ProviderType: types.ProviderGmail, Status: types.IntegrationStatusActive}},
			executeErr:   types.ErrIntegrationExpired,
		},
		&fakeTasks{tasks: []types.Task{{Title: "still works"}}},
		nil,
	)

	day := svc.MyDay(context.Background(), 1, coords(0, 0))

	assert.Nil(t, day.Weather)
	assert.Nil(t, day.News)
	assert.Nil(t, day.Emails)
	require.Len(t, day.Tasks, 1)
	assert.ElementsMatch(t, []string{"weather unavailable", "news unavailable", "email unavailable"}, day.Warnings)
}

func TestMyDayNoGmailIntegration(t *testing.T) {
	svc := NewService(
		&fakeWeather{},
		&fakeNews{},
		&fakeIntegrations{integrations: []types.Integration{
			{ExternalId: "int-1", ProviderType: types.ProviderGmail, Status: types.IntegrationStatusExpired},
		}},
		&fakeTasks{},
		nil,
	)

	day := svc.MyDay(context.Background(), 1, MyDayParams{})
	assert.Nil(t, day.Emails)
	assert.Empty(t, day.Warnings)
}
