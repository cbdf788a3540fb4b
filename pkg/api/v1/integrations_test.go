package apiv1

import (
	"context"
	"database/sql"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/integrations"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/providers"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/secrets"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

type memIntegrationRepo struct {
	mu           sync.Mutex
	nextId       uint
	integrations map[uint]*types.Integration
	tokens       map[uint]*types.IntegrationToken
	states       map[string]*types.OAuthState
}

func newMemIntegrationRepo() *memIntegrationRepo {
	return &memIntegrationRepo{
		integrations: map[uint]*types.Integration{},
		tokens:       map[uint]*types.IntegrationToken{},
		states:       map[string]*types.OAuthState{},
	}
}

func (m *memIntegrationRepo) UpsertIntegration(ctx context.Context, userId uint, provider types.ProviderType, token *types.IntegrationToken) (*types.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, integ := range m.integrations {
		if integ.UserId == userId && integ.ProviderType == provider {
			integ.Status = types.IntegrationStatusActive
			m.tokens[integ.Id] = token
			copied := *integ
			return &copied, nil
		}
	}

	m.nextId++
	integ := &types.Integration{
		Id:           m.nextId,
		ExternalId:   uuid.NewString(),
		UserId:       userId,
		ProviderType: provider,
		Status:       types.IntegrationStatusActive,
	}
	m.integrations[integ.Id] = integ
	m.tokens[integ.Id] = token
	copied := *integ
	return &copied, nil
}

func (m *memIntegrationRepo) GetIntegration(ctx context.Context, userId uint, externalId string) (*types.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, integ := range m.integrations {
		if integ.UserId == userId && integ.ExternalId == externalId {
			copied := *integ
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memIntegrationRepo) ListIntegrations(ctx context.Context, userId uint) ([]types.Integration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.Integration
	for _, integ := range m.integrations {
		if integ.UserId == userId {
			out = append(out, *integ)
		}
	}
	return out, nil
}

func (m *memIntegrationRepo) UpdateIntegrationStatus(ctx context.Context, integrationId uint, status types.IntegrationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	integ, ok := m.integrations[integrationId]
	if !ok {
		return sql.ErrNoRows
	}
	integ.Status = status
	return nil
}

func (m *memIntegrationRepo) UpdateIntegrationConfig(ctx context.Context, integrationId uint, config []byte) error {
	return nil
}

func (m *memIntegrationRepo) DisconnectIntegration(ctx context.Context, userId uint, externalId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, integ := range m.integrations {
		if integ.UserId == userId && integ.ExternalId == externalId {
			integ.Status = types.IntegrationStatusDisconnected
			delete(m.tokens, integ.Id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memIntegrationRepo) GetIntegrationToken(ctx context.Context, integrationId uint) (*types.IntegrationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[integrationId]
	if !ok {
		return nil, nil
	}
	copied := *token
	return &copied, nil
}

func (m *memIntegrationRepo) WithTokenLock(ctx context.Context, integrationId uint, fn func(current *types.IntegrationToken) (*types.IntegrationToken, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, ok := m.tokens[integrationId]
	if !ok {
		return sql.ErrNoRows
	}
	copied := *token
	replacement, err := fn(&copied)
	if err != nil {
		return err
	}
	if replacement != nil {
		m.tokens[integrationId] = replacement
	}
	return nil
}

func (m *memIntegrationRepo) CreateState(ctx context.Context, state *types.OAuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *state
	m.states[state.State] = &copied
	return nil
}

func (m *memIntegrationRepo) ConsumeState(ctx context.Context, state string) (*types.OAuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.states[state]
	if !ok || record.Expired(time.Now()) {
		return nil, types.ErrStateNotFoundOrExpired
	}
	delete(m.states, state)
	return record, nil
}

func (m *memIntegrationRepo) PurgeExpiredStates(ctx context.Context) (int64, error) {
	return 0, nil
}

type scriptedProvider struct {
	executeResult any
	executeErr    error
}

func (p *scriptedProvider) Type() types.ProviderType { return "scripted" }
func (p *scriptedProvider) Descriptor() types.ProviderDescriptor {
	return types.ProviderDescriptor{ProviderType: "scripted", Name: "Scripted", Description: "test provider"}
}
func (p *scriptedProvider) IsConfigured() bool { return true }
func (p *scriptedProvider) AuthorizeURL(state, callbackURL string) (string, error) {
	return "https://provider.example/auth?state=" + url.QueryEscape(state), nil
}
func (p *scriptedProvider) Exchange(ctx context.Context, code, callbackURL string) (*types.TokenBundle, error) {
	if code != "good-code" {
		return nil, types.ErrTokenExchange
	}
	expiry := time.Now().Add(time.Hour)
	return &types.TokenBundle{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: &expiry}, nil
}
func (p *scriptedProvider) NeedsRefresh(tok *types.TokenBundle, now time.Time) bool { return false }
func (p *scriptedProvider) Refresh(ctx context.Context, refreshToken string) (*types.TokenBundle, error) {
	return nil, types.NewRefreshError(false, nil)
}
func (p *scriptedProvider) Execute(ctx context.Context, tok *types.TokenBundle, action string, params map[string]any) (any, error) {
	return p.executeResult, p.executeErr
}

func newIntegrationsServer(t *testing.T, provider providers.Provider) (*echo.Echo, *integrations.Manager) {
	t.Helper()

	cipher, err := secrets.NewTokenCipher("test-secret")
	require.NoError(t, err)

	registry := providers.NewRegistry()
	registry.Register(provider)

	manager := integrations.NewManager(registry, newMemIntegrationRepo(), cipher, nil, types.IntegrationOAuth{
		CallbackURL: "https://api.example/api/v1/integrations/callback",
	})

	e := echo.New()
	g := e.Group("/api/v1/integrations", testAuth(1))
	NewIntegrationsGroup(g, manager, &stubAnnotator{})
	return e, manager
}

type stubAnnotator struct{}

func (a *stubAnnotator) Annotate(ctx context.Context, emails []types.EmailMessage) {
	for i := range emails {
		emails[i].Summary = "summarized"
	}
}

func TestIntegrationsConnectFlow(t *testing.T) {
	provider := &scriptedProvider{executeResult: map[string]any{"ok": true}}
	e, _ := newIntegrationsServer(t, provider)

	rec := doJSON(e, http.MethodGet, "/api/v1/integrations/available", "")
	require.Equal(t, http.StatusOK, rec.Code)
	available := decodeData[[]types.ProviderDescriptor](t, rec)
	require.Len(t, available, 1)
	assert.Equal(t, types.ProviderType("scripted"), available[0].ProviderType)

	rec = doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"scripted"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	connect := decodeData[integrations.ConnectResult](t, rec)
	require.NotEmpty(t, connect.State)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&code=good-code", "")
	require.Equal(t, http.StatusOK, rec.Code)
	integ := decodeData[types.Integration](t, rec)
	assert.Equal(t, types.IntegrationStatusActive, integ.Status)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations", "")
	list := decodeData[[]types.Integration](t, rec)
	require.Len(t, list, 1)

	rec = doJSON(e, http.MethodPost, "/api/v1/integrations/"+integ.ExternalId+"/execute", `{"action":"list_emails"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/v1/integrations/"+integ.ExternalId, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/integrations/"+integ.ExternalId+"/execute", `{"action":"list_emails"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntegrationsCallbackRedirect(t *testing.T) {
	e, _ := newIntegrationsServer(t, &scriptedProvider{})

	rec := doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"scripted","redirect_uri":"https://app.example/settings"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	connect := decodeData[integrations.ConnectResult](t, rec)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&code=good-code", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example/settings?integration=success", rec.Header().Get(echo.HeaderLocation))
}

func TestIntegrationsCallbackRedirectKeepsExistingQuery(t *testing.T) {
	e, _ := newIntegrationsServer(t, &scriptedProvider{})

	rec := doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"scripted","redirect_uri":"https://app.example/settings?tab=accounts"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	connect := decodeData[integrations.ConnectResult](t, rec)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&code=good-code", "")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "accounts", loc.Query().Get("tab"))
	assert.Equal(t, "success", loc.Query().Get("integration"))
}

func TestIntegrationsCallbackErrorRedirectsToOrigin(t *testing.T) {
	e, _ := newIntegrationsServer(t, &scriptedProvider{})

	// A failed exchange sends the browser back with an error indicator
	rec := doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"scripted","redirect_uri":"https://app.example/settings"}`)
	connect := decodeData[integrations.ConnectResult](t, rec)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&code=bad-code", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example/settings?error=token_exchange_failed", rec.Header().Get(echo.HeaderLocation))

	// A provider denial does too, and still consumes the state
	rec = doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"scripted","redirect_uri":"https://app.example/settings"}`)
	connect = decodeData[integrations.ConnectResult](t, rec)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&error=access_denied", "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example/settings?error=authorization_denied", rec.Header().Get(echo.HeaderLocation))

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&code=good-code", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegrationsCallbackErrors(t *testing.T) {
	e, _ := newIntegrationsServer(t, &scriptedProvider{})

	// Missing state
	rec := doJSON(e, http.MethodGet, "/api/v1/integrations/callback?code=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown state
	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state=bogus&code=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Provider denied
	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state=s&error=access_denied", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad code becomes a sanitized upstream failure
	recConnect := doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"scripted"}`)
	connect := decodeData[integrations.ConnectResult](t, recConnect)
	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&code=bad-code", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestIntegrationsConnectValidation(t *testing.T) {
	e, _ := newIntegrationsServer(t, &scriptedProvider{})

	rec := doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegrationsEmails(t *testing.T) {
	provider := &scriptedProvider{executeResult: &types.EmailListing{
		Messages:      []types.EmailMessage{{Id: "m1", Subject: "hi"}},
		NextPageToken: "page-2",
	}}
	e, _ := newIntegrationsServer(t, provider)

	rec := doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"scripted"}`)
	connect := decodeData[integrations.ConnectResult](t, rec)
	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&code=good-code", "")
	integ := decodeData[types.Integration](t, rec)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/"+integ.ExternalId+"/emails", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decodeData[types.EmailListing](t, rec)
	require.Len(t, listing.Messages, 1)
	assert.Empty(t, listing.Messages[0].Summary)
	assert.Equal(t, "page-2", listing.NextPageToken)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/"+integ.ExternalId+"/emails?summarize=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listing = decodeData[types.EmailListing](t, rec)
	require.Len(t, listing.Messages, 1)
	assert.Equal(t, "summarized", listing.Messages[0].Summary)

	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/"+integ.ExternalId+"/emails?max_results=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIntegrationsExecuteErrorMapping(t *testing.T) {
	provider := &scriptedProvider{executeErr: &types.ErrUnsupportedAction{ProviderType: "scripted", Action: "launch"}}
	e, _ := newIntegrationsServer(t, provider)

	rec := doJSON(e, http.MethodPost, "/api/v1/integrations/connect", `{"provider_type":"scripted"}`)
	connect := decodeData[integrations.ConnectResult](t, rec)
	rec = doJSON(e, http.MethodGet, "/api/v1/integrations/callback?state="+connect.State+"&code=good-code", "")
	integ := decodeData[types.Integration](t, rec)

	rec = doJSON(e, http.MethodPost, "/api/v1/integrations/"+integ.ExternalId+"/execute", `{"action":"launch"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	provider.executeErr = &types.ErrUpstreamAction{ProviderType: "scripted", StatusCode: 502}
	rec = doJSON(e, http.MethodPost, "/api/v1/integrations/"+integ.ExternalId+"/execute", `{"action":"list_emails"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/integrations/"+integ.ExternalId+"/execute", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
