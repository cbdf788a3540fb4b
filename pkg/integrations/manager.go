package integrations

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/common"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/providers"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/repository"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/secrets"
	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const (
	// DefaultStateTTL bounds how long a pending authorization may take
	DefaultStateTTL = 15 * time.Minute

	// refreshLockTTL caps how long the distributed refresh lock is held
	refreshLockTTL = 30 * time.Second
)

// Repository is the persistence surface the manager needs
type Repository interface {
	repository.IntegrationRepository
	repository.OAuthStateRepository
}

// Manager orchestrates the integration lifecycle: connect, callback,
// list, disconnect, and action execution with transparent token refresh.
type Manager struct {
	registry    *providers.Registry
	repo        Repository
	cipher      *secrets.TokenCipher
	redisClient *common.RedisClient // optional, nil when redis is not configured
	callbackURL string
	stateTTL    time.Duration
}

// NewManager wires the manager. redisClient may be nil; the database row lock
// alone still serializes refreshes within one process group.
func NewManager(registry *providers.Registry, repo Repository, cipher *secrets.TokenCipher, redisClient *common.RedisClient, cfg types.IntegrationOAuth) *Manager {
	ttl := cfg.StateTTL
	if ttl == 0 {
		ttl = DefaultStateTTL
	}
	return &Manager{
		registry:    registry,
		repo:        repo,
		cipher:      cipher,
		redisClient: redisClient,
		callbackURL: cfg.CallbackURL,
		stateTTL:    ttl,
	}
}

// AvailableProviders lists the registered, configured providers
func (m *Manager) AvailableProviders() []types.ProviderDescriptor {
	return m.registry.List()
}

// ConnectResult is returned by Connect
type ConnectResult struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// Connect starts an authorization flow: it persists a single-use state record
// and returns the provider's consent URL.
func (m *Manager) Connect(ctx context.Context, userId uint, providerType types.ProviderType, redirectURI string) (*ConnectResult, error) {
	provider, err := m.registry.Get(providerType)
	if err != nil {
		return nil, err
	}

	state := common.GenerateStateToken()
	now := time.Now()
	err = m.repo.CreateState(ctx, &types.OAuthState{
		State:        state,
		UserId:       userId,
		ProviderType: providerType,
		RedirectURI:  redirectURI,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.stateTTL),
	})
	if err != nil {
		return nil, err
	}

	authorizationURL, err := provider.AuthorizeURL(state, m.callbackURL)
	if err != nil {
		return nil, err
	}

	log.Info().
		Uint("user_id", userId).
		Str("provider", string(providerType)).
		Msg("oauth flow started")

	return &ConnectResult{AuthorizationURL: authorizationURL, State: state}, nil
}

// HandleCallback consumes the state record, exchanges the code, encrypts the
// resulting tokens, and upserts the integration. The owner comes from the
// state record, never from the caller, so a stolen state token cannot attach
// an account to another user. Returns the integration and the redirect URI
// the flow originated from.
func (m *Manager) HandleCallback(ctx context.Context, state, code string) (*types.Integration, string, error) {
	record, err := m.repo.ConsumeState(ctx, state)
	if err != nil {
		return nil, "", err
	}

	provider, err := m.registry.Get(record.ProviderType)
	if err != nil {
		return nil, record.RedirectURI, err
	}

	bundle, err := provider.Exchange(ctx, code, m.callbackURL)
	if err != nil {
		return nil, record.RedirectURI, err
	}

	token, err := m.encryptBundle(bundle)
	if err != nil {
		return nil, record.RedirectURI, err
	}

	integration, err := m.repo.UpsertIntegration(ctx, record.UserId, record.ProviderType, token)
	if err != nil {
		return nil, record.RedirectURI, err
	}

	log.Info().
		Uint("user_id", record.UserId).
		Str("provider", string(record.ProviderType)).
		Str("integration_id", integration.ExternalId).
		Msg("integration connected")

	return integration, record.RedirectURI, nil
}

// AbortCallback consumes the state record of a flow the provider rejected and
// returns the redirect URI it originated from, so the browser can be sent back
// with the failure indicated. An unknown or expired state yields "".
func (m *Manager) AbortCallback(ctx context.Context, state string) string {
	record, err := m.repo.ConsumeState(ctx, state)
	if err != nil {
		return ""
	}

	log.Info().
		Uint("user_id", record.UserId).
		Str("provider", string(record.ProviderType)).
		Msg("oauth flow denied at the provider")

	return record.RedirectURI
}

// List returns the user's integrations. Token material is never included.
func (m *Manager) List(ctx context.Context, userId uint) ([]types.Integration, error) {
	return m.repo.ListIntegrations(ctx, userId)
}

// Disconnect invalidates the integration's tokens and marks it disconnected
func (m *Manager) Disconnect(ctx context.Context, userId uint, integrationId string) error {
	err := m.repo.DisconnectIntegration(ctx, userId, integrationId)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ErrIntegrationNotFound
	}
	return err
}

// Execute runs a named provider action, refreshing the access token first
// when it is within the expiry margin.
func (m *Manager) Execute(ctx context.Context, userId uint, integrationId, action string, params map[string]any) (any, error) {
	integration, err := m.repo.GetIntegration(ctx, userId, integrationId)
	if err != nil {
		return nil, err
	}
	if integration == nil || integration.Status == types.IntegrationStatusDisconnected {
		return nil, types.ErrIntegrationNotFound
	}
	if integration.Status == types.IntegrationStatusExpired {
		return nil, types.ErrIntegrationExpired
	}

	provider, err := m.registry.Get(integration.ProviderType)
	if err != nil {
		return nil, err
	}

	bundle, err := m.freshBundle(ctx, provider, integration)
	if err != nil {
		return nil, err
	}

	result, err := provider.Execute(ctx, bundle, action, params)
	if err != nil {
		var upstream *types.ErrUpstreamAction
		if errors.As(err, &upstream) {
			m.setStatus(ctx, integration, types.IntegrationStatusError)
		}
		return nil, err
	}

	// A successful call clears a previous error status
	if integration.Status != types.IntegrationStatusActive {
		m.setStatus(ctx, integration, types.IntegrationStatusActive)
	}

	return result, nil
}

// freshBundle decrypts the stored token and refreshes it when needed. The
// refresh runs under a per-integration lock: a redis lock across processes
// when available, always a row lock inside the transaction, so two racing
// requests cannot clobber each other's rotated refresh token.
func (m *Manager) freshBundle(ctx context.Context, provider providers.Provider, integration *types.Integration) (*types.TokenBundle, error) {
	token, err := m.repo.GetIntegrationToken(ctx, integration.Id)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, types.ErrIntegrationExpired
	}

	bundle, err := m.decryptToken(token)
	if err != nil {
		// A key mismatch cannot self-correct; the user must reconnect
		m.setStatus(ctx, integration, types.IntegrationStatusError)
		return nil, err
	}

	if !provider.NeedsRefresh(bundle, time.Now()) {
		return bundle, nil
	}

	if m.redisClient != nil {
		release, err := m.redisClient.AcquireLock(ctx, common.Keys.IntegrationRefreshLock(integration.ExternalId), refreshLockTTL)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	err = m.repo.WithTokenLock(ctx, integration.Id, func(current *types.IntegrationToken) (*types.IntegrationToken, error) {
		// Re-read under the lock: a concurrent request may have refreshed
		// already, in which case the current token is good as-is.
		locked, err := m.decryptToken(current)
		if err != nil {
			return nil, err
		}
		if !provider.NeedsRefresh(locked, time.Now()) {
			bundle = locked
			return nil, nil
		}

		refreshed, err := provider.Refresh(ctx, locked.RefreshToken)
		if err != nil {
			var refreshErr *types.ErrRefresh
			if errors.As(err, &refreshErr) && !refreshErr.Terminal {
				// One retry for transient failures
				refreshed, err = provider.Refresh(ctx, locked.RefreshToken)
			}
			if err != nil {
				return nil, err
			}
		}

		bundle = refreshed
		return m.encryptBundle(refreshed)
	})
	if err != nil {
		var refreshErr *types.ErrRefresh
		if errors.As(err, &refreshErr) && refreshErr.Terminal {
			m.setStatus(ctx, integration, types.IntegrationStatusExpired)
			log.Warn().
				Str("integration_id", integration.ExternalId).
				Msg("refresh token rejected, integration expired")
			return nil, types.ErrIntegrationExpired
		}
		if errors.Is(err, sql.ErrNoRows) {
			// The token row was removed between the unlocked read and the lock,
			// e.g. by a concurrent disconnect
			return nil, types.ErrIntegrationExpired
		}
		if errors.Is(err, types.ErrDecryption) {
			m.setStatus(ctx, integration, types.IntegrationStatusError)
		}
		return nil, err
	}

	return bundle, nil
}

// RunStateSweeper periodically purges expired oauth state records until the
// context is cancelled. Consume already honors the TTL; this only reclaims
// storage.
func (m *Manager) RunStateSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.repo.PurgeExpiredStates(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("oauth state sweep failed")
			} else if n > 0 {
				log.Debug().Int64("purged", n).Msg("purged expired oauth states")
			}
		}
	}
}

func (m *Manager) encryptBundle(bundle *types.TokenBundle) (*types.IntegrationToken, error) {
	access, err := m.cipher.Encrypt(bundle.AccessToken)
	if err != nil {
		return nil, err
	}

	token := &types.IntegrationToken{
		AccessToken: access,
		Scopes:      bundle.Scopes,
		ExpiresAt:   bundle.ExpiresAt,
	}
	if bundle.RefreshToken != "" {
		refresh, err := m.cipher.Encrypt(bundle.RefreshToken)
		if err != nil {
			return nil, err
		}
		token.RefreshToken = refresh
	}
	return token, nil
}

func (m *Manager) decryptToken(token *types.IntegrationToken) (*types.TokenBundle, error) {
	access, err := m.cipher.Decrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}

	bundle := &types.TokenBundle{
		AccessToken: access,
		Scopes:      token.Scopes,
		ExpiresAt:   token.ExpiresAt,
	}
	if token.RefreshToken != "" {
		refresh, err := m.cipher.Decrypt(token.RefreshToken)
		if err != nil {
			return nil, err
		}
		bundle.RefreshToken = refresh
	}
	return bundle, nil
}

func (m *Manager) setStatus(ctx context.Context, integration *types.Integration, status types.IntegrationStatus) {
	if err := m.repo.UpdateIntegrationStatus(ctx, integration.Id, status); err != nil {
		log.Error().Err(err).
			Str("integration_id", integration.ExternalId).
			Str("status", string(status)).
			Msg("failed to update integration status")
	}
	integration.Status = status
}
