package providers

import (
	"context"
	"time"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

// Provider is the capability set every integration provider implements
type Provider interface {
	// Type returns the provider identifier (e.g. "gmail")
	Type() types.ProviderType

	// Descriptor describes the provider to API callers
	Descriptor() types.ProviderDescriptor

	// IsConfigured returns true if the provider has valid credentials
	IsConfigured() bool

	// AuthorizeURL builds the OAuth consent URL. Pure function of the state
	// token, the callback URL, and the provider's static config.
	AuthorizeURL(state, callbackURL string) (string, error)

	// Exchange trades an authorization code for a token bundle
	Exchange(ctx context.Context, code, callbackURL string) (*types.TokenBundle, error)

	// NeedsRefresh reports whether the bundle expires within the safety margin
	NeedsRefresh(tok *types.TokenBundle, now time.Time) bool

	// Refresh trades a refresh token for a new bundle. Failures are
	// *types.ErrRefresh; Terminal means the integration must be reconnected.
	Refresh(ctx context.Context, refreshToken string) (*types.TokenBundle, error)

	// Execute dispatches a named action against the provider's API using
	// decrypted tokens. Upstream payloads never leak through errors.
	Execute(ctx context.Context, tok *types.TokenBundle, action string, params map[string]any) (any, error)
}

// Registry maps provider types to their service implementations. It is
// populated once during gateway wiring and read-only afterwards, so lookups
// need no locking.
type Registry struct {
	providers map[types.ProviderType]Provider
	order     []types.ProviderType
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[types.ProviderType]Provider),
	}
}

// Register adds a provider. Unconfigured providers are skipped so they never
// show up as available.
func (r *Registry) Register(p Provider) {
	if p == nil || !p.IsConfigured() {
		return
	}
	if _, exists := r.providers[p.Type()]; !exists {
		r.order = append(r.order, p.Type())
	}
	r.providers[p.Type()] = p
}

// Get returns the provider for the given type
func (r *Registry) Get(providerType types.ProviderType) (Provider, error) {
	p, ok := r.providers[providerType]
	if !ok {
		return nil, &types.ErrUnknownProvider{ProviderType: string(providerType)}
	}
	return p, nil
}

// List returns descriptors for all registered providers in registration order
func (r *Registry) List() []types.ProviderDescriptor {
	descriptors := make([]types.ProviderDescriptor, 0, len(r.order))
	for _, t := range r.order {
		descriptors = append(descriptors, r.providers[t].Descriptor())
	}
	return descriptors
}
