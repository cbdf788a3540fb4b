package types

import (
	"encoding/json"
	"time"
)

// ProviderType identifies a third-party account provider
type ProviderType string

const (
	ProviderGmail ProviderType = "gmail"
)

// IntegrationStatus is the lifecycle state of an integration
type IntegrationStatus string

const (
	IntegrationStatusActive       IntegrationStatus = "active"
	IntegrationStatusExpired      IntegrationStatus = "expired"
	IntegrationStatusError        IntegrationStatus = "error"
	IntegrationStatusDisconnected IntegrationStatus = "disconnected"
)

// Integration is a linked third-party account. At most one row exists per
// (user, provider) pair; callbacks upsert into it.
type Integration struct {
	Id           uint              `json:"-"`
	ExternalId   string            `json:"id"`
	UserId       uint              `json:"-"`
	ProviderType ProviderType      `json:"provider_type"`
	Status       IntegrationStatus `json:"status"`
	Config       json.RawMessage   `json:"config,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IntegrationToken holds the encrypted token material for one integration.
// AccessToken and RefreshToken are cipher text; plaintext never touches disk.
type IntegrationToken struct {
	Id            uint       `json:"-"`
	IntegrationId uint       `json:"-"`
	AccessToken   string     `json:"-"`
	RefreshToken  string     `json:"-"`
	Scopes        []string   `json:"scopes,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TokenBundle is a decrypted, in-memory token set returned by provider
// exchanges and refreshes. It is never persisted as-is.
type TokenBundle struct {
	AccessToken  string
	RefreshToken string
	Scopes       []string
	ExpiresAt    *time.Time
}

// OAuthState is a short-lived, single-use record binding a state token to a
// pending authorization request. Consuming it deletes it.
type OAuthState struct {
	State        string
	UserId       uint
	ProviderType ProviderType
	RedirectURI  string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the state is past its TTL at the given instant
func (s *OAuthState) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ProviderDescriptor describes an available provider to API callers
type ProviderDescriptor struct {
	ProviderType ProviderType `json:"provider_type"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
}
