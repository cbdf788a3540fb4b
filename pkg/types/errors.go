package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the integration core. Handlers map these onto HTTP
// status codes; the messages are safe to surface to callers.
var (
	ErrStateNotFoundOrExpired = errors.New("oauth state is invalid, expired, or already used")
	ErrDecryption             = errors.New("stored token could not be decrypted")
	ErrIntegrationExpired     = errors.New("integration expired, reconnect required")
	ErrIntegrationNotFound    = errors.New("integration not found")
	ErrTokenExchange          = errors.New("token exchange failed")
)

// ErrUnknownProvider is returned when a provider type is not registered
type ErrUnknownProvider struct {
	ProviderType string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.ProviderType)
}

// ErrUnsupportedAction is returned when a provider does not implement an action
type ErrUnsupportedAction struct {
	ProviderType string
	Action       string
}

func (e *ErrUnsupportedAction) Error() string {
	return fmt.Sprintf("unsupported action for %s: %s", e.ProviderType, e.Action)
}

// ErrInvalidParams is returned when action parameters are malformed or missing
type ErrInvalidParams struct {
	Reason string
}

func (e *ErrInvalidParams) Error() string {
	return fmt.Sprintf("invalid params: %s", e.Reason)
}

// ErrUpstreamAction wraps a provider API failure. It carries only the HTTP
// status; upstream response bodies never leave the provider boundary.
type ErrUpstreamAction struct {
	ProviderType string
	StatusCode   int
}

func (e *ErrUpstreamAction) Error() string {
	return fmt.Sprintf("%s API request failed with status %d", e.ProviderType, e.StatusCode)
}

// ErrRefresh is returned when a token refresh fails. Terminal refresh errors
// (revoked or invalid refresh tokens) flip the integration to expired and are
// never retried; transient ones may be retried once.
type ErrRefresh struct {
	Terminal bool
	cause    error
}

func NewRefreshError(terminal bool, cause error) *ErrRefresh {
	return &ErrRefresh{Terminal: terminal, cause: cause}
}

func (e *ErrRefresh) Error() string {
	if e.Terminal {
		return "token refresh rejected by provider"
	}
	return "token refresh failed"
}

func (e *ErrRefresh) Unwrap() error {
	return e.cause
}
