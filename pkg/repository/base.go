package repository

import (
	"context"
	"database/sql"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

// IntegrationRepository manages integration and token rows. Token fields are
// ciphertext; encryption happens above this layer.
type IntegrationRepository interface {
	// UpsertIntegration creates or replaces the single (user, provider) row
	// and its token, setting status active. Used by the OAuth callback.
	UpsertIntegration(ctx context.Context, userId uint, provider types.ProviderType, token *types.IntegrationToken) (*types.Integration, error)

	GetIntegration(ctx context.Context, userId uint, externalId string) (*types.Integration, error)
	ListIntegrations(ctx context.Context, userId uint) ([]types.Integration, error)
	UpdateIntegrationStatus(ctx context.Context, integrationId uint, status types.IntegrationStatus) error
	UpdateIntegrationConfig(ctx context.Context, integrationId uint, config []byte) error

	// DisconnectIntegration deletes the token rows and marks the integration
	// disconnected. Returns sql.ErrNoRows when the row is missing.
	DisconnectIntegration(ctx context.Context, userId uint, externalId string) error

	GetIntegrationToken(ctx context.Context, integrationId uint) (*types.IntegrationToken, error)

	// WithTokenLock runs fn inside a transaction holding a row lock on the
	// integration's token. fn receives the current token and may return a
	// replacement to persist, or nil to leave it untouched. Concurrent
	// refreshes for one integration serialize here.
	WithTokenLock(ctx context.Context, integrationId uint, fn func(current *types.IntegrationToken) (*types.IntegrationToken, error)) error
}

// OAuthStateRepository manages short-lived single-use authorization state
type OAuthStateRepository interface {
	CreateState(ctx context.Context, state *types.OAuthState) error

	// ConsumeState atomically removes and returns the record. Missing,
	// expired, or already consumed states yield types.ErrStateNotFoundOrExpired.
	ConsumeState(ctx context.Context, state string) (*types.OAuthState, error)

	PurgeExpiredStates(ctx context.Context) (int64, error)
}

// UserRepository resolves the persisted owner identity
type UserRepository interface {
	GetOrCreateUser(ctx context.Context, externalId, email string) (*types.User, error)
	GetUserByExternalId(ctx context.Context, externalId string) (*types.User, error)
}

// TaskRepository manages user to-do items
type TaskRepository interface {
	CreateTask(ctx context.Context, userId uint, task *types.Task) (*types.Task, error)
	GetTask(ctx context.Context, userId uint, externalId string) (*types.Task, error)
	ListTasks(ctx context.Context, userId uint, includeDone bool) ([]types.Task, error)
	UpdateTask(ctx context.Context, userId uint, externalId string, update *types.TaskUpdate) (*types.Task, error)
	DeleteTask(ctx context.Context, userId uint, externalId string) error
}

// BackendRepository is the main Postgres repository for persistent data
type BackendRepository interface {
	IntegrationRepository
	OAuthStateRepository
	UserRepository
	TaskRepository

	DB() *sql.DB
	Ping(ctx context.Context) error
	Close() error
	RunMigrations() error
}
