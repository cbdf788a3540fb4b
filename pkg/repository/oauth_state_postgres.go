package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

func (r *PostgresBackend) CreateState(ctx context.Context, state *types.OAuthState) error {
	// A user restarting the flow invalidates their previous attempt for the
	// same provider; stale rows would otherwise linger until the sweep.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create state: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM oauth_state WHERE user_id = $1 AND provider_type = $2`,
		state.UserId, state.ProviderType,
	)
	if err != nil {
		return fmt.Errorf("clear previous state: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO oauth_state (state, user_id, provider_type, redirect_uri, expires_at) VALUES ($1, $2, $3, $4, $5)`,
		state.State, state.UserId, state.ProviderType, state.RedirectURI, state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create oauth state: %w", err)
	}

	return tx.Commit()
}

// ConsumeState deletes and returns the record in one statement. Under
// concurrent callbacks with the same token exactly one caller gets the row;
// the rest observe ErrStateNotFoundOrExpired. Expired rows never match, so
// the TTL holds even before the sweep physically removes them.
func (r *PostgresBackend) ConsumeState(ctx context.Context, state string) (*types.OAuthState, error) {
	query := `
		DELETE FROM oauth_state
		WHERE state = $1 AND expires_at > CURRENT_TIMESTAMP
		RETURNING state, user_id, provider_type, redirect_uri, created_at, expires_at
	`

	var s types.OAuthState
	err := r.db.QueryRowContext(ctx, query, state).Scan(
		&s.State, &s.UserId, &s.ProviderType, &s.RedirectURI, &s.CreatedAt, &s.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.ErrStateNotFoundOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	return &s, nil
}

func (r *PostgresBackend) PurgeExpiredStates(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM oauth_state WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("purge expired states: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
