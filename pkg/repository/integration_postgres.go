package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

const integrationColumns = `id, external_id, user_id, provider_type, status, config, created_at, updated_at`
const tokenColumns = `id, integration_id, access_token, refresh_token, scopes, expires_at, created_at, updated_at`

func scanIntegration(row interface{ Scan(...any) error }, i *types.Integration) error {
	return row.Scan(&i.Id, &i.ExternalId, &i.UserId, &i.ProviderType, &i.Status, &i.Config, &i.CreatedAt, &i.UpdatedAt)
}

func scanToken(row interface{ Scan(...any) error }, t *types.IntegrationToken) error {
	var refresh sql.NullString
	if err := row.Scan(&t.Id, &t.IntegrationId, &t.AccessToken, &refresh, pq.Array(&t.Scopes), &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return err
	}
	t.RefreshToken = refresh.String
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresBackend) UpsertIntegration(ctx context.Context, userId uint, provider types.ProviderType, token *types.IntegrationToken) (*types.Integration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO integration (user_id, provider_type, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (user_id, provider_type)
		DO UPDATE SET status = 'active', updated_at = CURRENT_TIMESTAMP
		RETURNING ` + integrationColumns

	var i types.Integration
	if err := scanIntegration(tx.QueryRowContext(ctx, query, userId, provider), &i); err != nil {
		return nil, fmt.Errorf("upsert integration: %w", err)
	}

	query = `
		INSERT INTO integration_token (integration_id, access_token, refresh_token, scopes, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (integration_id)
		DO UPDATE SET access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			scopes = EXCLUDED.scopes,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err = tx.ExecContext(ctx, query, i.Id, token.AccessToken, nullIfEmpty(token.RefreshToken), pq.Array(token.Scopes), token.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("upsert integration token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return &i, nil
}

func (r *PostgresBackend) GetIntegration(ctx context.Context, userId uint, externalId string) (*types.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integration WHERE user_id = $1 AND external_id = $2`

	var i types.Integration
	err := scanIntegration(r.db.QueryRowContext(ctx, query, userId, externalId), &i)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	return &i, nil
}

func (r *PostgresBackend) ListIntegrations(ctx context.Context, userId uint) ([]types.Integration, error) {
	query := `SELECT ` + integrationColumns + ` FROM integration WHERE user_id = $1 ORDER BY provider_type`

	rows, err := r.db.QueryContext(ctx, query, userId)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	var integrations []types.Integration
	for rows.Next() {
		var i types.Integration
		if err := scanIntegration(rows, &i); err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		integrations = append(integrations, i)
	}
	return integrations, rows.Err()
}

func (r *PostgresBackend) UpdateIntegrationStatus(ctx context.Context, integrationId uint, status types.IntegrationStatus) error {
	query := `UPDATE integration SET status = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, integrationId, status); err != nil {
		return fmt.Errorf("update integration status: %w", err)
	}
	return nil
}

func (r *PostgresBackend) UpdateIntegrationConfig(ctx context.Context, integrationId uint, config []byte) error {
	query := `UPDATE integration SET config = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, integrationId, config); err != nil {
		return fmt.Errorf("update integration config: %w", err)
	}
	return nil
}

func (r *PostgresBackend) DisconnectIntegration(ctx context.Context, userId uint, externalId string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin disconnect: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE integration SET status = 'disconnected', updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND external_id = $2
		RETURNING id
	`
	var id uint
	err = tx.QueryRowContext(ctx, query, userId, externalId).Scan(&id)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("disconnect integration: %w", err)
	}

	// Tokens are removed outright; a disconnect must invalidate them
	if _, err := tx.ExecContext(ctx, `DELETE FROM integration_token WHERE integration_id = $1`, id); err != nil {
		return fmt.Errorf("delete integration tokens: %w", err)
	}

	return tx.Commit()
}

func (r *PostgresBackend) GetIntegrationToken(ctx context.Context, integrationId uint) (*types.IntegrationToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM integration_token WHERE integration_id = $1`

	var t types.IntegrationToken
	err := scanToken(r.db.QueryRowContext(ctx, query, integrationId), &t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get integration token: %w", err)
	}
	return &t, nil
}

// WithTokenLock serializes refresh-then-persist for one integration. The row
// lock is held for the duration of fn, so two concurrent refreshes cannot
// interleave and overwrite a newer refresh token with a stale one.
func (r *PostgresBackend) WithTokenLock(ctx context.Context, integrationId uint, fn func(current *types.IntegrationToken) (*types.IntegrationToken, error)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin token update: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + tokenColumns + ` FROM integration_token WHERE integration_id = $1 FOR UPDATE`

	var current types.IntegrationToken
	err = scanToken(tx.QueryRowContext(ctx, query, integrationId), &current)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("lock integration token: %w", err)
	}

	replacement, err := fn(&current)
	if err != nil {
		return err
	}
	if replacement == nil {
		return tx.Commit()
	}

	query = `
		UPDATE integration_token
		SET access_token = $2, refresh_token = $3, scopes = $4, expires_at = $5, updated_at = CURRENT_TIMESTAMP
		WHERE integration_id = $1
	`
	_, err = tx.ExecContext(ctx, query, integrationId, replacement.AccessToken, nullIfEmpty(replacement.RefreshToken), pq.Array(replacement.Scopes), replacement.ExpiresAt)
	if err != nil {
		return fmt.Errorf("update integration token: %w", err)
	}

	return tx.Commit()
}
