package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tanagardigil-gorkem/assistme-api/pkg/types"
)

func (r *PostgresBackend) GetOrCreateUser(ctx context.Context, externalId, email string) (*types.User, error) {
	query := `
		INSERT INTO app_user (external_id, email)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, external_id, email, created_at
	`

	var u types.User
	err := r.db.QueryRowContext(ctx, query, externalId, email).Scan(&u.Id, &u.ExternalId, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}
	return &u, nil
}

func (r *PostgresBackend) GetUserByExternalId(ctx context.Context, externalId string) (*types.User, error) {
	query := `SELECT id, external_id, email, created_at FROM app_user WHERE external_id = $1`

	var u types.User
	err := r.db.QueryRowContext(ctx, query, externalId).Scan(&u.Id, &u.ExternalId, &u.Email, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
