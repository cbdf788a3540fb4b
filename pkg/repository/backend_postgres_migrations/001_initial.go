package backend_postgres_migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upInitial, downInitial)
}

func upInitial(tx *sql.Tx) error {
	// Ensure UUID extension is available
	if _, err := tx.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return err
	}

	createStatements := []string{
		`CREATE TYPE integration_status AS ENUM ('active', 'expired', 'error', 'disconnected');`,
		`CREATE TYPE task_priority AS ENUM ('low', 'medium', 'high');`,

		// Users table. Identity is issued by the auth collaborator; rows are
		// created lazily on first authenticated request.
		`CREATE TABLE IF NOT EXISTS app_user (
			id SERIAL PRIMARY KEY,
			external_id VARCHAR(64) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);`,

		// Integrations: one row per (user, provider)
		`CREATE TABLE IF NOT EXISTS integration (
			id SERIAL PRIMARY KEY,
			external_id UUID DEFAULT uuid_generate_v4() UNIQUE NOT NULL,
			user_id INT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
			provider_type VARCHAR(32) NOT NULL,
			status integration_status NOT NULL DEFAULT 'active',
			config JSONB DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, provider_type)
		);`,

		// Integration tokens: ciphertext only
		`CREATE TABLE IF NOT EXISTS integration_token (
			id SERIAL PRIMARY KEY,
			integration_id INT NOT NULL REFERENCES integration(id) ON DELETE CASCADE,
			access_token TEXT NOT NULL,
			refresh_token TEXT,
			scopes TEXT[] DEFAULT '{}',
			expires_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (integration_id)
		);`,

		// Single-use OAuth state records
		`CREATE TABLE IF NOT EXISTS oauth_state (
			state VARCHAR(64) PRIMARY KEY,
			user_id INT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
			provider_type VARCHAR(32) NOT NULL,
			redirect_uri VARCHAR(512) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL
		);`,

		// Tasks
		`CREATE TABLE IF NOT EXISTS task (
			id SERIAL PRIMARY KEY,
			external_id UUID DEFAULT uuid_generate_v4() UNIQUE NOT NULL,
			user_id INT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
			title VARCHAR(512) NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			priority task_priority NOT NULL DEFAULT 'medium',
			due_at TIMESTAMP WITH TIME ZONE,
			done BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE INDEX idx_integration_user_id ON integration(user_id);`,
		`CREATE INDEX idx_oauth_state_expires_at ON oauth_state(expires_at);`,
		`CREATE INDEX idx_task_user_id ON task(user_id);`,
		`CREATE INDEX idx_task_due_at ON task(due_at);`,
	}

	for _, stmt := range createStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

func downInitial(tx *sql.Tx) error {
	dropStatements := []string{
		"DROP TABLE IF EXISTS task;",
		"DROP TABLE IF EXISTS oauth_state;",
		"DROP TABLE IF EXISTS integration_token;",
		"DROP TABLE IF EXISTS integration;",
		"DROP TABLE IF EXISTS app_user;",
		"DROP TYPE IF EXISTS task_priority;",
		"DROP TYPE IF EXISTS integration_status;",
	}

	for _, stmt := range dropStatements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
