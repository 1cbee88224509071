package repository

import "context"

// Schema statements are idempotent so startup can run them on every boot.
// Roles form a closed set and are seeded here; INSERT IGNORE keeps reboots
// from duplicating them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS roles (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(64) NOT NULL UNIQUE,
		description VARCHAR(255) NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		role_id BIGINT UNSIGNED NULL,
		active BOOLEAN NOT NULL DEFAULT FALSE,
		refresh_token TEXT NULL,
		token_version BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NULL,
		deleted_at DATETIME NULL,
		CONSTRAINT fk_users_role FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE SET NULL
	)`,
	`INSERT IGNORE INTO roles (name, description) VALUES
		('admin', 'Administrative user'),
		('user', 'Standard user')`,
}

// EnsureSchema creates the users and roles tables and seeds the role set.
func (r *UserRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.DB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
