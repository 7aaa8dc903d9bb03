// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token_hash TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, user_agent TEXT NOT NULL DEFAULT '', ip TEXT NOT NULL DEFAULT '', expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
		"CREATE TABLE IF NOT EXISTS foods (id BIGSERIAL PRIMARY KEY, name TEXT NOT NULL, calories INTEGER NOT NULL CHECK(calories >= 0), created_at TIMESTAMPTZ NOT NULL);",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_foods_name_lower ON foods(LOWER(name));",
		"CREATE TABLE IF NOT EXISTS meal_templates (id BIGSERIAL PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, name TEXT NOT NULL, description TEXT, created_at TIMESTAMPTZ NOT NULL, UNIQUE(user_id, name));",
		"CREATE TABLE IF NOT EXISTS meal_template_items (id BIGSERIAL PRIMARY KEY, template_id BIGINT NOT NULL REFERENCES meal_templates(id) ON DELETE CASCADE, food_id BIGINT NOT NULL REFERENCES foods(id), quantity DOUBLE PRECISION NOT NULL CHECK(quantity > 0));",
		"CREATE INDEX IF NOT EXISTS idx_meal_template_items_template_id ON meal_template_items(template_id);",
		"CREATE TABLE IF NOT EXISTS meal_log (id BIGSERIAL PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, meal_date DATE NOT NULL, meal_type TEXT NOT NULL, template_id BIGINT REFERENCES meal_templates(id) ON DELETE SET NULL, meal_name TEXT, created_at TIMESTAMPTZ NOT NULL, updated_at TIMESTAMPTZ NOT NULL, UNIQUE(user_id, meal_date, meal_type));",
		"CREATE TABLE IF NOT EXISTS meal_log_items (id BIGSERIAL PRIMARY KEY, log_id BIGINT NOT NULL REFERENCES meal_log(id) ON DELETE CASCADE, food_id BIGINT NOT NULL REFERENCES foods(id), quantity DOUBLE PRECISION NOT NULL CHECK(quantity > 0));",
		"CREATE INDEX IF NOT EXISTS idx_meal_log_items_log_id ON meal_log_items(log_id);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign_key_violation.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
