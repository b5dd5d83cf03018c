package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"insurance-backoffice/internal/common/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Schema creates the relational tables when they are missing. Columns holding
// agent documents are JSONB so unknown keys survive a round trip.
const Schema = `
CREATE TABLE IF NOT EXISTS application_processes (
	id               SERIAL PRIMARY KEY,
	application_id   TEXT NOT NULL UNIQUE,
	application_type TEXT,
	customer_id      TEXT,
	status           TEXT,
	current_step     TEXT,
	agent_data       JSONB,
	step_history     JSONB,
	audit_trail      JSONB,
	review_reason    TEXT,
	start_time       DATE,
	last_updated     DATE
);

CREATE TABLE IF NOT EXISTS claims (
	id           SERIAL PRIMARY KEY,
	user_id      INTEGER,
	policy_id    INTEGER,
	claim_type   TEXT,
	amount       NUMERIC NOT NULL DEFAULT 0,
	status       TEXT,
	last_updated DATE
);

CREATE TABLE IF NOT EXISTS claim_applications (
	id               SERIAL PRIMARY KEY,
	application_id   TEXT NOT NULL UNIQUE,
	application_type TEXT,
	customer_id      TEXT,
	status           TEXT,
	current_step     TEXT,
	agent_data       JSONB,
	step_history     JSONB,
	audit_trail      JSONB,
	review_reason    TEXT,
	claim_record_id  INTEGER REFERENCES claims(id),
	start_time       DATE,
	last_updated     DATE
);

CREATE TABLE IF NOT EXISTS documents (
	id            SERIAL PRIMARY KEY,
	user_id       INTEGER NOT NULL,
	policy_id     INTEGER,
	document_type TEXT NOT NULL,
	document_url  TEXT NOT NULL,
	upload_date   DATE NOT NULL,
	file_size     BIGINT NOT NULL
);
`

// Migrate applies Schema.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.DB
}
