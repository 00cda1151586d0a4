package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresClient{Pool: pool}, nil
}

// schema is applied in order; every statement is idempotent.
var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(64) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'user',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"settings", `
		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"knowledge_bases", `
		CREATE TABLE IF NOT EXISTS knowledge_bases (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(256) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"knowledge_documents", `
		CREATE TABLE IF NOT EXISTS knowledge_documents (
			id BIGSERIAL PRIMARY KEY,
			knowledge_base_id BIGINT NOT NULL REFERENCES knowledge_bases(id) ON DELETE CASCADE,
			title VARCHAR(256) NOT NULL,
			content TEXT NOT NULL,
			object_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"ai_agents", `
		CREATE TABLE IF NOT EXISTS ai_agents (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(256) NOT NULL,
			model VARCHAR(128) NOT NULL DEFAULT 'simulated',
			system_prompt TEXT NOT NULL DEFAULT '',
			greeting TEXT NOT NULL DEFAULT '',
			fallback_reply TEXT NOT NULL DEFAULT '',
			temperature DOUBLE PRECISION NOT NULL DEFAULT 0.7,
			confidence_threshold DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			max_tokens INT NOT NULL DEFAULT 1024,
			knowledge_base_id BIGINT REFERENCES knowledge_bases(id) ON DELETE SET NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"customers", `
		CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(256) NOT NULL,
			email VARCHAR(256) NOT NULL DEFAULT '',
			phone VARCHAR(64) NOT NULL DEFAULT '',
			company VARCHAR(256) NOT NULL DEFAULT '',
			stage VARCHAR(32) NOT NULL DEFAULT 'lead',
			position INT NOT NULL DEFAULT 0,
			value_cents BIGINT NOT NULL DEFAULT 0,
			tags TEXT[] NOT NULL DEFAULT '{}',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"conversations", `
		CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			customer_id BIGINT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
			agent_id BIGINT REFERENCES ai_agents(id) ON DELETE SET NULL,
			assignee_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
			channel VARCHAR(20) NOT NULL DEFAULT 'web',
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			subject VARCHAR(256) NOT NULL DEFAULT '',
			ai_confidence DOUBLE PRECISION,
			external_ref VARCHAR(128) NOT NULL DEFAULT '',
			last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"conversations_channel_ref_idx", `
		CREATE INDEX IF NOT EXISTS conversations_channel_ref_idx ON conversations (channel, external_ref)`},
	{"messages", `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender VARCHAR(20) NOT NULL,
			content TEXT NOT NULL,
			confidence DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
	{"messages_conversation_idx", `
		CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation_id, created_at)`},
	{"webhook_events", `
		CREATE TABLE IF NOT EXISTS webhook_events (
			id TEXT PRIMARY KEY,
			event_type VARCHAR(64) NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			response_status INT,
			last_error TEXT NOT NULL DEFAULT '',
			delivered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`},
}

// Migrate creates the schema if it does not exist.
func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.Pool.Exec(ctx, stmt.ddl); err != nil {
			return fmt.Errorf("create %s: %w", stmt.name, err)
		}
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
