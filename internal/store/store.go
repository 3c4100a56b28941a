// Copyright (c) 2026 Ammar Ahmad
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store provides the Postgres-backed persistence layer for the mail
// processor: ducks, organizations, users, prompt templates, processed emails,
// and extracted actions.
//
// All pipeline queries run through a Session, a single pooled connection
// acquired once per invocation and released when the invocation completes.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// Store wraps the Postgres pool and hands out per-invocation sessions.
type Store struct {
	pool *pgxpool.Pool
}

// New creates the store backed by the given Postgres pool. It ensures the
// schema exists on creation.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS organizations (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			slug       TEXT NOT NULL UNIQUE,
			name       TEXT DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS duck_types (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name       TEXT NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS ducks (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email_prefix    TEXT NOT NULL,
			organization_id UUID NOT NULL REFERENCES organizations(id),
			duck_type_id    UUID NOT NULL REFERENCES duck_types(id),
			is_active       BOOLEAN DEFAULT TRUE,
			created_at      TIMESTAMPTZ DEFAULT NOW(),
			updated_at      TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(email_prefix, organization_id)
		);
		CREATE TABLE IF NOT EXISTS users (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID REFERENCES organizations(id),
			role            TEXT DEFAULT '',
			email           TEXT DEFAULT '',
			created_at      TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS duck_prompts (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			duck_id     UUID NOT NULL REFERENCES ducks(id),
			instructions TEXT NOT NULL,
			is_active   BOOLEAN DEFAULT TRUE,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS duck_type_prompts (
			id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			duck_type_id UUID NOT NULL REFERENCES duck_types(id),
			prompt       TEXT NOT NULL,
			version      INT DEFAULT 1,
			is_active    BOOLEAN DEFAULT TRUE,
			created_at   TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS processed_emails (
			id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			duck_id        UUID NOT NULL REFERENCES ducks(id),
			message_id     TEXT DEFAULT '',
			subject        TEXT DEFAULT '',
			sender         TEXT DEFAULT '',
			received_at    TIMESTAMPTZ,
			storage_key    TEXT NOT NULL,
			status         TEXT NOT NULL DEFAULT 'RECEIVED',
			extracted_data JSONB,
			error_detail   TEXT,
			created_at     TIMESTAMPTZ DEFAULT NOW(),
			updated_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS extracted_actions (
			id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email_id    UUID NOT NULL REFERENCES processed_emails(id),
			duck_id     UUID NOT NULL REFERENCES ducks(id),
			user_id     UUID NOT NULL REFERENCES users(id),
			action_type TEXT NOT NULL,
			context     JSONB,
			note        TEXT DEFAULT '',
			status      TEXT DEFAULT 'ACTIVE',
			created_at  TIMESTAMPTZ DEFAULT NOW(),
			updated_at  TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, email_id, action_type)
		);
		CREATE INDEX IF NOT EXISTS idx_ducks_prefix ON ducks(email_prefix);
		CREATE INDEX IF NOT EXISTS idx_emails_duck ON processed_emails(duck_id);
		CREATE INDEX IF NOT EXISTS idx_emails_status ON processed_emails(status);
		CREATE INDEX IF NOT EXISTS idx_actions_email ON extracted_actions(email_id);
	`)
	return err
}

// Ping checks the Postgres connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Session is a single pooled connection shared by all stages of one
// invocation.
type Session struct {
	conn *pgxpool.Conn
}

// Acquire checks a connection out of the pool for one invocation. The caller
// must Release it when the invocation completes.
func (s *Store) Acquire(ctx context.Context) (*Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire connection: %v", models.ErrUnavailable, err)
	}
	return &Session{conn: conn}, nil
}

// Release returns the session's connection to the pool.
func (sess *Session) Release() {
	sess.conn.Release()
}
