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

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// FirstOrgUser returns the first user belonging to the duck's organization.
// NotFound when the organization has no users.
func (sess *Session) FirstOrgUser(ctx context.Context, duckID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := sess.conn.QueryRow(ctx, `
		SELECT u.id
		FROM users u
		JOIN ducks d ON d.organization_id = u.organization_id
		WHERE d.id = $1
		ORDER BY u.created_at, u.id
		LIMIT 1
	`, duckID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%w: no users in organization of duck %s", models.ErrNotFound, duckID)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("find org user: %w", err)
	}
	return id, nil
}

// AdminUser returns the global administrative-role user used as the last
// fallback actor.
func (sess *Session) AdminUser(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID
	err := sess.conn.QueryRow(ctx, `
		SELECT id FROM users WHERE role = $1
		ORDER BY created_at, id
		LIMIT 1
	`, models.RoleAdmin).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%w: no admin user", models.ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("find admin user: %w", err)
	}
	return id, nil
}
