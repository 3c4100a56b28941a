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

// FindActiveDuck returns the id of the active duck whose email prefix and
// organization slug match. Tokens are compared as given; there is no fuzzy
// matching or case normalization.
func (sess *Session) FindActiveDuck(ctx context.Context, prefix, slug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := sess.conn.QueryRow(ctx, `
		SELECT d.id
		FROM ducks d
		JOIN organizations o ON o.id = d.organization_id
		WHERE d.email_prefix = $1 AND o.slug = $2 AND d.is_active
	`, prefix, slug).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%w: no active duck for prefix %q in org %q", models.ErrNotFound, prefix, slug)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("find duck: %w", err)
	}
	return id, nil
}

// DuckTypeID returns the type of the given duck. NotFound when the duck
// itself does not exist.
func (sess *Session) DuckTypeID(ctx context.Context, duckID uuid.UUID) (uuid.UUID, error) {
	var typeID uuid.UUID
	err := sess.conn.QueryRow(ctx, `
		SELECT duck_type_id FROM ducks WHERE id = $1
	`, duckID).Scan(&typeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("%w: duck %s", models.ErrNotFound, duckID)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("look up duck type: %w", err)
	}
	return typeID, nil
}
