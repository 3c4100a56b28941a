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
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ActiveOverrides returns the instruction texts of all active duck-specific
// prompt overrides, in stable store order.
func (sess *Session) ActiveOverrides(ctx context.Context, duckID uuid.UUID) ([]string, error) {
	rows, err := sess.conn.Query(ctx, `
		SELECT instructions
		FROM duck_prompts
		WHERE duck_id = $1 AND is_active
		ORDER BY created_at, id
	`, duckID)
	if err != nil {
		return nil, fmt.Errorf("query duck prompts: %w", err)
	}
	defer rows.Close()
	return collectTexts(rows)
}

// ActiveTypePrompts returns the texts of all active type-level templates for
// the given duck type, newest version first. Every active version is
// included, not only the latest.
func (sess *Session) ActiveTypePrompts(ctx context.Context, typeID uuid.UUID) ([]string, error) {
	rows, err := sess.conn.Query(ctx, `
		SELECT prompt
		FROM duck_type_prompts
		WHERE duck_type_id = $1 AND is_active
		ORDER BY version DESC
	`, typeID)
	if err != nil {
		return nil, fmt.Errorf("query type prompts: %w", err)
	}
	defer rows.Close()
	return collectTexts(rows)
}

func collectTexts(rows pgx.Rows) ([]string, error) {
	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}
