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

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// InsertAction inserts an extracted action unless one already exists for the
// same (user, email, action type). Returns false when the row was skipped.
// The unique index makes the check-then-insert race-safe.
func (sess *Session) InsertAction(ctx context.Context, a *models.ExtractedAction) (bool, error) {
	tag, err := sess.conn.Exec(ctx, `
		INSERT INTO extracted_actions
			(email_id, duck_id, user_id, action_type, context, note, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, email_id, action_type) DO NOTHING
	`, a.EmailID, a.DuckID, a.UserID, a.ActionType, a.Context, a.Note, a.Status)
	if err != nil {
		return false, fmt.Errorf("insert action: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
