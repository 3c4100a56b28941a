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
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// InsertEmail records an inbound message with status RECEIVED and returns
// the generated identifier used by all downstream stages.
//
// Rows are deliberately not deduplicated by message identity: redelivery of
// the triggering notification after a partial failure produces a second row.
func (sess *Session) InsertEmail(ctx context.Context, e *models.ProcessedEmail) (uuid.UUID, error) {
	var id uuid.UUID
	err := sess.conn.QueryRow(ctx, `
		INSERT INTO processed_emails
			(duck_id, message_id, subject, sender, received_at, storage_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, e.DuckID, e.MessageID, e.Subject, e.Sender, e.ReceivedAt, e.StorageKey, models.StatusReceived).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert processed email: %w", err)
	}
	return id, nil
}

// MarkProcessed sets the row to PROCESSED with the extraction payload. The
// payload is re-validated against the extraction schema before the write;
// anything that does not deserialize aborts the update, so a PROCESSED row
// never carries a nonconforming payload.
func (sess *Session) MarkProcessed(ctx context.Context, id uuid.UUID, payload []byte) error {
	var check models.ExtractionResult
	if err := json.Unmarshal(payload, &check); err != nil {
		return fmt.Errorf("%w: refusing to persist nonconforming payload for email %s: %v", models.ErrBadPayload, id, err)
	}
	_, err := sess.conn.Exec(ctx, `
		UPDATE processed_emails
		SET status = $1, extracted_data = $2, error_detail = NULL, updated_at = NOW()
		WHERE id = $3
	`, models.StatusProcessed, payload, id)
	if err != nil {
		return fmt.Errorf("mark email processed: %w", err)
	}
	return nil
}

// MarkFailed moves the row to the terminal FAILED state with an error
// detail. Any extraction payload already written stays in place.
func (sess *Session) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	_, err := sess.conn.Exec(ctx, `
		UPDATE processed_emails
		SET status = $1, error_detail = $2, updated_at = NOW()
		WHERE id = $3
	`, models.StatusFailed, detail, id)
	if err != nil {
		return fmt.Errorf("mark email failed: %w", err)
	}
	return nil
}

// StuckEmail is a row the reprocess sweep can pick up.
type StuckEmail struct {
	ID         uuid.UUID
	DuckID     uuid.UUID
	StorageKey string
	Status     string
}

// ListStuck returns RECEIVED and FAILED rows older than the given age,
// oldest first.
func (sess *Session) ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]StuckEmail, error) {
	rows, err := sess.conn.Query(ctx, `
		SELECT id, duck_id, storage_key, status
		FROM processed_emails
		WHERE status IN ($1, $2) AND updated_at < NOW() - $3::interval
		ORDER BY updated_at
		LIMIT $4
	`, models.StatusReceived, models.StatusFailed,
		fmt.Sprintf("%d seconds", int(olderThan.Seconds())), limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck emails: %w", err)
	}
	defer rows.Close()

	var stuck []StuckEmail
	for rows.Next() {
		var e StuckEmail
		if err := rows.Scan(&e.ID, &e.DuckID, &e.StorageKey, &e.Status); err != nil {
			return nil, err
		}
		stuck = append(stuck, e)
	}
	return stuck, rows.Err()
}
