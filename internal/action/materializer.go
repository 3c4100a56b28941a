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

// Package action turns extracted events into deduplicated, ownership-resolved
// action records.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// Ledger is the store surface the materializer writes through.
type Ledger interface {
	FirstOrgUser(ctx context.Context, duckID uuid.UUID) (uuid.UUID, error)
	AdminUser(ctx context.Context) (uuid.UUID, error)
	InsertAction(ctx context.Context, a *models.ExtractedAction) (bool, error)
}

// Materializer creates action rows from extraction output.
type Materializer struct {
	ledger Ledger
}

// NewMaterializer creates a materializer over the given ledger.
func NewMaterializer(ledger Ledger) *Materializer {
	return &Materializer{ledger: ledger}
}

// Result summarises one materialization pass.
type Result struct {
	Created int
	Skipped int
}

// Materialize parses the raw extraction text and inserts one EVENT action
// per event entry, skipping entries whose (user, email, type) key already
// has a row. A missing or empty events array is a no-op; text that is not
// valid JSON is a fatal error for the record.
func (m *Materializer) Materialize(ctx context.Context, emailID, duckID uuid.UUID, raw string) (Result, error) {
	var result Result

	var extraction models.ExtractionResult
	if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
		return result, fmt.Errorf("%w: %v", models.ErrBadPayload, err)
	}

	if len(extraction.Events) == 0 {
		return result, nil
	}

	userID, err := m.resolveActor(ctx, duckID)
	if err != nil {
		return result, err
	}

	for _, ev := range extraction.Events {
		// The full event object is kept as context so the note can be
		// reconstructed later
		evCtx, err := json.Marshal(ev)
		if err != nil {
			return result, fmt.Errorf("marshal event context: %w", err)
		}

		inserted, err := m.ledger.InsertAction(ctx, &models.ExtractedAction{
			EmailID:    emailID,
			DuckID:     duckID,
			UserID:     userID,
			ActionType: models.ActionTypeEvent,
			Context:    evCtx,
			Note:       eventNote(ev),
			Status:     models.ActionStatusActive,
		})
		if err != nil {
			return result, err
		}

		if inserted {
			result.Created++
		} else {
			result.Skipped++
			slog.Debug("action already exists, skipping",
				"email_id", emailID,
				"user_id", userID,
				"action_type", models.ActionTypeEvent,
			)
		}
	}

	return result, nil
}

// resolveActor picks the acting user for generated actions: the first user
// of the duck's organization, else the global admin user. Neither existing
// is a deployment configuration error.
func (m *Materializer) resolveActor(ctx context.Context, duckID uuid.UUID) (uuid.UUID, error) {
	userID, err := m.ledger.FirstOrgUser(ctx, duckID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return uuid.Nil, err
	}

	userID, err = m.ledger.AdminUser(ctx)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return uuid.Nil, err
	}

	return uuid.Nil, fmt.Errorf("%w: duck %s has no org users and no admin exists", models.ErrNoActor, duckID)
}

// eventNote builds the human-readable summary for an event action.
func eventNote(ev models.EventDetail) string {
	note := ev.Title
	if note == "" {
		note = "Untitled event"
	}
	if ev.Date != "" {
		note += " on " + ev.Date
	}
	if ev.Time != "" {
		note += " at " + ev.Time
	}
	if ev.Location != "" {
		note += " (" + ev.Location + ")"
	}
	if ev.Description != "" {
		note += ": " + ev.Description
	}
	return note
}
