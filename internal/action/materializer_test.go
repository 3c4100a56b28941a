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

package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// fakeLedger keeps actions keyed the way the unique index does.
type fakeLedger struct {
	orgUser   uuid.UUID // Nil = organization has no users
	adminUser uuid.UUID // Nil = no global admin

	actions map[string]*models.ExtractedAction
}

func newFakeLedger(orgUser, adminUser uuid.UUID) *fakeLedger {
	return &fakeLedger{
		orgUser:   orgUser,
		adminUser: adminUser,
		actions:   make(map[string]*models.ExtractedAction),
	}
}

func (f *fakeLedger) FirstOrgUser(context.Context, uuid.UUID) (uuid.UUID, error) {
	if f.orgUser == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: no users", models.ErrNotFound)
	}
	return f.orgUser, nil
}

func (f *fakeLedger) AdminUser(context.Context) (uuid.UUID, error) {
	if f.adminUser == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: no admin", models.ErrNotFound)
	}
	return f.adminUser, nil
}

func (f *fakeLedger) InsertAction(_ context.Context, a *models.ExtractedAction) (bool, error) {
	key := a.UserID.String() + "|" + a.EmailID.String() + "|" + a.ActionType
	if _, exists := f.actions[key]; exists {
		return false, nil
	}
	f.actions[key] = a
	return true, nil
}

const staffMeetingJSON = `{"events":[{"title":"Staff meeting","date":"2024-05-01","time":"10:00 AM","location":"Room 2"}]}`

func TestMaterialize_CreatesEventAction(t *testing.T) {
	user := uuid.New()
	ledger := newFakeLedger(user, uuid.Nil)
	m := NewMaterializer(ledger)

	emailID, duckID := uuid.New(), uuid.New()
	result, err := m.Materialize(context.Background(), emailID, duckID, staffMeetingJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created != 1 || result.Skipped != 0 {
		t.Errorf("result = %+v, want 1 created, 0 skipped", result)
	}

	if len(ledger.actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(ledger.actions))
	}
	for _, a := range ledger.actions {
		if a.ActionType != models.ActionTypeEvent {
			t.Errorf("action type = %q, want EVENT", a.ActionType)
		}
		if a.Status != models.ActionStatusActive {
			t.Errorf("status = %q, want ACTIVE", a.Status)
		}
		if a.UserID != user {
			t.Errorf("user = %s, want org user %s", a.UserID, user)
		}
		if !strings.Contains(a.Note, "Staff meeting") {
			t.Errorf("note %q does not mention the event title", a.Note)
		}

		// Context must preserve the source fields
		var ev models.EventDetail
		if err := json.Unmarshal(a.Context, &ev); err != nil {
			t.Fatalf("context is not valid JSON: %v", err)
		}
		if ev.Date != "2024-05-01" || ev.Time != "10:00 AM" || ev.Location != "Room 2" {
			t.Errorf("context lost event fields: %+v", ev)
		}
	}
}

func TestMaterialize_Idempotent(t *testing.T) {
	ledger := newFakeLedger(uuid.New(), uuid.Nil)
	m := NewMaterializer(ledger)

	emailID, duckID := uuid.New(), uuid.New()
	for i := 0; i < 2; i++ {
		if _, err := m.Materialize(context.Background(), emailID, duckID, staffMeetingJSON); err != nil {
			t.Fatalf("pass %d: unexpected error: %v", i+1, err)
		}
	}

	if len(ledger.actions) != 1 {
		t.Errorf("got %d actions after reprocessing, want 1", len(ledger.actions))
	}
}

func TestMaterialize_NoEventsIsNoOp(t *testing.T) {
	ledger := newFakeLedger(uuid.New(), uuid.Nil)
	m := NewMaterializer(ledger)

	for _, raw := range []string{`{}`, `{"events":[]}`, `{"summary":"nothing actionable"}`} {
		result, err := m.Materialize(context.Background(), uuid.New(), uuid.New(), raw)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", raw, err)
		}
		if result.Created != 0 {
			t.Errorf("%s: created %d actions, want 0", raw, result.Created)
		}
	}
	if len(ledger.actions) != 0 {
		t.Errorf("ledger not empty: %d actions", len(ledger.actions))
	}
}

func TestMaterialize_MalformedJSONIsFatal(t *testing.T) {
	ledger := newFakeLedger(uuid.New(), uuid.Nil)
	m := NewMaterializer(ledger)

	_, err := m.Materialize(context.Background(), uuid.New(), uuid.New(), "The email mentions a meeting.")
	if !errors.Is(err, models.ErrBadPayload) {
		t.Errorf("error = %v, want ErrBadPayload", err)
	}
}

func TestMaterialize_AdminFallback(t *testing.T) {
	admin := uuid.New()
	ledger := newFakeLedger(uuid.Nil, admin)
	m := NewMaterializer(ledger)

	if _, err := m.Materialize(context.Background(), uuid.New(), uuid.New(), staffMeetingJSON); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, a := range ledger.actions {
		if a.UserID != admin {
			t.Errorf("user = %s, want admin %s", a.UserID, admin)
		}
	}
}

func TestMaterialize_NoActorConfigured(t *testing.T) {
	ledger := newFakeLedger(uuid.Nil, uuid.Nil)
	m := NewMaterializer(ledger)

	_, err := m.Materialize(context.Background(), uuid.New(), uuid.New(), staffMeetingJSON)
	if !errors.Is(err, models.ErrNoActor) {
		t.Errorf("error = %v, want ErrNoActor", err)
	}
}
