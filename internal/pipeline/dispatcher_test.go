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

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// fakeSession is an in-memory store session covering every pipeline stage.
type fakeSession struct {
	duckID  uuid.UUID
	prefix  string
	slug    string
	orgUser uuid.UUID
	typeID  uuid.UUID

	emails   map[uuid.UUID]*models.ProcessedEmail
	actions  map[string]*models.ExtractedAction
	released bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		duckID:  uuid.New(),
		prefix:  "billing",
		slug:    "acme",
		orgUser: uuid.New(),
		typeID:  uuid.New(),
		emails:  make(map[uuid.UUID]*models.ProcessedEmail),
		actions: make(map[string]*models.ExtractedAction),
	}
}

func (f *fakeSession) FindActiveDuck(_ context.Context, prefix, slug string) (uuid.UUID, error) {
	if prefix == f.prefix && slug == f.slug {
		return f.duckID, nil
	}
	return uuid.Nil, fmt.Errorf("%w: no active duck", models.ErrNotFound)
}

func (f *fakeSession) ActiveOverrides(context.Context, uuid.UUID) ([]string, error) {
	return nil, nil
}

func (f *fakeSession) DuckTypeID(context.Context, uuid.UUID) (uuid.UUID, error) {
	return f.typeID, nil
}

func (f *fakeSession) ActiveTypePrompts(context.Context, uuid.UUID) ([]string, error) {
	return nil, nil
}

func (f *fakeSession) FirstOrgUser(context.Context, uuid.UUID) (uuid.UUID, error) {
	return f.orgUser, nil
}

func (f *fakeSession) AdminUser(context.Context) (uuid.UUID, error) {
	return uuid.Nil, fmt.Errorf("%w: no admin", models.ErrNotFound)
}

func (f *fakeSession) InsertAction(_ context.Context, a *models.ExtractedAction) (bool, error) {
	key := a.UserID.String() + "|" + a.EmailID.String() + "|" + a.ActionType
	if _, exists := f.actions[key]; exists {
		return false, nil
	}
	f.actions[key] = a
	return true, nil
}

func (f *fakeSession) InsertEmail(_ context.Context, e *models.ProcessedEmail) (uuid.UUID, error) {
	id := uuid.New()
	cp := *e
	cp.ID = id
	cp.Status = models.StatusReceived
	f.emails[id] = &cp
	return id, nil
}

func (f *fakeSession) MarkProcessed(_ context.Context, id uuid.UUID, payload []byte) error {
	var check models.ExtractionResult
	if err := json.Unmarshal(payload, &check); err != nil {
		return fmt.Errorf("%w: nonconforming payload", models.ErrBadPayload)
	}
	e := f.emails[id]
	e.Status = models.StatusProcessed
	e.ExtractedData = payload
	return nil
}

func (f *fakeSession) MarkFailed(_ context.Context, id uuid.UUID, detail string) error {
	e := f.emails[id]
	e.Status = models.StatusFailed
	e.ErrorDetail = &detail
	return nil
}

func (f *fakeSession) Release() {
	f.released = true
}

// fakeFetcher serves normalized emails by key.
type fakeFetcher struct {
	byKey map[string]*models.NormalizedEmail
}

func (f *fakeFetcher) Fetch(_ context.Context, _, key string) (*models.NormalizedEmail, error) {
	if e, ok := f.byKey[key]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: object %s", models.ErrNotFound, key)
}

// fakeCompleter returns a canned response, or an upstream failure.
type fakeCompleter struct {
	response string
	fail     bool
	prompts  []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.fail {
		return "", fmt.Errorf("%w: HTTP 502", models.ErrUpstream)
	}
	return f.response, nil
}

func inboundEmail(to string) *models.NormalizedEmail {
	return &models.NormalizedEmail{
		Subject:   "Staff meeting next week",
		From:      "jordan@example.com",
		To:        to,
		Date:      time.Now().UTC(),
		MessageID: "msg-" + to,
		Content:   "The staff meeting is on May 1st at 10:00 AM in Room 2.",
	}
}

const meetingResponse = `{"events":[{"title":"Staff meeting","date":"2024-05-01","time":"10:00 AM","location":"Room 2"}],"summary":"meeting notice"}`

func testDispatcher(sess *fakeSession, fetcher *fakeFetcher, completer *fakeCompleter) *Dispatcher {
	return NewDispatcher(Config{
		Acquire:   func(context.Context) (Session, error) { return sess, nil },
		Fetcher:   fetcher,
		Completer: completer,
	})
}

func TestRun_MixedBatchIsolatesFailures(t *testing.T) {
	sess := newFakeSession()
	fetcher := &fakeFetcher{byKey: map[string]*models.NormalizedEmail{
		"mail/ok":  inboundEmail("billing.acme@ducks.example.com"),
		"mail/bad": inboundEmail("billing.dormant@ducks.example.com"), // inactive tenant
	}}
	completer := &fakeCompleter{response: meetingResponse}
	d := testDispatcher(sess, fetcher, completer)

	report, err := d.Run(context.Background(), []ObjectRef{
		{Bucket: "inbound", Key: "mail/ok"},
		{Bucket: "inbound", Key: "mail/bad"},
	})
	if err != nil {
		t.Fatalf("invocation-level error: %v", err)
	}

	if report.Attempted != 2 || report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("report = %+v, want 2 attempted / 1 succeeded / 1 failed", report)
	}
	if len(sess.emails) != 1 {
		t.Errorf("got %d ProcessedEmail rows, want 1", len(sess.emails))
	}
	if !errors.Is(report.Results[1].Err, models.ErrNotFound) {
		t.Errorf("second record error = %v, want ErrNotFound", report.Results[1].Err)
	}
	if !sess.released {
		t.Error("session not released")
	}
}

func TestRun_SuccessfulRecord(t *testing.T) {
	sess := newFakeSession()
	fetcher := &fakeFetcher{byKey: map[string]*models.NormalizedEmail{
		"mail/ok": inboundEmail("billing.acme@ducks.example.com"),
	}}
	completer := &fakeCompleter{response: meetingResponse}
	d := testDispatcher(sess, fetcher, completer)

	report, err := d.Run(context.Background(), []ObjectRef{{Bucket: "inbound", Key: "mail/ok"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("report = %+v", report)
	}

	for _, e := range sess.emails {
		if e.Status != models.StatusProcessed {
			t.Errorf("status = %q, want PROCESSED", e.Status)
		}

		// Round-trip: the persisted payload deserializes with events
		// as a sequence
		var extraction models.ExtractionResult
		if err := json.Unmarshal(e.ExtractedData, &extraction); err != nil {
			t.Fatalf("payload round-trip: %v", err)
		}
		if len(extraction.Events) != 1 {
			t.Errorf("events = %v", extraction.Events)
		}
	}

	if len(sess.actions) != 1 {
		t.Errorf("got %d actions, want 1", len(sess.actions))
	}
	if report.Results[0].ActionsCreated != 1 {
		t.Errorf("ActionsCreated = %d, want 1", report.Results[0].ActionsCreated)
	}

	// The model prompt carries the email content
	if len(completer.prompts) != 1 {
		t.Fatalf("completer called %d times, want 1", len(completer.prompts))
	}
}

func TestRun_ExtractionFailureMarksRowFailed(t *testing.T) {
	sess := newFakeSession()
	fetcher := &fakeFetcher{byKey: map[string]*models.NormalizedEmail{
		"mail/ok": inboundEmail("billing.acme@ducks.example.com"),
	}}
	completer := &fakeCompleter{fail: true}
	d := testDispatcher(sess, fetcher, completer)

	report, err := d.Run(context.Background(), []ObjectRef{{Bucket: "inbound", Key: "mail/ok"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if !errors.Is(report.Results[0].Err, models.ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", report.Results[0].Err)
	}

	for _, e := range sess.emails {
		if e.Status != models.StatusFailed {
			t.Errorf("status = %q, want FAILED", e.Status)
		}
		if e.ErrorDetail == nil {
			t.Error("error detail not recorded")
		}
	}
}

func TestRun_NonJSONResponseMarksRowFailed(t *testing.T) {
	sess := newFakeSession()
	fetcher := &fakeFetcher{byKey: map[string]*models.NormalizedEmail{
		"mail/ok": inboundEmail("billing.acme@ducks.example.com"),
	}}
	completer := &fakeCompleter{response: "Sure! The meeting is on May 1st."}
	d := testDispatcher(sess, fetcher, completer)

	report, err := d.Run(context.Background(), []ObjectRef{{Bucket: "inbound", Key: "mail/ok"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(report.Results[0].Err, models.ErrBadPayload) {
		t.Errorf("error = %v, want ErrBadPayload", report.Results[0].Err)
	}

	for _, e := range sess.emails {
		if e.Status != models.StatusFailed {
			t.Errorf("status = %q, want FAILED", e.Status)
		}
		if e.ExtractedData != nil {
			t.Error("malformed payload must not be persisted")
		}
	}
}

func TestRun_SchemaMismatchMarksRowFailed(t *testing.T) {
	sess := newFakeSession()
	fetcher := &fakeFetcher{byKey: map[string]*models.NormalizedEmail{
		"mail/ok": inboundEmail("billing.acme@ducks.example.com"),
	}}
	// Valid JSON, but events is not a sequence
	completer := &fakeCompleter{response: `{"events":"not a sequence"}`}
	d := testDispatcher(sess, fetcher, completer)

	report, err := d.Run(context.Background(), []ObjectRef{{Bucket: "inbound", Key: "mail/ok"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(report.Results[0].Err, models.ErrBadPayload) {
		t.Errorf("error = %v, want ErrBadPayload", report.Results[0].Err)
	}

	for _, e := range sess.emails {
		if e.Status != models.StatusFailed {
			t.Errorf("status = %q, want FAILED", e.Status)
		}
		if e.ExtractedData != nil {
			t.Errorf("nonconforming payload persisted: %s", e.ExtractedData)
		}
	}
}

func TestRun_SetupFailureFailsInvocation(t *testing.T) {
	d := NewDispatcher(Config{
		Acquire: func(context.Context) (Session, error) {
			return nil, fmt.Errorf("%w: connection refused", models.ErrUnavailable)
		},
		Fetcher:   &fakeFetcher{},
		Completer: &fakeCompleter{},
	})

	_, err := d.Run(context.Background(), []ObjectRef{{Bucket: "b", Key: "k"}})
	if !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestResume_RecoversStuckEmail(t *testing.T) {
	sess := newFakeSession()
	completer := &fakeCompleter{response: meetingResponse}
	d := testDispatcher(sess, &fakeFetcher{}, completer)

	emailID, err := sess.InsertEmail(context.Background(), &models.ProcessedEmail{DuckID: sess.duckID})
	if err != nil {
		t.Fatal(err)
	}

	created, err := d.Resume(context.Background(), sess, emailID, sess.duckID, "meeting body")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	if sess.emails[emailID].Status != models.StatusProcessed {
		t.Errorf("status = %q, want PROCESSED", sess.emails[emailID].Status)
	}
}
