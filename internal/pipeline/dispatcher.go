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

// Package pipeline runs the multi-stage extraction pipeline over a batch of
// inbound notifications: fetch, tenant resolution, initial persistence,
// prompt resolution, extraction, result persistence, action materialization.
//
// Records are processed strictly sequentially. A failure at any stage for
// one record is logged with the record's identity and never aborts the
// batch; only a setup failure (store session acquisition) fails the
// invocation as a whole.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Ammarahmad786/hub-duck/internal/action"
	"github.com/Ammarahmad786/hub-duck/internal/duck"
	"github.com/Ammarahmad786/hub-duck/internal/metrics"
	"github.com/Ammarahmad786/hub-duck/internal/models"
	"github.com/Ammarahmad786/hub-duck/internal/prompt"
	"github.com/Ammarahmad786/hub-duck/internal/queue"
)

// ObjectRef names one stored message in the object store.
type ObjectRef struct {
	Bucket string
	Key    string
}

// Session is the store surface one invocation works through. All stages
// share it; the dispatcher releases it when the invocation completes.
type Session interface {
	duck.Directory
	prompt.Source
	action.Ledger
	InsertEmail(ctx context.Context, e *models.ProcessedEmail) (uuid.UUID, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, payload []byte) error
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) error
	Release()
}

// Fetcher is the email fetch collaborator.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) (*models.NormalizedEmail, error)
}

// Completer is the extraction collaborator.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds the dispatcher's collaborators.
type Config struct {
	Acquire   func(ctx context.Context) (Session, error)
	Fetcher   Fetcher
	Completer Completer
	Publisher *queue.Publisher // optional
}

// Dispatcher runs the pipeline per record with isolated failure handling.
type Dispatcher struct {
	acquire   func(ctx context.Context) (Session, error)
	fetcher   Fetcher
	completer Completer
	publisher *queue.Publisher
}

// NewDispatcher creates a batch dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		acquire:   cfg.Acquire,
		fetcher:   cfg.Fetcher,
		completer: cfg.Completer,
		publisher: cfg.Publisher,
	}
}

// RecordResult is the per-item outcome collected into the batch report.
type RecordResult struct {
	Bucket         string
	Key            string
	EmailID        uuid.UUID
	MessageID      string
	ActionsCreated int
	Err            error
}

// Report summarises one invocation. Attempted always equals the batch size
// when Run returns without error.
type Report struct {
	Attempted int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	Results   []RecordResult
}

// Run processes every record in the batch sequentially. It acquires one
// store session for the whole invocation and releases it unconditionally.
// The returned error is non-nil only for invocation-level setup failures.
func (d *Dispatcher) Run(ctx context.Context, refs []ObjectRef) (*Report, error) {
	sess, err := d.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire store session: %w", err)
	}
	defer sess.Release()

	start := time.Now()
	report := &Report{}

	for _, ref := range refs {
		metrics.EmailsReceived.Inc()

		res := d.processRecord(ctx, sess, ref)

		report.Attempted++
		if res.Err != nil {
			report.Failed++
			metrics.EmailsFailed.Inc()
			slog.Error("record processing failed",
				"bucket", res.Bucket,
				"key", res.Key,
				"message_id", res.MessageID,
				"error", res.Err,
			)
		} else {
			report.Succeeded++
			metrics.EmailsProcessed.Inc()
		}
		report.Results = append(report.Results, res)
	}

	report.Elapsed = time.Since(start)

	slog.Info("batch complete",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"elapsed", report.Elapsed,
	)

	return report, nil
}

// processRecord runs the full pipeline for one notification. Errors are
// returned in the result, never propagated past the batch boundary.
func (d *Dispatcher) processRecord(ctx context.Context, sess Session, ref ObjectRef) RecordResult {
	res := RecordResult{Bucket: ref.Bucket, Key: ref.Key}

	email, err := d.fetcher.Fetch(ctx, ref.Bucket, ref.Key)
	if err != nil {
		res.Err = fmt.Errorf("fetch email: %w", err)
		return res
	}
	res.MessageID = email.MessageID

	duckID, err := duck.NewResolver(sess).Resolve(ctx, email.To)
	if err != nil {
		res.Err = fmt.Errorf("resolve duck for %q: %w", email.To, err)
		return res
	}

	emailID, err := sess.InsertEmail(ctx, &models.ProcessedEmail{
		DuckID:     duckID,
		MessageID:  email.MessageID,
		Subject:    email.Subject,
		Sender:     email.From,
		ReceivedAt: email.Date,
		StorageKey: ref.Key,
	})
	if err != nil {
		res.Err = fmt.Errorf("record email: %w", err)
		return res
	}
	res.EmailID = emailID

	created, err := d.runExtraction(ctx, sess, emailID, duckID, email.Content)
	if err != nil {
		// The row is left in the terminal FAILED state; any payload
		// already written stays for inspection
		if mErr := sess.MarkFailed(ctx, emailID, err.Error()); mErr != nil {
			slog.Error("failed to mark email FAILED",
				"email_id", emailID,
				"error", mErr,
			)
		}
		res.Err = err
		return res
	}
	res.ActionsCreated = created

	if d.publisher != nil {
		if err := d.publisher.PublishProcessed(ctx, emailID, duckID, email.MessageID, created); err != nil {
			slog.Warn("publish processed event failed",
				"email_id", emailID,
				"error", err,
			)
		}
	}

	slog.Info("email processed",
		"email_id", emailID,
		"duck_id", duckID,
		"message_id", email.MessageID,
		"actions_created", created,
	)

	return res
}

// Resume re-runs the extraction stages for an email that already has a
// ProcessedEmail row. The reprocess sweep uses it for stuck records.
func (d *Dispatcher) Resume(ctx context.Context, sess Session, emailID, duckID uuid.UUID, content string) (int, error) {
	created, err := d.runExtraction(ctx, sess, emailID, duckID, content)
	if err != nil {
		if mErr := sess.MarkFailed(ctx, emailID, err.Error()); mErr != nil {
			slog.Error("failed to mark email FAILED",
				"email_id", emailID,
				"error", mErr,
			)
		}
		return 0, err
	}
	return created, nil
}

// runExtraction performs prompt resolution, combination, the model call,
// result persistence, and action materialization for one email.
func (d *Dispatcher) runExtraction(ctx context.Context, sess Session, emailID, duckID uuid.UUID, content string) (int, error) {
	instructions, err := prompt.NewResolver(sess).Resolve(ctx, duckID.String())
	if err != nil {
		return 0, fmt.Errorf("resolve prompts: %w", err)
	}

	combined := prompt.Combine(instructions, content)

	raw, err := d.completer.Complete(ctx, combined)
	if err != nil {
		metrics.ExtractionFailures.Inc()
		return 0, fmt.Errorf("extract: %w", err)
	}

	// The response must deserialize against the extraction schema before
	// anything is persisted; a nonconforming payload never reaches the row
	var extraction models.ExtractionResult
	if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
		return 0, fmt.Errorf("%w: response does not match the extraction schema: %v", models.ErrBadPayload, err)
	}

	if err := sess.MarkProcessed(ctx, emailID, []byte(raw)); err != nil {
		return 0, err
	}

	result, err := action.NewMaterializer(sess).Materialize(ctx, emailID, duckID, raw)
	if err != nil {
		return 0, fmt.Errorf("materialize actions: %w", err)
	}

	metrics.ActionsCreated.Add(float64(result.Created))
	return result.Created, nil
}
