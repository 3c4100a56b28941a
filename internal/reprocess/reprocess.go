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

// Package reprocess sweeps processed-email rows stuck at RECEIVED or FAILED,
// re-fetches their stored objects, and re-runs the extraction stages. It is
// an operator tool; the pipeline itself never retries.
package reprocess

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Ammarahmad786/hub-duck/internal/pipeline"
	"github.com/Ammarahmad786/hub-duck/internal/store"
)

// Session extends the pipeline session with the stuck-row listing.
type Session interface {
	pipeline.Session
	ListStuck(ctx context.Context, olderThan time.Duration, limit int) ([]store.StuckEmail, error)
}

// Pipeline resumes the extraction stages for an already-recorded email.
type Pipeline interface {
	Resume(ctx context.Context, sess pipeline.Session, emailID, duckID uuid.UUID, content string) (int, error)
}

// RunnerConfig holds dependencies for the sweep runner.
type RunnerConfig struct {
	Acquire  func(ctx context.Context) (Session, error)
	Fetcher  pipeline.Fetcher
	Pipeline Pipeline
	Bucket   string
	Interval time.Duration // delay between swept records
}

// Runner performs one reprocess sweep.
type Runner struct {
	acquire func(ctx context.Context) (Session, error)
	fetcher pipeline.Fetcher
	pipe    Pipeline
	bucket  string
	limiter *rate.Limiter
}

// NewRunner creates a sweep runner.
func NewRunner(cfg RunnerConfig) *Runner {
	interval := cfg.Interval
	if interval == 0 {
		interval = 500 * time.Millisecond
	}
	return &Runner{
		acquire: cfg.Acquire,
		fetcher: cfg.Fetcher,
		pipe:    cfg.Pipeline,
		bucket:  cfg.Bucket,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Result summarises a completed sweep.
type Result struct {
	Swept     int
	Recovered int
	Errors    int
	Elapsed   time.Duration
}

// Run sweeps rows stuck longer than olderThan, up to limit, oldest first.
// Per-record failures are logged and counted; only setup failures abort the
// sweep.
func (r *Runner) Run(ctx context.Context, olderThan time.Duration, limit int) (*Result, error) {
	start := time.Now()

	sess, err := r.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire store session: %w", err)
	}
	defer sess.Release()

	stuck, err := sess.ListStuck(ctx, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck emails: %w", err)
	}

	slog.Info("starting reprocess sweep",
		"candidates", len(stuck),
		"older_than", olderThan,
	)

	result := &Result{}
	for i, e := range stuck {
		if i > 0 {
			if err := r.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}
		result.Swept++

		email, err := r.fetcher.Fetch(ctx, r.bucket, e.StorageKey)
		if err != nil {
			slog.Error("re-fetch failed",
				"email_id", e.ID,
				"storage_key", e.StorageKey,
				"error", err,
			)
			result.Errors++
			continue
		}

		created, err := r.pipe.Resume(ctx, sess, e.ID, e.DuckID, email.Content)
		if err != nil {
			slog.Error("reprocess failed",
				"email_id", e.ID,
				"error", err,
			)
			result.Errors++
			continue
		}

		result.Recovered++
		slog.Info("email recovered",
			"email_id", e.ID,
			"previous_status", e.Status,
			"actions_created", created,
		)
	}

	result.Elapsed = time.Since(start)

	slog.Info("reprocess sweep complete",
		"swept", result.Swept,
		"recovered", result.Recovered,
		"errors", result.Errors,
		"elapsed", result.Elapsed,
	)

	return result, nil
}
