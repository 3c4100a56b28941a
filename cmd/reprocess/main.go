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

// hub-duck — Reprocess Command
//
// Standalone CLI tool that sweeps processed-email rows stuck at RECEIVED or
// FAILED, re-fetches the stored objects, and re-runs the extraction stages.
// Action deduplication makes the sweep safe to repeat.
//
// Usage:
//
//	go run ./cmd/reprocess/ [--age 1h] [--limit 100] [--interval 500ms]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ammarahmad786/hub-duck/internal/config"
	"github.com/Ammarahmad786/hub-duck/internal/extract"
	"github.com/Ammarahmad786/hub-duck/internal/mailbox"
	"github.com/Ammarahmad786/hub-duck/internal/pipeline"
	"github.com/Ammarahmad786/hub-duck/internal/reprocess"
	"github.com/Ammarahmad786/hub-duck/internal/store"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	ageFlag := flag.String("age", "1h", "Minimum time a row must have been stuck")
	limitFlag := flag.Int("limit", 100, "Maximum rows to sweep")
	intervalFlag := flag.String("interval", "500ms", "Delay between swept records")
	flag.Parse()

	age, err := time.ParseDuration(*ageFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --age duration %q: %v\n", *ageFlag, err)
		os.Exit(1)
	}
	interval, err := time.ParseDuration(*intervalFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid --interval duration %q: %v\n", *intervalFlag, err)
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	db, err := store.New(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise store", "error", err)
		os.Exit(1)
	}

	// --- Object Store Fetcher ---
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		slog.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	fetcher := mailbox.NewFetcher(s3Client)

	// --- Extraction Model ---
	extractor, err := extract.New(cfg.LLM)
	if err != nil {
		slog.Error("failed to create extractor", "error", err)
		os.Exit(1)
	}

	dispatcher := pipeline.NewDispatcher(pipeline.Config{
		Acquire: func(ctx context.Context) (pipeline.Session, error) {
			return db.Acquire(ctx)
		},
		Fetcher:   fetcher,
		Completer: extractor,
	})

	// --- Run Sweep ---
	runner := reprocess.NewRunner(reprocess.RunnerConfig{
		Acquire: func(ctx context.Context) (reprocess.Session, error) {
			return db.Acquire(ctx)
		},
		Fetcher:  fetcher,
		Pipeline: dispatcher,
		Bucket:   cfg.S3Bucket,
		Interval: interval,
	})

	result, err := runner.Run(ctx, age, *limitFlag)
	if err != nil {
		slog.Error("reprocess sweep failed", "error", err)
		os.Exit(1)
	}

	// --- Summary ---
	slog.Info("reprocess complete",
		"swept", result.Swept,
		"recovered", result.Recovered,
		"errors", result.Errors,
		"elapsed", result.Elapsed,
	)
}
