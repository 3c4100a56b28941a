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

// hub-duck — Mail Processor Service
//
// Entry point for the mail processor. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL (and Redis when configured)
//  3. Wires the object-store fetcher and the extraction model
//  4. Serves POST /events for inbound notification batches
//  5. Serves /health and /metrics
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Ammarahmad786/hub-duck/internal/config"
	"github.com/Ammarahmad786/hub-duck/internal/extract"
	"github.com/Ammarahmad786/hub-duck/internal/mailbox"
	"github.com/Ammarahmad786/hub-duck/internal/metrics"
	"github.com/Ammarahmad786/hub-duck/internal/pipeline"
	"github.com/Ammarahmad786/hub-duck/internal/queue"
	"github.com/Ammarahmad786/hub-duck/internal/store"
	"github.com/Ammarahmad786/hub-duck/internal/webhook"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, cleanup := config.SetupLogger(cfg.LogFile, config.ParseLevel(cfg.LogLevel))
	defer cleanup()
	slog.SetDefault(logger)

	slog.Info("starting hub-duck mail processor",
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"bucket", cfg.S3Bucket,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	db, err := store.New(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise store", "error", err)
		os.Exit(1)
	}

	// --- Connect to Redis (optional) ---
	var publisher *queue.Publisher
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)

		publisher = queue.NewPublisher(rdb, cfg.ProcessedQueue)
		if err := publisher.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to Redis", "queue", cfg.ProcessedQueue)
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

	// --- Metrics ---
	metrics.Init()

	// --- Pipeline Dispatcher ---
	dispatcher := pipeline.NewDispatcher(pipeline.Config{
		Acquire: func(ctx context.Context) (pipeline.Session, error) {
			return db.Acquire(ctx)
		},
		Fetcher:   fetcher,
		Completer: extractor,
		Publisher: publisher,
	})

	// --- HTTP Server ---
	handler := webhook.NewHandler(dispatcher)

	mux := http.NewServeMux()
	mux.HandleFunc("/events", handler.ServeEvents)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
			return
		}
		if publisher != nil {
			if err := publisher.Ping(r.Context()); err != nil {
				http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// No write timeout: a batch is processed synchronously and each
		// record awaits a model completion
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		if rdb != nil {
			rdb.Close()
		}
		pgPool.Close()
	}()

	slog.Info("mail processor listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("mail processor stopped")
}
