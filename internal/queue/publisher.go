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

// Package queue publishes processed-email events to Redis for downstream
// hub consumers (feed refresh, digests). Publishing is best-effort: a
// failure here never fails the record that produced the event.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher sends processed-email events to a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// ProcessedEvent is the envelope downstream consumers read.
type ProcessedEvent struct {
	EventID        string `json:"event_id"`
	EmailID        string `json:"email_id"`
	DuckID         string `json:"duck_id"`
	MessageID      string `json:"message_id"`
	ActionsCreated int    `json:"actions_created"`
	ProcessedAt    string `json:"processed_at"`
}

// PublishProcessed enqueues a processed-email event.
func (p *Publisher) PublishProcessed(ctx context.Context, emailID, duckID uuid.UUID, messageID string, actionsCreated int) error {
	evt := ProcessedEvent{
		EventID:        uuid.New().String(),
		EmailID:        emailID.String(),
		DuckID:         duckID.String(),
		MessageID:      messageID,
		ActionsCreated: actionsCreated,
		ProcessedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal processed event: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, string(body)).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published processed-email event",
		"event_id", evt.EventID,
		"email_id", evt.EmailID,
		"queue", p.queueName,
	)

	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
