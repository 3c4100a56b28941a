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

// Package models defines the data structures shared across the mail processor.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Processing states of a ProcessedEmail row.
const (
	StatusReceived  = "RECEIVED"
	StatusProcessed = "PROCESSED"
	StatusFailed    = "FAILED"
)

// Action constants.
const (
	ActionTypeEvent    = "EVENT"
	ActionStatusActive = "ACTIVE"
)

// RoleAdmin marks the global fallback actor for generated actions.
const RoleAdmin = "ADMIN"

// Duck is an addressable mailbox owner that inbound email is routed to.
// Ducks are resolved, never created, by this pipeline.
type Duck struct {
	ID             uuid.UUID
	EmailPrefix    string
	OrganizationID uuid.UUID
	DuckTypeID     uuid.UUID
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Organization owns ducks and users. Its slug is the second token of the
// recipient local-part.
type Organization struct {
	ID   uuid.UUID
	Slug string
	Name string
}

// User is only consulted to resolve a default actor for generated actions.
type User struct {
	ID             uuid.UUID
	OrganizationID *uuid.UUID
	Role           string
	Email          string
	CreatedAt      time.Time
}

// NormalizedEmail is a decoded inbound message. It is produced once per
// notification by the mailbox fetcher and is immutable within the pipeline.
type NormalizedEmail struct {
	Subject   string
	From      string
	To        string
	Date      time.Time
	MessageID string
	Content   string
}

// ProcessedEmail tracks a message through the pipeline. Rows start at
// RECEIVED, move to PROCESSED once extraction succeeds, or land at FAILED
// with an error detail when any later stage breaks.
type ProcessedEmail struct {
	ID            uuid.UUID
	DuckID        uuid.UUID
	MessageID     string
	Subject       string
	Sender        string
	ReceivedAt    time.Time
	StorageKey    string
	Status        string
	ExtractedData []byte
	ErrorDetail   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExtractedAction is a derived, persisted unit of follow-up work. At most one
// action of a given type exists per email per user.
type ExtractedAction struct {
	ID         uuid.UUID
	EmailID    uuid.UUID
	DuckID     uuid.UUID
	UserID     uuid.UUID
	ActionType string
	Context    []byte
	Note       string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ExtractionResult is the JSON contract the language model is asked to
// produce. Only Events drives action materialization; the remaining fields
// are stored verbatim in the ProcessedEmail payload.
type ExtractionResult struct {
	Events     []EventDetail `json:"events"`
	Actions    []ActionItem  `json:"actions,omitempty"`
	Summary    string        `json:"summary,omitempty"`
	Categories string        `json:"categories,omitempty"`
	Importance string        `json:"importance,omitempty"`
}

// EventDetail is a single calendar event extracted from an email.
type EventDetail struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
}

// ActionItem is a non-event follow-up extracted from an email.
type ActionItem struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Deadline    string `json:"deadline,omitempty"`
	Priority    string `json:"priority,omitempty"`
}
