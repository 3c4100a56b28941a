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

// Package webhook receives inbound email notification batches. Each record
// in a batch either names an object-store bucket/key directly or wraps a
// nested notification whose JSON payload names them; both shapes are
// decoded here before the batch is handed to the pipeline dispatcher.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Ammarahmad786/hub-duck/internal/pipeline"
)

// Dispatcher runs the extraction pipeline over a decoded batch.
type Dispatcher interface {
	Run(ctx context.Context, refs []pipeline.ObjectRef) (*pipeline.Report, error)
}

// Handler serves the notification ingress endpoint.
type Handler struct {
	dispatcher Dispatcher
}

// NewHandler creates a notification handler.
func NewHandler(dispatcher Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// notificationPayload is the outer batch wrapper.
type notificationPayload struct {
	Records []notificationRecord `json:"Records"`
}

// notificationRecord is one entry of a batch. Exactly one of the shapes is
// set: a direct object reference, or a nested notification whose Message
// (an SNS-style envelope) or Body (an SQS-style envelope) is itself a JSON
// document carrying another payload.
type notificationRecord struct {
	S3   *s3Entity  `json:"s3,omitempty"`
	SNS  *snsEntity `json:"Sns,omitempty"`
	Body string     `json:"body,omitempty"`
}

type s3Entity struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key string `json:"key"`
	} `json:"object"`
}

type snsEntity struct {
	Message string `json:"Message"`
}

// decodeRecords extracts object references from a raw batch body,
// unwrapping nested notifications as needed. An undecodable record is
// skipped and counted so the rest of the batch is still dispatched; only
// an unparseable outer payload fails the decode.
func decodeRecords(body []byte) ([]pipeline.ObjectRef, int, error) {
	var payload notificationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, 0, fmt.Errorf("parse notification payload: %w", err)
	}

	var refs []pipeline.ObjectRef
	skipped := 0
	for _, rec := range payload.Records {
		switch {
		case rec.S3 != nil:
			key, err := decodeKey(rec.S3.Object.Key)
			if err != nil {
				slog.Warn("skipping record with undecodable key", "key", rec.S3.Object.Key, "error", err)
				skipped++
				continue
			}
			refs = append(refs, pipeline.ObjectRef{
				Bucket: rec.S3.Bucket.Name,
				Key:    key,
			})

		case rec.SNS != nil:
			nested, n, err := decodeRecords([]byte(rec.SNS.Message))
			if err != nil {
				slog.Warn("skipping record with undecodable nested payload", "error", err)
				skipped++
				continue
			}
			skipped += n
			refs = append(refs, nested...)

		case rec.Body != "":
			nested, n, err := decodeRecords([]byte(rec.Body))
			if err != nil {
				slog.Warn("skipping record with undecodable nested payload", "error", err)
				skipped++
				continue
			}
			skipped += n
			refs = append(refs, nested...)

		default:
			slog.Warn("skipping record that names no object and wraps no payload")
			skipped++
		}
	}

	return refs, skipped, nil
}

// decodeKey reverses the URL encoding object-store events apply to keys.
func decodeKey(key string) (string, error) {
	decoded, err := url.QueryUnescape(strings.ReplaceAll(key, "+", "%20"))
	if err != nil {
		return "", fmt.Errorf("decode object key %q: %w", key, err)
	}
	return decoded, nil
}

// ServeEvents handles POST /events. The batch is processed synchronously;
// the response is 200 once every decodable record has been attempted
// (undecodable records are counted as failed), and 500 only when
// invocation-level setup fails.
func (h *Handler) ServeEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST required"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read request body"})
		return
	}

	refs, skipped, err := decodeRecords(body)
	if err != nil {
		slog.Warn("undecodable notification batch", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if len(refs) == 0 {
		if skipped == 0 {
			writeJSON(w, http.StatusOK, map[string]string{"message": "no records to process"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("processed %d records (%d failed)", skipped, skipped),
		})
		return
	}

	report, err := h.dispatcher.Run(r.Context(), refs)
	if err != nil {
		slog.Error("invocation setup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("processed %d records (%d failed)", report.Attempted+skipped, report.Failed+skipped),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("write response", "error", err)
	}
}
