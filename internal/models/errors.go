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

package models

import "errors"

// Sentinel errors for the pipeline. Callers classify with errors.Is().
var (
	// ErrNotFound indicates a missing duck, template, user, or stored object.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a malformed identifier or address.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstream indicates a failure from the extraction service.
	ErrUpstream = errors.New("extraction service error")

	// ErrBadPayload indicates the model returned text that is not valid JSON.
	ErrBadPayload = errors.New("malformed extraction payload")

	// ErrNoActor indicates no fallback actor exists for generated actions.
	// The deployment requires at least one organization user or one global
	// admin user.
	ErrNoActor = errors.New("no fallback actor configured")

	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)
