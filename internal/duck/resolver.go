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

// Package duck resolves the owning tenant of an inbound message from its
// structured recipient address.
package duck

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// Directory is the store surface the resolver queries.
type Directory interface {
	FindActiveDuck(ctx context.Context, prefix, slug string) (uuid.UUID, error)
}

// Resolver maps a recipient address to a duck identifier.
type Resolver struct {
	dir Directory
}

// NewResolver creates a tenant resolver over the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve parses a recipient of the form prefix.orgSlug@domain and returns
// the matching active duck's identifier. Any address that does not carry
// both tokens, or that matches no active duck, fails with NotFound.
func (r *Resolver) Resolve(ctx context.Context, recipient string) (uuid.UUID, error) {
	prefix, slug, err := splitRecipient(recipient)
	if err != nil {
		return uuid.Nil, err
	}
	return r.dir.FindActiveDuck(ctx, prefix, slug)
}

// splitRecipient extracts the duck prefix and organization slug from the
// local-part. Tokens are kept as given — no case normalization.
func splitRecipient(recipient string) (prefix, slug string, err error) {
	local, _, found := strings.Cut(recipient, "@")
	if !found || local == "" {
		return "", "", fmt.Errorf("%w: recipient %q has no local-part", models.ErrNotFound, recipient)
	}

	parts := strings.Split(local, ".")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: recipient %q local-part is not prefix.orgSlug", models.ErrNotFound, recipient)
	}

	return parts[0], parts[1], nil
}
