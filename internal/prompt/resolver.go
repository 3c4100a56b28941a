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

// Package prompt produces the instruction set that drives extraction and
// combines it with message content into the final model prompt.
//
// Instructions are resolved through a three-tier fallback chain: active
// duck-specific overrides, then active type-level templates, then a built-in
// default. The engine runs the tiers in order and short-circuits on the
// first non-empty result.
package prompt

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// Source is the store surface the resolver queries.
type Source interface {
	ActiveOverrides(ctx context.Context, duckID uuid.UUID) ([]string, error)
	DuckTypeID(ctx context.Context, duckID uuid.UUID) (uuid.UUID, error)
	ActiveTypePrompts(ctx context.Context, typeID uuid.UUID) ([]string, error)
}

// defaultInstruction enumerates the four fixed extraction goals used when a
// duck has no prompts of its own.
const defaultInstruction = `Analyze this email and extract:
1. Any events or important dates
2. Action items or deadlines
3. Important updates or announcements
4. Any requests or questions that require a response`

// Resolver selects the instruction set for a duck.
type Resolver struct {
	tiers []tier
}

// tier tries one level of the fallback chain. A nil, nil return means the
// tier has nothing and the next one is consulted.
type tier func(ctx context.Context, duckID uuid.UUID) ([]string, error)

// NewResolver creates a prompt resolver over the given source.
func NewResolver(src Source) *Resolver {
	return &Resolver{
		tiers: []tier{
			overrideTier(src),
			typeTier(src),
			defaultTier(),
		},
	}
}

// Resolve returns the ordered instruction texts for the duck. The identifier
// is validated before any query; a malformed id fails fast with
// InvalidInput. NotFound propagates when the duck itself cannot be located
// during the type lookup.
func (r *Resolver) Resolve(ctx context.Context, duckID string) ([]string, error) {
	id, err := uuid.Parse(duckID)
	if err != nil {
		return nil, fmt.Errorf("%w: duck id %q: %v", models.ErrInvalidInput, duckID, err)
	}

	for _, try := range r.tiers {
		texts, err := try(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(texts) > 0 {
			return texts, nil
		}
	}

	// Unreachable: the default tier always returns one instruction
	return nil, fmt.Errorf("%w: no prompt tier produced instructions for duck %s", models.ErrNotFound, id)
}

func overrideTier(src Source) tier {
	return func(ctx context.Context, duckID uuid.UUID) ([]string, error) {
		texts, err := src.ActiveOverrides(ctx, duckID)
		if err != nil {
			return nil, fmt.Errorf("override tier: %w", err)
		}
		return texts, nil
	}
}

func typeTier(src Source) tier {
	return func(ctx context.Context, duckID uuid.UUID) ([]string, error) {
		typeID, err := src.DuckTypeID(ctx, duckID)
		if err != nil {
			return nil, fmt.Errorf("type tier: %w", err)
		}
		texts, err := src.ActiveTypePrompts(ctx, typeID)
		if err != nil {
			return nil, fmt.Errorf("type tier: %w", err)
		}
		return texts, nil
	}
}

func defaultTier() tier {
	return func(context.Context, uuid.UUID) ([]string, error) {
		return []string{defaultInstruction}, nil
	}
}
