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

package mailbox

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// ParseMessage decodes a raw RFC 822 message into a NormalizedEmail. The
// plain-text part is preferred; messages with only an HTML part fall back to
// its text rendering.
func ParseMessage(r io.Reader) (*models.NormalizedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("read MIME envelope: %w", err)
	}

	email := &models.NormalizedEmail{
		Subject:   env.GetHeader("Subject"),
		From:      firstAddress(env, "From"),
		To:        firstAddress(env, "To"),
		MessageID: strings.Trim(env.GetHeader("Message-Id"), "<>"),
		Content:   env.Text,
	}

	if email.Content == "" {
		email.Content = env.HTML
	}

	if raw := env.GetHeader("Date"); raw != "" {
		if d, err := mail.ParseDate(raw); err == nil {
			email.Date = d
		}
	}
	if email.Date.IsZero() {
		email.Date = time.Now().UTC()
	}

	return email, nil
}

// firstAddress returns the bare address of the first entry in an address
// header, or the raw header when it does not parse as an address list.
func firstAddress(env *enmime.Envelope, header string) string {
	addrs, err := env.AddressList(header)
	if err == nil && len(addrs) > 0 {
		return addrs[0].Address
	}
	return strings.TrimSpace(env.GetHeader(header))
}
