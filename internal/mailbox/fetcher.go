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

// Package mailbox fetches raw inbound messages from the object store and
// decodes them into normalized email records.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Ammarahmad786/hub-duck/internal/models"
)

// ObjectGetter is the slice of the S3 API the fetcher uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Fetcher retrieves and decodes stored messages.
type Fetcher struct {
	client ObjectGetter
}

// NewFetcher creates a mailbox fetcher over the given S3 client.
func NewFetcher(client ObjectGetter) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads the object at bucket/key and decodes it as a MIME message.
// A missing object fails with NotFound.
func (f *Fetcher) Fetch(ctx context.Context, bucket, key string) (*models.NormalizedEmail, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: object %s/%s", models.ErrNotFound, bucket, key)
		}
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	email, err := ParseMessage(out.Body)
	if err != nil {
		return nil, fmt.Errorf("decode message %s/%s: %w", bucket, key, err)
	}

	slog.Debug("fetched inbound message",
		"bucket", bucket,
		"key", key,
		"message_id", email.MessageID,
	)

	return email, nil
}
