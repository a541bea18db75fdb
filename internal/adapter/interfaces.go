// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"time"

	"github.com/sitewire/fieldsync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/adapter_mock.go -package=mock

// Filter restricts a backend Select. Zero value selects everything.
type Filter struct {
	// Eq adds field=value equality predicates.
	Eq map[string]any
	// In adds field IN (values) predicates.
	In map[string][]any
	// OrderBy names a field and direction, e.g. "display_order.asc".
	OrderBy string
	// Limit caps the returned row count when positive.
	Limit int
}

// UserInfo identifies the authenticated backend user.
type UserInfo struct {
	ID    string
	Email string
}

// BackendAdapter is the client of the hosted row-level CRUD backend. Every
// call returns a wrapped sentinel from this package on failure so callers
// can distinguish unavailable (retryable) from rejected (terminal).
type BackendAdapter interface {
	Select(ctx context.Context, collection string, filter Filter) ([]models.Record, error)
	// SelectOne fetches a single row by id; ErrNotFound when absent.
	SelectOne(ctx context.Context, collection, id string) (models.Record, error)
	Upsert(ctx context.Context, collection string, record models.Record) error
	Delete(ctx context.Context, collection, id string) error
	// Health probes backend reachability; used as the connectivity check.
	Health(ctx context.Context) error
	// CurrentUser parses the authenticated user from the bearer token.
	CurrentUser() (UserInfo, error)
	SetToken(token string)
}

// FileStorage is the blob storage API for file attachments referenced by
// records.
type FileStorage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	PublicURL(bucket, path string) string
	SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error)
}
