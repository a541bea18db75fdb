// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sitewire/fieldsync/internal/config"
)

// restFileStorage talks to the hosted backend's object storage API
// (/storage/v1/object/{bucket}/{path}).
type restFileStorage struct {
	client  *resty.Client
	baseURL string
	apiKey  string
}

// NewRESTFileStorage builds a FileStorage from the backend config.
func NewRESTFileStorage(cfg config.Backend) FileStorage {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	cli := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)

	return &restFileStorage{client: cli, baseURL: base, apiKey: cfg.APIKey}
}

// Upload stores data under bucket/path, replacing any existing object, and
// returns the object's public URL.
func (s *restFileStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post("/storage/v1/object/" + bucket + "/" + path)
	if err != nil {
		return "", fmt.Errorf("%w: upload %s/%s: %v", ErrUnavailable, bucket, path, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, path, err)
	}

	return s.PublicURL(bucket, path), nil
}

// Download fetches the object's bytes.
func (s *restFileStorage) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get("/storage/v1/object/" + bucket + "/" + path)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s/%s: %v", ErrUnavailable, bucket, path, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, fmt.Errorf("download %s/%s: %w", bucket, path, err)
	}
	return resp.Body(), nil
}

// PublicURL builds the unauthenticated URL for an object in a public bucket.
func (s *restFileStorage) PublicURL(bucket, path string) string {
	return s.baseURL + "/storage/v1/object/public/" + bucket + "/" + path
}

// SignedURL asks the backend for a time-limited download URL for an object
// in a private bucket.
func (s *restFileStorage) SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"expiresIn": int(expiresIn.Seconds())}).
		Post("/storage/v1/object/sign/" + bucket + "/" + path)
	if err != nil {
		return "", fmt.Errorf("%w: sign %s/%s: %v", ErrUnavailable, bucket, path, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", fmt.Errorf("sign %s/%s: %w", bucket, path, err)
	}

	var signed struct {
		SignedURL string `json:"signedURL"`
	}
	if err = json.Unmarshal(resp.Body(), &signed); err != nil {
		return "", fmt.Errorf("decode sign response for %s/%s: %w", bucket, path, err)
	}
	return s.baseURL + signed.SignedURL, nil
}
