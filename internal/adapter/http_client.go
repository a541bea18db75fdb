// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/models"
)

// restBackendAdapter talks to the hosted backend's row-level REST API
// (PostgREST conventions: /rest/v1/{table} with field=eq.value filters).
type restBackendAdapter struct {
	client *resty.Client
	apiKey string

	mu    sync.RWMutex
	token string
}

// NewRESTBackendAdapter builds a BackendAdapter from the backend config.
func NewRESTBackendAdapter(cfg config.Backend) BackendAdapter {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("apikey", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &restBackendAdapter{client: cli, apiKey: cfg.APIKey}
}

func (a *restBackendAdapter) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = strings.TrimSpace(token)
}

func (a *restBackendAdapter) authToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token != "" {
		return a.token
	}
	return a.apiKey
}

func (a *restBackendAdapter) Select(ctx context.Context, collection string, filter Filter) ([]models.Record, error) {
	resp, err := a.authedRequest(ctx).
		SetQueryParamsFromValues(filter.queryParams()).
		Get("/rest/v1/" + collection)
	if err != nil {
		return nil, fmt.Errorf("%w: select %s: %v", ErrUnavailable, collection, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}

	var rows []models.Record
	if err = json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("decode select response for %s: %w", collection, err)
	}
	return rows, nil
}

func (a *restBackendAdapter) SelectOne(ctx context.Context, collection, id string) (models.Record, error) {
	rows, err := a.Select(ctx, collection, Filter{
		Eq:    map[string]any{"id": id},
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return rows[0], nil
}

func (a *restBackendAdapter) Upsert(ctx context.Context, collection string, record models.Record) error {
	resp, err := a.authedRequest(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates,return=minimal").
		SetBody([]models.Record{record}).
		Post("/rest/v1/" + collection)
	if err != nil {
		return fmt.Errorf("%w: upsert %s/%s: %v", ErrUnavailable, collection, record.ID(), err)
	}
	if err = mapHTTPError(resp); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, record.ID(), err)
	}
	return nil
}

func (a *restBackendAdapter) Delete(ctx context.Context, collection, id string) error {
	resp, err := a.authedRequest(ctx).
		SetQueryParam("id", "eq."+id).
		Delete("/rest/v1/" + collection)
	if err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", ErrUnavailable, collection, id, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Health is the connectivity probe: a cheap HEAD against the REST root.
func (a *restBackendAdapter) Health(ctx context.Context) error {
	resp, err := a.authedRequest(ctx).Head("/rest/v1/")
	if err != nil {
		return fmt.Errorf("%w: health probe: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("%w: health probe status %d", ErrUnavailable, resp.StatusCode())
	}
	return nil
}

// CurrentUser parses the authenticated user from the bearer token's claims.
// The token is not signature-checked here; the backend verifies it on every
// request, this accessor only surfaces identity for display and scoping.
func (a *restBackendAdapter) CurrentUser() (UserInfo, error) {
	a.mu.RLock()
	token := a.token
	a.mu.RUnlock()

	if token == "" {
		return UserInfo{}, ErrNoToken
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return UserInfo{}, fmt.Errorf("parse auth token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return UserInfo{}, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return UserInfo{}, fmt.Errorf("token subject: %w", err)
	}

	email, _ := claims["email"].(string)
	return UserInfo{ID: sub, Email: email}, nil
}

func (a *restBackendAdapter) authedRequest(ctx context.Context) *resty.Request {
	return a.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+a.authToken())
}

func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}

	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", ErrUnavailable, code, body)
	default:
		return fmt.Errorf("http %d: %s", code, body)
	}
}

// queryParams renders the filter as PostgREST query parameters. Keys are
// emitted in sorted order so request URLs are stable for caching and tests.
func (f Filter) queryParams() url.Values {
	params := make(url.Values)

	eqKeys := make([]string, 0, len(f.Eq))
	for k := range f.Eq {
		eqKeys = append(eqKeys, k)
	}
	sort.Strings(eqKeys)
	for _, k := range eqKeys {
		params[k] = append(params[k], fmt.Sprintf("eq.%v", f.Eq[k]))
	}

	inKeys := make([]string, 0, len(f.In))
	for k := range f.In {
		inKeys = append(inKeys, k)
	}
	sort.Strings(inKeys)
	for _, k := range inKeys {
		values := make([]string, 0, len(f.In[k]))
		for _, v := range f.In[k] {
			values = append(values, fmt.Sprintf("%v", v))
		}
		params[k] = append(params[k], "in.("+strings.Join(values, ",")+")")
	}

	if f.OrderBy != "" {
		params["order"] = []string{f.OrderBy}
	}
	if f.Limit > 0 {
		params["limit"] = []string{fmt.Sprintf("%d", f.Limit)}
	}

	return params
}
