// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTFileStorage_Upload(t *testing.T) {
	var gotPath, gotContentType, gotUpsert string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fs := NewRESTFileStorage(testBackendConfig(srv.URL))
	url, err := fs.Upload(context.Background(), "attachments", "p-1/photo.jpg", []byte("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/attachments/p-1/photo.jpg", gotPath)
	assert.Equal(t, "image/jpeg", gotContentType)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, []byte("jpeg-bytes"), gotBody)
	assert.Equal(t, srv.URL+"/storage/v1/object/public/attachments/p-1/photo.jpg", url)
}

func TestRESTFileStorage_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/storage/v1/object/attachments/p-1/plan.pdf" {
			_, _ = w.Write([]byte("pdf-bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fs := NewRESTFileStorage(testBackendConfig(srv.URL))

	data, err := fs.Download(context.Background(), "attachments", "p-1/plan.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf-bytes"), data)

	_, err = fs.Download(context.Background(), "attachments", "missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRESTFileStorage_SignedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/sign/attachments/p-1/photo.jpg", r.URL.Path)
		_, _ = w.Write([]byte(`{"signedURL":"/storage/v1/object/sign/attachments/p-1/photo.jpg?token=abc"}`))
	}))
	defer srv.Close()

	fs := NewRESTFileStorage(testBackendConfig(srv.URL))
	url, err := fs.SignedURL(context.Background(), "attachments", "p-1/photo.jpg", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/storage/v1/object/sign/attachments/p-1/photo.jpg?token=abc", url)
}
