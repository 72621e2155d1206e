package supabase

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/pkg/config"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.Client(), config.SupabaseConfig{
		URL:            srv.URL,
		AnonKey:        "anon",
		ServiceKey:     "service",
		Bucket:         "documents",
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(nil, config.SupabaseConfig{}, nil)
	assert.Error(t, err)
}

func TestGetUserSendsCallerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"id":"u1","email":"ana@acme.pe","role":"authenticated"}`)
	})

	user, err := client.GetUser(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "ana@acme.pe", user.Email)
}

func TestGetUserRejectedTokenIsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetUser(context.Background(), "expired")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetUserRetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"id":"u1"}`)
	})

	user, err := client.GetUser(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetUserBackendFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.GetUser(context.Background(), "token")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrBackendUnavailable)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "auth.getUser", appErr.Message)
}

func TestStoragePutReplaysBodyOnRetry(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/documents/docs/p1/f1-manual.pdf", r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("x-upsert"))
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "pdf-bytes", string(body))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"Key":"documents/docs/p1/f1-manual.pdf"}`)
	})

	store := NewStorage(client)
	err := store.Put(context.Background(), "docs/p1/f1-manual.pdf", strings.NewReader("pdf-bytes"), 9, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStorageURLSignsObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/storage/v1/object/sign/documents/docs/p1/f1-manual.pdf", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"expiresIn":600}`, string(body))
		_, _ = io.WriteString(w, `{"signedURL":"/object/sign/documents/docs/p1/f1-manual.pdf?token=abc"}`)
	})

	store := NewStorage(client)
	url, expiresAt, err := store.URL(context.Background(), "docs/p1/f1-manual.pdf", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/storage/v1/object/sign/documents/docs/p1/f1-manual.pdf?token=abc"))
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)
}

func TestStorageDeleteIgnoresMissingObject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})

	assert.NoError(t, NewStorage(client).Delete(context.Background(), "docs/p1/gone.pdf"))
}

func TestStoragePutRejectsInvalidKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	err := NewStorage(client).Put(context.Background(), "../etc/passwd", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCallsWaitForBulkheadSlot(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"id":"u1"}`)
	})
	require.NoError(t, client.bulkhead.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.GetUser(ctx, "token")
	assert.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	client.bulkhead.Release()
	_, err = client.GetUser(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
