package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
	"github.com/noah-isme/compliance-docs-api/pkg/storage"
)

// Storage is a storage.FileStore backed by a Storage bucket.
type Storage struct {
	client *Client
	bucket string
}

// NewStorage binds the client to the configured bucket.
func NewStorage(client *Client) *Storage {
	return &Storage{client: client, bucket: client.bucket}
}

// Put uploads the object, overwriting any existing object with the same key.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Storage.Put")
	defer span.End()
	span.SetAttributes(attribute.String("storage.key", key), attribute.Int64("storage.size", size))

	if !storage.ValidKey(key) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid storage key")
	}
	// Buffered so retries can replay the body.
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	path := fmt.Sprintf("/storage/v1/object/%s/%s", s.bucket, escapeKey(key))
	_, err = s.client.execute(ctx, request{
		method:      http.MethodPost,
		path:        path,
		contentType: contentType,
		headers:     map[string]string{"x-upsert": "true"},
		bodyFn:      func() io.Reader { return bytes.NewReader(payload) },
	})
	if err != nil {
		span.RecordError(err)
		return appErrors.Backend(err, "storage.upload")
	}
	return nil
}

type signRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type signResponse struct {
	SignedURL string `json:"signedURL"`
}

// URL returns a signed download URL valid for ttl.
func (s *Storage) URL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Storage.URL")
	defer span.End()

	seconds := int(ttl.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	payload, err := json.Marshal(signRequest{ExpiresIn: seconds})
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := time.Now().Add(time.Duration(seconds) * time.Second)

	body, err := s.client.execute(ctx, request{
		method:      http.MethodPost,
		path:        fmt.Sprintf("/storage/v1/object/sign/%s/%s", s.bucket, escapeKey(key)),
		contentType: "application/json",
		bodyFn:      func() io.Reader { return bytes.NewReader(payload) },
	})
	if err != nil {
		span.RecordError(err)
		if statusOf(err) == http.StatusNotFound {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return "", time.Time{}, appErrors.Backend(err, "storage.sign")
	}

	var out signResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", time.Time{}, appErrors.Backend(fmt.Errorf("decode signed url: %w", err), "storage.sign")
	}
	if out.SignedURL == "" {
		return "", time.Time{}, appErrors.Backend(fmt.Errorf("empty signed url"), "storage.sign")
	}
	return s.client.baseURL + "/storage/v1" + out.SignedURL, expiresAt, nil
}

// Delete removes the object. Missing objects are not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Storage.Delete")
	defer span.End()

	_, err := s.client.execute(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/storage/v1/object/%s/%s", s.bucket, escapeKey(key)),
	})
	if err != nil && statusOf(err) != http.StatusNotFound {
		span.RecordError(err)
		return appErrors.Backend(err, "storage.delete")
	}
	return nil
}
