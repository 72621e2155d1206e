package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage persists files on disk under a base directory and serves them
// through signed tokens verified by the API itself.
type LocalStorage struct {
	baseDir     string
	signer      *SignedURLSigner
	downloadURL string
}

// NewLocalStorage ensures the base directory exists. downloadURL is the route
// that redeems tokens, e.g. /api/v1/files/download.
func NewLocalStorage(baseDir string, signer *SignedURLSigner, downloadURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, signer: signer, downloadURL: downloadURL}, nil
}

// Put copies r into key under the base dir.
func (s *LocalStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare storage directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create stored file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close() //nolint:errcheck
		_ = os.Remove(path)
		return fmt.Errorf("write stored file: %w", err)
	}
	return file.Close()
}

// URL signs key and returns the API route that streams it back.
func (s *LocalStorage) URL(_ context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	if s.signer == nil {
		return "", time.Time{}, fmt.Errorf("signing not configured")
	}
	if _, err := s.resolve(key); err != nil {
		return "", time.Time{}, err
	}
	token, expiresAt, err := s.signer.Generate(key, ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return fmt.Sprintf("%s?token=%s", strings.TrimRight(s.downloadURL, "/"), url.QueryEscape(token)), expiresAt, nil
}

// Redeem validates a download token and opens the file it references.
func (s *LocalStorage) Redeem(token string) (*os.File, string, error) {
	if s.signer == nil {
		return nil, "", fmt.Errorf("signing not configured")
	}
	key, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", err
	}
	file, err := s.Open(key)
	if err != nil {
		return nil, "", err
	}
	return file, key, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete stored file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(key)), nil
}
