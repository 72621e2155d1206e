// Package storage holds the file store drivers used for version and entry uploads.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

// FileStore persists uploaded bytes and hands out time-limited download links.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename keeps a readable, path-free version of name.
func SanitizeFilename(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	if len(base) > 120 {
		base = base[len(base)-120:]
	}
	return base
}

// ObjectKey builds the storage key for an uploaded file, grouping by owner.
func ObjectKey(prefix, ownerID, fileID, filename string) string {
	return fmt.Sprintf("%s/%s/%s-%s", strings.Trim(prefix, "/"), ownerID, fileID, SanitizeFilename(filename))
}

// ValidKey rejects keys that could escape the store root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return false
		}
	}
	return true
}
