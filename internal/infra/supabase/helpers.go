package supabase

import (
	"errors"
	"net/url"
	"strings"
)

func asStatus(err error, target **statusError) bool {
	return errors.As(err, target)
}

// statusOf returns the HTTP status carried by err, or 0.
func statusOf(err error) int {
	var se *statusError
	if asStatus(err, &se) {
		return se.Status
	}
	return 0
}

// escapeKey escapes each path segment of an object key.
func escapeKey(key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
