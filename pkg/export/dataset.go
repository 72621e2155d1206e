// Package export renders tabular datasets as CSV or PDF downloads.
package export

import "time"

// Dataset defines tabular export content.
type Dataset struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Headers     []string
	Rows        []map[string]string
	// Highlight marks rows to emphasise, keyed by row index.
	Highlight map[int]bool
}
