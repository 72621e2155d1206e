package compliance

import (
	"time"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

// DefaultExpiringSoonDays is used when no window is configured.
const DefaultExpiringSoonDays = 30

// ExpirationStatus is derived from a due date and a reference day.
type ExpirationStatus struct {
	IsExpired     bool `json:"isExpired"`
	ExpiresInDays int  `json:"expiresInDays"`
	ExpiringSoon  bool `json:"expiringSoon"`
}

// ComputeStatus compares calendar days. The due date itself is not expired;
// the following day is. ExpiringSoon covers the window up to and including
// soonDays away.
func ComputeStatus(due, asOf time.Time, soonDays int) ExpirationStatus {
	if soonDays < 0 {
		soonDays = 0
	}
	days := DaysBetween(asOf, due)
	return ExpirationStatus{
		IsExpired:     days < 0,
		ExpiresInDays: days,
		ExpiringSoon:  days >= 0 && days <= soonDays,
	}
}

// StatusOf computes the expiration status of doc, or nil when it has no due date.
func StatusOf(doc *models.Document, asOf time.Time, soonDays int) *ExpirationStatus {
	if doc.FechaVencimiento == nil {
		return nil
	}
	st := ComputeStatus(*doc.FechaVencimiento, asOf, soonDays)
	return &st
}

// IsDue reports whether doc has a due date strictly before asOf's calendar day.
func IsDue(doc *models.Document, asOf time.Time) bool {
	st := StatusOf(doc, asOf, 0)
	return st != nil && st.IsExpired
}

// NeedsExpiry reports whether reconciliation should flip doc to expired.
func NeedsExpiry(doc *models.Document, asOf time.Time) bool {
	return doc.Status == models.StatusApproved && IsDue(doc, asOf)
}

// DaysBetween counts whole calendar days from a to b, each taken in its own location.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
