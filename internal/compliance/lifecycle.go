package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/compliance-docs-api/internal/models"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

var transitions = map[models.DocumentStatus][]models.DocumentStatus{
	models.StatusDraft:         {models.StatusPendingReview},
	models.StatusPendingReview: {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:      {models.StatusExpired},
}

// ValidStatus reports whether s is a known document status.
func ValidStatus(s models.DocumentStatus) bool {
	switch s {
	case models.StatusDraft, models.StatusPendingReview, models.StatusApproved, models.StatusRejected, models.StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to models.DocumentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition rejects any move that is not an edge of the lifecycle.
func ValidateTransition(from, to models.DocumentStatus) error {
	if !ValidStatus(to) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", to))
	}
	if !CanTransition(from, to) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move from %s to %s", from, to))
	}
	return nil
}

// Submit sends a draft to review. Every role list must have at least one person.
func Submit(doc *models.Document) error {
	if err := ValidateTransition(doc.Status, models.StatusPendingReview); err != nil {
		return err
	}
	var missing []string
	if len(doc.Elaborators) == 0 {
		missing = append(missing, string(models.RoleElaborator))
	}
	if len(doc.Reviewers) == 0 {
		missing = append(missing, string(models.RoleReviewer))
	}
	if len(doc.Approvers) == 0 {
		missing = append(missing, string(models.RoleApprover))
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "submission requires at least one "+strings.Join(missing, ", "))
	}
	doc.Status = models.StatusPendingReview
	return nil
}

// CanApprove reports whether identity may approve doc: admins always, others
// only when their email is listed among the document's approvers.
func CanApprove(doc *models.Document, identity models.Identity) bool {
	if identity.IsAdmin() {
		return true
	}
	if identity.Email == "" {
		return false
	}
	for _, a := range doc.Approvers {
		if strings.EqualFold(strings.TrimSpace(a.Email), identity.Email) {
			return true
		}
	}
	return false
}

// Approve moves a pending document to approved and stamps who and when.
func Approve(doc *models.Document, identity models.Identity, at time.Time) error {
	if err := ValidateTransition(doc.Status, models.StatusApproved); err != nil {
		return err
	}
	if !CanApprove(doc, identity) {
		return appErrors.Clone(appErrors.ErrForbidden, "only a listed approver may approve this document")
	}
	by := identity.UserID
	approvedAt := at.UTC()
	doc.Status = models.StatusApproved
	doc.ApprovedBy = &by
	doc.ApprovedAt = &approvedAt
	return nil
}

// Reject moves a pending document to rejected. The same people who can approve may reject.
func Reject(doc *models.Document, identity models.Identity, notes string) error {
	if err := ValidateTransition(doc.Status, models.StatusRejected); err != nil {
		return err
	}
	if !CanApprove(doc, identity) {
		return appErrors.Clone(appErrors.ErrForbidden, "only a listed approver may reject this document")
	}
	doc.Status = models.StatusRejected
	if notes = strings.TrimSpace(notes); notes != "" {
		doc.Notes = &notes
	}
	return nil
}

// Expire flips an approved document whose due date has passed. It is driven by
// the reconciliation job, never by a user request.
func Expire(doc *models.Document, asOf time.Time) error {
	if err := ValidateTransition(doc.Status, models.StatusExpired); err != nil {
		return err
	}
	if !IsDue(doc, asOf) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "document has not reached its expiration date")
	}
	doc.Status = models.StatusExpired
	return nil
}

// DecideEntry applies an approval decision to a pending record entry. format is
// the entry's record format and supplies the approver list.
func DecideEntry(entry *models.RecordEntry, format *models.Document, decision models.EntryStatus, identity models.Identity, at time.Time) error {
	if decision != models.EntryApproved && decision != models.EntryRejected {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown entry decision %q", decision))
	}
	if entry.Status != models.EntryPending {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("entry already %s", entry.Status))
	}
	if !CanApprove(format, identity) {
		return appErrors.Clone(appErrors.ErrForbidden, "only a listed approver may decide on this entry")
	}
	entry.Status = decision
	if decision == models.EntryApproved {
		by := identity.UserID
		decidedAt := at.UTC()
		entry.ApprovedBy = &by
		entry.ApprovedAt = &decidedAt
	}
	return nil
}
