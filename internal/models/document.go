package models

import "time"

// Track selects which of the two parallel controlled-artifact tracks a Document belongs to.
type Track string

const (
	TrackDocument Track = "document"
	TrackRecord   Track = "record"
)

// Valid reports whether the track is known.
func (t Track) Valid() bool {
	return t == TrackDocument || t == TrackRecord
}

// CategoryType returns the category type a parent on this track must reference.
func (t Track) CategoryType() CategoryType {
	if t == TrackRecord {
		return CategoryTypeRecord
	}
	return CategoryTypeDocument
}

// DocumentStatus is the lifecycle state of a Document or RecordFormat.
type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "draft"
	StatusPendingReview DocumentStatus = "pending_review"
	StatusApproved      DocumentStatus = "approved"
	StatusRejected      DocumentStatus = "rejected"
	StatusExpired       DocumentStatus = "expired"
)

// RoleKind names the responsibility a DocumentRole holds.
type RoleKind string

const (
	RoleElaborator RoleKind = "elaborator"
	RoleReviewer   RoleKind = "reviewer"
	RoleApprover   RoleKind = "approver"
)

// DocumentRole is a person responsible for one stage of a document's workflow.
type DocumentRole struct {
	ID         string   `db:"id" json:"id"`
	DocumentID string   `db:"document_id" json:"-"`
	Nombres    string   `db:"nombres" json:"nombres"`
	Apellidos  string   `db:"apellidos" json:"apellidos"`
	Email      string   `db:"email" json:"email"`
	Role       RoleKind `db:"role" json:"role"`
}

// DocumentVersion is one uploaded revision of a Document or RecordFormat.
type DocumentVersion struct {
	ID            string    `db:"id" json:"id"`
	DocumentID    string    `db:"document_id" json:"-"`
	VersionNumber string    `db:"version_number" json:"versionNumber"`
	FileName      string    `db:"file_name" json:"fileName"`
	FileSize      int64     `db:"file_size" json:"fileSize"`
	MimeType      string    `db:"mime_type" json:"mimeType,omitempty"`
	FilePath      *string   `db:"file_path" json:"filePath,omitempty"`
	UploadedBy    string    `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt    time.Time `db:"uploaded_at" json:"uploadedAt"`
	Changes       *string   `db:"changes" json:"changes,omitempty"`
	IsActive      bool      `db:"is_active" json:"isActive"`
}

// Document is a versioned controlled artifact tied to a project and category.
// RecordFormats share the same shape and are distinguished by Track.
type Document struct {
	ID               string            `db:"id" json:"id"`
	Track            Track             `db:"-" json:"track"`
	Nombre           string            `db:"nombre" json:"nombre"`
	CategoryID       string            `db:"category_id" json:"categoryId"`
	ProjectID        string            `db:"project_id" json:"projectId"`
	Version          string            `db:"version" json:"version"`
	Codigo           string            `db:"codigo" json:"codigo"`
	FechaCreacion    time.Time         `db:"fecha_creacion" json:"fechaCreacion"`
	FechaVencimiento *time.Time        `db:"fecha_vencimiento" json:"fechaVencimiento,omitempty"`
	Status           DocumentStatus    `db:"status" json:"status"`
	Versions         []DocumentVersion `db:"-" json:"versions"`
	Elaborators      []DocumentRole    `db:"-" json:"elaborators"`
	Reviewers        []DocumentRole    `db:"-" json:"reviewers"`
	Approvers        []DocumentRole    `db:"-" json:"approvers"`
	CreatedBy        string            `db:"created_by" json:"createdBy"`
	ApprovedBy       *string           `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time        `db:"approved_at" json:"approvedAt,omitempty"`
	Notes            *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

// ActiveVersion returns the version currently marked active, if any.
func (d *Document) ActiveVersion() *DocumentVersion {
	for i := range d.Versions {
		if d.Versions[i].IsActive {
			return &d.Versions[i]
		}
	}
	return nil
}

// Roles flattens the three role lists.
func (d *Document) Roles() []DocumentRole {
	roles := make([]DocumentRole, 0, len(d.Elaborators)+len(d.Reviewers)+len(d.Approvers))
	roles = append(roles, d.Elaborators...)
	roles = append(roles, d.Reviewers...)
	return append(roles, d.Approvers...)
}

// AssignRoles distributes a flat role list into the per-kind lists.
func (d *Document) AssignRoles(roles []DocumentRole) {
	d.Elaborators, d.Reviewers, d.Approvers = nil, nil, nil
	for _, r := range roles {
		switch r.Role {
		case RoleElaborator:
			d.Elaborators = append(d.Elaborators, r)
		case RoleReviewer:
			d.Reviewers = append(d.Reviewers, r)
		case RoleApprover:
			d.Approvers = append(d.Approvers, r)
		}
	}
}

// DocumentFilter narrows document and record format listings.
type DocumentFilter struct {
	ProjectIDs []string
	CategoryID string
	Status     DocumentStatus
	Search     string
	Page       int
	PageSize   int
}

// ExpirableFilter selects parents whose stored status should be reconciled against their due date.
type ExpirableFilter struct {
	Status DocumentStatus
	Before time.Time
	Limit  int
}
