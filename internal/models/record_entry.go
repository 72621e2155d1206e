package models

import "time"

// EntryStatus is the approval state of a RecordEntry.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryApproved EntryStatus = "approved"
	EntryRejected EntryStatus = "rejected"
)

// RecordEntry is a single dated submission against a RecordFormat.
type RecordEntry struct {
	ID               string      `db:"id" json:"id"`
	FormatID         string      `db:"format_id" json:"formatId"`
	Nombre           string      `db:"nombre" json:"nombre"`
	FechaRealizacion time.Time   `db:"fecha_realizacion" json:"fechaRealizacion"`
	FileName         string      `db:"file_name" json:"fileName"`
	FileSize         int64       `db:"file_size" json:"fileSize"`
	MimeType         string      `db:"mime_type" json:"mimeType,omitempty"`
	FilePath         *string     `db:"file_path" json:"filePath,omitempty"`
	UploadedBy       string      `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt       time.Time   `db:"uploaded_at" json:"uploadedAt"`
	Status           EntryStatus `db:"status" json:"status"`
	ApprovedBy       *string     `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time  `db:"approved_at" json:"approvedAt,omitempty"`
	Notes            *string     `db:"notes" json:"notes,omitempty"`
}

// RecordEntryFilter narrows entry listings.
type RecordEntryFilter struct {
	FormatIDs []string
	Status    EntryStatus
	Page      int
	PageSize  int
}
