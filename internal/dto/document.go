package dto

import (
	"io"
	"time"

	"github.com/noah-isme/compliance-docs-api/internal/compliance"
	"github.com/noah-isme/compliance-docs-api/internal/models"
)

// RoleRequest names one person responsible for a workflow stage.
type RoleRequest struct {
	Nombres   string `json:"nombres" validate:"required,max=120"`
	Apellidos string `json:"apellidos" validate:"max=120"`
	Email     string `json:"email" validate:"required,email"`
}

// CreateDocumentRequest is the metadata part of a document or record format
// upload. The file travels alongside it as the first version.
type CreateDocumentRequest struct {
	Nombre           string        `json:"nombre" validate:"required,max=255"`
	CategoryID       string        `json:"categoryId" validate:"required"`
	ProjectID        string        `json:"projectId" validate:"required"`
	Codigo           string        `json:"codigo" validate:"required,max=64"`
	VersionNumber    string        `json:"versionNumber" validate:"required,max=32"`
	FechaCreacion    *time.Time    `json:"fechaCreacion"`
	FechaVencimiento *time.Time    `json:"fechaVencimiento"`
	Changes          *string       `json:"changes" validate:"omitempty,max=2000"`
	Elaborators      []RoleRequest `json:"elaborators" validate:"dive"`
	Reviewers        []RoleRequest `json:"reviewers" validate:"dive"`
	Approvers        []RoleRequest `json:"approvers" validate:"dive"`
}

// AddVersionRequest is the metadata part of a new version upload.
type AddVersionRequest struct {
	VersionNumber string  `json:"versionNumber" form:"versionNumber" validate:"required,max=32"`
	Changes       *string `json:"changes" form:"changes" validate:"omitempty,max=2000"`
	Activate      bool    `json:"activate" form:"activate"`
}

// TransitionRequest asks for a lifecycle move. Expiration is not requestable.
type TransitionRequest struct {
	Status models.DocumentStatus `json:"status" validate:"required,oneof=pending_review approved rejected"`
	Notes  string                `json:"notes" validate:"max=2000"`
}

// DocumentListQuery binds GET /documents and GET /record-formats query parameters.
type DocumentListQuery struct {
	ProjectID  string                `form:"projectId"`
	CategoryID string                `form:"categoryId"`
	Status     models.DocumentStatus `form:"status"`
	Search     string                `form:"search"`
	Page       int                   `form:"page"`
	PageSize   int                   `form:"pageSize"`
}

// DocumentResponse decorates a document with its computed expiration state.
type DocumentResponse struct {
	models.Document
	Expiration *compliance.ExpirationStatus `json:"expiration,omitempty"`
}

// DownloadResponse carries a time-limited link to a stored file.
type DownloadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// FileUpload is an uploaded file handed from the transport layer to services.
type FileUpload struct {
	Filename    string
	Size        int64
	ContentType string
	Content     io.Reader
}
