package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionCompanyCreate    = "COMPANY_CREATE"
	AuditActionCompanyUpdate    = "COMPANY_UPDATE"
	AuditActionCompanyDelete    = "COMPANY_DELETE"
	AuditActionProjectCreate    = "PROJECT_CREATE"
	AuditActionProjectUpdate    = "PROJECT_UPDATE"
	AuditActionProjectDelete    = "PROJECT_DELETE"
	AuditActionCategoryCreate   = "CATEGORY_CREATE"
	AuditActionCategoryUpdate   = "CATEGORY_UPDATE"
	AuditActionCategoryDelete   = "CATEGORY_DELETE"
	AuditActionDocumentCreate   = "DOCUMENT_CREATE"
	AuditActionDocumentDelete   = "DOCUMENT_DELETE"
	AuditActionVersionUpload    = "VERSION_UPLOAD"
	AuditActionVersionActivate  = "VERSION_ACTIVATE"
	AuditActionStatusTransition = "STATUS_TRANSITION"
	AuditActionEntryUpload      = "ENTRY_UPLOAD"
	AuditActionEntryDecision    = "ENTRY_DECISION"
	AuditActionExpire           = "EXPIRE"
	AuditActionFileDownload     = "FILE_DOWNLOAD"
	AuditActionEntryDelete      = "ENTRY_DELETE"
	AuditActionUserCreate       = "USER_CREATE"
	AuditActionUserUpdate       = "USER_UPDATE"
	AuditActionUserDeactivate   = "USER_DEACTIVATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
