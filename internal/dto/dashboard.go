package dto

import "time"

// StatusCounts tallies parents by lifecycle status.
type StatusCounts struct {
	Draft         int `json:"draft"`
	PendingReview int `json:"pendingReview"`
	Approved      int `json:"approved"`
	Rejected      int `json:"rejected"`
	Expired       int `json:"expired"`
	Total         int `json:"total"`
}

// ProjectComplianceSummary is one dashboard row.
type ProjectComplianceSummary struct {
	ProjectID      string       `json:"projectId"`
	Sede           string       `json:"sede"`
	CompanyID      string       `json:"companyId"`
	Documents      StatusCounts `json:"documents"`
	RecordFormats  StatusCounts `json:"recordFormats"`
	ExpiringSoon   int          `json:"expiringSoon"`
	Expired        int          `json:"expired"`
	PendingEntries int          `json:"pendingEntries"`
	MissingCount   int          `json:"missingRequired"`
}

// MissingCategory is a required category a project has nothing filed under.
type MissingCategory struct {
	ProjectID    string `json:"projectId"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Type         string `json:"type"`
}

// ExpiringItem lists a document or record format near or past its due date.
type ExpiringItem struct {
	ID               string    `json:"id"`
	Track            string    `json:"track"`
	ProjectID        string    `json:"projectId"`
	Nombre           string    `json:"nombre"`
	Codigo           string    `json:"codigo"`
	FechaVencimiento time.Time `json:"fechaVencimiento"`
	ExpiresInDays    int       `json:"expiresInDays"`
	IsExpired        bool      `json:"isExpired"`
}

// DashboardResponse aggregates compliance state across the caller's visible projects.
type DashboardResponse struct {
	GeneratedAt     time.Time                  `json:"generatedAt"`
	Totals          StatusCounts               `json:"totals"`
	Projects        []ProjectComplianceSummary `json:"projects"`
	MissingRequired []MissingCategory          `json:"missingRequired"`
	Expiring        []ExpiringItem             `json:"expiring"`
}
