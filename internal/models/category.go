package models

import "time"

// CategoryType partitions categories into the document and record tracks.
type CategoryType string

const (
	CategoryTypeDocument CategoryType = "document"
	CategoryTypeRecord   CategoryType = "record"
)

// DocumentCategory is a normative classification shared by every company.
type DocumentCategory struct {
	ID                  string       `db:"id" json:"id"`
	Name                string       `db:"name" json:"name"`
	Description         string       `db:"description" json:"description"`
	NormativeReference  string       `db:"normative_reference" json:"normativeReference"`
	Type                CategoryType `db:"type" json:"type"`
	IsRequired          bool         `db:"is_required" json:"isRequired"`
	RenewalPeriodMonths int          `db:"renewal_period_months" json:"renewalPeriodMonths"`
	IsActive            bool         `db:"is_active" json:"isActive"`
	CreatedAt           time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time    `db:"updated_at" json:"updatedAt"`
}

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	Type     CategoryType
	IsActive *bool
	Required *bool
}
