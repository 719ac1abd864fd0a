package models

import (
	"time"

	"gorm.io/datatypes"
)

// Candidate lifecycle statuses.
const (
	StatusSubmitted = "submitted"
	StatusScreening = "screening"
	StatusInterview = "interview"
	StatusRejected  = "rejected"
	StatusHired     = "hired"
)

// Candidate represents one submitted job application.
type Candidate struct {
	ID string `gorm:"type:text;primaryKey"` // Generated UUID.

	FullName        string `gorm:"type:text;not null"`        // Applicant name.
	Email           string `gorm:"type:text;not null;index"`  // Contact email.
	Phone           string `gorm:"type:text"`                 // Formatted phone, may be empty.
	PositionApplied string `gorm:"type:text"`                 // Area-of-interest key.
	Experience      string `gorm:"type:text"`                 // Free text.
	CoverLetter     string `gorm:"type:text"`                 // Free text.
	PrivacyConsent  bool   `gorm:"not null;default:false"`    // Consent checkbox state at submission.
	Status          string `gorm:"type:text;not null;default:'submitted'"` // Lifecycle status.

	// At most one entry in practice; kept array-shaped as
	// [{"name":..,"storagePath":..,"uploadedAt":..,"moved":true|"moveFailed":true}].
	Attachments datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Submission timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`       // Last update timestamp.
}

// Attachment is the typed form of one Attachments entry.
type Attachment struct {
	Name        string    `json:"name"`
	StoragePath string    `json:"storagePath"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Moved       bool      `json:"moved,omitempty"`
	MoveFailed  bool      `json:"moveFailed,omitempty"`
}
