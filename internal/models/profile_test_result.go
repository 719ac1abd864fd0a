package models

import (
	"time"

	"gorm.io/datatypes"
)

// ProfileTestResult stores one completed questionnaire. Results submitted
// without a candidate id land in the holding area (nil CandidateID) for later
// manual association.
type ProfileTestResult struct {
	ID string `gorm:"type:text;primaryKey"` // Generated UUID.

	CandidateID *string `gorm:"type:text;index"` // Owning candidate, nil for the holding area.

	Answers datatypes.JSON `gorm:"type:jsonb;not null"` // Question index -> chosen value.
	Score   *float64       // Optional server-side score, unset for now.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Completion timestamp.
}
