package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions recorded for administrative mutations.
const (
	AuditCreateAdmin     = "create_admin"
	AuditDeleteAdmin     = "delete_admin"
	AuditDeleteCandidate = "delete_candidate"
)

// AuditLog is an append-only record of admin create/delete operations.
// Writes are best-effort: a failed audit insert never fails the primary
// operation.
type AuditLog struct {
	ID string `gorm:"type:text;primaryKey"` // Generated UUID.

	Action string `gorm:"type:text;not null;index"` // One of the Audit* constants.

	ActorID    string `gorm:"type:text"` // Acting principal id.
	ActorEmail string `gorm:"type:text"` // Acting principal email.

	TargetID    string `gorm:"type:text"` // Affected principal or candidate id.
	TargetEmail string `gorm:"type:text"` // Affected principal email, if any.

	Details datatypes.JSON `gorm:"type:jsonb"` // Action-specific payload.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Server timestamp.
}
