package admin

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/models"
)

// writeAudit records an administrative mutation. Failures are logged and
// swallowed; audit writes never fail the primary operation.
func writeAudit(c *gin.Context, conn *gorm.DB, action, targetID, targetEmail string, details gin.H) {
	entry := models.AuditLog{
		ID:          uuid.NewString(),
		Action:      action,
		ActorID:     c.GetString(ContextAdminID),
		ActorEmail:  c.GetString(ContextAdminEmail),
		TargetID:    targetID,
		TargetEmail: targetEmail,
	}
	if details != nil {
		if data, errMarshal := json.Marshal(details); errMarshal == nil {
			entry.Details = datatypes.JSON(data)
		}
	}
	if errCreate := conn.WithContext(c.Request.Context()).Create(&entry).Error; errCreate != nil {
		log.WithError(errCreate).WithField("action", action).Warn("failed to write audit log")
	}
}
