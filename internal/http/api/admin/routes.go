package admin

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/config"
	"github.com/clarion-legal/careers/internal/storage"
)

// Register mounts the back-office API behind the session middleware.
func Register(r *gin.Engine, conn *gorm.DB, store storage.ObjectStore, cfg config.SessionConfig) {
	candidates := NewCandidatesHandler(conn, store)
	users := NewUsersHandler(conn)

	group := r.Group("/api/admin", RequireSession(conn, cfg))
	group.GET("/candidates", candidates.List)
	group.POST("/careers/download", candidates.Download)
	group.DELETE("/candidates", candidates.Delete)

	group.GET("/users", users.List)
	group.POST("/users", users.Create)
	group.DELETE("/users", users.Delete)
}
