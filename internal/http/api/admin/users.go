package admin

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/models"
	"github.com/clarion-legal/careers/internal/security"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Role values accepted by user creation.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superAdmin"
	RoleRestricted = "restrictedAdmin"
)

// UsersHandler serves administrator account management.
type UsersHandler struct {
	db *gorm.DB
}

// NewUsersHandler constructs a UsersHandler.
func NewUsersHandler(db *gorm.DB) *UsersHandler {
	return &UsersHandler{db: db}
}

// List returns all administrator accounts.
func (h *UsersHandler) List(c *gin.Context) {
	var admins []models.Admin
	errFind := h.db.WithContext(c.Request.Context()).Order("created_at ASC").Find(&admins).Error
	if errFind != nil {
		log.WithError(errFind).Error("failed to list admins")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	users := make([]gin.H, 0, len(admins))
	for i := range admins {
		users = append(users, userView(&admins[i]))
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func userView(admin *models.Admin) gin.H {
	view := gin.H{
		"uid":          admin.ID,
		"email":        admin.Email,
		"displayName":  admin.DisplayName,
		"disabled":     !admin.Active,
		"customClaims": admin.Claims(),
		"createdAt":    admin.CreatedAt,
	}
	if admin.LastLoginAt != nil {
		view["lastSignInAt"] = *admin.LastLoginAt
	}
	return view
}

type createUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Create provisions a new administrator account. Restricted admins may not
// create accounts.
func (h *UsersHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || claims.RestrictedAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	var body createUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if !emailRe.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if len(body.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	role := strings.TrimSpace(body.Role)
	if role == "" {
		role = RoleAdmin
	}
	if role != RoleAdmin && role != RoleSuperAdmin && role != RoleRestricted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	if role == RoleSuperAdmin && !claims.SuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	var existing models.Admin
	errFind := h.db.WithContext(c.Request.Context()).First(&existing, "email = ?", email).Error
	if errFind == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already in use"})
		return
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		log.WithError(errHash).Error("failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	admin := models.Admin{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      hash,
		DisplayName:       strings.TrimSpace(body.DisplayName),
		Active:            true,
		IsSuperAdmin:      role == RoleSuperAdmin,
		IsRestrictedAdmin: role == RoleRestricted,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&admin).Error; errCreate != nil {
		log.WithError(errCreate).Error("failed to create admin")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	writeAudit(c, h.db, models.AuditCreateAdmin, admin.ID, admin.Email, gin.H{"role": role})

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userView(&admin)})
}

type deleteUserRequest struct {
	UID string `json:"uid"`
}

// Delete removes an administrator account. Restricted admins may not delete
// accounts; nobody may delete a super admin or their own account.
func (h *UsersHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil || claims.RestrictedAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	var body deleteUserRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || strings.TrimSpace(body.UID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid required"})
		return
	}
	uid := strings.TrimSpace(body.UID)

	if uid == claims.UID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete own account"})
		return
	}

	var target models.Admin
	errFind := h.db.WithContext(c.Request.Context()).First(&target, "id = ?", uid).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	if target.IsSuperAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete super admin"})
		return
	}

	if errDelete := h.db.WithContext(c.Request.Context()).Delete(&target).Error; errDelete != nil {
		log.WithError(errDelete).Error("failed to delete admin")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	writeAudit(c, h.db, models.AuditDeleteAdmin, target.ID, target.Email, nil)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
