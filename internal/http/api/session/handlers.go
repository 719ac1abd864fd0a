// Package session implements password login, session-cookie issuance and
// TOTP enrollment for back-office administrators.
package session

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/config"
	"github.com/clarion-legal/careers/internal/models"
	"github.com/clarion-legal/careers/internal/security"
)

const totpIssuer = "Clarion Legal Careers"

// Handler serves the login and session endpoints.
type Handler struct {
	db      *gorm.DB
	cfg     config.SessionConfig
	pending *pendingSecretStore
}

// NewHandler constructs a session Handler.
func NewHandler(db *gorm.DB, cfg config.SessionConfig) *Handler {
	return &Handler{db: db, cfg: cfg, pending: newPendingSecretStore()}
}

// Register mounts the login and session routes. TOTP enrollment routes are
// mounted behind requireSession since they mutate the caller's own account.
func Register(r *gin.Engine, db *gorm.DB, cfg config.SessionConfig, requireSession gin.HandlerFunc) {
	h := NewHandler(db, cfg)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/session", h.Create)
	r.GET("/api/session", h.Read)
	r.DELETE("/api/session", h.Delete)

	totpGroup := r.Group("/api/session/totp", requireSession)
	totpGroup.POST("/prepare", h.TOTPPrepare)
	totpGroup.POST("/confirm", h.TOTPConfirm)
	totpGroup.POST("/disable", h.TOTPDisable)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totpCode"`
}

// Login verifies credentials and returns a short-lived login token. The
// token is exchanged for a session cookie via Create; it never grants API
// access on its own.
func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	var admin models.Admin
	errFind := h.db.WithContext(c.Request.Context()).First(&admin, "email = ?", email).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	if !security.CheckPassword(admin.PasswordHash, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}
	if admin.TOTPSecret != "" {
		code := strings.TrimSpace(body.TOTPCode)
		if code == "" || !totp.Validate(code, admin.TOTPSecret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code"})
			return
		}
	}

	token, errToken := security.GenerateLoginToken(h.cfg.Secret, &admin)
	if errToken != nil {
		log.WithError(errToken).Error("failed to sign login token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	now := time.Now().UTC()
	if errSave := h.db.WithContext(c.Request.Context()).Model(&admin).
		Update("last_login_at", now).Error; errSave != nil {
		log.WithError(errSave).Warn("failed to record last login")
	}

	c.JSON(http.StatusOK, gin.H{"idToken": token})
}

type createRequest struct {
	IDToken string `json:"idToken"`
}

// Create exchanges a login token for the session cookie. The cookie carries
// a session-purpose token whose lifetime follows the configured TTL.
func (h *Handler) Create(c *gin.Context) {
	var body createRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || strings.TrimSpace(body.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken required"})
		return
	}

	claims, errParse := security.ParseLoginToken(h.cfg.Secret, body.IDToken)
	if errParse != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	admin, errLoad := h.loadSessionAdmin(c, claims)
	if errLoad != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ttl := time.Duration(h.cfg.TTLHours) * time.Hour
	token, errToken := security.GenerateSessionToken(h.cfg.Secret, admin, ttl)
	if errToken != nil {
		log.WithError(errToken).Error("failed to sign session token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session creation failed"})
		return
	}

	h.setCookie(c, token, int(ttl.Seconds()))
	c.JSON(http.StatusOK, gin.H{"ok": true, "uid": admin.ID})
}

// Read reports whether the caller holds a valid session. It never returns a
// non-200 status; an absent or invalid cookie yields authenticated=false.
func (h *Handler) Read(c *gin.Context) {
	cookie, errCookie := c.Cookie(h.cfg.CookieName)
	if errCookie != nil || cookie == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	claims, errParse := security.ParseSessionToken(h.cfg.Secret, cookie)
	if errParse != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	admin, errLoad := h.loadSessionAdmin(c, claims)
	if errLoad != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"uid":           admin.ID,
		"email":         admin.Email,
		"name":          admin.DisplayName,
		"customClaims":  admin.Claims(),
	})
}

// Delete revokes the caller's sessions and clears the cookie. Revocation is
// best effort; the cookie is cleared no matter what.
func (h *Handler) Delete(c *gin.Context) {
	if cookie, errCookie := c.Cookie(h.cfg.CookieName); errCookie == nil && cookie != "" {
		if claims, errParse := security.ParseSessionToken(h.cfg.Secret, cookie); errParse == nil {
			now := time.Now().UTC()
			errSave := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
				Where("id = ?", claims.UID).
				Update("sessions_revoked_at", now).Error
			if errSave != nil {
				log.WithError(errSave).Warn("failed to revoke sessions")
			}
		}
	}

	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// loadSessionAdmin resolves token claims against the current account state:
// the account must still exist, be active and have no revocation watermark
// at or after the token's issue time.
func (h *Handler) loadSessionAdmin(c *gin.Context, claims *security.SessionClaims) (*models.Admin, error) {
	var admin models.Admin
	errFind := h.db.WithContext(c.Request.Context()).First(&admin, "id = ?", claims.UID).Error
	if errFind != nil {
		return nil, errFind
	}
	if !admin.Active {
		return nil, errors.New("account disabled")
	}
	if claims.IssuedAt != nil && security.RevokedSince(claims.IssuedAt.Time, admin.SessionsRevokedAt) {
		return nil, errors.New("session revoked")
	}
	return &admin, nil
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	switch strings.ToLower(h.cfg.SameSite) {
	case "lax":
		c.SetSameSite(http.SameSiteLaxMode)
	case "none":
		c.SetSameSite(http.SameSiteNoneMode)
	default:
		c.SetSameSite(http.SameSiteStrictMode)
	}
	c.SetCookie(h.cfg.CookieName, value, maxAge, "/", "", h.cfg.Secure, true)
}

// TOTPPrepare generates a fresh secret for the caller and holds it pending
// confirmation. Nothing is persisted until the caller proves possession.
func (h *Handler) TOTPPrepare(c *gin.Context) {
	email := c.GetString("adminEmail")
	adminID := c.GetString("adminID")

	key, errGen := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: email,
	})
	if errGen != nil {
		log.WithError(errGen).Error("failed to generate totp secret")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate secret"})
		return
	}

	h.pending.Set(adminID, key.Secret())
	c.JSON(http.StatusOK, gin.H{"secret": key.Secret(), "otpauthUrl": key.URL()})
}

type totpConfirmRequest struct {
	Code string `json:"code"`
}

// TOTPConfirm verifies a code against the pending secret and enables TOTP.
func (h *Handler) TOTPConfirm(c *gin.Context) {
	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || strings.TrimSpace(body.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code required"})
		return
	}

	adminID := c.GetString("adminID")
	secret, ok := h.pending.Get(adminID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no pending secret"})
		return
	}
	if !totp.Validate(strings.TrimSpace(body.Code), secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid totp code"})
		return
	}

	errSave := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Update("totp_secret", secret).Error
	if errSave != nil {
		log.WithError(errSave).Error("failed to enable totp")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enable totp"})
		return
	}

	h.pending.Remove(adminID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TOTPDisable removes the caller's TOTP secret.
func (h *Handler) TOTPDisable(c *gin.Context) {
	adminID := c.GetString("adminID")
	errSave := h.db.WithContext(c.Request.Context()).Model(&models.Admin{}).
		Where("id = ?", adminID).
		Update("totp_secret", "").Error
	if errSave != nil {
		log.WithError(errSave).Error("failed to disable totp")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disable totp"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
