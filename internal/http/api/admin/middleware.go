// Package admin implements the session-gated back-office API: candidate
// review, resume downloads, candidate deletion and administrator management.
package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/config"
	"github.com/clarion-legal/careers/internal/models"
	"github.com/clarion-legal/careers/internal/security"
)

// Context keys populated by the session middleware.
const (
	ContextAdminID     = "adminID"
	ContextAdminEmail  = "adminEmail"
	ContextAdminClaims = "adminClaims"
)

// RequireSession gates API routes on a valid session cookie. A missing,
// malformed, expired or revoked session yields 401; a valid session whose
// principal lacks the admin claim yields 403. On success the principal's id,
// email and claims are placed on the request context.
func RequireSession(db *gorm.DB, cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, status := resolveSession(c, db, cfg)
		if status != http.StatusOK {
			message := "unauthenticated"
			if status == http.StatusForbidden {
				message = "forbidden"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}
		c.Set(ContextAdminID, claims.UID)
		c.Set(ContextAdminEmail, claims.Email)
		c.Set(ContextAdminClaims, claims)
		c.Next()
	}
}

// RequireSessionPage is the page-route variant: instead of JSON errors it
// redirects the browser to the login page.
func RequireSessionPage(db *gorm.DB, cfg config.SessionConfig, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, status := resolveSession(c, db, cfg)
		if status != http.StatusOK {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Set(ContextAdminID, claims.UID)
		c.Set(ContextAdminEmail, claims.Email)
		c.Set(ContextAdminClaims, claims)
		c.Next()
	}
}

// resolveSession validates the cookie against both the token signature and
// the principal's current state. It returns the claims and an HTTP status:
// 200 on success, 401 for authentication failures, 403 for a valid session
// without the admin claim.
func resolveSession(c *gin.Context, db *gorm.DB, cfg config.SessionConfig) (*security.SessionClaims, int) {
	cookie, errCookie := c.Cookie(cfg.CookieName)
	if errCookie != nil || cookie == "" {
		return nil, http.StatusUnauthorized
	}

	claims, errParse := security.ParseSessionToken(cfg.Secret, cookie)
	if errParse != nil {
		return nil, http.StatusUnauthorized
	}

	var admin models.Admin
	errFind := db.WithContext(c.Request.Context()).First(&admin, "id = ?", claims.UID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, http.StatusUnauthorized
		}
		return nil, http.StatusUnauthorized
	}
	if !admin.Active {
		return nil, http.StatusUnauthorized
	}
	if claims.IssuedAt != nil && security.RevokedSince(claims.IssuedAt.Time, admin.SessionsRevokedAt) {
		return nil, http.StatusUnauthorized
	}
	if !claims.Admin {
		return claims, http.StatusForbidden
	}
	return claims, http.StatusOK
}

// claimsFromContext returns the session claims stored by the middleware.
func claimsFromContext(c *gin.Context) *security.SessionClaims {
	value, ok := c.Get(ContextAdminClaims)
	if !ok {
		return nil
	}
	claims, ok := value.(*security.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}
