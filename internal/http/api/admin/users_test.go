package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/models"
)

func TestUserCreateAndList(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	actor := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, actor)

	w := adminRequest(t, router, http.MethodPost, "/api/admin/users", gin.H{
		"email":       "New.Admin@Example.com",
		"password":    "secret-pass",
		"displayName": "New Admin",
		"role":        "restrictedAdmin",
	}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var created models.Admin
	if errFind := conn.First(&created, "email = ?", "new.admin@example.com").Error; errFind != nil {
		t.Fatalf("created admin missing: %v", errFind)
	}
	if !created.IsRestrictedAdmin || created.IsSuperAdmin {
		t.Fatalf("unexpected role flags: %+v", created)
	}
	if created.PasswordHash == "secret-pass" {
		t.Fatalf("password stored in clear")
	}

	listW := adminRequest(t, router, http.MethodGet, "/api/admin/users", nil, cookie)
	if listW.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", listW.Code)
	}
	var listResp struct {
		Users []map[string]any `json:"users"`
	}
	json.Unmarshal(listW.Body.Bytes(), &listResp)
	if len(listResp.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(listResp.Users))
	}

	var audit models.AuditLog
	if errFind := conn.First(&audit, "action = ?", models.AuditCreateAdmin).Error; errFind != nil {
		t.Fatalf("audit row missing: %v", errFind)
	}
	if audit.ActorID != "a1" || audit.TargetEmail != "new.admin@example.com" {
		t.Fatalf("audit row = %+v", audit)
	}
}

func TestUserCreateValidation(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	actor := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, actor)

	cases := []gin.H{
		{"email": "bad-email", "password": "secret-pass"},
		{"email": "ok@example.com", "password": "short"},
		{"email": "ok@example.com", "password": "secret-pass", "role": "owner"},
	}
	for i, payload := range cases {
		if w := adminRequest(t, router, http.MethodPost, "/api/admin/users", payload, cookie); w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d", i, w.Code)
		}
	}

	seedAdminRow(t, conn, "a2", "taken@example.com", nil)
	w := adminRequest(t, router, http.MethodPost, "/api/admin/users", gin.H{
		"email":    "taken@example.com",
		"password": "secret-pass",
	}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email: expected 400, got %d", w.Code)
	}
}

func TestRestrictedAdminCannotManageUsers(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	restricted := seedAdminRow(t, conn, "r1", "r1@example.com", func(a *models.Admin) {
		a.IsRestrictedAdmin = true
	})
	seedAdminRow(t, conn, "a2", "a2@example.com", nil)
	cookie := sessionCookie(t, restricted)

	w := adminRequest(t, router, http.MethodPost, "/api/admin/users", gin.H{
		"email":    "x@example.com",
		"password": "secret-pass",
	}, cookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("create: expected 403, got %d", w.Code)
	}

	w = adminRequest(t, router, http.MethodDelete, "/api/admin/users", gin.H{"uid": "a2"}, cookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("delete: expected 403, got %d", w.Code)
	}

	// Read access is untouched.
	if w := adminRequest(t, router, http.MethodGet, "/api/admin/users", nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
}

func TestOnlySuperAdminCreatesSuperAdmins(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	plain := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	super := seedAdminRow(t, conn, "s1", "s1@example.com", func(a *models.Admin) {
		a.IsSuperAdmin = true
	})

	payload := gin.H{"email": "boss@example.com", "password": "secret-pass", "role": "superAdmin"}

	if w := adminRequest(t, router, http.MethodPost, "/api/admin/users", payload, sessionCookie(t, plain)); w.Code != http.StatusForbidden {
		t.Fatalf("plain admin: expected 403, got %d", w.Code)
	}
	if w := adminRequest(t, router, http.MethodPost, "/api/admin/users", payload, sessionCookie(t, super)); w.Code != http.StatusOK {
		t.Fatalf("super admin: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUserDeleteGuards(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	actor := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	super := seedAdminRow(t, conn, "s1", "s1@example.com", func(a *models.Admin) {
		a.IsSuperAdmin = true
	})
	victim := seedAdminRow(t, conn, "v1", "v1@example.com", nil)
	cookie := sessionCookie(t, actor)

	// Self-deletion is refused.
	if w := adminRequest(t, router, http.MethodDelete, "/api/admin/users", gin.H{"uid": actor.ID}, cookie); w.Code != http.StatusForbidden {
		t.Fatalf("self delete: expected 403, got %d", w.Code)
	}

	// Super admins are protected.
	if w := adminRequest(t, router, http.MethodDelete, "/api/admin/users", gin.H{"uid": super.ID}, cookie); w.Code != http.StatusForbidden {
		t.Fatalf("super delete: expected 403, got %d", w.Code)
	}

	// Unknown account.
	if w := adminRequest(t, router, http.MethodDelete, "/api/admin/users", gin.H{"uid": "nope"}, cookie); w.Code != http.StatusNotFound {
		t.Fatalf("unknown delete: expected 404, got %d", w.Code)
	}

	// A regular delete works and is audited.
	if w := adminRequest(t, router, http.MethodDelete, "/api/admin/users", gin.H{"uid": victim.ID}, cookie); w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	if errFind := conn.First(&models.Admin{}, "id = ?", victim.ID).Error; !errors.Is(errFind, gorm.ErrRecordNotFound) {
		t.Fatalf("victim row must be gone, got %v", errFind)
	}
	var audit models.AuditLog
	if errFind := conn.First(&audit, "action = ?", models.AuditDeleteAdmin).Error; errFind != nil {
		t.Fatalf("audit row missing: %v", errFind)
	}
	if audit.TargetID != victim.ID {
		t.Fatalf("audit row = %+v", audit)
	}
}
