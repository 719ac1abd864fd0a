package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/pquerna/otp/totp"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/config"
	"github.com/clarion-legal/careers/internal/http/api/admin"
	"github.com/clarion-legal/careers/internal/models"
	"github.com/clarion-legal/careers/internal/security"
)

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "session-test-secret",
		CookieName: "careers_session",
		TTLHours:   24,
		SameSite:   "strict",
	}
}

func setupSessionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:session_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Admin{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func seedAdmin(t *testing.T, conn *gorm.DB, email, password string) *models.Admin {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	admin := models.Admin{
		ID:           "admin-" + email,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Test Admin",
		Active:       true,
	}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("seed admin: %v", errCreate)
	}
	return &admin
}

func setupSessionRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn := setupSessionTestDB(t)
	cfg := testSessionConfig()
	router := gin.New()
	Register(router, conn, cfg, admin.RequireSession(conn, cfg))
	return router, conn
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, errMarshal := json.Marshal(payload)
		if errMarshal != nil {
			t.Fatalf("marshal: %v", errMarshal)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginAndCreateSession(t *testing.T, router *gin.Engine, email, password string) *http.Cookie {
	t.Helper()

	loginW := doJSON(t, router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    email,
		"password": password,
	}, nil)
	if loginW.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", loginW.Code, loginW.Body.String())
	}
	var loginResp struct {
		IDToken string `json:"idToken"`
	}
	json.Unmarshal(loginW.Body.Bytes(), &loginResp)
	if loginResp.IDToken == "" {
		t.Fatalf("expected idToken")
	}

	createW := doJSON(t, router, http.MethodPost, "/api/session", gin.H{"idToken": loginResp.IDToken}, nil)
	if createW.Code != http.StatusOK {
		t.Fatalf("create session: expected 200, got %d: %s", createW.Code, createW.Body.String())
	}

	for _, cookie := range createW.Result().Cookies() {
		if cookie.Name == testSessionConfig().CookieName {
			if !cookie.HttpOnly {
				t.Fatalf("session cookie must be http-only")
			}
			return cookie
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, conn := setupSessionRouter(t)
	seedAdmin(t, conn, "admin@example.com", "correct-password")

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@example.com",
		"password": "wrong-password",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "nobody@example.com",
		"password": "whatever",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email: expected 401, got %d", w.Code)
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	router, conn := setupSessionRouter(t)
	admin := seedAdmin(t, conn, "admin@example.com", "correct-password")
	conn.Model(admin).Update("active", false)

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@example.com",
		"password": "correct-password",
	}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router, conn := setupSessionRouter(t)
	seedAdmin(t, conn, "admin@example.com", "correct-password")

	cookie := loginAndCreateSession(t, router, "admin@example.com", "correct-password")

	readW := doJSON(t, router, http.MethodGet, "/api/session", nil, cookie)
	if readW.Code != http.StatusOK {
		t.Fatalf("read: expected 200, got %d", readW.Code)
	}
	var readResp map[string]any
	json.Unmarshal(readW.Body.Bytes(), &readResp)
	if readResp["authenticated"] != true {
		t.Fatalf("expected authenticated session: %v", readResp)
	}
	claims, _ := readResp["customClaims"].(map[string]any)
	if claims["admin"] != true {
		t.Fatalf("expected admin claim in customClaims: %v", readResp)
	}
	if readResp["email"] != "admin@example.com" {
		t.Fatalf("unexpected email: %v", readResp)
	}

	// Logout revokes and clears.
	deleteW := doJSON(t, router, http.MethodDelete, "/api/session", nil, cookie)
	if deleteW.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", deleteW.Code)
	}
	cleared := false
	for _, c := range deleteW.Result().Cookies() {
		if c.Name == testSessionConfig().CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout must clear the cookie")
	}

	// The old cookie no longer authenticates.
	readW = doJSON(t, router, http.MethodGet, "/api/session", nil, cookie)
	var afterResp map[string]any
	json.Unmarshal(readW.Body.Bytes(), &afterResp)
	if afterResp["authenticated"] != false {
		t.Fatalf("revoked session must read unauthenticated: %v", afterResp)
	}
}

func TestSessionReadWithoutCookie(t *testing.T) {
	router, _ := setupSessionRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/session", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["authenticated"] != false {
		t.Fatalf("expected authenticated=false, got %v", resp)
	}
}

func TestSessionCreateRejectsGarbageToken(t *testing.T) {
	router, _ := setupSessionRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/session", gin.H{"idToken": "not-a-token"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestTOTPEnrollmentAndLogin(t *testing.T) {
	router, conn := setupSessionRouter(t)
	adminRow := seedAdmin(t, conn, "admin@example.com", "correct-password")
	cookie := loginAndCreateSession(t, router, "admin@example.com", "correct-password")

	prepareW := doJSON(t, router, http.MethodPost, "/api/session/totp/prepare", nil, cookie)
	if prepareW.Code != http.StatusOK {
		t.Fatalf("prepare: expected 200, got %d: %s", prepareW.Code, prepareW.Body.String())
	}
	var prepareResp struct {
		Secret string `json:"secret"`
	}
	json.Unmarshal(prepareW.Body.Bytes(), &prepareResp)
	if prepareResp.Secret == "" {
		t.Fatalf("expected pending secret")
	}

	// Nothing persisted until confirmation.
	var check models.Admin
	conn.First(&check, "id = ?", adminRow.ID)
	if check.TOTPSecret != "" {
		t.Fatalf("secret must not persist before confirm")
	}

	code, errCode := totp.GenerateCode(prepareResp.Secret, time.Now())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	confirmW := doJSON(t, router, http.MethodPost, "/api/session/totp/confirm", gin.H{"code": code}, cookie)
	if confirmW.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", confirmW.Code, confirmW.Body.String())
	}
	conn.First(&check, "id = ?", adminRow.ID)
	if check.TOTPSecret == "" {
		t.Fatalf("secret must persist after confirm")
	}

	// Password alone no longer logs in.
	w := doJSON(t, router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@example.com",
		"password": "correct-password",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without totp code, got %d", w.Code)
	}

	loginCode, _ := totp.GenerateCode(check.TOTPSecret, time.Now())
	w = doJSON(t, router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "admin@example.com",
		"password": "correct-password",
		"totpCode": loginCode,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with totp code, got %d: %s", w.Code, w.Body.String())
	}
}
