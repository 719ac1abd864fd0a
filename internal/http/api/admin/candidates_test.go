package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/models"
	"github.com/clarion-legal/careers/internal/storage"
)

func seedCandidate(t *testing.T, conn *gorm.DB, id, name, email string) *models.Candidate {
	t.Helper()
	candidate := models.Candidate{
		ID:              id,
		FullName:        name,
		Email:           email,
		PositionApplied: "civil",
		Status:          models.StatusSubmitted,
	}
	if errCreate := conn.Create(&candidate).Error; errCreate != nil {
		t.Fatalf("seed candidate: %v", errCreate)
	}
	return &candidate
}

func TestCandidateListShapeAndOrder(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	adminRow := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, adminRow)

	first := seedCandidate(t, conn, "c1", "Ana Souza", "ana@example.com")
	conn.Model(first).Update("created_at", time.Now().Add(-time.Hour))
	seedCandidate(t, conn, "c2", "Bruno Lima", "bruno@example.com")

	answers := datatypes.JSON(`{"0":"A","1":"B"}`)
	result := models.ProfileTestResult{ID: "r1", CandidateID: &first.ID, Answers: answers}
	if errCreate := conn.Create(&result).Error; errCreate != nil {
		t.Fatalf("seed result: %v", errCreate)
	}

	w := adminRequest(t, router, http.MethodGet, "/api/admin/candidates", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Candidates []map[string]any `json:"candidates"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if len(resp.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(resp.Candidates))
	}
	if resp.Candidates[0]["id"] != "c2" {
		t.Fatalf("expected newest first, got %v", resp.Candidates[0]["id"])
	}

	var ana map[string]any
	for _, row := range resp.Candidates {
		if row["id"] == "c1" {
			ana = row
		}
	}
	if ana["areaOfInterest"] != "Civil Law" {
		t.Fatalf("area label = %v", ana["areaOfInterest"])
	}
	testAnswers, ok := ana["testAnswers"].(map[string]any)
	if !ok || testAnswers["0"] != "A" {
		t.Fatalf("test answers = %v", ana["testAnswers"])
	}
}

func TestCandidateListFilter(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	adminRow := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, adminRow)

	seedCandidate(t, conn, "c1", "Ana Souza", "ana@example.com")
	seedCandidate(t, conn, "c2", "Bruno Lima", "bruno@example.com")

	w := adminRequest(t, router, http.MethodGet, "/api/admin/candidates?q=ANA", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Candidates []map[string]any `json:"candidates"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Candidates) != 1 || resp.Candidates[0]["id"] != "c1" {
		t.Fatalf("filter mismatch: %v", resp.Candidates)
	}
}

func TestCandidateDeleteRemovesFilesAndRows(t *testing.T) {
	router, conn, store := setupAdminRouter(t)
	adminRow := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, adminRow)

	path := "candidates/c1/resume.pdf"
	if errPut := store.Put(context.Background(), path, "application/pdf", strings.NewReader("pdf")); errPut != nil {
		t.Fatalf("put: %v", errPut)
	}

	candidate := seedCandidate(t, conn, "c1", "Ana Souza", "ana@example.com")
	attachments, _ := json.Marshal([]models.Attachment{{Name: "resume.pdf", StoragePath: path, Moved: true}})
	conn.Model(candidate).Update("attachments", datatypes.JSON(attachments))

	result := models.ProfileTestResult{ID: "r1", CandidateID: &candidate.ID, Answers: datatypes.JSON(`{}`)}
	conn.Create(&result)

	w := adminRequest(t, router, http.MethodDelete, "/api/admin/candidates?id=c1", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success      bool `json:"success"`
		DeletedFiles []struct {
			Path string `json:"path"`
			OK   bool   `json:"ok"`
		} `json:"deletedFiles"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if !resp.Success {
		t.Fatalf("expected success")
	}
	if len(resp.DeletedFiles) != 1 || !resp.DeletedFiles[0].OK || resp.DeletedFiles[0].Path != path {
		t.Fatalf("deleted files = %+v", resp.DeletedFiles)
	}

	if errFind := conn.First(&models.Candidate{}, "id = ?", "c1").Error; !errors.Is(errFind, gorm.ErrRecordNotFound) {
		t.Fatalf("candidate row must be gone, got %v", errFind)
	}
	if errFind := conn.First(&models.ProfileTestResult{}, "candidate_id = ?", "c1").Error; !errors.Is(errFind, gorm.ErrRecordNotFound) {
		t.Fatalf("profile test rows must be gone, got %v", errFind)
	}
	if errDelete := store.Delete(context.Background(), path); errDelete == nil {
		t.Fatalf("stored file must be gone")
	}

	var audit models.AuditLog
	if errFind := conn.First(&audit, "action = ?", models.AuditDeleteCandidate).Error; errFind != nil {
		t.Fatalf("audit row missing: %v", errFind)
	}
	if audit.ActorID != "a1" || audit.TargetID != "c1" {
		t.Fatalf("audit row = %+v", audit)
	}
}

func TestCandidateDeleteReportsMissingFileAsFailure(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	adminRow := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, adminRow)

	candidate := seedCandidate(t, conn, "c1", "Ana Souza", "ana@example.com")
	attachments, _ := json.Marshal([]models.Attachment{{Name: "ghost.pdf", StoragePath: "candidates/c1/ghost.pdf"}})
	conn.Model(candidate).Update("attachments", datatypes.JSON(attachments))

	w := adminRequest(t, router, http.MethodDelete, "/api/admin/candidates",
		map[string]string{"id": "c1"}, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success      bool `json:"success"`
		DeletedFiles []struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		} `json:"deletedFiles"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success {
		t.Fatalf("rows must still be removed: %s", w.Body.String())
	}
	if len(resp.DeletedFiles) != 1 || resp.DeletedFiles[0].OK || resp.DeletedFiles[0].Error == "" {
		t.Fatalf("missing object must report a failed delete: %+v", resp.DeletedFiles)
	}
	if errFind := conn.First(&models.Candidate{}, "id = ?", "c1").Error; !errors.Is(errFind, gorm.ErrRecordNotFound) {
		t.Fatalf("candidate row must be gone, got %v", errFind)
	}
}

func TestCandidateDeleteUnknownIs404(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	adminRow := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, adminRow)

	w := adminRequest(t, router, http.MethodDelete, "/api/admin/candidates?id=nope", nil, cookie)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDownloadRejectsUnsafePath(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	adminRow := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, adminRow)

	for _, path := range []string{"", "../secrets", "candidates/../../etc/passwd"} {
		w := adminRequest(t, router, http.MethodPost, "/api/admin/careers/download",
			map[string]string{"storagePath": path}, cookie)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("path %q: expected 400, got %d", path, w.Code)
		}
	}
}

func TestDownloadFileBackendHasNoSignedURLs(t *testing.T) {
	router, conn, _ := setupAdminRouter(t)
	adminRow := seedAdminRow(t, conn, "a1", "a1@example.com", nil)
	cookie := sessionCookie(t, adminRow)

	w := adminRequest(t, router, http.MethodPost, "/api/admin/careers/download",
		map[string]string{"storagePath": "candidates/c1/resume.pdf"}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsignable backend, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "signed downloads not available") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

// Verify a stale delete honors the backoff schedule shape rather than
// retrying forever.
func TestDeleteWithRetryGivesUpAfterAttempts(t *testing.T) {
	t.Parallel()

	handler := &CandidatesHandler{store: failingStore{}}
	start := time.Now()
	errDelete := handler.deleteWithRetry(context.Background(), "candidates/x/y.pdf")
	elapsed := time.Since(start)

	if errDelete == nil {
		t.Fatalf("expected terminal error")
	}
	// Two backoff sleeps: 200ms + 400ms.
	if elapsed < 600*time.Millisecond {
		t.Fatalf("backoff too short: %v", elapsed)
	}
}

type failingStore struct{}

func (failingStore) SignUpload(context.Context, string, string, time.Duration) (string, error) {
	return "", storage.ErrNoSignedURLs
}
func (failingStore) SignDownload(context.Context, string, time.Duration) (string, error) {
	return "", storage.ErrNoSignedURLs
}
func (failingStore) Put(context.Context, string, string, io.Reader) error {
	return errFailingStore
}
func (failingStore) Move(context.Context, string, string) (storage.MoveOutcome, error) {
	return storage.MoveOutcomeFailed, errFailingStore
}
func (failingStore) Delete(context.Context, string) error { return errFailingStore }
func (failingStore) List(context.Context, string) ([]storage.ObjectInfo, error) {
	return nil, errFailingStore
}
func (failingStore) DirectUpload() bool { return false }

var errFailingStore = errors.New("store unavailable")
