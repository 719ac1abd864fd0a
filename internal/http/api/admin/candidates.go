package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/careers"
	"github.com/clarion-legal/careers/internal/db"
	"github.com/clarion-legal/careers/internal/models"
	"github.com/clarion-legal/careers/internal/storage"
)

// Attachment delete retry policy: deleteAttempts tries with exponential
// backoff starting at deleteBackoffBase.
const (
	deleteAttempts    = 3
	deleteBackoffBase = 200 * time.Millisecond
)

// CandidatesHandler serves the candidate-review endpoints.
type CandidatesHandler struct {
	db    *gorm.DB
	store storage.ObjectStore
}

// NewCandidatesHandler constructs a CandidatesHandler.
func NewCandidatesHandler(db *gorm.DB, store storage.ObjectStore) *CandidatesHandler {
	return &CandidatesHandler{db: db, store: store}
}

// List returns all candidates newest first, each merged with its first
// attachment and latest profile-test result. An optional q parameter
// filters by name or email, case-insensitively.
func (h *CandidatesHandler) List(c *gin.Context) {
	var candidates []models.Candidate
	tx := h.db.WithContext(c.Request.Context()).Order("created_at DESC")
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+q+"%")
		tx = tx.Where(
			fmt.Sprintf("%s OR %s",
				db.CaseInsensitiveLikeExpr(h.db, "full_name"),
				db.CaseInsensitiveLikeExpr(h.db, "email")),
			pattern, pattern,
		)
	}
	if errFind := tx.Find(&candidates).Error; errFind != nil {
		log.WithError(errFind).Error("failed to list candidates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list candidates"})
		return
	}

	items := make([]gin.H, 0, len(candidates))
	for i := range candidates {
		items = append(items, h.candidateView(c.Request.Context(), &candidates[i]))
	}
	c.JSON(http.StatusOK, gin.H{"candidates": items})
}

// candidateView flattens one candidate row into the review-table shape.
func (h *CandidatesHandler) candidateView(ctx context.Context, candidate *models.Candidate) gin.H {
	view := gin.H{
		"id":             candidate.ID,
		"fullName":       candidate.FullName,
		"email":          candidate.Email,
		"phone":          candidate.Phone,
		"areaOfInterest": careers.AreaLabel(candidate.PositionApplied),
		"experience":     candidate.Experience,
		"coverLetter":    candidate.CoverLetter,
		"privacyConsent": candidate.PrivacyConsent,
		"status":         candidate.Status,
		"submittedAt":    candidate.CreatedAt,
	}

	if attachments := parseAttachments(candidate.Attachments); len(attachments) > 0 {
		view["resumeFileName"] = attachments[0].Name
		view["resumeStoragePath"] = attachments[0].StoragePath
		if attachments[0].MoveFailed {
			view["resumeMoveFailed"] = true
		}
	}

	var result models.ProfileTestResult
	errFind := h.db.WithContext(ctx).
		Where("candidate_id = ?", candidate.ID).
		Order("created_at DESC").
		First(&result).Error
	if errFind == nil {
		var answers map[string]string
		if errParse := json.Unmarshal(result.Answers, &answers); errParse == nil {
			view["testAnswers"] = answers
		}
		if result.Score != nil {
			view["testScore"] = *result.Score
		}
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		log.WithError(errFind).WithField("candidate", candidate.ID).Warn("failed to load profile test")
	}

	return view
}

type downloadRequest struct {
	StoragePath string `json:"storagePath"`
}

// Download exchanges a stored attachment path for a short-lived read URL.
func (h *CandidatesHandler) Download(c *gin.Context) {
	var body downloadRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "storagePath required"})
		return
	}

	path := storage.NormalizePath(body.StoragePath)
	if path == "" || !storage.IsSafePath(path) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid storage path"})
		return
	}

	signed, errSign := h.store.SignDownload(c.Request.Context(), path, storage.SignedURLTTL)
	if errSign != nil {
		if errors.Is(errSign, storage.ErrNoSignedURLs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "signed downloads not available"})
			return
		}
		log.WithError(errSign).Error("failed to create signed download url")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create download url"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"downloadUrl": signed})
}

// Delete removes a candidate, its profile-test results and its stored
// files. Each file delete is retried with backoff; per-file outcomes are
// reported so the operator can follow up on stragglers. The database rows
// are removed even when a file delete keeps failing.
func (h *CandidatesHandler) Delete(c *gin.Context) {
	candidateID := strings.TrimSpace(c.Query("id"))
	if candidateID == "" {
		var body struct {
			ID string `json:"id"`
		}
		if errBind := c.ShouldBindJSON(&body); errBind == nil {
			candidateID = strings.TrimSpace(body.ID)
		}
	}
	if candidateID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "candidate id required"})
		return
	}

	var candidate models.Candidate
	errFind := h.db.WithContext(c.Request.Context()).First(&candidate, "id = ?", candidateID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "candidate not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete candidate"})
		return
	}

	deletedFiles := make([]gin.H, 0)
	for _, attachment := range parseAttachments(candidate.Attachments) {
		path := storage.NormalizePath(attachment.StoragePath)
		if path == "" {
			continue
		}
		entry := gin.H{"path": path, "ok": true}
		if errDelete := h.deleteWithRetry(c.Request.Context(), path); errDelete != nil {
			entry["ok"] = false
			entry["error"] = errDelete.Error()
			log.WithError(errDelete).WithField("path", path).Warn("attachment delete failed")
		}
		deletedFiles = append(deletedFiles, entry)
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errResults := tx.Where("candidate_id = ?", candidateID).
			Delete(&models.ProfileTestResult{}).Error; errResults != nil {
			return errResults
		}
		return tx.Delete(&models.Candidate{}, "id = ?", candidateID).Error
	})
	if errTx != nil {
		log.WithError(errTx).Error("failed to delete candidate")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete candidate"})
		return
	}

	writeAudit(c, h.db, models.AuditDeleteCandidate, candidateID, candidate.Email, gin.H{
		"fullName":     candidate.FullName,
		"deletedFiles": deletedFiles,
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "deletedFiles": deletedFiles})
}

// deleteWithRetry attempts an object delete up to deleteAttempts times with
// exponential backoff. A missing object is retried like any other failure
// and ends up in the per-file report for the operator.
func (h *CandidatesHandler) deleteWithRetry(ctx context.Context, path string) error {
	var lastErr error
	backoff := deleteBackoffBase
	for attempt := 0; attempt < deleteAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		errDelete := h.store.Delete(ctx, path)
		if errDelete == nil {
			return nil
		}
		lastErr = errDelete
	}
	return lastErr
}

func parseAttachments(raw []byte) []models.Attachment {
	if len(raw) == 0 {
		return nil
	}
	var attachments []models.Attachment
	if errParse := json.Unmarshal(raw, &attachments); errParse != nil {
		log.WithError(errParse).Warn("malformed attachments column")
		return nil
	}
	return attachments
}
