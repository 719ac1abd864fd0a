// Package public exposes the unauthenticated careers API: candidate
// submission, profile-test submission and resume upload.
package public

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/models"
	"github.com/clarion-legal/careers/internal/storage"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CareersHandler serves the public candidate-submission endpoints.
type CareersHandler struct {
	db    *gorm.DB
	store storage.ObjectStore
}

// NewCareersHandler constructs a CareersHandler.
func NewCareersHandler(db *gorm.DB, store storage.ObjectStore) *CareersHandler {
	return &CareersHandler{db: db, store: store}
}

// Register mounts the public careers routes.
func Register(r *gin.Engine, db *gorm.DB, store storage.ObjectStore) {
	h := NewCareersHandler(db, store)
	careers := r.Group("/api/careers")
	careers.POST("/upload-url", h.UploadURL)
	careers.POST("/upload-direct", h.UploadDirect)
	careers.POST("/submit", h.Submit)
	careers.POST("/profile", h.Profile)
}

// uploadURLRequest defines the request body for upload-location requests.
type uploadURLRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

// UploadURL returns a time-boxed write location for a resume file. The path
// is namespaced under the temporary prefix and stamped with the request time.
func (h *CareersHandler) UploadURL(c *gin.Context) {
	var body uploadURLRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	fileName := strings.TrimSpace(body.FileName)
	if fileName == "" {
		fileName = "upload.bin"
	}
	contentType := strings.TrimSpace(body.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	path := storage.TempUploadPath(fileName, time.Now())

	if h.store.DirectUpload() {
		c.JSON(http.StatusOK, gin.H{
			"uploadUrl":    "/api/careers/upload-direct",
			"storagePath":  path,
			"emulatorMode": true,
		})
		return
	}

	signed, errSign := h.store.SignUpload(c.Request.Context(), path, contentType, storage.SignedURLTTL)
	if errSign != nil {
		log.WithError(errSign).Error("failed to create signed upload url")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create signed url"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploadUrl": signed, "storagePath": path})
}

// UploadDirect accepts multipart file bytes when the backend cannot presign.
func (h *CareersHandler) UploadDirect(c *gin.Context) {
	if !h.store.DirectUpload() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direct upload not enabled"})
		return
	}

	file, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file found"})
		return
	}
	if strings.TrimSpace(file.Filename) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file name required"})
		return
	}

	src, errOpen := file.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	path := storage.TempUploadPath(file.Filename, time.Now())
	if errPut := h.store.Put(c.Request.Context(), path, contentType, src); errPut != nil {
		log.WithError(errPut).Error("direct upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"storagePath": path,
		"fileName":    storage.SanitizeFileName(file.Filename),
	})
}

// submitRequest defines the request body for candidate submission. Clients
// send either fullName or the firstName/lastName pair.
type submitRequest struct {
	FullName        string `json:"fullName"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	PositionApplied string `json:"positionApplied"`
	Experience      string `json:"experience"`
	CoverLetter     string `json:"coverLetter"`
	PrivacyConsent  bool   `json:"privacyConsent"`
	StoragePath     string `json:"storagePath"`
}

func (r *submitRequest) name() string {
	if full := strings.TrimSpace(r.FullName); full != "" {
		return full
	}
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// Submit validates and persists one candidate application. A supplied
// temporary storage path is relocated beneath the new candidate id;
// relocation failure is recorded on the attachment, never propagated —
// the candidate record is created regardless.
func (h *CareersHandler) Submit(c *gin.Context) {
	var body submitRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	name := body.name()
	email := strings.TrimSpace(body.Email)
	if name == "" || !emailRe.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	candidate := models.Candidate{
		ID:              uuid.NewString(),
		FullName:        name,
		Email:           email,
		Phone:           strings.TrimSpace(body.Phone),
		PositionApplied: strings.TrimSpace(body.PositionApplied),
		Experience:      body.Experience,
		CoverLetter:     body.CoverLetter,
		PrivacyConsent:  body.PrivacyConsent,
		Status:          models.StatusSubmitted,
	}

	if tempPath := storage.NormalizePath(body.StoragePath); tempPath != "" {
		candidate.Attachments = h.relocateAttachment(c, candidate.ID, tempPath)
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&candidate).Error; errCreate != nil {
		log.WithError(errCreate).Error("failed to create candidate")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit candidate"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"candidateId": candidate.ID})
}

// relocateAttachment moves an uploaded file to its permanent path and returns
// the attachment array to store on the candidate.
func (h *CareersHandler) relocateAttachment(c *gin.Context, candidateID, tempPath string) datatypes.JSON {
	fileName := storage.BaseName(tempPath)
	attachment := models.Attachment{
		Name:       fileName,
		UploadedAt: time.Now().UTC(),
	}

	if !storage.IsSafePath(tempPath) {
		attachment.StoragePath = tempPath
		attachment.MoveFailed = true
		log.WithField("path", tempPath).Warn("rejected unsafe attachment path")
		return marshalAttachments(attachment)
	}

	finalPath := storage.PermanentPath(candidateID, fileName)
	outcome, errMove := h.store.Move(c.Request.Context(), tempPath, finalPath)
	switch outcome {
	case storage.MoveOutcomeMoved, storage.MoveOutcomeCopied:
		attachment.StoragePath = finalPath
		attachment.Moved = true
	default:
		log.WithError(errMove).WithField("path", tempPath).Error("file move error")
		attachment.StoragePath = tempPath
		attachment.MoveFailed = true
	}
	return marshalAttachments(attachment)
}

func marshalAttachments(attachments ...models.Attachment) datatypes.JSON {
	data, errMarshal := json.Marshal(attachments)
	if errMarshal != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

// profileRequest defines the request body for profile-test submission.
// Answers must be a string-keyed mapping of string values; anything else is
// rejected rather than probed.
type profileRequest struct {
	CandidateID string            `json:"candidateId"`
	Answers     map[string]string `json:"answers"`
}

// Profile persists one completed profile test. With a candidate id the
// result is nested under that candidate; without one it lands in the holding
// area for later manual association.
func (h *CareersHandler) Profile(c *gin.Context) {
	var body profileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if body.Answers == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result := models.ProfileTestResult{ID: uuid.NewString()}

	if candidateID := strings.TrimSpace(body.CandidateID); candidateID != "" {
		var candidate models.Candidate
		errFind := h.db.WithContext(c.Request.Context()).
			Select("id").First(&candidate, "id = ?", candidateID).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "candidate not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit profile test"})
			return
		}
		result.CandidateID = &candidate.ID
	}

	answersJSON, errMarshal := json.Marshal(body.Answers)
	if errMarshal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit profile test"})
		return
	}
	result.Answers = datatypes.JSON(answersJSON)

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&result).Error; errCreate != nil {
		log.WithError(errCreate).Error("failed to store profile test")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit profile test"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
