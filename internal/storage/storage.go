// Package storage abstracts the object store holding candidate resumes.
//
// Two backends exist: S3-compatible object storage (signed upload/download
// URLs) and a local filesystem store for constrained environments, which
// cannot presign and instead routes uploads through the direct-upload
// endpoint.
package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Object path layout. Uploads land under the temporary prefix and are
// relocated beneath the owning candidate id on submission.
const (
	TempPrefix      = "candidates/temp/"
	CandidatePrefix = "candidates/"
)

// SignedURLTTL bounds the validity of upload and download URLs.
const SignedURLTTL = 10 * time.Minute

// ErrNoSignedURLs is returned by backends that cannot mint signed URLs.
var ErrNoSignedURLs = errors.New("storage: backend does not support signed urls")

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// MoveOutcome describes how a relocation completed.
type MoveOutcome string

const (
	// MoveOutcomeMoved means the object now exists only at the destination.
	MoveOutcomeMoved MoveOutcome = "moved"
	// MoveOutcomeCopied means the destination was written but the source
	// could not be removed; both copies may exist.
	MoveOutcomeCopied MoveOutcome = "copied"
	// MoveOutcomeFailed means the destination was not written.
	MoveOutcomeFailed MoveOutcome = "failed"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Path       string
	Size       int64
	ModifiedAt time.Time
}

// ObjectStore is the interface both backends implement.
type ObjectStore interface {
	// SignUpload returns a time-boxed URL accepting a PUT of the object
	// bytes, or ErrNoSignedURLs when the backend requires direct upload.
	SignUpload(ctx context.Context, path, contentType string, ttl time.Duration) (string, error)

	// SignDownload returns a time-boxed read URL for an existing object.
	SignDownload(ctx context.Context, path string, ttl time.Duration) (string, error)

	// Put writes object bytes directly. Used by the direct-upload endpoint.
	Put(ctx context.Context, path, contentType string, r io.Reader) error

	// Move relocates an object, preferring an atomic primitive and falling
	// back to copy-then-best-effort-delete. The outcome is always returned,
	// with a non-nil error only for MoveOutcomeFailed.
	Move(ctx context.Context, src, dst string) (MoveOutcome, error)

	// Delete removes an object.
	Delete(ctx context.Context, path string) error

	// List enumerates objects under a prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// DirectUpload reports whether uploads must go through the
	// direct-upload endpoint instead of a signed URL.
	DirectUpload() bool
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFileName reduces a client-supplied file name to a safe basename.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "upload.bin"
	}
	return name
}

// TempUploadPath builds a collision-safe temporary path for an incoming file,
// stamped with the request time.
func TempUploadPath(fileName string, now time.Time) string {
	return TempPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + SanitizeFileName(fileName)
}

// PermanentPath builds the final path of an attachment under its candidate.
func PermanentPath(candidateID, fileName string) string {
	return CandidatePrefix + candidateID + "/" + SanitizeFileName(fileName)
}

// NormalizePath strips a leading slash, mirroring how clients sometimes echo
// storage paths back.
func NormalizePath(path string) string {
	return strings.TrimPrefix(strings.TrimSpace(path), "/")
}

// IsSafePath rejects empty paths and traversal attempts.
func IsSafePath(path string) bool {
	if path == "" {
		return false
	}
	if strings.Contains(path, "..") {
		return false
	}
	return !strings.HasPrefix(path, "/")
}

// BaseName returns the final path segment.
func BaseName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
