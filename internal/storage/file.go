package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// FileStore stores objects on the local filesystem. It cannot mint signed
// URLs, so clients upload through the direct-upload endpoint instead.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a filesystem-backed object store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("storage: base dir is required")
	}
	if errMkdir := os.MkdirAll(baseDir, 0755); errMkdir != nil {
		return nil, fmt.Errorf("storage: create base dir: %w", errMkdir)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (f *FileStore) fullPath(path string) (string, error) {
	if !IsSafePath(path) {
		return "", fmt.Errorf("storage: unsafe path %q", path)
	}
	return filepath.Join(f.baseDir, filepath.FromSlash(path)), nil
}

// SignUpload always fails: the file backend has no signing authority.
func (f *FileStore) SignUpload(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrNoSignedURLs
}

// SignDownload always fails: the file backend has no signing authority.
func (f *FileStore) SignDownload(context.Context, string, time.Duration) (string, error) {
	return "", ErrNoSignedURLs
}

// Put writes object bytes beneath the base directory.
func (f *FileStore) Put(_ context.Context, path, _ string, r io.Reader) error {
	full, errPath := f.fullPath(path)
	if errPath != nil {
		return errPath
	}
	if errMkdir := os.MkdirAll(filepath.Dir(full), 0755); errMkdir != nil {
		return fmt.Errorf("storage: create dir: %w", errMkdir)
	}
	out, errCreate := os.Create(full)
	if errCreate != nil {
		return fmt.Errorf("storage: create %s: %w", path, errCreate)
	}
	defer out.Close()
	if _, errCopy := io.Copy(out, r); errCopy != nil {
		return fmt.Errorf("storage: write %s: %w", path, errCopy)
	}
	return nil
}

// Move relocates a file, preferring rename and falling back to
// copy-then-best-effort-delete across filesystems.
func (f *FileStore) Move(ctx context.Context, src, dst string) (MoveOutcome, error) {
	srcFull, errSrc := f.fullPath(src)
	if errSrc != nil {
		return MoveOutcomeFailed, errSrc
	}
	dstFull, errDst := f.fullPath(dst)
	if errDst != nil {
		return MoveOutcomeFailed, errDst
	}
	if _, errStat := os.Stat(srcFull); os.IsNotExist(errStat) {
		return MoveOutcomeFailed, ErrNotFound
	}
	if errMkdir := os.MkdirAll(filepath.Dir(dstFull), 0755); errMkdir != nil {
		return MoveOutcomeFailed, fmt.Errorf("storage: create dir: %w", errMkdir)
	}

	if errRename := os.Rename(srcFull, dstFull); errRename == nil {
		return MoveOutcomeMoved, nil
	}

	in, errOpen := os.Open(srcFull)
	if errOpen != nil {
		return MoveOutcomeFailed, fmt.Errorf("storage: open %s: %w", src, errOpen)
	}
	defer in.Close()
	if errPut := f.Put(ctx, dst, "", in); errPut != nil {
		return MoveOutcomeFailed, errPut
	}
	if errRemove := os.Remove(srcFull); errRemove != nil {
		log.WithError(errRemove).WithField("path", src).Warn("failed to delete source after copy")
		return MoveOutcomeCopied, nil
	}
	return MoveOutcomeMoved, nil
}

// Delete removes a file.
func (f *FileStore) Delete(_ context.Context, path string) error {
	full, errPath := f.fullPath(path)
	if errPath != nil {
		return errPath
	}
	if errRemove := os.Remove(full); errRemove != nil {
		if os.IsNotExist(errRemove) {
			return ErrNotFound
		}
		return fmt.Errorf("storage: delete %s: %w", path, errRemove)
	}
	return nil
}

// List enumerates files under a prefix.
func (f *FileStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	root := f.baseDir
	errWalk := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, errRel := filepath.Rel(root, path)
		if errRel != nil {
			return errRel
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		out = append(out, ObjectInfo{
			Path:       key,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if errWalk != nil {
		return nil, fmt.Errorf("storage: list %s: %w", prefix, errWalk)
	}
	return out, nil
}

// DirectUpload reports true: clients must PUT through the server.
func (f *FileStore) DirectUpload() bool { return true }
