package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DiskArchive keeps confirmed images in a local directory. It is the archive
// used when no S3 endpoint is configured but ARCHIVE_DIR is.
type DiskArchive struct {
	baseDir string
	mutex   sync.Mutex
}

// NewDiskArchive creates the archive directory if needed
func NewDiskArchive(baseDir string) (*DiskArchive, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("archive directory is not configured")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &DiskArchive{baseDir: baseDir}, nil
}

// Put writes data under key, replacing any previous file
func (a *DiskArchive) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := a.path(key)
	if err != nil {
		return err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move archive file into place: %w", err)
	}
	return nil
}

// Delete removes the file under key. Deleting a missing key succeeds.
func (a *DiskArchive) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := a.path(key)
	if err != nil {
		return err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete archive file: %w", err)
	}
	return nil
}

// path maps a slash-separated key into the archive directory, rejecting
// keys that would escape it
func (a *DiskArchive) path(key string) (string, error) {
	if key == "" || strings.Contains(key, `\`) || !fs.ValidPath(key) || key == "." {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return filepath.Join(a.baseDir, filepath.FromSlash(key)), nil
}
