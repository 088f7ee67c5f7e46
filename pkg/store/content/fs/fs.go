// Package fs implements filesystem-based content storage.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Lawliet-Chan/offchain-storage/pkg/store/content"
	"github.com/Lawliet-Chan/offchain-storage/pkg/store/metadata"
)

// tempPrefix marks in-flight writes. Identifiers may not use it for their
// final path component.
const tempPrefix = ".offchain-tmp-"

// FSContentStoreConfig contains configuration for the filesystem store.
type FSContentStoreConfig struct {
	// Path is the root directory for payload files
	Path string `mapstructure:"path"`

	// DirMode is the permission used for created directories (default: 0755)
	DirMode os.FileMode `mapstructure:"dir_mode"`

	// FileMode is the permission used for payload files (default: 0644)
	FileMode os.FileMode `mapstructure:"file_mode"`
}

// FSContentStore implements content.Store using the local filesystem.
//
// The identifier is interpreted as a relative, slash-separated UTF-8 path
// under the base directory. Identifiers that are not valid UTF-8, are
// absolute, or would escape the base directory are rejected with
// content.ErrInvalidIdentifier.
//
// Writes go to a temporary file in the target directory and are renamed into
// place, so a reader never observes a partially written payload.
//
// Thread Safety:
// Safe for concurrent use. Concurrent writes to the same identifier are
// last-rename-wins.
type FSContentStore struct {
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
}

// NewFSContentStore creates a filesystem store rooted at cfg.Path.
//
// The base directory is created if it doesn't exist.
//
// Parameters:
//   - ctx: Context for cancellation (checked before touching the filesystem)
//   - cfg: Store configuration
//
// Returns:
//   - *FSContentStore: Initialized store
//   - error: If the path is empty, cannot be created, or ctx is cancelled
func NewFSContentStore(ctx context.Context, cfg FSContentStoreConfig) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	dirMode := cfg.DirMode
	if dirMode == 0 {
		dirMode = 0755
	}
	fileMode := cfg.FileMode
	if fileMode == 0 {
		fileMode = 0644
	}

	basePath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	if err := os.MkdirAll(basePath, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSContentStore{
		basePath: basePath,
		dirMode:  dirMode,
		fileMode: fileMode,
	}, nil
}

// BasePath returns the root directory of the store.
func (r *FSContentStore) BasePath() string {
	return r.basePath
}

// filePath maps id to an absolute path under the base directory.
//
// Only canonical slash-separated paths are accepted, so two distinct
// identifiers never name the same file ("doc", "./doc" and "doc/" are
// different identifiers, and only the first is valid here). Case-insensitive
// filesystems still fold case; use a case-sensitive volume for the root.
//
// This performs no I/O.
func (r *FSContentStore) filePath(id metadata.Identifier) (string, error) {
	s := string(id)

	if s == "" {
		return "", fmt.Errorf("empty identifier: %w", content.ErrInvalidIdentifier)
	}
	if !utf8.ValidString(s) || strings.ContainsRune(s, 0) {
		return "", fmt.Errorf("identifier %s is not a valid path: %w", id, content.ErrInvalidIdentifier)
	}

	if path.Clean(s) != s {
		return "", fmt.Errorf("identifier %q is not a canonical path: %w", s, content.ErrInvalidIdentifier)
	}
	if filepath.Separator != '/' && strings.ContainsRune(s, filepath.Separator) {
		return "", fmt.Errorf("identifier %q contains a path separator: %w", s, content.ErrInvalidIdentifier)
	}

	rel := filepath.FromSlash(s)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("identifier %q escapes the store root: %w", s, content.ErrInvalidIdentifier)
	}
	if strings.HasPrefix(filepath.Base(rel), tempPrefix) {
		return "", fmt.Errorf("identifier %q uses a reserved name: %w", s, content.ErrInvalidIdentifier)
	}

	return filepath.Join(r.basePath, rel), nil
}

func (r *FSContentStore) Get(ctx context.Context, id metadata.Identifier) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := r.filePath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}

	return data, nil
}

// Set writes data atomically.
//
// The payload is written to a temp file in the destination directory,
// synced, then renamed over the destination.
func (r *FSContentStore) Set(ctx context.Context, id metadata.Identifier, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.filePath(id)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, r.dirMode); err != nil {
		return fmt.Errorf("failed to create content directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync content: %w", err)
	}
	if err := tmp.Chmod(r.fileMode); err != nil {
		cleanup()
		return fmt.Errorf("failed to set content mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close content file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit content: %w", err)
	}

	return nil
}

// Delete removes the payload file. A missing file is not an error.
func (r *FSContentStore) Delete(ctx context.Context, id metadata.Identifier) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.filePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete content file: %w", err)
	}

	return nil
}

// Healthcheck verifies the base directory is still a directory.
func (r *FSContentStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(r.basePath)
	if err != nil {
		return fmt.Errorf("content directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("content path %s is not a directory", r.basePath)
	}
	return nil
}

// Close is a no-op; the store holds no open descriptors between calls.
func (r *FSContentStore) Close() error {
	return nil
}
