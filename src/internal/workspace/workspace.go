// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package workspace manages the host directory shared with containers.
//
// Every path handed to a [Workspace] is relative to its root; absolute paths
// and paths that climb out of the root are rejected. Writes are atomic
// (temp file plus rename) and serialized across processes by a lock file,
// since several server instances may share one workspace.
package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/helper/gc"
)

// LockName is the lock file kept at the workspace root.
const LockName = ".workspace.lock"

// DefaultMaxFileBytes bounds a single file when no limit is configured.
const DefaultMaxFileBytes = 10 << 20

// Workspace is a rooted host directory.
type Workspace struct {
	root     string
	maxBytes int64
	lock     *flock.Flock
}

// Open creates dir if needed and returns a workspace rooted there.
func Open(dir string, maxBytes int64) (*Workspace, error) {
	if dir == "" {
		return nil, apperr.InvalidInput("workspace dir is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Workspace{
		root:     abs,
		maxBytes: maxBytes,
		lock:     flock.New(filepath.Join(abs, LockName)),
	}, nil
}

// Root returns the absolute workspace directory.
func (w *Workspace) Root() string { return w.root }

// MaxFileBytes returns the per-file size limit.
func (w *Workspace) MaxFileBytes() int64 { return w.maxBytes }

// Resolve maps a relative name to an absolute path inside the workspace.
func (w *Workspace) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.InvalidInput("file name is empty")
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return "", apperr.InvalidInput("%q must be relative to the workspace", name)
	}
	full := filepath.Join(w.root, filepath.FromSlash(name))
	rel, err := filepath.Rel(w.root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperr.InvalidInput("%q escapes the workspace", name)
	}
	if filepath.Base(full) == LockName {
		return "", apperr.InvalidInput("%q is reserved", name)
	}
	return full, nil
}

// Write atomically replaces name with data and returns its absolute path.
func (w *Workspace) Write(ctx context.Context, name string, data []byte) (string, error) {
	if int64(len(data)) > w.maxBytes {
		return "", apperr.InvalidInput("%d bytes exceeds the %d byte limit", len(data), w.maxBytes)
	}
	full, err := w.Resolve(name)
	if err != nil {
		return "", err
	}

	locked, err := w.lock.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return "", fmt.Errorf("lock workspace: %w", err)
	}
	if !locked {
		return "", apperr.Unavailable("workspace lock", errors.New("held by another process"))
	}
	defer w.lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create parent dir: %w", err)
	}
	if err := atomic.WriteFile(full, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return full, nil
}

// Read returns the contents of name.
func (w *Workspace) Read(name string) ([]byte, error) {
	full, err := w.Resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NotFound("workspace file %s", name)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gc.ReadAll(f, w.maxBytes)
}

// File is one entry of [Workspace.List].
type File struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// List returns every regular file below the root, sorted by relative path.
func (w *Workspace) List() ([]File, error) {
	var files []File
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || d.Name() == LockName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		files = append(files, File{Path: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list workspace: %w", err)
	}
	return files, nil
}
