// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

func TestResolve(t *testing.T) {
	w, err := Open(t.TempDir(), 0)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"plain", "main.py", true},
		{"nested", "src/app/main.go", true},
		{"dot segments inside", "src/../main.py", true},
		{"empty", " ", false},
		{"absolute", "/etc/passwd", false},
		{"escape", "../outside.txt", false},
		{"sneaky escape", "src/../../outside.txt", false},
		{"root itself", ".", false},
		{"lock file", LockName, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.Resolve(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, apperr.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, w.Root()+string(filepath.Separator)))
		})
	}
}

func TestWriteReadList(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "ws"), 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = w.Write(ctx, "b.txt", []byte("bee"))
	require.NoError(t, err)
	full, err := w.Write(ctx, "a/deep/file.txt", []byte("deep"))
	require.NoError(t, err)
	assert.FileExists(t, full)

	// Overwrite is atomic and replaces content.
	_, err = w.Write(ctx, "b.txt", []byte("bumblebee"))
	require.NoError(t, err)

	got, err := w.Read("b.txt")
	require.NoError(t, err)
	assert.Equal(t, "bumblebee", string(got))

	files, err := w.List()
	require.NoError(t, err)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"a/deep/file.txt", "b.txt"}, paths)

	_, err = w.Read("missing.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWriteSizeLimit(t *testing.T) {
	w, err := Open(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = w.Write(context.Background(), "big.txt", []byte("12345"))
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = os.Stat(filepath.Join(w.Root(), "big.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteHonorsForeignLock(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, 0)
	require.NoError(t, err)

	other := flock.New(filepath.Join(dir, LockName))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Write(ctx, "x.txt", []byte("x"))
	assert.Error(t, err)
}

func TestConcurrentWrites(t *testing.T) {
	w, err := Open(t.TempDir(), 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.Write(context.Background(), "shared.txt", []byte("same-content")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	got, err := w.Read("shared.txt")
	require.NoError(t, err)
	assert.Equal(t, "same-content", string(got))
}
