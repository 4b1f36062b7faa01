// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package engine

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/helper/gc"
)

// tarFile builds a single-entry tar archive holding content under name.
// The archive is returned as a private copy.
func tarFile(name string, content []byte, mod time.Time) ([]byte, error) {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	tw := tar.NewWriter(buf)
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(content)),
		ModTime: mod,
		Format:  tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("write tar header: %w", err)
	}
	if _, err := tw.Write(content); err != nil {
		return nil, fmt.Errorf("write tar body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close tar: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// firstFile returns the contents of the first regular file in a tar stream.
func firstFile(r io.Reader, limit int64) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, apperr.NotFound("no regular file in archive")
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if limit > 0 && hdr.Size > limit {
			return nil, apperr.InvalidInput("%s is %d bytes, limit is %d", path.Base(hdr.Name), hdr.Size, limit)
		}
		return gc.ReadAll(tr, limit)
	}
}
