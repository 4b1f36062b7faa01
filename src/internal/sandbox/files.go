// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/engine"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/workspace"
)

// containerPath anchors relative paths at the working directory.
func (s *Sandbox) containerPath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", apperr.InvalidInput("path is required")
	}
	if !path.IsAbs(p) {
		p = path.Join(s.cfg.WorkingDir, p)
	}
	return path.Clean(p), nil
}

// fileTarget is the running container plus its engine for a file operation.
func (s *Sandbox) fileTarget(ref, p string) (engine.Engine, string, string, error) {
	eng, err := s.needEngine()
	if err != nil {
		return nil, "", "", err
	}
	full, err := s.containerPath(p)
	if err != nil {
		return nil, "", "", err
	}
	_, id, err := s.runningContainer(ref)
	if err != nil {
		return nil, "", "", err
	}
	return eng, id, full, nil
}

// ReadFile returns the content of a file inside a container.
func (s *Sandbox) ReadFile(ctx context.Context, ref, p string) (string, error) {
	eng, id, full, err := s.fileTarget(ref, p)
	if err != nil {
		return "", err
	}
	data, err := eng.CopyFrom(ctx, id, full, s.cfg.MaxFileBytes)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile creates or replaces a file inside a container. With appendTo set
// the content is added to the existing file, which need not exist.
func (s *Sandbox) WriteFile(ctx context.Context, ref, p, content string, appendTo bool) (string, error) {
	eng, id, full, err := s.fileTarget(ref, p)
	if err != nil {
		return "", err
	}
	data := []byte(content)
	if appendTo {
		prev, err := eng.CopyFrom(ctx, id, full, s.cfg.MaxFileBytes)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return "", err
		default:
			data = append(prev, data...)
		}
	}
	if int64(len(data)) > s.cfg.MaxFileBytes {
		return "", apperr.InvalidInput("%d bytes exceeds the %d byte limit", len(data), s.cfg.MaxFileBytes)
	}
	if err := eng.CopyTo(ctx, id, full, data); err != nil {
		return "", err
	}
	return full, nil
}

// run executes argv and converts a non-zero exit into an error carrying the output.
func (s *Sandbox) run(ctx context.Context, eng engine.Engine, id string, argv ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExecTimeout)
	defer cancel()
	res, err := eng.Exec(ctx, id, argv)
	if err != nil {
		return "", err
	}
	out := strings.TrimSpace(res.Output)
	if res.ExitCode != 0 {
		if strings.Contains(out, "No such file") {
			return "", apperr.NotFound("%s", out)
		}
		return "", fmt.Errorf("%s exited %d: %s: %w", argv[0], res.ExitCode, out, apperr.ErrInvalidInput)
	}
	return res.Output, nil
}

// ListFiles returns `ls -la` output for a directory, default the working dir.
func (s *Sandbox) ListFiles(ctx context.Context, ref, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = s.cfg.WorkingDir
	}
	eng, id, full, err := s.fileTarget(ref, dir)
	if err != nil {
		return "", err
	}
	return s.run(ctx, eng, id, "ls", "-la", "--", full)
}

// DeleteFile removes a file inside a container. A missing file is not an error.
func (s *Sandbox) DeleteFile(ctx context.Context, ref, p string) (string, error) {
	eng, id, full, err := s.fileTarget(ref, p)
	if err != nil {
		return "", err
	}
	if full == "/" {
		return "", apperr.InvalidInput("refusing to delete /")
	}
	_, err = s.run(ctx, eng, id, "rm", "-f", "--", full)
	return full, err
}

// MakeDir creates a directory and its parents inside a container.
func (s *Sandbox) MakeDir(ctx context.Context, ref, dir string) (string, error) {
	eng, id, full, err := s.fileTarget(ref, dir)
	if err != nil {
		return "", err
	}
	_, err = s.run(ctx, eng, id, "mkdir", "-p", "--", full)
	return full, err
}

// CopyToContainer copies a workspace file into a container. An empty dest
// keeps the file name under the working dir.
func (s *Sandbox) CopyToContainer(ctx context.Context, ref, name, dest string) (string, error) {
	ws, err := s.Workspace()
	if err != nil {
		return "", err
	}
	data, err := ws.Read(name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dest) == "" {
		dest = path.Base(name)
	}
	eng, id, full, err := s.fileTarget(ref, dest)
	if err != nil {
		return "", err
	}
	if err := eng.CopyTo(ctx, id, full, data); err != nil {
		return "", err
	}
	return full, nil
}

// CopyFromContainer copies a container file into the workspace. An empty
// name keeps the source file name.
func (s *Sandbox) CopyFromContainer(ctx context.Context, ref, src, name string) (string, error) {
	ws, err := s.Workspace()
	if err != nil {
		return "", err
	}
	eng, id, full, err := s.fileTarget(ref, src)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		name = path.Base(full)
	}
	data, err := eng.CopyFrom(ctx, id, full, ws.MaxFileBytes())
	if err != nil {
		return "", err
	}
	return ws.Write(ctx, name, data)
}

// Upload writes content into the host workspace.
func (s *Sandbox) Upload(ctx context.Context, name, content string) (string, error) {
	ws, err := s.Workspace()
	if err != nil {
		return "", err
	}
	return ws.Write(ctx, name, []byte(content))
}

// WorkspaceFiles lists the host workspace.
func (s *Sandbox) WorkspaceFiles() ([]workspace.File, error) {
	ws, err := s.Workspace()
	if err != nil {
		return nil, err
	}
	return ws.List()
}
