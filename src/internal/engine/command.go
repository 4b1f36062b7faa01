// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package engine

import (
	"strings"

	"github.com/google/shlex"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

// SplitCommand tokenizes a shell-style command line without invoking a shell.
func SplitCommand(line string) ([]string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, apperr.InvalidInput("parse command %q: %v", line, err)
	}
	if len(args) == 0 {
		return nil, apperr.InvalidInput("command is empty")
	}
	return args, nil
}

// ShellCommand wraps line so it runs under /bin/sh -c, for commands that rely
// on pipes, redirects or globbing.
func ShellCommand(line string) []string {
	return []string{"/bin/sh", "-c", line}
}

// DefaultCommand picks the keep-alive shell for an image.
// Debian-family images get bash; everything else gets sh.
func DefaultCommand(image string) []string {
	lower := strings.ToLower(image)
	if strings.Contains(lower, "ubuntu") || strings.Contains(lower, "debian") {
		return []string{"/bin/bash"}
	}
	return []string{"/bin/sh"}
}
