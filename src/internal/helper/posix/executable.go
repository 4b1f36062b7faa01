// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package posix

import (
	"os"
	"path/filepath"
	"strings"
)

// FallbackName is returned by [GetExecutableName] when os.Args[0] is empty.
const FallbackName = "mcp-dev-sandbox"

// GetExecutableName returns the executable name without extension.
// Foreign path separators (a Windows path seen on Unix) are handled too.
func GetExecutableName() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return FallbackName
	}

	name := filepath.Base(os.Args[0])
	if strings.Contains(name, "\\") || (strings.Contains(name, "/") && !strings.Contains(name, string(filepath.Separator))) {
		parts := strings.FieldsFunc(name, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		for i := len(parts) - 1; i >= 0; i-- {
			if parts[i] != "" {
				name = parts[i]
				break
			}
		}
	}

	return strings.TrimSuffix(name, ".exe")
}

// ScratchDir returns a directory named after the executable under the
// system temp dir, e.g. /tmp/mcp-dev-sandbox. It is not created.
func ScratchDir() string {
	return filepath.Join(os.TempDir(), FallbackName)
}
