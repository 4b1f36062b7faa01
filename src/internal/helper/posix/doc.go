// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package posix provides [POSIX]-friendly helpers for naming the running
// executable and locating per-user scratch space.
//
//   - GetExecutableName: executable base name without ".exe", used in CLI usage lines
//   - ScratchDir: default host workspace under the system temp dir
//
// Cross-platform behavior of GetExecutableName:
//
//   - Linux/macOS: "/usr/bin/mcp-dev-sandbox" → "mcp-dev-sandbox"
//   - Windows: "C:\bin\mcp-dev-sandbox.exe" → "mcp-dev-sandbox"
//   - Fallback: Empty args → [FallbackName]
//
// [POSIX]: https://grokipedia.com/page/POSIX
package posix
