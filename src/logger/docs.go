// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package logger provides the two logging surfaces of the sandbox server.
//
// The [Logger] interface has two implementations: [CLILogger] for
// human-readable command-line messages and [MCPLogger], which stays silent by
// default so the stdio transport carries nothing but protocol frames.
//
// Structured diagnostics go through [log/slog]. [NewStructured] builds a
// handler that writes colored text (via tint) or JSON lines; callers point it
// at stderr.
package logger
