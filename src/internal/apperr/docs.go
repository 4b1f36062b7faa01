// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package apperr defines the error taxonomy shared by the sandbox components
// and the codes surfaced to MCP clients.
//
// Components wrap one of the sentinel errors with context using
// fmt.Errorf("...: %w", sentinel); the tool layer converts any error into a
// boundary code with [Code].
package apperr
