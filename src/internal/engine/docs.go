// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package engine adapts the Docker Engine API to the narrow [Engine]
// interface used by the sandbox. Only the operations the tool surface needs
// are exposed, so tests can substitute an in-memory fake.
//
// Engine errors are classified with the apperr taxonomy: a missing container
// wraps apperr.ErrNotFound and an unreachable daemon wraps
// apperr.ErrUnavailable.
package engine
