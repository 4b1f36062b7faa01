// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package registry implements the in-memory session registry that tracks every
// managed external handle (containers, browser instances, browser pages and
// port streams).
//
// A [Registry] is constructed explicitly and passed to whoever needs it; there
// is no package-level instance. All mutations are serialized by one mutex.
// External engine calls are never made while it is held: callers validate with
// [Registry.CanTransition], release the lock, talk to the engine, and commit
// with [Registry.Transition], which re-validates against the current state.
//
// Deleting a resource cascades to every resource whose ParentID references it.
// Children are released depth-first before their parent, each through the
// [CleanupFunc] registered for its [Kind]. A failing callback never blocks the
// in-memory delete; it is reported as an [apperr.CleanupWarning].
package registry
