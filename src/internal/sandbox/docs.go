// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package sandbox orchestrates every tool call that touches an external
// collaborator.
//
// Each mutating operation follows the same sequence:
//
//  1. the policy gate approves the requested image, browser, port or URL;
//  2. the registry reserves the resource or validates the transition;
//  3. the collaborator (container engine, browser, port proxy) is called
//     with no registry lock held;
//  4. the registry commits the final state.
//
// When step 3 fails the reservation is deleted so no bookkeeping leaks.
// When step 4 fails because the resource was deleted concurrently, the
// external handle obtained in step 3 is released.
//
// A [Sandbox] is constructed once by the process entry point and handed to
// the MCP tool handlers; there is no package-level state.
package sandbox
