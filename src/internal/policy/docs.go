// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package policy implements the gate that approves or rejects resource
// creation before the registry is touched.
//
// A [Policy] is built once from configuration and never mutated, so it is
// safe for concurrent use. Every decision is a pure function of the request
// and the policy; no I/O is performed.
//
// Matching rules per [Level]:
//
//   - Low: an image matches an allow-list entry exactly, or by prefix.
//     A trailing "*" on an entry is optional and marks it as a prefix
//     ("python:*" and "python:" are equivalent).
//   - Medium, High and Strict: exact match only.
//
// Browser engines are unrestricted at Low and Medium; at High and Strict
// the engine must be listed in the browser allow-list. Port streams may not
// bind privileged host ports at High and Strict. GPU access and navigation
// to non-web URL schemes are refused at Strict.
package policy
