// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package mcpserver provides the [MCP] server for the dev sandbox.
// It exposes Docker containers, port streams, browser automation (CDP and
// WebDriver), a shared host workspace and DevDocs search as MCP tools. Every
// external handle those tools create is tracked by a session registry, checked
// against an allow-list policy and released when the server shuts down.
//
// Every tool answers with the same JSON envelope:
//
//	{"success": true, "data": {...}}
//	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}
//
// A delete whose external cleanup failed still succeeds and carries a
// CLEANUP_WARNING error object next to its data.
//
// The package uses a builder pattern for server construction and a Cobra
// root command for the CLI entry point.
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
package mcpserver
