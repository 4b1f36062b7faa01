// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package templates provides embedded filesystem access for MCP server template files.
// It offers a reusable abstraction for accessing the markdown templates used
// by the sandbox server: initialization instructions, CLI help, guided workflow
// prompts, and the JSON schema that configuration files are validated against.
//
// The package provides thread-safe access to embedded files through the [EmbedFS] interface,
// with [MagicEmbed] serving as the default implementation for convenient template access.
//
// Example usage:
//
//	import "github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server/templates"
//
//	// Read a prompt template
//	content, err := templates.MagicEmbed.ReadFile("container-workflow.md")
//	if err != nil {
//		return fmt.Errorf("failed to read prompt template: %w", err)
//	}
//
//	// List all available template files
//	entries, err := templates.MagicEmbed.ReadDir(".")
//	if err != nil {
//		return fmt.Errorf("failed to list templates: %w", err)
//	}
package templates
