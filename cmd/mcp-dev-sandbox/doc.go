// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// mcp-dev-sandbox is a Model Context Protocol (MCP) server that gives AI
// assistants isolated Docker containers, browser automation and DevDocs
// search over stdio.
//
// # Installation
//
// Install with Go 1.25.5 or later:
//
//	go install github.com/H0llyW00dzZ/mcp-dev-sandbox/cmd/mcp-dev-sandbox@latest
//
// # Usage
//
//	mcp-dev-sandbox [FLAGS]
//
// # Flags
//
//	--config        Path to MCP server configuration file (JSON or YAML)
//	--instructions  Print the workflows sent to MCP clients
//	--help          Show help information
//	--version       Show version information
//
// # Environment Variables
//
//	MCP_SANDBOX_CONFIG_FILE     Path to configuration file (alternative to --config flag)
//	MCP_SANDBOX_SECURITY_LEVEL  Overrides policy.securityLevel (low, medium, high, strict)
//	MCP_SANDBOX_WORKSPACE       Overrides workspace.dir
//	DOCKER_HOST                 Container engine address
//	DEVDOCS_URL                 DevDocs instance, e.g. http://localhost:9292
//	SELENIUM_URL                WebDriver endpoint, e.g. http://localhost:4444/wd/hub
//
// # MCP Resources
//
//   - config://template: Default configuration
//   - info://version: Version and registered tools
//   - status://server-status: Registry counts and engine reachability
//   - policy://allowed-images: Active allow-list and security level
//   - sandbox://resources: Markdown table of tracked resources
//
// # MCP Prompts
//
//   - container-workflow: Run a task in a container from creation to cleanup
//   - browser-automation: Drive a browser page toward a goal
//   - docs-lookup: Search and read DevDocs entries
//   - troubleshooting: Diagnose container, browser, network or policy problems
//
// # Examples
//
// Start MCP server with default configuration:
//
//	mcp-dev-sandbox
//
// Load custom configuration:
//
//	mcp-dev-sandbox --config /path/to/sandbox.yaml
package main
