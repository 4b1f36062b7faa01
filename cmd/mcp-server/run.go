// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// mcp-server runs the dev sandbox on stdio without the CLI layer. It reads
// its configuration from MCP_SANDBOX_CONFIG_FILE.
package main

import (
	"fmt"
	"os"

	mcpserver "github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server"
)

var version string // set by ldflags or defaults to imported version

func init() {
	if version == "" {
		version = mcpserver.GetVersion()
	}
}

func main() {
	if err := mcpserver.Run(version); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
