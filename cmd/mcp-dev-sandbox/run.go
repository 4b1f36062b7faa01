// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package main

import (
	"os"

	mcpserver "github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server/templates"
	verpkg "github.com/H0llyW00dzZ/mcp-dev-sandbox/src/version"
)

var version string // set by ldflags or defaults to imported version

func init() {
	if version == "" {
		version = verpkg.Version
	}
}

func main() {
	framework := mcpserver.NewCLIFramework("", mcpserver.ServerDependencies{
		Embed:   templates.MagicEmbed,
		Version: version,
	})
	if err := framework.BuildRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
