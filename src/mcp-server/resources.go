// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs served by the sandbox.
const (
	uriConfigTemplate = "config://template"
	uriVersion        = "info://version"
	uriServerStatus   = "status://server-status"
	uriAllowedImages  = "policy://allowed-images"
	uriResourceTable  = "sandbox://resources"
)

// createResources creates and returns all MCP resource definitions with
// handlers bound to h.
//
// Resources include the configuration template, version information,
// live server status, the image allow-list, and a table of tracked resources.
func createResources(h *sandboxHandlers) []server.ServerResource {
	return []server.ServerResource{
		{
			Resource: mcp.NewResource(uriConfigTemplate, "Server Configuration Template",
				mcp.WithResourceDescription("Default configuration file with every supported setting"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: handleConfigResource,
		},
		{
			Resource: mcp.NewResource(uriVersion, "Version Information",
				mcp.WithResourceDescription("Server name, version and the tools registered for this configuration"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: h.handleVersionResource,
		},
		{
			Resource: mcp.NewResource(uriServerStatus, "Server Status",
				mcp.WithResourceDescription("Uptime, security level, registry counts and engine reachability"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: h.handleStatusResource,
		},
		{
			Resource: mcp.NewResource(uriAllowedImages, "Allowed Images",
				mcp.WithResourceDescription("Container images and browser engines permitted by the security policy"),
				mcp.WithMIMEType("application/json"),
			),
			Handler: h.handleAllowedImagesResource,
		},
		{
			Resource: mcp.NewResource(uriResourceTable, "Sandbox Resources",
				mcp.WithResourceDescription("Markdown table of live containers, browsers, pages and port streams"),
				mcp.WithMIMEType("text/markdown"),
			),
			Handler: h.handleResourceTable,
		},
	}
}
