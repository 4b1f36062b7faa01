// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// createPrompts creates and returns all MCP prompt definitions with their handlers
func createPrompts() []server.ServerPrompt {
	return []server.ServerPrompt{
		{
			Prompt: mcp.NewPrompt("container-workflow",
				mcp.WithPromptDescription("Run a task inside an isolated container from creation to cleanup"),
				mcp.WithArgument("image",
					mcp.ArgumentDescription("Container image to use (default: python:3.11-slim)"),
				),
				mcp.WithArgument("task",
					mcp.ArgumentDescription("What to do inside the container"),
				),
			),
			Handler: handleContainerWorkflowPrompt,
		},
		{
			Prompt: mcp.NewPrompt("browser-automation",
				mcp.WithPromptDescription("Drive a headless browser page to reach a goal on a website"),
				mcp.WithArgument("url",
					mcp.ArgumentDescription("Starting URL"),
				),
				mcp.WithArgument("goal",
					mcp.ArgumentDescription("What to accomplish on the page"),
				),
			),
			Handler: handleBrowserAutomationPrompt,
		},
		{
			Prompt: mcp.NewPrompt("docs-lookup",
				mcp.WithPromptDescription("Find and read documentation through the DevDocs instance"),
				mcp.WithArgument("doc_slug",
					mcp.ArgumentDescription("Documentation set, e.g. go or python~3.12 (default: go)"),
				),
				mcp.WithArgument("topic",
					mcp.ArgumentDescription("Topic or identifier to look up"),
				),
			),
			Handler: handleDocsLookupPrompt,
		},
		{
			Prompt: mcp.NewPrompt("troubleshooting",
				mcp.WithPromptDescription("Troubleshoot containers, browsers, port streams or policy rejections"),
				mcp.WithArgument("issue_type",
					mcp.ArgumentDescription("Type of issue: 'container', 'browser', 'network', 'policy'"),
				),
				mcp.WithArgument("resource_id",
					mcp.ArgumentDescription("Registry id or label of the affected resource"),
				),
			),
			Handler: handleTroubleshootingPrompt,
		},
	}
}

// promptNames lists the names of every prompt in registration order.
func promptNames() []string {
	prompts := createPrompts()
	names := make([]string, 0, len(prompts))
	for _, p := range prompts {
		names = append(names, p.Prompt.Name)
	}
	return names
}
