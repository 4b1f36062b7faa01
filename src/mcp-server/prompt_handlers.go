// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server/templates"
)

// promptTemplateData holds the data used to populate prompt templates.
type promptTemplateData struct {
	Image      string
	Task       string
	URL        string
	Goal       string
	DocSlug    string
	Topic      string
	IssueType  string
	ResourceID string
}

// parsePromptTemplate parses a prompt template file and converts it to MCP messages.
//
// This function reads <templateName>.md from the embedded filesystem, executes
// it with the provided data, and splits the result into messages. A line
// starting with "### Assistant:" or "### User:" opens a message with that role;
// other headers and blank lines are dropped.
//
// text/template is used so URLs and shell commands reach the client unescaped.
func parsePromptTemplate(templateName string, data promptTemplateData) ([]mcp.PromptMessage, error) {
	templateContent, err := templates.MagicEmbed.ReadFile(templateName + ".md")
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", templateName, err)
	}

	tmpl, err := template.New(templateName).Parse(string(templateContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	var (
		messages       []mcp.PromptMessage
		currentRole    mcp.Role
		currentContent strings.Builder
	)
	flush := func() {
		if currentContent.Len() > 0 {
			messages = append(messages, mcp.NewPromptMessage(
				currentRole,
				mcp.NewTextContent(strings.TrimSpace(currentContent.String())),
			))
			currentContent.Reset()
		}
	}

	for line := range strings.Lines(buf.String()) {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "### Assistant:"):
			flush()
			currentRole = mcp.RoleAssistant
			continue
		case strings.HasPrefix(line, "### User:"):
			flush()
			currentRole = mcp.RoleUser
			continue
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		}

		if currentRole != "" {
			if currentContent.Len() > 0 {
				currentContent.WriteString("\n")
			}
			currentContent.WriteString(line)
		}
	}
	flush()

	return messages, nil
}

// promptArg returns a prompt argument or fallback when it is blank.
func promptArg(request mcp.GetPromptRequest, name, fallback string) string {
	if v := strings.TrimSpace(request.Params.Arguments[name]); v != "" {
		return v
	}
	return fallback
}

// handleContainerWorkflowPrompt guides a task through policy check, container
// creation, command execution and cleanup.
//
// Expected arguments in request.Params.Arguments:
//   - image: Container image (default: python:3.11-slim)
//   - task: What to do inside the container
func handleContainerWorkflowPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	messages, err := parsePromptTemplate("container-workflow", promptTemplateData{
		Image: promptArg(request, "image", "python:3.11-slim"),
		Task:  promptArg(request, "task", "explore the environment"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse container workflow template: %w", err)
	}

	return mcp.NewGetPromptResult("Container Workflow", messages), nil
}

// handleBrowserAutomationPrompt guides a browser session toward a goal.
func handleBrowserAutomationPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	messages, err := parsePromptTemplate("browser-automation", promptTemplateData{
		URL:  promptArg(request, "url", "about:blank"),
		Goal: promptArg(request, "goal", "summarize the page"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse browser automation template: %w", err)
	}

	return mcp.NewGetPromptResult("Browser Automation", messages), nil
}

func handleDocsLookupPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	messages, err := parsePromptTemplate("docs-lookup", promptTemplateData{
		DocSlug: promptArg(request, "doc_slug", "go"),
		Topic:   promptArg(request, "topic", "overview"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse docs lookup template: %w", err)
	}

	return mcp.NewGetPromptResult("Documentation Lookup", messages), nil
}

// handleTroubleshootingPrompt handles the troubleshooting prompt.
//
// Expected arguments in request.Params.Arguments:
//   - issue_type: container, browser, network or policy; anything else gets
//     the generic checklist
//   - resource_id: Optional registry id or label
func handleTroubleshootingPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	messages, err := parsePromptTemplate("troubleshooting", promptTemplateData{
		IssueType:  strings.ToLower(promptArg(request, "issue_type", "")),
		ResourceID: promptArg(request, "resource_id", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse troubleshooting template: %w", err)
	}

	return mcp.NewGetPromptResult("Sandbox Troubleshooting", messages), nil
}
