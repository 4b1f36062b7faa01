// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/policy"
)

// jsonResource marshals v into a single JSON resource content.
func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// handleConfigResource handles requests for the configuration template resource.
// It provides the default configuration, which is also a valid config file.
func handleConfigResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(uriConfigTemplate, defaultConfig())
}

// handleVersionResource handles requests for version information resource.
//
// The tool list reflects the feature toggles of the running configuration.
func (h *sandboxHandlers) handleVersionResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	tools := createTools(h.config, h)
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Tool.Name)
	}

	return jsonResource(uriVersion, map[string]any{
		"name":    serverName,
		"version": GetVersion(),
		"type":    "MCP Server",
		"capabilities": map[string]any{
			"tools":     names,
			"resources": []string{uriConfigTemplate, uriVersion, uriServerStatus, uriAllowedImages, uriResourceTable},
			"prompts":   promptNames(),
		},
	})
}

// handleStatusResource handles requests for server status information resource.
// It reports the same data as the get_server_status tool without the envelope.
func (h *sandboxHandlers) handleStatusResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonResource(uriServerStatus, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"server":    serverName,
		"version":   GetVersion(),
		"sandbox":   h.sb.Status(ctx),
		"features":  h.config.Features,
	})
}

// handleAllowedImagesResource serves the active allow-list.
func (h *sandboxHandlers) handleAllowedImagesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	p := h.sb.Policy()
	return jsonResource(uriAllowedImages, map[string]any{
		"security_level":   p.Level(),
		"prefix_matching":  p.Level() == policy.LevelLow,
		"allowed_images":   p.Images(),
		"allowed_browsers": p.Browsers(),
		"gpu_allowed":      p.ApproveGPU() == nil,
	})
}

// handleResourceTable renders live registry entries in creation order.
func (h *sandboxHandlers) handleResourceTable(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	resources := h.sb.ListResources()

	var buf strings.Builder
	buf.WriteString("# Sandbox Resources\n\n")
	if len(resources) == 0 {
		buf.WriteString("No live resources.\n")
	} else {
		table := tablewriter.NewTable(&buf,
			tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
		)
		table.Header([]string{"ID", "Kind", "Label", "State", "Target", "Parent", "Last Used"})
		rows := make([][]string, 0, len(resources))
		for _, r := range resources {
			parent := r.ParentID
			if parent == "" {
				parent = "-"
			}
			rows = append(rows, []string{
				r.ID,
				r.Kind.String(),
				r.Label,
				r.State.String(),
				r.Target,
				parent,
				r.LastUsed.UTC().Format(time.RFC3339),
			})
		}
		table.Bulk(rows)
		table.Render()
		fmt.Fprintf(&buf, "\n%d live resource(s).\n", len(resources))
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uriResourceTable,
			MIMEType: "text/markdown",
			Text:     buf.String(),
		},
	}, nil
}
