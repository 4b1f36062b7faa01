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

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/policy"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/sandbox"
)

// toolError is the error object of a tool envelope.
type toolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the structured result of every tool call.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *toolError `json:"error,omitempty"`
}

// reply converts a handler outcome into a tool result.
//
// A cleanup warning keeps success set because the registry change committed;
// the warning travels in the error object. Any other error drops data and
// marks the result as an error.
func reply(data any, err error) (*mcp.CallToolResult, error) {
	env := envelope{Success: err == nil || apperr.IsWarning(err)}
	if env.Success {
		env.Data = data
	}
	if err != nil {
		env.Error = &toolError{Code: apperr.Code(err), Message: err.Error()}
	}

	text, merr := json.MarshalIndent(env, "", "  ")
	if merr != nil {
		env = envelope{Error: &toolError{Code: apperr.CodeInternal, Message: fmt.Sprintf("failed to encode result: %v", merr)}}
		text, _ = json.Marshal(env)
	}

	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(string(text))},
		StructuredContent: env,
		IsError:           !env.Success,
	}, nil
}

// fail replies with err and no data.
func fail(err error) (*mcp.CallToolResult, error) { return reply(nil, err) }

// sandboxHandlers binds tool and resource handlers to one sandbox.
type sandboxHandlers struct {
	sb     *sandbox.Sandbox
	config *Config
}

func newSandboxHandlers(sb *sandbox.Sandbox, config *Config) *sandboxHandlers {
	return &sandboxHandlers{sb: sb, config: config}
}

// handleListAllowedImages reports the allow-list and the security level.
func (h *sandboxHandlers) handleListAllowedImages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := h.sb.Policy()
	return reply(map[string]any{
		"security_level":   p.Level().String(),
		"allowed_images":   p.Images(),
		"allowed_browsers": p.Browsers(),
		"prefix_matching":  p.Level() == policy.LevelLow,
	}, nil)
}

// handleCreateContainer approves, reserves, creates and starts a container.
func (h *sandboxHandlers) handleCreateContainer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	image, err := requireString(request, "image")
	if err != nil {
		return fail(err)
	}
	env, err := stringMap(request, "environment")
	if err != nil {
		return fail(err)
	}
	ports, err := portMap(request, "ports")
	if err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, seconds(h.config.Defaults.ContainerTimeout))
	defer cancel()

	res, err := h.sb.CreateContainer(ctx, sandbox.ContainerRequest{
		Image:   image,
		Name:    request.GetString("name", ""),
		Command: request.GetString("command", ""),
		Env:     env,
		Ports:   ports,
		GPU:     request.GetBool("use_gpu", false),
	})
	if err != nil {
		return fail(err)
	}
	return reply(res, nil)
}

// execOutput is the data of execute_command.
type execOutput struct {
	ContainerID string `json:"container_id"`
	Command     string `json:"command"`
	ExitCode    int    `json:"exit_code"`
	Output      string `json:"output"`
}

func (h *sandboxHandlers) handleExecuteCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	command, err := requireString(request, "command")
	if err != nil {
		return fail(err)
	}
	out, err := h.sb.Exec(ctx, ref, command, secondsArg(request, "timeout_seconds"))
	if err != nil {
		return fail(err)
	}
	return reply(execOutput{ContainerID: ref, Command: command, ExitCode: out.ExitCode, Output: out.Output}, nil)
}

func (h *sandboxHandlers) handleListContainers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	containers := h.sb.ListContainers(ctx)
	return reply(map[string]any{"containers": containers, "count": len(containers)}, nil)
}

// containerCall adapts a lifecycle method of the sandbox into a tool handler.
func (h *sandboxHandlers) containerCall(call func(*sandbox.Sandbox, context.Context, string) (registry.Resource, error)) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, "container_id")
		if err != nil {
			return fail(err)
		}
		res, err := call(h.sb, ctx, ref)
		if err != nil && !apperr.IsWarning(err) {
			return fail(err)
		}
		return reply(res, err)
	}
}

func (h *sandboxHandlers) handleContainerLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	tail := request.GetInt("tail", h.config.Defaults.LogTail)
	logs, err := h.sb.Logs(ctx, ref, tail)
	if err != nil {
		return fail(err)
	}
	return reply(map[string]any{"container_id": ref, "tail": tail, "logs": logs}, nil)
}

func (h *sandboxHandlers) handleReadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	p, err := requireString(request, "file_path")
	if err != nil {
		return fail(err)
	}
	content, err := h.sb.ReadFile(ctx, ref, p)
	if err != nil {
		return fail(err)
	}
	return reply(map[string]any{"file_path": p, "content": content, "size": len(content)}, nil)
}

func (h *sandboxHandlers) handleWriteFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	p, err := requireString(request, "file_path")
	if err != nil {
		return fail(err)
	}
	content := request.GetString("content", "")
	appendTo := request.GetBool("append", false)
	full, err := h.sb.WriteFile(ctx, ref, p, content, appendTo)
	if err != nil {
		return fail(err)
	}
	return reply(map[string]any{"file_path": full, "bytes": len(content), "append": appendTo}, nil)
}

func (h *sandboxHandlers) handleListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	dir := request.GetString("directory_path", "")
	listing, err := h.sb.ListFiles(ctx, ref, dir)
	if err != nil {
		return fail(err)
	}
	return reply(map[string]any{"directory_path": dir, "listing": listing}, nil)
}

// pathCall adapts a single-path file operation into a tool handler.
func (h *sandboxHandlers) pathCall(key string, call func(*sandbox.Sandbox, context.Context, string, string) (string, error)) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, "container_id")
		if err != nil {
			return fail(err)
		}
		p, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		full, err := call(h.sb, ctx, ref, p)
		if err != nil {
			return fail(err)
		}
		return reply(map[string]any{key: full}, nil)
	}
}

func (h *sandboxHandlers) handleCopyToContainer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	src, err := requireString(request, "source_path")
	if err != nil {
		return fail(err)
	}
	dest, err := h.sb.CopyToContainer(ctx, ref, src, request.GetString("destination_path", ""))
	if err != nil {
		return fail(err)
	}
	return reply(map[string]any{"source_path": src, "destination_path": dest}, nil)
}

func (h *sandboxHandlers) handleCopyFromContainer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	src, err := requireString(request, "source_path")
	if err != nil {
		return fail(err)
	}
	dest, err := h.sb.CopyFromContainer(ctx, ref, src, request.GetString("destination_path", ""))
	if err != nil {
		return fail(err)
	}
	return reply(map[string]any{"source_path": src, "destination_path": dest}, nil)
}

func (h *sandboxHandlers) handleStartPortStream(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	port, err := requireInt(request, "container_port")
	if err != nil {
		return fail(err)
	}
	stream, err := h.sb.StartPortStream(ctx, ref, port, request.GetInt("host_port", 0))
	if err != nil {
		return fail(err)
	}
	return reply(stream, nil)
}

func (h *sandboxHandlers) handleStopPortStream(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "container_id")
	if err != nil {
		return fail(err)
	}
	port, err := requireInt(request, "container_port")
	if err != nil {
		return fail(err)
	}
	res, err := h.sb.StopPortStream(ctx, ref, port)
	if err != nil && !apperr.IsWarning(err) {
		return fail(err)
	}
	return reply(res, err)
}

func (h *sandboxHandlers) handleListStreams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	streams := h.sb.Streams()
	return reply(map[string]any{"streams": streams, "count": len(streams)}, nil)
}

// browserRequest reads the launch arguments shared by both backends.
func browserRequest(request mcp.CallToolRequest, defaultBrowser string) sandbox.BrowserRequest {
	return sandbox.BrowserRequest{
		Browser:  request.GetString("browser_type", defaultBrowser),
		Label:    request.GetString("label", ""),
		Headless: optionalBool(request, "headless"),
		Args:     request.GetStringSlice("args", nil),
	}
}

func (h *sandboxHandlers) handleLaunchBrowser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.sb.LaunchBrowser(ctx, browserRequest(request, "chromium"))
	if err != nil {
		return fail(err)
	}
	return reply(res, nil)
}

func (h *sandboxHandlers) handleLaunchDriver(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.sb.StartDriver(ctx, browserRequest(request, "chrome"))
	if err != nil {
		return fail(err)
	}
	return reply(res, nil)
}

func (h *sandboxHandlers) handleCreatePage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := requireString(request, "browser_id")
	if err != nil {
		return fail(err)
	}
	res, err := h.sb.CreatePage(ctx, ref, request.GetString("label", ""))
	if err != nil {
		return fail(err)
	}
	return reply(res, nil)
}

// The page handlers below serve both backends; key is the argument naming
// the page (page_id for CDP pages, driver_id for WebDriver sessions).

func (h *sandboxHandlers) navigate(key string) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		url, err := requireString(request, "url")
		if err != nil {
			return fail(err)
		}
		title, err := h.sb.Navigate(ctx, ref, url)
		if err != nil {
			return fail(err)
		}
		return reply(map[string]any{key: ref, "url": url, "title": title}, nil)
	}
}

func (h *sandboxHandlers) click(key string) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		selector, err := requireString(request, "selector")
		if err != nil {
			return fail(err)
		}
		if err := h.sb.Click(ctx, ref, selector); err != nil {
			return fail(err)
		}
		return reply(map[string]any{key: ref, "selector": selector, "clicked": true}, nil)
	}
}

func (h *sandboxHandlers) typeText(key string) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		selector, err := requireString(request, "selector")
		if err != nil {
			return fail(err)
		}
		text := request.GetString("text", "")
		if err := h.sb.Type(ctx, ref, selector, text, request.GetBool("clear", true)); err != nil {
			return fail(err)
		}
		return reply(map[string]any{key: ref, "selector": selector, "typed": len(text)}, nil)
	}
}

func (h *sandboxHandlers) getText(key string) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		selector := request.GetString("selector", "body")
		text, err := h.sb.Text(ctx, ref, selector)
		if err != nil {
			return fail(err)
		}
		return reply(map[string]any{key: ref, "selector": selector, "text": text}, nil)
	}
}

func (h *sandboxHandlers) waitFor(key string) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		selector, err := requireString(request, "selector")
		if err != nil {
			return fail(err)
		}
		if err := h.sb.WaitFor(ctx, ref, selector, secondsArg(request, "timeout_seconds")); err != nil {
			return fail(err)
		}
		return reply(map[string]any{key: ref, "selector": selector, "found": true}, nil)
	}
}

func (h *sandboxHandlers) evaluate(key string) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		script, err := requireString(request, "script")
		if err != nil {
			return fail(err)
		}
		result, err := h.sb.Evaluate(ctx, ref, script)
		if err != nil {
			return fail(err)
		}
		return reply(map[string]any{key: ref, "result": result}, nil)
	}
}

func (h *sandboxHandlers) screenshot(key string) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		shot, err := h.sb.Screenshot(ctx, ref,
			request.GetBool("full_page", false),
			request.GetBool("return_base64", false),
			request.GetString("filename", ""),
		)
		if err != nil {
			return fail(err)
		}
		return reply(shot, nil)
	}
}

// closeCall adapts ClosePage and CloseBrowser into a tool handler.
func (h *sandboxHandlers) closeCall(key string, call func(*sandbox.Sandbox, context.Context, string) (registry.Resource, error)) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ref, err := requireString(request, key)
		if err != nil {
			return fail(err)
		}
		res, err := call(h.sb, ctx, ref)
		if err != nil && !apperr.IsWarning(err) {
			return fail(err)
		}
		return reply(res, err)
	}
}

func (h *sandboxHandlers) handleListBrowsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instances := h.sb.Browsers()
	return reply(map[string]any{"instances": instances, "count": len(instances)}, nil)
}

func (h *sandboxHandlers) handleUploadFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requireString(request, "filename")
	if err != nil {
		return fail(err)
	}
	content := request.GetString("content", "")
	full, err := h.sb.Upload(ctx, name, content)
	if err != nil {
		return fail(err)
	}
	return reply(map[string]any{"filename": name, "path": full, "bytes": len(content)}, nil)
}

func (h *sandboxHandlers) handleListWorkspaceFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := h.sb.WorkspaceFiles()
	if err != nil {
		return fail(err)
	}
	ws, _ := h.sb.Workspace()
	return reply(map[string]any{"workspace": ws.Root(), "files": files, "count": len(files)}, nil)
}

func (h *sandboxHandlers) handleSearchDevDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := h.sb.Docs()
	if err != nil {
		return fail(err)
	}
	slug, err := requireString(request, "doc_slug")
	if err != nil {
		return fail(err)
	}
	query, err := requireString(request, "query")
	if err != nil {
		return fail(err)
	}
	result, err := docs.Search(ctx, slug, query)
	if err != nil {
		return fail(err)
	}
	return reply(result, nil)
}

func (h *sandboxHandlers) handleDevDocsContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := h.sb.Docs()
	if err != nil {
		return fail(err)
	}
	slug, err := requireString(request, "doc_slug")
	if err != nil {
		return fail(err)
	}
	p, err := requireString(request, "path")
	if err != nil {
		return fail(err)
	}
	content, err := docs.Content(ctx, slug, p)
	if err != nil {
		return fail(err)
	}
	return reply(content, nil)
}

func (h *sandboxHandlers) handleDevDocsAvailable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := h.sb.Docs()
	if err != nil {
		return fail(err)
	}
	return reply(docs.Available(ctx), nil)
}

func (h *sandboxHandlers) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return reply(map[string]any{
		"server":   serverName,
		"version":  GetVersion(),
		"status":   h.sb.Status(ctx),
		"features": h.config.Features,
	}, nil)
}

func (h *sandboxHandlers) handleResourceUsage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data := CollectResourceUsage(h.sb, request.GetBool("detailed", false))
	switch format := strings.ToLower(request.GetString("format", "json")); format {
	case "json":
		return reply(data, nil)
	case "markdown":
		return reply(map[string]any{"format": format, "report": FormatResourceUsageAsMarkdown(data)}, nil)
	default:
		return fail(apperr.InvalidInput("unsupported format %q (use json or markdown)", format))
	}
}

func (h *sandboxHandlers) handleDeleteResource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(request, "resource_id")
	if err != nil {
		return fail(err)
	}
	err = h.sb.DeleteResource(ctx, id)
	if err != nil && !apperr.IsWarning(err) {
		return fail(err)
	}
	return reply(map[string]any{"resource_id": id, "deleted": true}, err)
}

func (h *sandboxHandlers) handleListResources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var kinds []registry.Kind
	if name := request.GetString("kind", ""); name != "" {
		kind, err := registry.ParseKind(name)
		if err != nil {
			return fail(err)
		}
		kinds = append(kinds, kind)
	}
	resources := h.sb.ListResources(kinds...)
	return reply(map[string]any{"resources": resources, "count": len(resources)}, nil)
}
