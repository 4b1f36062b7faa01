// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/mcptest"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/devdocs"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/sandbox"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/workspace"
)

// harness runs the full tool and resource surface over an in-process
// MCP transport against stub collaborators.
type harness struct {
	t        *testing.T
	config   *Config
	sb       *sandbox.Sandbox
	eng      *stubEngine
	launcher *stubLauncher
	srv      *mcptest.Server
}

// toolResult is a decoded tool envelope.
type toolResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *toolError      `json:"error"`

	isError bool
}

// decode unmarshals the data payload into v.
func (r toolResult) decode(t *testing.T, v any) {
	t.Helper()
	require.NotEmpty(t, r.Data, "result has no data")
	require.NoError(t, json.Unmarshal(r.Data, v))
}

// code returns the error code or "" when the result carries no error.
func (r toolResult) code() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// newDevDocsServer serves a tiny DevDocs instance with one documentation set.
func newDevDocsServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/docs.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"slug":"go","name":"Go"},{"slug":"python~3.12","name":"Python","version":"3.12"}]`)
	})
	mux.HandleFunc("/docs/go/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"entries":[{"name":"net/http","path":"net/http/index","type":"net"},{"name":"strings.Cut","path":"strings/index#Cut","type":"strings"}]}`)
	})
	mux.HandleFunc("/docs/go/net/http/index.html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Package http</h1><script>ignored()</script><p>Client and server.</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newHarness starts an MCP test server. Options adjust the default
// configuration before any collaborator is wired.
func newHarness(t *testing.T, opts ...func(*Config)) *harness {
	t.Helper()

	config := defaultConfig()
	config.Workspace.Dir = t.TempDir()
	config.Features.AutoCleanup = false
	for _, opt := range opts {
		opt(config)
	}

	p, err := config.BuildPolicy()
	require.NoError(t, err)
	ws, err := workspace.Open(config.Workspace.Dir, config.Workspace.MaxFileBytes)
	require.NoError(t, err)

	h := &harness{t: t, config: config, eng: newStubEngine(), launcher: &stubLauncher{}}
	deps := sandbox.Deps{
		Policy:    p,
		Workspace: ws,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if config.Features.Docker {
		deps.Engine = h.eng
	}
	if config.Features.Browser {
		deps.Launcher = h.launcher
	}
	if config.Features.Docs {
		docs := newDevDocsServer(t)
		deps.Docs = devdocs.New(devdocs.Config{BaseURL: docs.URL, Version: "test"},
			devdocs.NewCache(devdocs.CacheConfig{MaxSize: 8}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h.sb, err = sandbox.New(ctx, sandbox.Config{}, deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.sb.Shutdown(context.Background()) })

	handlers := newSandboxHandlers(h.sb, config)
	var tools []server.ServerTool
	for _, def := range createTools(config, handlers) {
		tools = append(tools, server.ServerTool{Tool: def.Tool, Handler: def.Handler})
	}

	h.srv = mcptest.NewUnstartedServer(t)
	h.srv.AddTools(tools...)
	h.srv.AddResources(createResources(handlers)...)
	require.NoError(t, h.srv.Start(ctx))
	t.Cleanup(h.srv.Close)

	return h
}

// call invokes a tool and decodes its envelope.
func (h *harness) call(name string, args map[string]any) toolResult {
	h.t.Helper()
	result, err := h.srv.Client().CallTool(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(h.t, err, "tool %s", name)
	require.NotEmpty(h.t, result.Content, "tool %s returned no content", name)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(h.t, ok, "tool %s returned %T", name, result.Content[0])

	var out toolResult
	require.NoError(h.t, json.Unmarshal([]byte(text.Text), &out), "tool %s: %s", name, text.Text)
	out.isError = result.IsError
	return out
}

// mustCall invokes a tool and fails the test unless it succeeded.
func (h *harness) mustCall(name string, args map[string]any) toolResult {
	h.t.Helper()
	out := h.call(name, args)
	require.True(h.t, out.Success, "tool %s failed: %+v", name, out.Error)
	return out
}

// resourceInfo is the subset of a registry resource the tests inspect.
type resourceInfo struct {
	ID       string            `json:"id"`
	Kind     string            `json:"kind"`
	Label    string            `json:"label"`
	State    string            `json:"state"`
	Target   string            `json:"target"`
	ParentID string            `json:"parentId"`
	Meta     map[string]string `json:"meta"`
}

// create runs create_container for the given image and name.
func (h *harness) create(image, name string) resourceInfo {
	h.t.Helper()
	var res resourceInfo
	h.mustCall("create_container", map[string]any{"image": image, "name": name}).decode(h.t, &res)
	return res
}

// listResources returns list_resources output, optionally filtered by kind.
func (h *harness) listResources(kind string) []resourceInfo {
	h.t.Helper()
	args := map[string]any{}
	if kind != "" {
		args["kind"] = kind
	}
	var out struct {
		Resources []resourceInfo `json:"resources"`
		Count     int            `json:"count"`
	}
	h.mustCall("list_resources", args).decode(h.t, &out)
	require.Len(h.t, out.Resources, out.Count)
	return out.Resources
}

// readResource reads a resource and returns its text.
func (h *harness) readResource(uri string) string {
	h.t.Helper()
	result, err := h.srv.Client().ReadResource(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: uri},
	})
	require.NoError(h.t, err, "resource %s", uri)
	require.Len(h.t, result.Contents, 1)
	text, ok := result.Contents[0].(mcp.TextResourceContents)
	require.True(h.t, ok, "resource %s returned %T", uri, result.Contents[0])
	return text.Text
}
