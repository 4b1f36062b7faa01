// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/sandbox"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server/templates"
)

// serverName is reported to MCP clients during initialization.
const serverName = "MCP Dev Sandbox"

// ToolHandler defines the signature for tool handlers that matches [MCP] server expectations.
// It processes tool calls and returns results.
//
// Handlers in this package never return a Go error for domain failures; the
// failure is encoded in the result envelope instead.
//
// [MCP]: https://modelcontextprotocol.io/docs/getting-started/intro
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ResourceHandler defines the signature for resource handlers that provide static or dynamic resources.
// It processes resource read requests and returns the resource contents.
type ResourceHandler = func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error)

// PromptHandler defines the signature for prompt handlers that provide predefined prompts.
// It processes prompt requests and returns prompt content with optional arguments.
type PromptHandler = func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error)

// ToolDefinition holds a tool definition and its handler.
// It pairs an MCP tool specification with its implementation function.
//
// Fields:
//   - Tool: The MCP tool definition containing name, description, and input schema
//   - Handler: The function that implements the tool's logic
//   - Role: Optional key the instructions template uses to refer to the tool
//   - Group: The feature toggle the tool belongs to (docker, browser, files, docs, system)
type ToolDefinition struct {
	Tool    mcp.Tool
	Handler ToolHandler
	Role    string
	Group   string
}

// ServerDependencies holds all dependencies needed to create the MCP server.
// It consolidates all required components for server initialization using the builder pattern.
//
// Fields:
//   - Config: Server configuration
//   - Embed: Embedded filesystem for templates
//   - Version: Server version string reported to clients
//   - Sandbox: The orchestration root every tool handler calls into
//   - Tools: Tool definitions
//   - Resources: Static and dynamic resources
//   - Prompts: Predefined prompts for guided workflows
//   - Instructions: Text sent to clients during initialization
type ServerDependencies struct {
	Config       *Config
	Embed        templates.EmbedFS
	Version      string
	Sandbox      *sandbox.Sandbox
	Tools        []ToolDefinition
	Resources    []server.ServerResource
	Prompts      []server.ServerPrompt
	Instructions string
}

// ServerBuilder helps construct the MCP server with proper dependencies.
// It provides a fluent interface for configuring server components.
//
// Example usage:
//
//	s, err := NewServerBuilder().
//	    WithConfig(config).
//	    WithVersion("1.0.0").
//	    WithSandbox(sb).
//	    WithDefaultTools().
//	    WithDefaultResources().
//	    WithPrompts(createPrompts()...).
//	    Build()
type ServerBuilder struct {
	deps ServerDependencies
	err  error
}

// NewServerBuilder creates a new server builder.
func NewServerBuilder() *ServerBuilder {
	return &ServerBuilder{}
}

// WithConfig sets the server configuration.
func (b *ServerBuilder) WithConfig(config *Config) *ServerBuilder {
	b.deps.Config = config
	return b
}

// WithEmbed sets the embedded filesystem used for templates.
func (b *ServerBuilder) WithEmbed(embed templates.EmbedFS) *ServerBuilder {
	b.deps.Embed = embed
	return b
}

// WithVersion sets the server version.
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.deps.Version = version
	return b
}

// WithSandbox sets the sandbox the default tools and resources operate on.
func (b *ServerBuilder) WithSandbox(sb *sandbox.Sandbox) *ServerBuilder {
	b.deps.Sandbox = sb
	return b
}

// WithTools adds tools to the server.
func (b *ServerBuilder) WithTools(tools ...ToolDefinition) *ServerBuilder {
	b.deps.Tools = append(b.deps.Tools, tools...)
	return b
}

// WithResources adds resources to the server.
func (b *ServerBuilder) WithResources(resources ...server.ServerResource) *ServerBuilder {
	b.deps.Resources = append(b.deps.Resources, resources...)
	return b
}

// WithPrompts adds prompts to the server.
func (b *ServerBuilder) WithPrompts(prompts ...server.ServerPrompt) *ServerBuilder {
	b.deps.Prompts = append(b.deps.Prompts, prompts...)
	return b
}

// WithInstructions sets the instructions sent to clients during initialization.
func (b *ServerBuilder) WithInstructions(instructions string) *ServerBuilder {
	b.deps.Instructions = instructions
	return b
}

// errNoSandbox is reported by Build when default tools or resources were
// requested before a sandbox was set.
var errNoSandbox = errors.New("mcp server: sandbox is required for default tools and resources")

// WithDefaultTools adds every tool enabled by the configured feature toggles.
// WithConfig and WithSandbox must be called first.
func (b *ServerBuilder) WithDefaultTools() *ServerBuilder {
	if b.deps.Sandbox == nil {
		b.err = errNoSandbox
		return b
	}
	b.deps.Tools = append(b.deps.Tools, createTools(b.config(), newSandboxHandlers(b.deps.Sandbox, b.config()))...)
	return b
}

// WithDefaultResources adds the built-in resources.
// WithConfig and WithSandbox must be called first.
func (b *ServerBuilder) WithDefaultResources() *ServerBuilder {
	if b.deps.Sandbox == nil {
		b.err = errNoSandbox
		return b
	}
	b.deps.Resources = append(b.deps.Resources, createResources(newSandboxHandlers(b.deps.Sandbox, b.config()))...)
	return b
}

func (b *ServerBuilder) config() *Config {
	if b.deps.Config == nil {
		b.deps.Config = defaultConfig()
	}
	return b.deps.Config
}

// Build creates the MCP server with all configured dependencies.
//
// Tool handler panics are recovered by the server so that no failure
// escapes to the transport.
func (b *ServerBuilder) Build() (*server.MCPServer, error) {
	if b.err != nil {
		return nil, b.err
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
	}
	if b.deps.Instructions != "" {
		opts = append(opts, server.WithInstructions(b.deps.Instructions))
	}

	s := server.NewMCPServer(serverName, b.deps.Version, opts...)

	// Add tools
	for _, tool := range b.deps.Tools {
		s.AddTool(tool.Tool, tool.Handler)
	}

	// Add resources
	for _, resource := range b.deps.Resources {
		s.AddResource(resource.Resource, resource.Handler)
	}

	// Add prompts
	for _, prompt := range b.deps.Prompts {
		s.AddPrompt(prompt.Prompt, prompt.Handler)
	}

	return s, nil
}
