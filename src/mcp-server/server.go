// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/browser"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/devdocs"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/engine"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/portstream"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/sandbox"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/workspace"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/logger"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/mcp-server/templates"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/version"
)

var appVersion = version.Version // default version

// shutdownTimeout bounds the cleanup of tracked resources on exit.
const shutdownTimeout = 30 * time.Second

// GetVersion returns the current version of the MCP server.
//
// The version is initially set to the default from the version package,
// but can be overridden when calling Run() with a specific version string.
func GetVersion() string {
	return appVersion
}

// newSandbox wires the sandbox collaborators enabled by config. A disabled
// feature leaves its collaborator nil so the matching tools report
// UNAVAILABLE instead of failing at startup.
func newSandbox(ctx context.Context, config *Config, log *slog.Logger) (*sandbox.Sandbox, error) {
	p, err := config.BuildPolicy()
	if err != nil {
		return nil, err
	}

	deps := sandbox.Deps{
		Policy:  p,
		Logger:  log,
		Streams: portstream.NewManager(portstream.WithLogger(log)),
	}

	if config.Features.Docker {
		docker, err := engine.NewDocker(config.Docker.Host)
		if err != nil {
			return nil, err
		}
		deps.Engine = docker
	}

	if config.Features.Browser {
		rod := &browser.Rod{Bin: config.Browser.Bin}
		if config.Browser.SeleniumURL != "" {
			rod.Selenium = &browser.Selenium{URL: config.Browser.SeleniumURL}
		}
		deps.Launcher = rod
	}

	if config.Features.Docs {
		deps.Docs = devdocs.New(devdocs.Config{
			BaseURL: config.DevDocs.URL,
			Timeout: seconds(config.DevDocs.TimeoutSeconds),
			Version: GetVersion(),
		}, devdocs.NewCache(devdocs.CacheConfig{
			MaxSize: config.DevDocs.CacheSize,
			TTL:     seconds(config.DevDocs.CacheTTL),
		}))
	}

	// Screenshots and container copies land in the workspace even when the
	// upload tools are disabled.
	if config.Features.Docker || config.Features.Browser || config.Features.Files {
		ws, err := workspace.Open(config.Workspace.Dir, config.Workspace.MaxFileBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to open workspace: %w", err)
		}
		deps.Workspace = ws
	}

	sb, err := sandbox.New(ctx, sandbox.Config{
		WorkingDir:  config.Docker.WorkspaceMount,
		Network:     config.Docker.Network,
		ExecTimeout: seconds(config.Defaults.Timeout),
		StopTimeout: seconds(config.Defaults.StopTimeout),
		LogTail:     config.Defaults.LogTail,
		Headless:    config.Browser.Headless,
		Viewport: browser.Viewport{
			Width:  config.Browser.Viewport.Width,
			Height: config.Browser.Viewport.Height,
		},
		MaxFileBytes: config.Workspace.MaxFileBytes,
	}, deps)
	if err != nil {
		return nil, err
	}

	if config.Features.AutoCleanup {
		if _, err := sb.StartJanitor(ctx, config.Janitor.Schedule, seconds(config.Janitor.MaxIdle)); err != nil {
			return nil, errors.Join(err, sb.Shutdown(ctx))
		}
	}
	return sb, nil
}

// buildServer assembles the MCP server around sb.
func buildServer(config *Config, sb *sandbox.Sandbox) (*server.MCPServer, error) {
	tools := createTools(config, newSandboxHandlers(sb, config))

	instructions, err := loadInstructions(tools)
	if err != nil {
		return nil, fmt.Errorf("failed to load instructions: %w", err)
	}

	return NewServerBuilder().
		WithConfig(config).
		WithEmbed(templates.MagicEmbed).
		WithVersion(GetVersion()).
		WithSandbox(sb).
		WithTools(tools...).
		WithDefaultResources().
		WithPrompts(createPrompts()...).
		WithInstructions(instructions).
		Build()
}

// serve runs the stdio transport on in and out until ctx is cancelled or the
// client closes its end, then deletes every tracked resource.
//
// Cancellation is a normal exit and yields nil.
func serve(ctx context.Context, config *Config, in io.Reader, out io.Writer) error {
	log, err := logger.NewStructured(os.Stderr, config.Logging.Level, config.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	sb, err := newSandbox(ctx, config, log)
	if err != nil {
		return fmt.Errorf("failed to create sandbox: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := sb.Shutdown(sctx); err != nil {
			log.Warn("sandbox shutdown incomplete", "error", err)
		}
	}()

	s, err := buildServer(config, sb)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	stdioServer := server.NewStdioServer(s)
	stdioServer.SetErrorLogger(slog.NewLogLogger(log.Handler(), slog.LevelError))

	log.Info("server started",
		"version", GetVersion(),
		"security_level", sb.Policy().Level(),
		"workspace", config.Workspace.Dir,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- stdioServer.Listen(ctx, in, out)
	}()

	select {
	case err := <-errChan:
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("server shutdown", "cause", context.Cause(ctx))
		return nil
	}
}

// Run starts the MCP dev sandbox on stdio.
//
// Parameters:
//   - version: Version string to set for the server (e.g., "0.1.0")
//
// Configuration is read from the file named by MCP_SANDBOX_CONFIG_FILE, with
// defaults for anything missing. SIGINT and SIGTERM stop the server; every
// container, browser and port stream it created is released before Run
// returns.
func Run(version string) error {
	appVersion = version

	config, err := loadConfig(os.Getenv(envConfigFile))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, config, os.Stdin, os.Stdout)
}
