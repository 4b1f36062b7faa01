// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/browser"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/devdocs"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/engine"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/policy"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/portstream"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/workspace"
)

// Meta keys recorded on registry resources.
const (
	MetaEngineID = "engine_id"
	MetaShortID  = "short_id"
	MetaBackend  = "backend"
	MetaBrowser  = "browser"
	MetaURL      = "url"
	MetaListen   = "listen"
	MetaPort     = "container_port"
)

// Config holds the tunables of a Sandbox.
type Config struct {
	// WorkingDir is the container directory the workspace is mounted on.
	WorkingDir string
	// Network is the engine network new containers join. Empty means default.
	Network string
	// ExecTimeout bounds execute_command when the caller gives no timeout.
	ExecTimeout time.Duration
	// StopTimeout is the grace period given to a container on stop.
	StopTimeout time.Duration
	// LogTail is the default number of log lines returned.
	LogTail int
	// Headless is the default browser mode.
	Headless bool
	// Viewport is applied to every new CDP page.
	Viewport browser.Viewport
	// MaxFileBytes bounds files read out of containers.
	MaxFileBytes int64
}

// DefaultConfig returns the values used when a field is left zero.
func DefaultConfig() Config {
	return Config{
		WorkingDir:   "/workspace",
		ExecTimeout:  30 * time.Second,
		StopTimeout:  10 * time.Second,
		LogTail:      100,
		Headless:     true,
		Viewport:     browser.Viewport{Width: 1920, Height: 1080},
		MaxFileBytes: workspace.DefaultMaxFileBytes,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WorkingDir == "" {
		c.WorkingDir = d.WorkingDir
	}
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = d.ExecTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	if c.LogTail <= 0 {
		c.LogTail = d.LogTail
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		c.Viewport = d.Viewport
	}
	if c.MaxFileBytes <= 0 {
		c.MaxFileBytes = d.MaxFileBytes
	}
	return c
}

// Deps are the collaborators a Sandbox drives. Policy is required; a nil
// Engine, Launcher, Docs or Workspace disables the tools that need it.
type Deps struct {
	Policy    *policy.Policy
	Engine    engine.Engine
	Launcher  browser.Launcher
	Streams   *portstream.Manager
	Docs      *devdocs.Client
	Workspace *workspace.Workspace
	Logger    *slog.Logger
	// Clock overrides time.Now. Intended for tests.
	Clock func() time.Time
}

// Sandbox is the dependency-injected root that tool handlers call into.
type Sandbox struct {
	cfg    Config
	root   context.Context
	policy *policy.Policy
	reg    *registry.Registry
	engine engine.Engine
	launch browser.Launcher
	pool   *browser.Pool
	stream *portstream.Manager
	docs   *devdocs.Client
	ws     *workspace.Workspace
	logger *slog.Logger
	now    func() time.Time

	started time.Time

	mu      sync.Mutex
	janitor *Janitor
	closed  bool
}

// New wires a sandbox. root bounds long-lived background work such as port
// streams; it should be the process context, not a request context.
func New(root context.Context, cfg Config, deps Deps) (*Sandbox, error) {
	if deps.Policy == nil {
		return nil, errors.New("sandbox: policy is required")
	}
	s := &Sandbox{
		cfg:    cfg.withDefaults(),
		root:   root,
		policy: deps.Policy,
		engine: deps.Engine,
		launch: deps.Launcher,
		pool:   browser.NewPool(),
		stream: deps.Streams,
		docs:   deps.Docs,
		ws:     deps.Workspace,
		logger: deps.Logger,
		now:    deps.Clock,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.stream == nil {
		s.stream = portstream.NewManager(portstream.WithLogger(s.logger))
	}
	s.started = s.now()
	s.reg = registry.New(
		registry.WithLogger(s.logger),
		registry.WithClock(s.now),
		registry.WithCleanup(registry.Cleanup{
			Container:       s.releaseContainer,
			BrowserInstance: s.releaseBrowser,
			BrowserPage:     s.releaseBrowser,
			PortStream:      s.releaseStream,
		}),
	)
	return s, nil
}

// Registry exposes the session registry for read-only views.
func (s *Sandbox) Registry() *registry.Registry { return s.reg }

// Policy returns the policy gate.
func (s *Sandbox) Policy() *policy.Policy { return s.policy }

// Docs returns the DevDocs client, or an error when documentation is disabled.
func (s *Sandbox) Docs() (*devdocs.Client, error) {
	if s.docs == nil {
		return nil, apperr.Unavailable("devdocs", errDisabled)
	}
	return s.docs, nil
}

// Workspace returns the host workspace, or an error when file tools are disabled.
func (s *Sandbox) Workspace() (*workspace.Workspace, error) {
	if s.ws == nil {
		return nil, apperr.Unavailable("workspace", errDisabled)
	}
	return s.ws, nil
}

var errDisabled = errors.New("disabled by configuration")

func (s *Sandbox) needEngine() (engine.Engine, error) {
	if s.engine == nil {
		return nil, apperr.Unavailable("container engine", errDisabled)
	}
	return s.engine, nil
}

func (s *Sandbox) needLauncher() (browser.Launcher, error) {
	if s.launch == nil {
		return nil, apperr.Unavailable("browser automation", errDisabled)
	}
	return s.launch, nil
}

func resourceAttrs(res registry.Resource) []any {
	return []any{"id", res.ID, "kind", res.Kind.String(), "label", res.Label, "state", res.State.String()}
}

// abandon deletes a reservation whose collaborator call failed and returns cause.
func (s *Sandbox) abandon(ctx context.Context, res registry.Resource, cause error) error {
	s.logger.Warn("reservation abandoned", append(resourceAttrs(res), "error", cause)...)
	if err := s.reg.Delete(context.WithoutCancel(ctx), res.ID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return errors.Join(cause, err)
	}
	return cause
}

// vanished reports a reservation deleted while its collaborator call was
// running. Create paths surface that as NOT_FOUND rather than as a transition
// failure.
func vanished(res registry.Resource, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound("%s %s was deleted while it was being created", res.Kind, res.Label)
	}
	return err
}

// resolve finds a live resource of one of kinds by id or label.
func (s *Sandbox) resolve(ref string, kinds ...registry.Kind) (registry.Resource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return registry.Resource{}, apperr.InvalidInput("resource reference is empty")
	}
	if res, err := s.reg.Get(ref); err == nil {
		for _, k := range kinds {
			if res.Kind == k {
				return res, nil
			}
		}
		return registry.Resource{}, apperr.NotFound("%s %s", kindNames(kinds), ref)
	}
	for _, res := range s.reg.List(kinds...) {
		if res.Label == ref {
			return res, nil
		}
	}
	return registry.Resource{}, apperr.NotFound("%s %s", kindNames(kinds), ref)
}

func kindNames(kinds []registry.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, " or ")
}

// DeleteResource deletes any resource by id, cascading to its children.
func (s *Sandbox) DeleteResource(ctx context.Context, id string) error {
	err := s.reg.Delete(ctx, id)
	if err == nil || apperr.IsWarning(err) {
		s.logger.Info("resource deleted", "id", id, "warning", err != nil)
	}
	return err
}

// ListResources returns live resources in creation order.
func (s *Sandbox) ListResources(kinds ...registry.Kind) []registry.Resource {
	return s.reg.List(kinds...)
}

// Shutdown releases everything the sandbox created. It is safe to call more
// than once; later calls are no-ops.
func (s *Sandbox) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	j := s.janitor
	s.janitor = nil
	s.mu.Unlock()

	if j != nil {
		j.Stop()
	}

	err := s.reg.DeleteAll(ctx)
	if err != nil {
		s.logger.Warn("shutdown left external resources behind", "error", err)
	}
	s.stream.StopAll()
	if s.engine != nil {
		if cerr := s.engine.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close engine: %w", cerr))
		}
	}
	return err
}
