// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/engine"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
)

// LabelResourceID links an engine container back to its registry id.
const LabelResourceID = "io.mcp-dev-sandbox.resource-id"

// ContainerRequest is the input of [Sandbox.CreateContainer].
type ContainerRequest struct {
	Image   string
	Name    string
	Command string
	Env     map[string]string
	Ports   map[int]int
	GPU     bool
}

// Container is a registry entry together with its live engine view.
type Container struct {
	registry.Resource
	Engine *engine.Info `json:"engine,omitempty"`
	// EngineError is set when the live view could not be fetched.
	EngineError string `json:"engineError,omitempty"`
}

// CreateContainer approves, reserves, creates and starts a container.
func (s *Sandbox) CreateContainer(ctx context.Context, req ContainerRequest) (registry.Resource, error) {
	if err := s.policy.Approve(registry.KindContainer, req.Image); err != nil {
		s.logger.Warn("policy rejected container", "image", req.Image, "error", err)
		return registry.Resource{}, err
	}
	if req.GPU {
		if err := s.policy.ApproveGPU(); err != nil {
			return registry.Resource{}, err
		}
	}
	eng, err := s.needEngine()
	if err != nil {
		return registry.Resource{}, err
	}

	cmd := engine.DefaultCommand(req.Image)
	if strings.TrimSpace(req.Command) != "" {
		if cmd, err = engine.SplitCommand(req.Command); err != nil {
			return registry.Resource{}, err
		}
	}

	res, err := s.reg.Create(registry.CreateRequest{
		Kind:   registry.KindContainer,
		Label:  req.Name,
		Target: req.Image,
		Meta:   map[string]string{"gpu": fmt.Sprint(req.GPU)},
	})
	if err != nil {
		return registry.Resource{}, err
	}
	s.logger.Info("container reserved", resourceAttrs(res)...)

	spec := engine.Spec{
		Name:       req.Name,
		Image:      req.Image,
		Cmd:        cmd,
		Env:        req.Env,
		Ports:      req.Ports,
		WorkingDir: s.cfg.WorkingDir,
		GPU:        req.GPU,
		Network:    s.cfg.Network,
		Labels: map[string]string{
			engine.ManagedLabel: "true",
			LabelResourceID:     res.ID,
		},
	}
	if s.ws != nil {
		spec.Binds = []string{s.ws.Root() + ":" + s.cfg.WorkingDir}
	}

	engineID, err := eng.Create(ctx, spec)
	if err != nil {
		return registry.Resource{}, s.abandon(ctx, res, err)
	}
	if _, err := s.reg.Annotate(res.ID, map[string]string{
		MetaEngineID: engineID,
		MetaShortID:  engine.ShortID(engineID),
	}); err != nil {
		// Deleted while the engine was working; nothing will release it but us.
		if rerr := eng.Remove(context.WithoutCancel(ctx), engineID); rerr != nil {
			s.logger.Warn("engine container not removed; remove it by hand",
				append(resourceAttrs(res), "engine_id", engineID, "error", rerr)...)
		}
		return registry.Resource{}, vanished(res, err)
	}
	if err := eng.Start(ctx, engineID); err != nil {
		return registry.Resource{}, s.abandon(ctx, res, err)
	}
	running, err := s.reg.Transition(ctx, res.ID, registry.StateRunning)
	if err != nil {
		return registry.Resource{}, vanished(res, err)
	}
	res = running
	s.logger.Info("container running", append(resourceAttrs(res), "engine_id", engine.ShortID(engineID))...)
	return res, nil
}

// releaseContainer is the container cleanup strategy.
func (s *Sandbox) releaseContainer(ctx context.Context, res registry.Resource) error {
	id := res.Meta[MetaEngineID]
	if id == "" || s.engine == nil {
		return nil
	}
	if res.State == registry.StateRunning {
		if err := s.engine.Stop(ctx, id, s.cfg.StopTimeout); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Debug("stop before remove failed", "id", res.ID, "error", err)
		}
	}
	return s.engine.Remove(ctx, id)
}

// ResolveContainer finds a live container by registry id, label, engine id
// or engine id prefix.
func (s *Sandbox) ResolveContainer(ref string) (registry.Resource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return registry.Resource{}, apperr.InvalidInput("container_id is required")
	}
	containers := s.reg.List(registry.KindContainer)
	for _, c := range containers {
		if c.ID == ref || c.Label == ref || c.Meta[MetaEngineID] == ref {
			return c, nil
		}
	}
	var match []registry.Resource
	for _, c := range containers {
		if eid := c.Meta[MetaEngineID]; eid != "" && strings.HasPrefix(eid, ref) {
			match = append(match, c)
		}
	}
	switch len(match) {
	case 0:
		return registry.Resource{}, apperr.NotFound("container %s", ref)
	case 1:
		return match[0], nil
	default:
		return registry.Resource{}, apperr.InvalidInput("container reference %q is ambiguous", ref)
	}
}

// runningContainer resolves ref and requires it to be running.
func (s *Sandbox) runningContainer(ref string) (registry.Resource, string, error) {
	res, err := s.ResolveContainer(ref)
	if err != nil {
		return res, "", err
	}
	if res.State != registry.StateRunning {
		return res, "", fmt.Errorf("container %s is %s: %w", res.Label, res.State, apperr.ErrInvalidTransition)
	}
	s.reg.Touch(res.ID)
	return res, res.Meta[MetaEngineID], nil
}

// ListContainers returns managed containers with their live engine status.
func (s *Sandbox) ListContainers(ctx context.Context) []Container {
	list := s.reg.List(registry.KindContainer)
	out := make([]Container, 0, len(list))
	for _, res := range list {
		c := Container{Resource: res}
		if eid := res.Meta[MetaEngineID]; eid != "" && s.engine != nil {
			info, err := s.engine.Inspect(ctx, eid)
			if err != nil {
				c.EngineError = err.Error()
			} else {
				c.Engine = &info
			}
		}
		out = append(out, c)
	}
	return out
}

// transition reserves to, runs call without the registry lock, then commits.
func (s *Sandbox) transition(ctx context.Context, ref string, to registry.State, call func(context.Context, engine.Engine, string) error) (registry.Resource, error) {
	eng, err := s.needEngine()
	if err != nil {
		return registry.Resource{}, err
	}
	res, err := s.ResolveContainer(ref)
	if err != nil {
		return registry.Resource{}, err
	}
	if _, err := s.reg.CanTransition(res.ID, to); err != nil {
		return registry.Resource{}, err
	}
	if err := call(ctx, eng, res.Meta[MetaEngineID]); err != nil {
		return registry.Resource{}, err
	}
	res, err = s.reg.Transition(ctx, res.ID, to)
	if err != nil {
		return registry.Resource{}, err
	}
	s.logger.Info("container transitioned", resourceAttrs(res)...)
	return res, nil
}

// StopContainer stops a running container.
func (s *Sandbox) StopContainer(ctx context.Context, ref string) (registry.Resource, error) {
	return s.transition(ctx, ref, registry.StateStopped, func(ctx context.Context, eng engine.Engine, id string) error {
		return eng.Stop(ctx, id, s.cfg.StopTimeout)
	})
}

// StartContainer starts a stopped container.
func (s *Sandbox) StartContainer(ctx context.Context, ref string) (registry.Resource, error) {
	return s.transition(ctx, ref, registry.StateRunning, func(ctx context.Context, eng engine.Engine, id string) error {
		return eng.Start(ctx, id)
	})
}

// RestartContainer restarts a running or stopped container. A running
// container passes through Stopped.
func (s *Sandbox) RestartContainer(ctx context.Context, ref string) (registry.Resource, error) {
	res, err := s.ResolveContainer(ref)
	if err != nil {
		return registry.Resource{}, err
	}
	if res.State == registry.StateRunning {
		if _, err := s.transition(ctx, res.ID, registry.StateStopped, func(ctx context.Context, eng engine.Engine, id string) error {
			return eng.Restart(ctx, id, s.cfg.StopTimeout)
		}); err != nil {
			return registry.Resource{}, err
		}
		return s.reg.Transition(ctx, res.ID, registry.StateRunning)
	}
	return s.transition(ctx, res.ID, registry.StateRunning, func(ctx context.Context, eng engine.Engine, id string) error {
		return eng.Restart(ctx, id, s.cfg.StopTimeout)
	})
}

// DeleteContainer deletes a container and its port streams. A failed engine
// call yields an [*apperr.CleanupWarning] after the record is removed.
func (s *Sandbox) DeleteContainer(ctx context.Context, ref string) (registry.Resource, error) {
	res, err := s.ResolveContainer(ref)
	if err != nil {
		return registry.Resource{}, err
	}
	err = s.reg.Delete(ctx, res.ID)
	res.State = registry.StateDeleted
	if err != nil && !apperr.IsWarning(err) {
		return registry.Resource{}, err
	}
	s.logger.Info("container deleted", append(resourceAttrs(res), "warning", err != nil)...)
	return res, err
}

// Exec runs command through the container shell. A zero timeout uses the
// configured default.
func (s *Sandbox) Exec(ctx context.Context, ref, command string, timeout time.Duration) (engine.ExecResult, error) {
	eng, err := s.needEngine()
	if err != nil {
		return engine.ExecResult{}, err
	}
	if strings.TrimSpace(command) == "" {
		return engine.ExecResult{}, apperr.InvalidInput("command is required")
	}
	_, id, err := s.runningContainer(ref)
	if err != nil {
		return engine.ExecResult{}, err
	}
	if timeout <= 0 {
		timeout = s.cfg.ExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := eng.Exec(ctx, id, engine.ShellCommand(command))
	if errors.Is(err, context.DeadlineExceeded) {
		return out, fmt.Errorf("command timed out after %s: %w", timeout, apperr.ErrUnavailable)
	}
	return out, err
}

// Logs returns the last tail lines of container output. tail <= 0 uses the default.
func (s *Sandbox) Logs(ctx context.Context, ref string, tail int) (string, error) {
	eng, err := s.needEngine()
	if err != nil {
		return "", err
	}
	res, err := s.ResolveContainer(ref)
	if err != nil {
		return "", err
	}
	if tail <= 0 {
		tail = s.cfg.LogTail
	}
	s.reg.Touch(res.ID)
	return eng.Logs(ctx, res.Meta[MetaEngineID], tail)
}
