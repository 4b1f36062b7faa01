// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"time"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/devdocs"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
)

// EngineStatus reports container engine reachability.
type EngineStatus struct {
	Enabled   bool   `json:"enabled"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// Status is a point-in-time view of the sandbox.
type Status struct {
	StartedAt     time.Time      `json:"startedAt"`
	Uptime        string         `json:"uptime"`
	SecurityLevel string         `json:"securityLevel"`
	Resources     registry.Stats `json:"resources"`
	Streams       int            `json:"activeStreams"`
	Engine        EngineStatus   `json:"engine"`
	Browser       bool           `json:"browserEnabled"`
	Docs          bool           `json:"docsEnabled"`
	Workspace     string         `json:"workspace,omitempty"`
	Janitor       bool           `json:"janitorRunning"`
}

// Status collects counts and pings the engine with a short deadline.
func (s *Sandbox) Status(ctx context.Context) Status {
	st := Status{
		StartedAt:     s.started,
		Uptime:        s.now().Sub(s.started).Round(time.Second).String(),
		SecurityLevel: s.policy.Level().String(),
		Resources:     s.reg.Stats(),
		Streams:       len(s.stream.List()),
		Browser:       s.launch != nil,
		Docs:          s.docs != nil,
	}
	if s.ws != nil {
		st.Workspace = s.ws.Root()
	}
	s.mu.Lock()
	st.Janitor = s.janitor != nil
	s.mu.Unlock()

	if s.engine != nil {
		st.Engine.Enabled = true
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.engine.Ping(pctx); err != nil {
			st.Engine.Error = err.Error()
		} else {
			st.Engine.Reachable = true
		}
	}
	return st
}

// CacheMetrics returns DevDocs cache metrics, or nil when docs are disabled.
func (s *Sandbox) CacheMetrics() *devdocs.CacheMetrics {
	if s.docs == nil || s.docs.Cache() == nil {
		return nil
	}
	m := s.docs.Cache().Metrics()
	return &m
}
