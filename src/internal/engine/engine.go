// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package engine

import (
	"context"
	"time"
)

// Engine is the subset of container engine operations the sandbox uses.
// Implementations must be safe for concurrent use.
type Engine interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, spec Spec) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeout time.Duration) error
	Restart(ctx context.Context, id string, timeout time.Duration) error
	Remove(ctx context.Context, id string) error
	Inspect(ctx context.Context, id string) (Info, error)
	Exec(ctx context.Context, id string, cmd []string) (ExecResult, error)
	Logs(ctx context.Context, id string, tail int) (string, error)
	CopyTo(ctx context.Context, id, path string, content []byte) error
	CopyFrom(ctx context.Context, id, path string, limit int64) ([]byte, error)
	Close() error
}

// Spec describes a container to create.
type Spec struct {
	Name       string
	Image      string
	Cmd        []string
	Env        map[string]string
	Ports      map[int]int // container port -> host port
	WorkingDir string
	Binds      []string
	GPU        bool
	Network    string
	Labels     map[string]string
}

// Info is the live view of a container.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Status    string    `json:"status"`
	Running   bool      `json:"running"`
	IPAddress string    `json:"ipAddress,omitempty"`
	StartedAt time.Time `json:"startedAt,omitzero"`
}

// ExecResult is the outcome of a command run inside a container.
type ExecResult struct {
	ExitCode int    `json:"exitCode"`
	Output   string `json:"output"`
}

// ManagedLabel marks containers created by this process.
const ManagedLabel = "io.mcp-dev-sandbox.managed"

// ShortID truncates an engine id to the 12 characters Docker prints.
func ShortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
