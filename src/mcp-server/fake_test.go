// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/browser"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/engine"
)

// stubEngine is a minimal in-memory engine.Engine for handler tests.
type stubEngine struct {
	mu         sync.Mutex
	seq        int
	running    map[string]bool
	files      map[string][]byte
	failRemove error
}

func newStubEngine() *stubEngine {
	return &stubEngine{running: make(map[string]bool), files: make(map[string][]byte)}
}

func (e *stubEngine) known(id string) error {
	if _, ok := e.running[id]; !ok {
		return apperr.NotFound("container %s", id)
	}
	return nil
}

func (e *stubEngine) Ping(context.Context) error { return nil }

func (e *stubEngine) Create(_ context.Context, spec engine.Spec) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	id := fmt.Sprintf("%02x%062x", e.seq, e.seq)
	e.running[id] = false
	return id, nil
}

func (e *stubEngine) setRunning(id string, running bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.known(id); err != nil {
		return err
	}
	e.running[id] = running
	return nil
}

func (e *stubEngine) Start(_ context.Context, id string) error { return e.setRunning(id, true) }

func (e *stubEngine) Stop(_ context.Context, id string, _ time.Duration) error {
	return e.setRunning(id, false)
}

func (e *stubEngine) Restart(_ context.Context, id string, _ time.Duration) error {
	return e.setRunning(id, true)
}

func (e *stubEngine) Remove(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failRemove != nil {
		return e.failRemove
	}
	delete(e.running, id)
	return nil
}

func (e *stubEngine) Inspect(_ context.Context, id string) (engine.Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.known(id); err != nil {
		return engine.Info{}, err
	}
	status := "exited"
	if e.running[id] {
		status = "running"
	}
	return engine.Info{ID: id, Status: status, Running: e.running[id], IPAddress: "127.0.0.1"}, nil
}

func (e *stubEngine) Exec(_ context.Context, id string, cmd []string) (engine.ExecResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.known(id); err != nil {
		return engine.ExecResult{}, err
	}
	line := cmd[len(cmd)-1]
	if strings.HasPrefix(line, "exit ") {
		var code int
		_, _ = fmt.Sscanf(line, "exit %d", &code)
		return engine.ExecResult{ExitCode: code}, nil
	}
	return engine.ExecResult{Output: strings.TrimPrefix(line, "echo ") + "\n"}, nil
}

func (e *stubEngine) Logs(_ context.Context, id string, tail int) (string, error) {
	return fmt.Sprintf("log lines for %s (tail %d)", engine.ShortID(id), tail), nil
}

func (e *stubEngine) CopyTo(_ context.Context, id, p string, content []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[id+":"+p] = append([]byte(nil), content...)
	return nil
}

func (e *stubEngine) CopyFrom(_ context.Context, id, p string, _ int64) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[id+":"+p]
	if !ok {
		return nil, apperr.NotFound("%s", p)
	}
	return data, nil
}

func (e *stubEngine) Close() error { return nil }

// stubPage serves as both a CDP page and a WebDriver session.
type stubPage struct{ closeErr error }

func (p *stubPage) Navigate(_ context.Context, url string) (string, error) {
	return "Title of " + url, nil
}
func (p *stubPage) Click(context.Context, string) error { return nil }
func (p *stubPage) Type(context.Context, string, string, bool) error { return nil }
func (p *stubPage) WaitFor(context.Context, string, time.Duration) error { return nil }
func (p *stubPage) Screenshot(context.Context, bool) ([]byte, error) { return []byte("\x89PNG"), nil }
func (p *stubPage) Evaluate(_ context.Context, s string) (string, error) { return "eval:" + s, nil }
func (p *stubPage) Close() error { return p.closeErr }
func (p *stubPage) Text(_ context.Context, selector string) (string, error) {
	return "text of " + selector, nil
}

type stubBrowser struct{ stubPage }

func (b *stubBrowser) NewPage(context.Context, browser.Viewport) (browser.Page, error) {
	return &stubPage{closeErr: b.closeErr}, nil
}

// stubLauncher hands out stub browsers whose Close fails with closeErr.
type stubLauncher struct{ closeErr error }

func (l *stubLauncher) LaunchBrowser(context.Context, browser.Options) (browser.Browser, error) {
	return &stubBrowser{stubPage{closeErr: l.closeErr}}, nil
}

func (l *stubLauncher) StartDriver(context.Context, browser.Options) (browser.Driver, error) {
	return &stubPage{closeErr: l.closeErr}, nil
}

var errRemoveFailed = errors.New("engine unreachable")
