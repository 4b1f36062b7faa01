// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/browser"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/engine"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/policy"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/workspace"
)

type fixture struct {
	sb  *Sandbox
	eng *fakeEngine
	br  *fakeLauncher
	ws  *workspace.Workspace
	now *time.Time
}

func newFixture(t *testing.T, level policy.Level) *fixture {
	t.Helper()
	ws, err := workspace.Open(t.TempDir(), 0)
	require.NoError(t, err)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{eng: newFakeEngine(), br: &fakeLauncher{}, ws: ws, now: &now}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var clockMu sync.Mutex
	f.sb, err = New(ctx, Config{}, Deps{
		Policy:    policy.New(level, []string{"python:3.11-slim", "ubuntu:22.04", "node:*"}, []string{"chromium", "chrome"}),
		Engine:    f.eng,
		Launcher:  f.br,
		Workspace: ws,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock: func() time.Time {
			clockMu.Lock()
			defer clockMu.Unlock()
			return *f.now
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.sb.Shutdown(context.Background()) })
	return f
}

func (f *fixture) create(t *testing.T, name string) registry.Resource {
	t.Helper()
	res, err := f.sb.CreateContainer(context.Background(), ContainerRequest{Image: "python:3.11-slim", Name: name})
	require.NoError(t, err)
	return res
}

func TestNewRequiresPolicy(t *testing.T) {
	_, err := New(context.Background(), Config{}, Deps{})
	assert.Error(t, err)
}

func TestCreateContainer(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)

	res := f.create(t, "web")
	assert.Equal(t, registry.StateRunning, res.State)
	assert.Equal(t, "web", res.Label)
	require.NotEmpty(t, res.Meta[MetaEngineID])
	assert.Len(t, res.Meta[MetaShortID], 12)

	c := f.eng.containers[res.Meta[MetaEngineID]]
	require.NotNil(t, c)
	assert.True(t, c.running)
	assert.Equal(t, "/workspace", c.spec.WorkingDir)
	assert.Equal(t, []string{"/bin/sh"}, c.spec.Cmd)
	assert.Equal(t, []string{f.ws.Root() + ":/workspace"}, c.spec.Binds)
	assert.Equal(t, "true", c.spec.Labels[engine.ManagedLabel])
	assert.Equal(t, res.ID, c.spec.Labels[LabelResourceID])
}

func TestCreateContainerCustomCommand(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)

	res, err := f.sb.CreateContainer(context.Background(), ContainerRequest{
		Image:   "ubuntu:22.04",
		Command: `sleep "1000"`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sleep", "1000"}, f.eng.containers[res.Meta[MetaEngineID]].spec.Cmd)
	assert.Equal(t, "container-1", res.Label)
}

func TestCreateContainerPolicyRejection(t *testing.T) {
	f := newFixture(t, policy.LevelStrict)

	_, err := f.sb.CreateContainer(context.Background(), ContainerRequest{Image: "python:3.11"})
	require.ErrorIs(t, err, apperr.ErrPolicyViolation)
	assert.Equal(t, apperr.CodePolicyViolation, apperr.Code(err))
	assert.Empty(t, f.sb.ListResources())
	assert.Zero(t, f.eng.callCount("create"), "engine must not be called")

	_, err = f.sb.CreateContainer(context.Background(), ContainerRequest{Image: "python:3.11-slim", GPU: true})
	assert.ErrorIs(t, err, apperr.ErrPolicyViolation)
}

func TestCreateContainerPrefixUnderLow(t *testing.T) {
	f := newFixture(t, policy.LevelLow)

	_, err := f.sb.CreateContainer(context.Background(), ContainerRequest{Image: "node:20-alpine"})
	assert.NoError(t, err)
}

func TestCreateContainerEngineFailureReleasesReservation(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*fakeEngine)
		wantRemoved bool
	}{
		{"create fails", func(e *fakeEngine) { e.failCreate = apperr.Unavailable("docker", errors.New("down")) }, false},
		{"start fails", func(e *fakeEngine) { e.failStart = errors.New("port is already allocated") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, policy.LevelMedium)
			tt.setup(f.eng)

			_, err := f.sb.CreateContainer(context.Background(), ContainerRequest{Image: "python:3.11-slim", Name: "db"})
			require.Error(t, err)
			assert.Empty(t, f.sb.ListResources(), "no bookkeeping may leak")
			assert.Equal(t, tt.wantRemoved, f.eng.callCount("remove") == 1)

			f.eng.failCreate, f.eng.failStart = nil, nil
			f.create(t, "db")
		})
	}
}

// deleteReserved removes the only reserved resource of kind from inside a
// collaborator call.
func (f *fixture) deleteReserved(t *testing.T, kind registry.Kind) {
	t.Helper()
	reserved := f.sb.ListResources(kind)
	require.Len(t, reserved, 1)
	require.Equal(t, registry.StateCreated, reserved[0].State)
	require.NoError(t, f.sb.DeleteResource(context.Background(), reserved[0].ID))
}

func TestCreateContainerDeletedWhileCreating(t *testing.T) {
	tests := []struct {
		name       string
		failRemove error
		wantLeft   int
	}{
		{name: "engine container removed", wantLeft: 0},
		{name: "remove failure is not fatal", failRemove: errors.New("device busy"), wantLeft: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, policy.LevelMedium)
			f.eng.failRemove = tt.failRemove
			f.eng.onCreate = func(engine.Spec) { f.deleteReserved(t, registry.KindContainer) }

			_, err := f.sb.CreateContainer(context.Background(), ContainerRequest{Image: "python:3.11-slim", Name: "web"})
			require.Error(t, err)
			assert.Equal(t, apperr.CodeNotFound, apperr.Code(err))
			assert.Contains(t, err.Error(), "was deleted while it was being created")
			assert.Equal(t, 1, f.eng.callCount("remove"))
			assert.Len(t, f.eng.containers, tt.wantLeft)
			assert.Zero(t, f.eng.callCount("start"))
			assert.Empty(t, f.sb.ListResources())
		})
	}
}

func TestLaunchBrowserDeletedWhileLaunching(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	f.br.onLaunch = func(browser.Options) { f.deleteReserved(t, registry.KindBrowserInstance) }

	_, err := f.sb.LaunchBrowser(context.Background(), BrowserRequest{Label: "main"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.Code(err))
	assert.Equal(t, []string{"chromium-1"}, f.br.closedOrder(), "the late handle is closed")
	assert.Empty(t, f.sb.Browsers())

	f.br.onLaunch = nil
	_, err = f.sb.LaunchBrowser(context.Background(), BrowserRequest{Label: "main"})
	require.NoError(t, err, "the label is free again")
}

func TestCreateContainerDuplicateName(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	f.create(t, "db")

	_, err := f.sb.CreateContainer(context.Background(), ContainerRequest{Image: "python:3.11-slim", Name: "db"})
	require.ErrorIs(t, err, apperr.ErrDuplicateLabel)
	assert.Equal(t, 1, f.eng.callCount("create"))
}

func TestResolveContainer(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	a := f.create(t, "alpha")
	f.create(t, "beta")
	eid := a.Meta[MetaEngineID]

	tests := []struct {
		name string
		ref  string
		want error
	}{
		{"registry id", a.ID, nil},
		{"label", "alpha", nil},
		{"engine id", eid, nil},
		{"short id", eid[:12], nil},
		{"unknown", "nope", apperr.ErrNotFound},
		{"empty", "", apperr.ErrInvalidInput},
		// Every fake engine id starts with "0".
		{"ambiguous prefix", "0", apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.sb.ResolveContainer(tt.ref)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, a.ID, got.ID)
		})
	}
}

func TestContainerLifecycle(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()
	res := f.create(t, "web")

	got, err := f.sb.StopContainer(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, registry.StateStopped, got.State)
	assert.False(t, f.eng.containers[res.Meta[MetaEngineID]].running)

	_, err = f.sb.StopContainer(ctx, "web")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, 1, f.eng.callCount("stop"), "rejected transitions never reach the engine")

	_, err = f.sb.Exec(ctx, "web", "echo hi", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	got, err = f.sb.StartContainer(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, registry.StateRunning, got.State)

	got, err = f.sb.RestartContainer(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, registry.StateRunning, got.State)

	_, err = f.sb.StopContainer(ctx, "web")
	require.NoError(t, err)
	got, err = f.sb.RestartContainer(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, registry.StateRunning, got.State)
	assert.Equal(t, 2, f.eng.callCount("restart"))
}

func TestDeleteContainerCleanupWarning(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	f.create(t, "web")
	f.eng.failRemove = apperr.Unavailable("docker", errors.New("connection refused"))

	res, err := f.sb.DeleteContainer(context.Background(), "web")
	require.ErrorIs(t, err, apperr.ErrCleanupWarning)
	assert.Equal(t, apperr.CodeCleanupWarning, apperr.Code(err))
	assert.Equal(t, registry.StateDeleted, res.State)
	assert.Empty(t, f.sb.ListContainers(context.Background()))

	_, err = f.sb.ResolveContainer("web")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteResourceIdempotent(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	res := f.create(t, "web")

	require.NoError(t, f.sb.DeleteResource(context.Background(), res.ID))
	require.NoError(t, f.sb.DeleteResource(context.Background(), res.ID))
	assert.Equal(t, 1, f.eng.callCount("remove"))
}

func TestListContainersIncludesLiveStatus(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	f.create(t, "a")
	b := f.create(t, "b")
	delete(f.eng.containers, b.Meta[MetaEngineID])

	list := f.sb.ListContainers(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Label)
	require.NotNil(t, list[0].Engine)
	assert.True(t, list[0].Engine.Running)
	assert.Nil(t, list[1].Engine)
	assert.NotEmpty(t, list[1].EngineError)
}

func TestExec(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	f.create(t, "web")

	out, err := f.sb.Exec(context.Background(), "web", "ls | wc -l", 0)
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh -c ls | wc -l", out.Output)

	_, err = f.sb.Exec(context.Background(), "web", "  ", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	f.eng.execFn = func(ctx context.Context, _ []string) (engine.ExecResult, error) {
		<-ctx.Done()
		return engine.ExecResult{}, ctx.Err()
	}
	_, err = f.sb.Exec(context.Background(), "web", "sleep 60", 20*time.Millisecond)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestLogsDefaultTail(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	f.create(t, "web")

	out, err := f.sb.Logs(context.Background(), "web", 0)
	require.NoError(t, err)
	assert.Equal(t, "tail=100", out)
}

func TestDisabledCollaborators(t *testing.T) {
	sb, err := New(context.Background(), Config{}, Deps{Policy: policy.New(policy.LevelLow, []string{"alpine:latest"}, nil)})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = sb.CreateContainer(ctx, ContainerRequest{Image: "alpine:latest"})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	_, err = sb.LaunchBrowser(ctx, BrowserRequest{})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	_, err = sb.Docs()
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	_, err = sb.Upload(ctx, "a.txt", "x")
	assert.ErrorIs(t, err, apperr.ErrUnavailable)

	st := sb.Status(ctx)
	assert.False(t, st.Engine.Enabled)
	assert.Equal(t, "low", st.SecurityLevel)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func echoServer(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				_, _ = io.Copy(c, c)
			}()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestPortStreamCascade(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()
	c := f.create(t, "web")
	upstream := echoServer(t)
	host := freePort(t)

	st, err := f.sb.StartPortStream(ctx, "web", upstream, host)
	require.NoError(t, err)
	assert.Equal(t, host, st.HostPort)
	assert.Equal(t, c.ID, st.ContainerID)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(host)))
	require.NoError(t, err)
	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
	conn.Close()

	_, err = f.sb.StartPortStream(ctx, "web", upstream, freePort(t))
	assert.ErrorIs(t, err, apperr.ErrDuplicateLabel)

	children := f.sb.Registry().Children(c.ID)
	require.Len(t, children, 1)
	assert.Equal(t, registry.KindPortStream, children[0].Kind)

	_, err = f.sb.DeleteContainer(ctx, "web")
	require.NoError(t, err)
	_, err = f.sb.Registry().Get(children[0].ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, f.sb.Streams())
}

func TestStopPortStream(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()
	f.create(t, "web")
	upstream := echoServer(t)

	_, err := f.sb.StartPortStream(ctx, "web", upstream, freePort(t))
	require.NoError(t, err)
	require.Len(t, f.sb.Streams(), 1)

	res, err := f.sb.StopPortStream(ctx, "web", upstream)
	require.NoError(t, err)
	assert.Equal(t, registry.StateDeleted, res.State)
	assert.Empty(t, f.sb.Streams())

	_, err = f.sb.StopPortStream(ctx, "web", upstream)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPortStreamPolicy(t *testing.T) {
	f := newFixture(t, policy.LevelHigh)
	f.create(t, "web")

	_, err := f.sb.StartPortStream(context.Background(), "web", 80, 0)
	assert.ErrorIs(t, err, apperr.ErrPolicyViolation)
	_, err = f.sb.StartPortStream(context.Background(), "web", 0, 8080)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Len(t, f.sb.ListResources(), 1)
}

func TestBrowserCascade(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()

	b, err := f.sb.LaunchBrowser(ctx, BrowserRequest{Label: "main"})
	require.NoError(t, err)
	assert.Equal(t, "chromium", b.Target)
	assert.Equal(t, "cdp", b.Meta[MetaBackend])

	p1, err := f.sb.CreatePage(ctx, "main", "")
	require.NoError(t, err)
	p2, err := f.sb.CreatePage(ctx, b.ID, "second")
	require.NoError(t, err)
	assert.Equal(t, b.ID, p1.ParentID)

	title, err := f.sb.Navigate(ctx, p1.ID, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "Title of https://example.com", title)
	got, err := f.sb.Registry().Get(p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.Meta[MetaURL])

	text, err := f.sb.Text(ctx, "second", "h1")
	require.NoError(t, err)
	assert.Equal(t, "text of h1", text)
	_, err = f.sb.Text(ctx, "second", "#missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.sb.Navigate(ctx, b.ID, "https://example.com")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput, "a cdp browser is not drivable")

	_, err = f.sb.CloseBrowser(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"chromium-1/page-1", "chromium-1/page-2", "chromium-1"}, f.br.closedOrder())
	for _, id := range []string{b.ID, p1.ID, p2.ID} {
		_, err := f.sb.Registry().Get(id)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	}
}

func TestBrowserPolicyAndFailures(t *testing.T) {
	f := newFixture(t, policy.LevelHigh)
	ctx := context.Background()

	_, err := f.sb.LaunchBrowser(ctx, BrowserRequest{Browser: "firefox"})
	assert.ErrorIs(t, err, apperr.ErrPolicyViolation)
	_, err = f.sb.LaunchBrowser(ctx, BrowserRequest{Browser: "netscape"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	f.br.fail = apperr.Unavailable("chromium", errors.New("not installed"))
	_, err = f.sb.LaunchBrowser(ctx, BrowserRequest{Label: "x"})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	assert.Empty(t, f.sb.Browsers())
}

func TestStrictURLPolicy(t *testing.T) {
	f := newFixture(t, policy.LevelStrict)
	ctx := context.Background()
	_, err := f.sb.LaunchBrowser(ctx, BrowserRequest{Label: "b"})
	require.NoError(t, err)
	p, err := f.sb.CreatePage(ctx, "b", "")
	require.NoError(t, err)

	_, err = f.sb.Navigate(ctx, p.ID, "file:///etc/passwd")
	assert.ErrorIs(t, err, apperr.ErrPolicyViolation)
}

func TestWebDriverSession(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()

	d, err := f.sb.StartDriver(ctx, BrowserRequest{})
	require.NoError(t, err)
	assert.Equal(t, "chrome", d.Target)
	assert.Equal(t, "webdriver", d.Meta[MetaBackend])

	_, err = f.sb.Navigate(ctx, d.ID, "https://example.com")
	require.NoError(t, err)
	out, err := f.sb.Evaluate(ctx, d.ID, "return 1")
	require.NoError(t, err)
	assert.Equal(t, "eval:return 1", out)

	_, err = f.sb.CreatePage(ctx, d.ID, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = f.sb.CloseBrowser(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"driver-chrome-1"}, f.br.closedOrder())
}

func TestScreenshot(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()
	_, err := f.sb.LaunchBrowser(ctx, BrowserRequest{Label: "b"})
	require.NoError(t, err)
	p, err := f.sb.CreatePage(ctx, "b", "home")
	require.NoError(t, err)

	shot, err := f.sb.Screenshot(ctx, p.ID, true, true, "")
	require.NoError(t, err)
	assert.NotEmpty(t, shot.Base64)
	assert.Empty(t, shot.Path)

	shot, err = f.sb.Screenshot(ctx, p.ID, false, false, "")
	require.NoError(t, err)
	assert.FileExists(t, shot.Path)
	files, err := f.sb.WorkspaceFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "screenshots/home-1735732800.png", files[0].Path)
}

func TestContainerFiles(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()
	c := f.create(t, "web")
	files := f.eng.containers[c.Meta[MetaEngineID]].files

	p, err := f.sb.WriteFile(ctx, "web", "notes.txt", "one\n", false)
	require.NoError(t, err)
	assert.Equal(t, "/workspace/notes.txt", p)
	_, err = f.sb.WriteFile(ctx, "web", "/workspace/notes.txt", "two\n", true)
	require.NoError(t, err)
	_, err = f.sb.WriteFile(ctx, "web", "fresh.txt", "new", true)
	require.NoError(t, err)

	got, err := f.sb.ReadFile(ctx, "web", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", got)
	assert.Equal(t, "new", string(files["/workspace/fresh.txt"]))

	_, err = f.sb.ReadFile(ctx, "web", "missing.txt")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.sb.ListFiles(ctx, "web", "")
	require.NoError(t, err)
	_, err = f.sb.MakeDir(ctx, "web", "src/app")
	require.NoError(t, err)
	_, err = f.sb.DeleteFile(ctx, "web", "notes.txt")
	require.NoError(t, err)
	_, err = f.sb.DeleteFile(ctx, "web", "/")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Equal(t, [][]string{
		{"ls", "-la", "--", "/workspace"},
		{"mkdir", "-p", "--", "/workspace/src/app"},
		{"rm", "-f", "--", "/workspace/notes.txt"},
	}, f.eng.execs)

	f.eng.execFn = func(context.Context, []string) (engine.ExecResult, error) {
		return engine.ExecResult{ExitCode: 2, Output: "ls: /nope: No such file or directory"}, nil
	}
	_, err = f.sb.ListFiles(ctx, "web", "/nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWorkspaceCopies(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()
	c := f.create(t, "web")
	files := f.eng.containers[c.Meta[MetaEngineID]].files

	_, err := f.sb.Upload(ctx, "src/main.py", "print('hi')")
	require.NoError(t, err)
	_, err = f.sb.Upload(ctx, "../escape.py", "x")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	dest, err := f.sb.CopyToContainer(ctx, "web", "src/main.py", "")
	require.NoError(t, err)
	assert.Equal(t, "/workspace/main.py", dest)
	assert.Equal(t, "print('hi')", string(files[dest]))

	files["/etc/hostname"] = []byte("sandbox\n")
	saved, err := f.sb.CopyFromContainer(ctx, "web", "/etc/hostname", "")
	require.NoError(t, err)
	assert.FileExists(t, saved)

	list, err := f.sb.WorkspaceFiles()
	require.NoError(t, err)
	var names []string
	for _, fi := range list {
		names = append(names, fi.Path)
	}
	assert.Equal(t, []string{"hostname", "src/main.py"}, names)
}

func TestReap(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()
	f.create(t, "old")
	_, err := f.sb.LaunchBrowser(ctx, BrowserRequest{Label: "old-browser"})
	require.NoError(t, err)

	*f.now = f.now.Add(10 * time.Minute)
	fresh := f.create(t, "fresh")

	report := f.sb.Reap(ctx, 5*time.Minute)
	assert.Len(t, report.Deleted, 2)
	assert.Zero(t, report.Warnings)

	left := f.sb.ListResources()
	require.Len(t, left, 1)
	assert.Equal(t, fresh.ID, left[0].ID)

	assert.Empty(t, f.sb.Reap(ctx, 0).Deleted, "zero max idle disables the sweep")
}

func TestJanitor(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)

	_, err := f.sb.StartJanitor(context.Background(), "not a schedule", time.Minute)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	j, err := f.sb.StartJanitor(context.Background(), "", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.True(t, f.sb.Status(context.Background()).Janitor)

	require.NoError(t, f.sb.Shutdown(context.Background()))
	_, err = f.sb.StartJanitor(context.Background(), "", time.Minute)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestShutdown(t *testing.T) {
	f := newFixture(t, policy.LevelMedium)
	ctx := context.Background()
	f.create(t, "a")
	f.create(t, "b")
	_, err := f.sb.LaunchBrowser(ctx, BrowserRequest{Label: "b"})
	require.NoError(t, err)

	require.NoError(t, f.sb.Shutdown(ctx))
	assert.Empty(t, f.sb.ListResources())
	assert.Empty(t, f.eng.containers)
	assert.True(t, f.eng.closed)
	assert.Len(t, f.br.closedOrder(), 1)
	assert.NoError(t, f.sb.Shutdown(ctx))
}

func TestStatus(t *testing.T) {
	f := newFixture(t, policy.LevelHigh)
	f.create(t, "a")
	*f.now = f.now.Add(90 * time.Second)

	st := f.sb.Status(context.Background())
	assert.Equal(t, "1m30s", st.Uptime)
	assert.Equal(t, "high", st.SecurityLevel)
	assert.Equal(t, 1, st.Resources.ByKind["container"])
	assert.True(t, st.Engine.Reachable)
	assert.Equal(t, f.ws.Root(), st.Workspace)

	f.eng.failPing = apperr.Unavailable("docker", errors.New("down"))
	st = f.sb.Status(context.Background())
	assert.False(t, st.Engine.Reachable)
	assert.NotEmpty(t, st.Engine.Error)
}
