// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/browser"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/engine"
)

type fakeContainer struct {
	spec    engine.Spec
	running bool
	files   map[string][]byte
}

// fakeEngine is an in-memory engine.Engine.
type fakeEngine struct {
	mu         sync.Mutex
	seq        int
	containers map[string]*fakeContainer
	calls      []string
	execs      [][]string
	ip         string
	closed     bool

	failCreate, failStart, failStop, failRemove, failPing error
	execFn                                               func(ctx context.Context, argv []string) (engine.ExecResult, error)
	// onCreate runs before Create touches any state.
	onCreate func(spec engine.Spec)
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{containers: make(map[string]*fakeContainer), ip: "127.0.0.1"}
}

func (f *fakeEngine) record(op, id string) {
	f.calls = append(f.calls, op+" "+id)
}

func (f *fakeEngine) get(id string) (*fakeContainer, error) {
	c, ok := f.containers[id]
	if !ok {
		return nil, apperr.NotFound("container %s", id)
	}
	return c, nil
}

func (f *fakeEngine) Ping(context.Context) error { return f.failPing }

func (f *fakeEngine) Create(_ context.Context, spec engine.Spec) (string, error) {
	if f.onCreate != nil {
		f.onCreate(spec)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create", spec.Image)
	if f.failCreate != nil {
		return "", f.failCreate
	}
	f.seq++
	id := fmt.Sprintf("%02x%062x", f.seq, f.seq)
	f.containers[id] = &fakeContainer{spec: spec, files: map[string][]byte{}}
	return id, nil
}

func (f *fakeEngine) Start(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start", id)
	if f.failStart != nil {
		return f.failStart
	}
	c, err := f.get(id)
	if err != nil {
		return err
	}
	c.running = true
	return nil
}

func (f *fakeEngine) Stop(_ context.Context, id string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop", id)
	if f.failStop != nil {
		return f.failStop
	}
	c, err := f.get(id)
	if err != nil {
		return err
	}
	c.running = false
	return nil
}

func (f *fakeEngine) Restart(_ context.Context, id string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("restart", id)
	c, err := f.get(id)
	if err != nil {
		return err
	}
	c.running = true
	return nil
}

func (f *fakeEngine) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove", id)
	if f.failRemove != nil {
		return f.failRemove
	}
	delete(f.containers, id)
	return nil
}

func (f *fakeEngine) Inspect(_ context.Context, id string) (engine.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.get(id)
	if err != nil {
		return engine.Info{}, err
	}
	status := "exited"
	if c.running {
		status = "running"
	}
	return engine.Info{ID: id, Name: c.spec.Name, Image: c.spec.Image, Status: status, Running: c.running, IPAddress: f.ip}, nil
}

func (f *fakeEngine) Exec(ctx context.Context, id string, cmd []string) (engine.ExecResult, error) {
	f.mu.Lock()
	f.execs = append(f.execs, cmd)
	fn := f.execFn
	_, err := f.get(id)
	f.mu.Unlock()
	if err != nil {
		return engine.ExecResult{}, err
	}
	if fn != nil {
		return fn(ctx, cmd)
	}
	return engine.ExecResult{Output: strings.Join(cmd, " ")}, nil
}

func (f *fakeEngine) Logs(_ context.Context, id string, tail int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.get(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("tail=%d", tail), nil
}

func (f *fakeEngine) CopyTo(_ context.Context, id, p string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.get(id)
	if err != nil {
		return err
	}
	c.files[p] = append([]byte(nil), content...)
	return nil
}

func (f *fakeEngine) CopyFrom(_ context.Context, id, p string, _ int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.get(id)
	if err != nil {
		return nil, err
	}
	data, ok := c.files[p]
	if !ok {
		return nil, apperr.NotFound("%s", p)
	}
	return append([]byte(nil), data...), nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeEngine) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, op+" ") {
			n++
		}
	}
	return n
}

// fakePage implements browser.Page and browser.Driver.
type fakePage struct {
	name   string
	closed *[]string
	mu     *sync.Mutex
	url    string
}

func (p *fakePage) Navigate(_ context.Context, url string) (string, error) {
	p.url = url
	return "Title of " + url, nil
}
func (p *fakePage) Click(context.Context, string) error { return nil }
func (p *fakePage) Type(context.Context, string, string, bool) error {
	return nil
}
func (p *fakePage) Text(_ context.Context, sel string) (string, error) {
	if sel == "#missing" {
		return "", apperr.NotFound("element %s", sel)
	}
	return "text of " + sel, nil
}
func (p *fakePage) WaitFor(context.Context, string, time.Duration) error { return nil }
func (p *fakePage) Screenshot(context.Context, bool) ([]byte, error) {
	return []byte("\x89PNG fake"), nil
}
func (p *fakePage) Evaluate(_ context.Context, script string) (string, error) {
	return "eval:" + script, nil
}
func (p *fakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.closed = append(*p.closed, p.name)
	return nil
}

type fakeBrowser struct {
	fakePage
	pages int
}

func (b *fakeBrowser) NewPage(context.Context, browser.Viewport) (browser.Page, error) {
	b.pages++
	return &fakePage{name: fmt.Sprintf("%s/page-%d", b.name, b.pages), closed: b.closed, mu: b.mu}, nil
}

// fakeLauncher records every handle it hands out and the order they close in.
type fakeLauncher struct {
	mu       sync.Mutex
	closed   []string
	launched int
	fail     error
	onLaunch func(opts browser.Options)
}

func (l *fakeLauncher) LaunchBrowser(_ context.Context, opts browser.Options) (browser.Browser, error) {
	if l.onLaunch != nil {
		l.onLaunch(opts)
	}
	if l.fail != nil {
		return nil, l.fail
	}
	l.launched++
	return &fakeBrowser{fakePage: fakePage{name: fmt.Sprintf("%s-%d", opts.Browser, l.launched), closed: &l.closed, mu: &l.mu}}, nil
}

func (l *fakeLauncher) StartDriver(_ context.Context, opts browser.Options) (browser.Driver, error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.launched++
	return &fakePage{name: fmt.Sprintf("driver-%s-%d", opts.Browser, l.launched), closed: &l.closed, mu: &l.mu}, nil
}

func (l *fakeLauncher) closedOrder() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.closed...)
}
