// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

// Rod launches Chromium over CDP.
type Rod struct {
	// Bin overrides the browser binary. Empty means rod's lookup or download.
	Bin string
	// Selenium handles StartDriver; nil rejects WebDriver requests.
	Selenium *Selenium
}

// LaunchBrowser starts a local Chromium. Only chromium and chrome are accepted.
// The process is not tied to ctx, which only bounds the handshake.
func (r *Rod) LaunchBrowser(ctx context.Context, opts Options) (Browser, error) {
	switch strings.ToLower(opts.Browser) {
	case "", "chromium", "chrome":
	default:
		return nil, apperr.InvalidInput("the CDP backend supports chromium only, got %q", opts.Browser)
	}

	l := launcher.New().Headless(opts.Headless).Leakless(true)
	if r.Bin != "" {
		l = l.Bin(r.Bin)
	}
	for _, arg := range opts.Args {
		name, value := splitFlag(arg)
		if name == "" {
			continue
		}
		if value == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), value)
		}
	}

	type launched struct {
		url string
		err error
	}
	ch := make(chan launched, 1)
	go func() {
		u, err := l.Launch()
		ch <- launched{u, err}
	}()

	var u string
	select {
	case <-ctx.Done():
		l.Kill()
		return nil, fmt.Errorf("launch chromium: %w", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, apperr.Unavailable("launch chromium", res.err)
		}
		u = res.url
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, apperr.Unavailable("connect chromium", err)
	}
	return &rodBrowser{b: b, l: l}, nil
}

// StartDriver delegates to the configured Selenium endpoint.
func (r *Rod) StartDriver(ctx context.Context, opts Options) (Driver, error) {
	if r.Selenium == nil {
		return nil, apperr.Unavailable("webdriver", fmt.Errorf("no selenium endpoint configured"))
	}
	return r.Selenium.StartDriver(ctx, opts)
}

type rodBrowser struct {
	b *rod.Browser
	l *launcher.Launcher
}

func (rb *rodBrowser) NewPage(ctx context.Context, vp Viewport) (Page, error) {
	p, err := rb.b.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	p = p.Context(context.Background())
	if vp.Width > 0 && vp.Height > 0 {
		if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			p.Close()
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}
	return &rodPage{p: p}, nil
}

func (rb *rodBrowser) Close() error {
	err := rb.b.Close()
	rb.l.Kill()
	rb.l.Cleanup()
	return err
}

type rodPage struct {
	p *rod.Page
}

func (rp *rodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	el, err := rp.p.Context(ctx).Element(selector)
	if err != nil {
		return nil, notFoundOr(selector, err)
	}
	return el, nil
}

// notFoundOr reports a selector miss as NOT_FOUND and a deadline as UNAVAILABLE.
func notFoundOr(selector string, err error) error {
	var miss *rod.ElementNotFoundError
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &miss) {
		return fmt.Errorf("selector %q: %w: %w", selector, apperr.ErrNotFound, err)
	}
	return fmt.Errorf("selector %q: %w", selector, err)
}

func (rp *rodPage) Navigate(ctx context.Context, url string) (string, error) {
	p := rp.p.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", url, err)
	}
	info, err := p.Info()
	if err != nil {
		return "", nil
	}
	return info.Title, nil
}

func (rp *rodPage) Click(ctx context.Context, selector string) error {
	el, err := rp.element(ctx, selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (rp *rodPage) Type(ctx context.Context, selector, text string, clear bool) error {
	el, err := rp.element(ctx, selector)
	if err != nil {
		return err
	}
	if clear {
		if err := el.SelectAllText(); err != nil {
			return fmt.Errorf("clear %q: %w", selector, err)
		}
	}
	return el.Input(text)
}

func (rp *rodPage) Text(ctx context.Context, selector string) (string, error) {
	el, err := rp.element(ctx, selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (rp *rodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := rp.p.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return notFoundOr(selector, err)
	}
	return el.Timeout(timeout).WaitVisible()
}

func (rp *rodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return rp.p.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (rp *rodPage) Evaluate(ctx context.Context, script string) (string, error) {
	res, err := rp.p.Context(ctx).Eval(script)
	if err != nil {
		return "", fmt.Errorf("evaluate: %w", err)
	}
	return res.Value.String(), nil
}

func (rp *rodPage) Close() error { return rp.p.Close() }

var _ Launcher = (*Rod)(nil)
