// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/browser"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
)

// BrowserRequest is the input of [Sandbox.LaunchBrowser] and [Sandbox.StartDriver].
type BrowserRequest struct {
	Browser  string
	Label    string
	Headless *bool
	Args     []string
}

func (s *Sandbox) browserOptions(req BrowserRequest) browser.Options {
	headless := s.cfg.Headless
	if req.Headless != nil {
		headless = *req.Headless
	}
	return browser.Options{
		Browser:  strings.ToLower(strings.TrimSpace(req.Browser)),
		Headless: headless,
		Args:     req.Args,
		Viewport: s.cfg.Viewport,
	}
}

// reserveBrowser runs the policy gate and reserves a BrowserInstance.
func (s *Sandbox) reserveBrowser(req BrowserRequest, backend browser.Backend) (registry.Resource, browser.Options, error) {
	opts := s.browserOptions(req)
	if err := s.policy.Approve(registry.KindBrowserInstance, opts.Browser); err != nil {
		s.logger.Warn("policy rejected browser", "browser", opts.Browser, "error", err)
		return registry.Resource{}, opts, err
	}
	res, err := s.reg.Create(registry.CreateRequest{
		Kind:   registry.KindBrowserInstance,
		Label:  req.Label,
		Target: opts.Browser,
		Meta: map[string]string{
			MetaBackend: string(backend),
			MetaBrowser: opts.Browser,
			"headless":  fmt.Sprint(opts.Headless),
		},
	})
	return res, opts, err
}

// commitHandle moves a reserved browser resource to Running. If it vanished
// while the handle was being opened, the handle is closed here.
func (s *Sandbox) commitHandle(ctx context.Context, res registry.Resource) (registry.Resource, error) {
	committed, err := s.reg.Transition(ctx, res.ID, registry.StateRunning)
	if err != nil {
		if rerr := s.pool.Release(res.ID); rerr != nil {
			s.logger.Warn("browser handle not released; close it by hand", append(resourceAttrs(res), "error", rerr)...)
		}
		return registry.Resource{}, vanished(res, err)
	}
	s.logger.Info("browser handle ready", resourceAttrs(committed)...)
	return committed, nil
}

// LaunchBrowser starts a CDP browser.
func (s *Sandbox) LaunchBrowser(ctx context.Context, req BrowserRequest) (registry.Resource, error) {
	l, err := s.needLauncher()
	if err != nil {
		return registry.Resource{}, err
	}
	if req.Browser == "" {
		req.Browser = "chromium"
	}
	res, opts, err := s.reserveBrowser(req, browser.BackendCDP)
	if err != nil {
		return registry.Resource{}, err
	}
	b, err := l.LaunchBrowser(ctx, opts)
	if err != nil {
		return registry.Resource{}, s.abandon(ctx, res, err)
	}
	s.pool.PutBrowser(res.ID, b)
	return s.commitHandle(ctx, res)
}

// StartDriver starts a WebDriver session.
func (s *Sandbox) StartDriver(ctx context.Context, req BrowserRequest) (registry.Resource, error) {
	l, err := s.needLauncher()
	if err != nil {
		return registry.Resource{}, err
	}
	if req.Browser == "" {
		req.Browser = "chrome"
	}
	res, opts, err := s.reserveBrowser(req, browser.BackendWebDriver)
	if err != nil {
		return registry.Resource{}, err
	}
	d, err := l.StartDriver(ctx, opts)
	if err != nil {
		return registry.Resource{}, s.abandon(ctx, res, err)
	}
	s.pool.PutDriver(res.ID, d)
	return s.commitHandle(ctx, res)
}

// releaseBrowser is the cleanup strategy for browsers, drivers and pages.
func (s *Sandbox) releaseBrowser(_ context.Context, res registry.Resource) error {
	return s.pool.Release(res.ID)
}

// CreatePage opens a page in a running CDP browser.
func (s *Sandbox) CreatePage(ctx context.Context, browserRef, label string) (registry.Resource, error) {
	parent, err := s.resolve(browserRef, registry.KindBrowserInstance)
	if err != nil {
		return registry.Resource{}, err
	}
	if parent.Meta[MetaBackend] != string(browser.BackendCDP) {
		return registry.Resource{}, apperr.InvalidInput("%s is a %s session; pages need a cdp browser", parent.Label, parent.Meta[MetaBackend])
	}
	if parent.State != registry.StateRunning {
		return registry.Resource{}, fmt.Errorf("browser %s is %s: %w", parent.Label, parent.State, apperr.ErrInvalidTransition)
	}
	b, err := s.pool.Browser(parent.ID)
	if err != nil {
		return registry.Resource{}, err
	}
	res, err := s.reg.Create(registry.CreateRequest{
		Kind:     registry.KindBrowserPage,
		Label:    label,
		Target:   "about:blank",
		ParentID: parent.ID,
		Meta:     map[string]string{MetaBackend: string(browser.BackendCDP)},
	})
	if err != nil {
		return registry.Resource{}, err
	}
	pg, err := b.NewPage(ctx, s.cfg.Viewport)
	if err != nil {
		return registry.Resource{}, s.abandon(ctx, res, err)
	}
	s.pool.PutPage(res.ID, pg)
	s.reg.Touch(parent.ID)
	return s.commitHandle(ctx, res)
}

// page resolves ref to something that can be driven: a CDP page or a
// WebDriver session. A CDP browser is not itself drivable.
func (s *Sandbox) page(ref string) (browser.Page, registry.Resource, error) {
	res, err := s.resolve(ref, registry.KindBrowserPage, registry.KindBrowserInstance)
	if err != nil {
		return nil, res, err
	}
	var pg browser.Page
	switch {
	case res.Kind == registry.KindBrowserPage:
		pg, err = s.pool.Page(res.ID)
	case res.Meta[MetaBackend] == string(browser.BackendWebDriver):
		pg, err = s.pool.Driver(res.ID)
	default:
		return nil, res, apperr.InvalidInput("%s is a browser; create a page first", res.Label)
	}
	if err != nil {
		return nil, res, err
	}
	s.reg.Touch(res.ID)
	if res.ParentID != "" {
		s.reg.Touch(res.ParentID)
	}
	return pg, res, nil
}

// Navigate loads url and returns the page title.
func (s *Sandbox) Navigate(ctx context.Context, ref, url string) (string, error) {
	if err := s.policy.ApproveURL(url); err != nil {
		return "", err
	}
	pg, res, err := s.page(ref)
	if err != nil {
		return "", err
	}
	title, err := pg.Navigate(ctx, url)
	if err != nil {
		return "", err
	}
	_, _ = s.reg.Annotate(res.ID, map[string]string{MetaURL: url})
	return title, nil
}

// Click clicks the first element matching selector.
func (s *Sandbox) Click(ctx context.Context, ref, selector string) error {
	pg, _, err := s.page(ref)
	if err != nil {
		return err
	}
	return pg.Click(ctx, selector)
}

// Type enters text into the first element matching selector.
func (s *Sandbox) Type(ctx context.Context, ref, selector, text string, clear bool) error {
	pg, _, err := s.page(ref)
	if err != nil {
		return err
	}
	return pg.Type(ctx, selector, text, clear)
}

// Text returns the visible text of the first element matching selector.
func (s *Sandbox) Text(ctx context.Context, ref, selector string) (string, error) {
	pg, _, err := s.page(ref)
	if err != nil {
		return "", err
	}
	return pg.Text(ctx, selector)
}

// WaitFor blocks until selector appears or timeout elapses.
func (s *Sandbox) WaitFor(ctx context.Context, ref, selector string, timeout time.Duration) error {
	pg, _, err := s.page(ref)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = s.cfg.ExecTimeout
	}
	return pg.WaitFor(ctx, selector, timeout)
}

// Evaluate runs script in the page and returns its result.
func (s *Sandbox) Evaluate(ctx context.Context, ref, script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", apperr.InvalidInput("script is required")
	}
	pg, _, err := s.page(ref)
	if err != nil {
		return "", err
	}
	return pg.Evaluate(ctx, script)
}

// Screenshot is a captured PNG, either inline or saved to the workspace.
type Screenshot struct {
	Path   string `json:"path,omitempty"`
	Base64 string `json:"base64,omitempty"`
	Bytes  int    `json:"bytes"`
}

// Screenshot captures the page. Unless inline is set the PNG is written to
// the workspace as name, or screenshots/<label>-<unix>.png when name is empty.
func (s *Sandbox) Screenshot(ctx context.Context, ref string, fullPage, inline bool, name string) (Screenshot, error) {
	pg, res, err := s.page(ref)
	if err != nil {
		return Screenshot{}, err
	}
	png, err := pg.Screenshot(ctx, fullPage)
	if err != nil {
		return Screenshot{}, err
	}
	shot := Screenshot{Bytes: len(png)}
	if inline || s.ws == nil {
		shot.Base64 = base64.StdEncoding.EncodeToString(png)
		return shot, nil
	}
	if name == "" {
		name = fmt.Sprintf("screenshots/%s-%d.png", res.Label, s.now().Unix())
	}
	if shot.Path, err = s.ws.Write(ctx, name, png); err != nil {
		return Screenshot{}, err
	}
	return shot, nil
}

// ClosePage closes a CDP page.
func (s *Sandbox) ClosePage(ctx context.Context, ref string) (registry.Resource, error) {
	res, err := s.resolve(ref, registry.KindBrowserPage)
	if err != nil {
		return registry.Resource{}, err
	}
	err = s.reg.Delete(ctx, res.ID)
	res.State = registry.StateDeleted
	return res, err
}

// CloseBrowser closes a browser or WebDriver session and every page it owns.
func (s *Sandbox) CloseBrowser(ctx context.Context, ref string) (registry.Resource, error) {
	res, err := s.resolve(ref, registry.KindBrowserInstance)
	if err != nil {
		return registry.Resource{}, err
	}
	err = s.reg.Delete(ctx, res.ID)
	res.State = registry.StateDeleted
	s.logger.Info("browser closed", append(resourceAttrs(res), "warning", err != nil)...)
	return res, err
}

// Browsers lists browser instances and pages in creation order.
func (s *Sandbox) Browsers() []registry.Resource {
	return s.reg.List(registry.KindBrowserInstance, registry.KindBrowserPage)
}
