// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"github.com/tebeka/selenium/firefox"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

// Selenium opens WebDriver sessions on a remote endpoint such as
// http://localhost:4444/wd/hub.
type Selenium struct {
	URL string
}

// capabilities builds the session request for opts.
func capabilities(opts Options) (selenium.Capabilities, error) {
	args := append([]string(nil), opts.Args...)
	switch strings.ToLower(opts.Browser) {
	case "", "chrome", "chromium":
		if opts.Headless {
			args = append(args, "--headless=new", "--no-sandbox", "--disable-dev-shm-usage")
		}
		caps := selenium.Capabilities{"browserName": "chrome"}
		caps.AddChrome(chrome.Capabilities{Args: args, W3C: true})
		return caps, nil
	case "firefox":
		if opts.Headless {
			args = append(args, "-headless")
		}
		caps := selenium.Capabilities{"browserName": "firefox"}
		caps.AddFirefox(firefox.Capabilities{Args: args})
		return caps, nil
	default:
		return nil, apperr.InvalidInput("the WebDriver backend supports chrome and firefox, got %q", opts.Browser)
	}
}

// StartDriver opens a session. selenium.NewRemote does not take a context, so
// ctx only abandons the wait; a session that opens late is quit.
func (s *Selenium) StartDriver(ctx context.Context, opts Options) (Driver, error) {
	caps, err := capabilities(opts)
	if err != nil {
		return nil, err
	}

	type opened struct {
		wd  selenium.WebDriver
		err error
	}
	ch := make(chan opened, 1)
	go func() {
		wd, err := selenium.NewRemote(caps, s.URL)
		ch <- opened{wd, err}
	}()

	var wd selenium.WebDriver
	select {
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.err == nil {
				res.wd.Quit()
			}
		}()
		return nil, fmt.Errorf("start webdriver: %w", ctx.Err())
	case res := <-ch:
		if res.err != nil {
			return nil, apperr.Unavailable("webdriver at "+s.URL, res.err)
		}
		wd = res.wd
	}

	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		// Best effort: some grids reject window management in headless mode.
		_ = wd.ResizeWindow("", opts.Viewport.Width, opts.Viewport.Height)
	}
	return &wdDriver{wd: wd}, nil
}

type wdDriver struct {
	wd selenium.WebDriver
}

func (d *wdDriver) find(selector string) (selenium.WebElement, error) {
	el, err := d.wd.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w: %w", selector, apperr.ErrNotFound, err)
	}
	return el, nil
}

func (d *wdDriver) Navigate(_ context.Context, url string) (string, error) {
	if err := d.wd.Get(url); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", url, err)
	}
	title, _ := d.wd.Title()
	return title, nil
}

func (d *wdDriver) Click(_ context.Context, selector string) error {
	el, err := d.find(selector)
	if err != nil {
		return err
	}
	return el.Click()
}

func (d *wdDriver) Type(_ context.Context, selector, text string, clear bool) error {
	el, err := d.find(selector)
	if err != nil {
		return err
	}
	if clear {
		if err := el.Clear(); err != nil {
			return fmt.Errorf("clear %q: %w", selector, err)
		}
	}
	return el.SendKeys(text)
}

func (d *wdDriver) Text(_ context.Context, selector string) (string, error) {
	el, err := d.find(selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (d *wdDriver) WaitFor(_ context.Context, selector string, timeout time.Duration) error {
	err := d.wd.WaitWithTimeout(func(wd selenium.WebDriver) (bool, error) {
		el, err := wd.FindElement(selenium.ByCSSSelector, selector)
		if err != nil {
			return false, nil
		}
		return el.IsDisplayed()
	}, timeout)
	if err != nil {
		return fmt.Errorf("selector %q: %w: %w", selector, apperr.ErrNotFound, err)
	}
	return nil
}

func (d *wdDriver) Screenshot(context.Context, bool) ([]byte, error) {
	return d.wd.Screenshot()
}

func (d *wdDriver) Evaluate(_ context.Context, script string) (string, error) {
	res, err := d.wd.ExecuteScript(script, nil)
	if err != nil {
		return "", fmt.Errorf("execute script: %w", err)
	}
	return formatResult(res), nil
}

// formatResult renders a script result the way the CDP backend does: strings
// verbatim, everything else as JSON.
func formatResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(out)
}

func (d *wdDriver) Close() error { return d.wd.Quit() }
