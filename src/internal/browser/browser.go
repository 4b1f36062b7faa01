// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package browser

import (
	"context"
	"strings"
	"time"
)

// Backend names the automation protocol behind a handle.
type Backend string

const (
	BackendCDP       Backend = "cdp"
	BackendWebDriver Backend = "webdriver"
)

// Viewport is the page size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Options configures a launch.
type Options struct {
	Browser  string
	Headless bool
	Args     []string
	Viewport Viewport
}

// Page is one document a caller can drive.
type Page interface {
	Navigate(ctx context.Context, url string) (title string, err error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string, clear bool) error
	Text(ctx context.Context, selector string) (string, error)
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Evaluate(ctx context.Context, script string) (string, error)
	Close() error
}

// Browser is a CDP browser process.
type Browser interface {
	NewPage(ctx context.Context, vp Viewport) (Page, error)
	Close() error
}

// Driver is a WebDriver session; it is its own page.
type Driver interface {
	Page
}

// Launcher starts browsers. Implementations decide which engines they support.
type Launcher interface {
	LaunchBrowser(ctx context.Context, opts Options) (Browser, error)
	StartDriver(ctx context.Context, opts Options) (Driver, error)
}

// splitFlag turns "--window-size=1,2" into ("window-size", "1,2").
func splitFlag(arg string) (name, value string) {
	arg = strings.TrimLeft(arg, "-")
	name, value, _ = strings.Cut(arg, "=")
	return name, value
}
