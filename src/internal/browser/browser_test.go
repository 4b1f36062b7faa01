// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

type closeCounter struct {
	Page
	closed int
	err    error
}

func (c *closeCounter) Close() error { c.closed++; return c.err }

type fakeBrowser struct{ closed int }

func (f *fakeBrowser) NewPage(context.Context, Viewport) (Page, error) { return &closeCounter{}, nil }
func (f *fakeBrowser) Close() error                                    { f.closed++; return nil }

func TestPoolLifecycle(t *testing.T) {
	p := NewPool()
	b := &fakeBrowser{}
	pg := &closeCounter{}
	d := &closeCounter{err: errors.New("session already gone")}

	p.PutBrowser("b1", b)
	p.PutPage("p1", pg)
	p.PutDriver("d1", d)
	assert.Equal(t, 3, p.Len())

	got, err := p.Browser("b1")
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = p.Page("b1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = p.Driver("nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, p.Release("p1"))
	require.NoError(t, p.Release("b1"))
	assert.EqualError(t, p.Release("d1"), "session already gone")
	assert.Equal(t, 1, pg.closed)
	assert.Equal(t, 1, b.closed)
	assert.Equal(t, 1, d.closed)
	assert.Zero(t, p.Len())

	// Unknown ids and double releases are no-ops.
	assert.NoError(t, p.Release("p1"))
	assert.Equal(t, 1, pg.closed)
}

func TestSplitFlag(t *testing.T) {
	tests := []struct {
		in, name, value string
	}{
		{"--window-size=1280,720", "window-size", "1280,720"},
		{"--disable-gpu", "disable-gpu", ""},
		{"-headless", "headless", ""},
		{"lang=en-US", "lang", "en-US"},
	}
	for _, tt := range tests {
		name, value := splitFlag(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.value, value, tt.in)
	}
}

func TestCapabilities(t *testing.T) {
	caps, err := capabilities(Options{Browser: "chrome", Headless: true, Args: []string{"--lang=en"}})
	require.NoError(t, err)
	assert.Equal(t, "chrome", caps["browserName"])
	assert.Contains(t, caps, "goog:chromeOptions")

	caps, err = capabilities(Options{Browser: "Firefox", Headless: true})
	require.NoError(t, err)
	assert.Equal(t, "firefox", caps["browserName"])
	assert.Contains(t, caps, "moz:firefoxOptions")

	_, err = capabilities(Options{Browser: "safari"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestRodRejectsNonChromium(t *testing.T) {
	r := &Rod{}
	_, err := r.LaunchBrowser(context.Background(), Options{Browser: "firefox"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = r.StartDriver(context.Background(), Options{Browser: "chrome"})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestSeleniumContextCancel(t *testing.T) {
	// Nothing listens on this port; whichever comes first, the error must be classified.
	s := &Selenium{URL: "http://127.0.0.1:1/wd/hub"}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.StartDriver(ctx, Options{Browser: "firefox", Headless: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded))
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "hello", formatResult("hello"))
	assert.Equal(t, "42", formatResult(float64(42)))
	assert.Equal(t, `{"a":true}`, formatResult(map[string]any{"a": true}))
	assert.Equal(t, "null", formatResult(nil))
}
