// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package browser

import (
	"sync"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

// Pool maps registry ids to live handles.
type Pool struct {
	mu       sync.Mutex
	browsers map[string]Browser
	drivers  map[string]Driver
	pages    map[string]Page
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		browsers: make(map[string]Browser),
		drivers:  make(map[string]Driver),
		pages:    make(map[string]Page),
	}
}

// PutBrowser stores a CDP browser under id.
func (p *Pool) PutBrowser(id string, b Browser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.browsers[id] = b
}

// PutDriver stores a WebDriver session under id.
func (p *Pool) PutDriver(id string, d Driver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drivers[id] = d
}

// PutPage stores a CDP page under id.
func (p *Pool) PutPage(id string, pg Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[id] = pg
}

// Browser returns the CDP browser stored under id.
func (p *Pool) Browser(id string) (Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.browsers[id]; ok {
		return b, nil
	}
	return nil, apperr.NotFound("browser %s", id)
}

// Driver returns the WebDriver session stored under id.
func (p *Pool) Driver(id string) (Driver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d, ok := p.drivers[id]; ok {
		return d, nil
	}
	return nil, apperr.NotFound("webdriver session %s", id)
}

// Page returns the CDP page stored under id.
func (p *Pool) Page(id string) (Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pg, ok := p.pages[id]; ok {
		return pg, nil
	}
	return nil, apperr.NotFound("page %s", id)
}

// Release closes and forgets whatever handle is stored under id.
// Releasing an unknown id is a no-op.
func (p *Pool) Release(id string) error {
	p.mu.Lock()
	var closer interface{ Close() error }
	if b, ok := p.browsers[id]; ok {
		closer = b
		delete(p.browsers, id)
	} else if d, ok := p.drivers[id]; ok {
		closer = d
		delete(p.drivers, id)
	} else if pg, ok := p.pages[id]; ok {
		closer = pg
		delete(p.pages, id)
	}
	p.mu.Unlock()

	if closer == nil {
		return nil
	}
	return closer.Close()
}

// Len reports how many handles are held.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.browsers) + len(p.drivers) + len(p.pages)
}
