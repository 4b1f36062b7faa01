// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package policy

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
)

// Level controls how strictly identifiers are matched.
type Level uint8

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelStrict
)

// String returns the lowercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelStrict:
		return "strict"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// ParseLevel parses a case-insensitive level name. An empty string yields Medium.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return LevelLow, nil
	case "", "medium":
		return LevelMedium, nil
	case "high":
		return LevelHigh, nil
	case "strict":
		return LevelStrict, nil
	default:
		return 0, apperr.InvalidInput("unknown security level %q", s)
	}
}

// SupportedBrowsers lists the browser engines a backend can launch.
var SupportedBrowsers = []string{"chromium", "chrome", "firefox"}

// Policy is the process-wide allow-list. It is read-only after [New].
type Policy struct {
	level    Level
	images   map[string]struct{}
	browsers map[string]struct{}
}

// New builds a policy. Empty and duplicate entries are dropped.
func New(level Level, images, browsers []string) *Policy {
	p := &Policy{
		level:    level,
		images:   toSet(images),
		browsers: toSet(browsers),
	}
	return p
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			set[it] = struct{}{}
		}
	}
	return set
}

// Level returns the configured security level.
func (p *Policy) Level() Level { return p.level }

// Images returns the image allow-list sorted.
func (p *Policy) Images() []string { return sortedKeys(p.images) }

// Browsers returns the browser allow-list sorted.
func (p *Policy) Browsers() []string { return sortedKeys(p.browsers) }

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), apperr.ErrPolicyViolation)
}

// Approve decides whether a resource of the given kind may be created for target.
// target is an image reference for containers, an engine name for browser
// instances, a URL for browser pages and a host port for port streams.
func (p *Policy) Approve(kind registry.Kind, target string) error {
	switch kind {
	case registry.KindContainer:
		return p.approveImage(target)
	case registry.KindBrowserInstance:
		return p.approveBrowser(target)
	case registry.KindBrowserPage:
		if target == "" {
			return nil
		}
		return p.ApproveURL(target)
	case registry.KindPortStream:
		return p.approvePort(target)
	default:
		return violation("unknown resource kind %s", kind)
	}
}

func (p *Policy) approveImage(image string) error {
	image = strings.TrimSpace(image)
	if image == "" {
		return apperr.InvalidInput("image is required")
	}
	if _, ok := p.images[image]; ok {
		return nil
	}
	if p.level == LevelLow {
		for pattern := range p.images {
			if prefix := strings.TrimSuffix(pattern, "*"); prefix != "" && strings.HasPrefix(image, prefix) {
				return nil
			}
		}
	}
	return violation("image %q is not allowed at security level %s; use list_allowed_images to see available options", image, p.level)
}

func (p *Policy) approveBrowser(engine string) error {
	engine = strings.ToLower(strings.TrimSpace(engine))
	if !slices.Contains(SupportedBrowsers, engine) {
		return apperr.InvalidInput("unsupported browser %q (supported: %s)", engine, strings.Join(SupportedBrowsers, ", "))
	}
	if p.level < LevelHigh {
		return nil
	}
	if _, ok := p.browsers[engine]; ok {
		return nil
	}
	return violation("browser %q is not allowed at security level %s", engine, p.level)
}

func (p *Policy) approvePort(target string) error {
	port, err := strconv.Atoi(strings.TrimSpace(target))
	if err != nil || port < 1 || port > 65535 {
		return apperr.InvalidInput("invalid host port %q", target)
	}
	if p.level >= LevelHigh && port < 1024 {
		return violation("privileged host port %d is not allowed at security level %s", port, p.level)
	}
	return nil
}

// ApproveURL decides whether a browser may navigate to raw.
func (p *Policy) ApproveURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return apperr.InvalidInput("invalid url %q: %v", raw, err)
	}
	if p.level < LevelStrict {
		return nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "about":
		return nil
	default:
		return violation("url scheme %q is not allowed at security level %s", u.Scheme, p.level)
	}
}

// ApproveGPU decides whether a container may request GPU devices.
func (p *Policy) ApproveGPU() error {
	if p.level == LevelStrict {
		return violation("gpu access is not allowed at security level %s", p.level)
	}
	return nil
}
