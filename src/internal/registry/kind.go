// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package registry

import (
	"fmt"
	"strings"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
)

// Kind tags the variant of a managed resource.
type Kind uint8

const (
	// KindContainer is a container running on the engine.
	KindContainer Kind = iota + 1
	// KindBrowserInstance is a launched browser process or WebDriver session.
	KindBrowserInstance
	// KindBrowserPage is a page (tab) owned by a browser instance.
	KindBrowserPage
	// KindPortStream is a host port forwarded to a container port.
	KindPortStream
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{KindContainer, KindBrowserInstance, KindBrowserPage, KindPortStream}

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindBrowserInstance:
		return "browser_instance"
	case KindBrowserPage:
		return "browser_page"
	case KindPortStream:
		return "port_stream"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind converts a wire name into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, apperr.InvalidInput("unknown resource kind %q", s)
}

// parentKind reports which kind may own k, if any.
func (k Kind) parentKind() (Kind, bool) {
	switch k {
	case KindPortStream:
		return KindContainer, true
	case KindBrowserPage:
		return KindBrowserInstance, true
	default:
		return 0, false
	}
}

// State is the lifecycle state of a resource.
type State uint8

const (
	// StateCreated is the initial state after a successful create.
	StateCreated State = iota + 1
	// StateRunning means the external handle is active.
	StateRunning
	// StateStopped means the external handle exists but is idle.
	StateStopped
	// StateDeleted is terminal.
	StateDeleted
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// CanTransition reports whether to is reachable from s in one step.
//
//	Created -> Running | Deleted
//	Running -> Stopped | Deleted
//	Stopped -> Running | Deleted
//	Deleted is terminal
func (s State) CanTransition(to State) bool {
	switch s {
	case StateCreated:
		return to == StateRunning || to == StateDeleted
	case StateRunning:
		return to == StateStopped || to == StateDeleted
	case StateStopped:
		return to == StateRunning || to == StateDeleted
	default:
		return false
	}
}
