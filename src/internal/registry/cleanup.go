// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package registry

import "context"

// CleanupFunc releases the external handle behind res.
// It is called without the registry lock held.
type CleanupFunc func(ctx context.Context, res Resource) error

// Cleanup holds one release strategy per kind. A nil field means the kind
// has no external handle to release.
type Cleanup struct {
	Container       CleanupFunc
	BrowserInstance CleanupFunc
	BrowserPage     CleanupFunc
	PortStream      CleanupFunc
}

// For selects the strategy registered for k.
func (c Cleanup) For(k Kind) CleanupFunc {
	switch k {
	case KindContainer:
		return c.Container
	case KindBrowserInstance:
		return c.BrowserInstance
	case KindBrowserPage:
		return c.BrowserPage
	case KindPortStream:
		return c.PortStream
	default:
		return nil
	}
}
