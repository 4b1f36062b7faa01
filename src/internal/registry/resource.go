// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package registry

import (
	"maps"
	"time"
)

// Resource is a snapshot of one tracked external handle.
// Values returned by the registry are copies; mutating them has no effect.
type Resource struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Label     string            `json:"label"`
	State     State             `json:"state"`
	Target    string            `json:"target,omitempty"`
	ParentID  string            `json:"parentId,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	LastUsed  time.Time         `json:"lastUsed"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// clone returns a deep copy of r.
func (r Resource) clone() Resource {
	r.Meta = maps.Clone(r.Meta)
	return r
}

// CreateRequest describes a resource to register.
type CreateRequest struct {
	// Kind is required.
	Kind Kind
	// Label is optional; an empty label is replaced by "<kind>-<n>".
	Label string
	// Target is the image or tool identifier that was approved by the policy gate.
	Target string
	// ParentID optionally references the owning resource.
	ParentID string
	// Meta holds collaborator-specific attributes such as the engine id.
	Meta map[string]string
}
