// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/oklog/ulid/v2"
)

type entry struct {
	res      Resource
	deleting bool
}

// Registry is the single source of truth for managed resources.
// The zero value is not usable; construct one with [New].
type Registry struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string
	tombstones map[string]Kind
	seq        map[Kind]int

	cleanup Cleanup
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithCleanup installs the per-kind release strategies used by [Registry.Delete].
func WithCleanup(c Cleanup) Option {
	return func(r *Registry) { r.cleanup = c }
}

// WithLogger sets the logger used to report cleanup failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides the id source. Intended for tests.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		entries:    make(map[string]*entry),
		tombstones: make(map[string]Kind),
		seq:        make(map[Kind]int),
		logger:     slog.Default(),
		now:        time.Now,
		newID:      func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a new resource in [StateCreated].
//
// It fails with [apperr.ErrDuplicateLabel] if a live resource of the same kind
// holds the label, and with [apperr.ErrNotFound] if ParentID does not
// reference a live resource.
func (r *Registry) Create(req CreateRequest) (Resource, error) {
	if req.Kind < KindContainer || req.Kind > KindPortStream {
		return Resource{}, apperr.InvalidInput("unknown resource kind %d", req.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ParentID != "" {
		want, ok := req.Kind.parentKind()
		if !ok {
			return Resource{}, apperr.InvalidInput("%s resources cannot have a parent", req.Kind)
		}
		parent, found := r.entries[req.ParentID]
		if !found || parent.deleting {
			return Resource{}, apperr.NotFound("parent %s", req.ParentID)
		}
		if parent.res.Kind != want {
			return Resource{}, apperr.InvalidInput("parent %s is a %s, want %s",
				req.ParentID, parent.res.Kind, want)
		}
	}

	label := req.Label
	if label == "" {
		label = r.nextLabelLocked(req.Kind)
	} else if r.labelTakenLocked(req.Kind, label) {
		return Resource{}, fmt.Errorf("%s label %q: %w", req.Kind, label, apperr.ErrDuplicateLabel)
	}

	id := r.newID()
	for r.idUsedLocked(id) {
		id = r.newID()
	}

	now := r.now()
	res := Resource{
		ID:        id,
		Kind:      req.Kind,
		Label:     label,
		State:     StateCreated,
		Target:    req.Target,
		ParentID:  req.ParentID,
		CreatedAt: now,
		LastUsed:  now,
		Meta:      maps.Clone(req.Meta),
	}
	r.entries[id] = &entry{res: res}
	r.order = append(r.order, id)
	return res.clone(), nil
}

func (r *Registry) idUsedLocked(id string) bool {
	if _, ok := r.entries[id]; ok {
		return true
	}
	_, ok := r.tombstones[id]
	return ok
}

func (r *Registry) labelTakenLocked(kind Kind, label string) bool {
	for _, e := range r.entries {
		if e.res.Kind == kind && e.res.Label == label {
			return true
		}
	}
	return false
}

func (r *Registry) nextLabelLocked(kind Kind) string {
	for {
		r.seq[kind]++
		label := fmt.Sprintf("%s-%d", kind, r.seq[kind])
		if !r.labelTakenLocked(kind, label) {
			return label
		}
	}
}

// Get returns a snapshot of the resource with the given id. A resource whose
// delete is in progress is already gone as far as readers are concerned.
func (r *Registry) Get(id string) (Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.deleting {
		return Resource{}, apperr.NotFound("resource %s", id)
	}
	return e.res.clone(), nil
}

// lookupForTransitionLocked resolves id for a state change. Deleted and
// deleting resources fail with an error that matches both
// [apperr.ErrInvalidTransition] and [apperr.ErrNotFound].
func (r *Registry) lookupForTransitionLocked(id string) (*entry, error) {
	if _, gone := r.tombstones[id]; gone {
		return nil, fmt.Errorf("resource %s was deleted: %w: %w", id, apperr.ErrInvalidTransition, apperr.ErrNotFound)
	}
	e, ok := r.entries[id]
	if !ok {
		return nil, apperr.NotFound("resource %s", id)
	}
	if e.deleting {
		return nil, fmt.Errorf("resource %s is being deleted: %w: %w", id, apperr.ErrInvalidTransition, apperr.ErrNotFound)
	}
	return e, nil
}

// CanTransition validates that id may move to state to without changing anything.
// Callers use it to reserve a transition before performing the external call.
func (r *Registry) CanTransition(id string, to State) (Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookupForTransitionLocked(id)
	if err != nil {
		return Resource{}, err
	}
	if !e.res.State.CanTransition(to) {
		return Resource{}, fmt.Errorf("%s %s: %s -> %s: %w", e.res.Kind, id, e.res.State, to, apperr.ErrInvalidTransition)
	}
	return e.res.clone(), nil
}

// Transition moves id to state to. The check is made against the state held at
// commit time, so a resource deleted or changed concurrently with an external
// call is rejected rather than overwritten.
//
// Moving to [StateDeleted] is equivalent to [Registry.Delete], and ctx is
// handed to the cleanup strategies.
func (r *Registry) Transition(ctx context.Context, id string, to State) (Resource, error) {
	if to == StateDeleted {
		snap, err := r.CanTransition(id, to)
		if err != nil {
			return Resource{}, err
		}
		err = r.Delete(ctx, id)
		snap.State = StateDeleted
		return snap, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookupForTransitionLocked(id)
	if err != nil {
		return Resource{}, err
	}
	if !e.res.State.CanTransition(to) {
		return Resource{}, fmt.Errorf("%s %s: %s -> %s: %w", e.res.Kind, id, e.res.State, to, apperr.ErrInvalidTransition)
	}
	e.res.State = to
	e.res.LastUsed = r.now()
	return e.res.clone(), nil
}

// Annotate merges meta into the resource's attributes.
func (r *Registry) Annotate(id string, meta map[string]string) (Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.deleting {
		return Resource{}, apperr.NotFound("resource %s", id)
	}
	if e.res.Meta == nil {
		e.res.Meta = make(map[string]string, len(meta))
	}
	maps.Copy(e.res.Meta, meta)
	return e.res.clone(), nil
}

// Touch records that the resource was used just now.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.res.LastUsed = r.now()
	}
}

// List returns live resources in creation order, optionally filtered by kind.
// Resources whose delete is in progress are left out.
func (r *Registry) List(kinds ...Kind) []Resource {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Resource, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		if e.deleting {
			continue
		}
		if len(kinds) > 0 && !slices.Contains(kinds, e.res.Kind) {
			continue
		}
		out = append(out, e.res.clone())
	}
	return out
}

// Children returns the live resources whose ParentID is id, in creation order.
func (r *Registry) Children(id string) []Resource {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Resource
	for _, cid := range r.order {
		if e := r.entries[cid]; e.res.ParentID == id && !e.deleting {
			out = append(out, e.res.clone())
		}
	}
	return out
}

// Len reports the number of live resources.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if !e.deleting {
			n++
		}
	}
	return n
}

// Delete removes id and, first, every resource that transitively references it
// as parent. Each resource's external handle is released through the cleanup
// strategy for its kind, children before parents, with the lock released.
//
// Deleting an id that was already deleted, or whose deletion is in progress,
// is a no-op. An id that never existed fails with [apperr.ErrNotFound].
// When a cleanup callback fails the records are still removed and the
// returned error is an [*apperr.CleanupWarning].
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, gone := r.tombstones[id]; gone {
		r.mu.Unlock()
		return nil
	}
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return apperr.NotFound("resource %s", id)
	}
	if e.deleting {
		r.mu.Unlock()
		return nil
	}
	plan := r.collectLocked(id, nil)
	r.mu.Unlock()

	var failures []apperr.CleanupFailure
	for _, res := range plan {
		fn := r.cleanup.For(res.Kind)
		if fn == nil {
			continue
		}
		if err := fn(ctx, res); err != nil {
			r.logger.Warn("cleanup failed; record removed anyway",
				"kind", res.Kind.String(), "id", res.ID, "label", res.Label, "error", err)
			failures = append(failures, apperr.CleanupFailure{ID: res.ID, Kind: res.Kind.String(), Err: err})
		}
	}

	r.mu.Lock()
	for _, res := range plan {
		delete(r.entries, res.ID)
		r.tombstones[res.ID] = res.Kind
	}
	r.order = slices.DeleteFunc(r.order, func(oid string) bool {
		_, gone := r.tombstones[oid]
		return gone
	})
	r.mu.Unlock()

	if len(failures) > 0 {
		return &apperr.CleanupWarning{Failures: failures}
	}
	return nil
}

// collectLocked appends the subtree rooted at id in depth-first post-order
// (children before parent) and marks every member as deleting.
// Children are found by a linear scan over live entries.
func (r *Registry) collectLocked(id string, plan []Resource) []Resource {
	e := r.entries[id]
	e.deleting = true
	for _, cid := range r.order {
		child := r.entries[cid]
		if child.res.ParentID == id && !child.deleting {
			plan = r.collectLocked(cid, plan)
		}
	}
	return append(plan, e.res.clone())
}

// DeleteAll deletes every top-level resource, newest first, and with them
// their children. Cleanup warnings are merged into one.
func (r *Registry) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	var roots []string
	for _, id := range r.order {
		e := r.entries[id]
		if e.deleting {
			continue
		}
		if _, ok := r.entries[e.res.ParentID]; e.res.ParentID == "" || !ok {
			roots = append(roots, id)
		}
	}
	r.mu.Unlock()

	merged := &apperr.CleanupWarning{}
	var errs []error
	for _, id := range slices.Backward(roots) {
		err := r.Delete(ctx, id)
		var w *apperr.CleanupWarning
		switch {
		case err == nil:
		case errors.As(err, &w):
			merged.Failures = append(merged.Failures, w.Failures...)
		case errors.Is(err, apperr.ErrNotFound):
			// removed by a concurrent delete
		default:
			errs = append(errs, err)
		}
	}
	if len(merged.Failures) > 0 {
		errs = append(errs, merged)
	}
	return errors.Join(errs...)
}

// Stats counts live resources by kind and state.
type Stats struct {
	Total   int                       `json:"total"`
	ByKind  map[string]int            `json:"byKind"`
	ByState map[string]map[string]int `json:"byState"`
	Deleted int                       `json:"deleted"`
}

// Stats returns a snapshot of resource counts.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		ByKind:  make(map[string]int, len(Kinds)),
		ByState: make(map[string]map[string]int, len(Kinds)),
		Deleted: len(r.tombstones),
	}
	for _, k := range Kinds {
		s.ByKind[k.String()] = 0
		s.ByState[k.String()] = map[string]int{}
	}
	for _, e := range r.entries {
		if e.deleting {
			continue
		}
		k := e.res.Kind.String()
		s.Total++
		s.ByKind[k]++
		s.ByState[k][e.res.State.String()]++
	}
	return s
}
