// Package graph implements the frame graph, world-transform cache, query
// engine, change notifier, and snapshot serializer as a single cohesive
// store that combines CRUD and pub/sub for a spatial reference graph in
// one type.
//
// Mutating a Tree from inside one of its own change callbacks is undefined:
// the callback runs while the triggering mutator is still in progress, and
// nothing guards against re-entry.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/signalsfoundry/frametree/internal/logging"
	"github.com/signalsfoundry/frametree/spatial"
)

// KV is a small tracing attribute pair, kept dependency-free so package
// graph never needs to import an OpenTelemetry type.
type KV struct {
	Key   string
	Value string
}

// Tracer is the minimal span interface Tree accepts; telemetry.Tracer
// implements it. Span returns a function that ends the span.
type Tracer interface {
	Span(name string, attrs ...KV) func()
}

// MetricsRecorder is the minimal metrics interface Tree accepts;
// telemetry.Collector implements it.
type MetricsRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordDirtyMarked(n int)
	ObserveQueryDuration(d time.Duration)
	RecordBufferPruned(n int)
}

type noopTracer struct{}

func (noopTracer) Span(string, ...KV) func() { return func() {} }

type noopMetrics struct{}

func (noopMetrics) RecordCacheHit()                    {}
func (noopMetrics) RecordCacheMiss()                   {}
func (noopMetrics) RecordDirtyMarked(int)              {}
func (noopMetrics) ObserveQueryDuration(time.Duration) {}
func (noopMetrics) RecordBufferPruned(int)             {}

// Tree is an insertion-ordered forest of Frames with a lazily-recomputed
// world-transform cache, a change notifier, and a topological snapshot
// serializer. It follows a single-threaded cooperative scheduling model and
// carries no internal lock. Callers needing concurrent access must
// serialize it themselves.
type Tree struct {
	// InstanceID identifies this Tree instance for logs/traces; it has no
	// bearing on graph semantics.
	InstanceID uuid.UUID

	order    []string
	frames   map[string]*frame
	children map[string][]string

	worldCache map[string]spatial.Transform
	dirty      map[string]struct{}

	listeners map[string][]*listenerEntry

	log     logging.Logger
	metrics MetricsRecorder
	tracer  Tracer

	// maxBufferDuration is only consulted by BufferedTree, but lives here
	// so WithMaxBufferDuration can be an Option alongside WithLogger /
	// WithMetrics / WithTracer instead of a second, parallel options type.
	maxBufferDuration time.Duration
}

// Option customizes Tree (and BufferedTree) construction, mirroring the
// teacher's ScenarioStateOption pattern in internal/sim/state/state.go.
type Option func(*Tree)

// WithLogger attaches a structured logger; the default is logging.Noop().
func WithLogger(l logging.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.log = l
		}
	}
}

// WithMetrics attaches a metrics recorder; the default records nothing.
func WithMetrics(m MetricsRecorder) Option {
	return func(t *Tree) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithTracer attaches a span tracer; the default creates no spans.
func WithTracer(tr Tracer) Option {
	return func(t *Tree) {
		if tr != nil {
			t.tracer = tr
		}
	}
}

// WithMaxBufferDuration overrides the default 10-second retention window
// used by every frame's temporal buffer in a BufferedTree. It has no
// effect on a plain Tree.
func WithMaxBufferDuration(d time.Duration) Option {
	return func(t *Tree) {
		if d > 0 {
			t.maxBufferDuration = d
		}
	}
}

// New constructs an empty Tree.
func New(opts ...Option) *Tree {
	t := &Tree{
		InstanceID: uuid.New(),
		order:      nil,
		frames:     make(map[string]*frame),
		children:   make(map[string][]string),
		worldCache: make(map[string]spatial.Transform),
		dirty:      make(map[string]struct{}),
		listeners:  make(map[string][]*listenerEntry),
		log:        logging.Noop(),
		metrics:    noopMetrics{},
		tracer:     noopTracer{},

		maxBufferDuration: time.Duration(0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add registers a new frame. parentID == "" denotes a root. local defaults
// to spatial.Identity when the zero Transform is passed (the zero Transform
// has a zero quaternion, which is not a valid rotation).
//
// Add fails with ErrDuplicateFrame if id is already registered,
// ErrParentNotFound if parentID is non-empty and unregistered, and a
// *CycleError if walking the declared parent chain from parentID ever
// reaches id, guarding against caller-introduced cycles.
func (t *Tree) Add(id string, parentID string, local spatial.Transform) error {
	if _, exists := t.frames[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateFrame, id)
	}
	if parentID != "" {
		if _, ok := t.frames[parentID]; !ok {
			return notFound(ErrParentNotFound, parentID)
		}
		if err := checkNoCycle(t.frames, parentID, id); err != nil {
			return err
		}
	}

	if local == (spatial.Transform{}) {
		local = spatial.Identity
	}

	t.frames[id] = &frame{id: id, parentID: parentID, local: local}
	t.order = append(t.order, id)
	if _, ok := t.children[id]; !ok {
		t.children[id] = nil
	}
	if parentID != "" {
		t.children[parentID] = append(t.children[parentID], id)
	}

	stale := []string{id}
	t.markDirty(stale)
	t.log.Debug(context.Background(), "frame added", logging.String("id", id), logging.String("parent", parentID))
	t.fireStaleSet(stale)
	return nil
}

// checkNoCycle walks current := parent up to the root; if it ever equals
// id, the declared parent chain contains a cycle.
func checkNoCycle(frames map[string]*frame, parent, id string) error {
	current := parent
	visited := make(map[string]struct{})
	for current != "" {
		if current == id {
			return newCycleError(id)
		}
		if _, seen := visited[current]; seen {
			// The existing graph is already corrupted; report at the
			// point we re-entered it rather than looping forever.
			return newCycleError(current)
		}
		visited[current] = struct{}{}
		f, ok := frames[current]
		if !ok {
			return notFound(ErrParentNotFound, current)
		}
		current = f.parentID
	}
	return nil
}

// Remove deletes a leaf frame, releasing its cache entry, dirty entry,
// listener set, and adjacency. It fails with ErrFrameNotFound if id is
// unknown and ErrHasChildren if id still has registered children.
func (t *Tree) Remove(id string) error {
	f, ok := t.frames[id]
	if !ok {
		return notFound(ErrFrameNotFound, id)
	}
	if len(t.children[id]) > 0 {
		return fmt.Errorf("%w: %q", ErrHasChildren, id)
	}

	if f.parentID != "" {
		siblings := t.children[f.parentID]
		for i, s := range siblings {
			if s == id {
				t.children[f.parentID] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}

	delete(t.frames, id)
	delete(t.children, id)
	delete(t.worldCache, id)
	delete(t.dirty, id)
	delete(t.listeners, id)

	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	t.log.Debug(context.Background(), "frame removed", logging.String("id", id))
	return nil
}

// UpdateLocal replaces id's local transform and returns the stale-set: id
// and every descendant, whose world transforms are no longer valid.
func (t *Tree) UpdateLocal(id string, local spatial.Transform) ([]string, error) {
	f, ok := t.frames[id]
	if !ok {
		return nil, notFound(ErrFrameNotFound, id)
	}
	f.local = local

	stale := t.collectSubtree(id)
	t.markDirty(stale)
	t.fireStaleSet(stale)
	return stale, nil
}

// UpdateBatch validates every id first (all-or-nothing), applies every
// transform, then computes the ancestor-deduplicated union of subtrees:
// subtree(x) is included iff no ancestor of x is also a key of updates. If
// the same id appears twice in updates (impossible with a Go map, which is
// the point of taking map[string]spatial.Transform instead of a slice), the
// last write wins — this is the natural map semantics.
func (t *Tree) UpdateBatch(updates map[string]spatial.Transform) ([]string, error) {
	for id := range updates {
		if _, ok := t.frames[id]; !ok {
			return nil, notFound(ErrFrameNotFound, id)
		}
	}
	for id, local := range updates {
		t.frames[id].local = local
	}

	staleSet := make(map[string]struct{})
	for id := range updates {
		if t.hasAncestorInBatch(id, updates) {
			continue
		}
		for _, s := range t.collectSubtree(id) {
			staleSet[s] = struct{}{}
		}
	}

	stale := make([]string, 0, len(staleSet))
	for id := range staleSet {
		stale = append(stale, id)
	}

	t.markDirty(stale)
	t.log.Debug(context.Background(), "batch update applied", logging.Int("updated", len(updates)), logging.Int("stale", len(stale)))
	t.fireStaleSet(stale)
	return stale, nil
}

// hasAncestorInBatch reports whether any proper ancestor of id is also a key
// of updates.
func (t *Tree) hasAncestorInBatch(id string, updates map[string]spatial.Transform) bool {
	current := t.frames[id].parentID
	for current != "" {
		if _, ok := updates[current]; ok {
			return true
		}
		current = t.frames[current].parentID
	}
	return false
}

// collectSubtree returns id and every descendant of id, via depth-first
// traversal of the child adjacency.
func (t *Tree) collectSubtree(id string) []string {
	var out []string
	stack := []string{id}
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		out = append(out, cur)
		stack = append(stack, t.children[cur]...)
	}
	return out
}

// markDirty marks every id in ids as stale: remove from worldCache, add to
// dirty. This is the cache-invalidation half of component C; the
// corresponding lazy recompute lives in cache.go.
func (t *Tree) markDirty(ids []string) {
	for _, id := range ids {
		delete(t.worldCache, id)
		t.dirty[id] = struct{}{}
	}
	t.metrics.RecordDirtyMarked(len(ids))
}
