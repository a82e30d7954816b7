package graph

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/frametree/internal/logging"
)

// listenerEntry wraps a registered callback so Unsubscribe can be made
// idempotent: calling the returned function more than once, or after the
// owning frame was removed, is a no-op.
type listenerEntry struct {
	cb      func(string)
	removed bool
}

// OnChange registers cb to be invoked with id whenever id's world transform
// becomes stale. It fails with ErrFrameNotFound if id is unregistered.
// The returned unsubscribe function idempotently removes cb.
func (t *Tree) OnChange(id string, cb func(string)) (func(), error) {
	if _, ok := t.frames[id]; !ok {
		return nil, notFound(ErrFrameNotFound, id)
	}

	entry := &listenerEntry{cb: cb}
	t.listeners[id] = append(t.listeners[id], entry)

	return func() {
		entry.removed = true
	}, nil
}

// fireStaleSet invokes every live listener registered against each id in
// stale, synchronously, in the calling goroutine: all cache invalidation
// for a mutator completes before any callback fires. Iteration order over
// stale is the order callers received it in; for a single UpdateLocal that
// is always subtree order starting at the updated frame, and for
// UpdateBatch it is unspecified across ids but deterministic per id.
// Listeners registered against the same id always fire in registration
// order.
func (t *Tree) fireStaleSet(stale []string) {
	for _, id := range stale {
		entries := t.listeners[id]
		for _, e := range entries {
			if e.removed {
				continue
			}
			t.invokeSafely(id, e)
		}
	}
}

// invokeSafely runs a single listener callback, recovering from a panic so
// one broken callback cannot corrupt graph state or stop the remaining
// callbacks in the stale-set from running. A recovered panic is logged,
// not propagated: the mutator that triggered it has already committed by
// the time listeners fire.
func (t *Tree) invokeSafely(id string, e *listenerEntry) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error(context.Background(), "change listener panicked",
				logging.String("id", id), logging.Any("panic", fmt.Sprintf("%v", r)))
		}
	}()
	e.cb(id)
}
