package graph

import (
	"time"

	"github.com/signalsfoundry/frametree/spatial"
)

// worldOf returns the root-to-id composed world transform, memoising the
// result in t.worldCache:
//
//  1. If id is not dirty and has a cache entry, return it (cache hit).
//  2. Otherwise recurse to the parent (detecting cycles with an
//     active-visit set).
//  3. Compose worldOf(parent) with id's local transform; if id is a root,
//     its world transform is its local transform.
//  4. Store the result, clear the dirty bit, return.
func (t *Tree) worldOf(id string) (spatial.Transform, error) {
	start := time.Now()
	defer func() { t.metrics.ObserveQueryDuration(time.Since(start)) }()
	return t.worldOfVisiting(id, make(map[string]struct{}))
}

func (t *Tree) worldOfVisiting(id string, visiting map[string]struct{}) (spatial.Transform, error) {
	if _, dirty := t.dirty[id]; !dirty {
		if cached, ok := t.worldCache[id]; ok {
			t.metrics.RecordCacheHit()
			return cached, nil
		}
	}
	t.metrics.RecordCacheMiss()

	if _, reentered := visiting[id]; reentered {
		return spatial.Transform{}, newCycleError(id)
	}
	visiting[id] = struct{}{}

	f, ok := t.frames[id]
	if !ok {
		return spatial.Transform{}, notFound(ErrFrameNotFound, id)
	}

	var world spatial.Transform
	if f.parentID == "" {
		world = f.local
	} else {
		parentWorld, err := t.worldOfVisiting(f.parentID, visiting)
		if err != nil {
			return spatial.Transform{}, err
		}
		world = spatial.Compose(parentWorld, f.local)
	}

	t.worldCache[id] = world
	delete(t.dirty, id)
	return world, nil
}
