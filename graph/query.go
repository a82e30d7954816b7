package graph

import (
	"fmt"

	"github.com/signalsfoundry/frametree/spatial"
)

// GetTransform returns the transform that maps points expressed in from into
// the to coordinate system.
//
// It fails with ErrFrameNotFound if either endpoint is unregistered, with a
// *CycleError if a root-walk re-enters an already-visited frame (detecting
// corruption introduced after Add's own cycle check), and with
// ErrNotConnected if from and to have no common ancestor.
func (t *Tree) GetTransform(from, to string) (spatial.Transform, error) {
	if _, ok := t.frames[from]; !ok {
		return spatial.Transform{}, notFound(ErrFrameNotFound, from)
	}
	if _, ok := t.frames[to]; !ok {
		return spatial.Transform{}, notFound(ErrFrameNotFound, to)
	}
	if from == to {
		return spatial.Identity, nil
	}

	end := t.tracer.Span("graph.GetTransform", KV{Key: "from", Value: from}, KV{Key: "to", Value: to})
	defer end()

	fromChain, err := t.chainToRoot(from)
	if err != nil {
		return spatial.Transform{}, err
	}
	toChain, err := t.chainToRoot(to)
	if err != nil {
		return spatial.Transform{}, err
	}

	if !connected(fromChain, toChain) {
		return spatial.Transform{}, fmt.Errorf("%w: %q and %q", ErrNotConnected, from, to)
	}

	// The LCA search above is required for the connectivity error; the
	// actual numeric result is the numerically stable
	// invert(worldOf(from)) ∘ worldOf(to), which avoids walking from the
	// LCA twice.
	fromWorld, err := t.worldOf(from)
	if err != nil {
		return spatial.Transform{}, err
	}
	toWorld, err := t.worldOf(to)
	if err != nil {
		return spatial.Transform{}, err
	}
	return spatial.Compose(spatial.Invert(fromWorld), toWorld), nil
}

// chainToRoot walks id to its subtree root, returning [id, ..., root].
// Re-detects cycles via a visited-set so the query engine stays resilient
// to a graph that was corrupted after Add's own cycle check.
func (t *Tree) chainToRoot(id string) ([]string, error) {
	var chain []string
	visited := make(map[string]struct{})
	current := id
	for {
		if _, seen := visited[current]; seen {
			return nil, newCycleError(current)
		}
		visited[current] = struct{}{}
		chain = append(chain, current)

		f, ok := t.frames[current]
		if !ok {
			return nil, notFound(ErrFrameNotFound, current)
		}
		if f.parentID == "" {
			return chain, nil
		}
		current = f.parentID
	}
}

// connected reports whether any id in fromChain also appears in toChain.
func connected(fromChain, toChain []string) bool {
	toSet := make(map[string]struct{}, len(toChain))
	for _, id := range toChain {
		toSet[id] = struct{}{}
	}
	for _, id := range fromChain {
		if _, ok := toSet[id]; ok {
			return true
		}
	}
	return false
}
