package graph

import (
	"time"

	"github.com/signalsfoundry/frametree/spatial"
	"github.com/signalsfoundry/frametree/temporal"
)

// BufferedTree extends Tree with a per-frame temporal buffer, giving a
// frame graph whose world transforms can be queried at an arbitrary
// retained timestamp, not just "now".
type BufferedTree struct {
	*Tree

	buffers           map[string]*temporal.Buffer
	maxBufferDuration time.Duration
}

// NewBuffered constructs an empty BufferedTree. opts is the same Option set
// New accepts (WithLogger, WithMetrics, WithTracer,
// WithMaxBufferDuration).
func NewBuffered(opts ...Option) *BufferedTree {
	tree := New(opts...)
	maxDuration := tree.maxBufferDuration
	if maxDuration <= 0 {
		maxDuration = temporal.DefaultMaxDuration
	}
	return &BufferedTree{
		Tree:              tree,
		buffers:           make(map[string]*temporal.Buffer),
		maxBufferDuration: maxDuration,
	}
}

// bufferFor returns id's buffer, creating it lazily on first time-stamped
// write.
func (bt *BufferedTree) bufferFor(id string) *temporal.Buffer {
	b, ok := bt.buffers[id]
	if !ok {
		b = temporal.New(
			temporal.WithMaxDuration(bt.maxBufferDuration),
			temporal.WithLogger(bt.log),
			temporal.WithPruneObserver(bt.metrics.RecordBufferPruned),
		)
		bt.buffers[id] = b
	}
	return b
}

// SetTransform performs the ordinary non-temporal UpdateLocal (triggering
// cache invalidation and listener firing) and then appends (local, ts) to
// id's buffer.
func (bt *BufferedTree) SetTransform(id string, local spatial.Transform, ts time.Time) error {
	if _, err := bt.UpdateLocal(id, local); err != nil {
		return err
	}
	bt.bufferFor(id).Push(ts, local)
	return nil
}

// Remove also releases id's buffer, extending Tree.Remove's frame-removal
// lifecycle: a frame's buffer is destroyed along with it.
func (bt *BufferedTree) Remove(id string) error {
	if err := bt.Tree.Remove(id); err != nil {
		return err
	}
	delete(bt.buffers, id)
	return nil
}

// GetTransformAt returns the transform mapping points in from to to as they
// stood at ts, computed as invert(worldAt(from, ts)) ∘ worldAt(to, ts),
// where worldAt recursively composes a frame's parent worldAt with its
// local-transform-at-ts (from the buffer if any samples exist, otherwise
// the static local transform). Cycles are detected per call with an
// active-visit set, matching the static GetTransform's
// resilience to a corrupted graph. Any per-edge buffer's ErrOutOfRange is
// surfaced verbatim. ErrBufferEmpty is never returned: a frame with no
// buffered samples uses its static local transform instead.
func (bt *BufferedTree) GetTransformAt(from, to string, ts time.Time) (spatial.Transform, error) {
	if _, ok := bt.frames[from]; !ok {
		return spatial.Transform{}, notFound(ErrFrameNotFound, from)
	}
	if _, ok := bt.frames[to]; !ok {
		return spatial.Transform{}, notFound(ErrFrameNotFound, to)
	}
	if from == to {
		return spatial.Identity, nil
	}

	end := bt.tracer.Span("graph.GetTransformAt", KV{Key: "from", Value: from}, KV{Key: "to", Value: to})
	defer end()

	fromWorld, err := bt.worldAt(from, ts, make(map[string]struct{}))
	if err != nil {
		return spatial.Transform{}, err
	}
	toWorld, err := bt.worldAt(to, ts, make(map[string]struct{}))
	if err != nil {
		return spatial.Transform{}, err
	}
	return spatial.Compose(spatial.Invert(fromWorld), toWorld), nil
}

// worldAt recursively composes id's parent worldAt with id's local
// transform at ts.
func (bt *BufferedTree) worldAt(id string, ts time.Time, visiting map[string]struct{}) (spatial.Transform, error) {
	if _, reentered := visiting[id]; reentered {
		return spatial.Transform{}, newCycleError(id)
	}
	visiting[id] = struct{}{}

	f, ok := bt.frames[id]
	if !ok {
		return spatial.Transform{}, notFound(ErrFrameNotFound, id)
	}

	local, err := bt.localAt(id, f, ts)
	if err != nil {
		return spatial.Transform{}, err
	}

	if f.parentID == "" {
		return local, nil
	}
	parentWorld, err := bt.worldAt(f.parentID, ts, visiting)
	if err != nil {
		return spatial.Transform{}, err
	}
	return spatial.Compose(parentWorld, local), nil
}

// localAt returns id's local transform at ts: from the buffer if any
// samples have been recorded, otherwise the static local transform set at
// Add/UpdateLocal time.
func (bt *BufferedTree) localAt(id string, f *frame, ts time.Time) (spatial.Transform, error) {
	b, ok := bt.buffers[id]
	if !ok || b.Len() == 0 {
		return f.local, nil
	}
	return b.Interpolate(ts)
}
