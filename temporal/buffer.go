// Package temporal implements a time-indexed transform buffer: a sorted,
// per-edge sample sequence supporting LERP/SLERP interpolation and
// bounded, age-based retention.
package temporal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/signalsfoundry/frametree/internal/logging"
	"github.com/signalsfoundry/frametree/spatial"
)

// Sentinel errors surfaced by Buffer.Interpolate.
var (
	// ErrBufferEmpty is returned by Interpolate against a buffer with no
	// samples.
	ErrBufferEmpty = errors.New("buffer is empty")
	// ErrOutOfRange is returned by Interpolate when ts predates the oldest
	// retained sample.
	ErrOutOfRange = errors.New("timestamp out of range")
)

// DefaultMaxDuration is the retention window used when a Buffer is
// constructed with a non-positive maxDuration.
const DefaultMaxDuration = 10 * time.Second

// Sample is a single time-stamped local transform.
type Sample struct {
	Timestamp time.Time
	Transform spatial.Transform
}

// Buffer is a time-sorted sequence of Samples for one frame (samples with
// equal timestamps keep their insertion order), with an age-based retention
// bound. It has no internal concurrency.
type Buffer struct {
	samples     []Sample
	maxDuration time.Duration
	log         logging.Logger
	onPrune     func(pruned int)
}

// Option customizes Buffer construction.
type Option func(*Buffer)

// WithMaxDuration overrides DefaultMaxDuration.
func WithMaxDuration(d time.Duration) Option {
	return func(b *Buffer) {
		if d > 0 {
			b.maxDuration = d
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.log = l
		}
	}
}

// WithPruneObserver attaches a callback invoked with the number of samples
// dropped on each Push that causes a prune; used by telemetry.Collector to
// record buffer-prune counts without Buffer importing telemetry.
func WithPruneObserver(fn func(pruned int)) Option {
	return func(b *Buffer) {
		if fn != nil {
			b.onPrune = fn
		}
	}
}

// New constructs an empty Buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		maxDuration: DefaultMaxDuration,
		log:         logging.Noop(),
		onPrune:     func(int) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Push inserts (ts, transform) at the position given by the upper-bound of
// ts (ties go after existing samples with the same timestamp), then prunes
// from the front any sample older than newest.Timestamp - maxDuration.
func (b *Buffer) Push(ts time.Time, transform spatial.Transform) {
	idx := sort.Search(len(b.samples), func(i int) bool {
		return b.samples[i].Timestamp.After(ts)
	})

	b.samples = append(b.samples, Sample{})
	copy(b.samples[idx+1:], b.samples[idx:])
	b.samples[idx] = Sample{Timestamp: ts, Transform: transform}

	b.prune()
}

// prune drops every leading sample older than newest - maxDuration,
// preserving the sorted invariant.
func (b *Buffer) prune() {
	if len(b.samples) == 0 {
		return
	}
	newest := b.samples[len(b.samples)-1].Timestamp
	cutoff := newest.Add(-b.maxDuration)

	dropped := 0
	for dropped < len(b.samples) && b.samples[dropped].Timestamp.Before(cutoff) {
		dropped++
	}
	if dropped == 0 {
		return
	}
	b.samples = append([]Sample(nil), b.samples[dropped:]...)
	b.onPrune(dropped)
	b.log.Debug(context.Background(), "buffer pruned", logging.Int("dropped", dropped), logging.Int("remaining", len(b.samples)))
}

// Len returns the current number of retained samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Interpolate returns the transform at ts:
//
//   - ErrBufferEmpty if there are no samples.
//   - ErrOutOfRange if ts predates the oldest sample.
//   - The newest sample, clamped, if ts is at or after the newest
//     timestamp (no extrapolation).
//   - The exact sample if ts matches one exactly.
//   - Otherwise LERP/SLERP between the bracketing samples.
func (b *Buffer) Interpolate(ts time.Time) (spatial.Transform, error) {
	if len(b.samples) == 0 {
		return spatial.Transform{}, ErrBufferEmpty
	}

	oldest := b.samples[0]
	newest := b.samples[len(b.samples)-1]

	if ts.Before(oldest.Timestamp) {
		return spatial.Transform{}, fmt.Errorf("%w: %s is before oldest sample %s", ErrOutOfRange, ts, oldest.Timestamp)
	}
	if !ts.Before(newest.Timestamp) {
		return newest.Transform, nil
	}

	h := sort.Search(len(b.samples), func(i int) bool {
		return !b.samples[i].Timestamp.Before(ts)
	})
	if b.samples[h].Timestamp.Equal(ts) {
		return b.samples[h].Transform, nil
	}

	lo, hi := b.samples[h-1], b.samples[h]
	alpha := float64(ts.Sub(lo.Timestamp)) / float64(hi.Timestamp.Sub(lo.Timestamp))

	return spatial.Transform{
		Translation: spatial.LerpVec3(lo.Transform.Translation, hi.Transform.Translation, alpha),
		Rotation:    spatial.Slerp(lo.Transform.Rotation, hi.Transform.Rotation, alpha),
	}, nil
}
