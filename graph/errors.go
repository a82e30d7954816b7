package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by Tree and BufferedTree.
var (
	// ErrDuplicateFrame is returned by Add when id already exists.
	ErrDuplicateFrame = errors.New("frame already exists")
	// ErrParentNotFound is returned by Add (and snapshot replay) when the
	// named parent is not registered.
	ErrParentNotFound = errors.New("parent frame not found")
	// ErrFrameNotFound is returned by any operation referencing an unknown
	// frame id.
	ErrFrameNotFound = errors.New("frame not found")
	// ErrHasChildren is returned by Remove when the frame still has
	// children.
	ErrHasChildren = errors.New("frame has children")
	// ErrNotConnected is returned by GetTransform when from and to live in
	// different trees of the forest.
	ErrNotConnected = errors.New("frames are not connected")
)

// CycleError indicates a cycle was discovered in the declared parent chain,
// either at Add time (caller-introduced) or during a root-walk over a graph
// that was corrupted after the fact. It carries the id where the cycle was
// detected so callers can diagnose it without string-matching.
type CycleError struct {
	ID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected at frame %q", e.ID)
}

// newCycleError is a constructor used internally so call sites stay terse.
func newCycleError(id string) error {
	return &CycleError{ID: id}
}

// notFound wraps ErrFrameNotFound (or ErrParentNotFound) with the offending
// id for a more useful error message while remaining errors.Is-compatible.
func notFound(sentinel error, id string) error {
	return fmt.Errorf("%w: %q", sentinel, id)
}
