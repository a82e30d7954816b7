package graph

import (
	"github.com/google/uuid"
	"github.com/signalsfoundry/frametree/spatial"
)

// FrameSnapshot is the wire shape of a single frame within a Snapshot.
// ParentID is nil for a root.
type FrameSnapshot struct {
	ID          string     `json:"id"`
	ParentID    *string    `json:"parentId"`
	Translation [3]float64 `json:"translation"`
	Rotation    [4]float64 `json:"rotation"`
}

// Snapshot is a self-describing, stable topological snapshot of a Tree:
// frames are ordered parents-before-children, matching insertion order. ID
// is an opaque identifier a caller can use to recognize which snapshot a
// given blob came from when persisting it externally; it has no bearing on
// replay semantics.
type Snapshot struct {
	ID     uuid.UUID       `json:"id"`
	Frames []FrameSnapshot `json:"frames"`
}

// ToSnapshot emits every frame in insertion order, which by the Frame
// Graph's topological-order invariant is already parents-before-children.
func (t *Tree) ToSnapshot() Snapshot {
	frames := make([]FrameSnapshot, 0, len(t.order))
	for _, id := range t.order {
		f := t.frames[id]
		var parent *string
		if f.parentID != "" {
			p := f.parentID
			parent = &p
		}
		frames = append(frames, FrameSnapshot{
			ID:       f.id,
			ParentID: parent,
			Translation: [3]float64{
				f.local.Translation.X, f.local.Translation.Y, f.local.Translation.Z,
			},
			Rotation: [4]float64{
				f.local.Rotation.X, f.local.Rotation.Y, f.local.Rotation.Z, f.local.Rotation.W,
			},
		})
	}
	return Snapshot{ID: uuid.New(), Frames: frames}
}

// FromSnapshot constructs a fresh Tree by replaying snap.Frames through Add
// in order. Any failure (ErrDuplicateFrame, ErrParentNotFound, CycleError)
// propagates verbatim.
func FromSnapshot(snap Snapshot, opts ...Option) (*Tree, error) {
	t := New(opts...)
	for _, fs := range snap.Frames {
		parent := ""
		if fs.ParentID != nil {
			parent = *fs.ParentID
		}
		local := snapshotToTransform(fs)
		if err := t.Add(fs.ID, parent, local); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func snapshotToTransform(fs FrameSnapshot) spatial.Transform {
	return spatial.Transform{
		Translation: spatial.Vec3{X: fs.Translation[0], Y: fs.Translation[1], Z: fs.Translation[2]},
		Rotation: spatial.Quaternion{
			X: fs.Rotation[0], Y: fs.Rotation[1], Z: fs.Rotation[2], W: fs.Rotation[3],
		},
	}
}
