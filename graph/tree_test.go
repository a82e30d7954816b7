package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/frametree/spatial"
)

func translate(x, y, z float64) spatial.Transform {
	return spatial.Transform{Translation: spatial.Vec3{X: x, Y: y, Z: z}, Rotation: spatial.IdentityQuaternion}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	tr := New()
	if err := tr.Add("a", "", spatial.Identity); err != nil {
		t.Fatalf("Add(a): %v", err)
	}
	err := tr.Add("a", "", spatial.Identity)
	if !errors.Is(err, ErrDuplicateFrame) {
		t.Fatalf("Add(a) again: got %v, want ErrDuplicateFrame", err)
	}
}

func TestAddRejectsUnknownParent(t *testing.T) {
	tr := New()
	err := tr.Add("child", "ghost", spatial.Identity)
	if !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("Add with unknown parent: got %v, want ErrParentNotFound", err)
	}
}

func TestAddDetectsDeclaredCycleOnNewParent(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "a", "", spatial.Identity)
	mustAdd(t, tr, "b", "a", spatial.Identity)

	// Corrupt the already-registered chain so that a now (incorrectly)
	// claims b as its parent, forming a -> b -> a. Add's cycle check walks
	// the *existing* frames map from a new frame's declared parent, so
	// adding "c" under "b" must detect this pre-existing corruption rather
	// than recursing forever.
	tr.frames["a"].parentID = "b"

	err := tr.Add("c", "b", spatial.Identity)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Add(c, b) over corrupted a<->b chain: got %v, want *CycleError", err)
	}
}

func TestRemoveRejectsFrameWithChildren(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "a", "", spatial.Identity)
	mustAdd(t, tr, "b", "a", spatial.Identity)

	err := tr.Remove("a")
	if !errors.Is(err, ErrHasChildren) {
		t.Fatalf("Remove(a) with child b: got %v, want ErrHasChildren", err)
	}

	if err := tr.Remove("b"); err != nil {
		t.Fatalf("Remove(b): %v", err)
	}
	if err := tr.Remove("a"); err != nil {
		t.Fatalf("Remove(a) after removing child: %v", err)
	}
}

func TestRemoveUnknownFrame(t *testing.T) {
	tr := New()
	if err := tr.Remove("ghost"); !errors.Is(err, ErrFrameNotFound) {
		t.Fatalf("Remove(ghost): got %v, want ErrFrameNotFound", err)
	}
}

func TestIDsPreservesInsertionOrderAsTopologicalOrder(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "root", "", spatial.Identity)
	mustAdd(t, tr, "child1", "root", spatial.Identity)
	mustAdd(t, tr, "grandchild", "child1", spatial.Identity)
	mustAdd(t, tr, "child2", "root", spatial.Identity)

	ids := tr.IDs()
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}

	if pos["root"] >= pos["child1"] || pos["root"] >= pos["child2"] {
		t.Fatalf("root must precede its children in %v", ids)
	}
	if pos["child1"] >= pos["grandchild"] {
		t.Fatalf("child1 must precede grandchild in %v", ids)
	}
}

// TestGrandparentChainComposesTranslations exercises scenario A: three
// frames chained root -> mid -> leaf, each translated along X, should
// compose additively in world space.
func TestGrandparentChainComposesTranslations(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "root", "", translate(1, 0, 0))
	mustAdd(t, tr, "mid", "root", translate(2, 0, 0))
	mustAdd(t, tr, "leaf", "mid", translate(3, 0, 0))

	world, err := tr.worldOf("leaf")
	if err != nil {
		t.Fatalf("worldOf(leaf): %v", err)
	}
	want := spatial.Vec3{X: 6, Y: 0, Z: 0}
	if !world.Translation.AlmostEqual(want, 1e-9) {
		t.Fatalf("worldOf(leaf).Translation = %+v, want %+v", world.Translation, want)
	}
}

// TestSiblingCrossBranchQuery exercises scenario B: two frames under
// different branches of the same root, queried against each other.
func TestSiblingCrossBranchQuery(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "root", "", spatial.Identity)
	mustAdd(t, tr, "left", "root", translate(1, 0, 0))
	mustAdd(t, tr, "right", "root", translate(0, 5, 0))

	got, err := tr.GetTransform("left", "right")
	if err != nil {
		t.Fatalf("GetTransform(left, right): %v", err)
	}
	want := spatial.Vec3{X: -1, Y: 5, Z: 0}
	if !got.Translation.AlmostEqual(want, 1e-9) {
		t.Fatalf("GetTransform(left,right).Translation = %+v, want %+v", got.Translation, want)
	}
}

// TestNinetyDegreeRotationAboutZQuery exercises scenario C.
func TestNinetyDegreeRotationAboutZQuery(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "root", "", spatial.Identity)
	rot := spatial.Transform{Rotation: spatial.FromAxisAngle(spatial.Vec3{Z: 1}, math.Pi/2)}
	mustAdd(t, tr, "rotated", "root", rot)
	mustAdd(t, tr, "point", "rotated", translate(1, 0, 0))

	world, err := tr.worldOf("point")
	if err != nil {
		t.Fatalf("worldOf(point): %v", err)
	}
	want := spatial.Vec3{X: 0, Y: 1, Z: 0}
	if !world.Translation.AlmostEqual(want, 1e-9) {
		t.Fatalf("worldOf(point).Translation = %+v, want %+v", world.Translation, want)
	}
}

func TestGetTransformSameFrameIsIdentity(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "a", "", translate(1, 2, 3))
	got, err := tr.GetTransform("a", "a")
	if err != nil {
		t.Fatalf("GetTransform(a,a): %v", err)
	}
	if !got.AlmostEqual(spatial.Identity, 1e-9) {
		t.Fatalf("GetTransform(a,a) = %+v, want Identity", got)
	}
}

func TestGetTransformUnknownFrame(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "a", "", spatial.Identity)
	if _, err := tr.GetTransform("a", "ghost"); !errors.Is(err, ErrFrameNotFound) {
		t.Fatalf("GetTransform(a, ghost): got %v, want ErrFrameNotFound", err)
	}
}

func TestGetTransformNotConnected(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "treeA", "", spatial.Identity)
	mustAdd(t, tr, "treeB", "", spatial.Identity)
	if _, err := tr.GetTransform("treeA", "treeB"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("GetTransform across forests: got %v, want ErrNotConnected", err)
	}
}

// TestWorldCacheMatchesNaiveRecomposition verifies the lazy cache's output
// agrees with a from-scratch recomposition along the parent chain,
// independent of cache state.
func TestWorldCacheMatchesNaiveRecomposition(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "root", "", translate(1, 1, 1))
	mustAdd(t, tr, "mid", "root", spatial.Transform{
		Translation: spatial.Vec3{X: 2},
		Rotation:    spatial.FromAxisAngle(spatial.Vec3{Y: 1}, 0.4),
	})
	mustAdd(t, tr, "leaf", "mid", translate(0, 3, 0))

	naive := func(id string) spatial.Transform {
		chain := []string{}
		cur := id
		for cur != "" {
			chain = append([]string{cur}, chain...)
			f := tr.frames[cur]
			cur = f.parentID
		}
		world := spatial.Identity
		for _, id := range chain {
			world = spatial.Compose(world, tr.frames[id].local)
		}
		return world
	}

	want := naive("leaf")
	got, err := tr.worldOf("leaf")
	if err != nil {
		t.Fatalf("worldOf(leaf): %v", err)
	}
	if !got.AlmostEqual(want, 1e-9) {
		t.Fatalf("cached worldOf(leaf) = %+v, want naive %+v", got, want)
	}

	// Mutate mid's local transform; the cache must invalidate leaf too.
	if _, err := tr.UpdateLocal("mid", translate(5, 0, 0)); err != nil {
		t.Fatalf("UpdateLocal(mid): %v", err)
	}
	want2 := naive("leaf")
	got2, err := tr.worldOf("leaf")
	if err != nil {
		t.Fatalf("worldOf(leaf) after update: %v", err)
	}
	if !got2.AlmostEqual(want2, 1e-9) {
		t.Fatalf("cached worldOf(leaf) after update = %+v, want naive %+v", got2, want2)
	}
	if got2.AlmostEqual(got, 1e-9) {
		t.Fatalf("worldOf(leaf) did not change after updating ancestor mid")
	}
}

func TestUpdateLocalReturnsSubtreeStaleSet(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "root", "", spatial.Identity)
	mustAdd(t, tr, "a", "root", spatial.Identity)
	mustAdd(t, tr, "b", "a", spatial.Identity)
	mustAdd(t, tr, "c", "root", spatial.Identity)

	stale, err := tr.UpdateLocal("a", translate(1, 0, 0))
	if err != nil {
		t.Fatalf("UpdateLocal(a): %v", err)
	}
	got := toSet(stale)
	want := toSet([]string{"a", "b"})
	if !setsEqual(got, want) {
		t.Fatalf("stale set = %v, want %v", got, want)
	}
}

// TestBatchUpdateDedupesAncestorDescendantPairs exercises scenario F: a
// batch touching both a parent and its child must only contribute the
// parent's subtree once to the stale-set.
func TestBatchUpdateDedupesAncestorDescendantPairs(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "root", "", spatial.Identity)
	mustAdd(t, tr, "a", "root", spatial.Identity)
	mustAdd(t, tr, "b", "a", spatial.Identity)
	mustAdd(t, tr, "c", "b", spatial.Identity)
	mustAdd(t, tr, "d", "root", spatial.Identity)

	stale, err := tr.UpdateBatch(map[string]spatial.Transform{
		"a": translate(1, 0, 0),
		"b": translate(2, 0, 0),
		"d": translate(3, 0, 0),
	})
	if err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}
	got := toSet(stale)
	want := toSet([]string{"a", "b", "c", "d"})
	if !setsEqual(got, want) {
		t.Fatalf("batch stale set = %v, want %v", got, want)
	}
}

func TestUpdateBatchAllOrNothingOnUnknownID(t *testing.T) {
	tr := New()
	mustAdd(t, tr, "a", "", spatial.Identity)
	original := tr.frames["a"].local

	_, err := tr.UpdateBatch(map[string]spatial.Transform{
		"a":     translate(9, 9, 9),
		"ghost": translate(1, 1, 1),
	})
	if !errors.Is(err, ErrFrameNotFound) {
		t.Fatalf("UpdateBatch with unknown id: got %v, want ErrFrameNotFound", err)
	}
	if !tr.frames["a"].local.AlmostEqual(original, 1e-12) {
		t.Fatalf("UpdateBatch partially applied despite validation failure")
	}
}

func mustAdd(t *testing.T, tr *Tree, id, parent string, local spatial.Transform) {
	t.Helper()
	if err := tr.Add(id, parent, local); err != nil {
		t.Fatalf("Add(%q, %q): %v", id, parent, err)
	}
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
