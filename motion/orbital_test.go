package motion

import (
	"testing"

	"github.com/signalsfoundry/frametree/graph"
	"github.com/signalsfoundry/frametree/spatial"
)

const (
	issTLE1 = "1 25544U 98067A   26001.50000000  .00016717  00000-0  10270-3 0  9006"
	issTLE2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391123456"
)

func TestNewOrbitalFrameDriverRejectsNilTree(t *testing.T) {
	if _, err := NewOrbitalFrameDriver(nil, "sat", issTLE1, issTLE2); err == nil {
		t.Fatalf("NewOrbitalFrameDriver(nil tree) should fail")
	}
}

func TestNewOrbitalFrameDriverRejectsUnregisteredFrame(t *testing.T) {
	tree := graph.NewBuffered()
	if _, err := NewOrbitalFrameDriver(tree, "sat", issTLE1, issTLE2); err == nil {
		t.Fatalf("NewOrbitalFrameDriver with unregistered frame should fail")
	}
}

func TestNewOrbitalFrameDriverRejectsEmptyTLE(t *testing.T) {
	tree := graph.NewBuffered()
	if err := tree.Add("sat", "", spatial.Identity); err != nil {
		t.Fatalf("Add(sat): %v", err)
	}
	if _, err := NewOrbitalFrameDriver(tree, "sat", "", issTLE2); err == nil {
		t.Fatalf("NewOrbitalFrameDriver with empty tle1 should fail")
	}
	if _, err := NewOrbitalFrameDriver(tree, "sat", issTLE1, ""); err == nil {
		t.Fatalf("NewOrbitalFrameDriver with empty tle2 should fail")
	}
}

func TestNewOrbitalFrameDriverAcceptsRegisteredFrame(t *testing.T) {
	tree := graph.NewBuffered()
	if err := tree.Add("sat", "", spatial.Identity); err != nil {
		t.Fatalf("Add(sat): %v", err)
	}
	driver, err := NewOrbitalFrameDriver(tree, "sat", issTLE1, issTLE2)
	if err != nil {
		t.Fatalf("NewOrbitalFrameDriver: %v", err)
	}
	if driver == nil {
		t.Fatalf("driver is nil")
	}
}
