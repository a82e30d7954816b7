// Package motion supplements the core frame graph with a producer that
// drives a frame's transform from real orbital mechanics instead of from
// test fixtures.
//
// This is additive: it never replaces graph.BufferedTree.SetTransform, it
// is simply a caller of it.
package motion

import (
	"fmt"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/frametree/graph"
	"github.com/signalsfoundry/frametree/spatial"
)

// kmToM converts go-satellite's kilometre outputs to frametree's metre
// convention.
const kmToM = 1000.0

// FrameDriver is anything that can be advanced to a simulation time,
// updating some frame's transform as a side effect.
type FrameDriver interface {
	Tick(simTime time.Time) error
}

// OrbitalFrameDriver propagates a TLE via SGP4 and feeds the resulting ECEF
// position into a BufferedTree as a time-stamped, translation-only local
// transform for one frame. Attitude propagation is out of scope — the
// frame's rotation is always identity.
type OrbitalFrameDriver struct {
	tree    *graph.BufferedTree
	frameID string
	sat     satellite.Satellite
}

// NewOrbitalFrameDriver parses the two-line element set and returns a driver
// that will update frameID on tree every Tick.
func NewOrbitalFrameDriver(tree *graph.BufferedTree, frameID, tle1, tle2 string) (*OrbitalFrameDriver, error) {
	if tree == nil {
		return nil, fmt.Errorf("motion: NewOrbitalFrameDriver: tree is nil")
	}
	if !tree.Has(frameID) {
		return nil, fmt.Errorf("motion: NewOrbitalFrameDriver: frame %q not registered", frameID)
	}
	if tle1 == "" || tle2 == "" {
		return nil, fmt.Errorf("motion: NewOrbitalFrameDriver: both TLE lines are required")
	}

	sat := satellite.TLEToSat(tle1, tle2, satellite.GravityWGS72)
	return &OrbitalFrameDriver{tree: tree, frameID: frameID, sat: sat}, nil
}

// Tick propagates the satellite to simTime and pushes the resulting
// translation-only transform into the driven frame's temporal buffer.
func (d *OrbitalFrameDriver) Tick(simTime time.Time) error {
	year, month, day := simTime.Date()
	hour, minute, sec := simTime.Clock()

	posECI, _ := satellite.Propagate(d.sat, year, int(month), day, hour, minute, sec)
	jd := satellite.JDay(year, int(month), day, hour, minute, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	local := spatial.Transform{
		Translation: spatial.Vec3{
			X: posECEF.X * kmToM,
			Y: posECEF.Y * kmToM,
			Z: posECEF.Z * kmToM,
		},
		Rotation: spatial.IdentityQuaternion,
	}

	return d.tree.SetTransform(d.frameID, local, simTime)
}
