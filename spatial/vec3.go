// Package spatial implements the rigid-body math primitives frametree needs:
// Vec3, unit quaternions, and the composed rigid Transform. No third-party
// vector/quaternion library appears anywhere in the retrieved corpus, so
// these are implemented directly on top of math, in the spirit of the
// teacher's own core/geometry.go (which does the same for its ECEF Vec3).
package spatial

import "math"

// Epsilon is the default tolerance used by the package's approximate
// equality helpers.
const Epsilon = 1e-9

// Vec3 is a 3-component vector in an unspecified but consistent unit.
type Vec3 struct {
	X, Y, Z float64
}

// ZeroVec3 is the additive identity.
var ZeroVec3 = Vec3{}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product v x other.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length. The zero vector normalizes to
// itself.
func (v Vec3) Normalize() Vec3 {
	n := v.Length()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// LerpVec3 returns the component-wise linear interpolation between a and b at
// parameter t (t=0 -> a, t=1 -> b).
func LerpVec3(a, b Vec3, t float64) Vec3 {
	return Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// AlmostEqual reports whether v and other are within eps of each other in
// every component.
func (v Vec3) AlmostEqual(other Vec3, eps float64) bool {
	return math.Abs(v.X-other.X) <= eps &&
		math.Abs(v.Y-other.Y) <= eps &&
		math.Abs(v.Z-other.Z) <= eps
}
