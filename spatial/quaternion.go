package spatial

import "math"

// Quaternion is a unit quaternion (x, y, z, w) representing a rotation. q
// and -q denote the same rotation; callers that need a canonical form should
// compare with AlmostEqual, which accounts for the sign ambiguity.
type Quaternion struct {
	X, Y, Z, W float64
}

// IdentityQuaternion is the no-rotation quaternion.
var IdentityQuaternion = Quaternion{W: 1}

// FromAxisAngle builds a unit quaternion representing a rotation of angle
// radians around axis (which need not be pre-normalized).
func FromAxisAngle(axis Vec3, angle float64) Quaternion {
	a := axis.Normalize()
	half := angle / 2
	s := math.Sin(half)
	return Quaternion{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: math.Cos(half)}
}

// FromEulerXYZ builds a unit quaternion from extrinsic X, then Y, then Z
// rotations (radians) about the fixed axes, i.e. q = qz * qy * qx applied
// to a vector as qz.Multiply(qy).Multiply(qx).
func FromEulerXYZ(x, y, z float64) Quaternion {
	qx := FromAxisAngle(Vec3{X: 1}, x)
	qy := FromAxisAngle(Vec3{Y: 1}, y)
	qz := FromAxisAngle(Vec3{Z: 1}, z)
	return qz.Multiply(qy).Multiply(qx)
}

// Normalize returns q scaled to unit length. The zero quaternion normalizes
// to the identity to keep composition total.
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return IdentityQuaternion
	}
	inv := 1 / n
	return Quaternion{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}

// Dot returns the dot product of the two quaternions' components.
func (q Quaternion) Dot(other Quaternion) float64 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

// Conjugate returns (−x, −y, −z, w).
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

// Invert returns q⁻¹. For a unit quaternion this equals the conjugate; the
// general form divides by the squared norm so near-unit inputs still invert
// sanely.
func (q Quaternion) Invert() Quaternion {
	normSq := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if normSq == 0 {
		return IdentityQuaternion
	}
	c := q.Conjugate()
	inv := 1 / normSq
	return Quaternion{X: c.X * inv, Y: c.Y * inv, Z: c.Z * inv, W: c.W * inv}
}

// Multiply returns q * other (apply other first, then q, to a vector).
func (q Quaternion) Multiply(other Quaternion) Quaternion {
	return Quaternion{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

// RotateVec rotates v by q.
func (q Quaternion) RotateVec(v Vec3) Vec3 {
	qv := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	t := qv.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(qv.Cross(t))
}

// Slerp performs shortest-arc spherical linear interpolation between a and b
// at parameter t. If the quaternions' dot product is negative, b is negated
// first so the interpolation takes the short way round.
func Slerp(a, b Quaternion, t float64) Quaternion {
	d := a.Dot(b)
	if d < 0 {
		b = Quaternion{X: -b.X, Y: -b.Y, Z: -b.Z, W: -b.W}
		d = -d
	}

	const closeThreshold = 1 - 1e-9
	if d > closeThreshold {
		// Nearly identical rotations: linear interpolation avoids a
		// divide-by-near-zero in the sin(theta) denominator below.
		return Quaternion{
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
			Z: a.Z + (b.Z-a.Z)*t,
			W: a.W + (b.W-a.W)*t,
		}.Normalize()
	}

	theta0 := math.Acos(clamp(d, -1, 1))
	theta := theta0 * t
	sinTheta0 := math.Sin(theta0)
	sinTheta := math.Sin(theta)

	s0 := math.Cos(theta) - d*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quaternion{
		X: a.X*s0 + b.X*s1,
		Y: a.Y*s0 + b.Y*s1,
		Z: a.Z*s0 + b.Z*s1,
		W: a.W*s0 + b.W*s1,
	}.Normalize()
}

// AlmostEqual reports whether q and other represent the same rotation within
// eps, accounting for the q == -q ambiguity by comparing |dot| to 1.
func (q Quaternion) AlmostEqual(other Quaternion, eps float64) bool {
	return math.Abs(math.Abs(q.Dot(other))-1) <= eps
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
