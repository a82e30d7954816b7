package spatial

import "math"

// Transform is a rigid-body transform: a translation plus a unit-quaternion
// rotation. Compose and Invert follow the "apply A, then B" convention used
// throughout the frame graph: the local transform of a child is composed
// with its parent's world transform as compose(parentWorld, local).
type Transform struct {
	Translation Vec3
	Rotation    Quaternion
}

// Identity is the no-op rigid transform.
var Identity = Transform{Rotation: IdentityQuaternion}

// Compose returns the transform equivalent to applying a, then b:
// result.Translation = a.Translation + a.Rotation.RotateVec(b.Translation)
// result.Rotation    = a.Rotation * b.Rotation
//
// This is associative but not commutative.
func Compose(a, b Transform) Transform {
	return Transform{
		Translation: a.Translation.Add(a.Rotation.RotateVec(b.Translation)),
		Rotation:    a.Rotation.Multiply(b.Rotation).Normalize(),
	}
}

// Invert returns t⁻¹ such that Compose(t, Invert(t)) is approximately
// Identity: (−R⁻¹·t, R⁻¹).
func Invert(t Transform) Transform {
	rInv := t.Rotation.Invert()
	return Transform{
		Translation: rInv.RotateVec(t.Translation.Scale(-1)),
		Rotation:    rInv,
	}
}

// Apply rotates then translates p by t.
func Apply(t Transform, p Vec3) Vec3 {
	return t.Rotation.RotateVec(p).Add(t.Translation)
}

// ToMat4 produces a 16-element column-major array suitable for external
// renderers.
func ToMat4(t Transform) [16]float64 {
	q := t.Rotation.Normalize()
	x, y, z, w := q.X, q.Y, q.Z, q.W

	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return [16]float64{
		1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0,
		2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0,
		2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0,
		t.Translation.X, t.Translation.Y, t.Translation.Z, 1,
	}
}

// FromMat4 decomposes a 16-element column-major matrix back into a Transform,
// extracting the rotation from the upper-left 3x3 block via the standard
// trace-based quaternion extraction.
func FromMat4(m [16]float64) Transform {
	m00, m10, m20 := m[0], m[1], m[2]
	m01, m11, m21 := m[4], m[5], m[6]
	m02, m12, m22 := m[8], m[9], m[10]

	trace := m00 + m11 + m22
	var q Quaternion
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		q = Quaternion{
			W: 0.25 / s,
			X: (m21 - m12) * s,
			Y: (m02 - m20) * s,
			Z: (m10 - m01) * s,
		}
	case m00 > m11 && m00 > m22:
		s := 2.0 * math.Sqrt(1.0+m00-m11-m22)
		q = Quaternion{
			W: (m21 - m12) / s,
			X: 0.25 * s,
			Y: (m01 + m10) / s,
			Z: (m02 + m20) / s,
		}
	case m11 > m22:
		s := 2.0 * math.Sqrt(1.0+m11-m00-m22)
		q = Quaternion{
			W: (m02 - m20) / s,
			X: (m01 + m10) / s,
			Y: 0.25 * s,
			Z: (m12 + m21) / s,
		}
	default:
		s := 2.0 * math.Sqrt(1.0+m22-m00-m11)
		q = Quaternion{
			W: (m10 - m01) / s,
			X: (m02 + m20) / s,
			Y: (m12 + m21) / s,
			Z: 0.25 * s,
		}
	}

	return Transform{
		Translation: Vec3{X: m[12], Y: m[13], Z: m[14]},
		Rotation:    q.Normalize(),
	}
}

// AlmostEqual reports whether t and other are within eps in both
// translation and rotation (rotation compared via the q == -q-aware
// Quaternion.AlmostEqual).
func (t Transform) AlmostEqual(other Transform, eps float64) bool {
	return t.Translation.AlmostEqual(other.Translation, eps) && t.Rotation.AlmostEqual(other.Rotation, eps)
}
