package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// minScale is the smallest axis scale DecomposeSRT will divide by.
const minScale = 1e-6

// ComposeSRT builds a local transform that applies scale first, then rotation, then translation.
// In mgl32's column-vector convention this is T * R * S.
//
// Parameters:
//   - scale: per-axis scale
//   - rot: rotation quaternion (expected to be unit length)
//   - trans: translation
//
// Returns:
//   - mgl32.Mat4: the composed column-major matrix
func ComposeSRT(scale mgl32.Vec3, rot mgl32.Quat, trans mgl32.Vec3) mgl32.Mat4 {
	m := rot.Mat4()

	// Scaling the columns of R is R * S.
	for c := 0; c < 3; c++ {
		s := scale[c]
		m[c*4+0] *= s
		m[c*4+1] *= s
		m[c*4+2] *= s
	}

	m[12], m[13], m[14] = trans[0], trans[1], trans[2]
	return m
}

// DecomposeSRT splits an affine matrix without shear into scale, rotation and translation.
// Axes with a near-zero scale are treated as unit length when extracting rotation.
//
// Parameters:
//   - m: the column-major matrix to decompose
//
// Returns:
//   - mgl32.Vec3: per-axis scale
//   - mgl32.Quat: normalized rotation
//   - mgl32.Vec3: translation
func DecomposeSRT(m mgl32.Mat4) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	trans := mgl32.Vec3{m[12], m[13], m[14]}

	var scale mgl32.Vec3
	var rot mgl32.Mat4
	for c := 0; c < 3; c++ {
		col := mgl32.Vec3{m[c*4+0], m[c*4+1], m[c*4+2]}
		l := col.Len()
		scale[c] = l
		if l < minScale {
			l = 1
		}
		rot[c*4+0] = col[0] / l
		rot[c*4+1] = col[1] / l
		rot[c*4+2] = col[2] / l
	}
	rot[15] = 1

	return scale, mgl32.Mat4ToQuat(rot).Normalize(), trans
}

// FlattenMat4s packs matrices into a contiguous column-major float slice suitable for a
// storage-buffer upload. dst is reused when it has enough capacity.
//
// Parameters:
//   - dst: destination slice to reuse, may be nil
//   - ms: matrices to pack
//
// Returns:
//   - []float32: the packed data, 16 floats per matrix
func FlattenMat4s(dst []float32, ms []mgl32.Mat4) []float32 {
	n := len(ms) * 16
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i := range ms {
		copy(dst[i*16:i*16+16], ms[i][:])
	}
	return dst
}

// QuatFromXYZW converts an (x, y, z, w) array, as stored by glTF and the rig files, into a quaternion.
func QuatFromXYZW(v [4]float32) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

// QuatToXYZW converts a quaternion into an (x, y, z, w) array.
func QuatToXYZW(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// IsFinite3 reports whether every component of v is a finite number.
func IsFinite3(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
