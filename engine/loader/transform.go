package loader

import (
	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
)

// restTRS returns a node's rest scale, rotation and translation from either an explicit
// matrix, which is decomposed, or optional TRS components. Absent components take their
// identity value. Rotation is x, y, z, w and is normalized.
func restTRS(matrix *[16]float32, scale *[3]float32, rotation *[4]float32, translation *[3]float32) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	if matrix != nil {
		return common.DecomposeSRT(mgl32.Mat4(*matrix))
	}

	s, r, t := mgl32.Vec3{1, 1, 1}, mgl32.QuatIdent(), mgl32.Vec3{}
	if scale != nil {
		s = mgl32.Vec3(*scale)
	}
	if rotation != nil {
		r = common.QuatFromXYZW(*rotation).Normalize()
	}
	if translation != nil {
		t = mgl32.Vec3(*translation)
	}
	return s, r, t
}

// restMatrix returns a node's local matrix, using an explicit matrix verbatim.
func restMatrix(matrix *[16]float32, scale *[3]float32, rotation *[4]float32, translation *[3]float32) mgl32.Mat4 {
	if matrix != nil {
		return mgl32.Mat4(*matrix)
	}
	s, r, t := restTRS(nil, scale, rotation, translation)
	return common.ComposeSRT(s, r, t)
}
