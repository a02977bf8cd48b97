package animation

import (
	"fmt"
	"maps"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
)

// PoseKey addresses one keyframe of one track in the manual pose overlay.
type PoseKey struct {
	Bone  int
	Frame int
}

// CreateFromAxisAngle returns the unit quaternion rotating by degrees around axis.
// The axis is normalized first. A zero-length or non-finite axis yields the identity.
//
// Parameters:
//   - axis: the rotation axis, any non-zero length
//   - degrees: the rotation angle in degrees
//
// Returns:
//   - mgl32.Quat: the rotation
func CreateFromAxisAngle(axis mgl32.Vec3, degrees float32) mgl32.Quat {
	l := axis.Len()
	if l == 0 || !common.IsFinite3(axis) || math.IsInf(float64(l), 0) {
		return mgl32.QuatIdent()
	}
	axis = axis.Mul(1 / l)

	half := float64(mgl32.DegToRad(degrees)) / 2
	s, c := math.Sincos(half)
	return mgl32.Quat{W: float32(c), V: axis.Mul(float32(s))}
}

func (u *updater) UpdateOneStep(bone int, axis mgl32.Vec3, degrees float32) error {
	if bone < 0 || bone >= len(u.clip.NodeAnimations) {
		return fmt.Errorf("%w: %d", ErrBoneOutOfRange, bone)
	}
	na := &u.clip.NodeAnimations[bone]
	if len(na.KeyFrames) == 0 {
		return fmt.Errorf("track %d: %w", bone, ErrEmptyTrack)
	}

	q := CreateFromAxisAngle(axis, degrees).Mul(u.baseRotations[bone]).Normalize()
	u.baseRotations[bone] = q

	f0 := &na.KeyFrames[0]
	u.graph.SetLocal(na.Node, common.ComposeSRT(f0.Scale, q, f0.Translation))
	u.changed = true
	u.updateBoneSkinMesh()
	return nil
}

func (u *updater) UpdateOneStepAtFrame(bone, frame int, axis mgl32.Vec3, degrees float32) error {
	key := PoseKey{Bone: bone, Frame: frame}
	if err := u.checkPoseKey(key); err != nil {
		return err
	}

	q, ok := u.frameRotations[key]
	if !ok {
		q = u.clip.NodeAnimations[bone].KeyFrames[frame].Rotation
	}
	u.applyPoseOverride(key, CreateFromAxisAngle(axis, degrees).Mul(q).Normalize())
	return nil
}

func (u *updater) UpdateOneStepCompose(bone int, axis mgl32.Vec3, degrees float32) error {
	if bone < 0 || bone >= len(u.clip.NodeAnimations) {
		return fmt.Errorf("%w: %d", ErrBoneOutOfRange, bone)
	}
	node := u.clip.NodeAnimations[bone].Node

	m := u.graph.Local(node).Mul4(CreateFromAxisAngle(axis, degrees).Mat4())
	// Only a uniformly scaled result is free of shear, so only then does the TRS round trip
	// keep the pose. Other results are stored as composed.
	if u.composeRenormalize {
		if s, r, t := common.DecomposeSRT(m); uniformScale(s) {
			m = common.ComposeSRT(s, r, t)
		}
	}
	u.graph.SetLocal(node, m)
	u.changed = true
	u.updateBoneSkinMesh()
	return nil
}

func uniformScale(s mgl32.Vec3) bool {
	lo := min(s[0], s[1], s[2])
	hi := max(s[0], s[1], s[2])
	return hi-lo <= 1e-4*hi
}

func (u *updater) PoseOverrides() map[PoseKey]mgl32.Quat {
	return maps.Clone(u.frameRotations)
}

func (u *updater) SetPoseOverride(key PoseKey, q mgl32.Quat) error {
	if err := u.checkPoseKey(key); err != nil {
		return err
	}
	u.applyPoseOverride(key, q.Normalize())
	return nil
}

// applyPoseOverride stores q for key and writes the keyframe's pose with it.
func (u *updater) applyPoseOverride(key PoseKey, q mgl32.Quat) {
	u.frameRotations[key] = q

	na := &u.clip.NodeAnimations[key.Bone]
	f := &na.KeyFrames[key.Frame]
	u.graph.SetLocal(na.Node, common.ComposeSRT(f.Scale, q, f.Translation))
	u.changed = true
	u.updateBoneSkinMesh()
}

func (u *updater) checkPoseKey(key PoseKey) error {
	if key.Bone < 0 || key.Bone >= len(u.clip.NodeAnimations) {
		return fmt.Errorf("%w: %d", ErrBoneOutOfRange, key.Bone)
	}
	if n := len(u.clip.NodeAnimations[key.Bone].KeyFrames); key.Frame < 0 || key.Frame >= n {
		return fmt.Errorf("%w: track %d frame %d of %d", ErrFrameOutOfRange, key.Bone, key.Frame, n)
	}
	return nil
}
