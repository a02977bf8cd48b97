package animation

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
)

// clipBuilder carries construction-only state for NewAnimationClip.
type clipBuilder struct {
	clip         *AnimationClip
	timeRangeSet bool
}

// AnimationClipBuilderOption is a functional option for configuring an AnimationClip via
// NewAnimationClip.
type AnimationClipBuilderOption func(*clipBuilder)

// WithTimeRange is an option builder that sets the clip's start and end times explicitly.
//
// Parameters:
//   - start: clip start time in seconds
//   - end: clip end time in seconds
//
// Returns:
//   - AnimationClipBuilderOption: a function that applies the time range to a clip
func WithTimeRange(start, end float32) AnimationClipBuilderOption {
	return func(b *clipBuilder) {
		b.clip.StartTime = start
		b.clip.EndTime = end
		b.timeRangeSet = true
	}
}

// WithNodeAnimation is an option builder that appends a track for node.
// The keyframes are copied.
//
// Parameters:
//   - node: the animated node
//   - frames: the track's keyframes in ascending time order
//
// Returns:
//   - AnimationClipBuilderOption: a function that appends the track to a clip
func WithNodeAnimation(node scene.NodeID, frames ...KeyFrame) AnimationClipBuilderOption {
	return func(b *clipBuilder) {
		b.clip.NodeAnimations = append(b.clip.NodeAnimations, NodeAnimation{
			Node:      node,
			KeyFrames: append([]KeyFrame(nil), frames...),
		})
	}
}

// WithSkinMesh is an option builder that registers skin meshes driven by the clip.
//
// Parameters:
//   - meshes: the skin meshes
//
// Returns:
//   - AnimationClipBuilderOption: a function that appends the meshes to a clip
func WithSkinMesh(meshes ...scene.SkinMesh) AnimationClipBuilderOption {
	return func(b *clipBuilder) {
		b.clip.BoneSkinMeshes = append(b.clip.BoneSkinMeshes, meshes...)
	}
}
