package animation

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
)

const prefix = "animation: "

var (
	// ErrTimeRange is returned when a clip's start time is after its end time.
	ErrTimeRange = errors.New(prefix + "start time after end time")

	// ErrUnsortedTrack is returned when a track's keyframes are not in ascending time order.
	ErrUnsortedTrack = errors.New(prefix + "keyframes not sorted by time")

	// ErrNilNode is returned when a track is bound to the Nil node handle.
	ErrNilNode = errors.New(prefix + "track bound to nil node")

	// ErrRepeatMode is returned for an unrecognized repeat mode name.
	ErrRepeatMode = errors.New(prefix + "unknown repeat mode")
)

// NodeAnimation binds a keyframe track to a scene node. Node is a non-owning handle: the
// graph owns the node and may outlive or be outlived by the clip.
type NodeAnimation struct {
	Node      scene.NodeID
	KeyFrames []KeyFrame
}

// AnimationClip is a named, time-bounded set of node tracks and the skin meshes whose bone
// matrices depend on them. A clip whose start and end times are equal is a static pose.
type AnimationClip struct {
	Name           string
	StartTime      float32
	EndTime        float32
	NodeAnimations []NodeAnimation
	BoneSkinMeshes []scene.SkinMesh
}

// NewAnimationClip creates a clip and validates it. Without WithTimeRange the time range
// spans the earliest and latest keyframe of all tracks.
//
// Parameters:
//   - name: the clip name
//   - options: a variadic list of AnimationClipBuilderOption functions
//
// Returns:
//   - *AnimationClip: the new clip
//   - error: a validation error
func NewAnimationClip(name string, options ...AnimationClipBuilderOption) (*AnimationClip, error) {
	b := &clipBuilder{clip: &AnimationClip{Name: name}}
	for _, opt := range options {
		opt(b)
	}
	if !b.timeRangeSet {
		b.clip.StartTime, b.clip.EndTime = trackTimeRange(b.clip.NodeAnimations)
	}
	if err := b.clip.Validate(); err != nil {
		return nil, err
	}
	return b.clip, nil
}

// HasBoneSkinMeshes reports whether the clip drives any skin mesh.
func (c *AnimationClip) HasBoneSkinMeshes() bool {
	return len(c.BoneSkinMeshes) > 0
}

// Duration returns EndTime - StartTime.
func (c *AnimationClip) Duration() float32 {
	return c.EndTime - c.StartTime
}

// Validate checks the clip's time range and tracks.
func (c *AnimationClip) Validate() error {
	if c.StartTime > c.EndTime {
		return fmt.Errorf("clip %q [%v, %v]: %w", c.Name, c.StartTime, c.EndTime, ErrTimeRange)
	}
	for i, na := range c.NodeAnimations {
		if na.Node == scene.Nil {
			return fmt.Errorf("clip %q track %d: %w", c.Name, i, ErrNilNode)
		}
		if j := sortedKeyFrames(na.KeyFrames); j >= 0 {
			return fmt.Errorf("clip %q track %d frame %d: %w", c.Name, i, j, ErrUnsortedTrack)
		}
	}
	return nil
}

// trackTimeRange returns the earliest and latest keyframe times across tracks, or (0, 0)
// when no track has keyframes.
func trackTimeRange(tracks []NodeAnimation) (float32, float32) {
	start, end := float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, na := range tracks {
		if len(na.KeyFrames) == 0 {
			continue
		}
		start = min(start, na.KeyFrames[0].Time)
		end = max(end, na.KeyFrames[len(na.KeyFrames)-1].Time)
	}
	if start > end {
		return 0, 0
	}
	return start, end
}
