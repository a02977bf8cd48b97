package animation

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/go-gl/mathgl/mgl32"
)

// KeyFrame is one time-stamped pose sample of a track.
type KeyFrame struct {
	Time        float32
	Scale       mgl32.Vec3
	Rotation    mgl32.Quat
	Translation mgl32.Vec3
}

// NewKeyFrame returns a KeyFrame with unit scale and identity rotation at time t.
func NewKeyFrame(t float32) KeyFrame {
	return KeyFrame{
		Time:     t,
		Scale:    mgl32.Vec3{1, 1, 1},
		Rotation: mgl32.QuatIdent(),
	}
}

// Matrix returns the keyframe's local transform: scale, then rotation, then translation.
func (k KeyFrame) Matrix() mgl32.Mat4 {
	return common.ComposeSRT(k.Scale, k.Rotation, k.Translation)
}

// FindKeyFrame locates the last keyframe whose time is at or before t.
// frames must be sorted by ascending time.
//
// Parameters:
//   - frames: the track
//   - t: clip-local query time
//
// Returns:
//   - int: the index of the frame, or -1 when t precedes the first frame or the track is empty
func FindKeyFrame(frames []KeyFrame, t float32) int {
	// First index with Time > t, minus one.
	return sort.Search(len(frames), func(i int) bool {
		return frames[i].Time > t
	}) - 1
}

// Sample evaluates a track at time t.
//
// Before the first frame the track has no valid pose and Sample returns identity and false.
// At or past the last frame, or on a single-frame track, the frame at idx is returned verbatim.
// Between two frames, scale and translation are linearly interpolated and rotation is
// spherically interpolated along the shortest path. A zero-length interval snaps to the
// earlier frame.
//
// Parameters:
//   - frames: the track, sorted by ascending time
//   - t: clip-local query time
//
// Returns:
//   - mgl32.Mat4: the local transform
//   - bool: false if t precedes the first frame
func Sample(frames []KeyFrame, t float32) (mgl32.Mat4, bool) {
	idx := FindKeyFrame(frames, t)
	if idx < 0 {
		return mgl32.Ident4(), false
	}
	return sampleAt(frames, idx, t), true
}

// sampleAt evaluates frames at t given idx from FindKeyFrame.
func sampleAt(frames []KeyFrame, idx int, t float32) mgl32.Mat4 {
	cur := &frames[idx]
	if len(frames) == 1 || idx == len(frames)-1 {
		return cur.Matrix()
	}
	next := &frames[idx+1]

	amount := interpolationAmount(cur.Time, next.Time, t)
	if amount == 0 {
		return cur.Matrix()
	}
	return common.ComposeSRT(
		lerp3(cur.Scale, next.Scale, amount),
		mgl32.QuatSlerp(cur.Rotation, next.Rotation, amount),
		lerp3(cur.Translation, next.Translation, amount),
	)
}

// interpolationAmount maps t into [0, 1] across the interval [t0, t1].
// Equal timestamps yield 0.
func interpolationAmount(t0, t1, t float32) float32 {
	length := t1 - t0
	if length <= 0 {
		return 0
	}
	return (t - t0) / length
}

func lerp3(a, b mgl32.Vec3, amount float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(amount))
}

// sortedKeyFrames reports the index of the first frame that is earlier than its predecessor,
// or -1 when frames are in ascending order.
func sortedKeyFrames(frames []KeyFrame) int {
	for i := 1; i < len(frames); i++ {
		if frames[i].Time < frames[i-1].Time {
			return i
		}
	}
	return -1
}
