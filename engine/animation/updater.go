package animation

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// neverSampled marks previousElapsed before the first sample and after a reset.
const neverSampled = -math.MaxFloat32

var (
	// ErrNilClip is returned by NewUpdater when no clip is given.
	ErrNilClip = errors.New(prefix + "nil clip")

	// ErrNilGraph is returned by NewUpdater when no graph is given.
	ErrNilGraph = errors.New(prefix + "nil graph")

	// ErrBoneOutOfRange is returned by the manual-step operations for a bad track index.
	ErrBoneOutOfRange = errors.New(prefix + "bone index out of range")

	// ErrFrameOutOfRange is returned by the per-frame manual-step operations for a bad frame index.
	ErrFrameOutOfRange = errors.New(prefix + "frame index out of range")

	// ErrEmptyTrack is returned when a manual step targets a track without keyframes.
	ErrEmptyTrack = errors.New(prefix + "track has no keyframes")
)

// updater is the implementation of the Updater interface.
type updater struct {
	name       string
	clip       *AnimationClip
	graph      scene.Graph
	repeatMode RepeatMode
	pool       BoneMatrixPool
	debug      bool

	previousElapsed float32
	roots           []scene.NodeID
	changed         bool

	// manual pose overlay
	baseRotations      []mgl32.Quat
	frameRotations     map[PoseKey]mgl32.Quat
	composeRenormalize bool
}

// Updater evaluates one AnimationClip against a scene graph.
//
// Each call writes local matrices into the clip's nodes, refreshes world matrices for the
// clip's animation roots, and rebuilds the bone matrices of every affected skin mesh. An
// Updater is not safe for concurrent use, and nothing else may mutate the nodes it writes
// while one of its methods runs.
type Updater interface {
	// Name returns the updater name, which defaults to the clip name.
	Name() string

	// Clip returns the clip being evaluated.
	Clip() *AnimationClip

	// Graph returns the graph the clip's nodes live in.
	Graph() scene.Graph

	// StartTime returns the clip start time in seconds.
	StartTime() float32

	// EndTime returns the clip end time in seconds.
	EndTime() float32

	// RepeatMode returns the policy applied past the clip end.
	RepeatMode() RepeatMode

	// SetRepeatMode changes the policy applied past the clip end.
	SetRepeatMode(mode RepeatMode)

	// NodeCollection returns the clip's tracks. The returned slice must not be modified.
	NodeCollection() []NodeAnimation

	// AnimationRoots returns the top-most animated node of every disjoint animated subtree.
	AnimationRoots() []scene.NodeID

	// Changed reports whether node transforms were written since the last bone-matrix refresh.
	// Clips without skin meshes never refresh, so for them the flag stays set after the first write.
	Changed() bool

	// Update advances playback to timeStamp / frequency seconds.
	//
	// Times before the clip start are ignored. A time equal to the clip start resets the pose.
	// A time that maps to the previously sampled elapsed time does nothing. Times past the end
	// follow the RepeatMode. A non-positive frequency is ignored.
	//
	// Parameters:
	//   - timeStamp: the host clock reading in ticks
	//   - frequency: ticks per second
	Update(timeStamp, frequency int64)

	// Reset forces the pose to the clip start and forgets the previously sampled time.
	Reset()

	// UpdateOneStep rotates the baseline orientation of one track by an axis-angle delta and
	// writes the node's local matrix from the first keyframe's scale and translation.
	//
	// Parameters:
	//   - bone: the track index within NodeCollection
	//   - axis: the rotation axis; a zero-length axis rotates by nothing
	//   - degrees: the rotation angle in degrees
	//
	// Returns:
	//   - error: ErrBoneOutOfRange or ErrEmptyTrack
	UpdateOneStep(bone int, axis mgl32.Vec3, degrees float32) error

	// UpdateOneStepAtFrame rotates the stored orientation of one keyframe of one track and
	// writes the node's local matrix from that keyframe's scale and translation. The stored
	// orientation starts from the keyframe's own rotation on first use.
	//
	// Parameters:
	//   - bone: the track index within NodeCollection
	//   - frame: the keyframe index within the track
	//   - axis: the rotation axis; a zero-length axis rotates by nothing
	//   - degrees: the rotation angle in degrees
	//
	// Returns:
	//   - error: ErrBoneOutOfRange or ErrFrameOutOfRange
	UpdateOneStepAtFrame(bone, frame int, axis mgl32.Vec3, degrees float32) error

	// UpdateOneStepCompose post-multiplies an axis-angle rotation onto the node's current
	// local matrix (Local.Mul4(R), so R acts in the node's own frame before its transform).
	// No baseline is kept, so repeated calls accumulate floating-point error unless
	// renormalization is enabled (the default). Results with non-uniform scale are never
	// renormalized.
	//
	// Parameters:
	//   - bone: the track index within NodeCollection
	//   - axis: the rotation axis; a zero-length axis rotates by nothing
	//   - degrees: the rotation angle in degrees
	//
	// Returns:
	//   - error: ErrBoneOutOfRange
	UpdateOneStepCompose(bone int, axis mgl32.Vec3, degrees float32) error

	// PoseOverrides returns a copy of the per-keyframe orientations set by
	// UpdateOneStepAtFrame and SetPoseOverride.
	PoseOverrides() map[PoseKey]mgl32.Quat

	// SetPoseOverride installs a per-keyframe orientation directly and applies it to the node,
	// as if UpdateOneStepAtFrame had produced it.
	//
	// Parameters:
	//   - key: the (track, keyframe) pair
	//   - q: the orientation, normalized before use
	//
	// Returns:
	//   - error: ErrBoneOutOfRange or ErrFrameOutOfRange
	SetPoseOverride(key PoseKey, q mgl32.Quat) error
}

var _ Updater = &updater{}

// NewUpdater creates an Updater for clip over graph and derives its animation roots.
//
// Parameters:
//   - clip: the clip to evaluate
//   - graph: the graph holding the clip's nodes
//   - options: a variadic list of UpdaterBuilderOption functions
//
// Returns:
//   - Updater: the new updater
//   - error: ErrNilClip, ErrNilGraph, a clip validation error, or scene.ErrInvalidNode when a
//     track or skin mesh refers to a node missing from graph
func NewUpdater(clip *AnimationClip, graph scene.Graph, options ...UpdaterBuilderOption) (Updater, error) {
	if clip == nil {
		return nil, ErrNilClip
	}
	if graph == nil {
		return nil, ErrNilGraph
	}
	if err := clip.Validate(); err != nil {
		return nil, err
	}
	for i, na := range clip.NodeAnimations {
		if !graph.Valid(na.Node) {
			return nil, fmt.Errorf("clip %q track %d: %w", clip.Name, i, scene.ErrInvalidNode)
		}
	}
	for _, m := range clip.BoneSkinMeshes {
		if err := m.Validate(graph); err != nil {
			return nil, fmt.Errorf("clip %q: %w", clip.Name, err)
		}
	}

	u := &updater{
		clip:               clip,
		graph:              graph,
		repeatMode:         Loop,
		pool:               NewAllocatingPool(),
		previousElapsed:    neverSampled,
		frameRotations:     make(map[PoseKey]mgl32.Quat),
		composeRenormalize: true,
	}
	for _, opt := range options {
		opt(u)
	}
	u.name = common.Coalesce(u.name, clip.Name)

	u.roots = createAnimationRoots(graph, clip.NodeAnimations)
	u.baseRotations = make([]mgl32.Quat, len(clip.NodeAnimations))
	for i, na := range clip.NodeAnimations {
		u.baseRotations[i] = mgl32.QuatIdent()
		if len(na.KeyFrames) > 0 {
			u.baseRotations[i] = na.KeyFrames[0].Rotation
		}
	}
	return u, nil
}

func (u *updater) Name() string {
	return u.name
}

func (u *updater) Clip() *AnimationClip {
	return u.clip
}

func (u *updater) Graph() scene.Graph {
	return u.graph
}

func (u *updater) StartTime() float32 {
	return u.clip.StartTime
}

func (u *updater) EndTime() float32 {
	return u.clip.EndTime
}

func (u *updater) RepeatMode() RepeatMode {
	return u.repeatMode
}

func (u *updater) SetRepeatMode(mode RepeatMode) {
	u.repeatMode = mode
}

func (u *updater) NodeCollection() []NodeAnimation {
	return u.clip.NodeAnimations
}

func (u *updater) AnimationRoots() []scene.NodeID {
	return u.roots
}

func (u *updater) Changed() bool {
	return u.changed
}

func (u *updater) Update(timeStamp, frequency int64) {
	if frequency <= 0 {
		return
	}
	timeSec := float32(float64(timeStamp) / float64(frequency))
	start, end := u.clip.StartTime, u.clip.EndTime

	if timeSec < start {
		return
	}
	if timeSec == start {
		u.setToStart()
		return
	}
	if start == end {
		return
	}

	elapsed := timeSec - start
	if elapsed == u.previousElapsed {
		return
	}

	// Compared against the end time itself, not the duration.
	if elapsed > end {
		switch u.repeatMode {
		case PlayOnce:
			u.setToStart()
			return
		case PlayOnceHold:
			elapsed = end
		default:
			elapsed = float32(math.Mod(float64(elapsed), float64(end-start))) + start
		}
	}

	u.previousElapsed = elapsed
	u.updateNodes(elapsed)
	u.updateBoneSkinMesh()
}

func (u *updater) Reset() {
	u.setToStart()
}

func (u *updater) setToStart() {
	u.previousElapsed = neverSampled
	u.updateNodes(0)
	u.updateBoneSkinMesh()
}

// updateNodes samples every track at t and writes the result into its node.
// A track sampled before its first keyframe resets the node to identity.
func (u *updater) updateNodes(t float32) {
	for i := range u.clip.NodeAnimations {
		na := &u.clip.NodeAnimations[i]
		frames := na.KeyFrames

		idx := FindKeyFrame(frames, t)
		if idx < 0 {
			u.graph.SetLocal(na.Node, mgl32.Ident4())
			continue
		}
		if u.debug {
			u.assertBracket(i, frames, idx, t)
		}
		u.graph.SetLocal(na.Node, sampleAt(frames, idx, t))
	}
	u.changed = true
}

// assertBracket panics when the track is out of order or frames[idx] and frames[idx+1]
// do not bracket t.
func (u *updater) assertBracket(track int, frames []KeyFrame, idx int, t float32) {
	if j := sortedKeyFrames(frames); j >= 0 {
		panic(fmt.Sprintf("animation: clip %q track %d frame %d: time %v before previous frame %v",
			u.clip.Name, track, j, frames[j].Time, frames[j-1].Time))
	}
	if frames[idx].Time > t {
		panic(fmt.Sprintf("animation: clip %q track %d frame %d: time %v after query %v",
			u.clip.Name, track, idx, frames[idx].Time, t))
	}
	if idx+1 < len(frames) && frames[idx+1].Time < t {
		panic(fmt.Sprintf("animation: clip %q track %d frame %d: time %v before query %v",
			u.clip.Name, track, idx+1, frames[idx+1].Time, t))
	}
}

// updateBoneSkinMesh propagates world matrices from every animation root and rebuilds the
// bone matrices of every renderable, ungrouped skin mesh. It only runs when node transforms
// changed since the last refresh.
func (u *updater) updateBoneSkinMesh() {
	if !u.clip.HasBoneSkinMeshes() || !u.changed {
		return
	}

	for _, r := range u.roots {
		u.graph.UpdateAllTransformMatrix(r)
	}

	for _, m := range u.clip.BoneSkinMeshes {
		// Grouped meshes are refreshed through their group.
		if !m.Renderable() || m.HasBoneGroup() {
			continue
		}
		inv := m.TotalModelMatrix(u.graph).Inv()
		bones := m.Bones()
		matrices := u.pool.Acquire(len(bones))
		for i := range bones {
			matrices[i] = boneMatrix(inv, u.graph.World(bones[i].Node), bones[i].InverseBind)
		}
		u.pool.Release(m.SwapBoneMatrices(matrices))
	}
	u.changed = false
}

// boneMatrix maps a mesh-space vertex into the bone's bind space, through the bone's world
// transform, and back into mesh space.
func boneMatrix(meshWorldInv, boneWorld, inverseBind mgl32.Mat4) mgl32.Mat4 {
	return meshWorldInv.Mul4(boneWorld).Mul4(inverseBind)
}

// createAnimationRoots returns, in track order, the top-most animated ancestor of every
// animated node: a node is a root when its parent is missing or not animated by the clip.
func createAnimationRoots(g scene.Graph, tracks []NodeAnimation) []scene.NodeID {
	animated := make(map[scene.NodeID]struct{}, len(tracks))
	for _, na := range tracks {
		animated[na.Node] = struct{}{}
	}

	seen := make(map[scene.NodeID]struct{})
	var roots []scene.NodeID
	for _, na := range tracks {
		top := na.Node
		g.TraverseUp(na.Node, func(n scene.NodeID) bool {
			if _, ok := animated[n]; !ok {
				return false
			}
			top = n
			return true
		})
		if _, ok := seen[top]; !ok {
			seen[top] = struct{}{}
			roots = append(roots, top)
		}
	}
	return roots
}
