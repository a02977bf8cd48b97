package loader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser  gltfParser
	nodeIDs []scene.NodeID
	skins   []scene.SkinMesh
}

// gltfAnimationExtractor turns glTF animations into animation clips over the imported graph.
//
// glTF keys translation, rotation and scale on independent timelines. A clip keyframe holds
// all three, so each node's channels are merged over the union of their timestamps, sampling
// each channel at timestamps it does not define.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - *animation.AnimationClip: the clip, with one track per animated node
	//   - error: error if extraction fails
	ExtractAnimation(animIndex int) (*animation.AnimationClip, error)

	// ExtractAllAnimations extracts every animation from the document.
	//
	// Returns:
	//   - []*animation.AnimationClip: all extracted clips in document order
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]*animation.AnimationClip, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - nodeIDs: the graph handle of every glTF node
//   - skins: the extracted skins, indexed like the document's skins
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser, nodeIDs []scene.NodeID, skins []scene.SkinMesh) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser, nodeIDs: nodeIDs, skins: skins}
}

// gltfVec3Channel and gltfQuatChannel hold one sampler's keys. step selects STEP
// interpolation.
type gltfVec3Channel struct {
	times  []float32
	values []mgl32.Vec3
	step   bool
}

type gltfQuatChannel struct {
	times  []float32
	values []mgl32.Quat
	step   bool
}

// gltfNodeChannels collects the channels targeting one node.
type gltfNodeChannels struct {
	node        int
	translation *gltfVec3Channel
	rotation    *gltfQuatChannel
	scale       *gltfVec3Channel
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]*animation.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	clips := make([]*animation.AnimationClip, len(doc.Animations))
	for i := range doc.Animations {
		clip, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		clips[i] = clip
	}
	return clips, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (*animation.AnimationClip, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation index %d out of range", animIndex)
	}
	anim := &doc.Animations[animIndex]

	name := common.IndexedName(anim.Name, "animation", animIndex)

	// Channels grouped by node, in order of first appearance.
	var groups []*gltfNodeChannels
	byNode := make(map[int]*gltfNodeChannels)

	for i := range anim.Channels {
		ch := &anim.Channels[i]

		// Morph target weights and node-less channels do not drive transforms.
		if ch.Target.Node == nil || ch.Target.Path == gltfAnimPathWeights {
			continue
		}
		nodeIndex := *ch.Target.Node
		if nodeIndex < 0 || nodeIndex >= len(e.nodeIDs) {
			return nil, fmt.Errorf("animation %q channel %d: invalid target node %d", name, i, nodeIndex)
		}
		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d: invalid sampler index %d", name, i, ch.Sampler)
		}
		sampler := &anim.Samplers[ch.Sampler]

		times, err := e.parser.ReadScalarAccessor(sampler.Input)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: failed to read timestamps: %w", name, i, err)
		}
		if !slices.IsSorted(times) {
			return nil, fmt.Errorf("animation %q channel %d: timestamps not ascending", name, i)
		}
		if len(times) == 0 {
			continue
		}

		g, ok := byNode[nodeIndex]
		if !ok {
			g = &gltfNodeChannels{node: nodeIndex}
			byNode[nodeIndex] = g
			groups = append(groups, g)
		}

		step := strings.EqualFold(sampler.Interpolation, "STEP")
		cubic := sampler.Interpolation == gltfAnimInterpolationCubicSpline

		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathScale:
			raw, err := e.parser.ReadVec3Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read %s values: %w", name, i, ch.Target.Path, err)
			}
			values, err := gltfKeyValues(raw, len(times), cubic)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", name, i, err)
			}
			c := &gltfVec3Channel{times: times, values: make([]mgl32.Vec3, len(values)), step: step}
			for j, v := range values {
				c.values[j] = mgl32.Vec3(v)
			}
			if ch.Target.Path == gltfAnimPathTranslation {
				g.translation = c
			} else {
				g.scale = c
			}

		case gltfAnimPathRotation:
			raw, err := e.parser.ReadVec4Accessor(sampler.Output)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: failed to read rotation values: %w", name, i, err)
			}
			values, err := gltfKeyValues(raw, len(times), cubic)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", name, i, err)
			}
			c := &gltfQuatChannel{times: times, values: make([]mgl32.Quat, len(values)), step: step}
			for j, v := range values {
				c.values[j] = common.QuatFromXYZW(v).Normalize()
			}
			g.rotation = c

		default:
			return nil, fmt.Errorf("animation %q channel %d: unknown target path %q", name, i, ch.Target.Path)
		}
	}

	options := make([]animation.AnimationClipBuilderOption, 0, len(groups)+1)
	animated := make(map[scene.NodeID]struct{}, len(groups))
	for _, g := range groups {
		frames := e.mergeChannels(&doc.Nodes[g.node], g)
		options = append(options, animation.WithNodeAnimation(e.nodeIDs[g.node], frames...))
		animated[e.nodeIDs[g.node]] = struct{}{}
	}

	// A skin belongs to the clip when any of its joints is animated.
	var meshes []scene.SkinMesh
	for _, s := range e.skins {
		for _, b := range s.Bones() {
			if _, ok := animated[b.Node]; ok {
				meshes = append(meshes, s)
				break
			}
		}
	}
	if len(meshes) > 0 {
		options = append(options, animation.WithSkinMesh(meshes...))
	}

	clip, err := animation.NewAnimationClip(name, options...)
	if err != nil {
		return nil, fmt.Errorf("animation %q: %w", name, err)
	}
	return clip, nil
}

// mergeChannels builds one keyframe per distinct timestamp across the node's channels.
// A component without a channel keeps the node's rest value.
func (e *gltfAnimationExtractorImpl) mergeChannels(node *gltfNode, g *gltfNodeChannels) []animation.KeyFrame {
	var times []float32
	if g.translation != nil {
		times = append(times, g.translation.times...)
	}
	if g.rotation != nil {
		times = append(times, g.rotation.times...)
	}
	if g.scale != nil {
		times = append(times, g.scale.times...)
	}
	slices.Sort(times)
	times = slices.Compact(times)

	restScale, restRotation, restTranslation := gltfNodeTRS(node)

	frames := make([]animation.KeyFrame, len(times))
	for i, t := range times {
		f := animation.KeyFrame{
			Time:        t,
			Scale:       restScale,
			Rotation:    restRotation,
			Translation: restTranslation,
		}
		if g.translation != nil {
			f.Translation = g.translation.sample(t)
		}
		if g.rotation != nil {
			f.Rotation = g.rotation.sample(t)
		}
		if g.scale != nil {
			f.Scale = g.scale.sample(t)
		}
		frames[i] = f
	}
	return frames
}

// gltfBracket returns the key index at or before t and the blend toward the next key.
// Times outside the channel clamp to its first or last key.
func gltfBracket(times []float32, t float32, step bool) (int, float32) {
	i, found := slices.BinarySearch(times, t)
	switch {
	case found:
		return i, 0
	case i == 0:
		return 0, 0
	case i >= len(times):
		return len(times) - 1, 0
	}
	if step {
		return i - 1, 0
	}
	t0, t1 := times[i-1], times[i]
	return i - 1, (t - t0) / (t1 - t0)
}

func (c *gltfVec3Channel) sample(t float32) mgl32.Vec3 {
	i, amount := gltfBracket(c.times, t, c.step)
	if amount == 0 {
		return c.values[i]
	}
	a, b := c.values[i], c.values[i+1]
	return a.Add(b.Sub(a).Mul(amount))
}

func (c *gltfQuatChannel) sample(t float32) mgl32.Quat {
	i, amount := gltfBracket(c.times, t, c.step)
	if amount == 0 {
		return c.values[i]
	}
	return mgl32.QuatSlerp(c.values[i], c.values[i+1], amount)
}

// gltfKeyValues checks an output accessor against its key count. CUBICSPLINE outputs store
// (in-tangent, value, out-tangent) triplets; only the values are kept.
func gltfKeyValues[T any](raw []T, keys int, cubic bool) ([]T, error) {
	if cubic {
		if len(raw) < 3*keys {
			return nil, fmt.Errorf("%d cubic spline outputs for %d keys", len(raw), keys)
		}
		values := make([]T, keys)
		for i := range values {
			values[i] = raw[3*i+1]
		}
		return values, nil
	}
	if len(raw) < keys {
		return nil, fmt.Errorf("%d outputs for %d keys", len(raw), keys)
	}
	return raw[:keys], nil
}
