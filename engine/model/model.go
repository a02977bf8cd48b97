package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
)

// ErrClipNotFound is returned when a model has no clip with the requested name.
var ErrClipNotFound = errors.New("model: clip not found")

// model is the implementation of the Model interface.
type model struct {
	name  string
	graph scene.Graph
	skins []scene.SkinMesh
	clips []*animation.AnimationClip
}

// Model defines the interface for a loaded animated asset.
// A Model owns the scene graph its clips and skin meshes refer to, so every Updater created
// from it evaluates against the same nodes.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Graph retrieves the scene graph holding the model's nodes.
	//
	// Returns:
	//   - scene.Graph: the graph
	Graph() scene.Graph

	// Skins retrieves the skin meshes bound to the graph.
	//
	// Returns:
	//   - []scene.SkinMesh: the skin meshes
	Skins() []scene.SkinMesh

	// Skin retrieves a skin mesh by name.
	//
	// Parameters:
	//   - name: the skin mesh name
	//
	// Returns:
	//   - scene.SkinMesh: the skin mesh, or nil if not found
	Skin(name string) scene.SkinMesh

	// Clips retrieves all animation clips bundled with this model.
	//
	// Returns:
	//   - []*animation.AnimationClip: the clips
	Clips() []*animation.AnimationClip

	// ClipCount returns the number of available clips.
	//
	// Returns:
	//   - int: the clip count
	ClipCount() int

	// ClipNames returns the names of all clips in load order.
	//
	// Returns:
	//   - []string: the clip names
	ClipNames() []string

	// Clip retrieves a clip by name.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - *animation.AnimationClip: the clip
	//   - error: ErrClipNotFound if no clip has that name
	Clip(name string) (*animation.AnimationClip, error)

	// NewUpdater creates an Updater for the named clip over the model's graph.
	//
	// Parameters:
	//   - clipName: the clip to evaluate
	//   - options: updater options
	//
	// Returns:
	//   - animation.Updater: the updater
	//   - error: ErrClipNotFound or an updater construction error
	NewUpdater(clipName string, options ...animation.UpdaterBuilderOption) (animation.Updater, error)
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// Without WithGraph the model gets an empty graph.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	if m.graph == nil {
		m.graph = scene.NewGraph(scene.WithName(m.name))
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Graph() scene.Graph {
	return m.graph
}

func (m *model) Skins() []scene.SkinMesh {
	return m.skins
}

func (m *model) Skin(name string) scene.SkinMesh {
	for _, s := range m.skins {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func (m *model) Clips() []*animation.AnimationClip {
	return m.clips
}

func (m *model) ClipCount() int {
	return len(m.clips)
}

func (m *model) ClipNames() []string {
	names := make([]string, len(m.clips))
	for i, c := range m.clips {
		names[i] = c.Name
	}
	return names
}

func (m *model) Clip(name string) (*animation.AnimationClip, error) {
	for _, c := range m.clips {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %q", ErrClipNotFound, name, m.name)
}

func (m *model) NewUpdater(clipName string, options ...animation.UpdaterBuilderOption) (animation.Updater, error) {
	c, err := m.Clip(clipName)
	if err != nil {
		return nil, err
	}
	return animation.NewUpdater(c, m.graph, options...)
}
