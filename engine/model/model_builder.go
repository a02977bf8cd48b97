package model

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithGraph is an option builder that sets the scene graph of the Model.
//
// Parameters:
//   - graph: the graph holding the model's nodes
//
// Returns:
//   - ModelBuilderOption: a function that applies the graph option to a model
func WithGraph(graph scene.Graph) ModelBuilderOption {
	return func(m *model) {
		m.graph = graph
	}
}

// WithSkins is an option builder that sets the skin meshes of the Model.
//
// Parameters:
//   - skins: the skin meshes to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the skins option to a model
func WithSkins(skins []scene.SkinMesh) ModelBuilderOption {
	return func(m *model) {
		m.skins = skins
	}
}

// WithClips is an option builder that sets the animation clips of the Model.
//
// Parameters:
//   - clips: the animation clips to set
//
// Returns:
//   - ModelBuilderOption: a function that applies the clips option to a model
func WithClips(clips []*animation.AnimationClip) ModelBuilderOption {
	return func(m *model) {
		m.clips = clips
	}
}
