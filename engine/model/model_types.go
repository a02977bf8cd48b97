package model

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
)

// ImportedModel is the CPU-side result of a loader backend, before the Loader validates it
// and wraps it in a Model.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Graph holds every node of the asset.
	Graph scene.Graph

	// Skins are the skin meshes bound to nodes of Graph.
	Skins []scene.SkinMesh

	// Clips are the animations targeting nodes of Graph.
	Clips []*animation.AnimationClip
}
