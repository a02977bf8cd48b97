package scene

// SkinMeshBuilderOption is a functional option for configuring a SkinMesh via NewSkinMesh.
type SkinMeshBuilderOption func(*skinMesh)

// WithNode is an option builder that attaches the mesh to a graph node.
//
// Parameters:
//   - n: the node carrying the mesh
//
// Returns:
//   - SkinMeshBuilderOption: a function that applies the node option to a skin mesh
func WithNode(n NodeID) SkinMeshBuilderOption {
	return func(m *skinMesh) {
		m.node = n
	}
}

// WithBones is an option builder that sets the mesh's ordered bone list.
// The slice is copied.
//
// Parameters:
//   - bones: the bones in skinning order
//
// Returns:
//   - SkinMeshBuilderOption: a function that applies the bones option to a skin mesh
func WithBones(bones ...Bone) SkinMeshBuilderOption {
	return func(m *skinMesh) {
		m.bones = append([]Bone(nil), bones...)
	}
}

// WithBoneGroup is an option builder that marks the mesh as a member of a bone group.
//
// Parameters:
//   - grouped: true if an enclosing group owns the bone matrices
//
// Returns:
//   - SkinMeshBuilderOption: a function that applies the bone group option to a skin mesh
func WithBoneGroup(grouped bool) SkinMeshBuilderOption {
	return func(m *skinMesh) {
		m.boneGroup = grouped
	}
}

// WithRenderable is an option builder that sets the initial renderable flag.
//
// Parameters:
//   - renderable: false to start hidden
//
// Returns:
//   - SkinMeshBuilderOption: a function that applies the renderable option to a skin mesh
func WithRenderable(renderable bool) SkinMeshBuilderOption {
	return func(m *skinMesh) {
		m.renderable = renderable
	}
}
