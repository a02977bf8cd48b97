package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrNoBones is returned when a skin mesh is validated without any bones.
	ErrNoBones = errors.New(prefix + "skin mesh has no bones")
)

// Bone binds a graph node to the inverse bind matrix that maps mesh space into the bone's
// bind-pose space.
type Bone struct {
	Node        NodeID
	InverseBind mgl32.Mat4
}

// skinMesh is the implementation of the SkinMesh interface.
type skinMesh struct {
	name         string
	node         NodeID
	bones        []Bone
	boneMatrices []mgl32.Mat4
	renderable   bool
	boneGroup    bool
}

// SkinMesh is the CPU-side view of a bone-skinned mesh: an ordered bone list and the
// bone-matrix buffer a renderer reads when deforming vertices.
type SkinMesh interface {
	// Name returns the mesh name.
	Name() string

	// Node returns the graph node carrying the mesh, or Nil when the mesh is unattached.
	Node() NodeID

	// Renderable reports whether the mesh is currently drawn. Non-renderable meshes are
	// skipped by bone-matrix refreshes.
	Renderable() bool

	// SetRenderable toggles the renderable flag.
	SetRenderable(renderable bool)

	// HasBoneGroup reports whether the mesh's bone matrices are owned by an enclosing bone
	// group, in which case they must not be recomputed per mesh.
	HasBoneGroup() bool

	// Bones returns the ordered bone list. The returned slice must not be modified.
	Bones() []Bone

	// TotalModelMatrix returns the world transform of the mesh within g.
	//
	// Parameters:
	//   - g: the graph the mesh node lives in
	//
	// Returns:
	//   - mgl32.Mat4: the mesh node's world matrix, or identity when unattached
	TotalModelMatrix(g Graph) mgl32.Mat4

	// BoneMatrices returns the current bone-matrix buffer, one matrix per bone.
	BoneMatrices() []mgl32.Mat4

	// SwapBoneMatrices installs next as the authoritative buffer and returns the previous one.
	// Ownership of the returned slice passes to the caller.
	//
	// Parameters:
	//   - next: the new buffer, expected to hold len(Bones()) matrices
	//
	// Returns:
	//   - []mgl32.Mat4: the buffer that was replaced
	SwapBoneMatrices(next []mgl32.Mat4) []mgl32.Mat4

	// Validate checks the mesh's bones against g.
	Validate(g Graph) error
}

var _ SkinMesh = &skinMesh{}

// NewSkinMesh creates a SkinMesh with the provided options applied. The mesh starts
// renderable with identity bone matrices.
//
// Parameters:
//   - name: the mesh name
//   - options: a variadic list of SkinMeshBuilderOption functions
//
// Returns:
//   - SkinMesh: the new skin mesh
func NewSkinMesh(name string, options ...SkinMeshBuilderOption) SkinMesh {
	m := &skinMesh{
		name:       name,
		renderable: true,
	}
	for _, opt := range options {
		opt(m)
	}

	m.boneMatrices = make([]mgl32.Mat4, len(m.bones))
	for i := range m.boneMatrices {
		m.boneMatrices[i] = mgl32.Ident4()
	}
	return m
}

func (m *skinMesh) Name() string {
	return m.name
}

func (m *skinMesh) Node() NodeID {
	return m.node
}

func (m *skinMesh) Renderable() bool {
	return m.renderable
}

func (m *skinMesh) SetRenderable(renderable bool) {
	m.renderable = renderable
}

func (m *skinMesh) HasBoneGroup() bool {
	return m.boneGroup
}

func (m *skinMesh) Bones() []Bone {
	return m.bones
}

func (m *skinMesh) TotalModelMatrix(g Graph) mgl32.Mat4 {
	if m.node == Nil {
		return mgl32.Ident4()
	}
	return g.World(m.node)
}

func (m *skinMesh) BoneMatrices() []mgl32.Mat4 {
	return m.boneMatrices
}

func (m *skinMesh) SwapBoneMatrices(next []mgl32.Mat4) []mgl32.Mat4 {
	prev := m.boneMatrices
	m.boneMatrices = next
	return prev
}

func (m *skinMesh) Validate(g Graph) error {
	if len(m.bones) == 0 {
		return fmt.Errorf("%w: %q", ErrNoBones, m.name)
	}
	if m.node != Nil && !g.Valid(m.node) {
		return fmt.Errorf("skin mesh %q node %d: %w", m.name, m.node, ErrInvalidNode)
	}
	for i, b := range m.bones {
		if !g.Valid(b.Node) {
			return fmt.Errorf("skin mesh %q bone %d: %w", m.name, i, ErrInvalidNode)
		}
	}
	return nil
}
