package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkinExtractorImpl is the implementation of the gltfSkinExtractor interface.
type gltfSkinExtractorImpl struct {
	parser  gltfParser
	nodeIDs []scene.NodeID
}

// gltfSkinExtractor turns glTF skins into scene.SkinMesh values bound to the imported graph.
type gltfSkinExtractor interface {
	// ExtractSkin extracts a single skin by index.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - scene.SkinMesh: the skin mesh, one bone per joint in joint order
	//   - error: error if extraction fails
	ExtractSkin(skinIndex int) (scene.SkinMesh, error)

	// ExtractAllSkins extracts every skin in document order.
	//
	// Returns:
	//   - []scene.SkinMesh: all skin meshes
	//   - error: error if extraction fails
	ExtractAllSkins() ([]scene.SkinMesh, error)

	// FindNodeForSkin returns the index of the first node that references the skin, or -1.
	//
	// Parameters:
	//   - skinIndex: the skin index to look up
	//
	// Returns:
	//   - int: the glTF node index, or -1 if no node uses the skin
	FindNodeForSkin(skinIndex int) int
}

var _ gltfSkinExtractor = &gltfSkinExtractorImpl{}

// newGLTFSkinExtractor creates a new skin extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - nodeIDs: the graph handle of every glTF node
//
// Returns:
//   - gltfSkinExtractor: the skin extractor
func newGLTFSkinExtractor(parser gltfParser, nodeIDs []scene.NodeID) gltfSkinExtractor {
	return &gltfSkinExtractorImpl{parser: parser, nodeIDs: nodeIDs}
}

func (e *gltfSkinExtractorImpl) ExtractAllSkins() ([]scene.SkinMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}

	skins := make([]scene.SkinMesh, len(doc.Skins))
	for i := range doc.Skins {
		s, err := e.ExtractSkin(i)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", i, err)
		}
		skins[i] = s
	}
	return skins, nil
}

func (e *gltfSkinExtractorImpl) FindNodeForSkin(skinIndex int) int {
	doc := e.parser.Document()
	if doc == nil {
		return -1
	}
	for i, n := range doc.Nodes {
		if n.Skin != nil && *n.Skin == skinIndex {
			return i
		}
	}
	return -1
}

func (e *gltfSkinExtractorImpl) ExtractSkin(skinIndex int) (scene.SkinMesh, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}
	skin := &doc.Skins[skinIndex]
	if len(skin.Joints) == 0 {
		return nil, fmt.Errorf("skin %q has no joints", skin.Name)
	}

	var inverseBind [][16]float32
	if skin.InverseBindMatrices != nil {
		var err error
		inverseBind, err = e.parser.ReadMat4Accessor(*skin.InverseBindMatrices)
		if err != nil {
			return nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
		if len(inverseBind) < len(skin.Joints) {
			return nil, fmt.Errorf("%d inverse bind matrices for %d joints", len(inverseBind), len(skin.Joints))
		}
	}

	bones := make([]scene.Bone, len(skin.Joints))
	for i, joint := range skin.Joints {
		if joint < 0 || joint >= len(e.nodeIDs) {
			return nil, fmt.Errorf("joint %d: invalid node index %d", i, joint)
		}
		bones[i] = scene.Bone{Node: e.nodeIDs[joint], InverseBind: mgl32.Ident4()}
		if inverseBind != nil {
			bones[i].InverseBind = mgl32.Mat4(inverseBind[i])
		}
	}

	name := common.IndexedName(skin.Name, "skin", skinIndex)

	options := []scene.SkinMeshBuilderOption{scene.WithBones(bones...)}
	if n := e.FindNodeForSkin(skinIndex); n >= 0 {
		options = append(options, scene.WithNode(e.nodeIDs[n]))
	}
	return scene.NewSkinMesh(name, options...), nil
}
