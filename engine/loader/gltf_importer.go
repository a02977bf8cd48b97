package loader

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

var errNodeHierarchy = errors.New("invalid node hierarchy")

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter orchestrates a full glTF/GLB import: parse, build the scene graph, then
// extract skins and animations against it.
type gltfImporter interface {
	// Import loads a glTF/GLB file and extracts all data into an ImportedModel.
	//
	// Parameters:
	//   - path: the file path to the glTF or GLB file
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if import fails
	Import(path string) (*model.ImportedModel, error)

	// ImportReader loads a glTF document from a reader and extracts all data.
	//
	// Parameters:
	//   - r: the reader providing glTF/GLB data
	//   - isGLB: true if the reader provides GLB binary data, false for glTF JSON
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if import fails
	ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(path string) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.Parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return imp.importFromParser(parser, path)
}

func (imp *gltfImporterImpl) ImportReader(r io.Reader, isGLB bool) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.ParseReader(r, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse from reader: %w", err)
	}
	return imp.importFromParser(parser, "")
}

// importFromParser performs a full import from a parser that has already loaded a document.
//
// Parameters:
//   - parser: the glTF parser that has already loaded a document
//   - fallbackPath: optional file path used as a fallback for model naming
func (imp *gltfImporterImpl) importFromParser(parser gltfParser, fallbackPath string) (*model.ImportedModel, error) {
	doc := parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	name := gltfExtractModelName(doc, fallbackPath)
	graph, nodeIDs, err := gltfBuildGraph(doc, name)
	if err != nil {
		return nil, fmt.Errorf("graph construction failed: %w", err)
	}

	skins, err := newGLTFSkinExtractor(parser, nodeIDs).ExtractAllSkins()
	if err != nil {
		return nil, fmt.Errorf("skin extraction failed: %w", err)
	}

	clips, err := newGLTFAnimationExtractor(parser, nodeIDs, skins).ExtractAllAnimations()
	if err != nil {
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}

	return &model.ImportedModel{
		Name:  name,
		Graph: graph,
		Skins: skins,
		Clips: clips,
	}, nil
}

// gltfBuildGraph adds every glTF node to a new graph, parents before children, and
// returns the node handle for each glTF node index.
func gltfBuildGraph(doc *gltfDocument, name string) (scene.Graph, []scene.NodeID, error) {
	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(doc.Nodes) {
				return nil, nil, fmt.Errorf("node %d: child index %d out of range: %w", i, c, errNodeHierarchy)
			}
			if parents[c] >= 0 {
				return nil, nil, fmt.Errorf("node %d has parents %d and %d: %w", c, parents[c], i, errNodeHierarchy)
			}
			parents[c] = i
		}
	}

	g := scene.NewGraph(scene.WithName(name), scene.WithCapacity(len(doc.Nodes)))
	ids := make([]scene.NodeID, len(doc.Nodes))

	var add func(i int, parent scene.NodeID) error
	add = func(i int, parent scene.NodeID) error {
		n := &doc.Nodes[i]
		id, err := g.AddNode(gltfNodeName(n, i), parent, gltfNodeLocalMatrix(n))
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		ids[i] = id
		for _, c := range n.Children {
			if err := add(c, id); err != nil {
				return err
			}
		}
		return nil
	}
	for i := range doc.Nodes {
		if parents[i] < 0 {
			if err := add(i, scene.Nil); err != nil {
				return nil, nil, err
			}
		}
	}

	// Nodes never reached from a root sit on a parent cycle.
	for i, id := range ids {
		if id == scene.Nil {
			return nil, nil, fmt.Errorf("node %d is part of a cycle: %w", i, errNodeHierarchy)
		}
	}
	return g, ids, nil
}

func gltfNodeName(n *gltfNode, index int) string {
	return common.IndexedName(n.Name, "node", index)
}

func gltfNodeTRS(n *gltfNode) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	return restTRS(n.Matrix, n.Scale, n.Rotation, n.Translation)
}

func gltfNodeLocalMatrix(n *gltfNode) mgl32.Mat4 {
	return restMatrix(n.Matrix, n.Scale, n.Rotation, n.Translation)
}

// gltfExtractModelName derives a model name from the default scene or a file path fallback.
// It returns "" when neither is available.
func gltfExtractModelName(doc *gltfDocument, fallbackPath string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	if fallbackPath != "" {
		return strings.TrimSuffix(filepath.Base(fallbackPath), filepath.Ext(fallbackPath))
	}
	return ""
}
