package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

var errRig = errors.New("invalid rig")

// yamlLoaderBackendImpl is a loaderBackend implementation for YAML rig files.
type yamlLoaderBackendImpl struct{}

var _ loaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML rig loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for .yaml/.yml rigs
func newYAMLLoaderBackend() loaderBackend {
	return &yamlLoaderBackendImpl{}
}

func (b *yamlLoaderBackendImpl) Load(path string) (*model.ImportedModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rig: %w", err)
	}
	defer f.Close()

	imported, err := b.LoadReader(f)
	if err != nil {
		return nil, err
	}
	if imported.Name == "" {
		imported.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return imported, nil
}

func (b *yamlLoaderBackendImpl) LoadReader(r io.Reader) (*model.ImportedModel, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var rig yamlRig
	if err := dec.Decode(&rig); err != nil {
		return nil, fmt.Errorf("failed to parse rig YAML: %w", err)
	}
	return buildRig(&rig)
}

// buildRig resolves names in a decoded rig into a graph, skins and clips.
func buildRig(rig *yamlRig) (*model.ImportedModel, error) {
	g := scene.NewGraph(scene.WithName(rig.Name), scene.WithCapacity(len(rig.Nodes)))
	rest := make(map[scene.NodeID]*yamlNode, len(rig.Nodes))

	for i := range rig.Nodes {
		n := &rig.Nodes[i]
		if n.Name == "" {
			return nil, fmt.Errorf("node %d: missing name: %w", i, errRig)
		}
		if _, dup := g.Find(n.Name); dup {
			return nil, fmt.Errorf("node %q: duplicate name: %w", n.Name, errRig)
		}
		parent := scene.Nil
		if n.Parent != "" {
			p, ok := g.Find(n.Parent)
			if !ok {
				return nil, fmt.Errorf("node %q: parent %q must be declared before it: %w", n.Name, n.Parent, errRig)
			}
			parent = p
		}
		local := yamlNodeLocalMatrix(n)
		id, err := g.AddNode(n.Name, parent, local)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		rest[id] = n
	}

	skins := make([]scene.SkinMesh, 0, len(rig.Skins))
	for i := range rig.Skins {
		s, err := buildRigSkin(g, &rig.Skins[i])
		if err != nil {
			return nil, err
		}
		skins = append(skins, s)
	}

	clips := make([]*animation.AnimationClip, 0, len(rig.Clips))
	for i := range rig.Clips {
		c, err := buildRigClip(g, rest, skins, &rig.Clips[i])
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}

	return &model.ImportedModel{Name: rig.Name, Graph: g, Skins: skins, Clips: clips}, nil
}

func buildRigSkin(g scene.Graph, s *yamlSkin) (scene.SkinMesh, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("skin: missing name: %w", errRig)
	}
	if len(s.Bones) == 0 {
		return nil, fmt.Errorf("skin %q: %w", s.Name, scene.ErrNoBones)
	}

	meshNode := scene.Nil
	if s.Node != "" {
		n, ok := g.Find(s.Node)
		if !ok {
			return nil, fmt.Errorf("skin %q: unknown node %q: %w", s.Name, s.Node, errRig)
		}
		meshNode = n
	}
	meshWorldInv := mgl32.Ident4()
	if meshNode != scene.Nil {
		meshWorldInv = g.World(meshNode).Inv()
	}

	bones := make([]scene.Bone, len(s.Bones))
	for i, b := range s.Bones {
		n, ok := g.Find(b.Node)
		if !ok {
			return nil, fmt.Errorf("skin %q bone %d: unknown node %q: %w", s.Name, i, b.Node, errRig)
		}
		bones[i].Node = n
		if b.InverseBind != nil {
			bones[i].InverseBind = mgl32.Mat4(*b.InverseBind)
		} else {
			// Bind in the rest pose: the bone's rest transform in mesh space, inverted.
			bones[i].InverseBind = meshWorldInv.Mul4(g.World(n)).Inv()
		}
	}

	options := []scene.SkinMeshBuilderOption{
		scene.WithNode(meshNode),
		scene.WithBones(bones...),
		scene.WithBoneGroup(s.BoneGroup),
	}
	if s.Renderable != nil {
		options = append(options, scene.WithRenderable(*s.Renderable))
	}
	return scene.NewSkinMesh(s.Name, options...), nil
}

func buildRigClip(g scene.Graph, rest map[scene.NodeID]*yamlNode, skins []scene.SkinMesh, c *yamlClip) (*animation.AnimationClip, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("clip: missing name: %w", errRig)
	}

	options := make([]animation.AnimationClipBuilderOption, 0, len(c.Tracks)+2)
	animated := make(map[scene.NodeID]struct{}, len(c.Tracks))
	for i, t := range c.Tracks {
		n, ok := g.Find(t.Node)
		if !ok {
			return nil, fmt.Errorf("clip %q track %d: unknown node %q: %w", c.Name, i, t.Node, errRig)
		}
		s, r, tr := yamlNodeTRS(rest[n])
		frames := make([]animation.KeyFrame, len(t.Keys))
		for j, k := range t.Keys {
			f := animation.KeyFrame{Time: k.Time, Scale: s, Rotation: r, Translation: tr}
			if k.Scale != nil {
				f.Scale = mgl32.Vec3(*k.Scale)
			}
			if k.Rotation != nil {
				f.Rotation = common.QuatFromXYZW(*k.Rotation).Normalize()
			}
			if k.Translation != nil {
				f.Translation = mgl32.Vec3(*k.Translation)
			}
			frames[j] = f
		}
		options = append(options, animation.WithNodeAnimation(n, frames...))
		animated[n] = struct{}{}
	}

	switch {
	case c.Start != nil && c.End != nil:
		options = append(options, animation.WithTimeRange(*c.Start, *c.End))
	case c.Start != nil || c.End != nil:
		return nil, fmt.Errorf("clip %q: start and end must be given together: %w", c.Name, errRig)
	}

	var meshes []scene.SkinMesh
	if len(c.Skins) > 0 {
		for _, name := range c.Skins {
			s := findSkin(skins, name)
			if s == nil {
				return nil, fmt.Errorf("clip %q: unknown skin %q: %w", c.Name, name, errRig)
			}
			meshes = append(meshes, s)
		}
	} else {
		for _, s := range skins {
			for _, b := range s.Bones() {
				if _, ok := animated[b.Node]; ok {
					meshes = append(meshes, s)
					break
				}
			}
		}
	}
	if len(meshes) > 0 {
		options = append(options, animation.WithSkinMesh(meshes...))
	}

	return animation.NewAnimationClip(c.Name, options...)
}

func findSkin(skins []scene.SkinMesh, name string) scene.SkinMesh {
	for _, s := range skins {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func yamlNodeTRS(n *yamlNode) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	return restTRS(n.Matrix, n.Scale, n.Rotation, n.Translation)
}

func yamlNodeLocalMatrix(n *yamlNode) mgl32.Mat4 {
	return restMatrix(n.Matrix, n.Scale, n.Rotation, n.Translation)
}
