package animator

import (
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/scene"
)

// footprint is the part of a graph an updater touches during Update: it writes the subtrees
// under its animation roots and the bone matrices of its skin meshes, and reads the world
// matrices of each mesh node and bone.
type footprint struct {
	graph  scene.Graph
	roots  []scene.NodeID
	reads  []scene.NodeID
	meshes []scene.SkinMesh
}

func newFootprint(u animation.Updater) footprint {
	f := footprint{
		graph:  u.Graph(),
		roots:  u.AnimationRoots(),
		meshes: u.Clip().BoneSkinMeshes,
	}
	for _, m := range f.meshes {
		if m.Node() != scene.Nil {
			f.reads = append(f.reads, m.Node())
		}
		for _, b := range m.Bones() {
			f.reads = append(f.reads, b.Node)
		}
	}
	return f
}

// writes reports whether n lies in one of the subtrees f writes.
func (f footprint) writes(n scene.NodeID) bool {
	hit := false
	f.graph.TraverseUp(n, func(id scene.NodeID) bool {
		for _, r := range f.roots {
			if id == r {
				hit = true
				return false
			}
		}
		return true
	})
	return hit
}

// overlaps reports whether f and o could race when run concurrently.
func (f footprint) overlaps(o footprint) bool {
	for _, m := range f.meshes {
		for _, om := range o.meshes {
			if m == om {
				return true
			}
		}
	}
	if f.graph != o.graph {
		return false
	}
	return f.writesAny(o.roots) || o.writesAny(f.roots) || f.writesAny(o.reads) || o.writesAny(f.reads)
}

func (f footprint) writesAny(nodes []scene.NodeID) bool {
	for _, n := range nodes {
		if f.writes(n) {
			return true
		}
	}
	return false
}
