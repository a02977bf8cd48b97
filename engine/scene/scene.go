package scene

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

const prefix = "scene: "

var (
	// ErrInvalidNode is returned when a handle does not refer to a live node.
	ErrInvalidNode = errors.New(prefix + "invalid node handle")

	// ErrCycle is returned by SetParent when the new parent is a descendant of the node.
	ErrCycle = errors.New(prefix + "parent would create a cycle")
)

// NodeID is a non-owning handle into a Graph's node table.
// The low 32 bits hold the slot index and the high 32 bits the slot generation, so a handle to
// a removed node stays invalid after its slot is reused. The zero value is Nil and never refers
// to a node.
type NodeID int64

// Nil is the invalid node handle.
const Nil NodeID = 0

// maxGeneration keeps every handle positive.
const maxGeneration = 1<<31 - 1

func makeNodeID(index, gen uint32) NodeID {
	return NodeID(uint64(gen)<<32 | uint64(index))
}

func (n NodeID) index() uint32 {
	return uint32(n)
}

func (n NodeID) generation() uint32 {
	return uint32(uint64(n) >> 32)
}

// node is one slot of the graph's node table.
type node struct {
	name     string
	parent   NodeID
	children []NodeID
	local    mgl32.Mat4
	world    mgl32.Mat4
	gen      uint32
	live     bool
}

// graph is the implementation of the Graph interface.
type graph struct {
	name  string
	nodes []node
	free  []uint32 // released slot indices
	roots []NodeID
	names map[string]NodeID
}

// Graph defines a hierarchical transform tree addressed through NodeID handles.
//
// Each node holds a local matrix relative to its parent and a world matrix that is only
// refreshed by UpdateAllTransformMatrix or UpdateAll. Writers set local matrices; readers
// observe world matrices after propagation. A Graph performs no locking: callers serialize
// structural changes (AddNode, Remove, SetParent) against everything else, while writes to
// disjoint subtrees may proceed concurrently once the structure is fixed.
type Graph interface {
	// Name returns the graph's name.
	Name() string

	// AddNode inserts a node under parent, or as a new root when parent is Nil.
	//
	// Parameters:
	//   - name: the node name (need not be unique; Find returns the first node added with it)
	//   - parent: the parent handle, or Nil for a root
	//   - local: the initial local transform
	//
	// Returns:
	//   - NodeID: the handle of the new node
	//   - error: ErrInvalidNode if parent is neither Nil nor live
	AddNode(name string, parent NodeID, local mgl32.Mat4) (NodeID, error)

	// Remove deletes n and its whole subtree. Handles to removed nodes become invalid and
	// their slots may be reused by later AddNode calls.
	//
	// Parameters:
	//   - n: the node to remove
	Remove(n NodeID)

	// SetParent moves n (with its subtree) under parent, or to the root set when parent is Nil.
	//
	// Parameters:
	//   - n: the node to move
	//   - parent: the new parent
	//
	// Returns:
	//   - error: ErrInvalidNode or ErrCycle
	SetParent(n, parent NodeID) error

	// Valid reports whether n refers to a live node.
	Valid(n NodeID) bool

	// Len returns the number of live nodes.
	Len() int

	// Nodes returns the handles of every live node in table order.
	Nodes() []NodeID

	// Roots returns the handles of every top-level node.
	Roots() []NodeID

	// Find returns the node registered under name.
	//
	// Returns:
	//   - NodeID: the node, or Nil
	//   - bool: true if found
	Find(name string) (NodeID, bool)

	// NodeName returns the name of n, or "" for an invalid handle.
	NodeName(n NodeID) string

	// Parent returns the parent of n, or Nil for roots and invalid handles.
	Parent(n NodeID) NodeID

	// Children returns the children of n. The returned slice must not be modified.
	Children(n NodeID) []NodeID

	// Local returns the local transform of n, or identity for an invalid handle.
	Local(n NodeID) mgl32.Mat4

	// SetLocal replaces the local transform of n. World matrices are left as they are until the next
	// UpdateAllTransformMatrix or UpdateAll. It is a no-op for an invalid handle.
	SetLocal(n NodeID, m mgl32.Mat4)

	// World returns the last propagated world transform of n, or identity for an invalid handle.
	World(n NodeID) mgl32.Mat4

	// TraverseUp visits n and then each of its ancestors in order, stopping early when fn
	// returns false.
	//
	// Parameters:
	//   - n: the starting node
	//   - fn: visitor; return false to stop
	TraverseUp(n NodeID, fn func(NodeID) bool)

	// UpdateAllTransformMatrix recomputes world transforms for n and its whole subtree from
	// the current world transform of n's parent. Parents are always updated before children.
	//
	// Parameters:
	//   - n: the subtree root
	UpdateAllTransformMatrix(n NodeID)

	// UpdateAll recomputes world transforms for every node in the graph.
	UpdateAll()
}

var _ Graph = &graph{}

// NewGraph creates an empty Graph with the provided options applied.
//
// Parameters:
//   - options: a variadic list of GraphBuilderOption functions
//
// Returns:
//   - Graph: the new graph
func NewGraph(options ...GraphBuilderOption) Graph {
	g := &graph{
		// Slot 0 backs Nil and is never live.
		nodes: make([]node, 1, 64),
		names: make(map[string]NodeID),
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

func (g *graph) Name() string {
	return g.name
}

func (g *graph) AddNode(name string, parent NodeID, local mgl32.Mat4) (NodeID, error) {
	if parent != Nil && !g.Valid(parent) {
		return Nil, ErrInvalidNode
	}

	var idx uint32
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		g.nodes = append(g.nodes, node{})
		idx = uint32(len(g.nodes) - 1)
	}
	gen := g.nodes[idx].gen
	id := makeNodeID(idx, gen)

	world := local
	if parent != Nil {
		world = g.nodes[parent.index()].world.Mul4(local)
	}
	g.nodes[idx] = node{
		name:   name,
		parent: parent,
		local:  local,
		world:  world,
		gen:    gen,
		live:   true,
	}

	if parent == Nil {
		g.roots = append(g.roots, id)
	} else {
		pn := &g.nodes[parent.index()]
		pn.children = append(pn.children, id)
	}
	if _, ok := g.names[name]; !ok && name != "" {
		g.names[name] = id
	}
	return id, nil
}

func (g *graph) Remove(n NodeID) {
	if !g.Valid(n) {
		return
	}
	g.detach(n)
	g.release(n)
}

// release frees n and its descendants without touching n's parent. The slot's generation
// is bumped so every outstanding handle to it becomes invalid.
func (g *graph) release(n NodeID) {
	idx := n.index()
	for _, c := range g.nodes[idx].children {
		g.release(c)
	}
	if id, ok := g.names[g.nodes[idx].name]; ok && id == n {
		delete(g.names, g.nodes[idx].name)
	}
	g.nodes[idx] = node{gen: (g.nodes[idx].gen + 1) & maxGeneration}
	g.free = append(g.free, idx)
}

// detach unlinks n from its parent's child list or from the root set.
func (g *graph) detach(n NodeID) {
	p := g.nodes[n.index()].parent
	if p == Nil {
		g.roots = removeID(g.roots, n)
		return
	}
	pn := &g.nodes[p.index()]
	pn.children = removeID(pn.children, n)
	g.nodes[n.index()].parent = Nil
}

func (g *graph) SetParent(n, parent NodeID) error {
	if !g.Valid(n) || (parent != Nil && !g.Valid(parent)) {
		return ErrInvalidNode
	}
	if parent != Nil {
		cycle := false
		g.TraverseUp(parent, func(a NodeID) bool {
			if a == n {
				cycle = true
				return false
			}
			return true
		})
		if cycle {
			return ErrCycle
		}
	}

	g.detach(n)
	g.nodes[n.index()].parent = parent
	if parent == Nil {
		g.roots = append(g.roots, n)
	} else {
		pn := &g.nodes[parent.index()]
		pn.children = append(pn.children, n)
	}
	g.UpdateAllTransformMatrix(n)
	return nil
}

func (g *graph) Valid(n NodeID) bool {
	if n <= Nil || int(n.index()) >= len(g.nodes) {
		return false
	}
	nd := &g.nodes[n.index()]
	return nd.live && nd.gen == n.generation()
}

func (g *graph) Len() int {
	return len(g.nodes) - 1 - len(g.free)
}

func (g *graph) Nodes() []NodeID {
	ids := make([]NodeID, 0, g.Len())
	for i := 1; i < len(g.nodes); i++ {
		if nd := &g.nodes[i]; nd.live {
			ids = append(ids, makeNodeID(uint32(i), nd.gen))
		}
	}
	return ids
}

func (g *graph) Roots() []NodeID {
	return append([]NodeID(nil), g.roots...)
}

func (g *graph) Find(name string) (NodeID, bool) {
	id, ok := g.names[name]
	return id, ok
}

func (g *graph) NodeName(n NodeID) string {
	if !g.Valid(n) {
		return ""
	}
	return g.nodes[n.index()].name
}

func (g *graph) Parent(n NodeID) NodeID {
	if !g.Valid(n) {
		return Nil
	}
	return g.nodes[n.index()].parent
}

func (g *graph) Children(n NodeID) []NodeID {
	if !g.Valid(n) {
		return nil
	}
	return g.nodes[n.index()].children
}

func (g *graph) Local(n NodeID) mgl32.Mat4 {
	if !g.Valid(n) {
		return mgl32.Ident4()
	}
	return g.nodes[n.index()].local
}

func (g *graph) SetLocal(n NodeID, m mgl32.Mat4) {
	if !g.Valid(n) {
		return
	}
	g.nodes[n.index()].local = m
}

func (g *graph) World(n NodeID) mgl32.Mat4 {
	if !g.Valid(n) {
		return mgl32.Ident4()
	}
	return g.nodes[n.index()].world
}

func (g *graph) TraverseUp(n NodeID, fn func(NodeID) bool) {
	for g.Valid(n) {
		if !fn(n) {
			return
		}
		n = g.nodes[n.index()].parent
	}
}

func (g *graph) UpdateAllTransformMatrix(n NodeID) {
	if !g.Valid(n) {
		return
	}
	parentWorld := mgl32.Ident4()
	if p := g.nodes[n.index()].parent; p != Nil {
		parentWorld = g.nodes[p.index()].world
	}
	g.propagate(n, parentWorld)
}

// propagate writes world = parentWorld * local for n and recurses into its children.
// Recursion keeps the walk allocation-free.
func (g *graph) propagate(n NodeID, parentWorld mgl32.Mat4) {
	nd := &g.nodes[n.index()]
	nd.world = parentWorld.Mul4(nd.local)
	for _, c := range nd.children {
		g.propagate(c, nd.world)
	}
}

func (g *graph) UpdateAll() {
	for _, r := range g.roots {
		g.propagate(r, mgl32.Ident4())
	}
}

// removeID deletes the first occurrence of id from ids, preserving order.
func removeID(ids []NodeID, id NodeID) []NodeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
