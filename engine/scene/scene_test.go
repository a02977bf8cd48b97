package scene

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func mustAdd(t *testing.T, g Graph, name string, parent NodeID, local mgl32.Mat4) NodeID {
	t.Helper()
	n, err := g.AddNode(name, parent, local)
	if err != nil {
		t.Fatalf("AddNode(%q): %v", name, err)
	}
	return n
}

func TestAddNode(t *testing.T) {
	g := NewGraph(WithName("rig"), WithCapacity(8))
	if g.Name() != "rig" {
		t.Fatalf("Graph.Name\nhave %q\nwant rig", g.Name())
	}

	root := mustAdd(t, g, "root", Nil, mgl32.Translate3D(1, 0, 0))
	child := mustAdd(t, g, "child", root, mgl32.Translate3D(0, 2, 0))

	if root == Nil || child == Nil {
		t.Fatal("AddNode returned Nil")
	}
	if g.Len() != 2 {
		t.Fatalf("Graph.Len\nhave %d\nwant 2", g.Len())
	}
	if p := g.Parent(child); p != root {
		t.Fatalf("Graph.Parent\nhave %d\nwant %d", p, root)
	}
	if cs := g.Children(root); len(cs) != 1 || cs[0] != child {
		t.Fatalf("Graph.Children\nhave %v\nwant [%d]", cs, child)
	}
	if id, ok := g.Find("child"); !ok || id != child {
		t.Fatalf("Graph.Find\nhave %d, %t\nwant %d, true", id, ok, child)
	}
	if w := g.World(child); !w.ApproxEqual(mgl32.Translate3D(1, 2, 0)) {
		t.Fatalf("Graph.World\nhave %v\nwant %v", w, mgl32.Translate3D(1, 2, 0))
	}

	if _, err := g.AddNode("orphan", NodeID(99), mgl32.Ident4()); !errors.Is(err, ErrInvalidNode) {
		t.Fatalf("AddNode with bad parent\nhave %v\nwant %v", err, ErrInvalidNode)
	}
}

func TestUpdateAllTransformMatrix(t *testing.T) {
	g := NewGraph()
	a := mustAdd(t, g, "a", Nil, mgl32.Ident4())
	b := mustAdd(t, g, "b", a, mgl32.Translate3D(0, 1, 0))
	c := mgl32.Translate3D(0, 0, 1)
	cn := mustAdd(t, g, "c", b, c)

	g.SetLocal(a, mgl32.Translate3D(5, 0, 0))

	// World matrices are stale until propagation.
	if w := g.World(cn); !w.ApproxEqual(mgl32.Translate3D(0, 1, 1)) {
		t.Fatalf("stale World\nhave %v\nwant %v", w, mgl32.Translate3D(0, 1, 1))
	}

	g.UpdateAllTransformMatrix(a)
	if w := g.World(cn); !w.ApproxEqual(mgl32.Translate3D(5, 1, 1)) {
		t.Fatalf("World after propagation\nhave %v\nwant %v", w, mgl32.Translate3D(5, 1, 1))
	}

	// Propagating a subtree uses the parent's current world matrix.
	g.SetLocal(b, mgl32.Translate3D(0, 3, 0))
	g.UpdateAllTransformMatrix(b)
	if w := g.World(cn); !w.ApproxEqual(mgl32.Translate3D(5, 3, 1)) {
		t.Fatalf("World after subtree propagation\nhave %v\nwant %v", w, mgl32.Translate3D(5, 3, 1))
	}
}

func TestTraverseUp(t *testing.T) {
	g := NewGraph()
	a := mustAdd(t, g, "a", Nil, mgl32.Ident4())
	b := mustAdd(t, g, "b", a, mgl32.Ident4())
	c := mustAdd(t, g, "c", b, mgl32.Ident4())

	var have []NodeID
	g.TraverseUp(c, func(n NodeID) bool {
		have = append(have, n)
		return true
	})
	want := []NodeID{c, b, a}
	if len(have) != len(want) {
		t.Fatalf("TraverseUp\nhave %v\nwant %v", have, want)
	}
	for i := range want {
		if have[i] != want[i] {
			t.Fatalf("TraverseUp\nhave %v\nwant %v", have, want)
		}
	}

	have = have[:0]
	g.TraverseUp(c, func(n NodeID) bool {
		have = append(have, n)
		return n != b
	})
	if len(have) != 2 {
		t.Fatalf("TraverseUp early stop\nhave %v\nwant [%d %d]", have, c, b)
	}
}

func TestRemove(t *testing.T) {
	g := NewGraph()
	a := mustAdd(t, g, "a", Nil, mgl32.Ident4())
	b := mustAdd(t, g, "b", a, mgl32.Ident4())
	c := mustAdd(t, g, "c", b, mgl32.Ident4())
	d := mustAdd(t, g, "d", a, mgl32.Ident4())

	g.Remove(b)
	if g.Valid(b) || g.Valid(c) {
		t.Fatal("Remove: subtree still valid")
	}
	if !g.Valid(a) || !g.Valid(d) {
		t.Fatal("Remove: unrelated nodes invalidated")
	}
	if g.Len() != 2 {
		t.Fatalf("Graph.Len\nhave %d\nwant 2", g.Len())
	}
	if cs := g.Children(a); len(cs) != 1 || cs[0] != d {
		t.Fatalf("Graph.Children\nhave %v\nwant [%d]", cs, d)
	}
	if _, ok := g.Find("c"); ok {
		t.Fatal("Find: removed node still registered")
	}
	if w := g.World(c); w != mgl32.Ident4() {
		t.Fatalf("World of removed node\nhave %v\nwant identity", w)
	}

	// Slots are reused under a new generation.
	e := mustAdd(t, g, "e", Nil, mgl32.Ident4())
	if e.index() != b.index() && e.index() != c.index() {
		t.Fatalf("AddNode after Remove: slot %d\nwant %d or %d", e.index(), b.index(), c.index())
	}
	if e == b || e == c {
		t.Fatalf("AddNode after Remove returned a removed handle %d", e)
	}
	if len(g.Roots()) != 2 {
		t.Fatalf("Graph.Roots\nhave %v\nwant 2 roots", g.Roots())
	}
}

func TestRemoveDoesNotReviveHandle(t *testing.T) {
	g := NewGraph()
	a := mustAdd(t, g, "a", Nil, mgl32.Translate3D(1, 0, 0))
	g.Remove(a)

	other := mustAdd(t, g, "unrelated", Nil, mgl32.Translate3D(7, 7, 7))
	if other.index() != a.index() {
		t.Fatalf("slot not reused\nhave %d\nwant %d", other.index(), a.index())
	}
	if g.Valid(a) {
		t.Fatal("Valid(stale handle)\nhave true\nwant false")
	}

	g.SetLocal(a, mgl32.Ident4())
	g.UpdateAllTransformMatrix(a)
	if l := g.Local(other); l != mgl32.Translate3D(7, 7, 7) {
		t.Fatalf("Local of reused slot\nhave %v\nwant %v", l, mgl32.Translate3D(7, 7, 7))
	}
	if name := g.NodeName(a); name != "" {
		t.Fatalf("NodeName(stale handle)\nhave %q\nwant \"\"", name)
	}
	if ids := g.Nodes(); len(ids) != 1 || ids[0] != other {
		t.Fatalf("Graph.Nodes\nhave %v\nwant [%d]", ids, other)
	}

	// Removing through the stale handle must leave the new node alone.
	g.Remove(a)
	if !g.Valid(other) {
		t.Fatal("Remove(stale handle) removed the node now in its slot")
	}
}

func TestSetParent(t *testing.T) {
	g := NewGraph()
	a := mustAdd(t, g, "a", Nil, mgl32.Translate3D(1, 0, 0))
	b := mustAdd(t, g, "b", Nil, mgl32.Translate3D(0, 1, 0))
	c := mustAdd(t, g, "c", b, mgl32.Ident4())

	if err := g.SetParent(b, a); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	if w := g.World(c); !w.ApproxEqual(mgl32.Translate3D(1, 1, 0)) {
		t.Fatalf("World after SetParent\nhave %v\nwant %v", w, mgl32.Translate3D(1, 1, 0))
	}
	if err := g.SetParent(a, c); !errors.Is(err, ErrCycle) {
		t.Fatalf("SetParent cycle\nhave %v\nwant %v", err, ErrCycle)
	}
	if rs := g.Roots(); len(rs) != 1 || rs[0] != a {
		t.Fatalf("Graph.Roots\nhave %v\nwant [%d]", rs, a)
	}
}

func TestInvalidHandles(t *testing.T) {
	g := NewGraph()
	for _, n := range []NodeID{Nil, -1, 42, makeNodeID(1, 7)} {
		if g.Valid(n) {
			t.Fatalf("Valid(%d)\nhave true\nwant false", n)
		}
		if l := g.Local(n); l != mgl32.Ident4() {
			t.Fatalf("Local(%d)\nhave %v\nwant identity", n, l)
		}
		g.SetLocal(n, mgl32.Translate3D(1, 1, 1))
		g.UpdateAllTransformMatrix(n)
		g.Remove(n)
		if p := g.Parent(n); p != Nil {
			t.Fatalf("Parent(%d)\nhave %d\nwant Nil", n, p)
		}
	}
}

func BenchmarkUpdateAllTransformMatrix(b *testing.B) {
	g := NewGraph(WithCapacity(64))
	parent, _ := g.AddNode("root", Nil, mgl32.Ident4())
	root := parent
	for i := 0; i < 63; i++ {
		parent, _ = g.AddNode("", parent, mgl32.Translate3D(0, 1, 0))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.UpdateAllTransformMatrix(root)
	}
}
