package dag

import (
	"errors"
	"reflect"
	"testing"
)

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode("a", "node A")
	g.AddNode("b", "node B")
	g.AddNode("c", "node C")

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}

	// b depends on a
	if err := g.AddEdge("a", "b"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	// c depends on b
	if err := g.AddEdge("b", "c"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
	if !g.HasEdge("a", "b") || g.HasEdge("b", "a") {
		t.Error("HasEdge does not follow edge direction")
	}
}

func TestGraph_AddNode_KeepsFirstSeq(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", 1)
	g.AddNode("b", 2)
	g.AddNode("a", 3)

	n, _ := g.GetNode("a")
	if n.Seq() != 0 || n.Data != 3 {
		t.Errorf("expected seq 0 and updated data, got seq %d data %v", n.Seq(), n.Data)
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent child node")
	}
	if err := g.AddEdge("nonexistent", "a"); err == nil {
		t.Error("expected error for nonexistent parent node")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)

	if err := g.AddEdge("a", "a"); err == nil {
		t.Error("expected error for self-loop")
	}
}

func TestGraph_RemoveEdge(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")

	if ok, _ := g.HasCycle(); !ok {
		t.Fatal("expected cycle before removal")
	}
	g.RemoveEdge("b", "a")
	if ok, path := g.HasCycle(); ok {
		t.Errorf("expected no cycle after removal, got %v", path)
	}
	if len(g.GetParents("a")) != 0 {
		t.Errorf("expected a to have no parents, got %v", g.GetParents("a"))
	}
}

func TestGraph_HasCycle_WithCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")
	_ = g.AddEdge("c", "a")

	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Fatal("expected cycle")
	}
	want := []string{"a", "b", "c", "a"}
	if !reflect.DeepEqual(path, want) {
		t.Errorf("expected path %v, got %v", want, path)
	}
}

func TestGraph_TopologicalSort_Simple(t *testing.T) {
	g := NewGraph()
	g.AddNode("c", nil)
	g.AddNode("b", nil)
	g.AddNode("a", nil)
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")

	sorted, err := g.TopologicalSort(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(sorted); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected order %v", got)
	}
}

func TestGraph_TopologicalSort_TieBreak(t *testing.T) {
	g := NewGraph()
	// Independent nodes come out in the order chosen by less.
	g.AddNode("x", 3)
	g.AddNode("y", 1)
	g.AddNode("z", 2)

	byData := func(a, b *Node) bool { return a.Data.(int) < b.Data.(int) }

	sorted, err := g.TopologicalSort(byData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(sorted); !reflect.DeepEqual(got, []string{"y", "z", "x"}) {
		t.Errorf("unexpected order %v", got)
	}

	sorted, _ = g.TopologicalSort(nil)
	if got := ids(sorted); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Errorf("expected insertion order, got %v", got)
	}
}

func TestGraph_TopologicalSort_Diamond(t *testing.T) {
	g := NewGraph()
	//     a
	//    / \
	//   b   c
	//    \ /
	//     d
	for _, id := range []string{"d", "c", "b", "a"} {
		g.AddNode(id, nil)
	}
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("a", "c")
	_ = g.AddEdge("b", "d")
	_ = g.AddEdge("c", "d")

	sorted, err := g.TopologicalSort(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// c was added before b, so it wins the tie.
	if got := ids(sorted); !reflect.DeepEqual(got, []string{"a", "c", "b", "d"}) {
		t.Errorf("unexpected order %v", got)
	}
}

func TestGraph_TopologicalSort_WithCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("root", nil)
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	_ = g.AddEdge("root", "a")
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")

	_, err := g.TopologicalSort(nil)
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if !reflect.DeepEqual(cycle.Remaining, []string{"a", "b"}) {
		t.Errorf("unexpected remaining nodes %v", cycle.Remaining)
	}
	if !reflect.DeepEqual(cycle.Path, []string{"a", "b", "a"}) {
		t.Errorf("unexpected cycle path %v", cycle.Path)
	}
}

func TestGraph_StronglyConnected(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		g.AddNode(id, nil)
	}
	// a <-> b form one component, c -> d -> e -> c another, b feeds c.
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")
	_ = g.AddEdge("b", "c")
	_ = g.AddEdge("c", "d")
	_ = g.AddEdge("d", "e")
	_ = g.AddEdge("e", "c")

	got := g.StronglyConnected()
	want := [][]string{{"c", "d", "e"}, {"a", "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGraph_StronglyConnected_Acyclic(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	_ = g.AddEdge("a", "b")

	for _, scc := range g.StronglyConnected() {
		if len(scc) != 1 {
			t.Errorf("expected singleton components, got %v", scc)
		}
	}
}

func TestGraph_GetRoots(t *testing.T) {
	g := NewGraph()
	g.AddNode("b", nil)
	g.AddNode("a", nil)
	g.AddNode("c", nil)
	_ = g.AddEdge("a", "c")

	if got := g.GetRoots(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("unexpected roots %v", got)
	}
}

func TestGraph_Subgraph(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", "A")
	g.AddNode("b", "B")
	g.AddNode("c", "C")
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")
	_ = g.AddEdge("a", "c")

	sub := g.Subgraph([]string{"c", "a"})
	if sub.NodeCount() != 2 {
		t.Errorf("expected 2 nodes, got %d", sub.NodeCount())
	}
	if sub.EdgeCount() != 1 || !sub.HasEdge("a", "c") {
		t.Errorf("expected only a -> c, got %d edges", sub.EdgeCount())
	}
	if got := ids(sub.Nodes()); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Errorf("expected parent insertion order, got %v", got)
	}
	n, _ := sub.GetNode("a")
	if n.Data != "A" {
		t.Errorf("expected data to be carried, got %v", n.Data)
	}
}

func TestGraph_DuplicateEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("a", "b")

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", g.EdgeCount())
	}
	if len(g.GetChildren("a")) != 1 {
		t.Errorf("expected 1 child, got %d", len(g.GetChildren("a")))
	}
}
