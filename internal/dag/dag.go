// Package dag provides directed graph operations for flush ordering.
// It supports cycle detection, strongly connected components and a
// deterministic topological sort with a caller supplied tie-break.
package dag

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unique identifier
	ID string
	// Data holds arbitrary node data
	Data any

	seq int
}

// Seq is the order in which the node was first added.
func (n *Node) Seq() int { return n.seq }

// Graph represents a directed graph. An edge parent -> child means the
// child depends on the parent.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // insertion order
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(id string, data any) {
	if n, exists := g.nodes[id]; exists {
		// Update data if node already exists
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data, seq: len(g.order)}
	g.order = append(g.order, id)
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("parent node %q does not exist", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return fmt.Errorf("self-loop detected: %s", parentID)
	}

	// Avoid duplicates
	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// RemoveEdge deletes the edge parent -> child if present.
func (g *Graph) RemoveEdge(parentID, childID string) {
	g.edges[parentID] = without(g.edges[parentID], childID)
	g.parents[childID] = without(g.parents[childID], parentID)
}

// HasEdge reports whether child depends directly on parent.
func (g *Graph) HasEdge(parentID, childID string) bool {
	return contains(g.edges[parentID], childID)
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// GetParents returns the parents (dependencies) of a node.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the children (dependents) of a node.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, len(g.order))
	for i, id := range g.order {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// CycleError reports nodes that could not be ordered.
type CycleError struct {
	// Path is one cycle, first node repeated at the end.
	Path []string
	// Remaining lists every node left unsorted, in insertion order.
	Remaining []string
}

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	for _, scc := range g.StronglyConnected() {
		if len(scc) > 1 {
			return true, g.cyclePath(scc)
		}
	}
	return false, nil
}

// cyclePath walks one cycle inside a strongly connected component,
// always taking the earliest added child that stays in the component.
func (g *Graph) cyclePath(scc []string) []string {
	in := make(map[string]bool, len(scc))
	for _, id := range scc {
		in[id] = true
	}
	start := scc[0]
	seen := map[string]int{}
	var path []string
	for cur := start; ; {
		if i, ok := seen[cur]; ok {
			return append(path[i:], cur)
		}
		seen[cur] = len(path)
		path = append(path, cur)
		next := ""
		for _, c := range g.sortedBySeq(g.edges[cur]) {
			if in[c] {
				next = c
				break
			}
		}
		cur = next
	}
}

func (g *Graph) sortedBySeq(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return g.nodes[out[i]].seq < g.nodes[out[j]].seq })
	return out
}

// StronglyConnected returns the strongly connected components of the
// graph (Tarjan). Components come out in reverse topological order of
// the condensation; nodes inside a component are in insertion order.
func (g *Graph) StronglyConnected() [][]string {
	index := 0
	indexes := make(map[string]int, len(g.nodes))
	lowlink := make(map[string]int, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	var stack []string
	var out [][]string

	var connect func(id string)
	connect = func(id string) {
		indexes[id], lowlink[id] = index, index
		index++
		stack = append(stack, id)
		onStack[id] = true

		for _, child := range g.sortedBySeq(g.edges[id]) {
			if _, visited := indexes[child]; !visited {
				connect(child)
				lowlink[id] = min(lowlink[id], lowlink[child])
			} else if onStack[child] {
				lowlink[id] = min(lowlink[id], indexes[child])
			}
		}

		if lowlink[id] == indexes[id] {
			var scc []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				scc = append(scc, top)
				if top == id {
					break
				}
			}
			out = append(out, g.sortedBySeq(scc))
		}
	}

	for _, id := range g.order {
		if _, visited := indexes[id]; !visited {
			connect(id)
		}
	}
	return out
}

// LessFunc orders nodes that are ready at the same time.
type LessFunc func(a, b *Node) bool

// BySeq orders nodes by insertion.
func BySeq(a, b *Node) bool { return a.seq < b.seq }

// TopologicalSort returns nodes in topological order (dependencies before
// dependents). Among nodes whose dependencies are all satisfied, the one
// ordered first by less is emitted first, so the result is deterministic
// for a given less. A nil less orders by insertion. Returns a *CycleError
// if the graph contains a cycle.
func (g *Graph) TopologicalSort(less LessFunc) ([]*Node, error) {
	if less == nil {
		less = BySeq
	}
	indegree := make(map[string]int, len(g.nodes))
	ready := &nodeHeap{less: less}
	for _, id := range g.order {
		indegree[id] = len(g.parents[id])
		if indegree[id] == 0 {
			ready.items = append(ready.items, g.nodes[id])
		}
	}
	heap.Init(ready)

	result := make([]*Node, 0, len(g.nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*Node)
		result = append(result, n)
		for _, child := range g.edges[n.ID] {
			indegree[child]--
			if indegree[child] == 0 {
				heap.Push(ready, g.nodes[child])
			}
		}
	}

	if len(result) < len(g.nodes) {
		err := &CycleError{}
		for _, id := range g.order {
			if indegree[id] > 0 {
				err.Remaining = append(err.Remaining, id)
			}
		}
		_, err.Path = g.HasCycle()
		return nil, err
	}
	return result, nil
}

// GetRoots returns nodes with no parents (no dependencies), in insertion order.
func (g *Graph) GetRoots() []string {
	var roots []string
	for _, id := range g.order {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Subgraph returns a new graph containing only the specified nodes and
// the edges between them. Insertion order follows g.
func (g *Graph) Subgraph(nodeIDs []string) *Graph {
	subgraph := NewGraph()
	nodeSet := make(map[string]bool)
	for _, id := range nodeIDs {
		nodeSet[id] = true
	}
	for _, id := range g.order {
		if nodeSet[id] {
			subgraph.AddNode(id, g.nodes[id].Data)
		}
	}
	for _, id := range subgraph.order {
		for _, childID := range g.edges[id] {
			if nodeSet[childID] {
				_ = subgraph.AddEdge(id, childID)
			}
		}
	}
	return subgraph
}

type nodeHeap struct {
	items []*Node
	less  LessFunc
}

func (h *nodeHeap) Len() int           { return len(h.items) }
func (h *nodeHeap) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *nodeHeap) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *nodeHeap) Push(x any)         { h.items = append(h.items, x.(*Node)) }
func (h *nodeHeap) Pop() any {
	old := h.items
	n := old[len(old)-1]
	h.items = old[:len(old)-1]
	return n
}

// contains checks if a slice contains a string.
func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

func without(slice []string, str string) []string {
	out := slice[:0]
	for _, s := range slice {
		if s != str {
			out = append(out, s)
		}
	}
	return out
}
