package dag

import (
	"errors"
	"fmt"
)

// ErrCycle is returned by TopoSort when the graph contains at least one
// cycle. Use FindCycle to extract one for diagnostics.
var ErrCycle = errors.New("graph contains a cycle")

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[int]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id int) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:      id,
		succSet: make(map[int]bool),
	}
	g.order = append(g.order, id)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// Adding the same edge twice is a no-op. An error is returned if either node
// does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID int) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %d -> %d", fromID, fromID)
	}

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %d", fromID)
	}
	if _, ok := g.nodes[toID]; !ok {
		return fmt.Errorf("destination node not found: %d", toID)
	}

	if fromNode.succSet[toID] {
		return nil
	}
	fromNode.succSet[toID] = true
	fromNode.succ = append(fromNode.succ, toID)
	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Reversed returns a new graph with every edge flipped. Node insertion order
// is preserved so traversal-dependent results stay deterministic.
func (g *Graph) Reversed() *Graph {
	reversed := New()
	for _, id := range g.order {
		reversed.AddNode(id)
	}
	for _, id := range g.order {
		for _, succID := range g.nodes[id].succ {
			// Ignoring the error: both endpoints were just added.
			_ = reversed.AddEdge(succID, id)
		}
	}
	return reversed
}

// TopoSort returns the node IDs in topological order: every node appears
// before all of its successors' dependents, i.e. a node is emitted only after
// every node with an edge into it. The order is deterministic for a given
// insertion and edge sequence (Kahn's algorithm seeded in insertion order).
// ErrCycle is returned when no such order exists.
func (g *Graph) TopoSort() ([]int, error) {
	indegree := make(map[int]int, len(g.nodes))
	for _, id := range g.order {
		for _, succID := range g.nodes[id].succ {
			indegree[succID]++
		}
	}

	var queue []int
	for _, id := range g.order {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]int, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)
		for _, succID := range g.nodes[id].succ {
			indegree[succID]--
			if indegree[succID] == 0 {
				queue = append(queue, succID)
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		return nil, ErrCycle
	}
	return sorted, nil
}

// FindCycle extracts one simple cycle from the graph, as the ordered list of
// node IDs along the cycle. It returns nil when the graph is acyclic. When
// several disjoint cycles exist, the one reached first by a depth-first walk
// in insertion order is returned, which makes the result stable for a given
// graph construction sequence.
func (g *Graph) FindCycle() []int {
	visited := make(map[int]bool)
	onStack := make(map[int]bool)
	var stack []int
	var cycle []int

	var visit func(id int) bool
	visit = func(id int) bool {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, succID := range g.nodes[id].succ {
			if onStack[succID] {
				// Slice the recursion stack from the repeated node onward.
				for i, stackID := range stack {
					if stackID == succID {
						cycle = append(cycle, stack[i:]...)
						break
					}
				}
				return true
			}
			if !visited[succID] && visit(succID) {
				return true
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range g.order {
		if !visited[id] && visit(id) {
			return cycle
		}
	}
	return nil
}
