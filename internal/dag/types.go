package dag

// Graph is a minimal directed graph used for dependency ordering. It is owned
// by a single parse invocation and accessed from one goroutine only, so no
// locking is required.
type Graph struct {
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[int]*node
	// order records node insertion order; it keeps topological sorting and
	// cycle extraction deterministic.
	order []int
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using integer IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id int
	// succ holds the IDs of this node's successors in edge insertion order.
	succ []int
	// succSet mirrors succ for O(1) duplicate-edge checks.
	succSet map[int]bool
}
