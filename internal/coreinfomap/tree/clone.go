package tree

// Clone returns an independent copy of the tree: same nodes, edges, and
// adjacency lists, but no shared backing arrays, so mutating the clone
// (as a trial's optimizer does) never touches the original. Sub-engines
// are not deep-copied; a cloned node that had one attached loses it, since
// trial clones are taken before any hierarchical recursion runs.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes:      append([]Node(nil), t.nodes...),
		edges:      append([]Edge(nil), t.edges...),
		subEngines: make(map[int32]SubEngine),
		root:       t.root,
	}
	c.outEdges = make([][]int32, len(t.outEdges))
	for i, es := range t.outEdges {
		c.outEdges[i] = append([]int32(nil), es...)
	}
	c.inEdges = make([][]int32, len(t.inEdges))
	for i, es := range t.inEdges {
		c.inEdges[i] = append([]int32(nil), es...)
	}
	for i := range c.nodes {
		c.nodes[i].SubEngine = NoIndex
	}
	return c
}
