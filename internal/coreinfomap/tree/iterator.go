package tree

// Visit carries the context a caller sees at each step of a tree walk:
// the node being visited, its 1-based child-index path from the walk's
// root, its depth, and a running module-index counter that increments
// once per leaf module encountered.
type Visit struct {
	Node        int32
	Path        []uint32
	Depth       int
	ModuleIndex int
}

// Children iterates the direct children of node in sibling order.
func (t *Tree) Children(node int32) []int32 {
	var out []int32
	for c := t.nodes[node].FirstChild; c != NoIndex; c = t.nodes[c].Next {
		out = append(out, c)
	}
	return out
}

// PreOrder walks the subtree rooted at node in pre-order (parent before
// children), stopping early if fn returns false.
func (t *Tree) PreOrder(node int32, fn func(idx int32) bool) {
	if !fn(node) {
		return
	}
	for c := t.nodes[node].FirstChild; c != NoIndex; c = t.nodes[c].Next {
		t.PreOrder(c, fn)
	}
}

// PostOrder walks the subtree rooted at node in post-order (children before
// parent).
func (t *Tree) PostOrder(node int32, fn func(idx int32)) {
	for c := t.nodes[node].FirstChild; c != NoIndex; c = t.nodes[c].Next {
		t.PostOrder(c, fn)
	}
	fn(node)
}

// Leaves appends every leaf in node's subtree, in left-to-right order, via
// fn. A node with a sub-engine attached is not a leaf (see Node.IsLeaf)
// and has no children, so it contributes nothing here: descending into
// sub-engines is the job of InfomapTree below.
func (t *Tree) Leaves(node int32, fn func(idx int32)) {
	n := &t.nodes[node]
	if n.IsLeaf() {
		fn(node)
		return
	}
	for c := n.FirstChild; c != NoIndex; c = t.nodes[c].Next {
		t.Leaves(c, fn)
	}
}

// LeafSlice is a convenience wrapper around Leaves that materializes the
// result as a slice.
func (t *Tree) LeafSlice(node int32) []int32 {
	var out []int32
	t.Leaves(node, func(idx int32) { out = append(out, idx) })
	return out
}

// IsLeafModule reports whether every child of node is a leaf.
func (t *Tree) IsLeafModule(node int32) bool {
	n := &t.nodes[node]
	if n.IsLeaf() {
		return false
	}
	for c := n.FirstChild; c != NoIndex; c = t.nodes[c].Next {
		if !t.nodes[c].IsLeaf() {
			return false
		}
	}
	return true
}

// LeafModules appends every leaf-module node under node's subtree.
func (t *Tree) LeafModules(node int32, fn func(idx int32)) {
	t.PreOrder(node, func(idx int32) bool {
		if t.IsLeafModule(idx) {
			fn(idx)
			return false
		}
		return true
	})
}

// InfomapTree walks the tree descending through sub-engines: when a node
// carries a sub-engine, the walk continues at the sub-engine's own root
// instead of at this node's (absent) children, and pops back to the
// attaching node's siblings on return. Path and depth accumulate across the
// sub-engine boundary without needing an actual back-pointer between trees.
func (t *Tree) InfomapTree(node int32, fn func(v Visit) bool) {
	moduleIdx := 0
	t.infomapTreeWalk(t, node, nil, 0, &moduleIdx, fn)
}

func (t *Tree) infomapTreeWalk(owner *Tree, node int32, path []uint32, depth int, moduleIdx *int, fn func(v Visit) bool) bool {
	// Substitute a sub-engine's root for node before visiting, exactly
	// once, mirroring moveToInfomapRootIfExist: the attaching node is
	// never itself reported to the caller, only what stands in for it.
	for {
		sub := owner.GetSubEngine(node)
		if sub == nil {
			break
		}
		owner = sub.Tree()
		node = sub.RootIndex()
	}

	n := owner.nodes[node]
	if owner.IsLeafModule(node) || (n.IsLeaf() && depth == 0) {
		*moduleIdx++
	}
	v := Visit{Node: node, Path: append([]uint32(nil), path...), Depth: depth, ModuleIndex: *moduleIdx}
	if !fn(v) {
		return false
	}

	i := uint32(1)
	for c := n.FirstChild; c != NoIndex; c = owner.nodes[c].Next {
		childPath := append(append([]uint32(nil), path...), i)
		if !owner.infomapTreeWalk(owner, c, childPath, depth+1, moduleIdx, fn) {
			return false
		}
		i++
	}
	return true
}

// PhysicalLeafGroup is one physical-node group produced by the
// physical-leaf iterator: several state leaves sharing a physical id,
// lazily merged within a leaf module.
type PhysicalLeafGroup struct {
	PhysicalID uint32
	Leaves     []int32
	TotalFlow  float64
}

// PhysicalLeaves groups the leaves of a leaf module by physical id.
func (t *Tree) PhysicalLeaves(leafModule int32) []PhysicalLeafGroup {
	order := make([]uint32, 0)
	groups := make(map[uint32]*PhysicalLeafGroup)
	for c := t.nodes[leafModule].FirstChild; c != NoIndex; c = t.nodes[c].Next {
		n := &t.nodes[c]
		g, ok := groups[n.PhysicalID]
		if !ok {
			g = &PhysicalLeafGroup{PhysicalID: n.PhysicalID}
			groups[n.PhysicalID] = g
			order = append(order, n.PhysicalID)
		}
		g.Leaves = append(g.Leaves, c)
		g.TotalFlow += n.Data.Flow
	}
	out := make([]PhysicalLeafGroup, 0, len(order))
	for _, pid := range order {
		out = append(out, *groups[pid])
	}
	return out
}
