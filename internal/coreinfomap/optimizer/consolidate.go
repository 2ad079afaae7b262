package optimizer

import (
	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
	"github.com/mapequation/infomap-go/pkg/collections"
)

// Consolidate materializes the optimizer's current module assignment into
// the tree: one new module node per surviving module, each active node
// reparented under its module, and a super-network of edges between module
// nodes built by aggregating every edge that crosses a module boundary.
// Returns the new module node indices in ascending original-module order,
// skipping modules left empty, so the result has NumModules() entries,
// which may be fewer than the number of module slots.
func (o *Optimizer) Consolidate(parent int32) []int32 {
	t := o.tree
	numOldModules := len(o.moduleFlow)
	newModuleNode := make([]int32, numOldModules)
	for i := range newModuleNode {
		newModuleNode[i] = tree.NoIndex
	}

	// alive tracks which module slots still hold members; a Bitset beats
	// a second int32 slice here since numOldModules can run into the tens
	// of thousands at a coarse level and most slots are sparse survivors
	// after a pass of merges.
	alive := collections.NewBitset(numOldModules)
	for m := int32(0); m < int32(numOldModules); m++ {
		if o.moduleMembers[m] > 0 {
			alive.Set(int(m))
		}
	}
	orderPtr := collections.GetInt32Slice()
	defer collections.PutInt32Slice(orderPtr)
	order := (*orderPtr)[:0]
	alive.Iterate(func(i int) bool {
		order = append(order, int32(i))
		return true
	})
	*orderPtr = order

	for _, m := range order {
		node := t.NewNode()
		t.Node(node).Data = o.moduleFlow[m]
		newModuleNode[m] = node
	}

	// Detach the active nodes from parent so AddChild can reparent them.
	t.CollapseChildren(parent)
	pn := t.Node(parent)
	pn.CollapsedFirstChild, pn.CollapsedLastChild = tree.NoIndex, tree.NoIndex
	for _, activeNode := range o.activeNetwork {
		an := t.Node(activeNode)
		an.Parent, an.Previous, an.Next = tree.NoIndex, tree.NoIndex, tree.NoIndex
	}

	for i, activeNode := range o.activeNetwork {
		m := o.moduleOf[i]
		t.AddChild(newModuleNode[m], activeNode)
	}
	for _, m := range order {
		t.AddChild(parent, newModuleNode[m])
	}

	o.buildSuperEdges(newModuleNode)

	out := make([]int32, len(order))
	for i, m := range order {
		out[i] = newModuleNode[m]
	}
	return out
}

// buildSuperEdges sums every activeNetwork edge whose endpoints land in
// different modules into one edge between the corresponding module nodes,
// so the next coarser level's optimizer can run over module nodes exactly
// as this one ran over leaves.
func (o *Optimizer) buildSuperEdges(newModuleNode []int32) {
	t := o.tree
	type key struct{ from, to int32 }
	agg := make(map[key]float64)

	for i, node := range o.activeNetwork {
		fromModule := o.moduleOf[i]
		for _, eIdx := range t.OutEdges(node) {
			e := t.Edge(eIdx)
			j, ok := o.activeIndexOf(e.Target)
			if !ok {
				continue
			}
			toModule := o.moduleOf[j]
			if toModule == fromModule {
				continue
			}
			agg[key{newModuleNode[fromModule], newModuleNode[toModule]}] += e.Flow
		}
	}
	for k, flow := range agg {
		idx := t.AddEdge(k.from, k.to, flow)
		t.Edge(idx).Flow = flow
	}
}
