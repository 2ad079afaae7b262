package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStar builds root -> {a, b, c} with equal leaf flow, for convenient
// structural assertions.
func buildStar(t *testing.T) (*Tree, int32, []int32) {
	t.Helper()
	tr := New()
	root := tr.Root()
	leaves := make([]int32, 3)
	for i := range leaves {
		leaves[i] = tr.NewLeaf(uint32(i), uint32(i), 0, 1.0/3)
		tr.AddChild(root, leaves[i])
	}
	tr.Node(root).Data.Flow = 1.0
	return tr, root, leaves
}

func TestAddChild_SiblingChainAndDegree(t *testing.T) {
	tr, root, leaves := buildStar(t)

	require.Equal(t, int32(3), tr.Node(root).ChildDegree())
	require.Equal(t, leaves[0], tr.Node(root).FirstChild)
	require.Equal(t, leaves[2], tr.Node(root).LastChild)

	var walked []int32
	for c := tr.Node(root).FirstChild; c != NoIndex; c = tr.Node(c).Next {
		walked = append(walked, c)
	}
	assert.Equal(t, leaves, walked)

	for _, l := range leaves {
		assert.Equal(t, root, tr.Node(l).Parent)
	}
}

func TestAddChild_PanicsOnAlreadyOwnedNode(t *testing.T) {
	tr, root, leaves := buildStar(t)
	other := tr.NewNode()
	assert.Panics(t, func() { tr.AddChild(other, leaves[0]) }, "AddChild must reject a node that already has a parent")
	_ = root
}

func TestReplaceWithChildren_LeafAndRootAreNoOps(t *testing.T) {
	tr, root, leaves := buildStar(t)

	assert.False(t, tr.ReplaceWithChildren(leaves[0]), "replacing a leaf should be a no-op")
	assert.False(t, tr.ReplaceWithChildren(root), "replacing the root should be a no-op")
}

func TestReplaceWithChildren_SplicesIntoSiblingPosition(t *testing.T) {
	tr := New()
	root := tr.Root()

	a := tr.NewLeaf(0, 0, 0, 0.2)
	module := tr.NewNode()
	c := tr.NewLeaf(2, 2, 0, 0.3)
	tr.AddChild(root, a)
	tr.AddChild(root, module)
	tr.AddChild(root, c)

	b1 := tr.NewLeaf(1, 1, 0, 0.2)
	b2 := tr.NewLeaf(3, 3, 0, 0.3)
	tr.AddChild(module, b1)
	tr.AddChild(module, b2)

	require.True(t, tr.ReplaceWithChildren(module))

	var order []int32
	for c := tr.Node(root).FirstChild; c != NoIndex; c = tr.Node(c).Next {
		order = append(order, c)
	}
	assert.Equal(t, []int32{a, b1, b2, c}, order)
	assert.Equal(t, int32(4), tr.Node(root).ChildDegree())
	for _, n := range []int32{a, b1, b2, c} {
		assert.Equal(t, root, tr.Node(n).Parent)
	}
}

func TestReplaceChildrenWithGrandChildren(t *testing.T) {
	tr := New()
	root := tr.Root()
	m1 := tr.NewNode()
	m2 := tr.NewNode()
	tr.AddChild(root, m1)
	tr.AddChild(root, m2)

	l1 := tr.NewLeaf(0, 0, 0, 0.5)
	l2 := tr.NewLeaf(1, 1, 0, 0.5)
	tr.AddChild(m1, l1)
	tr.AddChild(m2, l2)

	removed := tr.ReplaceChildrenWithGrandChildren(root)
	assert.Equal(t, 2, removed)
	assert.Equal(t, int32(2), tr.Node(root).ChildDegree())
	assert.Equal(t, root, tr.Node(l1).Parent)
	assert.Equal(t, root, tr.Node(l2).Parent)
}

func TestCollapseExpandChildren(t *testing.T) {
	tr, root, leaves := buildStar(t)

	n := tr.CollapseChildren(root)
	assert.Equal(t, 3, n)
	assert.Equal(t, int32(0), tr.Node(root).ChildDegree())
	assert.Equal(t, NoIndex, tr.Node(root).FirstChild)

	assert.Panics(t, func() { tr.CollapseChildren(root) }, "collapsing an already-collapsed node is a bug")

	m := tr.ExpandChildren(root)
	assert.Equal(t, 3, m)
	assert.Equal(t, int32(3), tr.Node(root).ChildDegree())
	assert.Equal(t, leaves[0], tr.Node(root).FirstChild)
}

func TestLeaves_DescendsPastModules(t *testing.T) {
	tr := New()
	root := tr.Root()
	m := tr.NewNode()
	l1 := tr.NewLeaf(0, 0, 0, 0.3)
	l2 := tr.NewLeaf(1, 1, 0, 0.3)
	l3 := tr.NewLeaf(2, 2, 0, 0.4)
	tr.AddChild(root, m)
	tr.AddChild(m, l1)
	tr.AddChild(m, l2)
	tr.AddChild(root, l3)

	assert.Equal(t, []int32{l1, l2, l3}, tr.LeafSlice(root))
}

func TestIsLeafModule(t *testing.T) {
	tr := New()
	root := tr.Root()
	m := tr.NewNode()
	l1 := tr.NewLeaf(0, 0, 0, 0.5)
	l2 := tr.NewLeaf(1, 1, 0, 0.5)
	tr.AddChild(root, m)
	tr.AddChild(m, l1)
	tr.AddChild(m, l2)

	assert.False(t, tr.IsLeafModule(root), "root has a module child, not all leaves")
	assert.True(t, tr.IsLeafModule(m))
	assert.False(t, tr.IsLeafModule(l1), "a leaf is not itself a leaf module")
}

func TestCalculatePath(t *testing.T) {
	tr := New()
	root := tr.Root()
	m := tr.NewNode()
	l1 := tr.NewLeaf(0, 0, 0, 0.5)
	l2 := tr.NewLeaf(1, 1, 0, 0.5)
	l0 := tr.NewLeaf(2, 2, 0, 0.5)
	tr.AddChild(root, l0)
	tr.AddChild(root, m)
	tr.AddChild(m, l1)
	tr.AddChild(m, l2)

	assert.Equal(t, []uint32{1}, tr.CalculatePath(l0))
	assert.Equal(t, []uint32{2, 1}, tr.CalculatePath(l1))
	assert.Equal(t, []uint32{2, 2}, tr.CalculatePath(l2))
}

func TestCheckInvariants_FlowConservation(t *testing.T) {
	tr, root, _ := buildStar(t)
	require.NoError(t, tr.CheckInvariants())

	tr.Node(root).Data.Flow = 2.0 // flow no longer equals the sum of children
	err := tr.CheckInvariants()
	assert.Error(t, err)
}

func TestPhysicalLeaves_GroupsByPhysicalID(t *testing.T) {
	tr := New()
	root := tr.Root()
	l1 := tr.NewLeaf(0, 10, 0, 0.2) // physical id 10
	l2 := tr.NewLeaf(1, 10, 1, 0.3) // same physical id, different layer
	l3 := tr.NewLeaf(2, 20, 0, 0.5)
	tr.AddChild(root, l1)
	tr.AddChild(root, l2)
	tr.AddChild(root, l3)

	groups := tr.PhysicalLeaves(root)
	require.Len(t, groups, 2)
	assert.Equal(t, uint32(10), groups[0].PhysicalID)
	assert.Len(t, groups[0].Leaves, 2)
	assert.InDelta(t, 0.5, groups[0].TotalFlow, 1e-12)
	assert.Equal(t, uint32(20), groups[1].PhysicalID)
}

func TestAddEdge_AdjacencyLists(t *testing.T) {
	tr := New()
	a := tr.NewLeaf(0, 0, 0, 0.5)
	b := tr.NewLeaf(1, 1, 0, 0.5)
	tr.AddEdge(a, b, 2.0)

	require.Len(t, tr.OutEdges(a), 1)
	require.Len(t, tr.InEdges(b), 1)
	e := tr.Edge(tr.OutEdges(a)[0])
	assert.Equal(t, a, e.Source)
	assert.Equal(t, b, e.Target)
	assert.InDelta(t, 2.0, e.Weight, 1e-12)
}

func TestInfomapTree_SubEngineSubstitution(t *testing.T) {
	outer := New()
	root := outer.Root()
	m := outer.NewNode()
	outer.AddChild(root, m)

	sub := New()
	subRoot := sub.Root()
	sl1 := sub.NewLeaf(0, 0, 0, 0.5)
	sl2 := sub.NewLeaf(1, 1, 0, 0.5)
	sub.AddChild(subRoot, sl1)
	sub.AddChild(subRoot, sl2)

	outer.SetSubEngine(m, fakeSubEngine{tree: sub, root: subRoot})

	var visited []int32
	outer.InfomapTree(root, func(v Visit) bool {
		visited = append(visited, v.Node)
		return true
	})
	// root, then the sub-engine's root substituted in place of m, then its leaves.
	assert.Equal(t, []int32{root, subRoot, sl1, sl2}, visited)
}

type fakeSubEngine struct {
	tree *Tree
	root int32
}

func (f fakeSubEngine) RootIndex() int32 { return f.root }
func (f fakeSubEngine) Tree() *Tree      { return f.tree }
