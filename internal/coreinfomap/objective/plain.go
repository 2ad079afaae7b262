package objective

import "github.com/mapequation/infomap-go/internal/coreinfomap/tree"

// MapEq is the plain (first-order) map equation: two-part description
// length of a compressed random walk over a one-level partition, with no
// memory, meta-data, bias, or multilayer terms.
type MapEq struct {
	cfg Config

	// nodeFlowLogNodeFlow is the constant entropy term of the leaf flow
	// distribution; it never changes once the network is loaded, since it
	// doesn't depend on the partition.
	nodeFlowLogNodeFlow float64

	// exitNetworkFlow is the running sum of every module's exit flow
	// (Σq), kept incrementally by UpdateOnMove rather than recomputed on
	// every candidate move.
	exitNetworkFlow float64

	codelength       float64
	indexCodelength  float64
	moduleCodelength float64
}

// NewMapEq constructs the plain map equation.
func NewMapEq() *MapEq { return &MapEq{} }

func (m *MapEq) Init(cfg Config) { m.cfg = cfg }

func (m *MapEq) InitNetwork(t *tree.Tree, root int32) {
	m.nodeFlowLogNodeFlow = 0
	t.Leaves(root, func(idx int32) {
		m.nodeFlowLogNodeFlow += plogp(t.Node(idx).Data.Flow)
	})
}

func (m *MapEq) InitSuperNetwork(t *tree.Tree, root int32) { m.InitNetwork(t, root) }
func (m *MapEq) InitSubNetwork(t *tree.Tree, root int32)   { m.InitNetwork(t, root) }

func (m *MapEq) InitPartition(t *tree.Tree, leaves []int32, moduleOf []int32, moduleFlow []tree.FlowData) {
	m.exitNetworkFlow = 0
	for i := range moduleFlow {
		m.exitNetworkFlow += moduleFlow[i].ExitFlow
	}
	m.CalcCodelength(t, t.Root())
}

// calcCodelengthOneLevel is the raw entropy of the leaf flow distribution,
// used whenever a subtree has zero or one module: there is nothing to
// index, so the two-part formula degenerates to a single codebook rather
// than to a zeroed-out version of the two-part one.
func (m *MapEq) calcCodelengthOneLevel(t *tree.Tree, parent int32) float64 {
	sum := 0.0
	t.Leaves(parent, func(idx int32) {
		sum += plogp(t.Node(idx).Data.Flow)
	})
	return sum
}

func (m *MapEq) CalcCodelength(t *tree.Tree, parent int32) float64 {
	children := t.Children(parent)
	if len(children) <= 1 {
		m.indexCodelength = 0
		m.moduleCodelength = m.calcCodelengthOneLevel(t, parent)
		m.codelength = m.moduleCodelength
		return m.codelength
	}

	sumQ, flowLogFlowSum, exitLogExitSum := 0.0, 0.0, 0.0
	for _, c := range children {
		n := t.Node(c)
		p, q := n.Data.Flow, n.Data.ExitFlow
		sumQ += q
		flowLogFlowSum += plogp(p + q)
		exitLogExitSum += plogp(q)
	}
	nodeFlowLogNodeFlow := 0.0
	t.Leaves(parent, func(idx int32) {
		nodeFlowLogNodeFlow += plogp(t.Node(idx).Data.Flow)
	})

	m.indexCodelength = exitLogExitSum - plogp(sumQ)
	m.moduleCodelength = nodeFlowLogNodeFlow + exitLogExitSum - flowLogFlowSum
	m.codelength = m.indexCodelength + m.moduleCodelength
	return m.codelength
}

// DeltaCodelengthOnMove isolates the two module terms that change (the
// source and destination modules) and the single global Σq term; every
// other module's contribution to the codelength is untouched by moving one
// node, so it is never recomputed.
func (m *MapEq) DeltaCodelengthOnMove(t *tree.Tree, node int32, oldDelta, newDelta DeltaFlow, moduleFlow []tree.FlowData, moduleMembers []int) float64 {
	if oldDelta.Module == newDelta.Module {
		return 0
	}
	oldM := moduleFlow[oldDelta.Module]
	newM := moduleFlow[newDelta.Module]
	nodeFlow := t.Node(node).Data.Flow
	nodeExit := t.Node(node).Data.ExitFlow

	sumQBefore := m.exitNetworkFlow
	exitBefore := plogp(oldM.ExitFlow) + plogp(newM.ExitFlow)
	flowBefore := plogp(oldM.Flow+oldM.ExitFlow) + plogp(newM.Flow+newM.ExitFlow)

	oldExitAfter := oldM.ExitFlow - nodeExit + oldDelta.DeltaExit + oldDelta.DeltaEnter
	newExitAfter := newM.ExitFlow + nodeExit - newDelta.DeltaExit - newDelta.DeltaEnter
	oldFlowAfter := oldM.Flow - nodeFlow
	newFlowAfter := newM.Flow + nodeFlow

	sumQAfter := sumQBefore - oldM.ExitFlow - newM.ExitFlow + oldExitAfter + newExitAfter
	exitAfter := plogp(oldExitAfter) + plogp(newExitAfter)
	flowAfter := plogp(oldFlowAfter+oldExitAfter) + plogp(newFlowAfter+newExitAfter)

	return -(plogp(sumQAfter) - plogp(sumQBefore)) + 2*(exitAfter-exitBefore) - (flowAfter - flowBefore)
}

func (m *MapEq) UpdateOnMove(t *tree.Tree, node int32, oldDelta, newDelta DeltaFlow, moduleFlow []tree.FlowData, moduleMembers []int) {
	if oldDelta.Module == newDelta.Module {
		return
	}
	nd := t.Node(node).Data
	nodeFlow := nd.Flow
	oldM := &moduleFlow[oldDelta.Module]
	newM := &moduleFlow[newDelta.Module]

	m.exitNetworkFlow -= oldM.ExitFlow + newM.ExitFlow

	oldDeltaEnterExit := oldDelta.DeltaEnter + oldDelta.DeltaExit
	oldM.ExitFlow += oldDeltaEnterExit - nd.ExitFlow
	oldM.EnterFlow += oldDeltaEnterExit - nd.EnterFlow
	oldM.Flow -= nodeFlow

	newDeltaEnterExit := newDelta.DeltaEnter + newDelta.DeltaExit
	newM.ExitFlow += nd.ExitFlow - newDeltaEnterExit
	newM.EnterFlow += nd.EnterFlow - newDeltaEnterExit
	newM.Flow += nodeFlow

	m.exitNetworkFlow += oldM.ExitFlow + newM.ExitFlow

	moduleMembers[oldDelta.Module]--
	moduleMembers[newDelta.Module]++
}

func (m *MapEq) AddMemoryContributions(t *tree.Tree, node int32, oldDelta DeltaFlow, perNeighbour map[int32]*DeltaFlow, existing map[int32]PhysicalOverlap) {
	// The plain objective has no cross-module redundancy term to add.
}

func (m *MapEq) ConsolidateModules(t *tree.Tree, modules []int32) {
	m.CalcCodelength(t, t.Root())
}

func (m *MapEq) Codelength() float64       { return m.codelength }
func (m *MapEq) IndexCodelength() float64  { return m.indexCodelength }
func (m *MapEq) ModuleCodelength() float64 { return m.moduleCodelength }

func (m *MapEq) NumModulesDelta(oldMembersAfter, newMembersBefore int) int {
	delta := 0
	if oldMembersAfter == 0 {
		delta--
	}
	if newMembersBefore == 0 {
		delta++
	}
	return delta
}
