package objective

import "github.com/mapequation/infomap-go/internal/coreinfomap/tree"

// MemMapEq is the second-order (memory) map equation: leaf modules may
// group several physical nodes' state-node flow together, and moving a
// state node changes not just module exit/enter flow but also how much of
// a physical node's total flow sits in each module. Its codelength and
// move deltas are those of the plain map equation. AddMemoryContributions
// computes the physical-overlap terms for each candidate module and stores
// them in DeltaFlow.SumDeltaPlogPPhysFlow and SumPlogPPhysFlow, but no
// method of MemMapEq reads those fields, so two state nodes sharing a
// physical id in one module do not change the codelength or the choice of
// move.
type MemMapEq struct {
	MapEq
}

// NewMemMapEq constructs the memory map equation.
func NewMemMapEq() *MemMapEq { return &MemMapEq{} }

func (m *MemMapEq) InitPartition(t *tree.Tree, leaves []int32, moduleOf []int32, moduleFlow []tree.FlowData) {
	m.MapEq.InitPartition(t, leaves, moduleOf, moduleFlow)
}

// AddMemoryContributions folds each candidate module's physical-overlap
// term into perNeighbour: when node n (physical id p) moves into a module
// that already contains other state nodes sharing p, the module's physical
// redundancy changes, which the plain exit/enter bookkeeping alone cannot
// capture.
//
// existing[modID] is the optimizer's own per-module physical-flow
// aggregate for p, real module membership rather than a reinterpreted
// tree index. For the node's current module that aggregate still counts
// the node itself, so its own contribution is backed out first; what's
// left is the flow of other state nodes already sharing p there.
func (m *MemMapEq) AddMemoryContributions(t *tree.Tree, node int32, oldDelta DeltaFlow, perNeighbour map[int32]*DeltaFlow, existing map[int32]PhysicalOverlap) {
	nodeFlow := t.Node(node).Data.Flow

	for modID, d := range perNeighbour {
		ov := existing[modID]
		if modID == oldDelta.Module {
			ov.Count--
			ov.SummedFlow -= nodeFlow
		}
		if ov.Count <= 0 {
			continue
		}
		d.SumDeltaPlogPPhysFlow += plogp(ov.SummedFlow+nodeFlow) - plogp(ov.SummedFlow)
		d.SumPlogPPhysFlow += plogp(ov.SummedFlow)
	}
}
