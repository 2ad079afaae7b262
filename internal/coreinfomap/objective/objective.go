// Package objective implements the map-equation variants behind a single
// interface (spec component C): the plain map equation, the memory (second
// order) map equation, the meta-data map equation, the biased map equation,
// and the regularized multilayer map equation. The optimizer package drives
// an Objective without knowing which variant it holds.
package objective

import (
	"math"

	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
)

// Variant selects which map-equation flavor to construct.
type Variant string

const (
	VariantPlain      Variant = "map-equation"
	VariantMemory     Variant = "memory-map-equation"
	VariantMeta       Variant = "meta-map-equation"
	VariantBiased     Variant = "biased-map-equation"
	VariantMultilayer Variant = "regularized-multilayer-map-equation"
)

// Config fixes the constants an Objective needs at construction time, one
// field per tunable option exposed on the command line and config file.
type Config struct {
	MarkovTime float64 // multiplier applied to edge flow before optimization

	// Biased map equation.
	PreferredNumModules int
	Gamma               float64

	// Meta map equation.
	MetaDataRate       float64
	MetaDataUnweighted bool

	// Regularized multilayer map equation.
	MultilayerRelaxRate     float64
	MultilayerRelaxLimit    int
	MultilayerRelaxLimitUp  int
	MultilayerRelaxLimitDown int
}

// DeltaFlow is the per-candidate-module aggregate a node's touching edges
// contribute, built by the optimizer's inner loop and consumed by
// DeltaCodelengthOnMove / UpdateOnMove. DeltaExit is flow leaving the node
// into the candidate module, DeltaEnter is flow entering the node from it.
type DeltaFlow struct {
	Module    int32
	DeltaExit float64
	DeltaEnter float64
	Count     uint32

	// Memory-objective cross terms, filled in by AddMemoryContributions;
	// zero and unused by the plain objective.
	SumDeltaPlogPPhysFlow float64
	SumPlogPPhysFlow      float64
}

// PhysicalOverlap is how much of a physical node's flow the optimizer has
// already assigned to a candidate module, aggregated across whichever
// state nodes currently sit there. The optimizer maintains this as part of
// its own moduleOf bookkeeping and hands it to AddMemoryContributions by
// value, so the memory objective reads real module membership instead of
// needing to resolve a virtual candidate-module index back into the tree.
type PhysicalOverlap struct {
	Count      int
	SummedFlow float64
}

// Add accumulates other into the receiver, as the optimizer does when a
// node has several edges to the same candidate module.
func (d *DeltaFlow) Add(other DeltaFlow) {
	d.Module = other.Module
	d.DeltaExit += other.DeltaExit
	d.DeltaEnter += other.DeltaEnter
	d.Count++
	d.SumDeltaPlogPPhysFlow += other.SumDeltaPlogPPhysFlow
	d.SumPlogPPhysFlow += other.SumPlogPPhysFlow
}

// Objective is the capability set every map-equation variant implements,
// letting the optimizer drive any of them through one interface.
type Objective interface {
	Init(cfg Config)
	InitNetwork(t *tree.Tree, root int32)
	InitSuperNetwork(t *tree.Tree, root int32)
	InitSubNetwork(t *tree.Tree, root int32)
	InitPartition(t *tree.Tree, leaves []int32, moduleOf []int32, moduleFlow []tree.FlowData)

	// CalcCodelength computes the codelength over the leaves of parent's
	// subtree under the current assignment.
	CalcCodelength(t *tree.Tree, parent int32) float64

	// DeltaCodelengthOnMove returns the *change* in codelength if node
	// moved from oldDelta.Module to newDelta.Module, given the current
	// moduleFlow/moduleMembers snapshot.
	DeltaCodelengthOnMove(t *tree.Tree, node int32, oldDelta, newDelta DeltaFlow, moduleFlow []tree.FlowData, moduleMembers []int) float64

	// UpdateOnMove applies the same move to moduleFlow/moduleMembers and
	// to any internal codelength terms the objective tracks.
	UpdateOnMove(t *tree.Tree, node int32, oldDelta, newDelta DeltaFlow, moduleFlow []tree.FlowData, moduleMembers []int)

	// AddMemoryContributions enriches perNeighbour with cross-term deltas;
	// a no-op for objectives without cross-module redundancy terms. existing
	// holds, per candidate module in perNeighbour, the physical-flow
	// overlap the optimizer has already accumulated there for node's
	// physical id (zero value if none).
	AddMemoryContributions(t *tree.Tree, node int32, oldDelta DeltaFlow, perNeighbour map[int32]*DeltaFlow, existing map[int32]PhysicalOverlap)

	// ConsolidateModules absorbs the current assignment into the tree,
	// clearing any stale per-partition state.
	ConsolidateModules(t *tree.Tree, modules []int32)

	Codelength() float64
	IndexCodelength() float64
	ModuleCodelength() float64

	// NumModulesDelta reports how num-modules-bookkeeping would change on
	// a hypothetical move; only the biased objective uses this.
	NumModulesDelta(oldMembersAfter, newMembersBefore int) int
}

// plogp computes -x*log2(x) with 0*log(0) = 0, shared by every variant.
func plogp(x float64) float64 { return tree.PlogP(x) }

func logBase2(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Log2(x)
}
