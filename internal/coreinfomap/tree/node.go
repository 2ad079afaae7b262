// Package tree implements the arena-allocated tree that backs an Infomap
// hierarchy: leaves are the input network's state nodes, interior nodes are
// modules created by consolidation, and an interior node may instead carry a
// nested sub-engine standing in for its children.
package tree

import "math"

// NoIndex is the sentinel value for an absent arena index (a nil pointer in
// the original pointer-based tree).
const NoIndex int32 = -1

// FlowData carries the per-node flow accounting shared by every objective
// variant. Memory and multilayer objectives keep additional maps alongside
// a node rather than widening this struct.
type FlowData struct {
	Flow             float64
	EnterFlow        float64
	ExitFlow         float64
	TeleportFlow     float64
	TeleportWeight   float64
	TeleportSrcFlow  float64
	DanglingFlow     float64
}

// Add accumulates other into the receiver (module consolidation uses this to
// aggregate leaf flow into a parent's FlowData).
func (f *FlowData) Add(other FlowData) {
	f.Flow += other.Flow
	f.EnterFlow += other.EnterFlow
	f.ExitFlow += other.ExitFlow
	f.TeleportFlow += other.TeleportFlow
	f.TeleportSrcFlow += other.TeleportSrcFlow
	f.TeleportWeight += other.TeleportWeight
	f.DanglingFlow += other.DanglingFlow
}

// Sub subtracts other from the receiver.
func (f *FlowData) Sub(other FlowData) {
	f.Flow -= other.Flow
	f.EnterFlow -= other.EnterFlow
	f.ExitFlow -= other.ExitFlow
	f.TeleportFlow -= other.TeleportFlow
	f.TeleportSrcFlow -= other.TeleportSrcFlow
	f.TeleportWeight -= other.TeleportWeight
	f.DanglingFlow -= other.DanglingFlow
}

// PhysData tracks, for a memory-network leaf module, how much flow a single
// physical node contributes.
type PhysData struct {
	PhysNodeIndex      uint32
	SumFlowFromM2Node  float64
}

// LayerTeleFlowData accumulates per-layer teleportation mass for the
// regularized multilayer objective.
type LayerTeleFlowData struct {
	NumNodes       int
	TeleportFlow   float64
	TeleportWeight float64
}

func (l *LayerTeleFlowData) Add(other LayerTeleFlowData) {
	l.NumNodes += other.NumNodes
	l.TeleportFlow += other.TeleportFlow
	l.TeleportWeight += other.TeleportWeight
}

func (l *LayerTeleFlowData) Sub(other LayerTeleFlowData) {
	l.NumNodes -= other.NumNodes
	l.TeleportFlow -= other.TeleportFlow
	l.TeleportWeight -= other.TeleportWeight
}

func (l LayerTeleFlowData) IsEmpty() bool { return l.NumNodes == 0 }

// Node is one entry in a Tree's arena. Parent/sibling/child links are
// 32-bit arena indices rather than pointers: this keeps splice operations
// O(1) without raw-pointer lifetime hazards, and makes "reparent
// grandchildren" branch-predictable.
type Node struct {
	Data FlowData

	// Identity. StateID is unique among leaves; PhysicalID may repeat
	// across leaves of a memory/multilayer network; LayerID is set for
	// multilayer leaves.
	StateID    uint32
	PhysicalID uint32
	LayerID    uint32
	Name       string
	IsLeaf_    bool

	// Topology, as arena indices. NoIndex is the "null" sentinel.
	Parent              int32
	Previous            int32
	Next                int32
	FirstChild          int32
	LastChild           int32
	CollapsedFirstChild int32
	CollapsedLastChild  int32

	childDegree int32

	// Transient optimizer state.
	Index int32 // temporary module index while searching for the best move
	Dirty bool

	// Memory-objective bookkeeping: for a leaf module, one entry per
	// distinct physical id among its leaves.
	PhysicalNodes []PhysData

	Codelength float64

	// SubEngine, when non-negative, is an index into the owning Tree's
	// sub-engine side table and substitutes this node's children for
	// hierarchical recursion. A node never has both real children and a
	// sub-engine at once.
	SubEngine int32
}

func newNode() Node {
	return Node{
		Parent:              NoIndex,
		Previous:            NoIndex,
		Next:                NoIndex,
		FirstChild:          NoIndex,
		LastChild:           NoIndex,
		CollapsedFirstChild: NoIndex,
		CollapsedLastChild:  NoIndex,
		SubEngine:           NoIndex,
	}
}

// ChildDegree returns the number of direct children.
func (n *Node) ChildDegree() int32 { return n.childDegree }

// IsLeaf reports whether the node has no children and no sub-engine.
func (n *Node) IsLeaf() bool { return n.childDegree == 0 && n.SubEngine == NoIndex }

// Edge is a weighted, flow-annotated arc between two leaves, identified by
// their arena indices. Edges never change endpoints once created.
type Edge struct {
	Source int32
	Target int32
	Weight float64
	Flow   float64
}

const epsFlow = 1e-15

// plogp computes -x*log2(x), with 0*log(0) defined as 0.
func plogp(x float64) float64 {
	if x < epsFlow {
		return 0
	}
	return -x * math.Log2(x)
}

// PlogP exports plogp for objective implementations in sibling packages.
func PlogP(x float64) float64 { return plogp(x) }
