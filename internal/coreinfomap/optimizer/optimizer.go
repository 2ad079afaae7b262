// Package optimizer implements the greedy, Louvain-style module-assignment
// search that drives one level of Infomap: repeatedly try moving each node
// into whichever neighboring module would most reduce the codelength,
// until a pass makes no further improvement, then consolidate.
package optimizer

import (
	"context"
	"math/rand"
	"sort"

	"github.com/mapequation/infomap-go/internal/coreinfomap/objective"
	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
)

// Config controls how hard the optimizer searches before giving up.
type Config struct {
	Seed                       int64
	CoreLoopLimit              int     // 0 means unlimited
	MinSingleNodeImprovement   float64 // a move below this magnitude isn't worth making
	TuneIterationLimit         int
	MinImprovement             float64
	TuneIterationRelativeThreshold float64
	InnerParallelization       bool
}

// DefaultConfig mirrors the original's tuned defaults: a tiny per-move
// floor and a generous (effectively unbounded) core loop limit.
func DefaultConfig() Config {
	return Config{
		Seed:                     123,
		CoreLoopLimit:            0,
		MinSingleNodeImprovement: 1e-10,
		TuneIterationLimit:       0,
		MinImprovement:           1e-10,
	}
}

// Optimizer owns one greedy-move search over a single parent's children. A
// fresh Optimizer is created per tuning pass; nothing here is safe to reuse
// across passes with a different active network.
type Optimizer struct {
	cfg       Config
	objective objective.Objective
	tree      *tree.Tree
	rand      *rand.Rand

	activeNetwork []int32 // tree node indices being optimized, all siblings under one parent
	activeIndex   map[int32]int // lazily built inverse of activeNetwork
	moduleOf      []int32 // index into moduleFlow/moduleMembers, parallel to activeNetwork
	moduleFlow    []tree.FlowData
	moduleMembers []int
	emptyModules  []int32 // module slots emptied by a move, in the order they emptied; no move targets them again

	// modulePhys tracks, per module index, how much flow of each physical
	// id currently sits there. It is the real membership bookkeeping the
	// memory objective's physical-overlap term reads through
	// AddMemoryContributions, maintained incrementally alongside moduleOf
	// so no candidate-module index ever needs to be reinterpreted as a
	// tree node.
	modulePhys []map[uint32]objective.PhysicalOverlap
}

// New constructs an Optimizer bound to obj. Two optimizers sharing an
// objective must not run concurrently; each level/trial gets its own.
func New(obj objective.Objective, cfg Config) *Optimizer {
	return &Optimizer{
		cfg:       cfg,
		objective: obj,
		rand:      rand.New(rand.NewSource(cfg.Seed)),
	}
}

// InitPartition starts from the singleton partition: every child of parent
// is its own module. This is the entry state for fine-tuning a freshly
// split level.
func (o *Optimizer) InitPartition(t *tree.Tree, parent int32) {
	o.tree = t
	o.activeNetwork = t.Children(parent)
	o.activeIndex = nil
	n := len(o.activeNetwork)
	o.moduleOf = make([]int32, n)
	o.moduleFlow = make([]tree.FlowData, n)
	o.moduleMembers = make([]int, n)
	o.modulePhys = make([]map[uint32]objective.PhysicalOverlap, n)
	o.emptyModules = nil

	leaves := make([]int32, n)
	for i, node := range o.activeNetwork {
		o.moduleOf[i] = int32(i)
		o.moduleFlow[i] = t.Node(node).Data
		o.moduleMembers[i] = 1
		nd := t.Node(node)
		o.modulePhys[i] = map[uint32]objective.PhysicalOverlap{
			nd.PhysicalID: {Count: 1, SummedFlow: nd.Data.Flow},
		}
		leaves[i] = node
	}
	o.objective.InitPartition(t, leaves, o.moduleOf, o.moduleFlow)
}

// InitPredefinedPartition starts from an existing module assignment
// (coarse-tuning re-enters the search at the current module structure
// instead of the singleton partition).
func (o *Optimizer) InitPredefinedPartition(t *tree.Tree, parent int32, moduleOf []int32) {
	o.tree = t
	o.activeNetwork = t.Children(parent)
	o.activeIndex = nil
	n := len(o.activeNetwork)
	numModules := 0
	for _, m := range moduleOf {
		if m+1 > int32(numModules) {
			numModules = int(m) + 1
		}
	}
	o.moduleOf = append([]int32(nil), moduleOf...)
	o.moduleFlow = make([]tree.FlowData, numModules)
	o.moduleMembers = make([]int, numModules)
	o.modulePhys = make([]map[uint32]objective.PhysicalOverlap, numModules)
	o.emptyModules = nil

	leaves := make([]int32, n)
	for i, node := range o.activeNetwork {
		leaves[i] = node
		o.moduleFlow[o.moduleOf[i]].Add(t.Node(node).Data)
		o.moduleMembers[o.moduleOf[i]]++
		o.addPhysFlow(o.moduleOf[i], t.Node(node).PhysicalID, t.Node(node).Data.Flow)
	}
	o.objective.InitPartition(t, leaves, o.moduleOf, o.moduleFlow)
}

// addPhysFlow and removePhysFlow are the only two places modulePhys is
// mutated outside initialization, keeping it in lockstep with moduleOf.
func (o *Optimizer) addPhysFlow(module int32, physID uint32, flow float64) {
	if o.modulePhys[module] == nil {
		o.modulePhys[module] = make(map[uint32]objective.PhysicalOverlap)
	}
	ov := o.modulePhys[module][physID]
	ov.Count++
	ov.SummedFlow += flow
	o.modulePhys[module][physID] = ov
}

func (o *Optimizer) removePhysFlow(module int32, physID uint32, flow float64) {
	ov, ok := o.modulePhys[module][physID]
	if !ok {
		return
	}
	ov.Count--
	ov.SummedFlow -= flow
	if ov.Count <= 0 {
		delete(o.modulePhys[module], physID)
		return
	}
	o.modulePhys[module][physID] = ov
}

// neighbourDelta builds the per-candidate-module DeltaFlow aggregate for
// node i, scanning both its outgoing and incoming edges so undirected and
// directed networks share one code path: an undirected edge is represented
// as two directed edges of equal flow, so it naturally contributes to both
// DeltaExit and DeltaEnter.
func (o *Optimizer) neighbourDelta(nodeIdx int) map[int32]*objective.DeltaFlow {
	node := o.activeNetwork[nodeIdx]
	deltas := make(map[int32]*objective.DeltaFlow)

	ownModule := o.moduleOf[nodeIdx]
	deltas[ownModule] = &objective.DeltaFlow{Module: ownModule}

	for _, eIdx := range o.tree.OutEdges(node) {
		e := o.tree.Edge(eIdx)
		j, ok := o.activeIndexOf(e.Target)
		if !ok {
			continue
		}
		m := o.moduleOf[j]
		d, ok := deltas[m]
		if !ok {
			d = &objective.DeltaFlow{Module: m}
			deltas[m] = d
		}
		d.DeltaExit += e.Flow
	}
	for _, eIdx := range o.tree.InEdges(node) {
		e := o.tree.Edge(eIdx)
		j, ok := o.activeIndexOf(e.Source)
		if !ok {
			continue
		}
		m := o.moduleOf[j]
		d, ok := deltas[m]
		if !ok {
			d = &objective.DeltaFlow{Module: m}
			deltas[m] = d
		}
		d.DeltaEnter += e.Flow
	}
	physID := o.tree.Node(node).PhysicalID
	existing := make(map[int32]objective.PhysicalOverlap, len(deltas))
	for m := range deltas {
		existing[m] = o.modulePhys[m][physID]
	}
	o.objective.AddMemoryContributions(o.tree, node, *deltas[ownModule], deltas, existing)
	return deltas
}

// activeIndexOf resolves a tree node index back to its position in
// activeNetwork. The active network is small enough per level that a
// linear scan over a cached map is cheap to build once per pass.
func (o *Optimizer) activeIndexOf(node int32) (int, bool) {
	if o.activeIndex == nil {
		o.activeIndex = make(map[int32]int, len(o.activeNetwork))
		for i, n := range o.activeNetwork {
			o.activeIndex[n] = i
		}
	}
	i, ok := o.activeIndex[node]
	return i, ok
}

// TryMoveEachNodeIntoBestModule runs one pass over every active node in
// random order, moving each into whichever touched module (including
// staying put) minimizes the codelength. It returns the number of nodes
// actually moved and the total codelength improvement from the pass.
func (o *Optimizer) TryMoveEachNodeIntoBestModule(ctx context.Context) (movedCount int, improvement float64, err error) {
	order := o.rand.Perm(len(o.activeNetwork))
	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			return movedCount, improvement, err
		}
		delta := o.bestMoveFor(idx)
		if delta == nil {
			continue
		}
		movedCount++
		improvement += -delta.codelengthDelta
		o.applyMove(idx, delta)
	}
	return movedCount, improvement, nil
}

type candidateMove struct {
	oldDelta, newDelta objective.DeltaFlow
	codelengthDelta    float64
}

// bestMoveFor returns the best strictly-improving move for activeNetwork
// index idx, or nil if staying put is already optimal (within
// MinSingleNodeImprovement). Candidate modules are visited in sorted
// order so that exact ties resolve deterministically instead of by map
// iteration order.
func (o *Optimizer) bestMoveFor(idx int) *candidateMove {
	deltas := o.neighbourDelta(idx)
	ownModule := o.moduleOf[idx]
	own := *deltas[ownModule]

	mods := make([]int32, 0, len(deltas))
	for m := range deltas {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })

	best := -o.cfg.MinSingleNodeImprovement
	var bestMove *candidateMove
	for _, m := range mods {
		if m == ownModule {
			continue
		}
		cand := *deltas[m]
		d := o.objective.DeltaCodelengthOnMove(o.tree, o.activeNetwork[idx], own, cand, o.moduleFlow, o.moduleMembers)
		if d < best {
			best = d
			bestMove = &candidateMove{oldDelta: own, newDelta: cand, codelengthDelta: d}
		}
	}
	return bestMove
}

func (o *Optimizer) applyMove(idx int, move *candidateMove) {
	node := o.activeNetwork[idx]
	o.objective.UpdateOnMove(o.tree, node, move.oldDelta, move.newDelta, o.moduleFlow, o.moduleMembers)

	nd := o.tree.Node(node)
	o.removePhysFlow(move.oldDelta.Module, nd.PhysicalID, nd.Data.Flow)
	o.addPhysFlow(move.newDelta.Module, nd.PhysicalID, nd.Data.Flow)

	if o.moduleMembers[move.oldDelta.Module] == 0 {
		o.emptyModules = append(o.emptyModules, move.oldDelta.Module)
	}
	o.moduleOf[idx] = move.newDelta.Module
}

// OptimizeModules repeatedly runs TryMoveEachNodeIntoBestModule until a
// pass fails to reach MinImprovement or CoreLoopLimit passes have run,
// whichever comes first; CoreLoopLimit == 0 means unlimited.
func (o *Optimizer) OptimizeModules(ctx context.Context) (totalImprovement float64, passes int, err error) {
	for o.cfg.CoreLoopLimit == 0 || passes < o.cfg.CoreLoopLimit {
		moved, improvement, perr := o.TryMoveEachNodeIntoBestModule(ctx)
		if perr != nil {
			return totalImprovement, passes, perr
		}
		passes++
		totalImprovement += improvement
		if moved == 0 || improvement < o.cfg.MinImprovement {
			break
		}
	}
	return totalImprovement, passes, nil
}

// ModuleOf returns the resulting module assignment, parallel to
// ActiveNetwork().
func (o *Optimizer) ModuleOf() []int32 { return o.moduleOf }

// ActiveNetwork returns the tree node indices this optimizer is searching
// over.
func (o *Optimizer) ActiveNetwork() []int32 { return o.activeNetwork }

// NumModules returns the count of modules still holding at least one
// member.
func (o *Optimizer) NumModules() int {
	n := 0
	for _, c := range o.moduleMembers {
		if c > 0 {
			n++
		}
	}
	return n
}

// ModuleFlow exposes the per-module flow accumulators, e.g. for
// consolidation.
func (o *Optimizer) ModuleFlow() []tree.FlowData { return o.moduleFlow }
