// Package engine orchestrates the full Infomap search: flow calculation,
// fine-tune, coarse-tune, hierarchical recursion into sub-modules, and
// multi-trial best-of-N selection, all driven through the tree, flow,
// objective, and optimizer packages without any of them needing to know
// about the others.
package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/mapequation/infomap-go/internal/coreinfomap/flow"
	"github.com/mapequation/infomap-go/internal/coreinfomap/objective"
	"github.com/mapequation/infomap-go/internal/coreinfomap/optimizer"
	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
	"github.com/mapequation/infomap-go/pkg/parallel"
)

var tracer = otel.Tracer("github.com/mapequation/infomap-go/internal/coreinfomap/engine")

// Logger is the narrow slice of utils.Logger the engine depends on,
// avoiding a direct import so the core stays free of the ambient stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nullLogger struct{}

func (nullLogger) Debug(string, ...any) {}
func (nullLogger) Info(string, ...any)  {}
func (nullLogger) Warn(string, ...any)  {}

// FastHierarchicalSolution staging, from least to most relaxed.
const (
	HierarchyFull             = 0 // full fine+coarse tune at every level, full recursion
	HierarchySkipCoarseTune   = 1
	HierarchySkipSubRecursion = 2 // also skip recursion below the top level
	HierarchySkipAllTuning    = 3 // only the initial fine-tune runs, anywhere
)

// Config collects every tunable the engine needs, one field per option a
// command-line flag or config file entry maps to.
type Config struct {
	TwoLevel   bool
	NumTrials  int
	Seed       int64

	FlowModel                flow.Model
	TeleportationProbability float64
	TeleportToNodes          bool
	MarkovTime               float64

	Optimizer optimizer.Config

	FastHierarchicalSolution int
	PreferModularSolution    bool

	Variant         objective.Variant
	ObjectiveConfig objective.Config
}

// DefaultConfig matches the defaults a fresh command-line invocation would
// use: one trial, the directed PageRank flow model, full hierarchical
// recursion.
func DefaultConfig() Config {
	return Config{
		NumTrials:                 1,
		Seed:                      123,
		FlowModel:                 flow.ModelDirected,
		TeleportationProbability:  0.15,
		MarkovTime:                1.0,
		Optimizer:                 optimizer.DefaultConfig(),
		Variant:                   objective.VariantPlain,
	}
}

// Result is what a completed run reports back: the final tree (module
// structure plus, recursively, any sub-engine trees), and its codelengths.
type Result struct {
	Tree             *tree.Tree
	Codelength       float64
	IndexCodelength  float64
	ModuleCodelength float64
	NumLevels        int
	NumTopModules    int
	NumTrials        int
	BestTrial        int
}

// Engine runs one Infomap search, possibly recursively as a sub-engine
// nested under a parent engine's tree node.
type Engine struct {
	cfg    Config
	logger Logger
	depth  int
}

// New constructs a top-level engine.
func New(cfg Config, logger Logger) *Engine {
	if logger == nil {
		logger = nullLogger{}
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Run performs flow calculation, the configured number of independent
// trials, and keeps whichever trial reaches the lowest codelength.
func (e *Engine) Run(ctx context.Context, t *tree.Tree) (*Result, error) {
	root := t.Root()
	calc := flow.New(flow.Config{
		Model:                    e.cfg.FlowModel,
		TeleportationProbability: e.cfg.TeleportationProbability,
		TeleportToNodes:          e.cfg.TeleportToNodes,
	})
	if _, err := calc.Calculate(t, root); err != nil {
		return nil, fmt.Errorf("engine: flow calculation: %w", err)
	}
	if e.cfg.MarkovTime != 0 && e.cfg.MarkovTime != 1.0 {
		scaleExitFlow(t, root, e.cfg.MarkovTime)
	}

	numTrials := e.cfg.NumTrials
	if numTrials < 1 {
		numTrials = 1
	}

	var best *Result
	consider := func(trial int, res *Result, err error) error {
		if err != nil {
			return err
		}
		res.NumTrials = numTrials
		res.BestTrial = trial
		e.logger.Debug("trial finished", "trial", trial, "codelength", res.Codelength)
		if best == nil || res.Codelength < best.Codelength {
			best = res
		}
		return nil
	}

	if e.cfg.Optimizer.InnerParallelization && numTrials > 1 {
		pool := parallel.NewWorkerPool[int64, *Result](parallel.DefaultPoolConfig())
		seeds := make([]int64, numTrials)
		for i := range seeds {
			seeds[i] = e.cfg.Seed + int64(i)
		}
		results := pool.ExecuteFunc(ctx, seeds, func(ctx context.Context, seed int64) (*Result, error) {
			return e.runOneTrial(ctx, t.Clone(), seed)
		})
		for i, r := range results {
			if err := consider(i, r.Result, r.Error); err != nil {
				return best, err
			}
		}
	} else {
		for trial := 0; trial < numTrials; trial++ {
			if err := ctx.Err(); err != nil {
				return best, err
			}
			trialTree := t.Clone()
			res, err := e.runOneTrial(ctx, trialTree, e.cfg.Seed+int64(trial))
			if err := consider(trial, res, err); err != nil {
				return best, err
			}
		}
	}
	e.logger.Info("run finished", "codelength", best.Codelength, "levels", best.NumLevels)
	return best, nil
}

func scaleExitFlow(t *tree.Tree, root int32, markovTime float64) {
	for _, l := range t.LeafSlice(root) {
		n := t.Node(l)
		n.Data.ExitFlow *= markovTime
		n.Data.EnterFlow *= markovTime
	}
}

// runOneTrial runs a single fine-tune/coarse-tune/hierarchical-recursion
// pass over t and reports its codelength.
func (e *Engine) runOneTrial(ctx context.Context, t *tree.Tree, seed int64) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "infomap.trial", oteltrace.WithAttributes(
		attribute.Int64("infomap.seed", seed),
		attribute.Int("infomap.depth", e.depth),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Float64("infomap.codelength", res.Codelength))
		}
		span.End()
	}()

	root := t.Root()
	obj, err := objective.New(e.cfg.Variant, e.cfg.ObjectiveConfig)
	if err != nil {
		return nil, err
	}
	obj.InitNetwork(t, root)

	// The one-level codelength is the entropy of the leaf flows: a single
	// codebook with no index. CalcCodelength(root) would instead price the
	// singleton partition, since root's children are still the leaves here.
	oneLevel := 0.0
	for _, l := range t.LeafSlice(root) {
		oneLevel += tree.PlogP(t.Node(l).Data.Flow)
	}

	moduleNodes, err := e.fineTune(ctx, t, root, obj, seed)
	if err != nil {
		return nil, err
	}

	if len(moduleNodes) <= 1 {
		t.RemoveModules()
		return &Result{Tree: t, Codelength: oneLevel, ModuleCodelength: oneLevel, NumLevels: 1, NumTopModules: 1}, nil
	}

	if !e.cfg.TwoLevel && e.cfg.FastHierarchicalSolution < HierarchySkipCoarseTune {
		if err := e.coarseTune(ctx, t, root, seed); err != nil {
			return nil, err
		}
		moduleNodes = t.Children(root)
	}

	numLevels := 2
	if !e.cfg.TwoLevel && e.shouldRecurse() {
		levels, err := e.recurseIntoModules(ctx, t, moduleNodes, seed)
		if err != nil {
			return nil, err
		}
		numLevels = levels + 1
	}

	codelength := obj.CalcCodelength(t, root)
	if !e.cfg.PreferModularSolution && codelength >= oneLevel {
		// The modular solution isn't actually shorter than visiting every
		// node directly: fall back to the trivial one-level partition
		// unless the caller asked to keep the modular structure anyway.
		t.RemoveModules()
		return &Result{Tree: t, Codelength: oneLevel, ModuleCodelength: oneLevel, NumLevels: 1, NumTopModules: 1}, nil
	}

	return &Result{
		Tree:             t,
		Codelength:       codelength,
		IndexCodelength:  obj.IndexCodelength(),
		ModuleCodelength: obj.ModuleCodelength(),
		NumLevels:        numLevels,
		NumTopModules:    len(moduleNodes),
	}, nil
}

func (e *Engine) shouldRecurse() bool {
	if e.cfg.FastHierarchicalSolution >= HierarchySkipAllTuning {
		return false
	}
	if e.depth > 0 && e.cfg.FastHierarchicalSolution >= HierarchySkipSubRecursion {
		return false
	}
	return true
}

// fineTune runs the greedy optimizer starting from the singleton partition
// and consolidates the result into module nodes under parent.
func (e *Engine) fineTune(ctx context.Context, t *tree.Tree, parent int32, obj objective.Objective, seed int64) ([]int32, error) {
	ctx, span := tracer.Start(ctx, "infomap.finetune")
	defer span.End()

	optCfg := e.cfg.Optimizer
	optCfg.Seed = seed
	opt := optimizer.New(obj, optCfg)
	opt.InitPartition(t, parent)
	improvement, passes, err := opt.OptimizeModules(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("infomap.improvement", improvement),
		attribute.Int("infomap.passes", passes),
	)
	return opt.Consolidate(parent), nil
}

// coarseTune treats the current module nodes as a super-network and tries
// to merge them further, using the super-edges fineTune's consolidation
// already built.
func (e *Engine) coarseTune(ctx context.Context, t *tree.Tree, parent int32, seed int64) (err error) {
	ctx, span := tracer.Start(ctx, "infomap.coarsetune")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	obj, newErr := objective.New(e.cfg.Variant, e.cfg.ObjectiveConfig)
	if newErr != nil {
		err = newErr
		return err
	}
	obj.InitSuperNetwork(t, parent)

	optCfg := e.cfg.Optimizer
	optCfg.Seed = seed + 1
	opt := optimizer.New(obj, optCfg)
	opt.InitPartition(t, parent)
	if _, _, optErr := opt.OptimizeModules(ctx); optErr != nil {
		err = optErr
		return err
	}
	if opt.NumModules() >= len(t.Children(parent)) {
		return nil // no further merging found; leave the fine-tuned structure as is
	}
	opt.Consolidate(parent)
	span.SetAttributes(attribute.Int("infomap.merged_modules", opt.NumModules()))
	return nil
}

// recurseIntoModules attempts to partition each top-level module's own
// children further, attaching a nested sub-engine wherever doing so lowers
// the codelength. Processed breadth-first via partitionQueue so a whole
// level finishes before any module's children are themselves recursed
// into.
func (e *Engine) recurseIntoModules(ctx context.Context, t *tree.Tree, moduleNodes []int32, seed int64) (int, error) {
	queue := newPartitionQueue(moduleNodes)
	maxDepth := 0
	for {
		node, ok := queue.pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return maxDepth, err
		}
		children := t.Children(node)
		if len(children) < 2 {
			continue
		}

		subTree := buildSubtree(t, node)
		subEngine := &Engine{cfg: e.cfg, logger: e.logger, depth: e.depth + 1}

		levelCtx, levelSpan := tracer.Start(ctx, "infomap.level", oteltrace.WithAttributes(
			attribute.Int("infomap.depth", e.depth+1),
			attribute.Int("infomap.module_size", len(children)),
		))
		res, err := subEngine.Run(levelCtx, subTree)
		if err != nil {
			levelSpan.RecordError(err)
			levelSpan.SetStatus(codes.Error, err.Error())
			levelSpan.End()
			return maxDepth, err
		}
		levelSpan.SetAttributes(attribute.Int("infomap.sub_modules", res.NumTopModules))
		levelSpan.End()
		if res.NumTopModules <= 1 {
			continue // this module has no internal structure worth recursing into
		}

		t.SetSubEngine(node, subEngineAdapter{tree: subTree})
		if res.NumLevels > maxDepth {
			maxDepth = res.NumLevels
		}
		for _, m := range t.Children(subTree.Root()) {
			queue.push(m)
		}
	}
	return maxDepth, nil
}

// buildSubtree copies a module's children and the edges between them into
// a fresh tree, rooted so the sub-engine can run exactly as a top-level
// engine would.
func buildSubtree(t *tree.Tree, module int32) *tree.Tree {
	sub := tree.New()
	root := sub.Root()

	children := t.Children(module)
	mapping := make(map[int32]int32, len(children))
	totalFlow := 0.0
	for _, c := range children {
		n := t.Node(c)
		leaf := sub.NewLeaf(n.StateID, n.PhysicalID, n.LayerID, n.Data.Flow)
		sub.AddChild(root, leaf)
		mapping[c] = leaf
		totalFlow += n.Data.Flow
	}
	sub.Node(root).Data.Flow = totalFlow

	for _, c := range children {
		for _, eIdx := range t.OutEdges(c) {
			e := t.Edge(eIdx)
			if target, ok := mapping[e.Target]; ok {
				idx := sub.AddEdge(mapping[c], target, e.Weight)
				sub.Edge(idx).Flow = e.Flow
			}
		}
	}
	return sub
}

// subEngineAdapter implements tree.SubEngine over a sub-tree produced by
// recurseIntoModules.
type subEngineAdapter struct {
	tree *tree.Tree
}

func (s subEngineAdapter) RootIndex() int32  { return s.tree.Root() }
func (s subEngineAdapter) Tree() *tree.Tree  { return s.tree }
