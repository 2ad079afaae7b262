// Package flow computes the stationary flow distribution over a network's
// leaves: how much of the random walker's time is spent at each node, and
// how much flux crosses each edge. Everything downstream (the objective's
// codelength, the optimizer's candidate moves) treats this as the ground
// truth and never recomputes it.
package flow

import (
	"math"

	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
)

// Model selects how the stationary distribution is derived from the raw
// edge weights.
type Model string

const (
	ModelUndirected Model = "undirected"
	ModelDirected   Model = "directed"
	ModelUndirdir   Model = "undirdir"   // directed edges, symmetrized random walk
	ModelOutdirdir  Model = "outdirdir"  // directed edges, teleport weighted by out-degree
	ModelRawdir     Model = "rawdir"     // edge weights are already flow; no walk at all
)

const (
	maxIterations  = 200
	convergenceTol = 1e-15
)

// Config fixes the flow model and its teleportation parameters.
type Config struct {
	Model                     Model
	TeleportationProbability  float64 // fraction of each step that teleports, e.g. 0.15
	TeleportToNodes           bool    // teleport proportional to node TeleportWeight instead of uniformly (a node without one counts as 1)
}

// DefaultConfig matches a plain PageRank random surfer.
func DefaultConfig() Config {
	return Config{Model: ModelDirected, TeleportationProbability: 0.15}
}

// Calculator computes flow for one network (one tree, rooted at one node).
type Calculator struct {
	cfg Config
}

func New(cfg Config) *Calculator { return &Calculator{cfg: cfg} }

// Calculate assigns Data.Flow to every leaf under root and Edge.Flow to
// every edge between them, according to the configured model.
func (c *Calculator) Calculate(t *tree.Tree, root int32) (iterations int, err error) {
	switch c.cfg.Model {
	case ModelRawdir:
		c.calculateRawdir(t, root)
		return 0, nil
	case ModelUndirected:
		c.calculateUndirected(t, root)
		return 0, nil
	default:
		return c.calculatePageRank(t, root)
	}
}

// calculateUndirected treats every edge as symmetric: a node's flow is
// proportional to its total incident edge weight (its weighted degree),
// and an edge's flow is its share of twice the total network weight.
// Undirected input is expected to already be mirrored into two directed
// Edge entries of equal weight per link, so summing a node's out-edges
// alone recovers its full weighted degree.
func (c *Calculator) calculateUndirected(t *tree.Tree, root int32) {
	leaves := t.LeafSlice(root)
	total := 0.0
	degree := make(map[int32]float64, len(leaves))
	for _, l := range leaves {
		d := 0.0
		for _, eIdx := range t.OutEdges(l) {
			d += t.Edge(eIdx).Weight
		}
		degree[l] = d
		total += d
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(leaves))
		for _, l := range leaves {
			t.Node(l).Data.Flow = uniform
		}
		return
	}
	for _, l := range leaves {
		t.Node(l).Data.Flow = degree[l] / total
	}
	for _, l := range leaves {
		exit := 0.0
		for _, eIdx := range t.OutEdges(l) {
			e := t.Edge(eIdx)
			e.Flow = e.Weight / total
			exit += e.Flow
		}
		t.Node(l).Data.ExitFlow = exit
		t.Node(l).Data.EnterFlow = exit
	}
}

// calculateRawdir copies already-normalized weights straight through,
// for input formats (state/multilayer `.net` files with an explicit
// *States or flow column) that supply flow directly rather than a raw
// link list to infer it from.
func (c *Calculator) calculateRawdir(t *tree.Tree, root int32) {
	leaves := t.LeafSlice(root)
	for _, l := range leaves {
		n := t.Node(l)
		exit, enter := 0.0, 0.0
		for _, eIdx := range t.OutEdges(l) {
			e := t.Edge(eIdx)
			e.Flow = e.Weight
			exit += e.Flow
		}
		for _, eIdx := range t.InEdges(l) {
			enter += t.Edge(eIdx).Weight
		}
		n.Data.ExitFlow = exit
		n.Data.EnterFlow = enter
		if n.Data.Flow == 0 {
			n.Data.Flow = exit
		}
	}
}

// calculatePageRank finds the stationary distribution of a teleporting
// random walk by power iteration, for the directed/undirdir/outdirdir
// models. undirdir symmetrizes the transition matrix before iterating;
// outdirdir weights the teleportation target by out-degree instead of
// visiting uniformly; directed uses a uniform teleportation target unless
// TeleportToNodes asks for node-weight-proportional teleportation.
func (c *Calculator) calculatePageRank(t *tree.Tree, root int32) (int, error) {
	leaves := t.LeafSlice(root)
	n := len(leaves)
	idx := make(map[int32]int, n)
	for i, l := range leaves {
		idx[l] = i
	}

	type arc struct {
		to     int
		weight float64
	}
	outArcs := make([][]arc, n)
	outWeight := make([]float64, n)

	addArc := func(from, to int, w float64) {
		outArcs[from] = append(outArcs[from], arc{to: to, weight: w})
		outWeight[from] += w
	}
	for i, l := range leaves {
		for _, eIdx := range t.OutEdges(l) {
			e := t.Edge(eIdx)
			j, ok := idx[e.Target]
			if !ok {
				continue
			}
			addArc(i, j, e.Weight)
			if c.cfg.Model == ModelUndirdir {
				addArc(j, i, e.Weight)
			}
		}
	}

	teleport := make([]float64, n)
	if c.cfg.TeleportToNodes || c.cfg.Model == ModelOutdirdir {
		sum := 0.0
		for i, l := range leaves {
			w := outWeight[i]
			if c.cfg.Model != ModelOutdirdir {
				w = t.Node(l).Data.TeleportWeight
			}
			if w == 0 {
				w = 1
			}
			teleport[i] = w
			sum += w
		}
		for i := range teleport {
			teleport[i] /= sum
		}
	} else {
		uniform := 1.0 / float64(n)
		for i := range teleport {
			teleport[i] = uniform
		}
	}

	p := make([]float64, n)
	for i := range p {
		p[i] = 1.0 / float64(n)
	}
	next := make([]float64, n)
	beta := c.cfg.TeleportationProbability

	iterations := 0
	for iterations < maxIterations {
		for i := range next {
			next[i] = 0
		}
		danglingMass := 0.0
		for i, mass := range p {
			if outWeight[i] == 0 {
				danglingMass += mass
				continue
			}
			for _, a := range outArcs[i] {
				next[a.to] += (1 - beta) * mass * (a.weight / outWeight[i])
			}
		}
		for j := range next {
			next[j] += (beta*1.0 + (1-beta)*danglingMass) * teleport[j]
		}

		diff := 0.0
		for i := range p {
			diff += math.Abs(next[i] - p[i])
		}
		copy(p, next)
		iterations++
		if diff <= convergenceTol {
			break
		}
	}

	for i, l := range leaves {
		t.Node(l).Data.Flow = p[i]
	}
	for i, l := range leaves {
		exit := 0.0
		for _, a := range outArcs[i] {
			if outWeight[i] == 0 {
				continue
			}
			f := (1 - beta) * p[i] * (a.weight / outWeight[i])
			exit += f
		}
		n := t.Node(l)
		n.Data.ExitFlow = exit
	}
	enter := make([]float64, n)
	for i := range outArcs {
		if outWeight[i] == 0 {
			continue
		}
		for _, a := range outArcs[i] {
			enter[a.to] += (1 - beta) * p[i] * (a.weight / outWeight[i])
		}
	}
	for i, l := range leaves {
		t.Node(l).Data.EnterFlow = enter[i]
	}

	// Write per-edge flow as the directed flux actually realized along it,
	// so the objective and optimizer never need to re-derive it.
	for i, l := range leaves {
		if outWeight[i] == 0 {
			continue
		}
		for _, eIdx := range t.OutEdges(l) {
			e := t.Edge(eIdx)
			if _, ok := idx[e.Target]; !ok {
				continue
			}
			e.Flow = (1 - beta) * p[i] * (e.Weight / outWeight[i])
		}
	}
	return iterations, nil
}
