package netreader

import (
	"fmt"
	"sort"

	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
)

// BuildConfig controls how Data is turned into a tree: both are
// normalizations the engine expects to have already happened by the time
// it sees a network, so they live here rather than in the flow
// calculator.
type BuildConfig struct {
	// IncludeSelfLinks keeps source==target rows instead of dropping
	// them; self-links otherwise inflate a node's own flow with no
	// information about community structure.
	IncludeSelfLinks bool

	// MinWeight drops any link whose weight falls below it. Zero keeps
	// everything.
	MinWeight float64
}

// Build validates data against a bipartite network's own rules (if it
// claims to be bipartite) and turns it into a fresh Tree with one leaf
// per node and one directed edge per surviving link; when data.Direction
// is DirectionUndirected, every surviving link other than a self-link
// also gets the reverse edge, so it becomes two edges. Weights are carried
// onto edges as-is; flow is left zero for the caller's flow.Calculator to
// fill in.
func Build(data *Data, cfg BuildConfig) (*tree.Tree, error) {
	if len(data.Nodes) == 0 {
		return nil, ErrEmptyInput
	}
	if data.Bipartite {
		if err := validateBipartite(data); err != nil {
			return nil, err
		}
	}

	t := tree.New()
	root := t.Root()

	sortedNodes := append([]Node(nil), data.Nodes...)
	sort.Slice(sortedNodes, func(i, j int) bool { return sortedNodes[i].ID < sortedNodes[j].ID })

	leafOf := make(map[uint32]int32, len(sortedNodes))
	for _, n := range sortedNodes {
		leaf := t.NewLeaf(n.ID, n.ID, 0, 0)
		t.Node(leaf).Name = n.Name
		t.AddChild(root, leaf)
		leafOf[n.ID] = leaf
	}

	dropped := 0
	for _, l := range data.Links {
		if !cfg.IncludeSelfLinks && l.Source == l.Target {
			dropped++
			continue
		}
		if l.Weight < cfg.MinWeight {
			dropped++
			continue
		}
		src, ok := leafOf[l.Source]
		if !ok {
			return nil, fmt.Errorf("%w: link from %d", ErrUnknownNode, l.Source)
		}
		dst, ok := leafOf[l.Target]
		if !ok {
			return nil, fmt.Errorf("%w: link to %d", ErrUnknownNode, l.Target)
		}
		t.AddEdge(src, dst, l.Weight)
		if data.Direction == DirectionUndirected && src != dst {
			t.AddEdge(dst, src, l.Weight)
		}
	}
	_ = dropped
	return t, nil
}

// validateBipartite checks that every link crosses the feature-node
// boundary: a bipartite network's links must all go between a node below
// FirstFeatureNode and one at or above it, never within either side.
func validateBipartite(data *Data) error {
	for _, l := range data.Links {
		srcFeature := l.Source >= data.FirstFeatureNode
		dstFeature := l.Target >= data.FirstFeatureNode
		if srcFeature == dstFeature {
			return fmt.Errorf("network: bipartite link %d->%d does not cross the feature-node boundary", l.Source, l.Target)
		}
	}
	return nil
}
