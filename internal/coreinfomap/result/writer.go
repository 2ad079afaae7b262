// Package result turns a finished tree into the external result formats:
// .clu (flat module assignment), .tree (full hierarchical path per leaf),
// and .ftree (.tree plus the aggregated flow between top-level modules).
// None of these formats are read back by the core; they are
// the contract between the engine and everything downstream that renders,
// stores, or further analyzes a run's output.
package result

import (
	"fmt"
	"io"
	"sort"

	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
)

// LeafResult is one row of a flattened result: a leaf node's identity, its
// hierarchical path, and its flow.
type LeafResult struct {
	StateID    uint32
	PhysicalID uint32
	Name       string
	Path       []uint32
	Flow       float64
}

// Collect walks t with InfomapTree (so sub-engine boundaries are followed
// transparently) and returns one LeafResult per leaf, sorted by
// hierarchical path. Every leaf's path is distinct, so the result follows
// the tree's own child order; the flow comparison in sortByPathThenFlow
// never decides the order.
func Collect(t *tree.Tree, root int32) []LeafResult {
	var out []LeafResult
	t.InfomapTree(root, func(v tree.Visit) bool {
		n := t.Node(v.Node)
		if !n.IsLeaf() {
			return true
		}
		out = append(out, LeafResult{
			StateID:    n.StateID,
			PhysicalID: n.PhysicalID,
			Name:       n.Name,
			Path:       v.Path,
			Flow:       n.Data.Flow,
		})
		return true
	})
	sortByPathThenFlow(out)
	return out
}

func sortByPathThenFlow(rs []LeafResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		pi, pj := rs[i].Path, rs[j].Path
		for k := 0; k < len(pi) && k < len(pj); k++ {
			if pi[k] != pj[k] {
				return pi[k] < pj[k]
			}
		}
		if len(pi) != len(pj) {
			return len(pi) < len(pj)
		}
		return rs[i].Flow > rs[j].Flow
	})
}

// moduleID joins a leaf's path with colons, e.g. "2:1:3", the .clu/.tree
// module-id convention.
func moduleID(path []uint32) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += ":"
		}
		s += fmt.Sprintf("%d", p)
	}
	return s
}

// WriteClu writes the flat-module `.clu` format: one "stateId moduleId
// flow" row per leaf, module id being the top-level path component only.
func WriteClu(w io.Writer, leaves []LeafResult) error {
	if _, err := fmt.Fprintln(w, "# state_id module_id flow"); err != nil {
		return err
	}
	for _, l := range leaves {
		top := uint32(0)
		if len(l.Path) > 0 {
			top = l.Path[0]
		}
		if _, err := fmt.Fprintf(w, "%d %d %.12g\n", l.StateID, top, l.Flow); err != nil {
			return err
		}
	}
	return nil
}

// WriteTree writes the hierarchical `.tree` format: one "path flow name
// stateId" row per leaf.
func WriteTree(w io.Writer, leaves []LeafResult) error {
	if _, err := fmt.Fprintln(w, "# path flow name state_id"); err != nil {
		return err
	}
	for _, l := range leaves {
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("%d", l.PhysicalID)
		}
		if _, err := fmt.Fprintf(w, "%s %.12g \"%s\" %d\n", moduleID(l.Path), l.Flow, name, l.StateID); err != nil {
			return err
		}
	}
	return nil
}

// ModuleLink is one aggregated edge between two top-level modules, as
// `.ftree` lists after the leaf rows.
type ModuleLink struct {
	Source string
	Target string
	Flow   float64
}

// WriteFtree writes the `.ftree` format: the same leaf rows as `.tree`,
// followed by one "*Links" section listing aggregated flow between
// top-level modules, summed from the tree's own leaf edges. Deeper levels
// of the hierarchy get no links section.
func WriteFtree(w io.Writer, t *tree.Tree, leaves []LeafResult) error {
	if err := WriteTree(w, leaves); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "*Links"); err != nil {
		return err
	}
	for _, link := range moduleLinksFromTree(t) {
		if _, err := fmt.Fprintf(w, "%s %s %.12g\n", link.Source, link.Target, link.Flow); err != nil {
			return err
		}
	}
	return nil
}

// moduleLinksFromTree aggregates every leaf-to-leaf edge flow into its
// enclosing top-level modules; flow inside a module appears as a link from
// that module to itself.
func moduleLinksFromTree(t *tree.Tree) []ModuleLink {
	root := t.Root()
	moduleOfLeaf := make(map[int32]uint32)
	// Assign each top-level module an index in visiting order.
	moduleIndex := make(map[int32]uint32)
	for i, m := range t.Children(root) {
		moduleIndex[m] = uint32(i + 1)
		for _, l := range t.LeafSlice(m) {
			moduleOfLeaf[l] = moduleIndex[m]
		}
	}

	agg := make(map[[2]uint32]float64)
	for _, m := range t.Children(root) {
		for _, l := range t.LeafSlice(m) {
			for _, eIdx := range t.OutEdges(l) {
				e := t.Edge(eIdx)
				srcMod, ok1 := moduleOfLeaf[l]
				dstMod, ok2 := moduleOfLeaf[e.Target]
				if !ok1 || !ok2 {
					continue
				}
				agg[[2]uint32{srcMod, dstMod}] += e.Flow
			}
		}
	}
	keys := make([][2]uint32, 0, len(agg))
	for k := range agg {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	out := make([]ModuleLink, 0, len(keys))
	for _, k := range keys {
		out = append(out, ModuleLink{
			Source: fmt.Sprintf("%d", k[0]),
			Target: fmt.Sprintf("%d", k[1]),
			Flow:   agg[k],
		})
	}
	return out
}
