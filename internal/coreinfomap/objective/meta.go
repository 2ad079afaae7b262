package objective

import "github.com/mapequation/infomap-go/internal/coreinfomap/tree"

// MetaMapEq mixes a meta-data codelength term into the plain map equation:
// each leaf may carry a discrete category (its meta-data id), and grouping
// nodes of the same category into one module is rewarded proportionally to
// MetaDataRate, the weight the meta-data codebook gets relative to the flow
// codebook.
type MetaMapEq struct {
	MapEq
	metaDataOf map[uint32]uint32 // leaf StateID -> meta-data category
}

func NewMetaMapEq() *MetaMapEq { return &MetaMapEq{} }

// SetMetaData installs a per-leaf category assignment, keyed by leaf
// StateID; must be called before InitPartition.
func (mm *MetaMapEq) SetMetaData(metaDataOf map[uint32]uint32) { mm.metaDataOf = metaDataOf }

// metaCodelength derives module membership straight from the tree (each
// direct child of parent is one module, its leaves are that module's
// members) and returns the weighted entropy of meta-data categories within
// modules, scaled by MetaDataRate: grouping same-category leaves into one
// module lowers this term, same as grouping high-flow-exchange leaves
// lowers the plain map equation's module term.
func (mm *MetaMapEq) metaCodelength(t *tree.Tree, parent int32) float64 {
	if mm.cfg.MetaDataRate == 0 || mm.metaDataOf == nil {
		return 0
	}
	modules := t.Children(parent)
	if len(modules) == 0 {
		modules = []int32{parent}
	}
	total := 0.0
	for _, module := range modules {
		counts := make(map[uint32]float64)
		sum := 0.0
		for _, leaf := range t.LeafSlice(module) {
			n := t.Node(leaf)
			w := n.Data.Flow
			if mm.cfg.MetaDataUnweighted {
				w = 1
			}
			cat, ok := mm.metaDataOf[n.StateID]
			if !ok {
				continue
			}
			counts[cat] += w
			sum += w
		}
		for _, w := range counts {
			total += plogp(w)
		}
		total -= plogp(sum)
	}
	return mm.cfg.MetaDataRate * total
}

// CalcCodelength adds the meta-data term on top of the plain two-part
// codelength, so a partition that also separates meta-data categories is
// preferred over one that only compresses flow.
func (mm *MetaMapEq) CalcCodelength(t *tree.Tree, parent int32) float64 {
	base := mm.MapEq.CalcCodelength(t, parent)
	return base + mm.metaCodelength(t, parent)
}
