package objective

import "github.com/mapequation/infomap-go/internal/coreinfomap/tree"

// RegularizedMultilayerMapEq is the plain map equation plus per-layer
// teleportation bookkeeping: InitPartition tallies each layer's node count,
// teleport flow and teleport weight into layerFlow. No other method reads
// layerFlow, and the flow package has no layer relax step, so codelength
// and move deltas are exactly those of the plain map equation.
type RegularizedMultilayerMapEq struct {
	MapEq
	layerFlow map[uint32]tree.LayerTeleFlowData
}

func NewRegularizedMultilayerMapEq() *RegularizedMultilayerMapEq {
	return &RegularizedMultilayerMapEq{layerFlow: make(map[uint32]tree.LayerTeleFlowData)}
}

func (r *RegularizedMultilayerMapEq) InitPartition(t *tree.Tree, leaves []int32, moduleOf []int32, moduleFlow []tree.FlowData) {
	r.MapEq.InitPartition(t, leaves, moduleOf, moduleFlow)
	r.layerFlow = make(map[uint32]tree.LayerTeleFlowData)
	for _, leaf := range leaves {
		n := t.Node(leaf)
		e := r.layerFlow[n.LayerID]
		e.NumNodes++
		e.TeleportFlow += n.Data.TeleportFlow
		e.TeleportWeight += n.Data.TeleportWeight
		r.layerFlow[n.LayerID] = e
	}
}

// RelaxLimitAllows reports whether relaxing from fromLayer to toLayer
// respects the configured up/down layer-distance limits (zero values mean
// "unlimited" in that direction, matching MultilayerRelaxLimit semantics).
func (r *RegularizedMultilayerMapEq) RelaxLimitAllows(fromLayer, toLayer int) bool {
	limit := r.cfg.MultilayerRelaxLimit
	up := r.cfg.MultilayerRelaxLimitUp
	down := r.cfg.MultilayerRelaxLimitDown
	d := toLayer - fromLayer
	if limit > 0 && abs(d) > limit {
		return false
	}
	if d > 0 && up > 0 && d > up {
		return false
	}
	if d < 0 && down > 0 && -d > down {
		return false
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
