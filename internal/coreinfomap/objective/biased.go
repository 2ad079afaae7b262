package objective

import "github.com/mapequation/infomap-go/internal/coreinfomap/tree"

// BiasedMapEq nudges the plain map equation toward a preferred number of
// modules: moves that bring the module count closer to PreferredNumModules
// are rewarded with a small codelength discount (scaled by Gamma), moves
// that take it further are penalized the same way. With Gamma == 0 this is
// exactly the plain map equation.
type BiasedMapEq struct {
	MapEq
	numModules int
}

func NewBiasedMapEq() *BiasedMapEq { return &BiasedMapEq{} }

func (b *BiasedMapEq) InitPartition(t *tree.Tree, leaves []int32, moduleOf []int32, moduleFlow []tree.FlowData) {
	b.MapEq.InitPartition(t, leaves, moduleOf, moduleFlow)
	b.numModules = len(moduleFlow)
}

func (b *BiasedMapEq) bias(numModulesDelta int) float64 {
	if b.cfg.Gamma == 0 || b.cfg.PreferredNumModules <= 0 {
		return 0
	}
	before := absInt(b.numModules - b.cfg.PreferredNumModules)
	after := absInt(b.numModules+numModulesDelta - b.cfg.PreferredNumModules)
	return b.cfg.Gamma * float64(after-before)
}

func (b *BiasedMapEq) DeltaCodelengthOnMove(t *tree.Tree, node int32, oldDelta, newDelta DeltaFlow, moduleFlow []tree.FlowData, moduleMembers []int) float64 {
	base := b.MapEq.DeltaCodelengthOnMove(t, node, oldDelta, newDelta, moduleFlow, moduleMembers)
	oldMembersAfter := moduleMembers[oldDelta.Module] - 1
	newMembersBefore := moduleMembers[newDelta.Module]
	return base + b.bias(b.NumModulesDelta(oldMembersAfter, newMembersBefore))
}

func (b *BiasedMapEq) UpdateOnMove(t *tree.Tree, node int32, oldDelta, newDelta DeltaFlow, moduleFlow []tree.FlowData, moduleMembers []int) {
	oldMembersAfter := moduleMembers[oldDelta.Module] - 1
	newMembersBefore := moduleMembers[newDelta.Module]
	b.numModules += b.NumModulesDelta(oldMembersAfter, newMembersBefore)
	b.MapEq.UpdateOnMove(t, node, oldDelta, newDelta, moduleFlow, moduleMembers)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
