package objective

import (
	"testing"

	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
	"github.com/stretchr/testify/assert"
)

func TestMetaMapEq_SeparatingCategoriesLowersMetaTerm(t *testing.T) {
	tr := tree.New()
	root := tr.Root()
	m1 := tr.NewNode()
	m2 := tr.NewNode()
	tr.AddChild(root, m1)
	tr.AddChild(root, m2)
	a := tr.NewLeaf(0, 0, 0, 0.25)
	b := tr.NewLeaf(1, 1, 0, 0.25)
	c := tr.NewLeaf(2, 2, 0, 0.25)
	d := tr.NewLeaf(3, 3, 0, 0.25)
	tr.AddChild(m1, a)
	tr.AddChild(m1, b)
	tr.AddChild(m2, c)
	tr.AddChild(m2, d)

	mm := NewMetaMapEq()
	mm.Init(Config{MetaDataRate: 1.0})
	mm.SetMetaData(map[uint32]uint32{0: 1, 1: 1, 2: 2, 3: 2})

	separated := mm.metaCodelength(tr, root)

	mm2 := NewMetaMapEq()
	mm2.Init(Config{MetaDataRate: 1.0})
	mm2.SetMetaData(map[uint32]uint32{0: 1, 1: 2, 2: 1, 3: 2})
	mixed := mm2.metaCodelength(tr, root)

	assert.Less(t, separated, mixed, "modules matching meta-data categories should cost less than mixed ones")
}

func TestMetaMapEq_ZeroRateDisablesTerm(t *testing.T) {
	tr := tree.New()
	root := tr.Root()
	a := tr.NewLeaf(0, 0, 0, 0.5)
	b := tr.NewLeaf(1, 1, 0, 0.5)
	tr.AddChild(root, a)
	tr.AddChild(root, b)

	mm := NewMetaMapEq()
	mm.Init(Config{MetaDataRate: 0})
	mm.SetMetaData(map[uint32]uint32{0: 1, 1: 2})
	assert.Equal(t, 0.0, mm.metaCodelength(tr, root))
}
