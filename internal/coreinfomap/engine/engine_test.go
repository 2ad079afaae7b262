package engine

import (
	"context"
	"testing"

	"github.com/mapequation/infomap-go/internal/coreinfomap/flow"
	"github.com/mapequation/infomap-go/internal/coreinfomap/objective"
	"github.com/mapequation/infomap-go/internal/coreinfomap/optimizer"
	"github.com/mapequation/infomap-go/internal/coreinfomap/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTwoCliqueNetwork(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New()
	root := tr.Root()
	leaves := make([]int32, 4)
	for i := range leaves {
		leaves[i] = tr.NewLeaf(uint32(i), uint32(i), 0, 0.25)
		tr.AddChild(root, leaves[i])
	}
	link := func(a, b int32, w float64) {
		tr.AddEdge(a, b, w)
		tr.AddEdge(b, a, w)
	}
	link(leaves[0], leaves[1], 0.45)
	link(leaves[2], leaves[3], 0.45)
	link(leaves[1], leaves[2], 0.02)
	return tr
}

func baseConfig() Config {
	cfg := DefaultConfig()
	cfg.FlowModel = flow.ModelUndirected
	cfg.Optimizer = optimizer.Config{Seed: 7, MinSingleNodeImprovement: 1e-12, MinImprovement: 1e-12}
	cfg.Variant = objective.VariantPlain
	cfg.TwoLevel = true // keep this test's assertions independent of recursion depth
	return cfg
}

func TestEngine_Run_FindsTwoModules(t *testing.T) {
	tr := buildTwoCliqueNetwork(t)
	eng := New(baseConfig(), nil)

	res, err := eng.Run(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NumTopModules)
	assert.Greater(t, res.Codelength, 0.0)
}

func TestEngine_Run_IsReproducibleWithFixedSeed(t *testing.T) {
	cfg := baseConfig()
	cfg.Seed = 99

	tr1 := buildTwoCliqueNetwork(t)
	res1, err := New(cfg, nil).Run(context.Background(), tr1)
	require.NoError(t, err)

	tr2 := buildTwoCliqueNetwork(t)
	res2, err := New(cfg, nil).Run(context.Background(), tr2)
	require.NoError(t, err)

	assert.InDelta(t, res1.Codelength, res2.Codelength, 1e-12)
	assert.Equal(t, res1.NumTopModules, res2.NumTopModules)
}

func TestEngine_Run_MultiTrialPicksLowestCodelength(t *testing.T) {
	cfg := baseConfig()
	cfg.NumTrials = 5

	tr := buildTwoCliqueNetwork(t)
	res, err := New(cfg, nil).Run(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, 5, res.NumTrials)

	for i := 0; i < 5; i++ {
		single := baseConfig()
		single.Seed = cfg.Seed + int64(i)
		r, err := New(single, nil).Run(context.Background(), buildTwoCliqueNetwork(t))
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Codelength, r.Codelength+1e-12)
	}
}

func TestEngine_Run_ParallelTrialsMatchSequential(t *testing.T) {
	cfg := baseConfig()
	cfg.NumTrials = 4
	cfg.Optimizer.InnerParallelization = true

	tr := buildTwoCliqueNetwork(t)
	res, err := New(cfg, nil).Run(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, 4, res.NumTrials)
	assert.Equal(t, 2, res.NumTopModules)

	seqCfg := cfg
	seqCfg.Optimizer.InnerParallelization = false
	seq, err := New(seqCfg, nil).Run(context.Background(), buildTwoCliqueNetwork(t))
	require.NoError(t, err)
	assert.InDelta(t, seq.Codelength, res.Codelength, 1e-12)
	assert.Equal(t, seq.NumTopModules, res.NumTopModules)
}

func TestEngine_Run_TrivialNetworkIsOneLevel(t *testing.T) {
	tr := tree.New()
	root := tr.Root()
	l1 := tr.NewLeaf(0, 0, 0, 0.5)
	l2 := tr.NewLeaf(1, 1, 0, 0.5)
	tr.AddChild(root, l1)
	tr.AddChild(root, l2)
	tr.AddEdge(l1, l2, 1.0)
	tr.AddEdge(l2, l1, 1.0)

	res, err := New(baseConfig(), nil).Run(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NumTopModules, "two equally connected nodes shouldn't split into separate modules")
}
