package netreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() *Data {
	return &Data{
		Nodes: []Node{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}},
		Links: []Link{
			{Source: 1, Target: 2, Weight: 1.0},
			{Source: 2, Target: 1, Weight: 1.0},
			{Source: 2, Target: 2, Weight: 5.0}, // self-link
		},
	}
}

func TestBuild_DropsSelfLinksByDefault(t *testing.T) {
	tr, err := Build(sampleData(), BuildConfig{})
	require.NoError(t, err)
	root := tr.Root()
	total := 0
	for _, l := range tr.Children(root) {
		total += len(tr.OutEdges(l))
	}
	// sampleData is undirected, so each of the two remaining links is mirrored.
	assert.Equal(t, 4, total, "the self-link on node 2 should have been dropped")
}

func TestBuild_KeepsSelfLinksWhenConfigured(t *testing.T) {
	tr, err := Build(sampleData(), BuildConfig{IncludeSelfLinks: true})
	require.NoError(t, err)
	root := tr.Root()
	total := 0
	for _, l := range tr.Children(root) {
		total += len(tr.OutEdges(l))
	}
	assert.Equal(t, 5, total)
}

func TestBuild_MinWeightDropsLowWeightLinks(t *testing.T) {
	data := sampleData()
	data.Links = append(data.Links, Link{Source: 1, Target: 3, Weight: 0.01})
	tr, err := Build(data, BuildConfig{MinWeight: 0.5})
	require.NoError(t, err)
	root := tr.Root()
	total := 0
	for _, l := range tr.Children(root) {
		total += len(tr.OutEdges(l))
	}
	assert.Equal(t, 4, total)
}

func TestBuild_RejectsBipartiteLinkWithinOneSide(t *testing.T) {
	data := &Data{
		Nodes:            []Node{{ID: 1}, {ID: 2}, {ID: 10}},
		Links:            []Link{{Source: 1, Target: 2, Weight: 1.0}},
		Bipartite:        true,
		FirstFeatureNode: 10,
	}
	_, err := Build(data, BuildConfig{})
	assert.Error(t, err)
}

func TestBuild_AcceptsBipartiteLinkCrossingBoundary(t *testing.T) {
	data := &Data{
		Nodes:            []Node{{ID: 1}, {ID: 10}},
		Links:            []Link{{Source: 1, Target: 10, Weight: 1.0}},
		Bipartite:        true,
		FirstFeatureNode: 10,
	}
	_, err := Build(data, BuildConfig{})
	assert.NoError(t, err)
}
