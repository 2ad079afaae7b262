// Package netreader defines the input side of a run: the data format a
// network arrives in, and the in-memory representation a Reader produces
// before it is handed to the tree package to become leaves and edges.
package netreader

import (
	"context"
	"io"
)

// LinkDirection records whether a network's links should be treated as
// directed or mirrored into both directions on load.
type LinkDirection int

const (
	DirectionUndirected LinkDirection = iota
	DirectionDirected
)

// Node is one physical node as read from an input file, before any
// per-state expansion a memory network applies.
type Node struct {
	ID   uint32
	Name string
}

// Link is one edge as read from an input file. Layer is zero for
// single-layer networks.
type Link struct {
	Source uint32
	Target uint32
	Weight float64
	Layer  uint32
}

// Data is the fully parsed, format-agnostic result of reading a network:
// enough for the engine's setup code to build a tree.Tree from it without
// knowing which file format produced it.
type Data struct {
	Nodes      []Node
	Links      []Link
	Bipartite  bool
	// FirstFeatureNode is the lowest node id treated as a feature node in
	// a bipartite network; nodes below it are the ordinary/state nodes.
	FirstFeatureNode uint32
	Multilayer       bool
	Direction        LinkDirection
}

// Reader parses one network file format into Data.
type Reader interface {
	Read(ctx context.Context, r io.Reader) (*Data, error)
	Name() string
}

// Registry holds readers keyed by format name, the way a CLI's --input-
// format flag picks one.
type Registry struct {
	readers map[string]Reader
}

func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

func (reg *Registry) Register(format string, r Reader) {
	reg.readers[format] = r
}

func (reg *Registry) Get(format string) (Reader, bool) {
	r, ok := reg.readers[format]
	return r, ok
}

// DefaultRegistry returns a Registry with every built-in format reader
// registered under its conventional name and file-extension aliases.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	pajek := NewPajekReader()
	reg.Register("pajek", pajek)
	reg.Register("net", pajek)

	list := NewLinkListReader()
	reg.Register("link-list", list)
	reg.Register("txt", list)
	return reg
}
