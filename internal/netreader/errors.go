package netreader

import "errors"

var (
	// ErrEmptyInput is returned when the reader finds no vertices at all.
	ErrEmptyInput = errors.New("network: empty input")

	// ErrMalformedLine is returned when a line can't be parsed as either
	// a vertex or a link row.
	ErrMalformedLine = errors.New("network: malformed line")

	// ErrUnknownNode is returned when a link references a node id that
	// was never declared as a vertex.
	ErrUnknownNode = errors.New("network: link references an undeclared node")
)
