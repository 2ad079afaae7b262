package netreader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LinkListReader reads the plain link-list format: one "source target
// [weight]" row per line, `#`-prefixed comment lines ignored, node
// identities inferred implicitly from whatever ids appear as a source or
// target (there is no separate vertex section, unlike Pajek).
type LinkListReader struct{}

func NewLinkListReader() *LinkListReader { return &LinkListReader{} }

func (r *LinkListReader) Name() string { return "link-list" }

func (r *LinkListReader) Read(ctx context.Context, reader io.Reader) (*Data, error) {
	data := &Data{}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	nodeSeen := make(map[uint32]bool)
	lineNum := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		link, err := parsePajekLink(line)
		if err != nil {
			return nil, fmt.Errorf("network: link-list line %d: %w", lineNum, err)
		}
		data.Links = append(data.Links, link)
		addNodeOnce(data, nodeSeen, link.Source)
		addNodeOnce(data, nodeSeen, link.Target)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("network: reading link-list input: %w", err)
	}
	if len(data.Nodes) == 0 {
		return nil, ErrEmptyInput
	}
	return data, nil
}

func addNodeOnce(data *Data, seen map[uint32]bool, id uint32) {
	if seen[id] {
		return
	}
	seen[id] = true
	data.Nodes = append(data.Nodes, Node{ID: id, Name: strconv.FormatUint(uint64(id), 10)})
}
