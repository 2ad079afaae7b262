// Package topmodules ranks a finished partition's top-level modules by
// aggregate flow, the way a profiler ranks hot functions by sample count.
package topmodules

import (
	"fmt"
	"sort"

	"github.com/mapequation/infomap-go/internal/coreinfomap/result"
)

// Calculator ranks modules by their share of total flow.
type Calculator struct {
	topN int
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithTopN sets the number of top modules to return. 0 means no limit.
func WithTopN(n int) Option {
	return func(c *Calculator) { c.topN = n }
}

// NewCalculator creates a Calculator, defaulting to the top 10 modules.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{topN: 10}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModuleEntry is one ranked module with its aggregate flow.
type ModuleEntry struct {
	ModuleID string
	Flow     float64
	Percent  float64
	Size     int // number of leaves assigned to this module
}

// Result holds the ranked modules and the totals they were ranked against.
type Result struct {
	Modules    []ModuleEntry
	TotalFlow  float64
	TotalLeaks int
}

// Calculate ranks the top-level modules present in leaves by summed flow.
func Calculate(leaves []result.LeafResult, opts ...Option) *Result {
	c := NewCalculator(opts...)
	return c.Calculate(leaves)
}

// Calculate ranks the top-level modules present in leaves by summed flow.
func (c *Calculator) Calculate(leaves []result.LeafResult) *Result {
	res := &Result{Modules: make([]ModuleEntry, 0)}
	if len(leaves) == 0 {
		return res
	}

	flowByModule := make(map[string]float64)
	sizeByModule := make(map[string]int)
	var order []string

	for _, l := range leaves {
		if len(l.Path) == 0 {
			continue
		}
		id := fmt.Sprintf("%d", l.Path[0])
		if _, seen := flowByModule[id]; !seen {
			order = append(order, id)
		}
		flowByModule[id] += l.Flow
		sizeByModule[id]++
		res.TotalFlow += l.Flow
		res.TotalLeaks++
	}

	entries := make([]ModuleEntry, 0, len(order))
	for _, id := range order {
		flow := flowByModule[id]
		percent := 0.0
		if res.TotalFlow > 0 {
			percent = flow / res.TotalFlow * 100
		}
		entries = append(entries, ModuleEntry{
			ModuleID: id,
			Flow:     flow,
			Percent:  percent,
			Size:     sizeByModule[id],
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Flow != entries[j].Flow {
			return entries[i].Flow > entries[j].Flow
		}
		return entries[i].ModuleID < entries[j].ModuleID
	})

	if c.topN > 0 && len(entries) > c.topN {
		entries = entries[:c.topN]
	}
	res.Modules = entries
	return res
}
