// Package jobqueue schedules and runs clustering jobs against the
// Infomap engine: a priority worker pool pulling job events from one or
// more sources the way a task scheduler pulls work from queues, kafka
// topics, or webhooks. The one Source this package provides is the
// in-process MemorySource.
package jobqueue

import (
	"time"

	"github.com/mapequation/infomap-go/internal/coreinfomap/engine"
	"github.com/mapequation/infomap-go/internal/topmodules"
)

// Status is the lifecycle state of a ClusterJob.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ClusterJob describes one request to cluster a network file.
type ClusterJob struct {
	ID         int64
	UUID       string
	InputPath  string
	InputFmt   string // "pajek", "link-list", or "" to infer from extension
	OutputPath string
	Format     string // "clu", "tree", or "ftree"
	Config     engine.Config
	Priority   int // higher value = higher priority

	// NetworkKey, when set, names an object-storage key the processor
	// fetches into InputPath before reading it (see internal/netstore),
	// letting a submitter hand off a network file without sharing a
	// filesystem with the worker.
	NetworkKey string
	// ResultKey, when set, uploads the written result artifact to this
	// object-storage key once the job completes.
	ResultKey string

	Status    Status
	Error     string
	CreatedAt time.Time
}

// IsHighPriority reports whether the job should be treated as high
// priority when a worker pool is under contention.
func (j *ClusterJob) IsHighPriority() bool {
	return j.Priority > 0
}

// Result is the outcome of running a ClusterJob to completion.
type Result struct {
	JobUUID       string
	Codelength    float64
	NumLevels     int
	NumTopModules int
	OutputPath    string
	Duration      time.Duration
	TopModules    []topmodules.ModuleEntry
}
