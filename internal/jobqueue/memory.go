package jobqueue

import (
	"context"
	"sync"
)

// SourceTypeMemory identifies jobs submitted in-process, e.g. from an
// HTTP or gRPC handler that wants to enqueue a job synchronously.
const SourceTypeMemory SourceType = "memory"

// MemorySource is a Source backed by a plain channel: Submit pushes a
// job in, Jobs drains it. It never polls anything and its Ack/Nack are
// no-ops since there is no external system to reconcile with.
type MemorySource struct {
	name string
	ch   chan *JobEvent

	mu      sync.Mutex
	running bool
}

// NewMemorySource creates a MemorySource with the given buffer size.
func NewMemorySource(name string, buffer int) *MemorySource {
	if buffer <= 0 {
		buffer = 16
	}
	return &MemorySource{name: name, ch: make(chan *JobEvent, buffer)}
}

func (s *MemorySource) Type() SourceType { return SourceTypeMemory }
func (s *MemorySource) Name() string     { return s.name }

func (s *MemorySource) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return nil
}

func (s *MemorySource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	close(s.ch)
	return nil
}

func (s *MemorySource) Jobs() <-chan *JobEvent { return s.ch }

func (s *MemorySource) Ack(ctx context.Context, event *JobEvent) error { return nil }

func (s *MemorySource) Nack(ctx context.Context, event *JobEvent, reason string) error { return nil }

// Submit enqueues a job, blocking if the buffer is full. It returns an
// error only if the context is cancelled first.
func (s *MemorySource) Submit(ctx context.Context, job *ClusterJob) error {
	event := NewJobEvent(job, SourceTypeMemory)
	select {
	case s.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
