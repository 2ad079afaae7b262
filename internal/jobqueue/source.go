package jobqueue

import (
	"context"
	"fmt"
	"sync"
)

// SourceType identifies a job source strategy.
type SourceType string

// JobEvent is a unified job arrival from any source.
type JobEvent struct {
	ID       string
	Job      *ClusterJob
	Source   SourceType
	Priority int
	AckToken interface{}
}

// NewJobEvent wraps a ClusterJob as an event from the given source.
func NewJobEvent(job *ClusterJob, source SourceType) *JobEvent {
	priority := 0
	if job.IsHighPriority() {
		priority = 1
	}
	return &JobEvent{ID: job.UUID, Job: job, Source: source, Priority: priority}
}

// Source is the strategy interface each job origin implements: an
// in-process submission channel, a polled database table, or any other
// place clustering requests can arrive from.
type Source interface {
	Type() SourceType
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Jobs() <-chan *JobEvent
	Ack(ctx context.Context, event *JobEvent) error
	Nack(ctx context.Context, event *JobEvent, reason string) error
}

// Aggregator fans the job channels of multiple sources into one.
type Aggregator struct {
	sources []Source

	mu      sync.Mutex
	out     chan *JobEvent
	started bool
}

// NewAggregator builds an Aggregator over the given sources.
func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources, out: make(chan *JobEvent, 64)}
}

// Start starts every source and begins fanning their events into the
// aggregator's own channel.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	for _, src := range a.sources {
		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("jobqueue: starting source %s/%s: %w", src.Type(), src.Name(), err)
		}
		go a.forward(ctx, src)
	}
	return nil
}

func (a *Aggregator) forward(ctx context.Context, src Source) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-src.Jobs():
			if !ok {
				return
			}
			select {
			case a.out <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Jobs returns the aggregated event channel.
func (a *Aggregator) Jobs() <-chan *JobEvent { return a.out }

// Ack acknowledges an event against its originating source.
func (a *Aggregator) Ack(ctx context.Context, event *JobEvent) error {
	src := a.sourceFor(event.Source)
	if src == nil {
		return nil
	}
	return src.Ack(ctx, event)
}

// Nack nacks an event against its originating source.
func (a *Aggregator) Nack(ctx context.Context, event *JobEvent, reason string) error {
	src := a.sourceFor(event.Source)
	if src == nil {
		return nil
	}
	return src.Nack(ctx, event, reason)
}

func (a *Aggregator) sourceFor(t SourceType) Source {
	for _, src := range a.sources {
		if src.Type() == t {
			return src
		}
	}
	return nil
}

// Stop stops every source.
func (a *Aggregator) Stop() {
	for _, src := range a.sources {
		src.Stop()
	}
}
