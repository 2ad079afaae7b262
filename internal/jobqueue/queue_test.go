package jobqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeProcessor counts jobs it processes and returns a canned result.
type fakeProcessor struct {
	processed int32
}

func (p *fakeProcessor) Process(ctx context.Context, job *ClusterJob) (*Result, error) {
	atomic.AddInt32(&p.processed, 1)
	return &Result{JobUUID: job.UUID, Codelength: 1.0, NumLevels: 1, NumTopModules: 2}, nil
}

func (p *fakeProcessor) count() int32 { return atomic.LoadInt32(&p.processed) }

func TestQueue_ProcessesSubmittedJobs(t *testing.T) {
	mem := NewMemorySource("test", 8)
	agg := NewAggregator(mem)
	proc := &fakeProcessor{}

	var results int32
	q := New(DefaultConfig(), agg, proc, nil)
	q.OnResult(func(job *ClusterJob, r *Result) { atomic.AddInt32(&results, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Start(ctx))

	for i := 0; i < 3; i++ {
		job := &ClusterJob{UUID: "job", InputPath: "net.txt"}
		require.NoError(t, mem.Submit(ctx, job))
	}

	require.Eventually(t, func() bool { return proc.count() == 3 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&results) == 3 }, time.Second, 5*time.Millisecond)

	q.Stop()
}

func TestQueue_PriorityJobsBypassReservedSlots(t *testing.T) {
	mem := NewMemorySource("test", 8)
	agg := NewAggregator(mem)
	proc := &fakeProcessor{}

	cfg := Config{WorkerCount: 2, PrioritySlots: 1, QueueSize: 8}
	q := New(cfg, agg, proc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))

	job := &ClusterJob{UUID: "high", InputPath: "net.txt", Priority: 1}
	require.NoError(t, mem.Submit(ctx, job))

	require.Eventually(t, func() bool { return proc.count() >= 1 }, time.Second, 5*time.Millisecond)
	q.Stop()
}
