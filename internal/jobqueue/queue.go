package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/mapequation/infomap-go/pkg/utils"
)

// Config holds worker pool configuration for a Queue.
type Config struct {
	WorkerCount   int // number of concurrent job workers
	PrioritySlots int // slots reserved for high priority jobs
	QueueSize     int // max jobs buffered between aggregator and workers
}

// DefaultConfig returns sensible worker pool defaults.
func DefaultConfig() Config {
	return Config{WorkerCount: 4, PrioritySlots: 1, QueueSize: 32}
}

// Queue runs ClusterJobs arriving from an Aggregator through a bounded
// worker pool, the way a task scheduler turns a stream of task events
// into bounded, prioritized processing.
type Queue struct {
	cfg        Config
	aggregator *Aggregator
	processor  Processor
	logger     utils.Logger

	workerPool chan struct{}
	jobQueue   chan *JobEvent
	wg         sync.WaitGroup
	stopCh     chan struct{}

	mu      sync.Mutex
	running bool

	onResult func(*ClusterJob, *Result)
}

// New builds a Queue over the given aggregator and processor.
func New(cfg Config, aggregator *Aggregator, processor Processor, logger utils.Logger) *Queue {
	if cfg.WorkerCount <= 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &Queue{
		cfg:        cfg,
		aggregator: aggregator,
		processor:  processor,
		logger:     logger,
		workerPool: make(chan struct{}, cfg.WorkerCount),
		jobQueue:   make(chan *JobEvent, cfg.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

// OnResult registers a callback invoked with every completed job and its
// result, e.g. to persist it through an internal/jobrepo Repository via
// RunFromResult.
func (q *Queue) OnResult(fn func(*ClusterJob, *Result)) { q.onResult = fn }

// Start starts the aggregator and the job processing loop.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	q.running = true
	q.mu.Unlock()

	for i := 0; i < q.cfg.WorkerCount; i++ {
		q.workerPool <- struct{}{}
	}

	if err := q.aggregator.Start(ctx); err != nil {
		return err
	}

	go q.dispatchLoop(ctx)
	go q.processLoop(ctx)
	return nil
}

// Stop stops the queue and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	close(q.stopCh)
	q.aggregator.Stop()
	q.wg.Wait()
}

func (q *Queue) shouldAccept(event *JobEvent) bool {
	active := q.cfg.WorkerCount - len(q.workerPool)
	reserved := q.cfg.WorkerCount - q.cfg.PrioritySlots
	if event.Priority > 0 {
		return active < q.cfg.WorkerCount
	}
	return active < reserved
}

func (q *Queue) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case event, ok := <-q.aggregator.Jobs():
			if !ok {
				return
			}
			if !q.shouldAccept(event) {
				q.logger.Debug("deferring job %s: priority slots full", event.ID)
				continue
			}
			select {
			case q.jobQueue <- event:
			case <-ctx.Done():
				return
			default:
				q.logger.Warn("job queue full, nacking %s", event.ID)
				if err := q.aggregator.Nack(ctx, event, "queue full"); err != nil {
					q.logger.Error("nack failed for %s: %v", event.ID, err)
				}
			}
		}
	}
}

func (q *Queue) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case event := <-q.jobQueue:
			select {
			case <-q.workerPool:
				q.wg.Add(1)
				go q.run(ctx, event)
			case <-ctx.Done():
				return
			case <-q.stopCh:
				return
			}
		}
	}
}

func (q *Queue) run(ctx context.Context, event *JobEvent) {
	defer func() {
		q.workerPool <- struct{}{}
		q.wg.Done()
	}()

	job := event.Job
	q.logger.Info("processing job %s (input=%s)", job.UUID, job.InputPath)

	start := time.Now()
	res, err := q.processor.Process(ctx, job)
	duration := time.Since(start)

	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		q.logger.Error("job %s failed after %v: %v", job.UUID, duration, err)
		if nackErr := q.aggregator.Nack(ctx, event, err.Error()); nackErr != nil {
			q.logger.Error("nack failed for %s: %v", job.UUID, nackErr)
		}
		return
	}

	res.Duration = duration
	job.Status = StatusCompleted
	q.logger.Info("job %s completed in %v, codelength=%.6f", job.UUID, duration, res.Codelength)

	if err := q.aggregator.Ack(ctx, event); err != nil {
		q.logger.Error("ack failed for %s: %v", job.UUID, err)
	}
	if q.onResult != nil {
		q.onResult(job, res)
	}
}

// Stats reports current worker pool occupancy.
type Stats struct {
	ActiveWorkers int
	TotalWorkers  int
	QueuedJobs    int
	Running       bool
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		ActiveWorkers: q.cfg.WorkerCount - len(q.workerPool),
		TotalWorkers:  q.cfg.WorkerCount,
		QueuedJobs:    len(q.jobQueue),
		Running:       q.running,
	}
}
