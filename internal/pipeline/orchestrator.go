package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/legistruct/internal/config"
	"github.com/dgallion1/legistruct/internal/storage"
)

// Orchestrator runs parse jobs on a bounded queue served by a fixed pool of
// workers. Each job is one document; documents are independent.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	parser *DocParser
	store  storage.Adapter
	stats  *ParseStats
	log    *slog.Logger
	cfg    config.Config
	opts   WorkerOptions

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch the workers.
func NewOrchestrator(cfg config.Config, dp *DocParser, store storage.Adapter, opts WorkerOptions, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		parser: dp,
		store:  store,
		stats:  NewParseStats(time.Hour),
		log:    log,
		cfg:    cfg,
		opts:   opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.parser, o.store, o.stats, o.log, o.opts)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the parse latency tracker.
func (o *Orchestrator) Stats() *ParseStats {
	return o.stats
}

// Storage returns the export adapter, nil when export is disabled.
func (o *Orchestrator) Storage() storage.Adapter {
	return o.store
}
