// Package worker provides an asynchronous worker pool that records upstream
// call outcomes against the account source.
//
// The pool decouples statistics writes from the bridge's HTTP hot path so a
// slow or locked database never delays a client response.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/puterbridge/pkg/accounts"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 5 * time.Second
)

// Job is one upstream call outcome to record.
type Job struct {
	AccountID string
	Interface string
	Success   bool
	At        time.Time
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Recorder persists the outcome.
	Recorder accounts.Recorder

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single record call (defaults to 5s).
	JobTimeout time.Duration

	// OnDrop is called when a job is dropped on a full queue.
	OnDrop func(Job)

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes outcome jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Recorder == nil {
		return nil, fmt.Errorf("worker pool requires a recorder")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.JobTimeout == 0 {
		c.JobTimeout = defaultJobTimeout
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("outcome queued",
			zap.String("account_id", job.AccountID),
			zap.Bool("success", job.Success),
		)
		return true
	default:
		p.logger.Error("outcome not queued, queue full, job dropped",
			zap.String("account_id", job.AccountID),
			zap.Bool("success", job.Success),
		)
		if p.config.OnDrop != nil {
			p.config.OnDrop(job)
		}
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("outcome worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	if err := p.config.Recorder.RecordCall(ctx, job.AccountID, job.Success, job.At); err != nil {
		p.logger.Error("recording call outcome failed",
			zap.String("account_id", job.AccountID),
			zap.String("interface", job.Interface),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("call outcome recorded",
		zap.String("account_id", job.AccountID),
		zap.Bool("success", job.Success),
	)
}
