// Package worker provides an asynchronous worker pool that delivers telemetry
// records to a downstream telemetry.Sink.
//
// The pool decouples telemetry delivery from the request hot path so that a
// slow or unavailable backend never delays a user's reply.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/ragloop/pkg/logger"
	"github.com/papercomputeco/ragloop/pkg/telemetry"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultSendTimeout       = 10 * time.Second
)

var (
	// ErrPoolClosed is returned by Record after Close has been called.
	ErrPoolClosed = errors.New("telemetry pool closed")

	// ErrQueueFull is returned by Record when the record was dropped.
	ErrQueueFull = errors.New("telemetry queue full, record dropped")
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Sink is the downstream sink records are delivered to.
	Sink telemetry.Sink

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered record channel (defaults to 256).
	QueueSize uint

	// SendTimeout bounds each delivery attempt (defaults to 10s).
	SendTimeout time.Duration

	Logger *slog.Logger
}

// Pool delivers records asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *telemetry.Record
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Sink == nil {
		return nil, errors.New("telemetry pool requires a sink")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.SendTimeout == 0 {
		c.SendTimeout = defaultSendTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *telemetry.Record, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a record for delivery.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the record being dropped. Drops are not logged here; the
// caller reports them.
func (p *Pool) Enqueue(rec *telemetry.Record) bool {
	return p.enqueue(rec) == nil
}

func (p *Pool) enqueue(rec *telemetry.Record) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- rec:
		p.logger.Debug("record queued",
			"trace_id", rec.TraceID,
			"status", rec.Status,
		)
		return nil
	default:
		return ErrQueueFull
	}
}

// Record implements telemetry.Sink so a pool can stand in for its sink.
// A dropped record is reported as a *telemetry.Error.
func (p *Pool) Record(_ context.Context, rec *telemetry.Record) error {
	if rec == nil {
		return telemetry.ErrNilRecord
	}
	if err := p.enqueue(rec); err != nil {
		return telemetry.NewError("pool", err)
	}
	return nil
}

// Close signals workers to stop, waits for queued records to drain, and then
// closes the downstream sink.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Sink.Close()
}

// worker is the inner worker thread that continuously pulls records off the queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("telemetry worker started", "worker_id", id)

	for rec := range p.queue {
		p.deliver(rec)
	}

	p.logger.Debug("telemetry worker stopped", "worker_id", id)
}

// deliver sends one record downstream. Errors are logged and not retried.
func (p *Pool) deliver(rec *telemetry.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.SendTimeout)
	defer cancel()

	if err := p.config.Sink.Record(ctx, rec); err != nil {
		p.logger.Warn("telemetry delivery failed",
			"trace_id", rec.TraceID,
			"error", err,
		)
		return
	}

	p.logger.Debug("telemetry delivered", "trace_id", rec.TraceID)
}

var _ telemetry.Sink = (*Pool)(nil)
