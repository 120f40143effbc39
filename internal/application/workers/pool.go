package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/fftdetect/pkg/domain"
	"github.com/aescanero/fftdetect/pkg/ports"
)

var (
	// ErrQueueFull is returned when the forwarding backlog is exhausted
	ErrQueueFull = errors.New("forwarding queue full")
	// ErrPoolClosed is returned by Publish after shutdown started
	ErrPoolClosed = errors.New("forwarding pool closed")
)

// Config holds worker pool configuration
type Config struct {
	// Name identifies the target sink in logs and failure callbacks
	Name      string
	Size      int
	QueueSize int
	// Timeout bounds every forward to the target
	Timeout time.Duration
	// OnFailure, when set, is called for every forward the target rejects
	OnFailure func(sink string)
	Logger    *zap.Logger
}

// Pool forwards detections to a slower publisher from a fixed set of
// worker goroutines, so callers only pay for an enqueue
type Pool struct {
	cfg    Config
	target ports.EventPublisher
	logger *zap.Logger

	queue  chan domain.Detection
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id   string
	pool *Pool
}

// NewPool creates a new worker pool in front of target
func NewPool(target ports.EventPublisher, cfg Config) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		cfg:    cfg,
		target: target,
		logger: cfg.Logger.With(zap.String("sink", cfg.Name)),
		queue:  make(chan domain.Detection, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	p.logger.Debug("starting worker pool", zap.Int("size", p.cfg.Size))

	for i := 0; i < p.cfg.Size; i++ {
		w := &worker{
			id:   fmt.Sprintf("worker-%d", i),
			pool: p,
		}

		p.wg.Add(1)
		go w.run()
	}
}

// Publish enqueues d without blocking
func (p *Pool) Publish(ctx context.Context, d domain.Detection) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- d:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close drains the backlog, waiting at most one forward timeout, and closes
// the target
func (p *Pool) Close() error {
	timeout := p.cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.Shutdown(ctx)
}

// Shutdown stops accepting detections and waits for the workers to drain the
// backlog. In-flight forwards are cancelled when ctx ends first.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	// Wait for all workers to finish with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var errs []error
	select {
	case <-done:
	case <-ctx.Done():
		p.cancel()
		<-done
		errs = append(errs, fmt.Errorf("shutdown timeout: %w", ctx.Err()))
	}
	p.cancel()

	if err := p.target.Close(); err != nil {
		errs = append(errs, err)
	}

	p.logger.Debug("worker pool shut down complete")
	return errors.Join(errs...)
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()

	for d := range w.pool.queue {
		if w.pool.ctx.Err() != nil {
			// shutdown timed out, discard the rest
			continue
		}
		w.forward(d)
	}
}

// forward hands one detection to the target
func (w *worker) forward(d domain.Detection) {
	ctx := w.pool.ctx
	if w.pool.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.pool.cfg.Timeout)
		defer cancel()
	}

	if err := w.pool.target.Publish(ctx, d); err != nil {
		w.pool.logger.Error("failed to forward detection",
			zap.String("worker_id", w.id),
			zap.String("received_at", d.ReceivedAt),
			zap.Error(err))
		if w.pool.cfg.OnFailure != nil {
			w.pool.cfg.OnFailure(w.pool.cfg.Name)
		}
	}
}
