package generator

import (
	"context"
	"fmt"
	"sync"

	"github.com/clipforge/clipforge/internal/logging"
	"github.com/clipforge/clipforge/internal/metrics"
)

// Runner executes the pipeline for one claimed project.
type Runner func(ctx context.Context, projectID string) error

// Pool is the in-process dispatcher: a fixed number of workers draining an
// unbounded FIFO. A dispatch that finds every worker busy queues; it never
// fails for load. Once a run has started it is not cancelled.
type Pool struct {
	runner Runner
	logger *logging.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []string
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool starts a pool with the given number of workers.
func NewPool(workers int, runner Runner, logger *logging.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		runner: runner,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	return p
}

// Dispatch enqueues a project for execution.
func (p *Pool) Dispatch(ctx context.Context, projectID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return fmt.Errorf("worker pool stopped")
	}

	p.queue = append(p.queue, projectID)
	metrics.QueueDepth.Set(float64(len(p.queue)))
	p.cond.Signal()
	return nil
}

// Stop drains the queue and waits for in-flight runs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
	p.cancel()
}

// Depth returns the number of queued projects.
func (p *Pool) Depth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	log := p.logger.WithWorkerID(fmt.Sprintf("pool-%d", id))
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		projectID := p.queue[0]
		p.queue = p.queue[1:]
		metrics.QueueDepth.Set(float64(len(p.queue)))
		p.mu.Unlock()

		if err := p.runner(p.ctx, projectID); err != nil {
			log.WithProjectID(projectID).WithError(err).Error("pipeline run failed")
		}
	}
}
