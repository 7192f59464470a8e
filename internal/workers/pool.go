// Package workers provides the bounded worker pool used to parallelize
// per-chromosome fitness evaluation within one generation (spec 5).
package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of fitness-evaluation work. It receives the
// generation's context so it can observe cancellation between
// chromosomes, per spec 5's "fitness tasks check a cancellation flag
// between chromosomes, not mid-simulation".
type Task func(ctx context.Context) error

// Pool manages a bounded set of worker goroutines, per spec 5's "bounded
// worker pool (configurable, default 4)".
type Pool struct {
	logger  *zap.Logger
	config  *PoolConfig
	metrics *PoolMetrics
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	Name       string
	NumWorkers int
}

// DefaultPoolConfig returns the spec's default of 4 workers.
func DefaultPoolConfig(name string) *PoolConfig {
	return &PoolConfig{Name: name, NumWorkers: 4}
}

// NewPool creates a new worker pool.
func NewPool(logger *zap.Logger, config *PoolConfig) *Pool {
	if config == nil {
		config = DefaultPoolConfig("fitness")
	}
	if config.NumWorkers <= 0 {
		config.NumWorkers = 4
	}
	return &Pool{logger: logger, config: config, metrics: NewPoolMetrics()}
}

// RunAll runs every task with at most NumWorkers concurrently active, and
// blocks until all tasks have completed or ctx is cancelled. The first
// task to error short-circuits remaining unstarted tasks; tasks already
// running are allowed to finish. Returns the first error encountered, if
// any.
func (p *Pool) RunAll(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	sem := make(chan struct{}, p.config.NumWorkers)
	var wg sync.WaitGroup
	var firstErr atomic.Value

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		default:
		}
		if firstErr.Load() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(t Task) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			err := t(ctx)
			p.metrics.RecordLatency(time.Since(start).Nanoseconds())
			atomic.AddInt64(&p.metrics.TasksCompleted, 1)
			if err != nil {
				atomic.AddInt64(&p.metrics.TasksFailed, 1)
				firstErr.CompareAndSwap(nil, err)
			}
		}(task)
	}

	wg.Wait()
	if err, ok := firstErr.Load().(error); ok {
		return err
	}
	return nil
}

// Stats returns current pool throughput statistics.
func (p *Pool) Stats() PoolStats {
	return p.metrics.GetStats()
}

// PoolMetrics tracks pool performance across generations.
type PoolMetrics struct {
	mu sync.Mutex

	TasksCompleted int64
	TasksFailed    int64

	latencies  []int64
	latencyIdx int
	startTime  time.Time
}

// NewPoolMetrics creates a new metrics tracker.
func NewPoolMetrics() *PoolMetrics {
	return &PoolMetrics{
		latencies: make([]int64, 1000),
		startTime: time.Now(),
	}
}

// RecordLatency records one task's execution latency.
func (m *PoolMetrics) RecordLatency(ns int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[m.latencyIdx%len(m.latencies)] = ns
	m.latencyIdx++
}

// GetStats returns current metrics.
func (m *PoolMetrics) GetStats() PoolStats {
	return PoolStats{
		TasksCompleted: atomic.LoadInt64(&m.TasksCompleted),
		TasksFailed:    atomic.LoadInt64(&m.TasksFailed),
		Uptime:         time.Since(m.startTime),
	}
}

// PoolStats summarizes pool activity.
type PoolStats struct {
	TasksCompleted int64
	TasksFailed    int64
	Uptime         time.Duration
}
