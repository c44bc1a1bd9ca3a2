// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var ErrPoolClosed = errors.New("worker pool is shut down")

// Executor accepts tasks without blocking the caller.
type Executor interface {
	Submit(task func()) error
}

// Pool is an Executor with a drain lifecycle.
type Pool interface {
	Executor
	Shutdown()
	// AwaitTermination blocks until every submitted task has run or the
	// timeout elapses. It returns the number of tasks still queued or
	// running and whether the pool fully drained.
	AwaitTermination(timeout time.Duration) (unfinished int, drained bool)
}

// WorkerPool runs every submitted task on its own goroutine, gated by a
// weighted semaphore of the pool size. Submit never waits for a free slot.
type WorkerPool struct {
	slots   *semaphore.Weighted
	mu      sync.Mutex
	closed  bool
	pending atomic.Int64
	tasks   sync.WaitGroup
}

func NewWorkerPool(size int) *WorkerPool {
	return &WorkerPool{slots: semaphore.NewWeighted(int64(size))}
}

func (p *WorkerPool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks.Add(1)
	p.pending.Add(1)
	go p.run(task)
	return nil
}

func (p *WorkerPool) run(task func()) {
	defer p.tasks.Done()
	defer p.pending.Add(-1)

	// background context: queued tasks are never cancelled
	if err := p.slots.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer p.slots.Release(1)
	task()
}

// Shutdown stops accepting tasks; queued tasks still run.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// AwaitTermination waits for queued and running tasks. When the timeout wins
// the tasks are abandoned, not cancelled: they keep running, and the
// goroutine waiting on them lingers until the last one returns.
func (p *WorkerPool) AwaitTermination(timeout time.Duration) (int, bool) {
	done := make(chan struct{})
	go func() {
		p.tasks.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return 0, true
	case <-timer.C:
		return p.Pending(), false
	}
}

// Pending returns the number of tasks waiting for a slot or executing.
func (p *WorkerPool) Pending() int {
	return int(p.pending.Load())
}
