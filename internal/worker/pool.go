// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package worker runs background I/O (disk writes, network fetches) off the
// caller's goroutine with bounded concurrency.
package worker

import (
	"context"
	"sync"

	"github.com/apex/log"
	"golang.org/x/sync/semaphore"
)

// DefaultSize is the concurrency used when none is configured.
const DefaultSize = 4

// Pool is an unordered worker pool. Go never blocks the caller; tasks wait for
// a slot on their own goroutine.
type Pool struct {
	sem *semaphore.Weighted

	mutex   sync.Mutex
	drained *sync.Cond
	pending int
	closed  bool
}

// New returns a pool running at most size tasks at once.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	p := &Pool{sem: semaphore.NewWeighted(int64(size))}
	p.drained = sync.NewCond(&p.mutex)
	return p
}

// Go schedules fn. It returns false, without running fn, once Wait has been
// called.
func (p *Pool) Go(fn func()) bool {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		log.Debug("worker pool closed, dropping task")
		return false
	}
	p.pending++
	p.mutex.Unlock()

	go func() {
		defer p.done()
		// Acquire only fails on a cancelled context and this one never is.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("background task panicked: %v", r)
			}
		}()
		fn()
	}()
	return true
}

func (p *Pool) done() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pending--
	if p.pending == 0 {
		p.drained.Broadcast()
	}
}

// Wait stops accepting tasks and blocks until every scheduled task finished.
// Tasks that schedule more tasks while Wait is draining have those dropped.
func (p *Pool) Wait() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.closed = true
	p.waitDrained()
}

// Idle blocks until no task is pending, without closing the pool. It is safe
// to call while other goroutines keep calling Go, but then it only returns at
// a moment when the pool happens to be empty.
func (p *Pool) Idle() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.waitDrained()
}

func (p *Pool) waitDrained() {
	for p.pending > 0 {
		p.drained.Wait()
	}
}
