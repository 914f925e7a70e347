// Package exec implements the runtime's event executor and group
// (spec.md §4.6): a single-worker-thread executor with a FIFO task queue
// and a min-heap of scheduled tasks, and a group that multiplexes N
// executors with round-robin selection and coordinated graceful shutdown.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package exec

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aisreactor/reactor/cmn/nlog"
	"github.com/aisreactor/reactor/promise"
	"github.com/prometheus/client_golang/prometheus"
)

// defaultParkInterval bounds how long the loop parks with no queued work
// and no pending scheduled task, so a late Stop() is still noticed
// promptly.
const defaultParkInterval = 250 * time.Millisecond

// Executor owns exactly one worker goroutine. All channel state mutation
// in this runtime is required to happen via an Executor (spec.md §5).
type Executor struct {
	name string

	mu        sync.Mutex
	queue     []func()
	scheduled scheduledHeap
	idCounter uint64

	wake    chan struct{}
	stopCh  chan struct{}
	started chan struct{}
	loopGID uint64

	rejecting atomic.Bool // terminal: Execute/Schedule always reject
	draining  atomic.Bool // graceful period: Execute still accepted
	lastAccept atomic.Int64 // unix nanos, updated on acceptance while draining

	termination *promise.Promise

	tasksExecuted  prometheus.Counter
	scheduledDepth prometheus.Gauge
}

// New constructs and starts an Executor's worker goroutine. reg may be
// nil to skip metrics registration.
func New(name string, reg *prometheus.Registry) *Executor {
	e := &Executor{
		name:        name,
		wake:        make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		started:     make(chan struct{}),
		termination: promise.New(nil),
	}
	if reg != nil {
		e.tasksExecuted = prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "reactor_executor_tasks_executed_total",
			Help:        "Tasks executed by this event executor.",
			ConstLabels: prometheus.Labels{"executor": name},
		})
		e.scheduledDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "reactor_executor_scheduled_depth",
			Help:        "Pending scheduled tasks on this event executor's heap.",
			ConstLabels: prometheus.Labels{"executor": name},
		})
		reg.MustRegister(e.tasksExecuted, e.scheduledDepth)
	}
	go e.loop()
	<-e.started
	return e
}

func (e *Executor) Name() string { return e.name }

// InEventLoop tests whether the calling goroutine is this executor's
// worker goroutine.
func (e *Executor) InEventLoop() bool {
	return goroutineID() == atomic.LoadUint64(&e.loopGID)
}

// Execute enqueues fn to run on the worker goroutine in FIFO order. A
// submission from a foreign thread wakes the loop; a submission made from
// within the loop itself runs in the next batch, right after the tasks of
// the current one. Silently
// dropped once the executor has fully shut down.
func (e *Executor) Execute(fn func()) {
	if e.rejecting.Load() {
		return
	}
	if e.draining.Load() {
		e.lastAccept.Store(time.Now().UnixNano())
	}
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Schedule runs fn once after delay.
func (e *Executor) Schedule(delay time.Duration, fn func()) *ScheduledTask {
	return e.schedule(delay, 0, fn)
}

// ScheduleAtFixedRate runs fn every period, starting after initial delay,
// without drifting relative to the original deadline (period > 0).
func (e *Executor) ScheduleAtFixedRate(initial, period time.Duration, fn func()) *ScheduledTask {
	return e.schedule(initial, period, fn)
}

// ScheduleWithFixedDelay runs fn repeatedly, each run scheduled delay
// after the previous run completed (period < 0 by spec.md §3 convention).
func (e *Executor) ScheduleWithFixedDelay(initial, delay time.Duration, fn func()) *ScheduledTask {
	return e.schedule(initial, -delay, fn)
}

func (e *Executor) schedule(initial, period time.Duration, fn func()) *ScheduledTask {
	if e.rejecting.Load() {
		return nil
	}
	e.mu.Lock()
	e.idCounter++
	st := &ScheduledTask{id: e.idCounter, deadline: time.Now().Add(initial), period: period, fn: fn}
	heap.Push(&e.scheduled, st)
	if e.scheduledDepth != nil {
		e.scheduledDepth.Set(float64(len(e.scheduled)))
	}
	e.mu.Unlock()
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return st
}

// loop is the executor's sole worker goroutine body, implementing the
// spec.md §4.6 cycle: drain due scheduled tasks into the FIFO queue, run
// the queue, then park until the earlier of the next deadline or a wake.
func (e *Executor) loop() {
	atomic.StoreUint64(&e.loopGID, goroutineID())
	close(e.started)
	nlog.Infof("executor %s: started", e.name)
	for {
		e.mu.Lock()
		now := time.Now()
		for len(e.scheduled) > 0 && !e.scheduled[0].deadline.After(now) {
			st := heap.Pop(&e.scheduled).(*ScheduledTask)
			if st.cancelled {
				continue
			}
			fn := st.fn
			if st.period < 0 {
				// fixed delay: the next deadline counts from the end of this run
				fn = func() {
					defer func() {
						e.mu.Lock()
						st.deadline = time.Now().Add(-st.period)
						heap.Push(&e.scheduled, st)
						e.mu.Unlock()
					}()
					st.fn()
				}
			}
			e.queue = append(e.queue, fn)
			if st.period > 0 {
				st.deadline = st.deadline.Add(st.period)
				heap.Push(&e.scheduled, st)
			}
		}
		if e.scheduledDepth != nil {
			e.scheduledDepth.Set(float64(len(e.scheduled)))
		}
		wait := defaultParkInterval
		if len(e.scheduled) > 0 {
			if d := time.Until(e.scheduled[0].deadline); d < wait {
				wait = d
			}
		}
		batch := e.queue
		e.queue = nil
		e.mu.Unlock()

		for _, fn := range batch {
			e.runOne(fn)
		}

		if len(batch) > 0 {
			select {
			case <-e.stopCh:
				e.shutdownDrain()
				return
			default:
				continue
			}
		}

		select {
		case <-e.wake:
		case <-time.After(wait):
		case <-e.stopCh:
			e.shutdownDrain()
			return
		}
	}
}

func (e *Executor) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			nlog.Errorln("executor", e.name, "task panic:", r)
		}
	}()
	fn()
	if e.tasksExecuted != nil {
		e.tasksExecuted.Inc()
	}
}

// shutdownDrain runs any already-queued tasks one final time, then
// completes the termination future. Tasks submitted after Stop() was
// observed are not run.
func (e *Executor) shutdownDrain() {
	e.mu.Lock()
	batch := e.queue
	e.queue = nil
	e.mu.Unlock()
	for _, fn := range batch {
		e.runOne(fn)
	}
	e.rejecting.Store(true)
	e.termination.TrySuccess(nil)
	nlog.Infof("executor %s: stopped", e.name)
}

// stop requests loop termination; it is idempotent.
func (e *Executor) stop() {
	defer func() { recover() }()
	close(e.stopCh)
}

// beginDrain marks the executor as entering its graceful quiet period:
// Execute is still accepted, but each acceptance is timestamped so the
// owning Group can tell whether the quiet period needs to be extended.
func (e *Executor) beginDrain() {
	e.lastAccept.Store(time.Now().UnixNano())
	e.draining.Store(true)
}

func (e *Executor) lastAcceptedAt() time.Time {
	return time.Unix(0, e.lastAccept.Load())
}

// TerminationFuture completes once this executor's worker goroutine has
// fully exited.
func (e *Executor) TerminationFuture() *promise.Promise { return e.termination }
