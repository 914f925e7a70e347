// Package hk provides a mechanism for registering named periodic
// callbacks invoked at the interval each callback itself returns. It is
// the runtime's housekeeping scheduler, distinct from a per-channel event
// executor's scheduled-task heap: hk runs process-wide background sweeps
// (leak-detector drains, metrics snapshots) that are not tied to any one
// channel's owning thread.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package hk

import (
	"container/heap"
	"sync"
	"time"

	"github.com/aisreactor/reactor/cmn/debug"
	"github.com/aisreactor/reactor/cmn/nlog"
)

type action struct {
	name  string
	f     func() time.Duration
	due   time.Time
	index int // heap.Interface bookkeeping
}

// actionHeap is a min-heap ordered by due time, mirroring the collector
// heap idiom used to order stream idle-deadlines by tick count.
type actionHeap []*action

func (h actionHeap) Len() int            { return len(h) }
func (h actionHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h actionHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *actionHeap) Push(x any)         { a := x.(*action); a.index = len(*h); *h = append(*h, a) }
func (h *actionHeap) Pop() any {
	old := *h
	n := len(old)
	a := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return a
}

type ctrlKind int

const (
	ctrlAdd ctrlKind = iota
	ctrlRemove
)

type ctrlMsg struct {
	kind    ctrlKind
	name    string
	f       func() time.Duration
	initial time.Duration
}

// Housekeeper is a singleton named-callback registry. The zero value is
// not usable; DefaultHK is the package's ready-to-run instance.
type Housekeeper struct {
	mu      sync.Mutex
	byName  map[string]*action
	h       actionHeap
	ctrlCh  chan ctrlMsg
	stopCh  chan struct{}
	started chan struct{}
	once    sync.Once
}

// DefaultHK is the process-wide housekeeping scheduler. Callers normally
// never construct a Housekeeper directly.
var DefaultHK = newHousekeeper()

func newHousekeeper() *Housekeeper {
	return &Housekeeper{
		byName:  make(map[string]*action),
		ctrlCh:  make(chan ctrlMsg, 64),
		stopCh:  make(chan struct{}),
		started: make(chan struct{}),
	}
}

// Reg registers a named periodic callback. f is invoked and its return
// value becomes the delay until the next invocation; the first invocation
// happens after the optional initial delay (default: immediately). A name
// that is already registered is ignored; under -tags=debug the
// housekeeping goroutine panics via debug.Assert instead.
func Reg(name string, f func() time.Duration, initial ...time.Duration) {
	var in time.Duration
	if len(initial) > 0 {
		in = initial[0]
	}
	DefaultHK.ensureStarted()
	DefaultHK.ctrlCh <- ctrlMsg{kind: ctrlAdd, name: name, f: f, initial: in}
}

// Unreg removes a previously registered callback. No-op if name is not
// currently registered.
func Unreg(name string) {
	DefaultHK.ensureStarted()
	DefaultHK.ctrlCh <- ctrlMsg{kind: ctrlRemove, name: name}
}

// ensureStarted lazily starts the housekeeping loop on first use so
// callers never need an explicit Run() in production code paths; tests
// that need deterministic startup ordering call TestInit + Run +
// WaitStarted explicitly instead.
func (hk *Housekeeper) ensureStarted() {
	hk.once.Do(func() { go hk.Run() })
}

// WaitStarted blocks until the housekeeping loop has begun running.
func WaitStarted() { <-DefaultHK.started }

// TestInit resets DefaultHK to a fresh, unstarted state. Intended for
// test suites that need isolation between runs.
func TestInit() {
	DefaultHK = newHousekeeper()
}

// Run is the housekeeper's main loop: blocks until Stop is called.
func (hk *Housekeeper) Run() {
	hk.once.Do(func() {})
	close(hk.started)
	nlog.Infof("Starting housekeeper")
	for {
		var timerC <-chan time.Time
		var timer *time.Timer
		if len(hk.h) > 0 {
			timer = time.NewTimer(time.Until(hk.h[0].due))
			timerC = timer.C
		}
		select {
		case msg := <-hk.ctrlCh:
			hk.handle(msg)
		case <-timerC:
			hk.fireDue()
		case <-hk.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Stop terminates the housekeeping loop.
func (hk *Housekeeper) Stop() { close(hk.stopCh) }

func (hk *Housekeeper) handle(msg ctrlMsg) {
	switch msg.kind {
	case ctrlAdd:
		if _, ok := hk.byName[msg.name]; ok {
			debug.Assert(false, "hk: duplicate registration: "+msg.name)
			return
		}
		a := &action{name: msg.name, f: msg.f, due: time.Now().Add(msg.initial)}
		hk.byName[msg.name] = a
		heap.Push(&hk.h, a)
	case ctrlRemove:
		a, ok := hk.byName[msg.name]
		if !ok {
			return
		}
		delete(hk.byName, msg.name)
		heap.Remove(&hk.h, a.index)
	}
}

func (hk *Housekeeper) fireDue() {
	now := time.Now()
	for len(hk.h) > 0 && !hk.h[0].due.After(now) {
		a := hk.h[0]
		next := a.f()
		if _, ok := hk.byName[a.name]; !ok {
			// unregistered itself mid-callback, or raced with Unreg
			heap.Pop(&hk.h)
			continue
		}
		a.due = time.Now().Add(next)
		heap.Fix(&hk.h, a.index)
	}
}
