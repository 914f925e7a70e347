// Package leak implements the reactor runtime's leak detector (spec.md
// §4.2): a best-effort sampler that notices resources reclaimed by the Go
// garbage collector without having gone through an explicit release, and
// reports the call sites that last touched them.
//
// Go has no reference-queue/weak-reference pair to port directly (spec.md
// §9 "Weak reference + reference queue for leak detection"); this package
// follows the design note's fallback: a registry of tracked resources
// keyed by identity, drained by a periodic task, using
// runtime.SetFinalizer as the reclamation signal.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package leak

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/aisreactor/reactor/cmn/nlog"
)

// Level selects the detector's sampling aggressiveness, per spec.md §4.2
// and the Configuration of spec.md §6.
type Level int

const (
	Disabled Level = iota
	Simple
	Advanced
	Paranoid
)

// DefaultSampleInterval is K from spec.md §4.2: at Simple/Advanced, one
// tracker is created per K tracked resources.
const DefaultSampleInterval = 128

// DefaultTargetRecords bounds the access-record history kept per tracker.
const DefaultTargetRecords = 4

type record struct {
	site string
	at   time.Time
}

// Tracker is the per-resource record a caller threads through the
// resource's lifetime, calling Record at significant access points and
// Close when the resource is explicitly released.
type Tracker struct {
	d       *Detector
	id      uint64
	mu      sync.Mutex
	records []record
	closed  bool
}

// Record appends an access site to the tracker's bounded history. Older
// records are stochastically dropped with a geometric back-off so that
// the most recent access is always retained while the history thins out
// over the resource's lifetime instead of growing unbounded.
func (t *Tracker) Record(site string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, record{site: site, at: time.Now()})
	target := t.d.targetRecords
	for len(t.records) > target && len(t.records) > 2 {
		// never drop the newest (last) or the oldest (first, the
		// allocation site); pick a middle slot with geometric odds that
		// favor the older end, so older accesses thin out first.
		i := 1
		for i < len(t.records)-2 && rand.Intn(2) != 0 {
			i++
		}
		t.records = append(t.records[:i], t.records[i+1:]...)
	}
}

// Close marks the resource as explicitly released; the detector will not
// report it even if it is later garbage collected.
func (t *Tracker) Close(resource any) {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	runtime.SetFinalizer(resource, nil)
}

func (t *Tracker) signature() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := ""
	for _, r := range t.records {
		s += r.site + ";"
	}
	return s
}

// Detector samples tracked resources and reports those reclaimed without
// an explicit Close. Reporting is out-of-band (spec.md §7): never on the
// GC/finalizer goroutine, and it tolerates a nil sink.
type Detector struct {
	level         Level
	sampleK       int
	targetRecords int
	counter       uint64
	cmu           sync.Mutex

	pmu     sync.Mutex
	pending []*Tracker

	smu  sync.Mutex
	seen map[string]bool

	Sink func(report string) // defaults to nlog.Warningln when nil
}

// New constructs a Detector. sampleK and targetRecords fall back to the
// spec.md §4.2 defaults (128, 4) when zero.
func New(level Level, sampleK, targetRecords int) *Detector {
	if sampleK <= 0 {
		sampleK = DefaultSampleInterval
	}
	if targetRecords <= 0 {
		targetRecords = DefaultTargetRecords
	}
	return &Detector{level: level, sampleK: sampleK, targetRecords: targetRecords, seen: make(map[string]bool)}
}

// Track samples resource per the configured Level and, when sampled,
// returns a Tracker wired to a GC finalizer. Returns (nil, false) when
// skipped by sampling or when the detector is Disabled.
func (d *Detector) Track(resource any) (*Tracker, bool) {
	if d.level == Disabled {
		return nil, false
	}
	id, sampled := d.next()
	if d.level != Paranoid && !sampled {
		return nil, false
	}

	t := &Tracker{d: d, id: id}
	runtime.SetFinalizer(resource, func(any) { d.reclaim(t) })
	return t, true
}

// next counts one more resource offered to Track, returning its id and
// whether it falls on the sampling interval.
func (d *Detector) next() (uint64, bool) {
	d.cmu.Lock()
	defer d.cmu.Unlock()
	d.counter++
	return d.counter, d.counter%uint64(d.sampleK) == 0
}

// reclaim runs on the finalizer goroutine: it must not block, allocate
// unboundedly, or touch a log sink directly — it only enqueues for the
// periodic Sweep to drain (spec.md §4.2 failure semantics).
func (d *Detector) reclaim(t *Tracker) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	d.pmu.Lock()
	d.pending = append(d.pending, t)
	d.pmu.Unlock()
}

// Sweep drains the reclaimed-without-release queue and reports each
// distinct access-record signature once, suppressing duplicates. Intended
// to be registered with the hk housekeeping scheduler.
func (d *Detector) Sweep() {
	d.pmu.Lock()
	batch := d.pending
	d.pending = nil
	d.pmu.Unlock()

	for _, t := range batch {
		sig := t.signature()
		d.smu.Lock()
		dup := d.seen[sig]
		d.seen[sig] = true
		d.smu.Unlock()
		if dup {
			continue
		}
		d.report(t, sig)
	}
}

func (d *Detector) report(t *Tracker, sig string) {
	sink := d.Sink
	if sink == nil {
		sink = func(s string) { nlog.Warningln(s) }
	}
	defer func() { recover() }() // reporting must never propagate a panic
	sink(fmt.Sprintf("LEAK: resource id=%d garbage-collected without explicit release; last accesses: %s", t.id, sig))
}
