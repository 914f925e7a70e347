// Package promise implements the single-assignment completion object of
// spec.md §4.5: a promise/future with listeners, timed waits, and
// cancellation, whose listener dispatch threads through the owning
// executor the same way the channel runtime threads every other event.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package promise

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"
)

// State is the promise's terminal-state machine: Incomplete moves to
// exactly one of Success, Failure, or Cancelled, never back.
type State int32

const (
	Incomplete State = iota
	Success
	Failure
	Cancelled
)

var (
	// ErrIllegalState is returned by the set_* family on double-complete.
	ErrIllegalState = errors.New("promise: already completed")
	// ErrCancellation is the cause reported by a cancelled promise.
	ErrCancellation = errors.New("promise: cancelled")
	// ErrDeadlock guards a blocking Await/Sync call made from the
	// promise's own owning executor, which would otherwise wedge the
	// single worker thread that is meant to complete the promise.
	ErrDeadlock = errors.New("promise: await called from owning executor")
)

// Executor is the minimal capability a Promise needs from an event
// executor: run a listener on the owning loop, and recognize when the
// calling goroutine already is that loop (for the Await deadlock check).
// Defined here rather than imported from package exec to keep promise a
// leaf dependency.
type Executor interface {
	Execute(func())
	InEventLoop() bool
}

// Promise is the public contract of spec.md §4.5. The zero value is not
// usable; construct with New.
type Promise struct {
	mu            sync.Mutex
	state         State
	value         any
	cause         error
	uncancellable bool
	listeners     []func(*Promise)
	done          chan struct{}
	executor      Executor
}

// New constructs an incomplete Promise. executor may be nil for a
// standalone promise not bound to any channel's event loop, in which case
// listeners always run synchronously at completion time.
func New(executor Executor) *Promise {
	return &Promise{done: make(chan struct{}), executor: executor}
}

func (p *Promise) IsDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state != Incomplete
}

func (p *Promise) IsSuccess() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == Success
}

// IsCancellable reports whether Cancel could still succeed.
func (p *Promise) IsCancellable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == Incomplete && !p.uncancellable
}

// Cause returns the failure/cancellation cause, or nil if incomplete or
// successful.
func (p *Promise) Cause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cause
}

// GetNow returns the success value without blocking, or nil if the
// promise is not yet successfully completed.
func (p *Promise) GetNow() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Success {
		return nil
	}
	return p.value
}

// SetSuccess completes the promise successfully, returning ErrIllegalState
// if it was already completed.
func (p *Promise) SetSuccess(value any) error {
	if !p.complete(Success, value, nil) {
		return ErrIllegalState
	}
	return nil
}

// TrySuccess is the non-erroring variant of SetSuccess.
func (p *Promise) TrySuccess(value any) bool {
	return p.complete(Success, value, nil)
}

// SetFailure completes the promise with cause, returning ErrIllegalState
// if it was already completed.
func (p *Promise) SetFailure(cause error) error {
	if !p.complete(Failure, nil, cause) {
		return ErrIllegalState
	}
	return nil
}

// TryFailure is the non-erroring variant of SetFailure.
func (p *Promise) TryFailure(cause error) bool {
	return p.complete(Failure, nil, cause)
}

// SetUncancellable latches the uncancellable flag, reporting whether it
// succeeded (false if the promise is already cancelled).
func (p *Promise) SetUncancellable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Cancelled {
		return false
	}
	p.uncancellable = true
	return true
}

// Cancel attempts to move the promise to Cancelled, reporting success.
func (p *Promise) Cancel() bool {
	return p.complete(Cancelled, nil, ErrCancellation)
}

// complete performs the one-shot terminal transition, wakes waiters
// exactly once, and fires listeners registered before completion on the
// owning executor (or synchronously if unbound).
func (p *Promise) complete(state State, value any, cause error) bool {
	p.mu.Lock()
	if p.state != Incomplete {
		p.mu.Unlock()
		return false
	}
	if state == Cancelled && p.uncancellable {
		p.mu.Unlock()
		return false
	}
	p.state = state
	p.value = value
	p.cause = cause
	listeners := p.listeners
	p.listeners = nil
	close(p.done)
	p.mu.Unlock()

	p.fire(listeners)
	return true
}

func (p *Promise) fire(listeners []func(*Promise)) {
	if len(listeners) == 0 {
		return
	}
	run := func() {
		for _, l := range listeners {
			l(p)
		}
	}
	if p.executor != nil {
		p.executor.Execute(run)
		return
	}
	run()
}

// AddListener registers fn to run on completion. If the promise is
// already complete, fn is invoked immediately and synchronously on the
// calling goroutine; otherwise it joins the registration-order list that
// runs on the owning executor once the promise completes.
func (p *Promise) AddListener(fn func(*Promise)) {
	p.mu.Lock()
	if p.state == Incomplete {
		p.listeners = append(p.listeners, fn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	fn(p)
}

// RemoveListener drops fn from the pending listener list if the promise
// has not yet completed. No-op if fn was never registered or the promise
// already fired its listeners.
func (p *Promise) RemoveListener(fn func(*Promise)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.listeners {
		if funcEq(l, fn) {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// funcEq compares func values by the code pointer reflect.Value.Pointer
// exposes — Go forbids == on func values directly. Callers that need
// RemoveListener to find their registration should keep a reference to
// the exact closure they passed to AddListener.
func funcEq(a, b func(*Promise)) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// Await blocks until the promise completes or ctx is done, returning
// ErrDeadlock immediately if called from the promise's own owning
// executor (spec.md §4.6 ordering: a single worker thread must never
// block on its own completion).
func (p *Promise) Await(ctx context.Context) error {
	if p.executor != nil && p.executor.InEventLoop() {
		return ErrDeadlock
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sync is Await followed by rethrowing the completion cause, if any.
func (p *Promise) Sync(ctx context.Context) error {
	if err := p.Await(ctx); err != nil {
		return err
	}
	return p.Cause()
}

// AwaitTimeout blocks for at most d, reporting whether the promise
// completed within that window.
func (p *Promise) AwaitTimeout(d time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := p.Await(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
