// Package channel implements the bidirectional endpoint and its handler
// pipeline (spec.md §4.7): a Channel is bound to exactly one event
// executor for its lifetime, and a Pipeline of handler contexts carries
// inbound and outbound events between the channel and application code.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package channel

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/aisreactor/reactor/cmn/cos"
	"github.com/aisreactor/reactor/cmn/debug"
	"github.com/aisreactor/reactor/cmn/nlog"
	"github.com/aisreactor/reactor/exec"
	"github.com/aisreactor/reactor/promise"
)

// Transport is the external collaborator a Channel delegates real I/O to
// (spec.md §1 lists concrete selector-based socket transports as an
// out-of-scope collaborator whose contract this core merely consumes).
type Transport interface {
	Write(p []byte) (int, error)
	Flush() error
	CloseTransport() error
}

// Channel is the attribute set of spec.md §3. All state mutation happens
// on executor; state is read with an atomic load so other goroutines
// (e.g. idle supervisors firing from timers on the same executor, or
// diagnostics from any goroutine) can observe it without racing.
type Channel struct {
	id       string
	state    atomic.Int32
	executor *exec.Executor
	pipeline *Pipeline
	outbound outboundBuffer
	transport Transport

	localAddr  net.Addr
	remoteAddr net.Addr

	closeFuture *promise.Promise
}

// New constructs a channel owned by executor. Construction alone leaves
// the channel Unregistered; call Register then Activate to bring it up,
// matching the lifecycle a transport driver walks a new connection
// through.
func New(executor *exec.Executor) *Channel {
	ch := &Channel{
		id:          cos.GenID(),
		executor:    executor,
		closeFuture: promise.New(executor),
	}
	ch.state.Store(int32(Unregistered))
	ch.pipeline = newPipeline(ch)
	return ch
}

func (ch *Channel) ID() string         { return ch.id }
func (ch *Channel) State() State       { return State(ch.state.Load()) }
func (ch *Channel) Pipeline() *Pipeline { return ch.pipeline }
func (ch *Channel) Executor() *exec.Executor { return ch.executor }
func (ch *Channel) LocalAddr() net.Addr  { return ch.localAddr }
func (ch *Channel) RemoteAddr() net.Addr { return ch.remoteAddr }
func (ch *Channel) IsActive() bool       { return ch.State() == Active }

// SetTransport binds the real I/O collaborator. Must be called before
// Activate.
func (ch *Channel) SetTransport(t Transport, local, remote net.Addr) {
	ch.transport = t
	ch.localAddr, ch.remoteAddr = local, remote
}

// CloseFuture completes once the channel has fully closed.
func (ch *Channel) CloseFuture() *promise.Promise { return ch.closeFuture }

func (ch *Channel) executorAsPromiseExecutor() promise.Executor { return ch.executor }

// Register transitions Unregistered -> Registered. Must run on the
// owning executor.
func (ch *Channel) Register() {
	debug.Assert(ch.executor.InEventLoop(), "channel.Register off-loop")
	if !ch.state.CompareAndSwap(int32(Unregistered), int32(Registered)) {
		return
	}
}

// Activate transitions Registered -> Active and fires channel_active
// through the pipeline.
func (ch *Channel) Activate() {
	debug.Assert(ch.executor.InEventLoop(), "channel.Activate off-loop")
	if !ch.state.CompareAndSwap(int32(Registered), int32(Active)) {
		return
	}
	ch.pipeline.FireChannelActive()
}

// Write enqueues msg into the outbound write path, returning a promise
// for its completion. A nil promise is allocated automatically.
func (ch *Channel) Write(msg any, p *promise.Promise) *promise.Promise {
	if p == nil {
		p = promise.New(ch.executorAsPromiseExecutor())
	}
	if ch.executor.InEventLoop() {
		ch.pipeline.Write(msg, p)
		return p
	}
	ch.executor.Execute(func() { ch.pipeline.Write(msg, p) })
	return p
}

// Flush requests the transport drain pending outbound writes.
func (ch *Channel) Flush() {
	if ch.executor.InEventLoop() {
		ch.pipeline.Flush()
		return
	}
	ch.executor.Execute(ch.pipeline.Flush)
}

// Close transitions the channel toward Closed, returning a new promise for
// this call (distinct from CloseFuture) that completes when the close has
// been carried out.
func (ch *Channel) Close() *promise.Promise {
	p := promise.New(ch.executorAsPromiseExecutor())
	if ch.executor.InEventLoop() {
		ch.pipeline.Close(p)
		return p
	}
	ch.executor.Execute(func() { ch.pipeline.Close(p) })
	return p
}

// doWrite is headHandler's real enqueue — the terminal of the outbound
// pipeline.
func (ch *Channel) doWrite(msg any, p *promise.Promise) {
	if ch.State() >= Closing {
		p.TryFailure(fmt.Errorf("channel %s: write after close", ch.id))
		return
	}
	ch.outbound.add(msg, p)
}

// doFlush drains the outbound buffer to the transport.
func (ch *Channel) doFlush() {
	pending := ch.outbound.drain()
	if len(pending) == 0 {
		return
	}
	for _, w := range pending {
		bs, ok := w.msg.([]byte)
		if !ok {
			w.promise.TryFailure(fmt.Errorf("channel %s: flush requires []byte, got %T", ch.id, w.msg))
			continue
		}
		if ch.transport == nil {
			w.promise.TryFailure(fmt.Errorf("channel %s: no transport bound", ch.id))
			continue
		}
		if _, err := ch.transport.Write(bs); err != nil {
			w.promise.TryFailure(err)
			ch.pipeline.FireExceptionCaught(err)
			continue
		}
		w.promise.TrySuccess(nil)
	}
	if ch.transport != nil {
		if err := ch.transport.Flush(); err != nil {
			ch.pipeline.FireExceptionCaught(err)
		}
	}
}

// OutboundBufferSnapshot exposes totalPendingWriteBytes and an opaque,
// comparable identity token for current() to observers such as idle
// supervisors (spec.md §4.8 observeOutput), without leaking mutable
// internals. The token is only ever meaningful for == comparison across
// calls; it carries no usable payload.
func (ch *Channel) OutboundBufferSnapshot() (totalPendingBytes int64, currentToken any) {
	return ch.outbound.totalPendingWriteBytes(), ch.outbound.current()
}

// doClose is the outbound-pipeline terminal for Close: transitions to
// Closing then Closed, invoking the transport's close and firing
// channel_inactive.
func (ch *Channel) doClose(p *promise.Promise) {
	prev := State(ch.state.Load())
	if prev == Closed {
		p.TrySuccess(nil)
		return
	}
	ch.state.Store(int32(Closing))
	ch.doFlush()
	var closeErr error
	if ch.transport != nil {
		closeErr = ch.transport.CloseTransport()
	}
	ch.state.Store(int32(Closed))
	if prev == Active {
		ch.pipeline.FireChannelInactive()
	}
	if closeErr != nil {
		p.TryFailure(closeErr)
	} else {
		p.TrySuccess(nil)
	}
	ch.closeFuture.TrySuccess(nil)
}

func (ch *Channel) logUnhandledException(err error) {
	nlog.Errorln("channel", ch.id, "unhandled exception:", err)
}
