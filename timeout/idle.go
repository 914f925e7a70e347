// Package timeout implements the idle and write-timeout supervisors of
// spec.md §4.8: pipeline handlers that schedule deadline tasks on the
// channel's own executor and fire a user event, or fail a write and close
// the channel, when a deadline is reached without intervening activity.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package timeout

import (
	"time"

	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/cmn/mono"
	"github.com/aisreactor/reactor/constant"
	"github.com/aisreactor/reactor/exec"
	"github.com/aisreactor/reactor/promise"
)

// IdleState names which direction of traffic went quiet. Values come from
// the process-wide constant pool (spec.md §6, SPEC_FULL.md §4.10) rather
// than a plain iota block, so handlers switch on the same small integers
// other IO event kinds are assigned through constant.Pool.
type IdleState uint32

var (
	ReaderIdle = IdleState(constant.ValueOf("timeout.reader_idle"))
	WriterIdle = IdleState(constant.ValueOf("timeout.writer_idle"))
	AllIdle    = IdleState(constant.ValueOf("timeout.all_idle"))
)

func (s IdleState) String() string {
	switch s {
	case ReaderIdle:
		return "reader_idle"
	case WriterIdle:
		return "writer_idle"
	case AllIdle:
		return "all_idle"
	default:
		return "idle"
	}
}

// IdleStateEvent is fired through UserEventTriggered when a configured
// idle threshold elapses. First is true only the first time this state
// fires since the channel became active.
type IdleStateEvent struct {
	State IdleState
	First bool
}

// IdleSupervisor schedules up to three independent deadline tasks on
// channel activation (spec.md §4.8): reader idle, writer idle, and all
// idle. Each task recomputes its remaining delay against the last
// observed activity time rather than assuming it fires exactly on
// schedule, since the executor's park interval and queue depth can push
// the actual callback later than the nominal deadline.
type IdleSupervisor struct {
	channel.InboundAdapter

	readIdle, writeIdle, allIdle time.Duration
	observeOutput                bool

	lastReadNanos  int64
	lastWriteNanos int64

	firstReaderIdle bool
	firstWriterIdle bool
	firstAllIdle    bool

	readerTask *exec.ScheduledTask
	writerTask *exec.ScheduledTask
	allTask    *exec.ScheduledTask

	lastObservedBytes int64
	lastObservedToken any
}

// NewIdleSupervisor constructs a handler; a zero duration disables that
// particular deadline. observeOutput, when true, suppresses a writer-idle
// or all-idle fire while the outbound buffer is still visibly draining
// (spec.md §4.8), even though no new write was submitted.
func NewIdleSupervisor(readIdle, writeIdle, allIdle time.Duration, observeOutput bool) *IdleSupervisor {
	return &IdleSupervisor{
		readIdle:      readIdle,
		writeIdle:     writeIdle,
		allIdle:       allIdle,
		observeOutput: observeOutput,
	}
}

func (s *IdleSupervisor) ChannelActive(ctx *channel.HandlerContext) {
	now := mono.NanoTime()
	s.lastReadNanos = now
	s.lastWriteNanos = now
	s.firstReaderIdle = true
	s.firstWriterIdle = true
	s.firstAllIdle = true

	ex := ctx.Channel().Executor()
	if s.readIdle > 0 {
		s.readerTask = ex.Schedule(s.readIdle, func() { s.fireReader(ctx) })
	}
	if s.writeIdle > 0 {
		s.writerTask = ex.Schedule(s.writeIdle, func() { s.fireWriter(ctx) })
	}
	if s.allIdle > 0 {
		s.allTask = ex.Schedule(s.allIdle, func() { s.fireAll(ctx) })
	}
	ctx.FireChannelActive()
}

func (s *IdleSupervisor) ChannelInactive(ctx *channel.HandlerContext) {
	s.cancelAll()
	ctx.FireChannelInactive()
}

func (s *IdleSupervisor) HandlerRemoved(*channel.HandlerContext) {
	s.cancelAll()
}

func (s *IdleSupervisor) cancelAll() {
	if s.readerTask != nil {
		s.readerTask.Cancel()
	}
	if s.writerTask != nil {
		s.writerTask.Cancel()
	}
	if s.allTask != nil {
		s.allTask.Cancel()
	}
}

func (s *IdleSupervisor) ChannelRead(ctx *channel.HandlerContext, msg any) {
	s.lastReadNanos = mono.NanoTime()
	ctx.FireChannelRead(msg)
}

// Write, Flush and Close make IdleSupervisor satisfy OutboundHandler too,
// alongside the InboundHandler it gets from the embedded InboundAdapter —
// capability-based dispatch lets one handler sit on both sides of the
// pipeline. Embedding OutboundAdapter as well would make HandlerAdded and
// HandlerRemoved ambiguous selectors, so these three are written out by
// hand instead.
func (s *IdleSupervisor) Write(ctx *channel.HandlerContext, msg any, p *promise.Promise) {
	s.lastWriteNanos = mono.NanoTime()
	ctx.Write(msg, p)
}

func (s *IdleSupervisor) Flush(ctx *channel.HandlerContext) { ctx.Flush() }

func (s *IdleSupervisor) Close(ctx *channel.HandlerContext, p *promise.Promise) { ctx.Close(p) }

var (
	_ channel.InboundHandler  = (*IdleSupervisor)(nil)
	_ channel.OutboundHandler = (*IdleSupervisor)(nil)
)

func (s *IdleSupervisor) fireReader(ctx *channel.HandlerContext) {
	nextDelay := s.readIdle - mono.Since(s.lastReadNanos)
	if nextDelay > 0 {
		s.readerTask = ctx.Channel().Executor().Schedule(nextDelay, func() { s.fireReader(ctx) })
		return
	}
	ctx.FireUserEventTriggered(&IdleStateEvent{State: ReaderIdle, First: s.firstReaderIdle})
	s.firstReaderIdle = false
	s.readerTask = ctx.Channel().Executor().Schedule(s.readIdle, func() { s.fireReader(ctx) })
}

func (s *IdleSupervisor) fireWriter(ctx *channel.HandlerContext) {
	nextDelay := s.writeIdle - mono.Since(s.lastWriteNanos)
	if nextDelay > 0 {
		s.writerTask = ctx.Channel().Executor().Schedule(nextDelay, func() { s.fireWriter(ctx) })
		return
	}
	if s.observeOutput && s.outputStillDraining(ctx) {
		s.writerTask = ctx.Channel().Executor().Schedule(s.writeIdle, func() { s.fireWriter(ctx) })
		return
	}
	ctx.FireUserEventTriggered(&IdleStateEvent{State: WriterIdle, First: s.firstWriterIdle})
	s.firstWriterIdle = false
	s.writerTask = ctx.Channel().Executor().Schedule(s.writeIdle, func() { s.fireWriter(ctx) })
}

func (s *IdleSupervisor) fireAll(ctx *channel.HandlerContext) {
	lastActivity := s.lastReadNanos
	if s.lastWriteNanos > lastActivity {
		lastActivity = s.lastWriteNanos
	}
	nextDelay := s.allIdle - mono.Since(lastActivity)
	if nextDelay > 0 {
		s.allTask = ctx.Channel().Executor().Schedule(nextDelay, func() { s.fireAll(ctx) })
		return
	}
	if s.observeOutput && s.outputStillDraining(ctx) {
		s.allTask = ctx.Channel().Executor().Schedule(s.allIdle, func() { s.fireAll(ctx) })
		return
	}
	ctx.FireUserEventTriggered(&IdleStateEvent{State: AllIdle, First: s.firstAllIdle})
	s.firstAllIdle = false
	s.allTask = ctx.Channel().Executor().Schedule(s.allIdle, func() { s.fireAll(ctx) })
}

// outputStillDraining compares the outbound buffer's current write
// identity and pending byte count against the last observation: either
// changing means the transport made progress since the last check even
// though no new write arrived, so the writer is not really idle.
func (s *IdleSupervisor) outputStillDraining(ctx *channel.HandlerContext) bool {
	bytes, token := ctx.Channel().OutboundBufferSnapshot()
	changed := bytes != s.lastObservedBytes || token != s.lastObservedToken
	s.lastObservedBytes = bytes
	s.lastObservedToken = token
	return changed
}
