package timeout

import (
	"fmt"
	"time"

	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/exec"
	"github.com/aisreactor/reactor/promise"
)

// WriteTimeoutException fails the write's promise, is fired through
// ExceptionCaught, and the channel is closed when a write's promise is
// still undone at its deadline (spec.md §4.8).
type WriteTimeoutException struct {
	Deadline time.Duration
}

func (e *WriteTimeoutException) Error() string {
	return fmt.Sprintf("write timed out after %s", e.Deadline)
}

// pendingDeadline is one node of the per-channel doubly-linked list of
// writes awaiting completion, threaded in submission order so an earlier
// write's deadline always expires no later than a later one's.
type pendingDeadline struct {
	task       *exec.ScheduledTask
	prev, next *pendingDeadline
}

// WriteTimeoutSupervisor schedules a deadline task per outbound write and
// threads it into a per-channel list so every still-pending deadline can
// be cancelled in one pass on handler removal.
type WriteTimeoutSupervisor struct {
	channel.InboundAdapter

	timeout time.Duration

	head, tail *pendingDeadline
}

// NewWriteTimeoutSupervisor constructs a handler; timeout must be
// positive.
func NewWriteTimeoutSupervisor(timeout time.Duration) *WriteTimeoutSupervisor {
	return &WriteTimeoutSupervisor{timeout: timeout}
}

func (s *WriteTimeoutSupervisor) Write(ctx *channel.HandlerContext, msg any, p *promise.Promise) {
	node := &pendingDeadline{}
	node.task = ctx.Channel().Executor().Schedule(s.timeout, func() { s.fire(ctx, p, node) })
	s.link(node)

	p.AddListener(func(*promise.Promise) {
		node.task.Cancel()
		s.unlink(node)
	})

	ctx.Write(msg, p)
}

func (s *WriteTimeoutSupervisor) Flush(ctx *channel.HandlerContext) { ctx.Flush() }

func (s *WriteTimeoutSupervisor) Close(ctx *channel.HandlerContext, p *promise.Promise) {
	ctx.Close(p)
}

func (s *WriteTimeoutSupervisor) HandlerRemoved(*channel.HandlerContext) {
	for n := s.head; n != nil; n = n.next {
		n.task.Cancel()
	}
	s.head, s.tail = nil, nil
}

func (s *WriteTimeoutSupervisor) fire(ctx *channel.HandlerContext, p *promise.Promise, node *pendingDeadline) {
	s.unlink(node)
	if p.IsDone() {
		return
	}
	err := &WriteTimeoutException{Deadline: s.timeout}
	p.TryFailure(err)
	ctx.FireExceptionCaught(err)
	ctx.Close(nil)
}

func (s *WriteTimeoutSupervisor) link(n *pendingDeadline) {
	n.prev = s.tail
	if s.tail != nil {
		s.tail.next = n
	} else {
		s.head = n
	}
	s.tail = n
}

var (
	_ channel.InboundHandler  = (*WriteTimeoutSupervisor)(nil)
	_ channel.OutboundHandler = (*WriteTimeoutSupervisor)(nil)
)

func (s *WriteTimeoutSupervisor) unlink(n *pendingDeadline) {
	if n.prev != nil {
		n.prev.next = n.next
	} else if s.head == n {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
