package channel

import (
	"errors"

	"github.com/aisreactor/reactor/cmn/nlog"
	"github.com/aisreactor/reactor/promise"
)

var ErrDuplicateName = errors.New("channel: handler name already registered")
var ErrHandlerNotFound = errors.New("channel: handler not found")

// Pipeline is the doubly-linked list of handler contexts between fixed
// head and tail sentinels (spec.md §4.7). Every mutation — add, remove —
// runs on the channel's owning executor, so the list itself needs no
// lock: traversal and mutation can never race.
type Pipeline struct {
	channel *Channel
	head    *HandlerContext
	tail    *HandlerContext
	byName  map[string]*HandlerContext
}

func newPipeline(ch *Channel) *Pipeline {
	p := &Pipeline{channel: ch, byName: make(map[string]*HandlerContext)}
	p.head = &HandlerContext{name: "head", handler: &headHandler{}, channel: ch}
	p.tail = &HandlerContext{name: "tail", handler: &tailHandler{}, channel: ch}
	p.head.next = p.tail
	p.tail.prev = p.head
	return p
}

// AddLast inserts h just before the tail sentinel. Dispatches onto the
// owning executor if called off-loop; HandlerAdded always runs on the
// loop, before h can observe any event.
func (p *Pipeline) AddLast(name string, h Handler) {
	p.runOnLoop(func() { p.insertBefore(p.tail, name, h) })
}

// AddFirst inserts h just after the head sentinel.
func (p *Pipeline) AddFirst(name string, h Handler) {
	p.runOnLoop(func() { p.insertBefore(p.head.next, name, h) })
}

// Remove unlinks the named handler, invoking HandlerRemoved after its
// last event per spec.md §4.7.
func (p *Pipeline) Remove(name string) {
	p.runOnLoop(func() { p.removeByName(name) })
}

// Get returns the named handler context, or nil if not present.
func (p *Pipeline) Get(name string) *HandlerContext { return p.byName[name] }

func (p *Pipeline) runOnLoop(fn func()) {
	if p.channel.executor.InEventLoop() {
		fn()
		return
	}
	p.channel.executor.Execute(fn)
}

func (p *Pipeline) insertBefore(base *HandlerContext, name string, h Handler) {
	if _, exists := p.byName[name]; exists {
		nlog.Warningln("pipeline: handler already registered:", name)
		return
	}
	ctx := &HandlerContext{name: name, handler: h, channel: p.channel}
	prev := base.prev
	ctx.prev, ctx.next = prev, base
	prev.next, base.prev = ctx, ctx
	p.byName[name] = ctx
	h.HandlerAdded(ctx)
}

func (p *Pipeline) removeByName(name string) {
	ctx, ok := p.byName[name]
	if !ok {
		return
	}
	ctx.prev.next, ctx.next.prev = ctx.next, ctx.prev
	ctx.removed = true
	delete(p.byName, name)
	ctx.handler.HandlerRemoved(ctx)
}

func (p *Pipeline) FireChannelActive()     { p.head.FireChannelActive() }
func (p *Pipeline) FireChannelInactive()   { p.head.FireChannelInactive() }
func (p *Pipeline) FireChannelRead(m any)  { p.head.FireChannelRead(m) }
func (p *Pipeline) FireChannelReadComplete() { p.head.FireChannelReadComplete() }
func (p *Pipeline) FireExceptionCaught(err error) { p.head.FireExceptionCaught(err) }
func (p *Pipeline) FireUserEventTriggered(evt any) { p.head.FireUserEventTriggered(evt) }

// Write starts an outbound write at the tail, traveling head-ward.
func (p *Pipeline) Write(msg any, pr *promise.Promise) { p.tail.Write(msg, pr) }
func (p *Pipeline) Flush()                              { p.tail.Flush() }
func (p *Pipeline) Close(pr *promise.Promise)            { p.tail.Close(pr) }

// headHandler is the outbound terminal: reaching it means no handler
// upstream intercepted the write, so it performs the real enqueue into
// the channel's outbound buffer (or the real close/flush).
type headHandler struct{}

func (*headHandler) HandlerAdded(*HandlerContext)   {}
func (*headHandler) HandlerRemoved(*HandlerContext) {}

func (*headHandler) Write(ctx *HandlerContext, msg any, p *promise.Promise) {
	ctx.channel.doWrite(msg, p)
}
func (*headHandler) Flush(ctx *HandlerContext) { ctx.channel.doFlush() }
func (*headHandler) Close(ctx *HandlerContext, p *promise.Promise) { ctx.channel.doClose(p) }

// tailHandler is the inbound terminal: reaching it means no handler
// downstream consumed the event.
type tailHandler struct{}

func (*tailHandler) HandlerAdded(*HandlerContext)   {}
func (*tailHandler) HandlerRemoved(*HandlerContext) {}
func (*tailHandler) ChannelActive(*HandlerContext)   {}
func (*tailHandler) ChannelInactive(*HandlerContext) {}

// releasable is the reference-counted message capability (memsys.Buf
// satisfies it); channel deliberately doesn't import memsys, so this is a
// local structural interface rather than a concrete type check.
type releasable interface {
	Release(n ...int) error
}

func (*tailHandler) ChannelRead(ctx *HandlerContext, msg any) {
	if rc, ok := msg.(releasable); ok {
		if err := rc.Release(); err != nil {
			nlog.Warningln("channel", ctx.channel.ID(), "releasing discarded message:", err)
		}
	}
	nlog.Warningln("channel", ctx.channel.ID(), "discarded unhandled inbound message:", msg)
}
func (*tailHandler) ChannelReadComplete(*HandlerContext) {}
func (*tailHandler) ExceptionCaught(ctx *HandlerContext, err error) {
	ctx.channel.logUnhandledException(err)
}
func (*tailHandler) UserEventTriggered(ctx *HandlerContext, evt any) {
	nlog.Warningln("channel", ctx.channel.ID(), "discarded unhandled user event:", evt)
}

var _ OutboundHandler = (*headHandler)(nil)
var _ InboundHandler = (*tailHandler)(nil)
