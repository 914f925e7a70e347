package channel

import "github.com/aisreactor/reactor/promise"

// HandlerContext is a node in the pipeline's doubly-linked list (spec.md
// §3): {name, handler, previous, next, channel back-ref, removed flag}.
type HandlerContext struct {
	name    string
	handler Handler
	prev    *HandlerContext
	next    *HandlerContext
	channel *Channel
	removed bool
}

func (ctx *HandlerContext) Name() string      { return ctx.name }
func (ctx *HandlerContext) Channel() *Channel  { return ctx.channel }
func (ctx *HandlerContext) Handler() Handler   { return ctx.handler }
func (ctx *HandlerContext) Removed() bool      { return ctx.removed }

func (ctx *HandlerContext) nextInbound() *HandlerContext {
	for c := ctx.next; c != nil; c = c.next {
		if _, ok := c.handler.(InboundHandler); ok {
			return c
		}
	}
	return nil
}

func (ctx *HandlerContext) prevOutbound() *HandlerContext {
	for c := ctx.prev; c != nil; c = c.prev {
		if _, ok := c.handler.(OutboundHandler); ok {
			return c
		}
	}
	return nil
}

// FireChannelActive propagates channel_active toward the tail.
func (ctx *HandlerContext) FireChannelActive() {
	if n := ctx.nextInbound(); n != nil {
		n.handler.(InboundHandler).ChannelActive(n)
	}
}

func (ctx *HandlerContext) FireChannelInactive() {
	if n := ctx.nextInbound(); n != nil {
		n.handler.(InboundHandler).ChannelInactive(n)
	}
}

func (ctx *HandlerContext) FireChannelRead(msg any) {
	if n := ctx.nextInbound(); n != nil {
		n.handler.(InboundHandler).ChannelRead(n, msg)
	}
}

func (ctx *HandlerContext) FireChannelReadComplete() {
	if n := ctx.nextInbound(); n != nil {
		n.handler.(InboundHandler).ChannelReadComplete(n)
	}
}

func (ctx *HandlerContext) FireExceptionCaught(err error) {
	if n := ctx.nextInbound(); n != nil {
		n.handler.(InboundHandler).ExceptionCaught(n, err)
		return
	}
	ctx.channel.logUnhandledException(err)
}

func (ctx *HandlerContext) FireUserEventTriggered(evt any) {
	if n := ctx.nextInbound(); n != nil {
		n.handler.(InboundHandler).UserEventTriggered(n, evt)
	}
}

// Write propagates an outbound write toward the head, which enqueues into
// the channel's outbound buffer.
func (ctx *HandlerContext) Write(msg any, p *promise.Promise) {
	if p == nil {
		p = promise.New(ctx.channel.executorAsPromiseExecutor())
	}
	if prv := ctx.prevOutbound(); prv != nil {
		prv.handler.(OutboundHandler).Write(prv, msg, p)
	}
}

func (ctx *HandlerContext) Flush() {
	if prv := ctx.prevOutbound(); prv != nil {
		prv.handler.(OutboundHandler).Flush(prv)
	}
}

func (ctx *HandlerContext) Close(p *promise.Promise) {
	if p == nil {
		p = promise.New(ctx.channel.executorAsPromiseExecutor())
	}
	if prv := ctx.prevOutbound(); prv != nil {
		prv.handler.(OutboundHandler).Close(prv, p)
		return
	}
	ctx.channel.doClose(p)
}
