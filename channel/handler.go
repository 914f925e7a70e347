package channel

import "github.com/aisreactor/reactor/promise"

// Handler is the minimum capability every pipeline participant has:
// lifecycle notification. Real handlers additionally implement
// InboundHandler and/or OutboundHandler — capability-based dispatch
// replaces the inheritance hierarchy an object-oriented port of this
// runtime would reach for (spec.md §9).
type Handler interface {
	HandlerAdded(ctx *HandlerContext)
	HandlerRemoved(ctx *HandlerContext)
}

// InboundHandler participates in the head-to-tail event flow.
type InboundHandler interface {
	Handler
	ChannelActive(ctx *HandlerContext)
	ChannelInactive(ctx *HandlerContext)
	ChannelRead(ctx *HandlerContext, msg any)
	ChannelReadComplete(ctx *HandlerContext)
	ExceptionCaught(ctx *HandlerContext, err error)
	UserEventTriggered(ctx *HandlerContext, evt any)
}

// OutboundHandler participates in the tail-to-head event flow.
type OutboundHandler interface {
	Handler
	Write(ctx *HandlerContext, msg any, p *promise.Promise)
	Flush(ctx *HandlerContext)
	Close(ctx *HandlerContext, p *promise.Promise)
}

// InboundAdapter gives embedders pass-through defaults for every
// InboundHandler method so concrete handlers only override what they
// need, mirroring the *Adapter convention of the teacher's capability
// interfaces elsewhere in the module.
type InboundAdapter struct{}

func (InboundAdapter) HandlerAdded(*HandlerContext)                    {}
func (InboundAdapter) HandlerRemoved(*HandlerContext)                  {}
func (InboundAdapter) ChannelActive(ctx *HandlerContext)                { ctx.FireChannelActive() }
func (InboundAdapter) ChannelInactive(ctx *HandlerContext)              { ctx.FireChannelInactive() }
func (InboundAdapter) ChannelRead(ctx *HandlerContext, msg any)         { ctx.FireChannelRead(msg) }
func (InboundAdapter) ChannelReadComplete(ctx *HandlerContext)          { ctx.FireChannelReadComplete() }
func (InboundAdapter) ExceptionCaught(ctx *HandlerContext, err error)   { ctx.FireExceptionCaught(err) }
func (InboundAdapter) UserEventTriggered(ctx *HandlerContext, evt any) { ctx.FireUserEventTriggered(evt) }

// OutboundAdapter gives embedders pass-through defaults for every
// OutboundHandler method.
type OutboundAdapter struct{}

func (OutboundAdapter) HandlerAdded(*HandlerContext)   {}
func (OutboundAdapter) HandlerRemoved(*HandlerContext) {}
func (OutboundAdapter) Write(ctx *HandlerContext, msg any, p *promise.Promise) { ctx.Write(msg, p) }
func (OutboundAdapter) Flush(ctx *HandlerContext)                          { ctx.Flush() }
func (OutboundAdapter) Close(ctx *HandlerContext, p *promise.Promise)         { ctx.Close(p) }
