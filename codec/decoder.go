// Package codec implements the stream-to-frame decoder skeleton of
// spec.md §4.4: a pipeline handler that repeatedly calls a Decoder's
// Decode against the channel's retained accumulator until no further
// progress is made, forwarding produced messages downstream in order.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package codec

import (
	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/memsys"
)

// Decoder is implemented by concrete frame decoders (the line framer
// being the exemplar of spec.md §4.4.1). Decode is called against the
// channel's retained Accumulator and should append zero or more messages
// to out; it must consume bytes from acc whenever it appends to out.
type Decoder interface {
	Decode(ctx *channel.HandlerContext, acc *memsys.Accumulator, out *MessageList) error
}

// LastDecoder is an optional capability: when the channel goes inactive
// with bytes still pending, DecodeLast gets one final chance to produce
// a trailing message from whatever remains.
type LastDecoder interface {
	DecodeLast(ctx *channel.HandlerContext, acc *memsys.Accumulator, out *MessageList) error
}

type decodeState int

const (
	stateInit decodeState = iota
	stateCalling
	stateRemovalPending
)

// ByteToMessageDecoder is the generic driver described by spec.md §4.4.
// Embed it (or construct directly) and plug in a Decoder; it owns the
// accumulator lifecycle and the decode loop, leaving only framing logic
// to the concrete Decoder.
type ByteToMessageDecoder struct {
	channel.InboundAdapter

	decoder           Decoder
	mm                *memsys.MMSA
	cumulator         memsys.Cumulator
	maxParts          int
	singleDecode      bool
	discardAfterReads int

	acc          *memsys.Accumulator
	state        decodeState
	sinceDiscard int
}

// Config bundles ByteToMessageDecoder's construction-time knobs.
type Config struct {
	Cumulator         memsys.Cumulator
	MaxParts          int  // composite cumulator component budget
	SingleDecode      bool // stop after the first produced message per delivery
	DiscardAfterReads int  // R of spec.md §4.3; 0 defaults to 16
}

// New constructs a ByteToMessageDecoder driving decoder, allocating
// accumulator buffers from mm.
func New(decoder Decoder, mm *memsys.MMSA, cfg Config) *ByteToMessageDecoder {
	if cfg.DiscardAfterReads <= 0 {
		cfg.DiscardAfterReads = 16
	}
	return &ByteToMessageDecoder{
		decoder:           decoder,
		mm:                mm,
		cumulator:         cfg.Cumulator,
		maxParts:          cfg.MaxParts,
		singleDecode:      cfg.SingleDecode,
		discardAfterReads: cfg.DiscardAfterReads,
	}
}

// ChannelRead implements channel.InboundHandler: accumulate the incoming
// *memsys.Buf and drive the decode loop.
func (d *ByteToMessageDecoder) ChannelRead(ctx *channel.HandlerContext, msg any) {
	in, ok := msg.(*memsys.Buf)
	if !ok {
		ctx.FireChannelRead(msg)
		return
	}
	if d.acc == nil {
		d.acc = memsys.NewAccumulator(d.mm, d.cumulator, d.maxParts)
	}
	if err := d.acc.Accumulate(in); err != nil {
		ctx.FireExceptionCaught(err)
		return
	}
	d.drive(ctx)
}

// drive implements the spec.md §4.4 protocol steps 2-4 for one inbound
// delivery.
func (d *ByteToMessageDecoder) drive(ctx *channel.HandlerContext) {
	d.state = stateCalling
	var out MessageList
	for {
		readableBefore := d.acc.ReadableBytes()
		outBefore := out.Len()
		if err := d.decoder.Decode(ctx, d.acc, &out); err != nil {
			d.state = stateInit
			d.forward(ctx, &out)
			ctx.FireExceptionCaught(err)
			return
		}
		if d.state == stateRemovalPending {
			break
		}
		readableAfter := d.acc.ReadableBytes()
		madeProgress := readableAfter != readableBefore
		produced := out.Len() > outBefore
		if !produced && !madeProgress {
			break
		}
		if produced && !madeProgress {
			d.state = stateInit
			d.forward(ctx, &out)
			ctx.FireExceptionCaught(ErrDecodedWithoutProgress)
			return
		}
		if d.singleDecode && produced {
			break
		}
	}

	// only an unproductive read (no frame decoded) counts toward the
	// discard threshold; a productive one means the consumer is making
	// progress, so it resets the counter instead.
	if out.Len() > 0 {
		d.sinceDiscard = 0
	} else {
		d.sinceDiscard++
	}
	if d.acc.ReadableBytes() == 0 {
		d.acc.Free()
		d.acc = nil
		d.sinceDiscard = 0
	} else if d.sinceDiscard >= d.discardAfterReads {
		d.acc.Discard()
		d.sinceDiscard = 0
	}

	removalPending := d.state == stateRemovalPending
	d.state = stateInit
	d.forward(ctx, &out)
	ctx.FireChannelReadComplete()
	if removalPending {
		d.releaseAccumulator()
	}
}

func (d *ByteToMessageDecoder) forward(ctx *channel.HandlerContext, out *MessageList) {
	for _, m := range out.msgs {
		ctx.FireChannelRead(m)
	}
	out.msgs = nil
}

// ChannelInactive drains the accumulator once via Decode then DecodeLast
// before propagating channel_inactive, per spec.md §4.4.
func (d *ByteToMessageDecoder) ChannelInactive(ctx *channel.HandlerContext) {
	if d.acc != nil && d.acc.ReadableBytes() > 0 {
		var out MessageList
		_ = d.decoder.Decode(ctx, d.acc, &out)
		if ld, ok := d.decoder.(LastDecoder); ok {
			_ = ld.DecodeLast(ctx, d.acc, &out)
		}
		d.forward(ctx, &out)
	}
	d.releaseAccumulator()
	ctx.FireChannelInactive()
}

func (d *ByteToMessageDecoder) releaseAccumulator() {
	if d.acc != nil {
		d.acc.Free()
		d.acc = nil
	}
}

// HandlerRemoved implements the deferred-removal state machine: a
// self-removal triggered from within Decode is deferred until drive
// returns (init -> calling -> removal-pending -> init).
func (d *ByteToMessageDecoder) HandlerRemoved(ctx *channel.HandlerContext) {
	if d.state == stateCalling {
		d.state = stateRemovalPending
		return
	}
	d.releaseAccumulator()
}
