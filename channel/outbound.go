package channel

import "github.com/aisreactor/reactor/promise"

type pendingWrite struct {
	msg     any
	promise *promise.Promise
	size    int64
}

// outboundBuffer tracks writes queued via write(msg, promise) until flush
// drains them to the transport, exposing totalPendingWriteBytes and
// current() for observers such as the idle supervisor, which reads them
// through Channel.OutboundBufferSnapshot (spec.md §4.7).
type outboundBuffer struct {
	pending     []*pendingWrite
	totalBytes  int64
}

func (b *outboundBuffer) add(msg any, p *promise.Promise) {
	w := &pendingWrite{msg: msg, promise: p, size: sizeOf(msg)}
	b.pending = append(b.pending, w)
	b.totalBytes += w.size
}

// current returns the first unflushed message, or nil if the buffer is
// empty.
func (b *outboundBuffer) current() *pendingWrite {
	if len(b.pending) == 0 {
		return nil
	}
	return b.pending[0]
}

func (b *outboundBuffer) totalPendingWriteBytes() int64 { return b.totalBytes }

// drain removes and returns every pending write, for the transport to
// consume on flush.
func (b *outboundBuffer) drain() []*pendingWrite {
	out := b.pending
	b.pending = nil
	b.totalBytes = 0
	return out
}

func sizeOf(msg any) int64 {
	if bs, ok := msg.([]byte); ok {
		return int64(len(bs))
	}
	return 0
}
