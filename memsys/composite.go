package memsys

// Composite is the Composite RC-Buf of spec.md §3: an ordered sequence of
// component *Buf with virtual indices, so that appending a component never
// copies. Reading index i maps to exactly one component's local offset.
type Composite struct {
	mm       *MMSA
	parts    []*Buf
	maxParts int
	roff     int // virtual reader index
	woff     int // virtual writer index (== sum of component lengths)
}

func newComposite(mm *MMSA, maxParts int) *Composite {
	if maxParts <= 0 {
		maxParts = 16
	}
	return &Composite{mm: mm, maxParts: maxParts}
}

func (c *Composite) ReaderIndex() int   { return c.roff }
func (c *Composite) WriterIndex() int   { return c.woff }
func (c *Composite) ReadableBytes() int { return c.woff - c.roff }
func (c *Composite) NumComponents() int { return len(c.parts) }

// CanAppend reports whether another zero-copy Append is possible under the
// component-count budget; callers (the accumulator) fall back to
// copy-expand into a plain Buf once this returns false.
func (c *Composite) CanAppend() bool { return len(c.parts) < c.maxParts }

// Append adds buf as a new trailing component without copying. It takes
// ownership of the caller's reference: Composite releases it when the
// component is consumed past its end or when the Composite itself is
// released.
func (c *Composite) Append(buf *Buf) error {
	if !c.CanAppend() {
		return ErrBounds
	}
	n := buf.ReadableBytes()
	if n == 0 {
		_ = buf.Release()
		return nil
	}
	c.parts = append(c.parts, buf)
	c.woff += n
	return nil
}

// locate maps a virtual offset to (component index, local offset within
// that component's readable region).
func (c *Composite) locate(virtual int) (idx, local int, ok bool) {
	off := 0
	for i, p := range c.parts {
		n := p.ReadableBytes()
		if virtual < off+n {
			return i, virtual - off, true
		}
		off += n
	}
	return 0, 0, false
}

// ReadByte consumes one byte from the virtual reader index, advancing past
// fully-consumed leading components (which are released back to the
// allocator) exactly as §3's Composite RC-Buf invariant requires.
func (c *Composite) ReadByte() (byte, error) {
	if c.roff >= c.woff {
		return 0, ErrBounds
	}
	idx, local, ok := c.locate(c.roff)
	if !ok {
		return 0, ErrBounds
	}
	p := c.parts[idx]
	v := p.Bytes()[local]
	c.roff++
	c.reclaimConsumed()
	return v, nil
}

// ReadSlice returns a copy of the next n readable bytes. Unlike Buf's
// zero-copy ReadSlice, a request spanning more than one component must
// copy — there is no contiguous backing array to alias across components.
func (c *Composite) ReadSlice(n int) ([]byte, error) {
	if n < 0 || c.roff+n > c.woff {
		return nil, ErrBounds
	}
	out := make([]byte, 0, n)
	remaining := n
	virtual := c.roff
	for remaining > 0 {
		idx, local, ok := c.locate(virtual)
		if !ok {
			return nil, ErrBounds
		}
		p := c.parts[idx]
		avail := p.ReadableBytes() - local
		take := avail
		if take > remaining {
			take = remaining
		}
		out = append(out, p.Bytes()[local:local+take]...)
		virtual += take
		remaining -= take
	}
	c.roff += n
	c.reclaimConsumed()
	return out, nil
}

// reclaimConsumed drops and releases leading components that have been
// fully read past, keeping the component slice bounded by outstanding data
// rather than total history.
func (c *Composite) reclaimConsumed() {
	consumed := 0
	for len(c.parts) > 0 {
		p := c.parts[0]
		n := p.ReadableBytes()
		if consumed+n > c.roff {
			break
		}
		_ = p.Release()
		c.parts = c.parts[1:]
		consumed += n
	}
	c.roff -= consumed
	c.woff -= consumed
}

// Release releases every remaining component; safe to call more than once.
func (c *Composite) Release() {
	for _, p := range c.parts {
		_ = p.Release()
	}
	c.parts = nil
	c.roff, c.woff = 0, 0
}
