package memsys

// Cumulator selects the accumulation strategy a stream decoder uses to
// merge an incoming Buf into the pending accumulator (spec.md §4.1/§4.3).
// Modeled as a value-of-variant rather than a polymorphic interface so the
// decoder skeleton's hot path never pays for virtual dispatch (§9).
type Cumulator int

const (
	// CumulatorMerge appends bytewise into a single contiguous Buf,
	// compacting periodically via DiscardSomeReadBytes.
	CumulatorMerge Cumulator = iota
	// CumulatorComposite appends incoming buffers as zero-copy components
	// of a Composite RC-Buf while the maxParts budget allows, falling back
	// to copy-expand once it is used up. The Composite carries no
	// reference count, so whether it is aliased is not checked.
	CumulatorComposite
)

// Accumulator holds the retained partial-read state a decoder carries
// across inbound deliveries (the "accumulator cursor" of spec.md §3).
type Accumulator struct {
	mm        *MMSA
	strategy  Cumulator
	cur       *Buf       // used by CumulatorMerge
	composite *Composite // used by CumulatorComposite
	maxParts  int
}

// NewAccumulator constructs an empty accumulator using the given strategy.
// maxParts bounds the Composite's component count (ignored for merge).
func NewAccumulator(mm *MMSA, strategy Cumulator, maxParts int) *Accumulator {
	return &Accumulator{mm: mm, strategy: strategy, maxParts: maxParts}
}

// Empty reports whether the accumulator currently holds no pending bytes.
func (a *Accumulator) Empty() bool {
	switch a.strategy {
	case CumulatorComposite:
		return a.composite == nil || a.composite.ReadableBytes() == 0
	default:
		return a.cur == nil || a.cur.ReadableBytes() == 0
	}
}

// Accumulate merges an incoming Buf into the pending accumulator state per
// spec.md §4.4 step 1: adopt directly when empty, else accumulate using
// the configured strategy. The accumulator takes ownership of in's
// reference (it either keeps it as-is, appends it, or releases it after
// copying, matching the Send/doCmpl ownership-transfer convention used
// throughout the teacher's transport package).
func (a *Accumulator) Accumulate(in *Buf) error {
	if a.Empty() {
		return a.adopt(in)
	}
	switch a.strategy {
	case CumulatorComposite:
		return a.accumulateComposite(in)
	default:
		return a.accumulateMerge(in)
	}
}

func (a *Accumulator) adopt(in *Buf) error {
	switch a.strategy {
	case CumulatorComposite:
		a.composite = newComposite(a.mm, a.maxParts)
		return a.composite.Append(in)
	default:
		a.cur = in
		return nil
	}
}

// accumulateMerge implements the §4.1 "allocator back-off" algorithm:
// copy-append when growing in place would exceed maxCapacity, when the
// current buffer is aliased (ref-count > 1), or when it is read-only;
// otherwise append in place and release the incoming buffer.
func (a *Accumulator) accumulateMerge(in *Buf) error {
	c := a.cur
	need := c.WriterIndex() + in.ReadableBytes()
	if need > c.MaxCapacity() || c.RefCount() > 1 || c.IsReadOnly() {
		grown := a.mm.Allocate(need, max(need, c.MaxCapacity()))
		if _, err := grown.WriteBytes(c.Bytes()); err != nil {
			_ = grown.Release()
			return err
		}
		if _, err := grown.WriteBytes(in.Bytes()); err != nil {
			_ = grown.Release()
			return err
		}
		_ = c.Release()
		_ = in.Release()
		a.cur = grown
		return nil
	}
	if _, err := c.WriteBytes(in.Bytes()); err != nil {
		return err
	}
	_ = in.Release()
	return nil
}

// accumulateComposite implements the composite half of §4.1: appends as a
// new zero-copy component while there is room under maxParts, otherwise
// falls back to copy-expand by draining the composite into a merge buffer.
// Aliasing is not checked: the composite has no reference count of its own.
func (a *Accumulator) accumulateComposite(in *Buf) error {
	if a.composite.CanAppend() {
		return a.composite.Append(in)
	}
	// fall back: copy-expand the composite into one contiguous Buf, then
	// continue as a merge accumulator from here on.
	merged := a.mm.Allocate(a.composite.ReadableBytes()+in.ReadableBytes(), 1<<31-1)
	for a.composite.ReadableBytes() > 0 {
		s, err := a.composite.ReadSlice(a.composite.ReadableBytes())
		if err != nil {
			_ = merged.Release()
			return err
		}
		if _, err := merged.WriteBytes(s); err != nil {
			_ = merged.Release()
			return err
		}
	}
	if _, err := merged.WriteBytes(in.Bytes()); err != nil {
		_ = merged.Release()
		return err
	}
	_ = in.Release()
	a.composite = nil
	a.cur = merged
	a.strategy = CumulatorMerge
	return nil
}

// ReadableBytes reports bytes available to a decoder right now.
func (a *Accumulator) ReadableBytes() int {
	switch a.strategy {
	case CumulatorComposite:
		if a.composite == nil {
			return 0
		}
		return a.composite.ReadableBytes()
	default:
		if a.cur == nil {
			return 0
		}
		return a.cur.ReadableBytes()
	}
}

// Buf exposes the merge-strategy's current contiguous buffer for decoders
// that need direct byte access (e.g. the line framer's delimiter scan).
// Only valid when Strategy() == CumulatorMerge.
func (a *Accumulator) Buf() *Buf { return a.cur }

func (a *Accumulator) Strategy() Cumulator { return a.strategy }

// Discard compacts the merge buffer (a no-op for composite, which is
// already zero-copy) — the decoder skeleton calls this after R deliveries
// in a row that decoded nothing, per spec.md §4.3/§4.4 step 3.
func (a *Accumulator) Discard() {
	if a.strategy == CumulatorMerge && a.cur != nil {
		a.cur.DiscardSomeReadBytes()
	}
}

// Free releases all retained state once nothing is readable (§4.4 step 3).
func (a *Accumulator) Free() {
	if a.cur != nil {
		_ = a.cur.Release()
		a.cur = nil
	}
	if a.composite != nil {
		a.composite.Release()
		a.composite = nil
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
