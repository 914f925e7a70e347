package memsys

import (
	"sync/atomic"

	"github.com/aisreactor/reactor/leak"
)

// Buf is the reference-counted byte buffer (RC-Buf) of spec.md §3/§4.1:
// independent reader/writer cursors over a capacity-bounded byte region,
// whose lifetime is governed by an atomic reference count shared by every
// slice derived from it.
type Buf struct {
	mm       *MMSA
	data     []byte // len(data) is writer index's upper bound (capacity)
	roff     int
	woff     int
	maxCap   int
	readOnly bool
	rc       *int64 // shared across retained slices
	parent   *Buf   // non-nil for slices: release cascades to here
	tracker  *leak.Tracker
}

func newBuf(mm *MMSA, data []byte, maxCap int) *Buf {
	rc := int64(1)
	return &Buf{mm: mm, data: data, maxCap: maxCap, rc: &rc}
}

// RefCount returns the current reference count; 0 means the storage has
// already been returned to the allocator.
func (b *Buf) RefCount() int32 { return int32(atomic.LoadInt64(b.rc)) }

// Retain increments the reference count by n (default 1 when n==0) and
// returns the same buffer for chaining, matching Netty's ByteBuf.retain().
func (b *Buf) Retain(n ...int) (*Buf, error) {
	delta := int64(one(n))
	for {
		cur := atomic.LoadInt64(b.rc)
		if cur <= 0 {
			return nil, ErrIllegalRefCount
		}
		next := cur + delta
		if next < cur { // overflow
			return nil, ErrIllegalRefCount
		}
		if atomic.CompareAndSwapInt64(b.rc, cur, next) {
			return b, nil
		}
	}
}

// Release decrements the reference count by n (default 1). When the count
// reaches zero the underlying storage is deallocated exactly once — either
// directly (root buffer) or by cascading into the buffer this one was
// sliced from.
func (b *Buf) Release(n ...int) error {
	delta := int64(one(n))
	for {
		cur := atomic.LoadInt64(b.rc)
		if cur <= 0 || delta > cur {
			return ErrIllegalRefCount
		}
		next := cur - delta
		if atomic.CompareAndSwapInt64(b.rc, cur, next) {
			if next == 0 {
				b.deallocate()
			}
			return nil
		}
	}
}

// deallocate returns the root buffer's storage to the allocator. It may be
// invoked on the root itself or on any slice derived from it — whichever
// Release call drives the shared counter to zero — so it always resolves
// to the root before freeing.
func (b *Buf) deallocate() {
	root := b
	for root.parent != nil {
		root = root.parent
	}
	if root.tracker != nil {
		root.tracker.Close(root)
	}
	if root.mm != nil && root.data != nil {
		root.mm.free(root.data)
	}
	root.data = nil
	b.data = nil
}

func one(n []int) int {
	if len(n) == 0 {
		return 1
	}
	return n[0]
}

//
// cursors
//

func (b *Buf) ReaderIndex() int    { return b.roff }
func (b *Buf) WriterIndex() int    { return b.woff }
func (b *Buf) Capacity() int       { return cap(b.data) }
func (b *Buf) MaxCapacity() int    { return b.maxCap }
func (b *Buf) ReadableBytes() int  { return b.woff - b.roff }
func (b *Buf) WritableBytes() int  { return b.maxCap - b.woff }
func (b *Buf) IsReadOnly() bool    { return b.readOnly }

// SetReaderIndex repositions the reader cursor; it must stay within
// [0, writer index] per the §3 invariant.
func (b *Buf) SetReaderIndex(i int) error {
	if i < 0 || i > b.woff {
		return ErrBounds
	}
	b.roff = i
	return nil
}

// SetWriterIndex repositions the writer cursor; it must stay within
// [reader index, max capacity], and the storage grows when i is past it.
func (b *Buf) SetWriterIndex(i int) error {
	if i < b.roff || i > b.maxCap {
		return ErrBounds
	}
	if i > len(b.data) {
		b.grow(i)
		b.data = b.data[:i]
	}
	b.woff = i
	return nil
}

//
// reads
//

// ReadByte consumes and returns one byte, advancing the reader index.
func (b *Buf) ReadByte() (byte, error) {
	if b.roff >= b.woff {
		return 0, ErrBounds
	}
	v := b.data[b.roff]
	b.roff++
	return v, nil
}

// ReadSlice returns a view of the next n readable bytes without copying and
// advances the reader index. The returned slice aliases this buffer's
// storage and is only valid until the buffer is released or compacted.
func (b *Buf) ReadSlice(n int) ([]byte, error) {
	if n < 0 || b.roff+n > b.woff {
		return nil, ErrBounds
	}
	if b.tracker != nil {
		b.tracker.Record("ReadSlice")
	}
	s := b.data[b.roff : b.roff+n]
	b.roff += n
	return s, nil
}

// RetainedSlice returns a new *Buf viewing the next n readable bytes,
// sharing this buffer's reference count: releasing the slice decrements
// the same counter as releasing the original, and at zero the root
// buffer's storage is freed exactly once (see deallocate cascading above).
// The parent's reader index is advanced past the sliced bytes.
func (b *Buf) RetainedSlice(n int) (*Buf, error) {
	if n < 0 || b.roff+n > b.woff {
		return nil, ErrBounds
	}
	if _, err := b.Retain(); err != nil {
		return nil, err
	}
	root := b
	for root.parent != nil {
		root = root.parent
	}
	slice := &Buf{
		mm:       b.mm,
		data:     b.data[b.roff : b.roff+n : b.roff+n],
		roff:     0,
		woff:     n,
		maxCap:   n,
		readOnly: b.readOnly,
		rc:       b.rc,
		parent:   root,
	}
	b.roff += n
	return slice, nil
}

//
// writes
//

// WriteBytes appends p, growing the backing storage when needed (the
// replaced storage goes back to the allocator), up to maxCapacity. Fails on a read-only buffer or when the
// write would exceed maxCapacity.
func (b *Buf) WriteBytes(p []byte) (int, error) {
	if b.readOnly {
		return 0, ErrReadOnly
	}
	need := b.woff + len(p)
	if need > b.maxCap {
		return 0, ErrBounds
	}
	if need > cap(b.data) {
		b.grow(need)
	}
	if need > len(b.data) {
		b.data = b.data[:need]
	}
	if b.tracker != nil {
		b.tracker.Record("WriteBytes")
	}
	n := copy(b.data[b.woff:need], p)
	b.woff += n
	return n, nil
}

func (b *Buf) grow(need int) {
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = DefaultBufSize
	}
	for newCap < need {
		newCap *= 2
	}
	if newCap > b.maxCap {
		newCap = b.maxCap
	}
	nd := make([]byte, len(b.data), newCap)
	copy(nd, b.data)
	if b.mm != nil && b.parent == nil {
		old := b.data
		b.data = nd
		b.mm.free(old)
	} else {
		b.data = nd
	}
}

// DiscardSomeReadBytes compacts the buffer by shifting unread bytes to
// offset 0, but only when ref-count is exactly 1 — the spec's aliasing
// safeguard: a buffer with outstanding retained slices must not be
// mutated, since a slice may still be reading from the discarded region.
func (b *Buf) DiscardSomeReadBytes() {
	if atomic.LoadInt64(b.rc) != 1 || b.roff == 0 {
		return
	}
	n := copy(b.data, b.data[b.roff:b.woff])
	b.woff = n
	b.roff = 0
}

// FindFirst returns the index (relative to the reader index) of the first
// occurrence of c in the readable region, or -1 if absent.
func (b *Buf) FindFirst(c byte) int {
	for i := b.roff; i < b.woff; i++ {
		if b.data[i] == c {
			return i - b.roff
		}
	}
	return -1
}

// Bytes returns the readable region without consuming it; callers must not
// retain this slice past the buffer's next mutation or release.
func (b *Buf) Bytes() []byte { return b.data[b.roff:b.woff] }
