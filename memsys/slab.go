package memsys

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aisreactor/reactor/leak"
)

// PageSize is the smallest slab granule; slab sizes are PageSize*(i+1) for
// i in [0, NumPageSlabs), mirroring the teacher's page-slab ladder.
const PageSize = 4 * 1024

// NumPageSlabs is the number of distinct pooled slab sizes.
const NumPageSlabs = 6

// MaxPageSlabSize is the largest pooled slab; allocations above it bypass
// the pool and are allocated (and GC'd) directly.
const MaxPageSlabSize = PageSize * NumPageSlabs

// DefaultBufSize is the allocation size used when callers don't have a
// better estimate (e.g. the accumulator's first inbound delivery).
const DefaultBufSize = PageSize

// slab is one size class: a sync.Pool of same-capacity []byte plus hit/miss
// counters exported as Prometheus counters by the owning MMSA.
type slab struct {
	pool   sync.Pool
	size   int
	hits   prometheus.Counter
	misses prometheus.Counter
}

func (s *slab) get() []byte {
	if v := s.pool.Get(); v != nil {
		s.hits.Inc()
		b := v.([]byte)
		return b[:0]
	}
	s.misses.Inc()
	return make([]byte, 0, s.size)
}

func (s *slab) put(b []byte) {
	if cap(b) != s.size {
		return // foreign-sized slice, e.g. grown past its class: let GC reclaim
	}
	//nolint:staticcheck // intentional: pool entries are reused verbatim
	s.pool.Put(b[:cap(b)])
}

// MMSA ("memory manager, single allocator") is the runtime's slab allocator.
// It owns one slab per pooled size class and tracks aggregate bytes
// outstanding for Prometheus export.
type MMSA struct {
	Name string
	// Detector, when set before the first Allocate, samples allocated
	// RC-Bufs for garbage collection without an explicit Release (spec.md
	// §4.2). Nil disables tracking entirely, same as leak.Disabled.
	Detector *leak.Detector

	slabs    [NumPageSlabs]*slab
	reg      *prometheus.Registry
	outstand prometheus.Gauge
	once     sync.Once
}

// Init wires the Prometheus collectors. Safe to call multiple times; only
// the first call takes effect, matching the teacher's MMSA.Init(id) which
// is similarly idempotent per process.
func (mm *MMSA) Init(reg *prometheus.Registry) *MMSA {
	mm.once.Do(func() {
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		mm.reg = reg
		mm.outstand = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reactor", Subsystem: "memsys", Name: mm.Name + "_bytes_outstanding",
			Help: "Bytes currently held by live RC-Bufs allocated by this MMSA.",
		})
		reg.MustRegister(mm.outstand)
		for i := range mm.slabs {
			size := PageSize * (i + 1)
			s := &slab{size: size}
			s.hits = prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "reactor", Subsystem: "memsys",
				Name: mm.Name + "_slab_hits_total", ConstLabels: prometheus.Labels{"size": itoa(size)},
			})
			s.misses = prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "reactor", Subsystem: "memsys",
				Name: mm.Name + "_slab_misses_total", ConstLabels: prometheus.Labels{"size": itoa(size)},
			})
			reg.MustRegister(s.hits, s.misses)
			mm.slabs[i] = s
		}
	})
	return mm
}

// Allocate satisfies the Allocator contract of spec.md §6: returns an
// RC-Buf with ref-count 1, sized to at least initial (rounded up to a slab
// class when it fits one) and bounded by max (0 means unbounded, capped to
// MaxInt32).
func (mm *MMSA) Allocate(initial, maxCapacity int) *Buf {
	if maxCapacity <= 0 {
		maxCapacity = 1<<31 - 1
	}
	data := mm.alloc(initial)
	mm.outstand.Add(float64(cap(data)))
	b := newBuf(mm, data, maxCapacity)
	if mm.Detector != nil {
		if t, ok := mm.Detector.Track(b); ok {
			b.tracker = t
		}
	}
	return b
}

// Composite returns a Composite RC-Buf backed by this allocator; maxParts
// bounds the number of zero-copy components it may hold before callers
// should fall back to copy-append (see §4.1 "allocator back-off").
func (mm *MMSA) Composite(maxParts int) *Composite {
	return newComposite(mm, maxParts)
}

func (mm *MMSA) alloc(size int) []byte {
	if idx := slabIndex(size); idx >= 0 {
		b := mm.slabs[idx].get()
		return b
	}
	return make([]byte, 0, size)
}

func (mm *MMSA) free(data []byte) {
	mm.outstand.Add(-float64(cap(data)))
	if idx := slabIndex(cap(data)); idx >= 0 {
		mm.slabs[idx].put(data)
	}
	// non-pooled allocations are simply dropped for the GC to reclaim
}

func slabIndex(size int) int {
	for i := 0; i < NumPageSlabs; i++ {
		if size <= PageSize*(i+1) {
			return i
		}
	}
	return -1
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
