package leak_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/aisreactor/reactor/leak"
)

func TestDisabledNeverTracks(t *testing.T) {
	d := leak.New(leak.Disabled, 0, 0)
	obj := new(int)
	if _, ok := d.Track(obj); ok {
		t.Fatal("disabled detector sampled")
	}
}

func TestParanoidAlwaysTracks(t *testing.T) {
	d := leak.New(leak.Paranoid, 0, 0)
	for i := 0; i < 10; i++ {
		obj := new(int)
		if _, ok := d.Track(obj); !ok {
			t.Fatalf("paranoid detector skipped sample %d", i)
		}
	}
}

func TestSimpleSamplesAtInterval(t *testing.T) {
	d := leak.New(leak.Simple, 4, 0)
	sampled := 0
	for i := 0; i < 12; i++ {
		obj := new(int)
		if _, ok := d.Track(obj); ok {
			sampled++
		}
	}
	if sampled != 3 {
		t.Fatalf("sampled = %d, want 3 (one per 4 of 12)", sampled)
	}
}

func TestClosedResourceNotReported(t *testing.T) {
	d := leak.New(leak.Paranoid, 0, 0)
	var mu sync.Mutex
	var reports []string
	d.Sink = func(s string) { mu.Lock(); reports = append(reports, s); mu.Unlock() }

	func() {
		obj := new(int)
		tr, ok := d.Track(obj)
		if !ok {
			t.Fatal("expected sample")
		}
		tr.Record("alloc")
		tr.Close(obj)
	}()

	forceGCAndSweep(d)
	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 0 {
		t.Fatalf("expected no reports for closed resource, got %v", reports)
	}
}

func TestReclaimedWithoutCloseIsReported(t *testing.T) {
	d := leak.New(leak.Paranoid, 0, 0)
	var mu sync.Mutex
	var reports []string
	d.Sink = func(s string) { mu.Lock(); reports = append(reports, s); mu.Unlock() }

	func() {
		obj := new([4]int64) // 32 bytes: too large for the tiny allocator, so the finalizer runs
		tr, ok := d.Track(obj)
		if !ok {
			t.Fatal("expected sample")
		}
		tr.Record("alloc")
		tr.Record("read")
		_ = obj // dropped without Close
	}()

	forceGCAndSweep(d)
	mu.Lock()
	defer mu.Unlock()
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
}

func forceGCAndSweep(d *leak.Detector) {
	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
		d.Sweep()
	}
}
