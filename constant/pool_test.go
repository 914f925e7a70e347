package constant_test

import (
	"sync"
	"testing"

	"github.com/aisreactor/reactor/constant"
)

func TestValueOfIsIdempotent(t *testing.T) {
	p := &constant.Pool{}
	a := p.ValueOf("reader_idle")
	b := p.ValueOf("reader_idle")
	if a != b {
		t.Fatalf("ValueOf returned %d then %d for the same name", a, b)
	}
	c := p.ValueOf("writer_idle")
	if c == a {
		t.Fatalf("distinct names got the same id %d", a)
	}
}

func TestValueOfConcurrentFirstUseAgrees(t *testing.T) {
	p := &constant.Pool{}
	const n = 64
	ids := make([]uint32, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ids[i] = p.ValueOf("shared")
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("ids[%d] = %d, want %d (all callers must agree on the winning id)", i, ids[i], ids[0])
		}
	}
}

func TestNewInstanceRejectsDuplicate(t *testing.T) {
	p := &constant.Pool{}
	if _, err := p.NewInstance("frame_read"); err != nil {
		t.Fatalf("first NewInstance failed: %v", err)
	}
	if _, err := p.NewInstance("frame_read"); err == nil {
		t.Fatal("second NewInstance of the same name succeeded, want error")
	}
}

func TestLookupReportsPresence(t *testing.T) {
	p := &constant.Pool{}
	if _, ok := p.Lookup("never_registered"); ok {
		t.Fatal("Lookup reported presence for an unregistered name")
	}
	want := p.ValueOf("now_registered")
	got, ok := p.Lookup("now_registered")
	if !ok || got != want {
		t.Fatalf("Lookup = (%d, %v), want (%d, true)", got, ok, want)
	}
}
