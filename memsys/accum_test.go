package memsys_test

import (
	"testing"

	"github.com/aisreactor/reactor/memsys"
)

func TestAccumulatorMergeAdoptsThenAppends(t *testing.T) {
	mm := newMM(t)
	acc := memsys.NewAccumulator(mm, memsys.CumulatorMerge, 0)

	first := mm.Allocate(8, 64)
	_, _ = first.WriteBytes([]byte("hel"))
	if err := acc.Accumulate(first); err != nil {
		t.Fatal(err)
	}
	if acc.ReadableBytes() != 3 {
		t.Fatalf("readable = %d, want 3", acc.ReadableBytes())
	}

	second := mm.Allocate(8, 64)
	_, _ = second.WriteBytes([]byte("lo"))
	if err := acc.Accumulate(second); err != nil {
		t.Fatal(err)
	}
	if acc.ReadableBytes() != 5 {
		t.Fatalf("readable = %d, want 5", acc.ReadableBytes())
	}
	if string(acc.Buf().Bytes()) != "hello" {
		t.Fatalf("bytes = %q", acc.Buf().Bytes())
	}
	acc.Free()
	if !acc.Empty() {
		t.Fatal("expected empty after Free")
	}
}

func TestAccumulatorMergeCopiesWhenAliased(t *testing.T) {
	mm := newMM(t)
	acc := memsys.NewAccumulator(mm, memsys.CumulatorMerge, 0)

	first := mm.Allocate(8, 64)
	_, _ = first.WriteBytes([]byte("ab"))
	if err := acc.Accumulate(first); err != nil {
		t.Fatal(err)
	}
	// alias the current buffer so the merge must copy-expand rather than
	// mutate in place (spec.md §4.1 allocator back-off rule).
	alias, err := acc.Buf().Retain()
	if err != nil {
		t.Fatal(err)
	}

	second := mm.Allocate(8, 64)
	_, _ = second.WriteBytes([]byte("cd"))
	if err := acc.Accumulate(second); err != nil {
		t.Fatal(err)
	}
	if string(acc.Buf().Bytes()) != "abcd" {
		t.Fatalf("bytes = %q", acc.Buf().Bytes())
	}
	_ = alias.Release()
	acc.Free()
}

func TestAccumulatorComposite(t *testing.T) {
	mm := newMM(t)
	acc := memsys.NewAccumulator(mm, memsys.CumulatorComposite, 4)

	for _, s := range []string{"a", "bb", "ccc"} {
		b := mm.Allocate(8, 64)
		_, _ = b.WriteBytes([]byte(s))
		if err := acc.Accumulate(b); err != nil {
			t.Fatal(err)
		}
	}
	if acc.ReadableBytes() != 6 {
		t.Fatalf("readable = %d, want 6", acc.ReadableBytes())
	}
	acc.Free()
}
