package line_test

import (
	"testing"

	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/codec"
	"github.com/aisreactor/reactor/codec/line"
	"github.com/aisreactor/reactor/exec"
	"github.com/aisreactor/reactor/memsys"
)

type capturingInbound struct {
	channel.InboundAdapter
	frames []string
	errs   []error
}

func (c *capturingInbound) ChannelRead(_ *channel.HandlerContext, msg any) {
	switch v := msg.(type) {
	case []byte:
		c.frames = append(c.frames, string(v))
	}
}

func (c *capturingInbound) ExceptionCaught(_ *channel.HandlerContext, err error) {
	c.errs = append(c.errs, err)
}

func newTestChannel(t *testing.T, cap *capturingInbound, cfg line.Config) *channel.Channel {
	t.Helper()
	mm := (&memsys.MMSA{Name: t.Name()}).Init(nil)
	e := exec.New(t.Name(), nil)
	ch := channel.New(e)
	done := make(chan struct{})
	e.Execute(func() {
		ch.Register()
		ch.Activate()
		ch.Pipeline().AddLast("framer", line.NewHandler(cfg, mm))
		ch.Pipeline().AddLast("capture", cap)
		close(done)
	})
	<-done
	return ch
}

func deliver(t *testing.T, ch *channel.Channel, mm *memsys.MMSA, chunks ...string) {
	t.Helper()
	for _, c := range chunks {
		b := mm.Allocate(len(c), len(c)+1)
		if _, err := b.WriteBytes([]byte(c)); err != nil {
			t.Fatal(err)
		}
		done := make(chan struct{})
		ch.Executor().Execute(func() { ch.Pipeline().FireChannelRead(b); close(done) })
		<-done
	}
}

// scenario (a): split line across buffers.
func TestSplitLineAcrossBuffers(t *testing.T) {
	cap := &capturingInbound{}
	cfg := line.Config{MaxFrameLength: 64, StripDelimiter: true, FailFast: true}
	ch := newTestChannel(t, cap, cfg)
	mm := (&memsys.MMSA{Name: t.Name() + "-src"}).Init(nil)

	deliver(t, ch, mm, "he", "llo\nwor", "ld\r\n")

	if len(cap.frames) != 2 || cap.frames[0] != "hello" || cap.frames[1] != "world" {
		t.Fatalf("frames = %v, want [hello world]", cap.frames)
	}
}

// scenario (b): over-long frame, fail-fast.
func TestOverLongFrameFailFast(t *testing.T) {
	cap := &capturingInbound{}
	cfg := line.Config{MaxFrameLength: 4, StripDelimiter: true, FailFast: true}
	ch := newTestChannel(t, cap, cfg)
	mm := (&memsys.MMSA{Name: t.Name() + "-src"}).Init(nil)

	deliver(t, ch, mm, "abcdefgh\n")

	if len(cap.frames) != 0 {
		t.Fatalf("frames = %v, want none", cap.frames)
	}
	if len(cap.errs) != 1 {
		t.Fatalf("errs = %v, want exactly one TooLongFrameException", cap.errs)
	}
	tle, ok := cap.errs[0].(*codec.TooLongFrameException)
	if !ok {
		t.Fatalf("err = %T, want *codec.TooLongFrameException", cap.errs[0])
	}
	if tle.Length != 8 {
		t.Fatalf("length = %d, want 8 (fired as soon as readable exceeded max)", tle.Length)
	}
}

// scenario (c): over-long frame, not fail-fast.
func TestOverLongFrameNotFailFast(t *testing.T) {
	cap := &capturingInbound{}
	cfg := line.Config{MaxFrameLength: 4, StripDelimiter: true, FailFast: false}
	ch := newTestChannel(t, cap, cfg)
	mm := (&memsys.MMSA{Name: t.Name() + "-src"}).Init(nil)

	deliver(t, ch, mm, "abcdefgh\n")

	if len(cap.frames) != 0 {
		t.Fatalf("frames = %v, want none", cap.frames)
	}
	if len(cap.errs) != 1 {
		t.Fatalf("errs = %v, want exactly one TooLongFrameException", cap.errs)
	}
	tle := cap.errs[0].(*codec.TooLongFrameException)
	if tle.Length != 8 {
		t.Fatalf("length = %d, want 8 (content length up to the LF)", tle.Length)
	}
}

// variant of (b)/(c) where the delimiter is not yet present when the
// frame first exceeds max_length, exercising the discarding-state
// transition rather than the delimiter-found-but-too-long branch.
func TestOverLongFrameDiscardingBeforeDelimiterSeen(t *testing.T) {
	cap := &capturingInbound{}
	cfg := line.Config{MaxFrameLength: 4, StripDelimiter: true, FailFast: false}
	ch := newTestChannel(t, cap, cfg)
	mm := (&memsys.MMSA{Name: t.Name() + "-src"}).Init(nil)

	deliver(t, ch, mm, "abcde", "fgh\n")

	if len(cap.frames) != 0 {
		t.Fatalf("frames = %v, want none", cap.frames)
	}
	if len(cap.errs) != 1 {
		t.Fatalf("errs = %v, want exactly one TooLongFrameException", cap.errs)
	}
	tle := cap.errs[0].(*codec.TooLongFrameException)
	if tle.Length != 8 {
		t.Fatalf("length = %d, want 8 (5 discarded before LF seen + 3 content bytes up to LF)", tle.Length)
	}
}

func TestCRLFDelimiterDetected(t *testing.T) {
	cap := &capturingInbound{}
	cfg := line.Config{MaxFrameLength: 64, StripDelimiter: false, FailFast: true}
	ch := newTestChannel(t, cap, cfg)
	mm := (&memsys.MMSA{Name: t.Name() + "-src"}).Init(nil)

	deliver(t, ch, mm, "hi\r\n")

	if len(cap.frames) != 1 || cap.frames[0] != "hi\r\n" {
		t.Fatalf("frames = %v, want [\"hi\\r\\n\"] (delimiter retained)", cap.frames)
	}
}
