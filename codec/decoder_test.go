package codec_test

import (
	"testing"

	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/codec"
	"github.com/aisreactor/reactor/exec"
	"github.com/aisreactor/reactor/memsys"
)

// fixedLenDecoder emits a message every 3 bytes, exercising the generic
// driver without any delimiter-scanning complexity.
type fixedLenDecoder struct{ n int }

func (d *fixedLenDecoder) Decode(_ *channel.HandlerContext, acc *memsys.Accumulator, out *codec.MessageList) error {
	if acc.ReadableBytes() < d.n {
		return nil
	}
	buf := acc.Buf()
	frame, err := buf.ReadSlice(d.n)
	if err != nil {
		return err
	}
	out.Add(append([]byte(nil), frame...))
	return nil
}

type capture struct {
	channel.InboundAdapter
	msgs [][]byte
}

func (c *capture) ChannelRead(_ *channel.HandlerContext, msg any) {
	c.msgs = append(c.msgs, msg.([]byte))
}

func TestByteToMessageDecoderEmitsMultipleFramesPerDelivery(t *testing.T) {
	mm := (&memsys.MMSA{Name: t.Name()}).Init(nil)
	e := exec.New(t.Name(), nil)
	ch := channel.New(e)
	cap := &capture{}
	done := make(chan struct{})
	e.Execute(func() {
		ch.Register()
		ch.Activate()
		ch.Pipeline().AddLast("decoder", codec.New(&fixedLenDecoder{n: 3}, mm, codec.Config{Cumulator: memsys.CumulatorMerge}))
		ch.Pipeline().AddLast("cap", cap)
		close(done)
	})
	<-done

	b := mm.Allocate(16, 64)
	_, _ = b.WriteBytes([]byte("abcdefghi"))
	read := make(chan struct{})
	e.Execute(func() { ch.Pipeline().FireChannelRead(b); close(read) })
	<-read

	if len(cap.msgs) != 3 {
		t.Fatalf("msgs = %v, want 3 frames", cap.msgs)
	}
	for i, want := range []string{"abc", "def", "ghi"} {
		if string(cap.msgs[i]) != want {
			t.Fatalf("msgs[%d] = %q, want %q", i, cap.msgs[i], want)
		}
	}
}

func TestByteToMessageDecoderHoldsPartialFrame(t *testing.T) {
	mm := (&memsys.MMSA{Name: t.Name()}).Init(nil)
	e := exec.New(t.Name(), nil)
	ch := channel.New(e)
	cap := &capture{}
	done := make(chan struct{})
	e.Execute(func() {
		ch.Register()
		ch.Activate()
		ch.Pipeline().AddLast("decoder", codec.New(&fixedLenDecoder{n: 3}, mm, codec.Config{Cumulator: memsys.CumulatorMerge}))
		ch.Pipeline().AddLast("cap", cap)
		close(done)
	})
	<-done

	b := mm.Allocate(16, 64)
	_, _ = b.WriteBytes([]byte("ab"))
	read := make(chan struct{})
	e.Execute(func() { ch.Pipeline().FireChannelRead(b); close(read) })
	<-read

	if len(cap.msgs) != 0 {
		t.Fatalf("msgs = %v, want none yet (partial frame held)", cap.msgs)
	}
}
