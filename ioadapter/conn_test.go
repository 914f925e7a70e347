package ioadapter_test

import (
	"net"
	"testing"
	"time"

	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/exec"
	"github.com/aisreactor/reactor/ioadapter"
	"github.com/aisreactor/reactor/memsys"
)

type capture struct {
	channel.InboundAdapter
	reads chan []byte
}

func (c *capture) ChannelRead(_ *channel.HandlerContext, msg any) {
	if b, ok := msg.(*memsys.Buf); ok {
		c.reads <- append([]byte(nil), b.Bytes()...)
	}
}

func TestConnServeDeliversReadsThroughPipeline(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	mm := (&memsys.MMSA{Name: t.Name()}).Init(nil)
	e := exec.New(t.Name(), nil)
	ch := channel.New(e)
	cap := &capture{reads: make(chan []byte, 4)}
	wired := make(chan struct{})
	e.Execute(func() {
		ch.Pipeline().AddLast("capture", cap)
		close(wired)
	})
	<-wired

	conn := ioadapter.New(ch, server, mm)
	go conn.Serve()

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-cap.reads:
		if string(got) != "ping" {
			t.Fatalf("read = %q, want %q", got, "ping")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivered read")
	}

	activeCh := make(chan bool, 1)
	e.Execute(func() { activeCh <- ch.IsActive() })
	if !<-activeCh {
		t.Fatal("channel not active after Serve registered it")
	}
}
