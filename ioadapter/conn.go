// Package ioadapter implements channel.Transport over a net.Conn: the
// concrete socket driver spec.md §1 and §6 leave as an external
// collaborator. One reader goroutine per connection feeds ChannelRead
// events onto the channel's own executor, keeping every pipeline mutation
// on the single worker thread the rest of this runtime requires.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package ioadapter

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/cmn/cos"
	"github.com/aisreactor/reactor/cmn/nlog"
	"github.com/aisreactor/reactor/memsys"
)

// Conn adapts a net.Conn to channel.Transport and drives a Channel's
// lifecycle from it.
type Conn struct {
	ch   *channel.Channel
	conn net.Conn
	mm   *memsys.MMSA

	readBufSize int
	closeOnce   sync.Once
}

// DefaultReadBufSize is the size of the fixed scratch buffer each read
// fills; the bytes read are then copied into a new RC-Buf from the
// allocator.
const DefaultReadBufSize = 4096

// New wires conn as ch's transport and returns the adapter. Call Serve to
// start the connection's lifecycle (register, activate, read loop).
func New(ch *channel.Channel, conn net.Conn, mm *memsys.MMSA) *Conn {
	return &Conn{ch: ch, conn: conn, mm: mm, readBufSize: DefaultReadBufSize}
}

// Write implements channel.Transport.
func (c *Conn) Write(p []byte) (int, error) { return c.conn.Write(p) }

// Flush implements channel.Transport. TCP has no userspace write buffer
// to drain beyond what Write already pushed to the kernel.
func (c *Conn) Flush() error { return nil }

// CloseTransport implements channel.Transport, idempotently.
func (c *Conn) CloseTransport() error {
	var err error
	c.closeOnce.Do(func() { err = c.conn.Close() })
	return err
}

// Serve brings the channel up and runs the blocking read loop on the
// calling goroutine until the connection closes or a read error occurs.
// Callers typically invoke Serve in its own goroutine per accepted
// connection.
func (c *Conn) Serve() {
	local, remote := c.conn.LocalAddr(), c.conn.RemoteAddr()
	registered := make(chan struct{})
	c.ch.Executor().Execute(func() {
		c.ch.Register()
		c.ch.SetTransport(c, local, remote)
		c.ch.Activate()
		close(registered)
	})
	<-registered

	scratch := make([]byte, c.readBufSize)
	for {
		n, err := c.conn.Read(scratch)
		if n > 0 {
			b := c.mm.Allocate(n, n*4)
			if _, werr := b.WriteBytes(scratch[:n]); werr != nil {
				nlog.Errorln("ioadapter: buffering read:", werr)
			} else {
				c.ch.Executor().Execute(func() { c.ch.Pipeline().FireChannelRead(b) })
			}
		}
		if err != nil {
			c.ch.Executor().Execute(func() {
				switch {
				case errors.Is(err, io.EOF):
					// peer closed cleanly; nothing to report.
				case cos.IsRetriableConnErr(err):
					// an abrupt disconnect (reset, broken pipe, refused) is a
					// routine event on this read path, not an exceptional one.
					nlog.Warningln("channel", c.ch.ID(), "connection closed:", err)
				default:
					c.ch.Pipeline().FireExceptionCaught(err)
				}
				c.ch.Close()
			})
			return
		}
	}
}
