// Package line implements the line-based framer of spec.md §4.4.1: the
// concrete exemplar of the stream-to-frame decoder skeleton in package
// codec.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package line

import (
	"bytes"

	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/codec"
	"github.com/aisreactor/reactor/memsys"
)

// Config is the line framer's construction-time configuration.
type Config struct {
	MaxFrameLength int
	StripDelimiter bool
	FailFast       bool
}

// Framer implements codec.Decoder, scanning for LF (optionally
// CRLF-prefixed) delimiters with a cached scan offset so repeated partial
// deliveries never rescan already-examined bytes.
type Framer struct {
	cfg Config

	discarding     bool
	discardedBytes int
	scanOffset     int // relative to the accumulator's current readable region
}

// NewHandler constructs a ready-to-add pipeline handler combining a
// Framer with the generic byte-to-message decoder driver. The framer
// requires the merge cumulator: it scans a contiguous readable region.
func NewHandler(cfg Config, mm *memsys.MMSA) *codec.ByteToMessageDecoder {
	return codec.New(&Framer{cfg: cfg}, mm, codec.Config{
		Cumulator:         memsys.CumulatorMerge,
		DiscardAfterReads: 16,
	})
}

// Decode implements codec.Decoder per spec.md §4.4.1.
func (f *Framer) Decode(_ *channel.HandlerContext, acc *memsys.Accumulator, out *codec.MessageList) error {
	buf := acc.Buf()
	if buf == nil {
		return nil
	}
	data := buf.Bytes()
	readable := len(data)

	lfIndex := -1
	if f.scanOffset < readable {
		if i := bytes.IndexByte(data[f.scanOffset:], '\n'); i >= 0 {
			lfIndex = f.scanOffset + i
		}
	}

	if !f.discarding {
		return f.decodeNormal(buf, data, readable, lfIndex, out)
	}
	return f.decodeDiscarding(buf, data, readable, lfIndex)
}

func delimiterLength(data []byte, lfIndex int) int {
	if lfIndex > 0 && data[lfIndex-1] == '\r' {
		return 2
	}
	return 1
}

func (f *Framer) decodeNormal(buf *memsys.Buf, data []byte, readable, lfIndex int, out *codec.MessageList) error {
	if lfIndex < 0 {
		if readable > f.cfg.MaxFrameLength {
			f.discarding = true
			f.discardedBytes = readable
			if _, err := buf.ReadSlice(readable); err != nil {
				return err
			}
			f.scanOffset = 0
			if f.cfg.FailFast {
				return &codec.TooLongFrameException{Length: f.discardedBytes}
			}
			return nil
		}
		f.scanOffset = readable
		return nil
	}

	delimLen := delimiterLength(data, lfIndex)
	contentEnd := lfIndex - (delimLen - 1)
	totalConsumed := lfIndex + 1
	f.scanOffset = 0

	if contentEnd > f.cfg.MaxFrameLength {
		if _, err := buf.ReadSlice(totalConsumed); err != nil {
			return err
		}
		return &codec.TooLongFrameException{Length: contentEnd}
	}

	if f.cfg.StripDelimiter {
		frame, err := buf.ReadSlice(contentEnd)
		if err != nil {
			return err
		}
		if _, err := buf.ReadSlice(totalConsumed - contentEnd); err != nil {
			return err
		}
		out.Add(append([]byte(nil), frame...))
		return nil
	}
	frame, err := buf.ReadSlice(totalConsumed)
	if err != nil {
		return err
	}
	out.Add(append([]byte(nil), frame...))
	return nil
}

func (f *Framer) decodeDiscarding(buf *memsys.Buf, data []byte, readable, lfIndex int) error {
	if lfIndex < 0 {
		f.discardedBytes += readable
		if _, err := buf.ReadSlice(readable); err != nil {
			return err
		}
		f.scanOffset = 0
		return nil
	}
	delimLen := delimiterLength(data, lfIndex)
	totalConsumed := lfIndex + 1
	if _, err := buf.ReadSlice(totalConsumed); err != nil {
		return err
	}
	discarded := f.discardedBytes
	f.discarding = false
	f.discardedBytes = 0
	f.scanOffset = 0
	if !f.cfg.FailFast {
		return &codec.TooLongFrameException{Length: discarded + totalConsumed - delimLen}
	}
	return nil
}
