// Package config decodes the runtime's JSON configuration document: the
// decoder, line-framer, and idle/write-timeout blocks named in spec.md §6,
// using the same jsoniter decoding convention the teacher applies
// throughout cmn for config and metadata marshaling.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package config

import (
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/aisreactor/reactor/memsys"
)

var jsonc = jsoniter.ConfigCompatibleWithStandardLibrary

// DecoderConfig mirrors codec.Config's JSON surface.
type DecoderConfig struct {
	Cumulator         string `json:"cumulator"` // "merge" | "composite"
	MaxParts          int    `json:"max_parts"`
	SingleDecode      bool   `json:"single_decode"`
	DiscardAfterReads int    `json:"discard_after_reads"`
}

// CumulatorValue resolves the string value to memsys.Cumulator, defaulting to
// CumulatorMerge for an empty or unrecognized value.
func (d DecoderConfig) CumulatorValue() memsys.Cumulator {
	if d.Cumulator == "composite" {
		return memsys.CumulatorComposite
	}
	return memsys.CumulatorMerge
}

// LineFramerConfig mirrors codec/line.Config's JSON surface.
type LineFramerConfig struct {
	MaxFrameLength int  `json:"max_frame_length"`
	StripDelimiter bool `json:"strip_delimiter"`
	FailFast       bool `json:"fail_fast"`
}

// durationMillis decodes either a bare JSON number (milliseconds) or a Go
// duration string ("250ms", "2s"), matching how the teacher's cmn.Config
// accepts both forms for human-edited config files.
type durationMillis time.Duration

func (d *durationMillis) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := jsonc.Unmarshal(b, &ms); err == nil {
		*d = durationMillis(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := jsonc.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = durationMillis(parsed)
	return nil
}

// IdleConfig mirrors timeout.IdleSupervisor's JSON surface. Any
// configured duration that resolves to a positive but sub-millisecond
// value is clamped up to 1ms rather than silently rounded to zero (which
// would disable the deadline the caller asked for) — spec.md §6's
// clamping rule.
type IdleConfig struct {
	ReaderIdle    durationMillis `json:"reader_idle"`
	WriterIdle    durationMillis `json:"writer_idle"`
	AllIdle       durationMillis `json:"all_idle"`
	ObserveOutput bool           `json:"observe_output"`
}

func clamp(d durationMillis) time.Duration {
	v := time.Duration(d)
	if v > 0 && v < time.Millisecond {
		return time.Millisecond
	}
	return v
}

func (c IdleConfig) ReaderIdleValue() time.Duration { return clamp(c.ReaderIdle) }
func (c IdleConfig) WriterIdleValue() time.Duration { return clamp(c.WriterIdle) }
func (c IdleConfig) AllIdleValue() time.Duration    { return clamp(c.AllIdle) }

// WriteTimeoutConfig mirrors timeout.WriteTimeoutSupervisor's JSON
// surface.
type WriteTimeoutConfig struct {
	Timeout durationMillis `json:"timeout"`
}

func (c WriteTimeoutConfig) TimeoutValue() time.Duration { return clamp(c.Timeout) }

// Config is the top-level document decoded by Load.
type Config struct {
	Decoder      DecoderConfig      `json:"decoder"`
	LineFramer   LineFramerConfig   `json:"line_framer"`
	Idle         IdleConfig         `json:"idle"`
	WriteTimeout WriteTimeoutConfig `json:"write_timeout"`
}

// Load reads and decodes the JSON document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := jsonc.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
