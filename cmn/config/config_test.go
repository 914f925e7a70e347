package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aisreactor/reactor/cmn/config"
	"github.com/aisreactor/reactor/memsys"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "reactor.json")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDecodesFullDocument(t *testing.T) {
	p := writeTemp(t, `{
		"decoder": {"cumulator":"composite","max_parts":8,"single_decode":true,"discard_after_reads":32},
		"line_framer": {"max_frame_length":8192,"strip_delimiter":true,"fail_fast":true},
		"idle": {"reader_idle":30000,"writer_idle":"15s","all_idle":0,"observe_output":true},
		"write_timeout": {"timeout":"5s"}
	}`)
	cfg, err := config.Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Decoder.CumulatorValue() != memsys.CumulatorComposite {
		t.Fatalf("cumulator = %v, want composite", cfg.Decoder.CumulatorValue())
	}
	if cfg.Decoder.MaxParts != 8 || !cfg.Decoder.SingleDecode || cfg.Decoder.DiscardAfterReads != 32 {
		t.Fatalf("decoder = %+v", cfg.Decoder)
	}
	if cfg.LineFramer.MaxFrameLength != 8192 || !cfg.LineFramer.StripDelimiter || !cfg.LineFramer.FailFast {
		t.Fatalf("line_framer = %+v", cfg.LineFramer)
	}
	if cfg.Idle.ReaderIdleValue() != 30*time.Second {
		t.Fatalf("reader_idle = %v, want 30s", cfg.Idle.ReaderIdleValue())
	}
	if cfg.Idle.WriterIdleValue() != 15*time.Second {
		t.Fatalf("writer_idle = %v, want 15s", cfg.Idle.WriterIdleValue())
	}
	if cfg.Idle.AllIdleValue() != 0 {
		t.Fatalf("all_idle = %v, want 0 (disabled)", cfg.Idle.AllIdleValue())
	}
	if !cfg.Idle.ObserveOutput {
		t.Fatal("observe_output = false, want true")
	}
	if cfg.WriteTimeout.TimeoutValue() != 5*time.Second {
		t.Fatalf("write_timeout = %v, want 5s", cfg.WriteTimeout.TimeoutValue())
	}
}

func TestSubMillisecondDurationClampsToOneMillisecond(t *testing.T) {
	p := writeTemp(t, `{"idle": {"reader_idle": "500us"}}`)
	cfg, err := config.Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Idle.ReaderIdleValue() != time.Millisecond {
		t.Fatalf("reader_idle = %v, want clamped to 1ms", cfg.Idle.ReaderIdleValue())
	}
}

func TestDefaultCumulatorIsMerge(t *testing.T) {
	var d config.DecoderConfig
	if d.CumulatorValue() != memsys.CumulatorMerge {
		t.Fatalf("zero-value cumulator = %v, want merge", d.CumulatorValue())
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}
