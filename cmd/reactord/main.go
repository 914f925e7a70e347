// Package main is reactord, a small line-protocol echo server
// demonstrating the channel runtime end to end: an executor group
// accepting connections, each wired through an optional idle supervisor
// (when a reader-idle duration is configured) and the line-based framer,
// echoing every received line back to its sender.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package main

import (
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aisreactor/reactor/channel"
	"github.com/aisreactor/reactor/cmn/config"
	"github.com/aisreactor/reactor/cmn/cos"
	"github.com/aisreactor/reactor/cmn/nlog"
	"github.com/aisreactor/reactor/codec/line"
	"github.com/aisreactor/reactor/exec"
	"github.com/aisreactor/reactor/hk"
	"github.com/aisreactor/reactor/ioadapter"
	"github.com/aisreactor/reactor/leak"
	"github.com/aisreactor/reactor/memsys"
	"github.com/aisreactor/reactor/timeout"
	"github.com/prometheus/client_golang/prometheus"
)

// leakSweepInterval governs how often the leak detector drains resources
// the garbage collector reclaimed without an explicit release.
const leakSweepInterval = 30 * time.Second

var (
	addr       string
	numWorkers int
	configPath string
)

func init() {
	flag.StringVar(&addr, "listen", ":7670", "address to accept line-protocol connections on")
	flag.IntVar(&numWorkers, "workers", 4, "number of event executors in the worker group")
	flag.StringVar(&configPath, "config", "", "optional JSON config overriding line-framer/idle defaults")
}

func main() {
	flag.Parse()
	installSignalHandler()

	cfg := defaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			cos.ExitLogf("failed to load config %q: %v", configPath, err)
		}
		cfg = loaded
	}

	reg := prometheus.NewRegistry()
	group := exec.NewGroup("reactord", numWorkers, reg)

	detector := leak.New(leak.Simple, leak.DefaultSampleInterval, leak.DefaultTargetRecords)
	mm := (&memsys.MMSA{Name: "reactord", Detector: detector}).Init(reg)
	hk.Reg("leak-sweep", func() time.Duration {
		detector.Sweep()
		return leakSweepInterval
	}, leakSweepInterval)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		cos.ExitLogf("listen %s: %v", addr, err)
	}
	nlog.Infof("reactord listening on %s with %d workers", addr, numWorkers)

	go acceptLoop(ln, group, mm, cfg)

	<-make(chan struct{})
}

func defaultConfig() *config.Config {
	return &config.Config{
		LineFramer: config.LineFramerConfig{MaxFrameLength: 8192, StripDelimiter: true, FailFast: true},
		Idle:       config.IdleConfig{ReaderIdle: 0},
	}
}

func acceptLoop(ln net.Listener, group *exec.Group, mm *memsys.MMSA, cfg *config.Config) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			nlog.Errorf("accept: %v", err)
			return
		}
		ex := group.Next()
		ch := channel.New(ex)
		wired := make(chan struct{})
		ex.Execute(func() {
			wireEchoPipeline(ch, mm, cfg)
			close(wired)
		})
		<-wired
		adapter := ioadapter.New(ch, conn, mm)
		go adapter.Serve()
	}
}

func wireEchoPipeline(ch *channel.Channel, mm *memsys.MMSA, cfg *config.Config) {
	p := ch.Pipeline()
	if d := cfg.Idle.ReaderIdleValue(); d > 0 {
		p.AddLast("idle", timeout.NewIdleSupervisor(d, 0, 0, false))
	}
	p.AddLast("framer", line.NewHandler(line.Config{
		MaxFrameLength: cfg.LineFramer.MaxFrameLength,
		StripDelimiter: cfg.LineFramer.StripDelimiter,
		FailFast:       cfg.LineFramer.FailFast,
	}, mm))
	p.AddLast("echo", &echoHandler{})
}

// echoHandler writes every decoded line straight back to its sender,
// appending the delimiter the framer stripped.
type echoHandler struct {
	channel.InboundAdapter
}

func (h *echoHandler) ChannelRead(ctx *channel.HandlerContext, msg any) {
	line, ok := msg.([]byte)
	if !ok {
		ctx.FireChannelRead(msg)
		return
	}
	out := append(append([]byte(nil), line...), '\n')
	ctx.Channel().Write(out, nil)
}

func (h *echoHandler) UserEventTriggered(ctx *channel.HandlerContext, evt any) {
	if ise, ok := evt.(*timeout.IdleStateEvent); ok && ise.State == timeout.ReaderIdle {
		nlog.Infof("channel %s: reader idle, closing", ctx.Channel().ID())
		ctx.Channel().Close()
		return
	}
	ctx.FireUserEventTriggered(evt)
}

func (h *echoHandler) ExceptionCaught(ctx *channel.HandlerContext, err error) {
	nlog.Warningln("channel", ctx.Channel().ID(), "exception:", err)
	ctx.Channel().Close()
}

func installSignalHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		nlog.Infof("reactord shutting down at %s", time.Now().Format(time.RFC3339))
		nlog.Flush(true)
		os.Exit(0)
	}()
}
