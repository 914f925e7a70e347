// Package nlog is the reactor runtime's structured logger: buffered,
// severity-leveled, glog-style output with size-based rotation.
/*
 * Copyright (c) 2023-2026, reactor authors. All rights reserved.
 */
package nlog

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const maxLineSize = 2 * 1024

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

var sevChar = [...]byte{sevInfo: 'I', sevWarn: 'W', sevErr: 'E'}
var sevText = [...]string{sevInfo: "INFO", sevWarn: "WARNING", sevErr: "ERROR"}

// MaxSize is the rotation threshold, in bytes, per severity file.
var MaxSize int64 = 4 * 1024 * 1024

type nlog struct {
	mw      sync.Mutex
	file    *os.File
	buf     bytes.Buffer
	written atomic.Int64
	last    atomic.Int64
	sev     severity
}

var (
	nlogs        [3]*nlog
	toStderr     bool
	alsoToStderr bool
	logDir, role string
	title        string
	host, _      = os.Hostname()
	pid          = os.Getpid()
)

func init() {
	for s := sevInfo; s <= sevErr; s++ {
		nlogs[s] = &nlog{sev: s}
	}
}

func InitFlags(flset *flag.FlagSet) {
	flset.BoolVar(&toStderr, "logtostderr", false, "log to standard error instead of files")
	flset.BoolVar(&alsoToStderr, "alsologtostderr", false, "log to standard error as well as files")
}

func SetLogDirRole(dir, r string) { logDir, role = dir, r }
func SetTitle(s string)           { title = s }

func InfoDepth(depth int, args ...any)    { log(sevInfo, depth, "", args...) }
func Infoln(args ...any)                  { log(sevInfo, 0, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, 0, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 0, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 0, format, args...) }
func ErrorDepth(depth int, args ...any)   { log(sevErr, depth, "", args...) }
func Errorln(args ...any)                 { log(sevErr, 0, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 0, format, args...) }

func InfoLogName() string { return sname() + ".INFO" }
func ErrLogName() string  { return sname() + ".ERROR" }

func log(sev severity, depth int, format string, args ...any) {
	if !flag.Parsed() {
		os.Stderr.WriteString("Error: logging before flag.Parse: ")
		toStderr = true
	}
	line := sprintf(sev, depth+1, format, args...)
	if toStderr {
		os.Stderr.Write(line)
		return
	}
	if alsoToStderr || sev >= sevErr {
		os.Stderr.Write(line)
	}
	if sev >= sevWarn {
		nlogs[sevErr].write(line)
	}
	nlogs[sevInfo].write(line)
}

func (n *nlog) write(line []byte) {
	n.mw.Lock()
	defer n.mw.Unlock()
	if n.file == nil {
		if err := n.open(time.Now()); err != nil {
			return
		}
	}
	nn, err := n.file.Write(line)
	n.written.Add(int64(nn))
	n.last.Store(time.Now().UnixNano())
	if err != nil {
		return
	}
	if n.written.Load() >= MaxSize {
		n.file.Close()
		n.file = nil
	}
}

func (n *nlog) open(now time.Time) error {
	dir := logDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := logfname(sevText[n.sev], now)
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	n.file = f
	n.written.Store(0)
	hdr := fmt.Sprintf("Log file created at %s\nrunning on %s %s/%s, host %s\n",
		now.Format("2006/01/02 15:04:05"), runtime.Version(), runtime.GOOS, runtime.GOARCH, host)
	if title != "" {
		hdr += title + "\n"
	}
	_, err = f.WriteString(hdr)
	return err
}

func Flush(exit ...bool) {
	ex := len(exit) > 0 && exit[0]
	for _, n := range nlogs {
		n.mw.Lock()
		if n.file != nil {
			n.file.Sync()
			if ex {
				n.file.Close()
				n.file = nil
			}
		}
		n.mw.Unlock()
	}
}

func sname() string {
	if role != "" {
		return role
	}
	return "reactor"
}

func logfname(tag string, t time.Time) string {
	return fmt.Sprintf("%s.%s.%s.%02d%02d-%02d%02d%02d.%d.log",
		sname(), host, tag, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), pid)
}

func sprintf(sev severity, depth int, format string, args ...any) []byte {
	var b bytes.Buffer
	b.WriteByte(sevChar[sev])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')
	if _, fn, ln, ok := runtime.Caller(2 + depth); ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
		b.WriteString(fn)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ln))
		b.WriteByte(' ')
	}
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		if b.Len() == 0 || b.Bytes()[b.Len()-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	if b.Len() > maxLineSize {
		b.Truncate(maxLineSize)
		b.WriteByte('\n')
	}
	return b.Bytes()
}
