// Package cos provides common low-level types and utilities shared across
// the reactor runtime's packages.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package cos

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	ratomic "sync/atomic"
	"syscall"

	"github.com/aisreactor/reactor/cmn/debug"
	"github.com/aisreactor/reactor/cmn/nlog"
)

type Errs struct {
	errs []error
	cnt  int64
	mu   sync.Mutex
}

// maxErrs caps how many distinct errors an Errs aggregator keeps; past
// this it still counts occurrences but stops retaining new causes.
const maxErrs = 4

func (e *Errs) Add(err error) {
	debug.Assert(err != nil)
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
	ratomic.AddInt64(&e.cnt, 1)
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) JoinErr() (cnt int, err error) {
	if cnt = e.Cnt(); cnt > 0 {
		e.mu.Lock()
		err = errors.Join(e.errs...) // up to maxErrs
		e.mu.Unlock()
	}
	return
}

func (e *Errs) Error() (s string) {
	cnt := e.Cnt()
	if cnt == 0 {
		return
	}
	e.mu.Lock()
	err := e.errs[0]
	e.mu.Unlock()
	if cnt > 1 {
		err = fmt.Errorf("%v (and %d more error%s)", err, cnt-1, Plural(cnt-1))
	}
	return err.Error()
}

func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

//
// connection-error classification — consumed by the transport adapter to
// tell a routine peer disconnect from a genuine exception
//

func IsErrConnectionRefused(err error) bool { return errors.Is(err, syscall.ECONNREFUSED) }
func IsErrConnectionReset(err error) bool   { return errors.Is(err, syscall.ECONNRESET) }
func IsErrBrokenPipe(err error) bool        { return errors.Is(err, syscall.EPIPE) }

func IsRetriableConnErr(err error) bool {
	return IsErrConnectionRefused(err) || IsErrConnectionReset(err) || IsErrBrokenPipe(err)
}

//
// abnormal termination
//

const fatalPrefix = "FATAL ERROR: "

func Exitf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	_exit(msg)
}

// ExitLogf logs then terminates the process; used for configuration errors
// discovered at startup that the runtime cannot recover from.
func ExitLogf(f string, a ...any) {
	msg := fmt.Sprintf(fatalPrefix+f, a...)
	if flag.Parsed() {
		nlog.ErrorDepth(1, msg)
		nlog.Flush(true)
	}
	_exit(msg)
}

func _exit(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
