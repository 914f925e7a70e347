//go:build debug

package debug

import (
	"fmt"
	"sync"

	"github.com/aisreactor/reactor/cmn/nlog"
)

func ON() bool { return true }

func Infof(format string, args ...any) { nlog.InfoDepth(1, fmt.Sprintf(format, args...)) }

func Func(f func()) { f() }

func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprintln(append([]any{"assertion failed:"}, args...)...))
	}
}

func AssertFunc(f func() bool, args ...any) { Assert(f(), args...) }

func AssertNoErr(err error) {
	if err != nil {
		panic("assertion failed: unexpected error: " + err.Error())
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(format, args...))
	}
}

// AssertMutexLocked and friends rely on sync.Mutex/RWMutex's internal state
// being non-zero while held; this is a best-effort debug-only heuristic,
// never relied upon for correctness.
func AssertMutexLocked(m *sync.Mutex) {
	Assert(!m.TryLock(), "mutex not locked")
	m.Unlock()
}

func AssertRWMutexLocked(m *sync.RWMutex) {
	Assert(!m.TryLock(), "rwmutex not locked")
	m.Unlock()
}

func AssertRWMutexRLocked(m *sync.RWMutex) {
	Assert(!m.TryLock(), "rwmutex not locked for read")
	m.Unlock()
}
