package exec

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the calling goroutine's numeric id from its own
// stack trace header ("goroutine NNN [running]:..."). It exists solely to
// back Executor.InEventLoop — Go deliberately exposes no goroutine-local
// storage, and no library in the module's dependency set offers
// goroutine-affinity detection, so this is a standard-library-only leaf.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
