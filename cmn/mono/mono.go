// Package mono provides a single, cheap-to-call monotonic clock used for
// the idle supervisor's deadline arithmetic. Centralizing it means a
// single point to swap in a faster (e.g. linkname'd runtime.nanotime)
// source without touching callers.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
//go:build !mono

package mono

import "time"

// start is the process-local origin of NanoTime readings; time.Since
// measures from it with the monotonic clock reading it carries.
var start = time.Now()

// NanoTime returns a monotonic-clock reading in nanoseconds. It is not
// comparable to wall-clock time or to readings taken in another process.
func NanoTime() int64 { return int64(time.Since(start)) }

// Since returns the elapsed duration since a NanoTime() reading.
func Since(t int64) time.Duration { return time.Duration(NanoTime() - t) }
