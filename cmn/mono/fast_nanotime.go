//go:build mono

// Package mono provides low-level monotonic time
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package mono

import (
	"time"

	_ "unsafe" // for go:linkname
)

// https://golang.org/pkg/runtime/?m=all#nanotime
//
//go:linkname NanoTime runtime.nanotime
func NanoTime() int64

func Since(t int64) time.Duration { return time.Duration(NanoTime() - t) }
