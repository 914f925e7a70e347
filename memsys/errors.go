// Package memsys implements the runtime's reference-counted byte buffer
// (RC-Buf): a growable byte region with independent read/write cursors
// whose backing storage is returned to a slab allocator when the last
// reference is released. It is the Go-native, single-process analogue of
// the teacher's scatter-gather-list allocator (github.com/NVIDIA/aistore/memsys).
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package memsys

import "errors"

// ErrIllegalRefCount is returned by Retain/Release when the operation would
// violate the reference-count invariant: retaining a buffer whose count has
// already reached zero, releasing more than the current count, or an
// add that would overflow.
var ErrIllegalRefCount = errors.New("memsys: illegal reference count")

// ErrReadOnly is returned by any mutating call against a buffer created
// with the read-only flag set.
var ErrReadOnly = errors.New("memsys: buffer is read-only")

// ErrBounds is returned when a read/write would violate
// 0 <= reader <= writer <= capacity <= maxCapacity.
var ErrBounds = errors.New("memsys: index out of bounds")

// ErrReleased names access to a buffer whose ref-count has already reached
// zero. The Buf accessors do not return it: after the last Release, Retain
// and Release fail with ErrIllegalRefCount and the buffer's storage is nil.
var ErrReleased = errors.New("memsys: use after release")
