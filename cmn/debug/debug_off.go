//go:build !debug

// Package debug provides invariant-checking assertions that compile away
// entirely in release builds and activate under `-tags=debug`.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package debug

import "sync"

func ON() bool { return false }

func Infof(_ string, _ ...any) {}

func Func(_ func()) {}

func Assert(_ bool, _ ...any)            {}
func AssertFunc(_ func() bool, _ ...any) {}
func AssertNoErr(_ error)                {}
func Assertf(_ bool, _ string, _ ...any) {}

func AssertMutexLocked(_ *sync.Mutex)      {}
func AssertRWMutexLocked(_ *sync.RWMutex)  {}
func AssertRWMutexRLocked(_ *sync.RWMutex) {}
