// Package constant implements the process-wide constant pool of spec.md
// §6: a registry assigning each distinct name a stable, monotonically
// increasing id on first use, so handlers can switch on a small integer
// instead of repeatedly comparing strings.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package constant

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrAlreadyRegistered is returned by NewInstance when name was already
// assigned an id.
type ErrAlreadyRegistered struct{ Name string }

func (e *ErrAlreadyRegistered) Error() string {
	return fmt.Sprintf("constant: %q already registered", e.Name)
}

// Pool is a sync.Map-backed name-to-id registry. The zero value is ready
// to use; DefaultPool is the process-wide singleton most callers want.
type Pool struct {
	byName  sync.Map // string -> uint32
	counter atomic.Uint32
}

var DefaultPool = &Pool{}

// ValueOf returns name's id, assigning the next id under a single atomic
// counter the first time name is seen. Concurrent first-uses of the same
// name all observe the same winning id.
func (p *Pool) ValueOf(name string) uint32 {
	if v, ok := p.byName.Load(name); ok {
		return v.(uint32)
	}
	id := p.counter.Add(1)
	actual, loaded := p.byName.LoadOrStore(name, id)
	if loaded {
		return actual.(uint32)
	}
	return id
}

// NewInstance assigns name a fresh id, failing if it is already
// registered — the caller wants exclusive ownership of this name rather
// than ValueOf's idempotent get-or-create.
func (p *Pool) NewInstance(name string) (uint32, error) {
	id := p.counter.Add(1)
	_, loaded := p.byName.LoadOrStore(name, id)
	if loaded {
		return 0, &ErrAlreadyRegistered{Name: name}
	}
	return id, nil
}

// Lookup reports whether name has been assigned an id, and what it is.
func (p *Pool) Lookup(name string) (uint32, bool) {
	v, ok := p.byName.Load(name)
	if !ok {
		return 0, false
	}
	return v.(uint32), true
}

func ValueOf(name string) uint32                    { return DefaultPool.ValueOf(name) }
func NewInstance(name string) (uint32, error)        { return DefaultPool.NewInstance(name) }
func Lookup(name string) (uint32, bool)              { return DefaultPool.Lookup(name) }
