// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Source is anything that may be registered with an EventLoop.
//
// Implementations own their handle, and must call Attachments().Detach with
// it before releasing (closing) the handle, so that no loop keeps, or
// dispatches to, a registration for a handle that may be reused.
type Source interface {
	// Handle returns the raw OS handle (file descriptor).
	Handle() int

	// Attachments returns the set of loops the source is registered with.
	// It must return the same pointer for the life of the source.
	Attachments() *Attachments
}

// Attachments tracks the loops a Source is registered with. The zero value
// is ready to use. It is safe for concurrent use.
type Attachments struct {
	mu    sync.Mutex
	loops []*EventLoop
}

// attach reports whether l was added, as opposed to already attached.
func (x *Attachments) attach(l *EventLoop) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if slices.Contains(x.loops, l) {
		return false
	}
	x.loops = append(x.loops, l)
	return true
}

func (x *Attachments) detach(l *EventLoop) {
	x.mu.Lock()
	if i := slices.Index(x.loops, l); i >= 0 {
		x.loops = slices.Delete(x.loops, i, i+1)
	}
	x.mu.Unlock()
}

// Len returns the number of loops the source is registered with.
func (x *Attachments) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.loops)
}

// Detach removes the registration for handle from every attached loop, in
// both the loop's registry and its poller. Sources call it from Close, before
// closing the handle. It is idempotent.
func (x *Attachments) Detach(handle int) {
	x.mu.Lock()
	loops := x.loops
	x.loops = nil
	x.mu.Unlock()

	for _, l := range loops {
		l.forget(handle)
	}
}
