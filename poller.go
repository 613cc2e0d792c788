// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"math"
	"time"
)

// Event is a single readiness observation returned by a Poller.
type Event struct {
	Handle int
	Ready  Ready
}

// Poller is the OS readiness source an EventLoop is built on.
//
// The platform implementations are:
//   - poller_linux.go (epoll, eventfd wake)
//   - poller_darwin.go (kqueue, self-pipe wake)
//
// A custom implementation may be supplied with WithPoller. The loop calls
// Register, Reregister, Deregister and Poll from the goroutine running the
// loop, or from the goroutine registering a source; Wake may be called from
// any goroutine.
type Poller interface {
	// Register starts monitoring handle for interest, triggered per opts.
	Register(handle int, token Token, interest Ready, opts PollOpt) error

	// Reregister replaces the interest and options of a monitored handle,
	// re-arming it if it was disabled by Oneshot.
	Reregister(handle int, token Token, interest Ready, opts PollOpt) error

	// Deregister stops monitoring handle.
	Deregister(handle int) error

	// Poll blocks until at least one event is ready, Wake is called, or
	// timeout elapses, appending events to the provided slice. A negative
	// timeout blocks indefinitely. Each handle appears at most once per call.
	// An interrupted wait returns no events and no error.
	Poll(events []Event, timeout time.Duration) ([]Event, error)

	// Wake causes a blocked Poll to return. Wake events are never reported.
	Wake() error

	// Close releases the poller's resources.
	Close() error
}

// timeoutMillis converts a poll timeout to milliseconds, rounding positive
// sub-millisecond durations up so that a short timer never busy-loops.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	if timeout == 0 {
		return 0
	}
	ms := (timeout + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}
