// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package tcp provides non-blocking TCP listeners and streams, for use with
// a reactor.EventLoop.
//
// Every operation returns immediately. When an operation cannot make
// progress it fails with reactor.ErrWouldBlock, which is not a failure: the
// caller waits for the next readiness notification and tries again. With
// edge-triggered registrations, callers must keep calling TryRead, TryWrite
// or Accept until ErrWouldBlock, or they may never be notified again.
//
// Listener and Stream are safe for concurrent use. In particular, a Stream
// may be read on one goroutine while it is written on another.
package tcp
