// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package reactor implements a readiness-based I/O event loop.
//
// An [EventLoop] multiplexes many non-blocking sources behind a single
// blocking wait, using the platform-native mechanism:
//   - Linux: epoll
//   - Darwin: kqueue
//
// Sources are registered with a caller chosen [Token], an interest [Ready]
// set, and a [PollOpt] selecting edge, level, or one-shot triggering. Each
// readiness notification is delivered to a [Handler] on the goroutine that
// called [EventLoop.Run] or [EventLoop.RunOnce].
//
// # Usage
//
//	loop, err := reactor.New()
//	if err != nil {
//	    return err
//	}
//	defer loop.Close()
//
//	if err := loop.Register(listener, reactor.Token(1), reactor.Readable, reactor.Edge); err != nil {
//	    return err
//	}
//
//	return loop.Run(reactor.HandlerFunc(func(l *reactor.EventLoop, token reactor.Token, ready reactor.Ready) {
//	    // drain the source until reactor.ErrWouldBlock
//	}))
//
// # Edge triggering
//
// The loop never redelivers an edge-triggered notification. A handler must
// drain the source (read or write until [ErrWouldBlock]) within the callback,
// or it may not be notified again even though data or capacity remains.
//
// # Safety
//
// Closing a source through its own Close method detaches it from every loop
// it is registered with, before the handle is released. Events already
// returned by the poller for a removed registration are never delivered, even
// if the handle number is reused within the same batch.
//
// See the tcp sub-package for non-blocking listener and stream sources.
package reactor
