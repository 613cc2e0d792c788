// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import "errors"

// Standard errors.
var (
	// ErrWouldBlock signals that a non-blocking operation cannot complete
	// right now. It is not a failure: retry after the next notification.
	ErrWouldBlock = errors.New("reactor: operation would block")

	// ErrAlreadyRegistered is returned by Register when the source's handle
	// already has a live registration with the loop.
	ErrAlreadyRegistered = errors.New("reactor: handle already registered")

	// ErrNotRegistered is returned by Reregister when the source's handle has
	// no live registration with the loop.
	ErrNotRegistered = errors.New("reactor: handle not registered")

	// ErrInvalidHandle is returned when a source reports a negative handle.
	ErrInvalidHandle = errors.New("reactor: invalid handle")

	// ErrInvalidPollOpt is returned for a PollOpt that fails Validate.
	ErrInvalidPollOpt = errors.New("reactor: invalid poll options")

	// ErrLoopClosed is returned by operations on a closed loop.
	ErrLoopClosed = errors.New("reactor: loop closed")

	// ErrReentrantRun is returned when Run or RunOnce is called from inside
	// a handler callback.
	ErrReentrantRun = errors.New("reactor: cannot run the loop from within a callback")

	// ErrNotifyFull is returned by Sender.Send when the notify queue is at
	// capacity.
	ErrNotifyFull = errors.New("reactor: notify queue full")

	// ErrUnsupportedPlatform is returned by New on platforms without a
	// native poller implementation.
	ErrUnsupportedPlatform = errors.New("reactor: platform not supported (requires epoll or kqueue)")
)
