// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

// Handler receives readiness notifications from an EventLoop.
//
// Ready is called on the goroutine running the loop, once per ready handle
// per batch. It must not block. It may register, reregister or deregister
// sources, and may call Shutdown, which takes effect after the batch.
type Handler interface {
	Ready(l *EventLoop, token Token, ready Ready)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(l *EventLoop, token Token, ready Ready)

// Ready implements Handler.
func (f HandlerFunc) Ready(l *EventLoop, token Token, ready Ready) { f(l, token, ready) }

// TimeoutHandler may be implemented by a Handler to receive expired timers,
// see EventLoop.Timeout. Without it, expired timers are discarded.
type TimeoutHandler interface {
	Timeout(l *EventLoop, token Token)
}

// NotifyHandler may be implemented by a Handler to receive messages sent
// with a Sender. Without it, messages are discarded.
type NotifyHandler interface {
	Notify(l *EventLoop, msg any)
}
