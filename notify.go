// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync"

	"github.com/eapache/queue"
)

// Sender delivers messages to a loop from any goroutine. Messages are handed
// to the handler's Notify method (see NotifyHandler) on the loop goroutine,
// in the order they were sent.
type Sender struct {
	l *EventLoop
}

// Send queues msg and wakes the loop. It fails with ErrNotifyFull if the
// queue is at capacity, or ErrLoopClosed once the loop is closed.
func (s *Sender) Send(msg any) error {
	return s.l.notify.push(msg, s.l)
}

// notifyQueue is the bounded FIFO behind Sender.
type notifyQueue struct {
	q        *queue.Queue
	capacity int
	mu       sync.Mutex
}

func newNotifyQueue(capacity int) *notifyQueue {
	return &notifyQueue{q: queue.New(), capacity: capacity}
}

func (x *notifyQueue) push(msg any, l *EventLoop) error {
	x.mu.Lock()
	if l.closed.Load() {
		x.mu.Unlock()
		return ErrLoopClosed
	}
	if x.q.Length() >= x.capacity {
		x.mu.Unlock()
		return ErrNotifyFull
	}
	x.q.Add(msg)
	// wake under the lock, so Close cannot release the poller mid-wake
	err := l.poller.Wake()
	x.mu.Unlock()
	return err
}

// wake wakes the poller unless the loop is closed, serialized with Close
// the same way as push.
func (x *notifyQueue) wake(l *EventLoop) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if l.closed.Load() {
		return ErrLoopClosed
	}
	return l.poller.Wake()
}

func (x *notifyQueue) pop() (any, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.q.Length() == 0 {
		return nil, false
	}
	return x.q.Remove(), true
}

func (x *notifyQueue) len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.q.Length()
}

// drainNotify delivers at most messagesPerTick queued messages, stopping
// early if a handler closes the loop.
func (l *EventLoop) drainNotify(h Handler) {
	nh, _ := h.(NotifyHandler)
	for i := 0; i < l.messagesPerTick && !l.closed.Load(); i++ {
		msg, ok := l.notify.pop()
		if !ok {
			return
		}
		if nh != nil {
			nh.Notify(l, msg)
		}
	}
}
