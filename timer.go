// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"container/heap"
	"time"
)

// Timer identifies a pending timeout, see EventLoop.Timeout.
type Timer struct {
	id uint64
}

// timer represents a scheduled timeout
type timer struct {
	when  time.Time
	id    uint64
	token Token
	index int
}

// timerHeap is a min-heap of timers
type timerHeap []*timer

// Implement heap.Interface for timerHeap
func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].id < h[j].id
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Timeout schedules a notification for token after delay. When it expires,
// the loop calls the handler's Timeout method (see TimeoutHandler) after the
// I/O callbacks of that batch. The poll wait is shortened to the earliest
// pending deadline.
//
// Timeout must be called from the goroutine running the loop, or while the
// loop is not running.
func (l *EventLoop) Timeout(token Token, delay time.Duration) (Timer, error) {
	if l.closed.Load() {
		return Timer{}, ErrLoopClosed
	}
	if delay < 0 {
		delay = 0
	}
	l.timerSeq++
	t := &timer{
		when:  l.now().Add(delay),
		id:    l.timerSeq,
		token: token,
	}
	heap.Push(&l.timers, t)
	l.timerByID[t.id] = t
	return Timer{id: t.id}, nil
}

// ClearTimeout cancels a pending timeout, reporting whether it was pending.
func (l *EventLoop) ClearTimeout(t Timer) bool {
	pending, ok := l.timerByID[t.id]
	if !ok {
		return false
	}
	delete(l.timerByID, t.id)
	heap.Remove(&l.timers, pending.index)
	return true
}

// nextTimeout caps the caller's poll timeout by the next timer deadline.
func (l *EventLoop) nextTimeout(timeout time.Duration) time.Duration {
	if len(l.timers) == 0 {
		return timeout
	}
	delay := l.timers[0].when.Sub(l.now())
	if delay < 0 {
		delay = 0
	}
	if timeout < 0 || delay < timeout {
		return delay
	}
	return timeout
}

// runTimers fires all expired timers.
func (l *EventLoop) runTimers(h Handler) {
	if len(l.timers) == 0 {
		return
	}
	th, _ := h.(TimeoutHandler)
	now := l.now()
	for len(l.timers) > 0 && !l.closed.Load() {
		if l.timers[0].when.After(now) {
			break
		}
		t := heap.Pop(&l.timers).(*timer)
		delete(l.timerByID, t.id)
		if th != nil {
			th.Timeout(l, t.token)
		}
	}
}
