// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakePoller is a scriptable Poller. Poll returns the queued batches in
// order, then waits for Wake (or the timeout).
type fakePoller struct {
	registered map[int]fakeInterest
	batches    [][]Event
	woken      chan struct{}

	pollErr       error
	registerErr   error
	reregisterErr error
	deregisterErr error

	// registerHook, if set, runs after each successful Register
	registerHook func()

	polls           int
	wakesAfterClose int
	closed          bool
	mu              sync.Mutex
}

type fakeInterest struct {
	token    Token
	interest Ready
	opts     PollOpt
}

var errSabotage = errors.New("sabotaged poller")

func newFakePoller() *fakePoller {
	return &fakePoller{
		registered: make(map[int]fakeInterest),
		woken:      make(chan struct{}, 1),
	}
}

// push queues a batch, returned by a future Poll.
func (p *fakePoller) push(events ...Event) {
	p.mu.Lock()
	p.batches = append(p.batches, events)
	p.mu.Unlock()
}

func (p *fakePoller) interest(handle int) (fakeInterest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.registered[handle]
	return v, ok
}

func (p *fakePoller) Register(handle int, token Token, interest Ready, opts PollOpt) error {
	p.mu.Lock()
	if p.registerErr != nil {
		p.mu.Unlock()
		return p.registerErr
	}
	if _, ok := p.registered[handle]; ok {
		p.mu.Unlock()
		return errors.New("fake poller: handle exists")
	}
	p.registered[handle] = fakeInterest{token, interest, opts}
	hook := p.registerHook
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (p *fakePoller) Reregister(handle int, token Token, interest Ready, opts PollOpt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reregisterErr != nil {
		return p.reregisterErr
	}
	p.registered[handle] = fakeInterest{token, interest, opts}
	return nil
}

func (p *fakePoller) Deregister(handle int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deregisterErr != nil {
		return p.deregisterErr
	}
	delete(p.registered, handle)
	return nil
}

func (p *fakePoller) Poll(events []Event, timeout time.Duration) ([]Event, error) {
	p.mu.Lock()
	p.polls++
	if p.closed {
		p.mu.Unlock()
		return events, ErrLoopClosed
	}
	if p.pollErr != nil {
		err := p.pollErr
		p.mu.Unlock()
		return events, err
	}
	if len(p.batches) != 0 {
		batch := p.batches[0]
		p.batches = p.batches[1:]
		p.mu.Unlock()
		return append(events, batch...), nil
	}
	p.mu.Unlock()

	switch {
	case timeout == 0:
	case timeout < 0:
		<-p.woken
	default:
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-p.woken:
		case <-timer.C:
		}
	}
	return events, nil
}

func (p *fakePoller) Wake() error {
	p.mu.Lock()
	if p.closed {
		p.wakesAfterClose++
	}
	p.mu.Unlock()
	select {
	case p.woken <- struct{}{}:
	default:
	}
	return nil
}

func (p *fakePoller) lateWakes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wakesAfterClose
}

func (p *fakePoller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// fakeSource is a Source with an arbitrary handle.
type fakeSource struct {
	attach Attachments
	handle int
}

func (s *fakeSource) Handle() int               { return s.handle }
func (s *fakeSource) Attachments() *Attachments { return &s.attach }

// delivery records one Handler.Ready call.
type delivery struct {
	token Token
	ready Ready
}

// recorder is a Handler recording deliveries, calling an optional hook.
type recorder struct {
	hook       func(l *EventLoop, token Token, ready Ready)
	deliveries []delivery
}

func (r *recorder) Ready(l *EventLoop, token Token, ready Ready) {
	r.deliveries = append(r.deliveries, delivery{token, ready})
	if r.hook != nil {
		r.hook(l, token, ready)
	}
}

func newFakeLoop(t testing.TB, opts ...LoopOption) (*EventLoop, *fakePoller) {
	t.Helper()
	p := newFakePoller()
	l, err := New(append([]LoopOption{WithPoller(p)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, p
}
