// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
)

// Initial size of the handle-indexed entry slice.
const initialHandles = 1024

// maxHandle is the largest handle value supported by the dense index.
const maxHandle = 100000000

// registration is the registry's view of one registered handle.
type registration struct {
	// since is the batch sequence current when the registration was
	// created, events from that batch (or earlier) are not for it
	since    uint64
	token    Token
	interest Ready
	opts     PollOpt
	armed    bool
	active   bool
}

// registry maps handles to registrations, and keeps the poller consistent
// with that view. Every mutation is applied to the poller while holding mu,
// and rolled back if the poller refuses it.
type registry struct {
	poller  Poller
	entries []registration
	live    int
	seq     uint64
	mu      sync.Mutex
}

func newRegistry(poller Poller) *registry {
	return &registry{
		poller:  poller,
		entries: make([]registration, initialHandles),
	}
}

func (r *registry) register(handle int, token Token, interest Ready, opts PollOpt) error {
	if handle < 0 || handle >= maxHandle {
		return ErrInvalidHandle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if handle >= len(r.entries) {
		size := handle*2 + 1
		if size > maxHandle {
			size = maxHandle
		}
		entries := make([]registration, size)
		copy(entries, r.entries)
		r.entries = entries
	}

	if r.entries[handle].active {
		return ErrAlreadyRegistered
	}

	r.entries[handle] = registration{
		since:    r.seq,
		token:    token,
		interest: interest,
		opts:     opts,
		armed:    true,
		active:   true,
	}

	if err := r.poller.Register(handle, token, interest, opts); err != nil {
		r.entries[handle] = registration{}
		return fmt.Errorf("reactor: register handle %d: %w", handle, err)
	}

	r.live++
	return nil
}

// reregister replaces interest and options, re-arming the registration. The
// token never changes.
func (r *registry) reregister(handle int, interest Ready, opts PollOpt) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle < 0 || handle >= len(r.entries) || !r.entries[handle].active {
		return 0, ErrNotRegistered
	}

	old := r.entries[handle]
	r.entries[handle].interest = interest
	r.entries[handle].opts = opts
	r.entries[handle].armed = true

	if err := r.poller.Reregister(handle, old.token, interest, opts); err != nil {
		r.entries[handle] = old
		return 0, fmt.Errorf("reactor: reregister handle %d: %w", handle, err)
	}

	return old.token, nil
}

// deregister removes the registration for handle, if any, reporting whether
// one was removed. A poller that no longer knows the handle (it was closed
// already) is not an error.
func (r *registry) deregister(handle int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle < 0 || handle >= len(r.entries) || !r.entries[handle].active {
		return false, nil
	}

	old := r.entries[handle]
	r.entries[handle] = registration{}

	if err := r.poller.Deregister(handle); err != nil && !isGone(err) {
		r.entries[handle] = old
		return false, fmt.Errorf("reactor: deregister handle %d: %w", handle, err)
	}

	r.live--
	return true, nil
}

// forget unconditionally removes the registration for handle, for a source
// about to release its handle. The poller's error, if any, is returned but
// the entry stays removed.
func (r *registry) forget(handle int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle < 0 || handle >= len(r.entries) || !r.entries[handle].active {
		return false, nil
	}

	r.entries[handle] = registration{}
	r.live--

	if err := r.poller.Deregister(handle); err != nil && !isGone(err) {
		return true, err
	}
	return true, nil
}

// reset drops every registration without consulting the poller.
func (r *registry) reset() {
	r.mu.Lock()
	clear(r.entries)
	r.live = 0
	r.mu.Unlock()
}

// claim returns the registration an event for handle, observed in batch,
// should be delivered to. Registrations created during (or after) the batch
// are not eligible, nor are disarmed one-shot registrations. A one-shot
// registration is disarmed by the claim.
func (r *registry) claim(handle int, batch uint64) (registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle < 0 || handle >= len(r.entries) {
		return registration{}, false
	}
	reg := r.entries[handle]
	if !reg.active || !reg.armed || reg.since >= batch {
		return registration{}, false
	}
	if reg.opts.IsOneshot() {
		r.entries[handle].armed = false
	}
	return reg, true
}

// nextBatch advances and returns the batch sequence. It must be called after
// the poller returns, before any event of the batch is claimed.
func (r *registry) nextBatch() uint64 {
	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.mu.Unlock()
	return seq
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// isGone reports whether a poller error means the handle is no longer
// monitored anyway.
func isGone(err error) bool {
	return errors.Is(err, syscall.EBADF) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, ErrLoopClosed)
}
