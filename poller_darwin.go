// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build darwin

package reactor

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// kqueuePoller implements Poller using kqueue (Darwin), with a self-pipe for
// wake-ups.
//
// kqueue reports read and write filters as separate kevents; Poll merges them
// so each handle appears once per batch.
type kqueuePoller struct {
	eventBuf  []unix.Kevent_t
	merged    map[int]int // handle -> index into the events being built
	kq        int
	wakeRead  int
	wakeWrite int
	wakeBuf   [64]byte
	closed    atomic.Bool
}

// newPoller creates a kqueue poller collecting up to capacity kevents per
// Poll.
func newPoller(capacity int) (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kq)

	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		_ = unix.Close(kq)
		return nil, err
	}
	cleanup := func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		_ = unix.Close(kq)
	}
	for _, fd := range fds {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			cleanup()
			return nil, err
		}
	}

	kev := unix.Kevent_t{
		Ident:  uint64(fds[0]),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{kev}, nil, nil); err != nil {
		cleanup()
		return nil, err
	}

	return &kqueuePoller{
		eventBuf:  make([]unix.Kevent_t, capacity),
		merged:    make(map[int]int),
		kq:        kq,
		wakeRead:  fds[0],
		wakeWrite: fds[1],
	}, nil
}

func (p *kqueuePoller) Register(handle int, _ Token, interest Ready, opts PollOpt) error {
	if p.closed.Load() {
		return ErrLoopClosed
	}
	changes := interestToKevents(handle, interest, opts)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) Reregister(handle int, token Token, interest Ready, opts PollOpt) error {
	if p.closed.Load() {
		return ErrLoopClosed
	}
	// drop filters no longer wanted, then (re)add and enable the rest
	if !wantsReadFilter(interest) {
		p.deleteFilter(handle, unix.EVFILT_READ)
	}
	if !interest.IsWritable() {
		p.deleteFilter(handle, unix.EVFILT_WRITE)
	}
	return p.Register(handle, token, interest, opts)
}

func (p *kqueuePoller) Deregister(handle int) error {
	if p.closed.Load() {
		return ErrLoopClosed
	}
	errRead := p.deleteFilter(handle, unix.EVFILT_READ)
	errWrite := p.deleteFilter(handle, unix.EVFILT_WRITE)
	if errRead == unix.EBADF || errWrite == unix.EBADF {
		return unix.EBADF
	}
	return nil
}

// deleteFilter removes a single filter. ENOENT (filter not present) is not
// an error.
func (p *kqueuePoller) deleteFilter(handle int, filter int16) error {
	change := []unix.Kevent_t{{Ident: uint64(handle), Filter: filter, Flags: unix.EV_DELETE}}
	if _, err := unix.Kevent(p.kq, change, nil, nil); err != nil && err != unix.ENOENT {
		return err
	}
	return nil
}

func (p *kqueuePoller) Poll(events []Event, timeout time.Duration) ([]Event, error) {
	if p.closed.Load() {
		return events, ErrLoopClosed
	}

	var ts *unix.Timespec
	if ms := timeoutMillis(timeout); ms >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(ms / 1000),
			Nsec: int64((ms % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kq, nil, p.eventBuf, ts)
	if err != nil {
		if err == unix.EINTR {
			return events, nil
		}
		return events, err
	}

	clear(p.merged)
	for i := 0; i < n; i++ {
		kev := &p.eventBuf[i]
		fd := int(kev.Ident)
		if fd == p.wakeRead {
			p.drainWake()
			continue
		}
		ready := keventToReady(kev)
		if idx, ok := p.merged[fd]; ok {
			events[idx].Ready |= ready
			continue
		}
		p.merged[fd] = len(events)
		events = append(events, Event{Handle: fd, Ready: ready})
	}

	return events, nil
}

func (p *kqueuePoller) Wake() error {
	if p.closed.Load() {
		return ErrLoopClosed
	}
	_, err := unix.Write(p.wakeWrite, []byte{1})
	if err == unix.EAGAIN {
		// pipe full, a wake-up is already pending
		return nil
	}
	return err
}

func (p *kqueuePoller) drainWake() {
	for {
		if _, err := unix.Read(p.wakeRead, p.wakeBuf[:]); err != nil {
			return
		}
	}
}

func (p *kqueuePoller) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	_ = unix.Close(p.wakeRead)
	_ = unix.Close(p.wakeWrite)
	return unix.Close(p.kq)
}

// wantsReadFilter reports whether interest needs EVFILT_READ. Hup is only
// observable through the read filter's EV_EOF.
func wantsReadFilter(interest Ready) bool {
	return interest.IsReadable() || interest.IsHup()
}

// interestToKevents converts interest and options to kevent changes.
func interestToKevents(handle int, interest Ready, opts PollOpt) []unix.Kevent_t {
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if opts.IsEdge() {
		flags |= unix.EV_CLEAR
	}
	if opts.IsOneshot() {
		flags |= unix.EV_DISPATCH
	}

	var changes []unix.Kevent_t
	if wantsReadFilter(interest) {
		changes = append(changes, unix.Kevent_t{
			Ident:  uint64(handle),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
		})
	}
	if interest.IsWritable() {
		changes = append(changes, unix.Kevent_t{
			Ident:  uint64(handle),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
		})
	}
	return changes
}

// keventToReady converts a kqueue event to a Ready set.
func keventToReady(kev *unix.Kevent_t) Ready {
	var ready Ready
	switch kev.Filter {
	case unix.EVFILT_READ:
		ready |= Readable
	case unix.EVFILT_WRITE:
		ready |= Writable
	}
	if kev.Flags&unix.EV_ERROR != 0 {
		ready |= Error
	}
	if kev.Flags&unix.EV_EOF != 0 {
		ready |= Hup
		if kev.Fflags != 0 {
			ready |= Error
		}
	}
	return ready
}
