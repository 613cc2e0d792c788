// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux

package reactor

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller implements Poller using epoll (Linux), with an eventfd for
// wake-ups.
type epollPoller struct {
	eventBuf []unix.EpollEvent
	epfd     int
	wakeFd   int
	wakeBuf  [8]byte
	closed   atomic.Bool
}

// newPoller creates an epoll poller collecting up to capacity events per
// Poll.
func newPoller(capacity int) (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	wakeFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, err
	}

	ev := &unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(wakeFd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakeFd, ev); err != nil {
		_ = unix.Close(wakeFd)
		_ = unix.Close(epfd)
		return nil, err
	}

	return &epollPoller{
		eventBuf: make([]unix.EpollEvent, capacity),
		epfd:     epfd,
		wakeFd:   wakeFd,
	}, nil
}

func (p *epollPoller) Register(handle int, _ Token, interest Ready, opts PollOpt) error {
	return p.ctl(unix.EPOLL_CTL_ADD, handle, interest, opts)
}

func (p *epollPoller) Reregister(handle int, _ Token, interest Ready, opts PollOpt) error {
	return p.ctl(unix.EPOLL_CTL_MOD, handle, interest, opts)
}

func (p *epollPoller) Deregister(handle int) error {
	if p.closed.Load() {
		return ErrLoopClosed
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, handle, nil)
}

func (p *epollPoller) ctl(op int, handle int, interest Ready, opts PollOpt) error {
	if p.closed.Load() {
		return ErrLoopClosed
	}
	ev := &unix.EpollEvent{
		Events: interestToEpoll(interest, opts),
		Fd:     int32(handle),
	}
	return unix.EpollCtl(p.epfd, op, handle, ev)
}

func (p *epollPoller) Poll(events []Event, timeout time.Duration) ([]Event, error) {
	if p.closed.Load() {
		return events, ErrLoopClosed
	}

	n, err := unix.EpollWait(p.epfd, p.eventBuf, timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return events, nil
		}
		return events, err
	}

	for i := 0; i < n; i++ {
		ev := &p.eventBuf[i]
		fd := int(ev.Fd)
		if fd == p.wakeFd {
			p.drainWake()
			continue
		}
		events = append(events, Event{Handle: fd, Ready: epollToReady(ev.Events)})
	}

	return events, nil
}

func (p *epollPoller) Wake() error {
	if p.closed.Load() {
		return ErrLoopClosed
	}
	var buf [8]byte
	buf[0] = 1
	_, err := unix.Write(p.wakeFd, buf[:])
	if err == unix.EAGAIN {
		// counter saturated, a wake-up is already pending
		return nil
	}
	return err
}

func (p *epollPoller) drainWake() {
	for {
		if _, err := unix.Read(p.wakeFd, p.wakeBuf[:]); err != nil {
			return
		}
	}
}

func (p *epollPoller) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	_ = unix.Close(p.wakeFd)
	return unix.Close(p.epfd)
}

// interestToEpoll converts interest and options to epoll event flags.
// EPOLLRDHUP is always requested, so a peer close is reported as Hup.
func interestToEpoll(interest Ready, opts PollOpt) uint32 {
	events := uint32(unix.EPOLLRDHUP)
	if interest.IsReadable() {
		events |= unix.EPOLLIN
	}
	if interest.IsWritable() {
		events |= unix.EPOLLOUT
	}
	if opts.IsEdge() {
		events |= unix.EPOLLET
	}
	if opts.IsOneshot() {
		events |= unix.EPOLLONESHOT
	}
	return events
}

// epollToReady converts epoll event flags to a Ready set.
func epollToReady(events uint32) Ready {
	var ready Ready
	if events&unix.EPOLLIN != 0 {
		ready |= Readable
	}
	if events&unix.EPOLLOUT != 0 {
		ready |= Writable
	}
	if events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		ready |= Hup
	}
	if events&unix.EPOLLERR != 0 {
		ready |= Error
	}
	return ready
}
