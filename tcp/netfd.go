// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package tcp

import (
	"io"
	"net"
	"net/netip"
	"os"
	"sync"

	"github.com/joeycumines/go-reactor"
	"golang.org/x/sys/unix"
)

// netFD owns a non-blocking socket. The lock guards the handle against
// Close, and is only ever held for reading by I/O, so reads and writes never
// wait on each other.
type netFD struct {
	attach reactor.Attachments
	mu     sync.RWMutex
	sysfd  int
	closed bool
}

func newNetFD(sysfd int) *netFD {
	return &netFD{sysfd: sysfd}
}

// handle returns the socket, or -1 once closed.
func (fd *netFD) handle() int {
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	if fd.closed {
		return -1
	}
	return fd.sysfd
}

// control runs f with the open socket.
func (fd *netFD) control(f func(sysfd int) error) error {
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	if fd.closed {
		return net.ErrClosed
	}
	return f(fd.sysfd)
}

func (fd *netFD) read(p []byte) (int, error) {
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	if fd.closed {
		return 0, net.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Read(fd.sysfd, p)
		switch err {
		case nil:
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, reactor.ErrWouldBlock
		default:
			return 0, os.NewSyscallError("read", err)
		}
		if n == 0 {
			return 0, io.EOF
		}
		return n, nil
	}
}

func (fd *netFD) write(p []byte) (int, error) {
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	if fd.closed {
		return 0, net.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n, err := unix.Write(fd.sysfd, p)
		switch err {
		case nil:
			return n, nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			return 0, reactor.ErrWouldBlock
		default:
			return 0, os.NewSyscallError("write", err)
		}
	}
}

// Close detaches the socket from every loop it is registered with, then
// closes it. Subsequent calls return net.ErrClosed.
func (fd *netFD) Close() error {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	if fd.closed {
		return net.ErrClosed
	}
	fd.closed = true
	fd.attach.Detach(fd.sysfd)
	if err := unix.Close(fd.sysfd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

// release is the cleanup for an unreachable wrapper.
func (fd *netFD) release() {
	_ = fd.Close()
}

func (fd *netFD) sockname() (netip.AddrPort, error) {
	var addr netip.AddrPort
	err := fd.control(func(sysfd int) error {
		sa, err := unix.Getsockname(sysfd)
		if err != nil {
			return os.NewSyscallError("getsockname", err)
		}
		addr = fromSockaddr(sa)
		return nil
	})
	return addr, err
}

func (fd *netFD) peername() (netip.AddrPort, error) {
	var addr netip.AddrPort
	err := fd.control(func(sysfd int) error {
		sa, err := unix.Getpeername(sysfd)
		if err != nil {
			return os.NewSyscallError("getpeername", err)
		}
		addr = fromSockaddr(sa)
		return nil
	})
	return addr, err
}
