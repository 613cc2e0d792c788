// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

//go:build linux || darwin

package tcp

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"runtime"

	"github.com/joeycumines/go-reactor"
	"golang.org/x/sys/unix"
)

// ErrAddressInUse is returned by Bind when another socket already listens
// on the address.
var ErrAddressInUse = errors.New("tcp: address already in use")

const listenBacklog = unix.SOMAXCONN

// Listener is a non-blocking TCP listening socket.
type Listener struct {
	fd      *netFD
	cleanup runtime.Cleanup
}

var _ reactor.Source = (*Listener)(nil)

// Listen resolves address (host:port), then calls Bind.
func Listen(address string) (*Listener, error) {
	addr, err := resolve(address)
	if err != nil {
		return nil, err
	}
	return Bind(addr)
}

// Bind creates a non-blocking socket listening on addr. Port 0 picks an
// ephemeral port, see LocalAddr.
func Bind(addr netip.AddrPort) (*Listener, error) {
	sa, family, err := toSockaddr(addr)
	if err != nil {
		return nil, err
	}

	sysfd, err := socket(family)
	if err != nil {
		return nil, err
	}

	if err := unix.SetsockoptInt(sysfd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(sysfd)
		return nil, os.NewSyscallError("setsockopt", err)
	}

	if err := unix.Bind(sysfd, sa); err != nil {
		_ = unix.Close(sysfd)
		if err == unix.EADDRINUSE {
			return nil, fmt.Errorf("%w: %s: %w", ErrAddressInUse, addr, os.NewSyscallError("bind", err))
		}
		return nil, os.NewSyscallError("bind", err)
	}

	if err := unix.Listen(sysfd, listenBacklog); err != nil {
		_ = unix.Close(sysfd)
		if err == unix.EADDRINUSE {
			return nil, fmt.Errorf("%w: %s: %w", ErrAddressInUse, addr, os.NewSyscallError("listen", err))
		}
		return nil, os.NewSyscallError("listen", err)
	}

	l := &Listener{fd: newNetFD(sysfd)}
	l.cleanup = runtime.AddCleanup(l, (*netFD).release, l.fd)
	return l, nil
}

// Accept accepts a pending connection, returning the new stream and the
// peer's address. It fails with reactor.ErrWouldBlock if no connection is
// pending.
func (l *Listener) Accept() (*Stream, netip.AddrPort, error) {
	var (
		sysfd = -1
		sa    unix.Sockaddr
	)
	err := l.fd.control(func(lfd int) error {
		for {
			var err error
			sysfd, sa, err = accept(lfd)
			switch err {
			case nil:
				return nil
			case unix.EINTR, unix.ECONNABORTED:
				// the connection was reset while queued, try the next
				continue
			case unix.EAGAIN:
				return reactor.ErrWouldBlock
			default:
				return os.NewSyscallError("accept", err)
			}
		}
	})
	if err != nil {
		return nil, netip.AddrPort{}, err
	}
	return newStream(sysfd), fromSockaddr(sa), nil
}

// LocalAddr returns the address the listener is bound to.
func (l *Listener) LocalAddr() (netip.AddrPort, error) {
	return l.fd.sockname()
}

// Handle implements reactor.Source. It returns -1 once closed.
func (l *Listener) Handle() int {
	return l.fd.handle()
}

// Attachments implements reactor.Source.
func (l *Listener) Attachments() *reactor.Attachments {
	return &l.fd.attach
}

// Close deregisters the listener from every loop, then closes it.
func (l *Listener) Close() error {
	l.cleanup.Stop()
	return l.fd.Close()
}
